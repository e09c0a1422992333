package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"coverage-compare-be/pkg/events"
	"coverage-compare-be/pkg/resolution/lock"
	"coverage-compare-be/pkg/store"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// go-cache janitors from session tests in this package outlive their test.
var ignoreCacheJanitor = goleak.IgnoreTopFunction("github.com/patrickmn/go-cache.(*janitor).Run")

type forwardedEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func (f *forwardedEvents) Publish(_ context.Context, e events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return nil
}

func (f *forwardedEvents) snapshot() []events.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]events.Event(nil), f.events...)
}

func TestPublishConsumeRoundTrip(t *testing.T) {
	defer goleak.VerifyNone(t, ignoreCacheJanitor)

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	forwarder := &forwardedEvents{}

	publisher := NewPublisherService("coverage.events", pubSub, nil)
	consumer := NewConsumerService(pubSub, "coverage.events", forwarder, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- consumer.Consume(ctx) }()

	// gochannel drops messages published before anyone subscribed
	require.Eventually(t, func() bool {
		_ = publisher.Publish(ctx, events.New(events.TypeTurnCompleted, map[string]interface{}{"session_id": "s1"}))
		return len(forwarder.snapshot()) > 0
	}, 2*time.Second, 20*time.Millisecond)

	publisher.RecordTransition(ctx, lock.TransitionRecord{
		SessionID:     "s1",
		Proposed:      store.StateUnresolved,
		Effective:     store.StateResolved,
		LockViolation: true,
		CoverageCode:  "A4200_1",
		At:            time.Now(),
	})

	require.Eventually(t, func() bool {
		for _, e := range forwarder.snapshot() {
			if e.EventType() == events.TypeTransitionEvaluated {
				return true
			}
		}
		return false
	}, 2*time.Second, 20*time.Millisecond)

	got := forwarder.snapshot()
	assert.Equal(t, "s1", got[0].Payload()["session_id"])
	for _, e := range got {
		if e.EventType() == events.TypeTransitionEvaluated {
			assert.Equal(t, true, e.Payload()["lock_violation"])
			assert.Equal(t, "A4200_1", e.Payload()["coverage_code"])
		}
	}

	cancel()
	require.NoError(t, <-done)
	require.NoError(t, pubSub.Close())
}

func TestConsumer_AcksUndecodableMessages(t *testing.T) {
	defer goleak.VerifyNone(t, ignoreCacheJanitor)

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	forwarder := &forwardedEvents{}
	consumer := NewConsumerService(pubSub, "coverage.events", forwarder, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- consumer.Consume(ctx) }()

	publisher := NewPublisherService("coverage.events", pubSub, nil)
	require.Eventually(t, func() bool {
		bad := message.NewMessage(watermill.NewUUID(), []byte("not json"))
		_ = pubSub.Publish("coverage.events", bad)
		_ = publisher.Publish(ctx, events.New(events.TypeSessionEnded, map[string]interface{}{"session_id": "s2"}))
		return len(forwarder.snapshot()) > 0
	}, 2*time.Second, 20*time.Millisecond)

	for _, e := range forwarder.snapshot() {
		assert.Equal(t, events.TypeSessionEnded, e.EventType())
	}

	cancel()
	require.NoError(t, <-done)
	require.NoError(t, pubSub.Close())
}
