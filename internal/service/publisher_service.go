package service

import (
	"context"
	"encoding/json"
	"fmt"

	"coverage-compare-be/internal/pkg/logger"
	"coverage-compare-be/pkg/events"
	"coverage-compare-be/pkg/resolution/lock"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

type IPublisherService interface {
	Publish(ctx context.Context, event events.Event) error
	lock.Recorder
}

type publisherService struct {
	topicName string
	publisher message.Publisher
	logger    logger.ILogger
}

// NewPublisherService publishes session events to topicName on the in-process bus.
func NewPublisherService(topicName string, publisher message.Publisher, log logger.ILogger) IPublisherService {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &publisherService{
		topicName: topicName,
		publisher: publisher,
		logger:    log,
	}
}

func (ps *publisherService) Publish(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(events.BaseEvent{
		Type:       event.EventType(),
		Data:       event.Payload(),
		OccurredAt: event.Timestamp(),
	})
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.EventType(), err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("event_type", event.EventType())
	msg.SetContext(ctx)

	if err := ps.publisher.Publish(ps.topicName, msg); err != nil {
		return fmt.Errorf("publish %s event: %w", event.EventType(), err)
	}
	return nil
}

// RecordTransition forwards the arbiter's trace onto the bus.
func (ps *publisherService) RecordTransition(ctx context.Context, rec lock.TransitionRecord) {
	err := ps.Publish(ctx, events.BaseEvent{
		Type: events.TypeTransitionEvaluated,
		Data: map[string]interface{}{
			"session_id":     rec.SessionID,
			"from":           rec.From,
			"proposed":       rec.Proposed,
			"effective":      rec.Effective,
			"allowed":        rec.Allowed,
			"lock_violation": rec.LockViolation,
			"reason":         rec.Reason,
			"coverage_code":  rec.CoverageCode,
		},
		OccurredAt: rec.At,
	})
	if err != nil {
		ps.logger.Warn("LOCK", "Failed to publish transition record", map[string]interface{}{
			"session_id": rec.SessionID,
			"error":      err.Error(),
		})
	}
}
