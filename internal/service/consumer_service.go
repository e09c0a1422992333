package service

import (
	"context"
	"encoding/json"

	"coverage-compare-be/internal/pkg/logger"
	"coverage-compare-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
)

// EventForwarder ships bus events off the process, e.g. to NATS.
type EventForwarder interface {
	Publish(ctx context.Context, event events.Event) error
}

type IConsumerService interface {
	// Consume blocks until ctx is done or the bus closes.
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	forwarder  EventForwarder
	logger     logger.ILogger
}

// NewConsumerService drains topicName. A nil forwarder only logs.
func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	forwarder EventForwarder,
	log logger.ILogger,
) IConsumerService {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		forwarder:  forwarder,
		logger:     log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	cs.logger.Info("CONSUMER", "Consuming session events", map[string]interface{}{"topic": cs.topicName})
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			cs.processMessage(ctx, msg)
		}
	}
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var event events.BaseEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		cs.logger.Error("CONSUMER", "Failed to unmarshal event", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	cs.logger.Debug("CONSUMER", "Event received", map[string]interface{}{
		"type":       event.Type,
		"session_id": event.Data["session_id"],
	})

	if cs.forwarder != nil {
		if err := cs.forwarder.Publish(ctx, event); err != nil {
			// Forwarding is best effort; the event stays in the local log.
			cs.logger.Warn("CONSUMER", "Failed to forward event", map[string]interface{}{
				"type":  event.Type,
				"error": err.Error(),
			})
		}
	}
	msg.Ack()
}
