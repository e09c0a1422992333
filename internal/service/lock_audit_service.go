package service

import (
	"context"

	"coverage-compare-be/internal/pkg/logger"
	"coverage-compare-be/pkg/events"
	pktNats "coverage-compare-be/pkg/nats"
)

// EventSubscriber is the durable subscription side of the event bus.
type EventSubscriber interface {
	Subscribe(ctx context.Context, eventType, durableName string, handler pktNats.EventHandler) error
}

// LockAuditService writes every lock violation seen on the bus to a
// dedicated audit log.
type LockAuditService struct {
	subscriber EventSubscriber
	audit      logger.ILogger
}

func NewLockAuditService(sub EventSubscriber, audit logger.ILogger) *LockAuditService {
	return &LockAuditService{subscriber: sub, audit: audit}
}

// Start begins listening to transition records.
func (s *LockAuditService) Start(ctx context.Context) error {
	return s.subscriber.Subscribe(ctx, events.TypeTransitionEvaluated, "coverage-lock-audit", s.handleEvent)
}

func (s *LockAuditService) handleEvent(_ context.Context, event events.Event) error {
	payload := event.Payload()
	if violated, _ := payload["lock_violation"].(bool); !violated {
		return nil
	}
	s.audit.Warn("LOCK", "Lock violation", map[string]interface{}{
		"session_id":    payload["session_id"],
		"coverage_code": payload["coverage_code"],
		"proposed":      payload["proposed"],
		"effective":     payload["effective"],
		"occurred_at":   event.Timestamp(),
	})
	return nil
}
