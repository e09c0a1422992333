package service

import (
	"context"

	"coverage-compare-be/internal/dto"
	"coverage-compare-be/internal/mapper"
	"coverage-compare-be/internal/pkg/logger"
	"coverage-compare-be/pkg/events"
	"coverage-compare-be/pkg/resolution/executor"
	"coverage-compare-be/pkg/resolution/guidance"
	"coverage-compare-be/pkg/resolution/session"
	"coverage-compare-be/pkg/resolution/viewstate"
	"coverage-compare-be/pkg/store"
)

// ViewPusher delivers a fresh session view to connected displays.
type ViewPusher interface {
	PushView(sessionID string, view dto.SessionViewResponse)
}

type ISessionService interface {
	Create(ctx context.Context, userID string) (*dto.CreateSessionResponse, error)
	Show(ctx context.Context, userID, sessionID string) (*dto.SessionViewResponse, error)
	Query(ctx context.Context, userID, sessionID string, req *dto.SubmitQueryRequest) (*dto.TurnResponse, error)
	Select(ctx context.Context, userID, sessionID string, req *dto.SelectCoverageRequest) (*dto.TurnResponse, error)
	ViewEvent(ctx context.Context, userID, sessionID string, req *dto.ViewEventRequest) error
	End(ctx context.Context, userID, sessionID string) error
}

type sessionService struct {
	manager          *session.Manager
	executor         *executor.TurnExecutor
	views            *viewstate.Registry
	publisherService IPublisherService
	pusher           ViewPusher
	mapper           *mapper.SessionMapper
	logger           logger.ILogger
}

// NewSessionService wires the turn pipeline to session storage. pusher may be nil.
func NewSessionService(
	manager *session.Manager,
	exec *executor.TurnExecutor,
	views *viewstate.Registry,
	publisherService IPublisherService,
	pusher ViewPusher,
	log logger.ILogger,
) ISessionService {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &sessionService{
		manager:          manager,
		executor:         exec,
		views:            views,
		publisherService: publisherService,
		pusher:           pusher,
		mapper:           mapper.NewSessionMapper(),
		logger:           log,
	}
}

func (s *sessionService) Create(ctx context.Context, userID string) (*dto.CreateSessionResponse, error) {
	sess, err := s.manager.Create(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &dto.CreateSessionResponse{Id: sess.ID()}, nil
}

func (s *sessionService) Show(ctx context.Context, userID, sessionID string) (*dto.SessionViewResponse, error) {
	sess, err := s.manager.Load(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	view := s.mapper.SessionToView(sess, s.views.Get(sessionID))
	return &view, nil
}

func (s *sessionService) Query(ctx context.Context, userID, sessionID string, req *dto.SubmitQueryRequest) (*dto.TurnResponse, error) {
	return s.runTurn(ctx, userID, sessionID, func(sess *store.Session) (*executor.TurnResult, error) {
		return s.executor.Execute(ctx, sess, executor.Turn{
			Query:         req.Query,
			ExplicitReset: req.ExplicitReset,
		})
	})
}

// Select resolves a candidate picked from the guidance list. A code the
// guidance does not list is still sent, labelled by the request itself.
func (s *sessionService) Select(ctx context.Context, userID, sessionID string, req *dto.SelectCoverageRequest) (*dto.TurnResponse, error) {
	return s.runTurn(ctx, userID, sessionID, func(sess *store.Session) (*executor.TurnResult, error) {
		candidate, ok := guidance.FindCandidate(sess.Guidance(), req.CoverageCode)
		if !ok {
			candidate = store.SuggestedCoverage{
				CoverageCode: req.CoverageCode,
				CoverageName: req.CoverageName,
			}
		}
		return s.executor.SelectCandidate(ctx, sess, candidate)
	})
}

func (s *sessionService) runTurn(
	ctx context.Context,
	userID, sessionID string,
	run func(sess *store.Session) (*executor.TurnResult, error),
) (*dto.TurnResponse, error) {
	release, err := s.manager.BeginTurn(sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err := s.manager.Load(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	res, err := run(sess)
	if err != nil {
		return nil, err
	}
	if err := s.manager.Save(ctx, sess); err != nil {
		return nil, err
	}

	s.publishTurn(ctx, sess, res)

	view := s.mapper.SessionToView(sess, s.views.Get(sessionID))
	if s.pusher != nil {
		s.pusher.PushView(sessionID, view)
	}
	return s.mapper.TurnToResponse(res, view), nil
}

// publishTurn runs only after the session was saved, so nothing is
// announced for a turn that was not persisted.
func (s *sessionService) publishTurn(ctx context.Context, sess *store.Session, res *executor.TurnResult) {
	if s.publisherService == nil {
		return
	}

	if res.Transition != nil {
		s.publisherService.RecordTransition(ctx, *res.Transition)
	}

	data := map[string]interface{}{
		"session_id":      sess.ID(),
		"outcome":         res.Outcome.Kind(),
		"effective_state": res.EffectiveState,
		"lock_violation":  res.LockViolation,
	}
	eventType := events.TypeTurnCompleted
	if failed, ok := res.Outcome.(executor.Failed); ok {
		eventType = events.TypeTurnFailed
		data["error"] = failed.Err.Error()
	}
	if res.Anchor != nil {
		data["coverage_code"] = res.Anchor.CoverageCode
	}

	s.publish(ctx, events.New(eventType, data))

	if res.ResetCondition.Present() {
		s.publish(ctx, events.New(events.TypeAnchorReset, map[string]interface{}{
			"session_id": sess.ID(),
			"reason":     res.ResetCondition,
		}))
	}
}

func (s *sessionService) publish(ctx context.Context, event events.Event) {
	if err := s.publisherService.Publish(ctx, event); err != nil {
		s.logger.Warn("SESSION", "Failed to publish session event", map[string]interface{}{
			"type":  event.EventType(),
			"error": err.Error(),
		})
	}
}

// ViewEvent applies a display interaction. It never touches the query state.
func (s *sessionService) ViewEvent(ctx context.Context, userID, sessionID string, req *dto.ViewEventRequest) error {
	if _, err := s.manager.Load(ctx, sessionID, userID); err != nil {
		return err
	}
	return s.views.Apply(sessionID, req.EventType, req.TargetState, req.Value)
}

func (s *sessionService) End(ctx context.Context, userID, sessionID string) error {
	if err := s.manager.End(ctx, sessionID, userID); err != nil {
		return err
	}
	s.views.Drop(sessionID)

	if s.publisherService != nil {
		s.publish(ctx, events.New(events.TypeSessionEnded, map[string]interface{}{
			"session_id": sessionID,
			"reason":     store.ResetSessionEnd,
		}))
	}
	return nil
}
