package executor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"coverage-compare-be/internal/pkg/logger"
	"coverage-compare-be/pkg/compare"
	"coverage-compare-be/pkg/resolution/guidance"
	"coverage-compare-be/pkg/resolution/lock"
	"coverage-compare-be/pkg/resolution/message"
	"coverage-compare-be/pkg/resolution/reset"
	"coverage-compare-be/pkg/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var ErrEmptyQuery = errors.New("executor: empty query")

// Turn is one submitted query.
type Turn struct {
	Query         string
	ExplicitReset bool
	// UIEventType defaults to send_message.
	UIEventType        string
	LockedCoverageCode string
}

// TurnExecutor sequences a turn: detect reset, call the collaborator,
// arbitrate, gate, update the session.
type TurnExecutor struct {
	resolver compare.Resolver
	detector *reset.Detector
	arbiter  *lock.Arbiter
	messages *message.Factory
	tracer   trace.Tracer
	logger   logger.ILogger
	insurers []string
}

// NewTurnExecutor creates a turn executor
func NewTurnExecutor(
	resolver compare.Resolver,
	detector *reset.Detector,
	arbiter *lock.Arbiter,
	log logger.ILogger,
) *TurnExecutor {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if detector == nil {
		detector = reset.NewDetector(nil, log)
	}
	if arbiter == nil {
		arbiter = lock.NewArbiter(log)
	}
	return &TurnExecutor{
		resolver: resolver,
		detector: detector,
		arbiter:  arbiter,
		messages: message.NewFactory(),
		tracer:   otel.Tracer("coverage-compare-be/executor"),
		logger:   log,
	}
}

// WithInsurers sets the insurers sent with every resolution request.
func (e *TurnExecutor) WithInsurers(insurers ...string) *TurnExecutor {
	e.insurers = slices.Clone(insurers)
	return e
}

// Execute runs one turn against sess. The caller owns sess and must not run
// two turns on it at once. Collaborator failures are reported through a
// Failed outcome, never as an error.
func (e *TurnExecutor) Execute(ctx context.Context, sess *store.Session, turn Turn) (*TurnResult, error) {
	query := strings.TrimSpace(turn.Query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	ctx, span := e.tracer.Start(ctx, "executor.turn", trace.WithAttributes(
		attribute.String("session.id", sess.ID()),
	))
	defer span.End()

	priorAnchor := sess.Anchor()
	priorGuidance := sess.Guidance()
	priorState := sess.State()

	// 1. reset condition
	cond := e.detector.Detect(query, priorAnchor, turn.ExplicitReset)
	span.SetAttributes(attribute.String("turn.reset_condition", string(cond)))

	// 2. outbound request; the anchor only travels when nothing reset it
	req := compare.Request{
		Query:              query,
		Insurers:           e.insurers,
		UIEventType:        turn.UIEventType,
		LockedCoverageCode: turn.LockedCoverageCode,
	}
	if req.UIEventType == "" {
		req.UIEventType = compare.EventSendMessage
	}
	if !cond.Present() {
		req.PriorAnchor = priorAnchor
	}

	// 3. clear guidance, log the user message
	sess.ClearGuidance()
	sess.AppendMessage(e.messages.CreateUserMessage(query))

	e.logger.Info("EXECUTOR", "Turn started", map[string]interface{}{
		"session_id":      sess.ID(),
		"query":           query,
		"reset_condition": cond,
		"anchored":        lock.IsLocked(priorAnchor),
	})

	// 4. the single suspension point
	resp, err := e.resolve(ctx, req)
	if err != nil {
		return e.fail(span, sess, cond, priorAnchor, priorGuidance, priorState, err), nil
	}

	sess.SetLastQuery(query)

	// 5. arbitrate
	decision := e.arbiter.Arbitrate(ctx, sess.ID(), priorState, priorAnchor, resp.Anchor, resp.ResolutionState, cond)

	// 6. persist the effective anchor, even when it is the retained one
	sess.ReplaceAnchor(decision.Anchor)
	sess.SetState(decision.State)

	span.SetAttributes(
		attribute.Bool("turn.lock_violation", decision.LockViolation),
		attribute.String("turn.effective_state", string(decision.State)),
	)

	result := &TurnResult{
		ResetCondition: cond,
		LockViolation:  decision.LockViolation,
		EffectiveState: decision.State,
		Anchor:         decision.Anchor.Clone(),
		Transition:     &decision.Record,
		Debug:          resp.Debug,
	}

	// 7. gate
	if message.CanAppendAssistantMessage(decision.State) {
		sess.ClearGuidance()
		msg := e.messages.CreateAssistantMessage(message.ComposeSummary(resp.SummaryText, resp.RecoveryMessage))
		message.AppendAssistant(sess, decision.State, msg)
		result.Outcome = Resolved{Message: msg}
	} else {
		g := guidance.FromVerdict(decision.State, resp.Verdict, query)
		if g == nil {
			// unreachable while states are normalized in resolve
			g = guidance.Create(store.StateInvalid, "", nil, "", query)
		}
		sess.InstallGuidance(g)
		result.Outcome = NeedsGuidance{Guidance: g.Clone()}
		e.logger.Info("GUIDANCE", "Guidance installed", map[string]interface{}{
			"session_id":       sess.ID(),
			"resolution_state": g.ResolutionState,
			"candidates":       len(g.SuggestedCoverages),
		})
	}

	e.logger.Info("EXECUTOR", "Turn completed", map[string]interface{}{
		"session_id":      sess.ID(),
		"outcome":         result.Outcome.Kind(),
		"effective_state": decision.State,
		"lock_violation":  decision.LockViolation,
	})
	return result, nil
}

// SelectCandidate re-enters the turn sequence for a coverage picked from
// the guidance panel. The selection is not an explicit reset.
func (e *TurnExecutor) SelectCandidate(ctx context.Context, sess *store.Session, candidate store.SuggestedCoverage) (*TurnResult, error) {
	return e.Execute(ctx, sess, Turn{
		Query:              candidate.Label(),
		UIEventType:        compare.EventCoverageButtonClick,
		LockedCoverageCode: candidate.CoverageCode,
	})
}

func (e *TurnExecutor) resolve(ctx context.Context, req compare.Request) (*compare.Response, error) {
	ctx, span := e.tracer.Start(ctx, "compare.resolve")
	defer span.End()

	resp, err := e.resolver.Resolve(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: empty response", compare.ErrTransport)
	}

	// Resolver implementations other than HTTPResolver may hand back raw or
	// legacy statuses; only the three defined states go past this point.
	state, defaulted := lock.ParseState(string(resp.ResolutionState))
	if state != resp.ResolutionState {
		e.logger.Warn("COMPARE", "Normalized resolution state", map[string]interface{}{
			"received":  resp.ResolutionState,
			"effective": state,
		})
		normalized := *resp
		normalized.ResolutionState = state
		normalized.StateDefaulted = normalized.StateDefaulted || defaulted
		resp = &normalized
	}
	return resp, nil
}

// fail implements the failed-turn path: an error-flagged assistant message
// is the only mutation; anchor and guidance are put back.
func (e *TurnExecutor) fail(
	span trace.Span,
	sess *store.Session,
	cond store.ResetCondition,
	priorAnchor *store.QueryAnchor,
	priorGuidance *store.GuidanceState,
	priorState store.ResolutionState,
	err error,
) *TurnResult {
	span.RecordError(err)
	span.SetStatus(codes.Error, "turn failed")

	sess.InstallGuidance(priorGuidance)
	msg := e.messages.CreateErrorMessage(compare.UserMessage(err))
	sess.AppendMessage(msg)

	e.logger.Error("EXECUTOR", "Turn failed", map[string]interface{}{
		"session_id": sess.ID(),
		"error":      err.Error(),
	})

	return &TurnResult{
		Outcome:        Failed{Message: msg, Err: err},
		ResetCondition: cond,
		EffectiveState: priorState,
		Anchor:         priorAnchor,
	}
}
