package lock

import (
	"context"
	"time"

	"coverage-compare-be/internal/pkg/logger"
	"coverage-compare-be/pkg/store"
)

// TransitionRecord is the diagnostic trace of one arbitration.
//
// Allowed reports that the proposed state was adopted unchanged. It is not
// IsTransitionAllowed(From, Proposed): once a reset leaves the session
// RESOLVED with no anchor nothing is locked, so a later UNRESOLVED proposal
// is adopted and recorded with Allowed true.
type TransitionRecord struct {
	SessionID     string                `json:"session_id,omitempty"`
	From          store.ResolutionState `json:"from,omitempty"`
	Proposed      store.ResolutionState `json:"proposed"`
	Effective     store.ResolutionState `json:"effective"`
	Allowed       bool                  `json:"allowed"`
	LockViolation bool                  `json:"lock_violation"`
	Reason        store.ResetCondition  `json:"reason,omitempty"`
	CoverageCode  string                `json:"coverage_code,omitempty"`
	At            time.Time             `json:"at"`
}

// Recorder receives a TransitionRecord for every arbitration. Recorders
// observe only; they cannot influence the decision.
type Recorder interface {
	RecordTransition(ctx context.Context, rec TransitionRecord)
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, rec TransitionRecord)

func (f RecorderFunc) RecordTransition(ctx context.Context, rec TransitionRecord) { f(ctx, rec) }

// Decision is the arbitrated outcome of one turn.
type Decision struct {
	Anchor        *store.QueryAnchor
	State         store.ResolutionState
	LockViolation bool
	Record        TransitionRecord
}

// Arbiter combines the session's anchor, the collaborator's proposal and
// the reset verdict into the effective anchor and state.
type Arbiter struct {
	logger    logger.ILogger
	recorders []Recorder
	now       func() time.Time
}

// NewArbiter creates an arbiter that logs each transition and fans it out
// to the given recorders.
func NewArbiter(log logger.ILogger, recorders ...Recorder) *Arbiter {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Arbiter{
		logger:    log,
		recorders: recorders,
		now:       time.Now,
	}
}

// Arbitrate applies the lock rule for a single turn and emits its record.
func (a *Arbiter) Arbitrate(
	ctx context.Context,
	sessionID string,
	prevState store.ResolutionState,
	current, candidate *store.QueryAnchor,
	proposed store.ResolutionState,
	reset store.ResetCondition,
) Decision {
	violation := !reset.Present() && IsLockViolation(current, proposed)
	anchor := ResolveAnchorUpdate(current, candidate, proposed, reset)
	effective := ResolveResolutionState(current, proposed, reset)

	rec := TransitionRecord{
		SessionID:     sessionID,
		From:          prevState,
		Proposed:      orResolved(proposed),
		Effective:     effective,
		Allowed:       effective == orResolved(proposed),
		LockViolation: violation,
		Reason:        reset,
		At:            a.now(),
	}
	if anchor != nil {
		rec.CoverageCode = anchor.CoverageCode
	}

	a.log(rec)
	for _, r := range a.recorders {
		r.RecordTransition(ctx, rec)
	}

	return Decision{
		Anchor:        anchor,
		State:         effective,
		LockViolation: violation,
		Record:        rec,
	}
}

func (a *Arbiter) log(rec TransitionRecord) {
	from := string(rec.From)
	if from == "" {
		from = stateAbsent
	}
	details := map[string]interface{}{
		"session_id":    rec.SessionID,
		"from":          from,
		"to":            rec.Proposed,
		"effective":     rec.Effective,
		"allowed":       rec.Allowed,
		"reason":        rec.Reason,
		"coverage_code": rec.CoverageCode,
	}
	if rec.LockViolation {
		a.logger.Warn("LOCK", "Lock violation detected, keeping current anchor", details)
		return
	}
	a.logger.Info("LOCK", "Transition evaluated", details)
}
