package executor

import (
	"encoding/json"

	"coverage-compare-be/pkg/resolution/lock"
	"coverage-compare-be/pkg/store"
)

// Outcome is what a turn produced for the user. Exactly one of Resolved,
// NeedsGuidance or Failed.
type Outcome interface {
	outcome()
	Kind() string
}

// Resolved means an assistant summary was appended to the log.
type Resolved struct {
	Message store.ChatMessage
}

// NeedsGuidance means no assistant message was appended; the guidance
// singleton carries the candidate list or rephrase notice instead.
type NeedsGuidance struct {
	Guidance *store.GuidanceState
}

// Failed means the collaborator call failed and an error-flagged assistant
// message was appended. Anchor and guidance are unchanged.
type Failed struct {
	Message store.ChatMessage
	Err     error
}

func (Resolved) outcome()      {}
func (NeedsGuidance) outcome() {}
func (Failed) outcome()        {}

func (Resolved) Kind() string      { return "resolved" }
func (NeedsGuidance) Kind() string { return "needs_guidance" }
func (Failed) Kind() string        { return "failed" }

// TurnResult is the settled account of one turn.
type TurnResult struct {
	Outcome        Outcome
	ResetCondition store.ResetCondition
	LockViolation  bool
	EffectiveState store.ResolutionState
	Anchor         *store.QueryAnchor
	// Transition is nil when the collaborator call failed.
	Transition *lock.TransitionRecord
	// Debug is the collaborator's opaque debug payload.
	Debug json.RawMessage
}
