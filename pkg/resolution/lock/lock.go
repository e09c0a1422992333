// Package lock holds the resolution transition table, the anti-regression lock
// rule, and the arbiter that merges a session's anchor with a fresh verdict.
package lock

import (
	"coverage-compare-be/pkg/store"
)

// stateAbsent stands for "no prior state" in the transition table.
const stateAbsent = "NULL"

type transitionKey string

func keyOf(from, to store.ResolutionState) transitionKey {
	f := string(from)
	if f == "" {
		f = stateAbsent
	}
	return transitionKey(f + "->" + string(to))
}

var allowedTransitions = map[transitionKey]struct{}{
	// NULL → any
	"NULL->RESOLVED":   {},
	"NULL->UNRESOLVED": {},
	"NULL->INVALID":    {},
	// confirmed by selection or by rephrasing
	"UNRESOLVED->RESOLVED": {},
	"INVALID->RESOLVED":    {},
	"UNRESOLVED->INVALID":  {},
	"INVALID->UNRESOLVED":  {},
	// no-op
	"RESOLVED->RESOLVED":     {},
	"UNRESOLVED->UNRESOLVED": {},
	"INVALID->INVALID":       {},
}

// Once a coverage is confirmed it cannot become ambiguous or unknown again
// without an explicit reset.
var forbiddenTransitions = map[transitionKey]struct{}{
	"RESOLVED->UNRESOLVED": {},
	"RESOLVED->INVALID":    {},
}

// IsTransitionAllowed reports whether moving from one effective state to
// another is legal. An empty from means no prior state.
func IsTransitionAllowed(from, to store.ResolutionState) bool {
	key := keyOf(from, to)
	if _, forbidden := forbiddenTransitions[key]; forbidden {
		return false
	}
	_, ok := allowedTransitions[key]
	return ok
}

// IsLocked reports whether the anchor pins a coverage.
func IsLocked(anchor *store.QueryAnchor) bool {
	return anchor != nil && anchor.CoverageCode != ""
}

// IsLockViolation reports whether newState would regress a locked anchor.
// An empty newState means the collaborator sent no verdict, which is never
// a violation.
func IsLockViolation(anchor *store.QueryAnchor, newState store.ResolutionState) bool {
	if !IsLocked(anchor) {
		return false
	}
	if newState == "" {
		return false
	}
	return newState != store.StateResolved
}

// ResolveAnchorUpdate picks the anchor the session keeps after a turn.
// A reset always adopts the candidate (which may be nil); a lock violation
// keeps the current anchor; otherwise the candidate wins when present.
func ResolveAnchorUpdate(current, candidate *store.QueryAnchor, newState store.ResolutionState, reset store.ResetCondition) *store.QueryAnchor {
	if reset.Present() {
		return candidate.Clone()
	}
	if IsLockViolation(current, newState) {
		return current.Clone()
	}
	if candidate != nil {
		return candidate.Clone()
	}
	return current.Clone()
}

// ResolveResolutionState picks the effective state of a turn. An empty
// newState defaults to RESOLVED for backward compatibility.
func ResolveResolutionState(current *store.QueryAnchor, newState store.ResolutionState, reset store.ResetCondition) store.ResolutionState {
	if reset.Present() {
		return orResolved(newState)
	}
	if IsLockViolation(current, newState) {
		return store.StateResolved
	}
	return orResolved(newState)
}

func orResolved(s store.ResolutionState) store.ResolutionState {
	if s == "" {
		return store.StateResolved
	}
	return s
}
