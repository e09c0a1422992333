package store

// ResolutionState is the three-way verdict on whether a query pins down
// exactly one coverage.
type ResolutionState string

const (
	StateResolved   ResolutionState = "RESOLVED"   // exactly one coverage, confident
	StateUnresolved ResolutionState = "UNRESOLVED" // candidates exist, user must choose
	StateInvalid    ResolutionState = "INVALID"    // no usable candidate, rephrase
)

// AllStates lists the concrete resolution states in declaration order.
var AllStates = []ResolutionState{StateResolved, StateUnresolved, StateInvalid}

// Valid reports whether s is one of the three concrete states.
func (s ResolutionState) Valid() bool {
	switch s {
	case StateResolved, StateUnresolved, StateInvalid:
		return true
	}
	return false
}

// Intent is the conversational intent under which an anchor was established.
type Intent string

const (
	IntentLookup  Intent = "lookup"
	IntentCompare Intent = "compare"
)

// ResetCondition signals that the user is abandoning the current anchor.
// The zero value means no reset.
type ResetCondition string

const (
	ResetNone             ResetCondition = ""
	ResetNewCoverageQuery ResetCondition = "NEW_COVERAGE_QUERY"
	ResetAnchorEvent      ResetCondition = "RESET_ANCHOR_EVENT"
	ResetSessionEnd       ResetCondition = "SESSION_END"
)

// Present reports whether a reset condition fired.
func (r ResetCondition) Present() bool { return r != ResetNone }

// QueryAnchor is what the session currently has locked in. It is always
// replaced as a whole value, never edited in place.
type QueryAnchor struct {
	CoverageCode  string `json:"coverage_code"`
	CoverageName  string `json:"coverage_name,omitempty"`
	Domain        string `json:"domain,omitempty"`
	OriginalQuery string `json:"original_query"`
	Intent        Intent `json:"intent"`
}

// Clone returns a copy of a, or nil when a is nil.
func (a *QueryAnchor) Clone() *QueryAnchor {
	if a == nil {
		return nil
	}
	cp := *a
	return &cp
}

// Equal reports whether two anchors carry the same value. Two nil anchors are equal.
func (a *QueryAnchor) Equal(other *QueryAnchor) bool {
	if a == nil || other == nil {
		return a == nil && other == nil
	}
	return *a == *other
}
