package lock

import (
	"strings"

	"coverage-compare-be/pkg/store"
)

// legacyStatus maps the older lowercase coverage_resolution statuses.
var legacyStatus = map[string]store.ResolutionState{
	"resolved": store.StateResolved,
	"suggest":  store.StateUnresolved,
	"clarify":  store.StateUnresolved,
	"failed":   store.StateInvalid,
}

// ParseState maps a wire status onto a ResolutionState. An empty status is
// treated as RESOLVED and reported through defaulted; an unrecognised
// non-empty status is INVALID.
func ParseState(raw string) (state store.ResolutionState, defaulted bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return store.StateResolved, true
	}
	if s := store.ResolutionState(raw); s.Valid() {
		return s, false
	}
	if s, ok := legacyStatus[strings.ToLower(raw)]; ok {
		return s, false
	}
	return store.StateInvalid, false
}

var stateNotices = map[store.ResolutionState]string{
	store.StateResolved:   "",
	store.StateUnresolved: "담보를 선택해 주세요. 선택 후 비교 결과가 표시됩니다.",
	store.StateInvalid:    "담보가 확정되면 비교 결과가 표시됩니다.",
}

// CanRenderResults reports whether comparison results may be displayed.
func CanRenderResults(state store.ResolutionState) bool {
	return state == store.StateResolved
}

// StateNotice is the placeholder shown instead of results for state.
func StateNotice(state store.ResolutionState) string {
	return stateNotices[state]
}
