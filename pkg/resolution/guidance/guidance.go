// Package guidance builds the ephemeral guidance singleton shown while a
// coverage is not yet resolved.
package guidance

import (
	"slices"

	"coverage-compare-be/pkg/store"
)

const (
	DefaultUnresolvedMessage = "여러 담보가 검색되었습니다. 아래에서 선택해 주세요."
	DefaultInvalidMessage    = "담보명을 인식하지 못했습니다. 좀 더 구체적으로 입력해 주세요."
)

// Template is the fixed panel copy for a guidance state.
type Template struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Hint        string `json:"hint"`
}

var templates = map[store.ResolutionState]Template{
	store.StateUnresolved: {
		Title:       "담보 선택 필요",
		Description: "여러 담보가 검색되었습니다. 아래에서 하나를 선택해 주세요.",
		Hint:        "선택하시면 비교 결과가 표시됩니다.",
	},
	store.StateInvalid: {
		Title:       "담보 미확정",
		Description: "담보명을 인식하지 못했습니다.",
		Hint:        "좀 더 구체적인 담보명을 입력해 주세요.",
	},
}

// TemplateFor returns the panel copy for state; ok is false for RESOLVED.
func TemplateFor(state store.ResolutionState) (Template, bool) {
	t, ok := templates[state]
	return t, ok
}

// Create returns the guidance for a turn whose effective state is state, or
// nil when state needs no guidance. All suggested coverages are kept.
func Create(
	state store.ResolutionState,
	message string,
	suggested []store.SuggestedCoverage,
	detectedDomain string,
	originalQuery string,
) *store.GuidanceState {
	candidates := slices.Clone(suggested)
	if candidates == nil {
		candidates = []store.SuggestedCoverage{}
	}

	switch state {
	case store.StateUnresolved:
		if message == "" {
			message = DefaultUnresolvedMessage
		}
		return &store.GuidanceState{
			ResolutionState:    store.StateUnresolved,
			Message:            message,
			SuggestedCoverages: candidates,
			DetectedDomain:     detectedDomain,
			OriginalQuery:      originalQuery,
		}
	case store.StateInvalid:
		if message == "" {
			message = DefaultInvalidMessage
		}
		return &store.GuidanceState{
			ResolutionState:    store.StateInvalid,
			Message:            message,
			SuggestedCoverages: candidates,
			OriginalQuery:      originalQuery,
		}
	default:
		return nil
	}
}

// FromVerdict is Create fed from a collaborator verdict.
func FromVerdict(state store.ResolutionState, verdict store.ResolutionVerdict, originalQuery string) *store.GuidanceState {
	return Create(state, verdict.Message, verdict.SuggestedCoverages, verdict.DetectedDomain, originalQuery)
}

// IsValidForQuery reports whether g was produced for query.
func IsValidForQuery(g *store.GuidanceState, query string) bool {
	return g != nil && g.OriginalQuery == query
}

// ShouldReplace reports whether an existing guidance belongs to another query.
func ShouldReplace(g *store.GuidanceState, query string) bool {
	return g != nil && g.OriginalQuery != query
}

// FindCandidate looks up a suggested coverage by code.
func FindCandidate(g *store.GuidanceState, code string) (store.SuggestedCoverage, bool) {
	if g == nil {
		return store.SuggestedCoverage{}, false
	}
	i := slices.IndexFunc(g.SuggestedCoverages, func(c store.SuggestedCoverage) bool {
		return c.CoverageCode == code
	})
	if i < 0 {
		return store.SuggestedCoverage{}, false
	}
	return g.SuggestedCoverages[i], true
}
