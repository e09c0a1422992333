package store

import (
	"slices"
	"time"
)

// SuggestedCoverage is one candidate returned by the resolution service.
type SuggestedCoverage struct {
	CoverageCode string  `json:"coverage_code"`
	CoverageName string  `json:"coverage_name,omitempty"`
	Similarity   float64 `json:"similarity"`
	InsurerCode  string  `json:"insurer_code,omitempty"`
}

// Label is the display text for the candidate: its name, or the code when unnamed.
func (c SuggestedCoverage) Label() string {
	if c.CoverageName != "" {
		return c.CoverageName
	}
	return c.CoverageCode
}

// ResolutionVerdict is the collaborator's account of how a query resolved.
type ResolutionVerdict struct {
	Status             ResolutionState     `json:"status"`
	Message            string              `json:"message,omitempty"`
	SuggestedCoverages []SuggestedCoverage `json:"suggested_coverages"`
	DetectedDomain     string              `json:"detected_domain,omitempty"`
}

// GuidanceState is the ephemeral candidate-selection / rephrase notice.
// It lives beside the conversation log, never inside it.
type GuidanceState struct {
	ResolutionState    ResolutionState     `json:"resolution_state"`
	Message            string              `json:"message"`
	SuggestedCoverages []SuggestedCoverage `json:"suggested_coverages"`
	DetectedDomain     string              `json:"detected_domain,omitempty"`
	OriginalQuery      string              `json:"original_query"`
}

// Clone returns a deep copy of g, or nil when g is nil.
func (g *GuidanceState) Clone() *GuidanceState {
	if g == nil {
		return nil
	}
	cp := *g
	cp.SuggestedCoverages = slices.Clone(g.SuggestedCoverages)
	return &cp
}

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one persisted entry of the conversation log.
type ChatMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Error     string    `json:"error,omitempty"`
}

// IsError reports whether the message carries an error indicator.
func (m ChatMessage) IsError() bool { return m.Error != "" }
