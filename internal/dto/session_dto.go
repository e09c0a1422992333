package dto

import (
	"encoding/json"
	"time"

	"coverage-compare-be/pkg/store"
)

type CreateSessionResponse struct {
	Id string `json:"id"`
}

type SubmitQueryRequest struct {
	Query         string `json:"query" validate:"required,max=500"`
	ExplicitReset bool   `json:"explicit_reset"`
}

type SelectCoverageRequest struct {
	CoverageCode string `json:"coverage_code" validate:"required"`
	CoverageName string `json:"coverage_name"`
}

type ViewEventRequest struct {
	EventType   string          `json:"event_type" validate:"required"`
	TargetState string          `json:"target_state" validate:"required"`
	Value       json.RawMessage `json:"value"`
}

type ChatMessageDTO struct {
	Id        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type GuidanceTemplateDTO struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Hint        string `json:"hint"`
}

type GuidanceDTO struct {
	ResolutionState    store.ResolutionState     `json:"resolution_state"`
	Message            string                    `json:"message"`
	SuggestedCoverages []store.SuggestedCoverage `json:"suggested_coverages"`
	DetectedDomain     string                    `json:"detected_domain,omitempty"`
	OriginalQuery      string                    `json:"original_query"`
	Template           *GuidanceTemplateDTO      `json:"template,omitempty"`
}

// SessionViewResponse is the read-only session state handed to the display.
type SessionViewResponse struct {
	Id               string                     `json:"id"`
	ResolutionState  store.ResolutionState      `json:"resolution_state"`
	Anchor           *store.QueryAnchor         `json:"anchor"`
	Guidance         *GuidanceDTO               `json:"guidance"`
	Messages         []ChatMessageDTO           `json:"messages"`
	CanRenderResults bool                       `json:"can_render_results"`
	Notice           string                     `json:"notice,omitempty"`
	ViewState        map[string]json.RawMessage `json:"view_state,omitempty"`
	UpdatedAt        time.Time                  `json:"updated_at"`
}

type TurnResponse struct {
	Outcome        string               `json:"outcome"`
	ResetCondition store.ResetCondition `json:"reset_condition,omitempty"`
	LockViolation  bool                 `json:"lock_violation"`
	Error          string               `json:"error,omitempty"`
	Debug          json.RawMessage      `json:"debug,omitempty"`
	Session        SessionViewResponse  `json:"session"`
}
