// Package compare is the client side of the remote coverage resolution
// service.
package compare

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"coverage-compare-be/pkg/store"
)

// UI event types forwarded to the resolution service.
const (
	EventSendMessage         = "send_message"
	EventCoverageButtonClick = "coverage_button_click"
)

var (
	ErrTurnFailed = errors.New("compare: turn failed")

	ErrTimeout   = fmt.Errorf("%w: timeout", ErrTurnFailed)
	ErrTransport = fmt.Errorf("%w: transport", ErrTurnFailed)
	ErrBadStatus = fmt.Errorf("%w: bad status", ErrTurnFailed)
)

// APIError is a failed collaborator call. Message is safe to show to users.
type APIError struct {
	Status  int
	Message string
	kind    error
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("compare: status %d: %s", e.Status, e.Message)
	}
	return "compare: " + e.Message
}

func (e *APIError) Unwrap() error { return e.kind }

// UserMessage returns the user-facing text for err.
func UserMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return genericServerError
}

// Request is one turn's outbound resolution call.
type Request struct {
	Query              string             `json:"query"`
	Insurers           []string           `json:"insurers,omitempty"`
	PriorAnchor        *store.QueryAnchor `json:"anchor,omitempty"`
	UIEventType        string             `json:"ui_event_type,omitempty"`
	LockedCoverageCode string             `json:"locked_coverage_code,omitempty"`
}

// Response is the typed part of the collaborator's answer. Debug is passed
// through untouched and never read by the core.
type Response struct {
	ResolutionState store.ResolutionState
	// StateDefaulted is set when the collaborator sent no status at all.
	StateDefaulted  bool
	Anchor          *store.QueryAnchor
	Verdict         store.ResolutionVerdict
	SummaryText     string
	RecoveryMessage string
	Debug           json.RawMessage
}

// Resolver resolves a query into a coverage verdict.
type Resolver interface {
	Resolve(ctx context.Context, req Request) (*Response, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, req Request) (*Response, error)

func (f ResolverFunc) Resolve(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}
