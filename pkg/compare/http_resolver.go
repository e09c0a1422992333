package compare

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"coverage-compare-be/internal/pkg/logger"
	"coverage-compare-be/pkg/resolution/lock"
	"coverage-compare-be/pkg/store"

	"github.com/go-resty/resty/v2"
)

// DefaultTimeout is the ceiling on one resolution call.
const DefaultTimeout = 20 * time.Second

type wireVerdict struct {
	Status             string                    `json:"status"`
	Message            string                    `json:"message"`
	SuggestedCoverages []store.SuggestedCoverage `json:"suggested_coverages"`
	DetectedDomain     string                    `json:"detected_domain"`
}

type wireResponse struct {
	ResolutionState    string             `json:"resolution_state"`
	Anchor             *store.QueryAnchor `json:"anchor"`
	CoverageResolution *wireVerdict       `json:"coverage_resolution"`
	ResolutionVerdict  *wireVerdict       `json:"resolution_verdict"`
	SummaryText        string             `json:"summary_text"`
	UserSummary        string             `json:"user_summary"`
	RecoveryMessage    string             `json:"recovery_message"`
	Debug              json.RawMessage    `json:"debug"`
}

// HTTPResolver calls POST {base}/compare.
type HTTPResolver struct {
	client  *resty.Client
	timeout time.Duration
	logger  logger.ILogger
}

var _ Resolver = (*HTTPResolver)(nil)

// NewHTTPResolver creates a resolver against baseURL. A non-positive
// timeout uses DefaultTimeout.
func NewHTTPResolver(baseURL string, timeout time.Duration, log logger.ILogger) *HTTPResolver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &HTTPResolver{client: client, timeout: timeout, logger: log}
}

// Resolve performs a single call. Every failure is an *APIError wrapping
// one of ErrTimeout, ErrTransport or ErrBadStatus.
func (r *HTTPResolver) Resolve(ctx context.Context, req Request) (*Response, error) {
	var wire wireResponse
	started := time.Now()

	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&wire).
		Post("/compare")
	if err != nil {
		apiErr := r.transformRequestError(err)
		r.logger.Error("COMPARE", "Resolution call failed", map[string]interface{}{
			"query":   req.Query,
			"error":   err.Error(),
			"elapsed": time.Since(started).String(),
		})
		return nil, apiErr
	}

	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		r.logger.Error("COMPARE", "Resolution service returned error status", map[string]interface{}{
			"query":  req.Query,
			"status": resp.StatusCode(),
		})
		return nil, &APIError{
			Status:  resp.StatusCode(),
			Message: sanitizeMessage(fmt.Sprintf("API error: %d - %s", resp.StatusCode(), resp.String())),
			kind:    ErrBadStatus,
		}
	}

	out := r.toResponse(&wire)
	r.logger.Debug("COMPARE", "Resolution call completed", map[string]interface{}{
		"query":            req.Query,
		"resolution_state": out.ResolutionState,
		"candidates":       len(out.Verdict.SuggestedCoverages),
		"elapsed":          time.Since(started).String(),
	})
	return out, nil
}

func (r *HTTPResolver) transformRequestError(err error) *APIError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &APIError{Message: timeoutMessage(r.timeout), kind: ErrTimeout}
	}
	return &APIError{Message: sanitizeMessage(err.Error()), kind: ErrTransport}
}

// toResponse folds the wire shape: the top-level resolution_state wins over
// the verdict's status, and a response carrying neither is RESOLVED.
func (r *HTTPResolver) toResponse(wire *wireResponse) *Response {
	v := wire.CoverageResolution
	if v == nil {
		v = wire.ResolutionVerdict
	}
	if v == nil {
		v = &wireVerdict{}
	}

	raw := wire.ResolutionState
	if strings.TrimSpace(raw) == "" {
		raw = v.Status
	}
	state, defaulted := lock.ParseState(raw)
	if defaulted {
		r.logger.Warn("COMPARE", "Response carried no resolution state, treating as RESOLVED", nil)
	}

	summary := wire.SummaryText
	if summary == "" {
		summary = wire.UserSummary
	}

	verdictState := state
	if strings.TrimSpace(v.Status) != "" {
		verdictState, _ = lock.ParseState(v.Status)
	}

	anchor := wire.Anchor
	if anchor != nil && anchor.CoverageCode == "" {
		anchor = nil
	}

	return &Response{
		ResolutionState: state,
		StateDefaulted:  defaulted,
		Anchor:          anchor,
		Verdict: store.ResolutionVerdict{
			Status:             verdictState,
			Message:            v.Message,
			SuggestedCoverages: v.SuggestedCoverages,
			DetectedDomain:     v.DetectedDomain,
		},
		SummaryText:     summary,
		RecoveryMessage: wire.RecoveryMessage,
		Debug:           wire.Debug,
	}
}
