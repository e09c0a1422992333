// Package reset decides whether a new query deliberately leaves the current
// anchor behind.
package reset

import (
	"strings"

	"coverage-compare-be/internal/pkg/logger"
	"coverage-compare-be/pkg/store"
)

// DefaultTriggerTerms is the closed vocabulary marking a query as being
// about a coverage: diagnosis benefit, surgery benefit, coverage, benefit,
// rider, claim amount, limit.
var DefaultTriggerTerms = []string{"진단비", "수술비", "담보", "보장", "특약", "보험금", "한도"}

// Classifier inspects a query against the current anchor. It returns
// ResetNone when the query stays on the anchored topic.
type Classifier interface {
	Classify(query string, anchor *store.QueryAnchor) store.ResetCondition
}

// KeywordClassifier flags a query as a new coverage query when it uses a
// trigger term but does not mention the anchored coverage by name or code.
// Paraphrases of the anchored coverage are misread as new coverages.
type KeywordClassifier struct {
	triggers []string
}

var _ Classifier = (*KeywordClassifier)(nil)

// NewKeywordClassifier builds a classifier over triggers, falling back to
// DefaultTriggerTerms when none are given.
func NewKeywordClassifier(triggers ...string) *KeywordClassifier {
	if len(triggers) == 0 {
		triggers = DefaultTriggerTerms
	}
	lowered := make([]string, 0, len(triggers))
	for _, t := range triggers {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			lowered = append(lowered, t)
		}
	}
	return &KeywordClassifier{triggers: lowered}
}

// HasTriggerTerm reports whether query uses any coverage vocabulary.
func (c *KeywordClassifier) HasTriggerTerm(query string) bool {
	q := strings.ToLower(query)
	for _, t := range c.triggers {
		if strings.Contains(q, t) {
			return true
		}
	}
	return false
}

// IsNewCoverageQuery applies the heuristic for a non-nil anchor.
func (c *KeywordClassifier) IsNewCoverageQuery(query string, anchor *store.QueryAnchor) bool {
	if anchor == nil {
		return false
	}
	if !c.HasTriggerTerm(query) {
		return false
	}
	return !mentionsAnchor(query, anchor)
}

func (c *KeywordClassifier) Classify(query string, anchor *store.QueryAnchor) store.ResetCondition {
	if c.IsNewCoverageQuery(query, anchor) {
		return store.ResetNewCoverageQuery
	}
	return store.ResetNone
}

func mentionsAnchor(query string, anchor *store.QueryAnchor) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if name := strings.ToLower(anchor.CoverageName); name != "" && strings.Contains(q, name) {
		return true
	}
	code := strings.ToLower(anchor.CoverageCode)
	return code != "" && strings.Contains(q, code)
}

// Detector combines the explicit reset signal with a pluggable classifier.
type Detector struct {
	classifier Classifier
	logger     logger.ILogger
}

// NewDetector creates a detector. A nil classifier uses the keyword heuristic.
func NewDetector(classifier Classifier, log logger.ILogger) *Detector {
	if classifier == nil {
		classifier = NewKeywordClassifier()
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Detector{classifier: classifier, logger: log}
}

// Detect returns the reset condition for query against anchor. An explicit
// reset wins unconditionally; without an anchor there is nothing to reset.
func (d *Detector) Detect(query string, anchor *store.QueryAnchor, explicitReset bool) store.ResetCondition {
	if explicitReset {
		d.logger.Info("RESET", "Explicit anchor reset", map[string]interface{}{"query": query})
		return store.ResetAnchorEvent
	}
	if anchor == nil {
		return store.ResetNone
	}

	cond := d.classifier.Classify(query, anchor)
	if cond.Present() {
		d.logger.Info("RESET", "New coverage query detected", map[string]interface{}{
			"query":         query,
			"coverage_code": anchor.CoverageCode,
			"condition":     cond,
		})
	}
	return cond
}
