package reset

import (
	"testing"

	"coverage-compare-be/pkg/store"
)

func cancerAnchor() *store.QueryAnchor {
	return &store.QueryAnchor{
		CoverageCode:  "A4200_1",
		CoverageName:  "암진단비",
		Domain:        "CANCER",
		OriginalQuery: "삼성 암진단비",
		Intent:        store.IntentCompare,
	}
}

func TestDetector_Detect(t *testing.T) {
	d := NewDetector(nil, nil)

	tests := []struct {
		name     string
		query    string
		anchor   *store.QueryAnchor
		explicit bool
		want     store.ResetCondition
	}{
		{"explicit reset without anchor", "아무거나", nil, true, store.ResetAnchorEvent},
		{"explicit reset beats same coverage", "암진단비", cancerAnchor(), true, store.ResetAnchorEvent},
		{"no anchor nothing to reset", "뇌졸중진단비", nil, false, store.ResetNone},
		{"no trigger term keeps lock", "보험료 얼마?", cancerAnchor(), false, store.ResetNone},
		{"insurer-only follow-up keeps lock", "메리츠는?", cancerAnchor(), false, store.ResetNone},
		{"different coverage resets", "뇌졸중진단비", cancerAnchor(), false, store.ResetNewCoverageQuery},
		{"same coverage name keeps lock", "메리츠 암진단비 알려줘", cancerAnchor(), false, store.ResetNone},
		{"same coverage code keeps lock", "a4200_1 보장 내용", cancerAnchor(), false, store.ResetNone},
		{"surgery benefit resets", "수술비 비교", cancerAnchor(), false, store.ResetNewCoverageQuery},
		{"rider term resets", "특약 뭐 있어?", cancerAnchor(), false, store.ResetNewCoverageQuery},
		{"limit term resets", "한도가 얼마야", cancerAnchor(), false, store.ResetNewCoverageQuery},
		// Paraphrase of the anchored coverage is read as a new coverage.
		{"paraphrase misread as new", "암 진단 보장", cancerAnchor(), false, store.ResetNewCoverageQuery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.Detect(tt.query, tt.anchor, tt.explicit); got != tt.want {
				t.Errorf("Detect(%q) = %q, want %q", tt.query, got, tt.want)
			}
		})
	}
}

func TestKeywordClassifier_AnchorWithoutName(t *testing.T) {
	c := NewKeywordClassifier()
	anchor := &store.QueryAnchor{CoverageCode: "B1100"}

	if !c.IsNewCoverageQuery("뇌졸중진단비", anchor) {
		t.Errorf("expected new coverage query when anchor has no name")
	}
	if c.IsNewCoverageQuery("B1100 진단비", anchor) {
		t.Errorf("code mention should keep the lock")
	}
}

func TestKeywordClassifier_CustomVocabulary(t *testing.T) {
	c := NewKeywordClassifier("Rider", " ")

	if !c.HasTriggerTerm("which RIDER applies") {
		t.Errorf("trigger match should be case-insensitive")
	}
	if c.HasTriggerTerm("진단비") {
		t.Errorf("custom vocabulary should replace the default")
	}
}

type fixedClassifier store.ResetCondition

func (f fixedClassifier) Classify(string, *store.QueryAnchor) store.ResetCondition {
	return store.ResetCondition(f)
}

func TestDetector_PluggableClassifier(t *testing.T) {
	d := NewDetector(fixedClassifier(store.ResetNewCoverageQuery), nil)

	if got := d.Detect("보험료 얼마?", cancerAnchor(), false); got != store.ResetNewCoverageQuery {
		t.Errorf("Detect = %q, want classifier verdict", got)
	}
	if got := d.Detect("보험료 얼마?", nil, false); got != store.ResetNone {
		t.Errorf("classifier must not run without an anchor, got %q", got)
	}
}
