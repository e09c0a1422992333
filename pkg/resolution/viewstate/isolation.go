// Package viewstate keeps read-only display interactions away from the
// query state owned by the turn executor.
package viewstate

import (
	"errors"
	"fmt"
	"slices"
)

// Query state keys; only the turn executor may change them.
var QueryStateKeys = []string{"messages", "currentResponse", "currentAnchor", "isLoading"}

// View state keys; display-only.
var ViewStateKeys = []string{"viewingDocument", "activeTab", "scrollPosition", "expandedSections"}

var ReadOnlyViewEvents = []string{
	"evidence_view",
	"policy_view",
	"document_view",
	"document_page_change",
	"document_zoom_change",
	"document_scroll",
	"document_close",
	"tab_change",
	"accordion_toggle",
	"collapsible_toggle",
	"copy_reference",
	"debug_toggle",
}

var QueryMutationEvents = []string{
	"send_message",
	"coverage_button_click",
	"related_coverage_select",
	"insurer_toggle",
}

var (
	ErrBlockedStateChange = errors.New("state change blocked")
	ErrUnknownViewKey     = errors.New("not a view state key")
)

func IsReadOnlyEvent(eventType string) bool {
	return slices.Contains(ReadOnlyViewEvents, eventType)
}

func CanMutateQueryState(eventType string) bool {
	return slices.Contains(QueryMutationEvents, eventType)
}

func IsQueryStateKey(key string) bool {
	return slices.Contains(QueryStateKeys, key)
}

func IsViewStateKey(key string) bool {
	return slices.Contains(ViewStateKeys, key)
}

// ValidateStateChange returns an ErrBlockedStateChange when eventType may not
// change targetState. Read-only events and unknown events never reach query
// state; mutation events may change anything.
func ValidateStateChange(eventType, targetState string) error {
	switch {
	case CanMutateQueryState(eventType):
		return nil
	case IsReadOnlyEvent(eventType):
		if IsQueryStateKey(targetState) {
			return fmt.Errorf("%w: event %q may not modify %q", ErrBlockedStateChange, eventType, targetState)
		}
		return nil
	default:
		if IsQueryStateKey(targetState) {
			return fmt.Errorf("%w: unknown event %q cannot modify query state %q", ErrBlockedStateChange, eventType, targetState)
		}
		return nil
	}
}
