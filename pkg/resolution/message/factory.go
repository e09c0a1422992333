package message

import (
	"strings"
	"time"

	"coverage-compare-be/pkg/store"

	"github.com/google/uuid"
)

// FallbackSummary is used when a resolved turn carries no summary text.
const FallbackSummary = "검색 완료: 비교 결과를 확인해주세요."

// CanAppendAssistantMessage is the conversation log gate: only a turn whose
// effective state is RESOLVED may append an assistant entry.
func CanAppendAssistantMessage(effective store.ResolutionState) bool {
	return effective == store.StateResolved
}

// ComposeSummary builds the assistant text for a resolved turn.
func ComposeSummary(summary, recovery string) string {
	body := strings.TrimSpace(summary)
	if body == "" {
		body = FallbackSummary
	}
	if recovery = strings.TrimSpace(recovery); recovery != "" {
		return "ℹ️ " + recovery + "\n\n" + body
	}
	return body
}

// Factory handles chat message creation
type Factory struct {
	now func() time.Time
}

// NewFactory creates a new message factory
func NewFactory() *Factory {
	return &Factory{now: time.Now}
}

// CreateUserMessage creates a chat message from user input
func (f *Factory) CreateUserMessage(query string) store.ChatMessage {
	return store.ChatMessage{
		ID:        uuid.NewString(),
		Role:      store.RoleUser,
		Content:   query,
		CreatedAt: f.now(),
	}
}

// CreateAssistantMessage creates the summary entry of a resolved turn
func (f *Factory) CreateAssistantMessage(content string) store.ChatMessage {
	return store.ChatMessage{
		ID:        uuid.NewString(),
		Role:      store.RoleAssistant,
		Content:   content,
		CreatedAt: f.now(),
	}
}

// CreateErrorMessage creates an error-flagged assistant entry for a failed turn
func (f *Factory) CreateErrorMessage(errText string) store.ChatMessage {
	return store.ChatMessage{
		ID:        uuid.NewString(),
		Role:      store.RoleAssistant,
		Content:   errText,
		CreatedAt: f.now(),
		Error:     errText,
	}
}

// AppendAssistant appends msg to the session log when the gate permits and
// reports whether it did.
func AppendAssistant(sess *store.Session, effective store.ResolutionState, msg store.ChatMessage) bool {
	if !CanAppendAssistantMessage(effective) {
		return false
	}
	sess.AppendMessage(msg)
	return true
}
