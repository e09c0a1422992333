package mapper

import (
	"encoding/json"

	"coverage-compare-be/internal/dto"
	"coverage-compare-be/pkg/compare"
	"coverage-compare-be/pkg/resolution/executor"
	"coverage-compare-be/pkg/resolution/guidance"
	"coverage-compare-be/pkg/resolution/lock"
	"coverage-compare-be/pkg/store"
)

type SessionMapper struct{}

func NewSessionMapper() *SessionMapper {
	return &SessionMapper{}
}

func (m *SessionMapper) GuidanceToDTO(g *store.GuidanceState) *dto.GuidanceDTO {
	if g == nil {
		return nil
	}
	out := &dto.GuidanceDTO{
		ResolutionState:    g.ResolutionState,
		Message:            g.Message,
		SuggestedCoverages: g.SuggestedCoverages,
		DetectedDomain:     g.DetectedDomain,
		OriginalQuery:      g.OriginalQuery,
	}
	if tpl, ok := guidance.TemplateFor(g.ResolutionState); ok {
		out.Template = &dto.GuidanceTemplateDTO{
			Title:       tpl.Title,
			Description: tpl.Description,
			Hint:        tpl.Hint,
		}
	}
	return out
}

func (m *SessionMapper) MessagesToDTO(msgs []store.ChatMessage) []dto.ChatMessageDTO {
	out := make([]dto.ChatMessageDTO, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, dto.ChatMessageDTO{
			Id:        msg.ID,
			Role:      msg.Role,
			Content:   msg.Content,
			Error:     msg.Error,
			CreatedAt: msg.CreatedAt,
		})
	}
	return out
}

// SessionToView builds the display view. A session that never settled a
// turn has no state yet and renders as RESOLVED with nothing to show.
func (m *SessionMapper) SessionToView(sess *store.Session, viewState map[string]json.RawMessage) dto.SessionViewResponse {
	state := sess.State()
	if state == "" {
		state = store.StateResolved
	}
	return dto.SessionViewResponse{
		Id:               sess.ID(),
		ResolutionState:  state,
		Anchor:           sess.Anchor(),
		Guidance:         m.GuidanceToDTO(sess.Guidance()),
		Messages:         m.MessagesToDTO(sess.Messages()),
		CanRenderResults: lock.CanRenderResults(state),
		Notice:           lock.StateNotice(state),
		ViewState:        viewState,
		UpdatedAt:        sess.UpdatedAt(),
	}
}

func (m *SessionMapper) TurnToResponse(res *executor.TurnResult, view dto.SessionViewResponse) *dto.TurnResponse {
	out := &dto.TurnResponse{
		Outcome:        res.Outcome.Kind(),
		ResetCondition: res.ResetCondition,
		LockViolation:  res.LockViolation,
		Debug:          res.Debug,
		Session:        view,
	}
	if failed, ok := res.Outcome.(executor.Failed); ok {
		out.Error = compare.UserMessage(failed.Err)
	}
	return out
}
