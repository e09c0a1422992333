package store

import (
	"encoding/json"
	"slices"
	"time"
)

// Session is the per-conversation state owned by exactly one orchestrator.
// Fields are unexported so the anchor, the guidance singleton and the log can
// only change through the mutators below; readers get copies.
type Session struct {
	id     string
	userID string

	// Effective resolution state of the last settled turn ("" before any turn)
	state ResolutionState

	// THE LOCK (last confirmed coverage + intent)
	anchor *QueryAnchor

	// THE WAITING ROOM (ephemeral, at most one)
	guidance *GuidanceState

	// THE LOG (append-only)
	messages []ChatMessage

	lastQuery string
	updatedAt time.Time
}

// NewSession creates an empty session with no anchor, guidance or messages.
func NewSession(id, userID string) *Session {
	return &Session{
		id:        id,
		userID:    userID,
		updatedAt: time.Now(),
	}
}

func (s *Session) ID() string { return s.id }
func (s *Session) UserID() string { return s.userID }
func (s *Session) State() ResolutionState { return s.state }
func (s *Session) LastQuery() string { return s.lastQuery }
func (s *Session) UpdatedAt() time.Time { return s.updatedAt }
func (s *Session) MessageCount() int { return len(s.messages) }
func (s *Session) Messages() []ChatMessage { return slices.Clone(s.messages) }
func (s *Session) Anchor() *QueryAnchor { return s.anchor.Clone() }
func (s *Session) Guidance() *GuidanceState { return s.guidance.Clone() }
func (s *Session) HasGuidance() bool { return s.guidance != nil }

func (s *Session) SetLastQuery(query string) {
	s.lastQuery = query
	s.touch()
}

// SetState records the effective resolution state of the settled turn.
func (s *Session) SetState(st ResolutionState) {
	s.state = st
	s.touch()
}

// ReplaceAnchor swaps the anchor as a whole value. A nil anchor clears it.
func (s *Session) ReplaceAnchor(anchor *QueryAnchor) {
	s.anchor = anchor.Clone()
	s.touch()
}

// ClearGuidance drops the guidance singleton, if any.
func (s *Session) ClearGuidance() {
	s.guidance = nil
	s.touch()
}

// InstallGuidance replaces any existing guidance with g. A nil g clears it.
func (s *Session) InstallGuidance(g *GuidanceState) {
	s.guidance = g.Clone()
	s.touch()
}

// AppendMessage adds a message to the end of the log.
func (s *Session) AppendMessage(msg ChatMessage) {
	s.messages = append(s.messages, msg)
	s.touch()
}

// Snapshot returns a deep copy suitable for read-only views.
func (s *Session) Snapshot() *Session {
	if s == nil {
		return nil
	}
	return &Session{
		id:        s.id,
		userID:    s.userID,
		state:     s.state,
		anchor:    s.anchor.Clone(),
		guidance:  s.guidance.Clone(),
		messages:  slices.Clone(s.messages),
		lastQuery: s.lastQuery,
		updatedAt: s.updatedAt,
	}
}

func (s *Session) touch() {
	s.updatedAt = time.Now()
}

// sessionRecord is the serialized form used by session repositories.
type sessionRecord struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	State     ResolutionState `json:"state,omitempty"`
	Anchor    *QueryAnchor    `json:"anchor,omitempty"`
	Guidance  *GuidanceState  `json:"guidance,omitempty"`
	Messages  []ChatMessage   `json:"messages"`
	LastQuery string          `json:"last_query,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (s *Session) MarshalJSON() ([]byte, error) {
	msgs := s.messages
	if msgs == nil {
		msgs = []ChatMessage{}
	}
	return json.Marshal(sessionRecord{
		ID:        s.id,
		UserID:    s.userID,
		State:     s.state,
		Anchor:    s.anchor,
		Guidance:  s.guidance,
		Messages:  msgs,
		LastQuery: s.lastQuery,
		UpdatedAt: s.updatedAt,
	})
}

func (s *Session) UnmarshalJSON(data []byte) error {
	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	*s = Session{
		id:        rec.ID,
		userID:    rec.UserID,
		state:     rec.State,
		anchor:    rec.Anchor,
		guidance:  rec.Guidance,
		messages:  rec.Messages,
		lastQuery: rec.LastQuery,
		updatedAt: rec.UpdatedAt,
	}
	return nil
}
