package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"coverage-compare-be/internal/pkg/logger"
	"coverage-compare-be/internal/repository/contract"
	"coverage-compare-be/pkg/store"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrAccessDenied    = errors.New("session belongs to another user")
	ErrTurnInProgress  = errors.New("a turn is already in progress for this session")
)

// Manager handles session ownership and turn serialization
type Manager struct {
	repo   contract.SessionRepository
	logger logger.ILogger

	mu      sync.Mutex
	pending map[string]struct{}
}

// NewManager creates a new session manager
func NewManager(repo contract.SessionRepository, log logger.ILogger) *Manager {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Manager{
		repo:    repo,
		logger:  log,
		pending: make(map[string]struct{}),
	}
}

// Create starts an empty session owned by userID
func (m *Manager) Create(ctx context.Context, userID string) (*store.Session, error) {
	sess := store.NewSession(uuid.NewString(), userID)
	if err := m.repo.Save(ctx, sess); err != nil {
		return nil, err
	}
	m.logger.Info("SESSION", "Session created", map[string]interface{}{
		"session_id": sess.ID(),
		"user_id":    userID,
	})
	return sess, nil
}

// Load returns the session after checking that userID owns it
func (m *Manager) Load(ctx context.Context, id, userID string) (*store.Session, error) {
	sess, found, err := m.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !found {
		return nil, ErrSessionNotFound
	}
	if sess.UserID() != userID {
		m.logger.Warn("SESSION", "Session access denied", map[string]interface{}{
			"session_id": id,
			"user_id":    userID,
		})
		return nil, ErrAccessDenied
	}
	return sess, nil
}

// LoadOrCreate retrieves the session or starts a fresh one under id
func (m *Manager) LoadOrCreate(ctx context.Context, id, userID string) (*store.Session, error) {
	sess, err := m.Load(ctx, id, userID)
	if errors.Is(err, ErrSessionNotFound) {
		return store.NewSession(id, userID), nil
	}
	return sess, err
}

// Save persists session state
func (m *Manager) Save(ctx context.Context, sess *store.Session) error {
	if err := m.repo.Save(ctx, sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// End drops the session with its anchor, guidance and log.
func (m *Manager) End(ctx context.Context, id, userID string) error {
	if _, err := m.Load(ctx, id, userID); err != nil {
		return err
	}
	if err := m.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	m.logger.Info("SESSION", "Session ended", map[string]interface{}{
		"session_id": id,
		"reason":     store.ResetSessionEnd,
	})
	return nil
}

// BeginTurn marks a turn as pending for id. The returned release must be
// called once the turn has settled.
func (m *Manager) BeginTurn(id string) (release func(), err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, busy := m.pending[id]; busy {
		m.logger.Warn("SESSION", "Overlapping turn rejected", map[string]interface{}{"session_id": id})
		return nil, ErrTurnInProgress
	}
	m.pending[id] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.pending, id)
			m.mu.Unlock()
		})
	}, nil
}
