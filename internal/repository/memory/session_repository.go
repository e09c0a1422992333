package memory

import (
	"context"
	"time"

	"coverage-compare-be/internal/repository/contract"
	"coverage-compare-be/pkg/store"

	"github.com/patrickmn/go-cache"
)

type SessionRepository struct {
	cache *cache.Cache
}

var _ contract.SessionRepository = (*SessionRepository)(nil)

// NewSessionRepository creates a cache whose entries expire after ttl and
// which purges expired items every cleanup interval.
func NewSessionRepository(ttl, cleanup time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if cleanup <= 0 {
		cleanup = 10 * time.Minute
	}
	return &SessionRepository{
		cache: cache.New(ttl, cleanup),
	}
}

func (r *SessionRepository) Save(_ context.Context, session *store.Session) error {
	r.cache.Set(session.ID(), session.Snapshot(), cache.DefaultExpiration)
	return nil
}

func (r *SessionRepository) Get(_ context.Context, sessionID string) (*store.Session, bool, error) {
	if x, found := r.cache.Get(sessionID); found {
		return x.(*store.Session).Snapshot(), true, nil
	}
	return nil, false, nil
}

func (r *SessionRepository) Delete(_ context.Context, sessionID string) error {
	r.cache.Delete(sessionID)
	return nil
}

// Count is the number of unexpired sessions.
func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}
