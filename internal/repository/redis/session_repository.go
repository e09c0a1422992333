package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"coverage-compare-be/internal/repository/contract"
	"coverage-compare-be/pkg/store"

	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "coverage:session:"

// SessionRepository keeps each session as a JSON snapshot with a TTL, so
// several API instances can serve the same conversation.
type SessionRepository struct {
	rdb *goredis.Client
	ttl time.Duration
}

var _ contract.SessionRepository = (*SessionRepository)(nil)

func NewSessionRepository(rdb *goredis.Client, ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SessionRepository{rdb: rdb, ttl: ttl}
}

func sessionKey(id string) string {
	return keyPrefix + id
}

func (r *SessionRepository) Save(ctx context.Context, session *store.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", session.ID(), err)
	}
	if err := r.rdb.Set(ctx, sessionKey(session.ID()), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("save session %s: %w", session.ID(), err)
	}
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, id string) (*store.Session, bool, error) {
	data, err := r.rdb.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load session %s: %w", id, err)
	}

	var session store.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, false, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &session, true, nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if err := r.rdb.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}
