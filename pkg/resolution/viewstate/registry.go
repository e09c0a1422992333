package viewstate

import (
	"encoding/json"
	"fmt"
	"maps"
	"sync"
	"time"

	"coverage-compare-be/internal/pkg/logger"

	"github.com/patrickmn/go-cache"
)

// State is the display-side state of one session.
type State map[string]json.RawMessage

// Registry holds view state per session, separate from sessions themselves.
type Registry struct {
	cache  *cache.Cache
	mu     sync.Mutex
	logger logger.ILogger
}

func NewRegistry(ttl, cleanup time.Duration, log logger.ILogger) *Registry {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Registry{
		cache:  cache.New(ttl, cleanup),
		logger: log,
	}
}

// Apply records value under key for sessionID. Only view state keys are
// accepted here; the query state changes only through a turn.
func (r *Registry) Apply(sessionID, eventType, key string, value json.RawMessage) error {
	if err := ValidateStateChange(eventType, key); err != nil {
		r.logger.Warn("VIEW", "Blocked state change", map[string]interface{}{
			"session_id": sessionID,
			"event_type": eventType,
			"target":     key,
		})
		return err
	}
	if !IsViewStateKey(key) {
		return fmt.Errorf("%w: %q", ErrUnknownViewKey, key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	next := State{}
	if x, ok := r.cache.Get(sessionID); ok {
		next = maps.Clone(x.(State))
	}
	next[key] = value
	r.cache.Set(sessionID, next, cache.DefaultExpiration)

	r.logger.Debug("VIEW", "View state updated", map[string]interface{}{
		"session_id": sessionID,
		"event_type": eventType,
		"target":     key,
	})
	return nil
}

// Get returns a copy of the view state of sessionID.
func (r *Registry) Get(sessionID string) State {
	if x, ok := r.cache.Get(sessionID); ok {
		return maps.Clone(x.(State))
	}
	return State{}
}

func (r *Registry) Drop(sessionID string) {
	r.cache.Delete(sessionID)
}
