package contract

import (
	"context"

	"coverage-compare-be/pkg/store"
)

// SessionRepository stores conversation sessions for their TTL. Get and Save
// exchange snapshots; a session mutated after Save is not visible until the
// next Save.
type SessionRepository interface {
	Get(ctx context.Context, id string) (*store.Session, bool, error)
	Save(ctx context.Context, session *store.Session) error
	Delete(ctx context.Context, id string) error
}
