package session

import "context"

// Store is the durable per-user session store contract.
//
// Save is last-writer-wins on the whole object. SetStep and SetData are
// read-modify-write conveniences; the orchestrator holds the per-key lock
// around them, so no store-level transaction is needed.
type Store interface {
	// Get retrieves the session for key, or ErrNotFound.
	Get(ctx context.Context, key string) (*Session, error)

	// Save persists the whole session object.
	Save(ctx context.Context, sess *Session) error

	// SetStep updates the auth step and applies a data mutation in one
	// read-modify-write. A nil mutate only sets the step. The session is
	// created if absent.
	SetStep(ctx context.Context, key string, step Step, mutate func(*Data)) error

	// SetData applies a data mutation in one read-modify-write. The
	// session is created if absent.
	SetData(ctx context.Context, key string, mutate func(*Data)) error
}

// GetOrCreate loads the session for key, creating an empty one if absent.
func GetOrCreate(ctx context.Context, store Store, key string) (*Session, error) {
	sess, err := store.Get(ctx, key)
	if err == nil {
		return sess, nil
	}
	if err != ErrNotFound {
		return nil, err
	}
	sess = New(key)
	if err := store.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}
