package session

import (
	"context"
	"time"
)

// Store defines the interface for session persistence.
// Implementations handle storage-specific operations like
// database queries or cache lookups.
type Store interface {
	// Create persists a new session. Stores that derive the token from the
	// session contents (CookieStore) overwrite s.Token.
	Create(ctx context.Context, s *Session) error

	// Get retrieves a session by its token.
	// Returns ErrNotFound if the session doesn't exist.
	// Returns ErrExpired if the session has expired.
	Get(ctx context.Context, token string) (*Session, error)

	// Update saves changes to an existing session. s.Token may change.
	Update(ctx context.Context, s *Session) error

	// Delete removes a session by its ID.
	Delete(ctx context.Context, id string) error

	// DeleteByUserID removes all sessions for a user.
	// Useful for "logout from all devices" functionality.
	DeleteByUserID(ctx context.Context, userID string) error

	// Touch updates the LastActiveAt timestamp without loading the full session.
	Touch(ctx context.Context, id string, lastActiveAt time.Time) error
}

// NullStore accepts every write and never finds a session.
type NullStore struct{}

func (NullStore) Create(context.Context, *Session) error { return nil }

func (NullStore) Get(context.Context, string) (*Session, error) { return nil, ErrNotFound }

func (NullStore) Update(context.Context, *Session) error { return nil }

func (NullStore) Delete(context.Context, string) error { return nil }

func (NullStore) DeleteByUserID(context.Context, string) error { return nil }

func (NullStore) Touch(context.Context, string, time.Time) error { return nil }

var _ Store = NullStore{}
