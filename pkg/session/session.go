package session

import (
	"fmt"
	"time"

	"github.com/valkyrjaio/valkyrja/pkg/model"
)

// Session represents a user session with metadata and arbitrary values.
type Session struct {
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
	ExpiresAt    time.Time `json:"expires_at"`

	UserID    *string        `json:"user_id,omitempty"` // nil = anonymous session
	Values    map[string]any `json:"values,omitempty"`
	ID        string         `json:"id"`
	Token     string         `json:"token,omitempty"` // cookie value, differs from ID
	IP        string         `json:"ip,omitempty"`
	UserAgent string         `json:"user_agent,omitempty"`

	dirty bool
	isNew bool
}

// New creates a new session with the given ID and token.
func New(id, token string, expiresAt time.Time) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		Token:        token,
		Values:       make(map[string]any),
		CreatedAt:    now,
		LastActiveAt: now,
		ExpiresAt:    expiresAt,
		isNew:        true,
		dirty:        true,
	}
}

// IsAuthenticated returns true if the session has an associated user.
func (s *Session) IsAuthenticated() bool {
	return s.UserID != nil && *s.UserID != ""
}

// SetUser associates the session with userID. An empty id makes it anonymous.
func (s *Session) SetUser(userID string) {
	if userID == "" {
		s.UserID = nil
	} else {
		s.UserID = &userID
	}
	s.dirty = true
}

// SetValue stores a value in the session.
// Marks the session as dirty for automatic saving.
func (s *Session) SetValue(key string, val any) {
	if s.Values == nil {
		s.Values = make(map[string]any)
	}
	s.Values[key] = val
	s.dirty = true
}

// GetValue retrieves a value from the session.
func (s *Session) GetValue(key string) (any, bool) {
	if s.Values == nil {
		return nil, false
	}
	val, ok := s.Values[key]
	return val, ok
}

// DeleteValue removes a value from the session.
// Marks the session as dirty only if the key existed.
func (s *Session) DeleteValue(key string) {
	if s.Values == nil {
		return
	}
	if _, exists := s.Values[key]; exists {
		delete(s.Values, key)
		s.dirty = true
	}
}

// PullValue returns a value and removes it.
func (s *Session) PullValue(key string) (any, bool) {
	val, ok := s.GetValue(key)
	if ok {
		s.DeleteValue(key)
	}
	return val, ok
}

// Clear removes every value but keeps the identity.
func (s *Session) Clear() {
	if len(s.Values) == 0 {
		return
	}
	s.Values = make(map[string]any)
	s.dirty = true
}

// IsDirty returns true if the session has unsaved changes.
func (s *Session) IsDirty() bool {
	return s.dirty
}

// ClearDirty marks the session as clean (saved).
// Called by the session manager after persisting changes.
func (s *Session) ClearDirty() {
	s.dirty = false
}

// MarkDirty marks the session as needing to be saved.
func (s *Session) MarkDirty() {
	s.dirty = true
}

// IsNew returns true if the session was just created.
func (s *Session) IsNew() bool {
	return s.isNew
}

// ClearNew marks the session as no longer new.
// Called after the session is first persisted.
func (s *Session) ClearNew() {
	s.isNew = false
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Value returns the value stored under key as T.
// Values that went through a JSON round trip (numbers become float64) are
// converted with model.Cast.
func Value[T any](s *Session, key string) (T, error) {
	var zero T
	if s == nil {
		return zero, ErrNotFound
	}

	val, ok := s.GetValue(key)
	if !ok {
		return zero, ErrNotFound
	}

	if typed, ok := val.(T); ok {
		return typed, nil
	}
	typed, err := model.Cast[T](val)
	if err != nil {
		return zero, fmt.Errorf("%w: key %q: %v", ErrTypeMismatch, key, err)
	}
	return typed, nil
}

// ValueOr is a typed helper that returns a default value if the key
// doesn't exist or type assertion fails.
func ValueOr[T any](s *Session, key string, defaultVal T) T {
	val, err := Value[T](s, key)
	if err != nil {
		return defaultVal
	}
	return val
}
