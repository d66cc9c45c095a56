package session

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// LogStore logs every call at debug level and delegates to a wrapped store.
type LogStore struct {
	next   Store
	logger *slog.Logger
}

// NewLogStore wraps next. A nil next logs calls against a NullStore.
func NewLogStore(next Store, logger *slog.Logger) *LogStore {
	if next == nil {
		next = NullStore{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LogStore{next: next, logger: logger.With(slog.String("component", "session"))}
}

func (l *LogStore) Create(ctx context.Context, s *Session) error {
	err := l.next.Create(ctx, s)
	l.logger.DebugContext(ctx, "session create", slog.String("session_id", s.ID), userAttr(s), errAttr(err))
	return err
}

func (l *LogStore) Get(ctx context.Context, token string) (*Session, error) {
	s, err := l.next.Get(ctx, token)
	attrs := []any{slog.Bool("found", err == nil), errAttr(err)}
	if s != nil {
		attrs = append(attrs, slog.String("session_id", s.ID), userAttr(s))
	}
	l.logger.DebugContext(ctx, "session get", attrs...)
	return s, err
}

func (l *LogStore) Update(ctx context.Context, s *Session) error {
	err := l.next.Update(ctx, s)
	l.logger.DebugContext(ctx, "session update", slog.String("session_id", s.ID), userAttr(s), errAttr(err))
	return err
}

func (l *LogStore) Delete(ctx context.Context, id string) error {
	err := l.next.Delete(ctx, id)
	l.logger.DebugContext(ctx, "session delete", slog.String("session_id", id), errAttr(err))
	return err
}

func (l *LogStore) DeleteByUserID(ctx context.Context, userID string) error {
	err := l.next.DeleteByUserID(ctx, userID)
	l.logger.DebugContext(ctx, "session delete by user", slog.String("user_id", userID), errAttr(err))
	return err
}

func (l *LogStore) Touch(ctx context.Context, id string, lastActiveAt time.Time) error {
	err := l.next.Touch(ctx, id, lastActiveAt)
	l.logger.DebugContext(ctx, "session touch", slog.String("session_id", id), errAttr(err))
	return err
}

// Unwrap returns the decorated store.
func (l *LogStore) Unwrap() Store { return l.next }

func userAttr(s *Session) slog.Attr {
	if !s.IsAuthenticated() {
		return slog.Attr{}
	}
	return slog.String("user_id", *s.UserID)
}

func errAttr(err error) slog.Attr {
	if err == nil || errors.Is(err, ErrNotFound) {
		return slog.Attr{}
	}
	return slog.String("error", err.Error())
}

var _ Store = (*LogStore)(nil)
