package session_test

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/valkyrjaio/valkyrja/pkg/cache"
	"github.com/valkyrjaio/valkyrja/pkg/cookie"
	"github.com/valkyrjaio/valkyrja/pkg/id"
	"github.com/valkyrjaio/valkyrja/pkg/orm"
	"github.com/valkyrjaio/valkyrja/pkg/session"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newSession(t *testing.T, userID string) *session.Session {
	t.Helper()

	token, err := id.Token(32)
	require.NoError(t, err)
	s := session.New(id.New(), token, time.Now().Add(time.Hour))
	if userID != "" {
		s.SetUser(userID)
	}
	s.IP = "10.0.0.1"
	s.UserAgent = "test"
	return s
}

func openSQLStore(t *testing.T) *session.SQLStore {
	t.Helper()

	ctx := context.Background()
	db, err := orm.Open(ctx, orm.Config{
		Driver: "sqlite",
		DSN:    "file:" + filepath.Join(t.TempDir(), "sessions.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := session.NewSQLStore(db, "")
	require.NoError(t, store.CreateTable(ctx))
	require.NoError(t, store.CreateTable(ctx), "CreateTable is idempotent")
	return store
}

// serverStores are the stores that keep state server side.
func serverStores(t *testing.T) map[string]session.Store {
	t.Helper()

	mem := session.NewMemoryStore()
	t.Cleanup(func() { _ = mem.Close() })

	backing := cache.NewMemory[[]byte](cache.WithPrefix("app:"))
	t.Cleanup(func() { _ = backing.Close() })

	logged := session.NewMemoryStore()
	t.Cleanup(func() { _ = logged.Close() })

	return map[string]session.Store{
		"memory": mem,
		"cache":  session.NewCacheStore(backing),
		"sql":    openSQLStore(t),
		"log":    session.NewLogStore(logged, slog.New(slog.DiscardHandler)),
	}
}

func TestServerStores(t *testing.T) {
	t.Parallel()

	for name, store := range serverStores(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()

			t.Run("create and get", func(t *testing.T) {
				s := newSession(t, "")
				s.SetValue("theme", "dark")
				require.NoError(t, store.Create(ctx, s))

				got, err := store.Get(ctx, s.Token)
				require.NoError(t, err)
				require.Equal(t, s.ID, got.ID)
				require.Equal(t, s.Token, got.Token)
				require.Equal(t, "dark", got.Values["theme"])
				require.Equal(t, "10.0.0.1", got.IP)
				require.False(t, got.IsAuthenticated())
				require.WithinDuration(t, s.ExpiresAt, got.ExpiresAt, time.Second)
			})

			t.Run("unknown token", func(t *testing.T) {
				_, err := store.Get(ctx, "nope")
				require.ErrorIs(t, err, session.ErrNotFound)
				_, err = store.Get(ctx, "")
				require.ErrorIs(t, err, session.ErrNotFound)
			})

			t.Run("update rotates token", func(t *testing.T) {
				s := newSession(t, "")
				require.NoError(t, store.Create(ctx, s))

				old := s.Token
				s.Token = old + "-rotated"
				s.SetUser("u-1")
				s.SetValue("count", 3)
				require.NoError(t, store.Update(ctx, s))

				_, err := store.Get(ctx, old)
				require.ErrorIs(t, err, session.ErrNotFound)

				got, err := store.Get(ctx, s.Token)
				require.NoError(t, err)
				require.True(t, got.IsAuthenticated())
				require.Equal(t, 3, session.ValueOr(got, "count", 0))
			})

			t.Run("update missing", func(t *testing.T) {
				err := store.Update(ctx, newSession(t, ""))
				require.ErrorIs(t, err, session.ErrNotFound)
			})

			t.Run("touch", func(t *testing.T) {
				s := newSession(t, "")
				require.NoError(t, store.Create(ctx, s))

				later := time.Now().Add(10 * time.Minute).UTC()
				require.NoError(t, store.Touch(ctx, s.ID, later))

				got, err := store.Get(ctx, s.Token)
				require.NoError(t, err)
				require.WithinDuration(t, later, got.LastActiveAt, time.Second)
			})

			t.Run("delete", func(t *testing.T) {
				s := newSession(t, "")
				require.NoError(t, store.Create(ctx, s))
				require.NoError(t, store.Delete(ctx, s.ID))
				require.NoError(t, store.Delete(ctx, s.ID), "deleting twice is not an error")

				_, err := store.Get(ctx, s.Token)
				require.ErrorIs(t, err, session.ErrNotFound)
			})

			t.Run("delete by user", func(t *testing.T) {
				a := newSession(t, "u-42")
				b := newSession(t, "u-42")
				other := newSession(t, "u-43")
				for _, s := range []*session.Session{a, b, other} {
					require.NoError(t, store.Create(ctx, s))
				}

				require.NoError(t, store.DeleteByUserID(ctx, "u-42"))

				for _, s := range []*session.Session{a, b} {
					_, err := store.Get(ctx, s.Token)
					require.ErrorIs(t, err, session.ErrNotFound)
				}
				_, err := store.Get(ctx, other.Token)
				require.NoError(t, err)
			})
		})
	}
}

func TestSQLStore_Expired(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openSQLStore(t)

	s := newSession(t, "")
	s.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, store.Create(ctx, s))

	_, err := store.Get(ctx, s.Token)
	require.ErrorIs(t, err, session.ErrExpired)

	_, err = store.Get(ctx, s.Token)
	require.ErrorIs(t, err, session.ErrNotFound, "expired sessions are deleted on read")
}

func TestSQLStore_Prune(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := openSQLStore(t)

	expired := newSession(t, "")
	expired.ExpiresAt = time.Now().Add(-time.Minute)
	live := newSession(t, "")
	require.NoError(t, store.Create(ctx, expired))
	require.NoError(t, store.Create(ctx, live))

	n, err := store.Prune(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, err = store.Get(ctx, live.Token)
	require.NoError(t, err)
}

func TestCacheStore_RefusesExpired(t *testing.T) {
	t.Parallel()

	store := session.NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })

	s := newSession(t, "")
	s.ExpiresAt = time.Now().Add(-time.Second)
	require.ErrorIs(t, store.Create(context.Background(), s), session.ErrExpired)
	require.Zero(t, store.Len())
}

func TestCacheStore_UserIndexExpires(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	backing := cache.NewMemory[[]byte]()
	t.Cleanup(func() { _ = backing.Close() })
	store := session.NewCacheStore(backing)

	short := newSession(t, "u1")
	short.ExpiresAt = time.Now().Add(100 * time.Millisecond)
	require.NoError(t, store.Create(ctx, short))

	has, err := backing.Has(ctx, "session:user:u1")
	require.NoError(t, err)
	require.True(t, has)
	require.Eventually(t, func() bool {
		has, err := backing.Has(ctx, "session:user:u1")
		return err == nil && !has
	}, 2*time.Second, 10*time.Millisecond, "index lives no longer than its last session")

	stale := newSession(t, "u2")
	stale.ExpiresAt = time.Now().Add(100 * time.Millisecond)
	long := newSession(t, "u2")
	require.NoError(t, store.Create(ctx, stale))
	require.NoError(t, store.Create(ctx, long))
	require.Eventually(t, func() bool {
		has, err := backing.Has(ctx, "session:id:"+stale.ID)
		return err == nil && !has
	}, 2*time.Second, 10*time.Millisecond)

	fresh := newSession(t, "u2")
	require.NoError(t, store.Create(ctx, fresh))
	raw, err := backing.Get(ctx, "session:user:u2")
	require.NoError(t, err)
	require.NotContains(t, string(raw), stale.ID, "expired ids are dropped on rewrite")
	require.Contains(t, string(raw), long.ID)

	require.NoError(t, store.DeleteByUserID(ctx, "u2"))
	_, err = store.Get(ctx, long.Token)
	require.ErrorIs(t, err, session.ErrNotFound)
	_, err = store.Get(ctx, fresh.Token)
	require.ErrorIs(t, err, session.ErrNotFound)
}

func TestCookieStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := session.NewCookieStore(cookie.New(cookie.WithSecret(testSecret)))

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		s := newSession(t, "u-1")
		s.SetValue("cart", "3 items")
		require.NoError(t, store.Create(ctx, s))
		require.NotEmpty(t, s.Token)

		got, err := store.Get(ctx, s.Token)
		require.NoError(t, err)
		require.Equal(t, s.ID, got.ID)
		require.Equal(t, "3 items", got.Values["cart"])
		require.True(t, got.IsAuthenticated())
	})

	t.Run("update changes token", func(t *testing.T) {
		t.Parallel()

		s := newSession(t, "")
		require.NoError(t, store.Create(ctx, s))
		first := s.Token

		s.SetValue("k", "v")
		require.NoError(t, store.Update(ctx, s))
		require.NotEqual(t, first, s.Token)

		again := s.Token
		require.NoError(t, store.Update(ctx, s))
		require.Less(t, len(s.Token), len(again)+64, "token does not nest previous tokens")
	})

	t.Run("tampered", func(t *testing.T) {
		t.Parallel()

		s := newSession(t, "")
		require.NoError(t, store.Create(ctx, s))

		_, err := store.Get(ctx, s.Token[:len(s.Token)-4]+"AAAA")
		require.ErrorIs(t, err, session.ErrInvalidToken)

		other := session.NewCookieStore(cookie.New(cookie.WithSecret(strings.Repeat("z", 32))))
		_, err = other.Get(ctx, s.Token)
		require.ErrorIs(t, err, session.ErrInvalidToken)
	})

	t.Run("rotated secret", func(t *testing.T) {
		t.Parallel()

		s := newSession(t, "")
		require.NoError(t, store.Create(ctx, s))

		rotated := session.NewCookieStore(cookie.New(
			cookie.WithSecret(strings.Repeat("n", 32)),
			cookie.WithPreviousSecrets(testSecret),
		))
		got, err := rotated.Get(ctx, s.Token)
		require.NoError(t, err)
		require.Equal(t, s.ID, got.ID)
	})

	t.Run("expired", func(t *testing.T) {
		t.Parallel()

		s := newSession(t, "")
		s.ExpiresAt = time.Now().Add(-time.Minute)
		require.NoError(t, store.Create(ctx, s))

		_, err := store.Get(ctx, s.Token)
		require.ErrorIs(t, err, session.ErrExpired)
	})

	t.Run("too large", func(t *testing.T) {
		t.Parallel()

		s := newSession(t, "")
		s.SetValue("blob", strings.Repeat("x", session.MaxCookieSize))
		require.ErrorIs(t, store.Create(ctx, s), session.ErrTooLarge)
	})

	t.Run("unsupported", func(t *testing.T) {
		t.Parallel()

		require.ErrorIs(t, store.DeleteByUserID(ctx, "u-1"), session.ErrUnsupported)
		require.NoError(t, store.Delete(ctx, "x"))
		require.NoError(t, store.Touch(ctx, "x", time.Now()))
	})
}

func TestNullStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	var store session.NullStore
	s := newSession(t, "")

	require.NoError(t, store.Create(ctx, s))
	require.NoError(t, store.Update(ctx, s))
	_, err := store.Get(ctx, s.Token)
	require.ErrorIs(t, err, session.ErrNotFound)
	require.NoError(t, store.Delete(ctx, s.ID))
	require.NoError(t, store.DeleteByUserID(ctx, "u"))
	require.NoError(t, store.Touch(ctx, s.ID, time.Now()))
}

func TestLogStore(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	store := session.NewLogStore(nil, logger)

	_, ok := store.Unwrap().(session.NullStore)
	require.True(t, ok)

	ctx := context.Background()
	s := newSession(t, "u-9")
	require.NoError(t, store.Create(ctx, s))
	_, err := store.Get(ctx, s.Token)
	require.ErrorIs(t, err, session.ErrNotFound)

	out := buf.String()
	require.Contains(t, out, "session create")
	require.Contains(t, out, "user_id=u-9")
	require.Contains(t, out, "session get")
	require.Contains(t, out, "component=session")
}

func TestOpen(t *testing.T) {
	t.Parallel()

	backing := cache.NewNull[[]byte]()
	cipher := cookie.New(cookie.WithSecret(testSecret))

	tests := []struct {
		driver  string
		b       session.Backends
		want    any
		wantErr error
	}{
		{driver: "", want: &session.MemoryStore{}},
		{driver: "MEMORY", want: &session.MemoryStore{}},
		{driver: "null", want: session.NullStore{}},
		{driver: "cache", b: session.Backends{Cache: backing}, want: &session.CacheStore{}},
		{driver: "cache", wantErr: session.ErrUnknownDriver},
		{driver: "cookie", b: session.Backends{Cipher: cipher}, want: &session.CookieStore{}},
		{driver: "cookie", wantErr: session.ErrUnknownDriver},
		{driver: "log", want: &session.LogStore{}},
		{driver: "sql", wantErr: session.ErrUnknownDriver},
		{driver: "php", wantErr: session.ErrUnknownDriver},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			store, err := session.Open(session.Config{Driver: tt.driver}, tt.b)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.IsType(t, tt.want, store)
			if m, ok := store.(*session.MemoryStore); ok {
				require.NoError(t, m.Close())
			}
		})
	}
}

type countingPruner struct{ calls atomic.Int64 }

func (p *countingPruner) Prune(context.Context) (int64, error) {
	p.calls.Add(1)
	return 0, nil
}

func TestJanitor(t *testing.T) {
	t.Parallel()

	t.Run("rejects a bad schedule", func(t *testing.T) {
		t.Parallel()
		_, err := session.NewJanitor(&countingPruner{}, "every tuesday", nil)
		require.ErrorIs(t, err, session.ErrInvalidSchedule)
	})

	t.Run("prunes on schedule", func(t *testing.T) {
		t.Parallel()

		p := &countingPruner{}
		j, err := session.NewJanitor(p, "@every 1s", nil)
		require.NoError(t, err)
		require.NoError(t, j.Start(context.Background()))
		t.Cleanup(func() { _ = j.Stop(context.Background()) })

		require.Eventually(t, func() bool { return p.calls.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
	})

	t.Run("prunes expired sql sessions", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		store := openSQLStore(t)
		expired := newSession(t, "")
		expired.ExpiresAt = time.Now().Add(-time.Minute)
		require.NoError(t, store.Create(ctx, expired))

		var logs bytes.Buffer
		j, err := session.NewJanitor(store, "@hourly", slog.New(slog.NewTextHandler(&logs, nil)))
		require.NoError(t, err)

		n, err := j.Prune(ctx)
		require.NoError(t, err)
		require.EqualValues(t, 1, n)
		require.Contains(t, logs.String(), "expired sessions pruned")
		require.NoError(t, j.Stop(ctx), "stopping an unstarted janitor is fine")
	})
}
