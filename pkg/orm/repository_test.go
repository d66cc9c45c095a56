package orm_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/valkyrjaio/valkyrja/pkg/model"
	"github.com/valkyrjaio/valkyrja/pkg/orm"
)

type user struct {
	model.Model
	ID     int64   `db:"id,pk,auto"`
	Email  string  `db:"email"`
	Name   string  `db:"name"`
	Age    int     `db:"age"`
	Bio    *string `db:"bio"`
	Active bool    `db:"active"`
	Temp   string  `db:"-"`
}

type category struct {
	ID   int64 `db:",pk,auto"`
	Name string
}

type tagged struct {
	Key string `db:"key,pk"`
}

func (tagged) TableName() string { return "labels" }

var migrations = fstest.MapFS{
	"migrations/00001_users.sql": {Data: []byte(`-- +goose Up
CREATE TABLE users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    email TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    age INTEGER NOT NULL DEFAULT 0,
    bio TEXT,
    active BOOLEAN NOT NULL DEFAULT 0,
    created_at DATETIME,
    updated_at DATETIME
);

-- +goose Down
DROP TABLE users;
`)},
	"migrations/00002_categories.sql": {Data: []byte(`-- +goose Up
CREATE TABLE categories (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL);

-- +goose Down
DROP TABLE categories;
`)},
}

func openTestDB(t *testing.T) *orm.DB {
	t.Helper()

	ctx := context.Background()
	conn, err := orm.Open(ctx, orm.Config{
		Driver: "sqlite",
		DSN:    "file:" + filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, orm.Migrate(ctx, conn, migrations, "migrations"))
	return conn
}

func TestRepositoryCRUD(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	conn := openTestDB(t)

	users, err := orm.NewRepository[user](conn)
	require.NoError(t, err)
	require.Equal(t, "users", users.Table())

	bio := "mathematician"
	ada := &user{Email: "ada@example.com", Name: "Ada", Age: 36, Bio: &bio, Active: true, Temp: "skip"}
	require.NoError(t, users.Create(ctx, ada))
	require.NotZero(t, ada.ID)
	require.False(t, ada.CreatedAt.IsZero())

	found, err := users.Find(ctx, ada.ID)
	require.NoError(t, err)
	require.Equal(t, "Ada", found.Name)
	require.Equal(t, "mathematician", *found.Bio)
	require.True(t, found.Active)
	require.Empty(t, found.Temp)
	require.WithinDuration(t, ada.CreatedAt, found.CreatedAt, time.Second)

	found.Name = "Ada Lovelace"
	found.Bio = nil
	require.NoError(t, users.Save(ctx, found))

	byEmail, err := users.FindBy(ctx, "email", "ada@example.com")
	require.NoError(t, err)
	require.Equal(t, "Ada Lovelace", byEmail.Name)
	require.Nil(t, byEmail.Bio)

	require.NoError(t, users.Delete(ctx, byEmail))
	_, err = users.Find(ctx, ada.ID)
	require.ErrorIs(t, err, orm.ErrNotFound)
	require.ErrorIs(t, users.Save(ctx, byEmail), orm.ErrNotFound)
}

func TestRepositoryQueries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	conn := openTestDB(t)
	users := orm.MustRepository[user](conn)

	for i, name := range []string{"Ada", "Grace", "Edsger", "Barbara", "Donald"} {
		require.NoError(t, users.Create(ctx, &user{
			Email:  name + "@example.com",
			Name:   name,
			Age:    30 + i,
			Active: i%2 == 0,
		}))
	}

	all, err := users.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 5)

	active, err := users.Where(ctx, orm.Eq("active", true), orm.C("age", ">", 30))
	require.NoError(t, err)
	require.Len(t, active, 2)

	n, err := users.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(5), n)

	page, err := users.Paginate(ctx, 2, 2)
	require.NoError(t, err)
	require.Equal(t, int64(5), page.Total)
	require.Equal(t, 3, page.LastPage)
	require.Len(t, page.Items, 2)
	require.Equal(t, "Edsger", page.Items[0].Name)

	last, err := users.Paginate(ctx, 3, 2)
	require.NoError(t, err)
	require.Len(t, last.Items, 1)

	none, err := users.List(ctx, users.Query().WhereIn("id"))
	require.NoError(t, err)
	require.Empty(t, none)

	removed, err := users.DeleteWhere(ctx, orm.Eq("active", false))
	require.NoError(t, err)
	require.Equal(t, int64(2), removed)
}

func TestDBScanning(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	conn := openTestDB(t)

	cats := orm.MustRepository[category](conn)
	require.Equal(t, "categories", cats.Table())
	for _, name := range []string{"books", "music"} {
		require.NoError(t, cats.Create(ctx, &category{Name: name}))
	}

	var names []string
	require.NoError(t, conn.Select(ctx, &names, orm.Select("categories").Columns("name").OrderBy("name", "desc")))
	require.Equal(t, []string{"music", "books"}, names)

	var ptrs []*category
	require.NoError(t, conn.Select(ctx, &ptrs, orm.Select("categories")))
	require.Len(t, ptrs, 2)

	var count int
	require.NoError(t, conn.Get(ctx, &count, orm.Select("categories").Count()))
	require.Equal(t, 2, count)

	var missing category
	require.ErrorIs(t, conn.Get(ctx, &missing, orm.Select("categories").Where("id", "=", 99)), orm.ErrNotFound)

	require.ErrorIs(t, conn.Get(ctx, missing, orm.Select("categories")), orm.ErrInvalidDestination)
	require.ErrorIs(t, conn.Select(ctx, &count, orm.Select("categories")), orm.ErrInvalidDestination)
}

func TestWithTx(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	conn := openTestDB(t)
	cats := orm.MustRepository[category](conn)

	boom := errors.New("boom")
	err := conn.WithTx(ctx, func(tx *orm.DB) error {
		require.NoError(t, cats.WithTx(tx).Create(ctx, &category{Name: "rolled back"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	require.NoError(t, conn.WithTx(ctx, func(tx *orm.DB) error {
		return tx.WithTx(ctx, func(inner *orm.DB) error {
			return cats.WithTx(inner).Create(ctx, &category{Name: "kept"})
		})
	}))

	require.Panics(t, func() {
		_ = conn.WithTx(ctx, func(tx *orm.DB) error {
			_ = cats.WithTx(tx).Create(ctx, &category{Name: "panicked"})
			panic("kaboom")
		})
	})

	all, err := cats.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "kept", all[0].Name)
}

func TestMigrator(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	conn := openTestDB(t)

	m := orm.NewMigrator(conn, migrations, orm.WithMigrationsDir("migrations"))
	v, err := m.Version(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), v)

	require.NoError(t, m.Down(ctx))
	v, err = m.Version(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), v)

	_, err = conn.Exec(ctx, orm.Insert("categories").Set("name", "x"))
	require.Error(t, err)

	require.NoError(t, m.Up(ctx))
	require.NoError(t, m.Status(ctx))
}

func TestEntityNaming(t *testing.T) {
	t.Parallel()

	labels := orm.MustRepository[tagged](openTestDB(t))
	require.Equal(t, "labels", labels.Table())

	_, err := orm.NewRepository[int](nil)
	require.ErrorIs(t, err, orm.ErrNotAnEntity)
}

func TestOpenAndHealthcheck(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	_, err := orm.Open(ctx, orm.Config{Driver: "oracle"})
	require.ErrorIs(t, err, orm.ErrUnknownDriver)

	conn, err := orm.Open(ctx, orm.Config{Driver: "memory", DSN: "orm-healthcheck"})
	require.NoError(t, err)
	require.Equal(t, orm.Postgres, conn.Dialect())
	require.NoError(t, orm.Healthcheck(conn)(ctx))
	require.NoError(t, orm.Shutdown(conn)(ctx))

	require.ErrorIs(t, orm.Healthcheck(nil)(ctx), orm.ErrHealthcheckFailed)
}
