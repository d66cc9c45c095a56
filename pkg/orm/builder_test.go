package orm_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/valkyrjaio/valkyrja/pkg/orm"
)

func TestSelectToSQL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		query    orm.Query
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "all columns",
			query:   orm.Select("users"),
			wantSQL: `SELECT * FROM "users"`,
		},
		{
			name: "postgres numbering across clauses",
			query: orm.Select("users").
				Columns("id", "users.email").
				Where("age", ">=", 18).
				OrWhere("role", "=", "admin").
				WhereIn("status", "active", "invited").
				OrderBy("id", "desc").
				Limit(10).
				Offset(20),
			wantSQL:  `SELECT "id", "users"."email" FROM "users" WHERE "age" >= $1 OR "role" = $2 AND "status" IN ($3, $4) ORDER BY "id" DESC LIMIT 10 OFFSET 20`,
			wantArgs: []any{18, "admin", "active", "invited"},
		},
		{
			name:    "empty in list matches nothing",
			query:   orm.Select("users").WhereIn("id"),
			wantSQL: `SELECT * FROM "users" WHERE 1 = 0`,
		},
		{
			name:    "empty not in list matches everything",
			query:   orm.Select("users").Filter(orm.NotIn("id")),
			wantSQL: `SELECT * FROM "users" WHERE 1 = 1`,
		},
		{
			name:    "nil comparison becomes IS NULL",
			query:   orm.Select("users").Where("deleted_at", "=", nil).Where("email", "!=", nil),
			wantSQL: `SELECT * FROM "users" WHERE "deleted_at" IS NULL AND "email" IS NOT NULL`,
		},
		{
			name:    "null helpers",
			query:   orm.Select("users").WhereNull("deleted_at").WhereNotNull("verified_at"),
			wantSQL: `SELECT * FROM "users" WHERE "deleted_at" IS NULL AND "verified_at" IS NOT NULL`,
		},
		{
			name: "join and group",
			query: orm.Select("posts").
				Columns("users.id").
				Join("users", "users.id = posts.user_id").
				LeftJoin("tags", "tags.post_id = posts.id").
				GroupBy("users.id"),
			wantSQL: `SELECT "users"."id" FROM "posts" JOIN "users" ON "users"."id" = "posts"."user_id" LEFT JOIN "tags" ON "tags"."post_id" = "posts"."id" GROUP BY "users"."id"`,
		},
		{
			name:     "raw condition is parenthesized and rebound",
			query:    orm.Select("events").Filter(orm.Raw("starts_at < ? OR ends_at > ?", 1, 2)).Where("kind", "=", "x"),
			wantSQL:  `SELECT * FROM "events" WHERE (starts_at < $1 OR ends_at > $2) AND "kind" = $3`,
			wantArgs: []any{1, 2, "x"},
		},
		{
			name:     "count drops paging",
			query:    orm.Select("users").Where("active", "=", true).OrderBy("id", "asc").Limit(5).Count(),
			wantSQL:  `SELECT COUNT(*) FROM "users" WHERE "active" = $1`,
			wantArgs: []any{true},
		},
		{
			name:     "sqlite placeholders and offset without limit",
			query:    orm.Select("users").Using(orm.SQLite).Where("id", ">", 3).Offset(5),
			wantSQL:  `SELECT * FROM "users" WHERE "id" > ? LIMIT -1 OFFSET 5`,
			wantArgs: []any{3},
		},
		{
			name:     "mysql quoting and ilike fallback",
			query:    orm.Select("users").Using(orm.MySQL).Where("name", "ilike", "%ada%"),
			wantSQL:  "SELECT * FROM `users` WHERE LOWER(`name`) LIKE LOWER(?)",
			wantArgs: []any{"%ada%"},
		},
		{
			name:     "postgres keeps ilike",
			query:    orm.Select("users").Where("name", "ILIKE", "%ada%"),
			wantSQL:  `SELECT * FROM "users" WHERE "name" ILIKE $1`,
			wantArgs: []any{"%ada%"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sql, args, err := tt.query.ToSQL()
			require.NoError(t, err)
			require.Equal(t, tt.wantSQL, sql)
			if tt.wantArgs == nil {
				require.Empty(t, args)
			} else {
				require.Equal(t, tt.wantArgs, args)
			}
		})
	}
}

func TestBuilderErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query orm.Query
		want  error
	}{
		{"bad operator", orm.Select("users").Where("id", "; DROP", 1), orm.ErrInvalidOperator},
		{"bad table", orm.Select("users; --"), orm.ErrInvalidIdentifier},
		{"bad column", orm.Select("users").Columns("id, password"), orm.ErrInvalidIdentifier},
		{"bad direction", orm.Select("users").OrderBy("id", "sideways"), orm.ErrInvalidDirection},
		{"bad join", orm.Select("a").Join("b", "a.id"), orm.ErrInvalidJoin},
		{"insert without columns", orm.Insert("users"), orm.ErrNoColumns},
		{"update without set", orm.Update("users").Where("id", "=", 1), orm.ErrNoColumns},
		{"delete without where", orm.Delete("users"), orm.ErrMissingWhere},
		{"mysql returning", orm.Insert("users").Using(orm.MySQL).Set("a", 1).Returning("id"), orm.ErrReturningUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, _, err := tt.query.ToSQL()
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestWriteBuilders(t *testing.T) {
	t.Parallel()

	sql, args, err := orm.Insert("users").
		Values(map[string]any{"name": "Ada", "email": "ada@example.com"}).
		Returning("id").
		ToSQL()
	require.NoError(t, err)
	require.Equal(t, `INSERT INTO "users" ("email", "name") VALUES ($1, $2) RETURNING "id"`, sql)
	require.Equal(t, []any{"ada@example.com", "Ada"}, args)

	sql, args, err = orm.Update("users").Set("name", "Grace").Where("id", "=", 7).ToSQL()
	require.NoError(t, err)
	require.Equal(t, `UPDATE "users" SET "name" = $1 WHERE "id" = $2`, sql)
	require.Equal(t, []any{"Grace", 7}, args)

	sql, _, err = orm.Delete("sessions").All().ToSQL()
	require.NoError(t, err)
	require.Equal(t, `DELETE FROM "sessions"`, sql)

	sql, args, err = orm.Delete("sessions").Using(orm.MySQL).Where("user_id", "=", 3).ToSQL()
	require.NoError(t, err)
	require.Equal(t, "DELETE FROM `sessions` WHERE `user_id` = ?", sql)
	require.Equal(t, []any{3}, args)
}

func TestBuildersAreImmutable(t *testing.T) {
	t.Parallel()

	base := orm.Select("users").Where("active", "=", true)
	admins := base.Where("role", "=", "admin")
	guests := base.Where("role", "=", "guest")

	sql, _, err := base.ToSQL()
	require.NoError(t, err)
	require.Equal(t, `SELECT * FROM "users" WHERE "active" = $1`, sql)

	_, adminArgs, _ := admins.ToSQL()
	_, guestArgs, _ := guests.ToSQL()
	require.Equal(t, []any{true, "admin"}, adminArgs)
	require.Equal(t, []any{true, "guest"}, guestArgs)
}

func TestDialectFor(t *testing.T) {
	t.Parallel()

	for driver, want := range map[string]orm.Dialect{
		"pgx":      orm.Postgres,
		"postgres": orm.Postgres,
		"memory":   orm.Postgres,
		"sqlite":   orm.SQLite,
		"mysql":    orm.MySQL,
	} {
		got, err := orm.DialectFor(driver)
		require.NoError(t, err)
		require.Equal(t, want, got, driver)
	}

	_, err := orm.DialectFor("oracle")
	require.ErrorIs(t, err, orm.ErrUnknownDriver)
}
