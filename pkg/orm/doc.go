// Package orm is a small data mapper over database/sql: dialect-aware query
// builders, struct scanning, a generic repository and goose migrations.
//
// # Connecting
//
//	conn, err := orm.Open(ctx, orm.Config{Driver: "sqlite", DSN: "file:app.db"},
//	    orm.WithLogger(logger),
//	)
//
// Drivers: pgx, postgres (lib/pq), sqlite (modernc, no cgo) and memory
// (ramsql). [FromPool] shares a pgx pool opened with pkg/db.
//
// # Queries
//
// Builders are values; every method returns a modified copy, so a base
// query can be reused safely:
//
//	active := orm.Select("users").Where("active", "=", true)
//	admins := active.WhereIn("role", "admin", "owner").OrderBy("name", "asc")
//
//	var users []User
//	err := conn.Select(ctx, &users, admins.Limit(20))
//
// Identifiers are validated and quoted, operators come from a fixed list and
// every value is bound as a placeholder in the executing DB's dialect.
//
// # Entities
//
// Structs map to tables through `db` tags:
//
//	type Post struct {
//	    ID     int64  `db:"id,pk,auto"`
//	    Title  string `db:"title"`
//	    Draft  bool   `db:"draft"`
//	    Cached string `db:"-"`
//	}
//
// The table is TableName() when defined, otherwise the snake_case plural of
// the type name ("posts"). [Repository] adds Find, Create, Save, Delete,
// Count and Paginate on top.
//
// # Migrations
//
//	//go:embed migrations/*.sql
//	var migrations embed.FS
//
//	err := orm.Migrate(ctx, conn, migrations, "migrations")
package orm
