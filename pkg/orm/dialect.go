package orm

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect captures the SQL differences between database engines.
type Dialect interface {
	// Name returns the dialect name (postgres, sqlite, mysql).
	Name() string

	// Placeholder returns the bind marker for the n-th argument, 1-based.
	Placeholder(n int) string

	// QuoteIdent quotes a single identifier part.
	QuoteIdent(ident string) string

	// SupportsReturning reports whether INSERT ... RETURNING is available.
	SupportsReturning() bool

	// SupportsILike reports whether ILIKE is native.
	SupportsILike() bool

	// LimitOffset renders the LIMIT/OFFSET tail; zero values are omitted.
	LimitOffset(limit, offset int) string

	// Goose returns the goose dialect used for migrations.
	Goose() string
}

// Built-in dialects.
var (
	Postgres Dialect = postgres{}
	SQLite   Dialect = sqlite{}
	MySQL    Dialect = mysql{}
)

type postgres struct{}

func (postgres) Name() string {
	return "postgres"
}

func (postgres) Placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

func (postgres) QuoteIdent(s string) string {
	return `"` + s + `"`
}

func (postgres) SupportsReturning() bool {
	return true
}

func (postgres) SupportsILike() bool {
	return true
}

func (postgres) Goose() string {
	return "postgres"
}

func (postgres) LimitOffset(l, o int) string {
	return limitOffset(l, o, "")
}

type sqlite struct{}

func (sqlite) Name() string {
	return "sqlite"
}

func (sqlite) Placeholder(int) string {
	return "?"
}

func (sqlite) QuoteIdent(s string) string {
	return `"` + s + `"`
}

func (sqlite) SupportsReturning() bool {
	return true
}

func (sqlite) SupportsILike() bool {
	return false
}

func (sqlite) Goose() string {
	return "sqlite3"
}

func (sqlite) LimitOffset(l, o int) string {
	return limitOffset(l, o, "-1")
}

type mysql struct{}

func (mysql) Name() string {
	return "mysql"
}

func (mysql) Placeholder(int) string {
	return "?"
}

func (mysql) QuoteIdent(s string) string {
	return "`" + s + "`"
}

func (mysql) SupportsReturning() bool {
	return false
}

func (mysql) SupportsILike() bool {
	return false
}

func (mysql) Goose() string {
	return "mysql"
}

func (mysql) LimitOffset(l, o int) string {
	return limitOffset(l, o, "18446744073709551615")
}

// limitOffset renders LIMIT/OFFSET. Engines that cannot take OFFSET alone
// get the unbounded limit they expect.
func limitOffset(limit, offset int, unbounded string) string {
	var sb strings.Builder
	switch {
	case limit > 0:
		fmt.Fprintf(&sb, " LIMIT %d", limit)
	case offset > 0 && unbounded != "":
		sb.WriteString(" LIMIT " + unbounded)
	}
	if offset > 0 {
		fmt.Fprintf(&sb, " OFFSET %d", offset)
	}
	return sb.String()
}

// DialectFor maps a database/sql driver name to its dialect.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "pgx", "postgres", "postgresql", "memory", "ramsql":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "mysql":
		return MySQL, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}
