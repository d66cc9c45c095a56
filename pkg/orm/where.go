package orm

import (
	"fmt"
	"strings"
)

type condKind int

const (
	condCompare condKind = iota
	condIn
	condNotIn
	condNull
	condNotNull
	condRaw
)

// Cond is a single WHERE predicate. Build one with C, Eq, In, IsNull or Raw.
type Cond struct {
	column string
	op     string
	value  any
	values []any
	raw    string
	kind   condKind
	or     bool
}

// C compares column with value using op (=, !=, <>, <, <=, >, >=, LIKE,
// NOT LIKE, ILIKE). A nil value with = or != compiles to IS [NOT] NULL.
func C(column, op string, value any) Cond {
	return Cond{kind: condCompare, column: column, op: op, value: value}
}

// Eq is C(column, "=", value).
func Eq(column string, value any) Cond {
	return C(column, "=", value)
}

// In matches column against values. An empty list matches nothing.
func In(column string, values ...any) Cond {
	return Cond{kind: condIn, column: column, values: values}
}

// NotIn excludes values. An empty list matches everything.
func NotIn(column string, values ...any) Cond {
	return Cond{kind: condNotIn, column: column, values: values}
}

// IsNull matches NULL columns.
func IsNull(column string) Cond {
	return Cond{kind: condNull, column: column}
}

// NotNull matches non-NULL columns.
func NotNull(column string) Cond {
	return Cond{kind: condNotNull, column: column}
}

// Raw is a literal predicate; "?" markers are rewritten to the dialect's
// placeholders.
func Raw(sql string, args ...any) Cond {
	return Cond{kind: condRaw, raw: sql, values: args}
}

// Or turns the condition into an OR branch.
func (c Cond) Or() Cond {
	c.or = true
	return c
}

// compiler accumulates SQL and arguments, numbering placeholders across
// the whole statement.
type compiler struct {
	d    Dialect
	sb   strings.Builder
	args []any
}

func newCompiler(d Dialect) *compiler {
	if d == nil {
		d = Postgres
	}
	return &compiler{d: d}
}

func (c *compiler) write(s ...string) {
	for _, part := range s {
		c.sb.WriteString(part)
	}
}

func (c *compiler) bind(v any) string {
	c.args = append(c.args, v)
	return c.d.Placeholder(len(c.args))
}

func (c *compiler) ident(s string) (string, error) {
	return quote(c.d, s)
}

func (c *compiler) idents(cols []string) (string, error) {
	quoted := make([]string, len(cols))
	for i, col := range cols {
		q, err := c.ident(col)
		if err != nil {
			return "", err
		}
		quoted[i] = q
	}
	return strings.Join(quoted, ", "), nil
}

func (c *compiler) where(conds []Cond) error {
	if len(conds) == 0 {
		return nil
	}
	c.write(" WHERE ")
	for i, cond := range conds {
		if i > 0 {
			if cond.or {
				c.write(" OR ")
			} else {
				c.write(" AND ")
			}
		}
		if err := c.cond(cond); err != nil {
			return err
		}
	}
	return nil
}

func (c *compiler) cond(cond Cond) error {
	if cond.kind == condRaw {
		c.write("(")
		c.raw(cond.raw, cond.values)
		c.write(")")
		return nil
	}

	col, err := c.ident(cond.column)
	if err != nil {
		return err
	}

	switch cond.kind {
	case condNull:
		c.write(col, " IS NULL")
	case condNotNull:
		c.write(col, " IS NOT NULL")
	case condIn, condNotIn:
		if len(cond.values) == 0 {
			if cond.kind == condIn {
				c.write("1 = 0")
			} else {
				c.write("1 = 1")
			}
			return nil
		}
		marks := make([]string, len(cond.values))
		for i, v := range cond.values {
			marks[i] = c.bind(v)
		}
		kw := " IN ("
		if cond.kind == condNotIn {
			kw = " NOT IN ("
		}
		c.write(col, kw, strings.Join(marks, ", "), ")")
	case condCompare:
		op, err := normalizeOp(cond.op)
		if err != nil {
			return err
		}
		if cond.value == nil {
			switch op {
			case "=":
				c.write(col, " IS NULL")
				return nil
			case "!=", "<>":
				c.write(col, " IS NOT NULL")
				return nil
			}
		}
		if op == "ILIKE" && !c.d.SupportsILike() {
			c.write("LOWER(", col, ") LIKE LOWER(", c.bind(cond.value), ")")
			return nil
		}
		c.write(col, " ", op, " ", c.bind(cond.value))
	default:
		return fmt.Errorf("orm: unknown condition kind %d", cond.kind)
	}
	return nil
}

// raw copies sql rewriting each "?" into the next placeholder.
func (c *compiler) raw(sql string, args []any) {
	i := 0
	for _, r := range sql {
		if r == '?' && i < len(args) {
			c.write(c.bind(args[i]))
			i++
			continue
		}
		c.sb.WriteRune(r)
	}
}

func (c *compiler) result() (string, []any, error) {
	return c.sb.String(), c.args, nil
}
