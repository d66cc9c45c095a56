package orm

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Query is anything that renders to SQL with bound arguments.
type Query interface {
	ToSQL() (string, []any, error)
}

// bindable queries are re-rendered with the executing DB's dialect.
type bindable interface {
	Query
	bind(d Dialect) Query
}

type rawQuery struct {
	sql  string
	args []any
}

// RawQuery wraps literal SQL. Placeholders are passed through unchanged.
func RawQuery(sql string, args ...any) Query {
	return rawQuery{sql: sql, args: args}
}

func (q rawQuery) ToSQL() (string, []any, error) { return q.sql, q.args, nil }

// SelectQuery builds SELECT statements. Methods return modified copies.
type SelectQuery struct {
	dialect Dialect
	table   string
	columns []string
	joins   []join
	wheres  []Cond
	orders  []order
	groups  []string
	limit   int
	offset  int
	count   bool
}

type join struct {
	kind  string
	table string
	on    string
}

type order struct {
	column string
	dir    string
}

// Select starts a SELECT on table using the Postgres dialect until bound
// to a DB or changed with Using.
func Select(table string) SelectQuery {
	return SelectQuery{dialect: Postgres, table: table}
}

// Using sets the dialect.
func (q SelectQuery) Using(d Dialect) SelectQuery {
	q.dialect = d
	return q
}

func (q SelectQuery) bind(d Dialect) Query { return q.Using(d) }

// Columns sets the selected columns; default is *.
func (q SelectQuery) Columns(cols ...string) SelectQuery {
	q.columns = append(slices.Clip(q.columns), cols...)
	return q
}

// Where adds an AND comparison.
func (q SelectQuery) Where(column, op string, value any) SelectQuery {
	return q.Filter(C(column, op, value))
}

// OrWhere adds an OR comparison.
func (q SelectQuery) OrWhere(column, op string, value any) SelectQuery {
	return q.Filter(C(column, op, value).Or())
}

// WhereIn adds an IN predicate.
func (q SelectQuery) WhereIn(column string, values ...any) SelectQuery {
	return q.Filter(In(column, values...))
}

// WhereNull adds an IS NULL predicate.
func (q SelectQuery) WhereNull(column string) SelectQuery {
	return q.Filter(IsNull(column))
}

// WhereNotNull adds an IS NOT NULL predicate.
func (q SelectQuery) WhereNotNull(column string) SelectQuery {
	return q.Filter(NotNull(column))
}

// Filter appends prebuilt conditions.
func (q SelectQuery) Filter(conds ...Cond) SelectQuery {
	q.wheres = append(slices.Clip(q.wheres), conds...)
	return q
}

// Join adds an INNER JOIN; on has the form "left_col = right_col".
func (q SelectQuery) Join(table, on string) SelectQuery {
	q.joins = append(slices.Clip(q.joins), join{kind: "JOIN", table: table, on: on})
	return q
}

// LeftJoin adds a LEFT JOIN.
func (q SelectQuery) LeftJoin(table, on string) SelectQuery {
	q.joins = append(slices.Clip(q.joins), join{kind: "LEFT JOIN", table: table, on: on})
	return q
}

// OrderBy adds an ORDER BY term; dir is "asc" or "desc".
func (q SelectQuery) OrderBy(column, dir string) SelectQuery {
	q.orders = append(slices.Clip(q.orders), order{column: column, dir: dir})
	return q
}

// GroupBy adds GROUP BY columns.
func (q SelectQuery) GroupBy(cols ...string) SelectQuery {
	q.groups = append(slices.Clip(q.groups), cols...)
	return q
}

// Limit caps the number of rows; zero removes the cap.
func (q SelectQuery) Limit(n int) SelectQuery {
	q.limit = max(n, 0)
	return q
}

// Offset skips n rows.
func (q SelectQuery) Offset(n int) SelectQuery {
	q.offset = max(n, 0)
	return q
}

// Count turns the query into SELECT COUNT(*), dropping ordering and paging.
func (q SelectQuery) Count() SelectQuery {
	q.count = true
	q.orders = nil
	q.limit, q.offset = 0, 0
	return q
}

func (q SelectQuery) ToSQL() (string, []any, error) {
	c := newCompiler(q.dialect)

	table, err := c.ident(q.table)
	if err != nil {
		return "", nil, err
	}

	cols := "*"
	switch {
	case q.count:
		cols = "COUNT(*)"
	case len(q.columns) > 0:
		if cols, err = c.idents(q.columns); err != nil {
			return "", nil, err
		}
	}
	c.write("SELECT ", cols, " FROM ", table)

	for _, j := range q.joins {
		if err := c.join(j); err != nil {
			return "", nil, err
		}
	}
	if err := c.where(q.wheres); err != nil {
		return "", nil, err
	}
	if len(q.groups) > 0 {
		groups, err := c.idents(q.groups)
		if err != nil {
			return "", nil, err
		}
		c.write(" GROUP BY ", groups)
	}
	if len(q.orders) > 0 {
		terms := make([]string, len(q.orders))
		for i, o := range q.orders {
			col, err := c.ident(o.column)
			if err != nil {
				return "", nil, err
			}
			dir := strings.ToUpper(strings.TrimSpace(o.dir))
			if dir == "" {
				dir = "ASC"
			}
			if dir != "ASC" && dir != "DESC" {
				return "", nil, fmt.Errorf("%w: %q", ErrInvalidDirection, o.dir)
			}
			terms[i] = col + " " + dir
		}
		c.write(" ORDER BY ", strings.Join(terms, ", "))
	}
	c.write(c.d.LimitOffset(q.limit, q.offset))

	return c.result()
}

func (c *compiler) join(j join) error {
	table, err := c.ident(j.table)
	if err != nil {
		return err
	}
	parts := strings.Fields(j.on)
	if len(parts) != 3 {
		return fmt.Errorf("%w: %q", ErrInvalidJoin, j.on)
	}
	op, err := normalizeOp(parts[1])
	if err != nil {
		return err
	}
	left, err := c.ident(parts[0])
	if err != nil {
		return err
	}
	right, err := c.ident(parts[2])
	if err != nil {
		return err
	}
	c.write(" ", j.kind, " ", table, " ON ", left, " ", op, " ", right)
	return nil
}

// assignment is one column = value pair of an INSERT or UPDATE.
type assignment struct {
	column string
	value  any
}

func setAll(dst []assignment, values map[string]any) []assignment {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	dst = slices.Clip(dst)
	for _, k := range keys {
		dst = append(dst, assignment{column: k, value: values[k]})
	}
	return dst
}

// InsertQuery builds INSERT statements.
type InsertQuery struct {
	dialect   Dialect
	table     string
	sets      []assignment
	returning []string
}

// Insert starts an INSERT into table.
func Insert(table string) InsertQuery {
	return InsertQuery{dialect: Postgres, table: table}
}

// Using sets the dialect.
func (q InsertQuery) Using(d Dialect) InsertQuery {
	q.dialect = d
	return q
}

func (q InsertQuery) bind(d Dialect) Query { return q.Using(d) }

// Set adds a column value.
func (q InsertQuery) Set(column string, value any) InsertQuery {
	q.sets = append(slices.Clip(q.sets), assignment{column: column, value: value})
	return q
}

// Values adds every entry of values, in column name order.
func (q InsertQuery) Values(values map[string]any) InsertQuery {
	q.sets = setAll(q.sets, values)
	return q
}

// Returning asks the database to return cols of the inserted row.
func (q InsertQuery) Returning(cols ...string) InsertQuery {
	q.returning = append(slices.Clip(q.returning), cols...)
	return q
}

func (q InsertQuery) ToSQL() (string, []any, error) {
	if len(q.sets) == 0 {
		return "", nil, ErrNoColumns
	}
	c := newCompiler(q.dialect)

	table, err := c.ident(q.table)
	if err != nil {
		return "", nil, err
	}
	cols := make([]string, len(q.sets))
	marks := make([]string, len(q.sets))
	for i, s := range q.sets {
		if cols[i], err = c.ident(s.column); err != nil {
			return "", nil, err
		}
		marks[i] = c.bind(s.value)
	}
	c.write("INSERT INTO ", table, " (", strings.Join(cols, ", "), ") VALUES (", strings.Join(marks, ", "), ")")

	if len(q.returning) > 0 {
		if !c.d.SupportsReturning() {
			return "", nil, fmt.Errorf("%w: %s", ErrReturningUnsupported, c.d.Name())
		}
		ret, err := c.idents(q.returning)
		if err != nil {
			return "", nil, err
		}
		c.write(" RETURNING ", ret)
	}
	return c.result()
}

// UpdateQuery builds UPDATE statements.
type UpdateQuery struct {
	dialect Dialect
	table   string
	sets    []assignment
	wheres  []Cond
}

// Update starts an UPDATE of table.
func Update(table string) UpdateQuery {
	return UpdateQuery{dialect: Postgres, table: table}
}

// Using sets the dialect.
func (q UpdateQuery) Using(d Dialect) UpdateQuery {
	q.dialect = d
	return q
}

func (q UpdateQuery) bind(d Dialect) Query { return q.Using(d) }

// Set adds a column assignment.
func (q UpdateQuery) Set(column string, value any) UpdateQuery {
	q.sets = append(slices.Clip(q.sets), assignment{column: column, value: value})
	return q
}

// Values adds every entry of values, in column name order.
func (q UpdateQuery) Values(values map[string]any) UpdateQuery {
	q.sets = setAll(q.sets, values)
	return q
}

// Where adds an AND comparison.
func (q UpdateQuery) Where(column, op string, value any) UpdateQuery {
	return q.Filter(C(column, op, value))
}

// OrWhere adds an OR comparison.
func (q UpdateQuery) OrWhere(column, op string, value any) UpdateQuery {
	return q.Filter(C(column, op, value).Or())
}

// WhereIn adds an IN predicate.
func (q UpdateQuery) WhereIn(column string, values ...any) UpdateQuery {
	return q.Filter(In(column, values...))
}

// Filter appends prebuilt conditions.
func (q UpdateQuery) Filter(conds ...Cond) UpdateQuery {
	q.wheres = append(slices.Clip(q.wheres), conds...)
	return q
}

func (q UpdateQuery) ToSQL() (string, []any, error) {
	if len(q.sets) == 0 {
		return "", nil, ErrNoColumns
	}
	c := newCompiler(q.dialect)

	table, err := c.ident(q.table)
	if err != nil {
		return "", nil, err
	}
	sets := make([]string, len(q.sets))
	for i, s := range q.sets {
		col, err := c.ident(s.column)
		if err != nil {
			return "", nil, err
		}
		sets[i] = col + " = " + c.bind(s.value)
	}
	c.write("UPDATE ", table, " SET ", strings.Join(sets, ", "))

	if err := c.where(q.wheres); err != nil {
		return "", nil, err
	}
	return c.result()
}

// DeleteQuery builds DELETE statements.
type DeleteQuery struct {
	dialect Dialect
	table   string
	wheres  []Cond
	all     bool
}

// Delete starts a DELETE from table. Without conditions it refuses to
// render unless All is called.
func Delete(table string) DeleteQuery {
	return DeleteQuery{dialect: Postgres, table: table}
}

// Using sets the dialect.
func (q DeleteQuery) Using(d Dialect) DeleteQuery {
	q.dialect = d
	return q
}

func (q DeleteQuery) bind(d Dialect) Query { return q.Using(d) }

// Where adds an AND comparison.
func (q DeleteQuery) Where(column, op string, value any) DeleteQuery {
	return q.Filter(C(column, op, value))
}

// OrWhere adds an OR comparison.
func (q DeleteQuery) OrWhere(column, op string, value any) DeleteQuery {
	return q.Filter(C(column, op, value).Or())
}

// WhereIn adds an IN predicate.
func (q DeleteQuery) WhereIn(column string, values ...any) DeleteQuery {
	return q.Filter(In(column, values...))
}

// Filter appends prebuilt conditions.
func (q DeleteQuery) Filter(conds ...Cond) DeleteQuery {
	q.wheres = append(slices.Clip(q.wheres), conds...)
	return q
}

// All allows deleting every row.
func (q DeleteQuery) All() DeleteQuery {
	q.all = true
	return q
}

func (q DeleteQuery) ToSQL() (string, []any, error) {
	if len(q.wheres) == 0 && !q.all {
		return "", nil, ErrMissingWhere
	}
	c := newCompiler(q.dialect)

	table, err := c.ident(q.table)
	if err != nil {
		return "", nil, err
	}
	c.write("DELETE FROM ", table)
	if err := c.where(q.wheres); err != nil {
		return "", nil, err
	}
	return c.result()
}
