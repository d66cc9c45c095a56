package orm

import (
	"context"
	"fmt"
	"reflect"
)

// Toucher is implemented by entities that maintain timestamps
// (see model.Model). Create and Save call Touch before writing.
type Toucher interface {
	Touch()
}

// Repository provides CRUD for entity type T.
type Repository[T any] struct {
	db     *DB
	entity *entity
}

// Page is one page of a paginated listing.
type Page[T any] struct {
	Items    []T   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PerPage  int   `json:"per_page"`
	LastPage int   `json:"last_page"`
}

// NewRepository builds a repository for struct type T.
//
// Example:
//
//	type User struct {
//	    model.Model
//	    ID    int64  `db:"id,pk,auto"`
//	    Email string `db:"email"`
//	}
//
//	users, err := orm.NewRepository[User](conn)
//	u := &User{Email: "ada@example.com"}
//	err = users.Create(ctx, u) // u.ID is set
func NewRepository[T any](db *DB) (*Repository[T], error) {
	e, err := entityOf(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	return &Repository[T]{db: db, entity: e}, nil
}

// MustRepository is NewRepository that panics on error.
func MustRepository[T any](db *DB) *Repository[T] {
	r, err := NewRepository[T](db)
	if err != nil {
		panic(err)
	}
	return r
}

// Table returns the table name.
func (r *Repository[T]) Table() string { return r.entity.table }

// WithTx returns a repository running on tx.
func (r *Repository[T]) WithTx(tx *DB) *Repository[T] {
	return &Repository[T]{db: tx, entity: r.entity}
}

// Query starts a SELECT on the repository's table.
func (r *Repository[T]) Query() SelectQuery {
	return Select(r.entity.table).Using(r.db.dialect)
}

func (r *Repository[T]) pk() (*field, error) {
	if r.entity.pk == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoPrimaryKey, r.entity.typ)
	}
	return r.entity.pk, nil
}

// Find loads the entity with primary key id.
func (r *Repository[T]) Find(ctx context.Context, id any) (*T, error) {
	pk, err := r.pk()
	if err != nil {
		return nil, err
	}
	return r.First(ctx, r.Query().Where(pk.column, "=", id))
}

// FindBy loads the first entity whose column equals value.
func (r *Repository[T]) FindBy(ctx context.Context, column string, value any) (*T, error) {
	return r.First(ctx, r.Query().Where(column, "=", value))
}

// First loads the first entity matching q.
func (r *Repository[T]) First(ctx context.Context, q SelectQuery) (*T, error) {
	var out T
	if err := r.db.Get(ctx, &out, q.Limit(1)); err != nil {
		return nil, err
	}
	return &out, nil
}

// All loads every entity.
func (r *Repository[T]) All(ctx context.Context) ([]T, error) {
	return r.List(ctx, r.Query())
}

// Where loads the entities matching every condition.
func (r *Repository[T]) Where(ctx context.Context, conds ...Cond) ([]T, error) {
	return r.List(ctx, r.Query().Filter(conds...))
}

// List loads the entities returned by q.
func (r *Repository[T]) List(ctx context.Context, q SelectQuery) ([]T, error) {
	var out []T
	if err := r.db.Select(ctx, &out, q); err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of rows matching conds.
func (r *Repository[T]) Count(ctx context.Context, conds ...Cond) (int64, error) {
	var n int64
	if err := r.db.Get(ctx, &n, r.Query().Filter(conds...).Count()); err != nil {
		return 0, err
	}
	return n, nil
}

// Paginate returns page (1-based) of perPage entities ordered by primary key.
func (r *Repository[T]) Paginate(ctx context.Context, page, perPage int, conds ...Cond) (Page[T], error) {
	page = max(page, 1)
	if perPage <= 0 {
		perPage = 15
	}

	total, err := r.Count(ctx, conds...)
	if err != nil {
		return Page[T]{}, err
	}

	q := r.Query().Filter(conds...).Limit(perPage).Offset((page - 1) * perPage)
	if pk := r.entity.pk; pk != nil {
		q = q.OrderBy(pk.column, "asc")
	}
	items, err := r.List(ctx, q)
	if err != nil {
		return Page[T]{}, err
	}

	last := int((total + int64(perPage) - 1) / int64(perPage))
	return Page[T]{
		Items:    items,
		Total:    total,
		Page:     page,
		PerPage:  perPage,
		LastPage: max(last, 1),
	}, nil
}

// Create inserts entity. A primary key tagged auto is read back into entity.
func (r *Repository[T]) Create(ctx context.Context, entity *T) error {
	if t, ok := any(entity).(Toucher); ok {
		t.Touch()
	}

	v := reflect.ValueOf(entity).Elem()
	q := Insert(r.entity.table)
	for _, a := range r.entity.values(v, true, false) {
		q = q.Set(a.column, a.value)
	}

	pk := r.entity.pk
	if pk == nil || !pk.auto {
		_, err := r.db.Exec(ctx, q)
		return err
	}

	target, _ := fieldByIndex(v, pk.index, true)
	if r.db.dialect.SupportsReturning() {
		row, err := r.db.QueryRow(ctx, q.Returning(pk.column))
		if err != nil {
			return err
		}
		return row.Scan(target.Addr().Interface())
	}

	res, err := r.db.Exec(ctx, q)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	return setInt(target, id)
}

// Save updates every non-key column of entity by primary key.
// It returns ErrNotFound when no row matched.
func (r *Repository[T]) Save(ctx context.Context, entity *T) error {
	pk, err := r.pk()
	if err != nil {
		return err
	}
	if t, ok := any(entity).(Toucher); ok {
		t.Touch()
	}

	v := reflect.ValueOf(entity).Elem()
	q := Update(r.entity.table)
	for _, a := range r.entity.values(v, false, true) {
		q = q.Set(a.column, a.value)
	}
	id, _ := fieldByIndex(v, pk.index, false)
	return r.affectOne(ctx, q.Where(pk.column, "=", id.Interface()))
}

// Delete removes entity by primary key.
func (r *Repository[T]) Delete(ctx context.Context, entity *T) error {
	pk, err := r.pk()
	if err != nil {
		return err
	}
	id, _ := fieldByIndex(reflect.ValueOf(entity).Elem(), pk.index, false)
	return r.affectOne(ctx, Delete(r.entity.table).Where(pk.column, "=", id.Interface()))
}

// DeleteWhere removes every row matching conds and returns how many went.
func (r *Repository[T]) DeleteWhere(ctx context.Context, conds ...Cond) (int64, error) {
	res, err := r.db.Exec(ctx, Delete(r.entity.table).Filter(conds...))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *Repository[T]) affectOne(ctx context.Context, q Query) error {
	res, err := r.db.Exec(ctx, q)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func setInt(v reflect.Value, n int64) error {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v.SetUint(uint64(n))
	default:
		return fmt.Errorf("orm: cannot store generated id in %s", v.Type())
	}
	return nil
}
