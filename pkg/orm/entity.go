package orm

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"
)

// Tabler lets an entity choose its table name.
type Tabler interface {
	TableName() string
}

type field struct {
	column string
	index  []int
	pk     bool
	auto   bool
}

type entity struct {
	typ     reflect.Type
	table   string
	fields  []*field
	columns map[string]*field
	pk      *field
}

var entities sync.Map // reflect.Type -> *entity

// entityOf returns cached metadata for struct type t.
//
// Tags: `db:"name"` sets the column, `db:"id,pk"` marks the primary key,
// `db:",auto"` skips the column on insert (database generated) and `db:"-"`
// ignores the field. Untagged exported fields use their snake_case name.
// Embedded structs without a tag are flattened.
func entityOf(t reflect.Type) (*entity, error) {
	if cached, ok := entities.Load(t); ok {
		return cached.(*entity), nil
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s", ErrNotAnEntity, t)
	}

	e := &entity{typ: t, columns: make(map[string]*field)}
	collectFields(t, nil, e)

	e.table = tableName(t)
	if e.pk == nil {
		if f, ok := e.columns["id"]; ok {
			f.pk = true
			e.pk = f
		}
	}

	actual, _ := entities.LoadOrStore(t, e)
	return actual.(*entity), nil
}

func collectFields(t reflect.Type, parent []int, e *entity) {
	for i := range t.NumField() {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag, hasTag := sf.Tag.Lookup("db")
		if tag == "-" {
			continue
		}
		index := append(append([]int(nil), parent...), i)

		if sf.Anonymous && !hasTag {
			ft := sf.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				collectFields(ft, index, e)
				continue
			}
		}

		name, opts, _ := strings.Cut(tag, ",")
		if name == "" {
			name = snakeCase(sf.Name)
		}
		f := &field{column: name, index: index}
		for _, opt := range strings.Split(opts, ",") {
			switch strings.TrimSpace(opt) {
			case "pk":
				f.pk = true
			case "auto":
				f.auto = true
			}
		}
		if _, dup := e.columns[name]; dup {
			continue
		}
		e.fields = append(e.fields, f)
		e.columns[name] = f
		if f.pk && e.pk == nil {
			e.pk = f
		}
	}
}

func tableName(t reflect.Type) string {
	if tb, ok := reflect.New(t).Interface().(Tabler); ok {
		return tb.TableName()
	}
	if tb, ok := reflect.Zero(t).Interface().(Tabler); ok {
		return tb.TableName()
	}
	return plural(snakeCase(t.Name()))
}

// snakeCase converts "UserID" to "user_id" and "CreatedAt" to "created_at".
func snakeCase(s string) string {
	runes := []rune(s)
	var sb strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) ||
				(i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1]))) {
				sb.WriteByte('_')
			}
			sb.WriteRune(unicode.ToLower(r))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func plural(s string) string {
	switch {
	case s == "":
		return s
	case strings.HasSuffix(s, "y") && len(s) > 1 && !strings.ContainsRune("aeiou", rune(s[len(s)-2])):
		return s[:len(s)-1] + "ies"
	case strings.HasSuffix(s, "s"), strings.HasSuffix(s, "x"), strings.HasSuffix(s, "z"),
		strings.HasSuffix(s, "ch"), strings.HasSuffix(s, "sh"):
		return s + "es"
	default:
		return s + "s"
	}
}

// values returns column/value pairs of v in field order.
// Auto columns are skipped when skipAuto is set, the primary key when skipPK is.
func (e *entity) values(v reflect.Value, skipAuto, skipPK bool) []assignment {
	out := make([]assignment, 0, len(e.fields))
	for _, f := range e.fields {
		if (skipAuto && f.auto) || (skipPK && f.pk) {
			continue
		}
		fv, ok := fieldByIndex(v, f.index, false)
		if !ok {
			continue
		}
		out = append(out, assignment{column: f.column, value: fv.Interface()})
	}
	return out
}

// fieldByIndex walks index, allocating nil embedded pointers when alloc is set.
func fieldByIndex(v reflect.Value, index []int, alloc bool) (reflect.Value, bool) {
	for i, idx := range index {
		if i > 0 && v.Kind() == reflect.Pointer {
			if v.IsNil() {
				if !alloc {
					return reflect.Value{}, false
				}
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
		v = v.Field(idx)
	}
	return v, true
}
