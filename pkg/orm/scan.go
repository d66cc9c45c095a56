package orm

import (
	"database/sql"
	"fmt"
	"reflect"
)

var scannerType = reflect.TypeFor[sql.Scanner]()

// isStructDest reports whether rows map onto fields of t rather than
// scanning straight into it.
func isStructDest(t reflect.Type) bool {
	if t.Kind() != reflect.Struct {
		return false
	}
	if reflect.PointerTo(t).Implements(scannerType) {
		return false
	}
	return t.PkgPath() != "time"
}

// scanRow scans the current row into dst, which is addressable.
func scanRow(rows *sql.Rows, dst reflect.Value) error {
	if !isStructDest(dst.Type()) {
		return rows.Scan(dst.Addr().Interface())
	}

	e, err := entityOf(dst.Type())
	if err != nil {
		return err
	}
	cols, err := rows.Columns()
	if err != nil {
		return err
	}

	targets := make([]any, len(cols))
	for i, col := range cols {
		f, ok := e.columns[col]
		if !ok {
			targets[i] = new(any)
			continue
		}
		fv, _ := fieldByIndex(dst, f.index, true)
		targets[i] = fv.Addr().Interface()
	}
	return rows.Scan(targets...)
}

// destination validates dst as a non-nil pointer and returns its element.
func destination(dst any) (reflect.Value, error) {
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return reflect.Value{}, fmt.Errorf("%w: got %T", ErrInvalidDestination, dst)
	}
	return v.Elem(), nil
}
