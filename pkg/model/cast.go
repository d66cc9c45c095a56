package model

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/spf13/cast"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CastFunc converts a raw input value.
type CastFunc func(v any) (any, error)

var (
	castsMu sync.RWMutex
	casts   = map[string]CastFunc{
		"int":      func(v any) (any, error) { return cast.ToInt64E(v) },
		"float":    func(v any) (any, error) { return cast.ToFloat64E(v) },
		"bool":     func(v any) (any, error) { return cast.ToBoolE(v) },
		"string":   func(v any) (any, error) { return cast.ToStringE(v) },
		"time":     func(v any) (any, error) { return cast.ToTimeE(v) },
		"duration": func(v any) (any, error) { return cast.ToDurationE(v) },
		"json":     castJSON,
		"html":     stringCast(sanitizeHTML),
		"title":    stringCast(title),
		"lower":    stringCast(strings.ToLower),
		"upper":    stringCast(strings.ToUpper),
		"trim":     stringCast(strings.TrimSpace),
	}

	htmlPolicy = sync.OnceValue(bluemonday.UGCPolicy)
)

// RegisterCast adds or replaces a named cast usable in `cast` tags.
func RegisterCast(name string, fn CastFunc) {
	castsMu.Lock()
	defer castsMu.Unlock()
	casts[name] = fn
}

func lookupCast(name string) (CastFunc, bool) {
	castsMu.RLock()
	defer castsMu.RUnlock()
	fn, ok := casts[name]
	return fn, ok
}

func stringCast(fn func(string) string) CastFunc {
	return func(v any) (any, error) {
		s, err := cast.ToStringE(v)
		if err != nil {
			return nil, err
		}
		return fn(s), nil
	}
}

func sanitizeHTML(s string) string {
	return htmlPolicy().Sanitize(s)
}

func title(s string) string {
	return cases.Title(language.Und).String(s)
}

// castJSON decodes JSON text; non-text values pass through untouched.
func castJSON(v any) (any, error) {
	var data []byte
	switch t := v.(type) {
	case string:
		data = []byte(t)
	case []byte:
		data = t
	default:
		return v, nil
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Cast converts v to T through spf13/cast.
//
// Example:
//
//	n, err := model.Cast[int]("42")
//	d, err := model.Cast[time.Duration]("1m30s")
func Cast[T any](v any) (T, error) {
	var zero T
	var (
		out any
		err error
	)
	switch any(zero).(type) {
	case int:
		out, err = cast.ToIntE(v)
	case int32:
		out, err = cast.ToInt32E(v)
	case int64:
		out, err = cast.ToInt64E(v)
	case uint:
		out, err = cast.ToUintE(v)
	case uint64:
		out, err = cast.ToUint64E(v)
	case float32:
		out, err = cast.ToFloat32E(v)
	case float64:
		out, err = cast.ToFloat64E(v)
	case bool:
		out, err = cast.ToBoolE(v)
	case string:
		out, err = cast.ToStringE(v)
	case time.Time:
		out, err = cast.ToTimeE(v)
	case time.Duration:
		out, err = cast.ToDurationE(v)
	case []string:
		out, err = cast.ToStringSliceE(v)
	case []int:
		out, err = cast.ToIntSliceE(v)
	case map[string]any:
		out, err = cast.ToStringMapE(v)
	case map[string]string:
		out, err = cast.ToStringMapStringE(v)
	default:
		if t, ok := v.(T); ok {
			return t, nil
		}
		return castKind[T](v)
	}
	if err != nil {
		return zero, err
	}
	return out.(T), nil
}

// castKind handles named types (type Status string) by casting to the
// underlying basic kind and converting the result.
func castKind[T any](v any) (T, error) {
	var zero T
	t := reflect.TypeFor[T]()
	var (
		out any
		err error
	)
	switch t.Kind() {
	case reflect.String:
		out, err = cast.ToStringE(v)
	case reflect.Bool:
		out, err = cast.ToBoolE(v)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		out, err = cast.ToInt64E(v)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		out, err = cast.ToUint64E(v)
	case reflect.Float32, reflect.Float64:
		out, err = cast.ToFloat64E(v)
	default:
		return zero, fmt.Errorf("%w: %T to %T", ErrUnsupportedCast, v, zero)
	}
	if err != nil {
		return zero, err
	}
	rv := reflect.ValueOf(out)
	if rv.CanInt() && reflect.Zero(t).OverflowInt(rv.Int()) ||
		rv.CanUint() && reflect.Zero(t).OverflowUint(rv.Uint()) {
		return zero, fmt.Errorf("%w: %v overflows %T", ErrUnsupportedCast, v, zero)
	}
	return rv.Convert(t).Interface().(T), nil
}

// MustCast is Cast that panics on failure.
func MustCast[T any](v any) T {
	out, err := Cast[T](v)
	if err != nil {
		panic(err)
	}
	return out
}
