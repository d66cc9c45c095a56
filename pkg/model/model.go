package model

import (
	"encoding/json"
	"errors"
	"reflect"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// Model is embedded by entities that keep creation and update timestamps.
// pkg/orm calls Touch before inserts and updates.
type Model struct {
	CreatedAt time.Time `db:"created_at" model:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" model:"updated_at" json:"updated_at"`
}

// Touch stamps UpdatedAt, and CreatedAt on first use.
func (m *Model) Touch() {
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
}

// Fill decodes data into the struct pointed to by dst.
//
// Keys match the `model` tag name, else the field name case-insensitively.
// Values are converted weakly ("42" fills an int). A `cast` tag lists casts
// applied in order before decoding:
//
//	type Signup struct {
//	    Email string    `model:"email" cast:"trim,lower"`
//	    Name  string    `model:"name" cast:"trim,title"`
//	    Bio   string    `model:"bio" cast:"html"`
//	    Born  time.Time `model:"born" cast:"time"`
//	}
//
// A failing cast returns *CastError naming the field.
func Fill(dst any, data map[string]any) error {
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return ErrInvalidTarget
	}

	prepared, err := applyCasts(v.Elem().Type(), data)
	if err != nil {
		return err
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           dst,
		TagName:          "model",
		WeaklyTypedInput: true,
		Squash:           true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return errors.Join(ErrDecode, err)
	}
	if err := dec.Decode(prepared); err != nil {
		return errors.Join(ErrDecode, err)
	}
	return nil
}

// applyCasts returns a copy of data with every `cast` tag applied.
func applyCasts(t reflect.Type, data map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}

	for _, f := range fields(t) {
		if f.casts == nil {
			continue
		}
		key, ok := findKey(out, f)
		if !ok || out[key] == nil {
			continue
		}
		val := out[key]
		for _, name := range f.casts {
			fn, known := lookupCast(name)
			if !known {
				return nil, &CastError{Field: f.name, Cast: name, Err: ErrUnknownCast}
			}
			next, err := fn(val)
			if err != nil {
				return nil, &CastError{Field: f.name, Cast: name, Err: err}
			}
			val = next
		}
		out[key] = val
	}
	return out, nil
}

func findKey(data map[string]any, f fieldInfo) (string, bool) {
	if _, ok := data[f.name]; ok {
		return f.name, true
	}
	for k := range data {
		if strings.EqualFold(k, f.name) || strings.EqualFold(k, f.goName) {
			return k, true
		}
	}
	return "", false
}

type fieldInfo struct {
	name   string
	goName string
	index  []int
	casts  []string
	hidden bool
}

// fields lists exported fields with embedded structs flattened.
func fields(t reflect.Type) []fieldInfo {
	var out []fieldInfo
	var walk func(t reflect.Type, parent []int)
	walk = func(t reflect.Type, parent []int) {
		for i := range t.NumField() {
			sf := t.Field(i)
			if !sf.IsExported() {
				continue
			}
			tag := sf.Tag.Get("model")
			if tag == "-" {
				continue
			}
			index := append(append([]int(nil), parent...), i)
			name, opts, _ := strings.Cut(tag, ",")

			if sf.Anonymous && name == "" && sf.Type.Kind() == reflect.Struct {
				walk(sf.Type, index)
				continue
			}
			if name == "" {
				name = jsonName(sf)
			}

			fi := fieldInfo{name: name, goName: sf.Name, index: index}
			fi.hidden = slices.Contains(strings.Split(opts, ","), "hidden")
			if c := sf.Tag.Get("cast"); c != "" {
				for _, part := range strings.Split(c, ",") {
					if part = strings.TrimSpace(part); part != "" {
						fi.casts = append(fi.casts, part)
					}
				}
			}
			out = append(out, fi)
		}
	}
	walk(t, nil)
	return out
}

func jsonName(sf reflect.StructField) string {
	if j, _, _ := strings.Cut(sf.Tag.Get("json"), ","); j != "" && j != "-" {
		return j
	}
	return sf.Name
}

// Expose returns the exported fields of src keyed by their model name.
// Fields tagged `model:",hidden"` are included only when listed in reveal.
//
// Example:
//
//	type User struct {
//	    Email    string `model:"email"`
//	    Password string `model:"password,hidden"`
//	}
//	model.Expose(u)             // {"email": ...}
//	model.Expose(u, "password") // {"email": ..., "password": ...}
func Expose(src any, reveal ...string) map[string]any {
	v := reflect.Indirect(reflect.ValueOf(src))
	if v.Kind() != reflect.Struct {
		return nil
	}

	out := make(map[string]any)
	for _, f := range fields(v.Type()) {
		if f.hidden && !slices.Contains(reveal, f.name) {
			continue
		}
		out[f.name] = v.FieldByIndex(f.index).Interface()
	}
	return out
}

// ToJSON encodes Expose(src, reveal...).
func ToJSON(src any, reveal ...string) ([]byte, error) {
	return json.Marshal(Expose(src, reveal...))
}

// Changes lists the model names of fields whose values differ between
// orig and cur, hidden fields included, sorted.
func Changes(orig, cur any) []string {
	a := exposeAll(orig)
	b := exposeAll(cur)

	var changed []string
	for k, bv := range b {
		if av, ok := a[k]; !ok || !reflect.DeepEqual(av, bv) {
			changed = append(changed, k)
		}
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			changed = append(changed, k)
		}
	}
	sort.Strings(changed)
	return changed
}

func exposeAll(src any) map[string]any {
	v := reflect.Indirect(reflect.ValueOf(src))
	if v.Kind() != reflect.Struct {
		return nil
	}
	out := make(map[string]any)
	for _, f := range fields(v.Type()) {
		out[f.name] = v.FieldByIndex(f.index).Interface()
	}
	return out
}
