package schema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/hupe1980/decalflow/core"
)

// ValidationError describes the first point at which a value failed to match
// its descriptor.
type ValidationError struct {
	Path     string `json:"path"`     // JSON path of the offending value, "$" for the root
	Expected string `json:"expected"` // What the descriptor requires
	Actual   string `json:"actual"`   // What was found
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error at '%s': expected %s, got %s", e.Path, e.Expected, e.Actual)
}

// Validate checks v against d and returns the normalized value: objects as
// map[string]any with defaults applied, arrays as []any in input order,
// numbers as float64. It never coerces other than filling defaults.
func Validate(d *Descriptor, v any) (any, error) {
	return validate(d, v, "$")
}

// Normalize converts arbitrary Go values (structs, typed slices and maps)
// into the JSON-shaped form Validate expects.
func Normalize(v any) (any, error) {
	switch v.(type) {
	case nil, string, bool, float64, map[string]any, []any, core.MediaPart, *core.MediaPart:
		return v, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func validate(d *Descriptor, v any, path string) (any, error) {
	if d == nil {
		return nil, &ValidationError{Path: path, Expected: "a declared schema", Actual: "no schema"}
	}

	if d.Kind == KindOptional {
		if v == nil {
			return d.Default, nil
		}
		return validate(d.Elem, v, path)
	}

	if v == nil {
		return nil, mismatch(path, d, v)
	}

	switch d.Kind {
	case KindString:
		s, ok := v.(string)
		if !ok {
			return nil, mismatch(path, d, v)
		}
		if d.NonEmptyString && strings.TrimSpace(s) == "" {
			return nil, &ValidationError{Path: path, Expected: "non-empty string", Actual: strconv.Quote(s)}
		}
		return s, nil

	case KindNumber:
		f, ok := toFloat(v)
		if !ok {
			return nil, mismatch(path, d, v)
		}
		return f, nil

	case KindBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil, mismatch(path, d, v)
		}
		return b, nil

	case KindEnum:
		s, ok := v.(string)
		if !ok || !slices.Contains(d.Values, s) {
			return nil, &ValidationError{
				Path:     path,
				Expected: "one of [" + strings.Join(d.Values, ", ") + "]",
				Actual:   describe(v),
			}
		}
		return s, nil

	case KindArray:
		return validateArray(d, v, path)

	case KindObject:
		return validateObject(d, v, path)

	case KindMedia:
		return validateMedia(d, v, path)
	}

	return nil, &ValidationError{Path: path, Expected: "a known schema kind", Actual: d.Kind.String()}
}

func validateArray(d *Descriptor, v any, path string) (any, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, mismatch(path, d, v)
	}
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		elem, err := validate(d.Elem, rv.Index(i).Interface(), fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		out[i] = elem
	}
	return out, nil
}

func validateObject(d *Descriptor, v any, path string) (any, error) {
	in, ok := asObject(v)
	if !ok {
		return nil, mismatch(path, d, v)
	}

	if !d.AllowUnknown {
		var unknown []string
		for k := range in {
			if _, declared := d.Field(k); !declared {
				unknown = append(unknown, k)
			}
		}
		if len(unknown) > 0 {
			sort.Strings(unknown)
			return nil, &ValidationError{
				Path:     path + "." + unknown[0],
				Expected: "no undeclared fields",
				Actual:   "unknown field " + strconv.Quote(unknown[0]),
			}
		}
	}

	out := make(map[string]any, len(d.Fields))
	for _, f := range d.Fields {
		fieldPath := path + "." + f.Name
		raw, present := in[f.Name]
		if !present || raw == nil {
			if f.Schema != nil && f.Schema.Kind == KindOptional {
				if f.Schema.Default != nil {
					out[f.Name] = f.Schema.Default
				}
				continue
			}
			return nil, &ValidationError{Path: fieldPath, Expected: "required " + expected(f.Schema), Actual: "missing"}
		}
		val, err := validate(f.Schema, raw, fieldPath)
		if err != nil {
			return nil, err
		}
		out[f.Name] = val
	}
	return out, nil
}

func validateMedia(d *Descriptor, v any, path string) (any, error) {
	switch m := v.(type) {
	case core.MediaPart:
		if !m.IsInline() && m.URI == "" {
			return nil, &ValidationError{Path: path, Expected: "media with data or uri", Actual: "empty media"}
		}
		return m, nil
	case *core.MediaPart:
		if m == nil {
			return nil, mismatch(path, d, v)
		}
		return validateMedia(d, *m, path)
	case string:
		if strings.HasPrefix(m, "data:") || strings.HasPrefix(m, "https://") || strings.HasPrefix(m, "http://") {
			return m, nil
		}
		return nil, &ValidationError{Path: path, Expected: "data uri or http(s) url", Actual: describe(v)}
	}
	return nil, mismatch(path, d, v)
}

func asObject(v any) (map[string]any, bool) {
	if m, ok := v.(map[string]any); ok {
		return m, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func mismatch(path string, d *Descriptor, v any) *ValidationError {
	return &ValidationError{Path: path, Expected: expected(d), Actual: describe(v)}
}

func expected(d *Descriptor) string {
	if d == nil {
		return "value"
	}
	switch d.Kind {
	case KindString:
		if d.NonEmptyString {
			return "non-empty string"
		}
	case KindOptional:
		return expected(d.Elem)
	case KindMedia:
		if d.Media != nil && d.Media.MIMEType != "" {
			return "media (" + d.Media.MIMEType + ")"
		}
	}
	return d.Kind.String()
}

func describe(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		if r := []rune(x); len(r) > 40 {
			x = string(r[:40]) + "..."
		}
		return "string " + strconv.Quote(x)
	case bool:
		return "boolean"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	}
	if _, ok := toFloat(v); ok {
		return "number"
	}
	return fmt.Sprintf("%T", v)
}
