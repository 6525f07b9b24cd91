package record

import (
	"math"
	"reflect"
	"time"
)

// normalize maps a value to the form it takes after a round trip through a
// wire encoding: times in UTC without a monotonic reading, integers as int
// when they fit, float32 as float64, slices as []any and string-keyed maps as
// map[string]any. Records, byte slices and other values are returned as is.
func normalize(v any) any {
	switch val := v.(type) {
	case nil, *Record, []byte, string, bool, int, float64:
		return v
	case time.Time:
		return val.Round(0).UTC()
	case float32:
		return float64(val)
	case []any:
		if val == nil {
			return nil
		}
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = normalize(e)
		}
		return out
	case map[string]any:
		if val == nil {
			return nil
		}
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = normalize(e)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if i := rv.Int(); i >= math.MinInt && i <= math.MaxInt {
			return int(i)
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if u := rv.Uint(); u <= math.MaxInt {
			return int(u)
		}
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return v
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = normalize(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		if rv.IsNil() {
			return nil
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = normalize(iter.Value().Interface())
		}
		return out
	}
	return v
}

// sameValue compares values for content equality. Times compare by instant.
// Past depth it defers to reflect.DeepEqual, which copes with the cyclic maps
// Raw produces for record cycles.
func sameValue(a, b any, depth int) bool {
	if depth > hashDepth {
		return reflect.DeepEqual(a, b)
	}

	switch x := a.(type) {
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	case map[string]any:
		y, ok := b.(map[string]any)
		if !ok || len(x) != len(y) || (x == nil) != (y == nil) {
			return false
		}
		for k, e := range x {
			o, ok := y[k]
			if !ok || !sameValue(e, o, depth+1) {
				return false
			}
		}
		return true
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) || (x == nil) != (y == nil) {
			return false
		}
		for i := range x {
			if !sameValue(x[i], y[i], depth+1) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}
