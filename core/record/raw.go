package record

import (
	"fmt"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Raw returns a plain snapshot of field values. With dirty false it returns
// the values as of the last commit. Record-valued fields are flattened to
// their own raw form; a record reached twice is rendered once and shared, so
// reference cycles are tolerated.
func (r *Record) Raw(dirty bool) map[string]any {
	return r.raw(dirty, make(map[*Record]map[string]any))
}

func (r *Record) raw(dirty bool, memo map[*Record]map[string]any) map[string]any {
	if m, ok := memo[r]; ok {
		return m
	}

	out := make(map[string]any, len(r.data))
	memo[r] = out

	for name, v := range r.data {
		out[name] = flatten(v, dirty, memo)
	}
	if !dirty {
		for name, v := range r.old {
			out[name] = flatten(v, dirty, memo)
		}
	}

	return out
}

func flatten(v any, dirty bool, memo map[*Record]map[string]any) any {
	switch val := v.(type) {
	case *Record:
		if val == nil {
			return nil
		}
		return val.raw(dirty, memo)
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = flatten(e, dirty, memo)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = flatten(e, dirty, memo)
		}
		return out
	default:
		return v
	}
}

// Equal reports whether both records have the same type name and the same
// field values. Times compare by instant. Identity and store registration are
// ignored.
func (r *Record) Equal(o *Record) bool {
	if r == nil || o == nil {
		return r == o
	}
	if r.typ.name != o.typ.name {
		return false
	}
	return sameValue(r.Raw(true), o.Raw(true), 0)
}

// Hash returns a content hash consistent with Equal.
func (r *Record) Hash() uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(r.typ.name)
	writeValue(d, r.Raw(true), 0)
	return d.Sum64()
}

// hashDepth bounds how deep nested values are hashed. Cyclic graphs unroll
// into infinite trees; equal graphs share every bounded prefix.
const hashDepth = 16

func writeValue(d *xxhash.Digest, v any, depth int) {
	if depth > hashDepth {
		_, _ = d.WriteString("...")
		return
	}

	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		_, _ = d.WriteString("{")
		for _, k := range keys {
			_, _ = d.WriteString(k)
			_, _ = d.WriteString("=")
			writeValue(d, val[k], depth+1)
			_, _ = d.WriteString(";")
		}
		_, _ = d.WriteString("}")
	case []any:
		_, _ = d.WriteString("[")
		for _, e := range val {
			writeValue(d, e, depth+1)
			_, _ = d.WriteString(",")
		}
		_, _ = d.WriteString("]")
	case time.Time:
		_, _ = fmt.Fprintf(d, "time:%d.%09d", val.Unix(), val.Nanosecond())
	default:
		_, _ = fmt.Fprintf(d, "%T:%v", v, v)
	}
}
