package record

import (
	"reflect"
	"time"

	"storesync/core/utils"
)

// Field kinds. A nil kind accepts any value.
var (
	String reflect.Type = reflect.TypeOf("")
	Int    reflect.Type = reflect.TypeOf(0)
	Float  reflect.Type = reflect.TypeOf(float64(0))
	Bool   reflect.Type = reflect.TypeOf(false)
	Time   reflect.Type = reflect.TypeOf(time.Time{})
	Bytes  reflect.Type = reflect.TypeOf([]byte(nil))
	Ref    reflect.Type = reflect.TypeOf((*Record)(nil))
	Any    reflect.Type
)

// Field declares one attribute of a record type.
type Field struct {
	// Name is the field name, unique within its type.
	Name string
	// Kind is the type constraint for values. Nil accepts anything.
	Kind reflect.Type
	// RefType restricts record-valued fields (Kind == Ref) to one record type.
	RefType *Type
	// Default replaces absent values.
	Default any
	// Description is free text.
	Description string
	// Identifier marks the field as part of the record identity.
	Identifier bool
}

// Resolve returns value, or the default when value is absent, after checking
// it against the field kind. Times and values of untyped fields are stored in
// their wire-stable form (see normalize).
func (f *Field) Resolve(value any) (any, error) {
	result := value
	if isNil(result) {
		result = f.Default
	}
	if isNil(result) {
		return nil, nil
	}

	if f.Kind != nil && !reflect.TypeOf(result).AssignableTo(f.Kind) {
		return nil, f.mismatch(value)
	}
	if f.RefType != nil {
		if rec, ok := result.(*Record); ok && rec.Type() != f.RefType {
			return nil, f.mismatch(value)
		}
	}
	if f.Kind == nil || f.Kind == Time {
		result = normalize(result)
	}

	return result, nil
}

// Convert coerces a backend-native value (as decoded from a wire format) to
// the field kind before resolving it. Unlike Resolve it accepts loose numeric
// and textual forms.
func (f *Field) Convert(value any) (any, error) {
	if isNil(value) || f.Kind == nil {
		return f.Resolve(value)
	}
	if reflect.TypeOf(value).AssignableTo(f.Kind) {
		return f.Resolve(value)
	}

	var converted any
	switch f.Kind {
	case String:
		converted = utils.ToString(value)
	case Int:
		if !isNumeric(value) {
			return nil, f.mismatch(value)
		}
		converted = utils.ToInt(value)
	case Float:
		if !isNumeric(value) {
			return nil, f.mismatch(value)
		}
		converted = utils.ToFloat(value)
	case Bool:
		converted = utils.ToBool(value)
	case Time:
		t, ok := utils.ToTime(value)
		if !ok {
			return nil, f.mismatch(value)
		}
		converted = t
	case Bytes:
		s, ok := value.(string)
		if !ok {
			return nil, f.mismatch(value)
		}
		converted = []byte(s)
	case Ref:
		raw, ok := asRawMap(value)
		if !ok || f.RefType == nil {
			return nil, f.mismatch(value)
		}
		rec, err := f.RefType.FromRaw(raw)
		if err != nil {
			return nil, err
		}
		converted = rec
	default:
		rv := reflect.ValueOf(value)
		if !rv.Type().ConvertibleTo(f.Kind) {
			return nil, f.mismatch(value)
		}
		converted = rv.Convert(f.Kind).Interface()
	}

	return f.Resolve(converted)
}

func (f *Field) mismatch(value any) error {
	expected := "any"
	if f.Kind != nil {
		expected = f.Kind.String()
	}
	if f.RefType != nil {
		expected = "record " + f.RefType.Name()
	}
	return &TypeMismatchError{Field: f.Name, Value: value, Expected: expected}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

func isNumeric(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	}
	return false
}

func asRawMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[utils.ToString(k)] = val
		}
		return out, true
	}
	return nil, false
}
