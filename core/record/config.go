package record

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"storesync/core/utils"
)

// FieldSpec declares a field in configuration.
type FieldSpec struct {
	// Name is the field name.
	Name string `mapstructure:"name"`
	// Kind is one of string, int, float, bool, time, bytes, any or
	// record:<type> for a nested record of a previously declared type.
	Kind string `mapstructure:"kind"`
	// Default is the textual default value, parsed according to Kind.
	Default string `mapstructure:"default"`
	// Description is free text.
	Description string `mapstructure:"description"`
	// Identifier marks the field as part of the record identity.
	Identifier bool `mapstructure:"identifier"`
}

// TypeSpec declares a record type in configuration.
type TypeSpec struct {
	// Name is the record type name.
	Name string `mapstructure:"name"`
	// Fields are the declared fields, identifiers first by convention.
	Fields []FieldSpec `mapstructure:"fields"`
}

// BuildSchema builds a schema from type specs. A nested record kind must
// refer to a type declared earlier in specs.
func BuildSchema(specs []TypeSpec) (*Schema, error) {
	schema := NewSchema()

	for _, ts := range specs {
		fields := make([]Field, 0, len(ts.Fields))
		for _, fs := range ts.Fields {
			f, err := fs.field(schema)
			if err != nil {
				return nil, fmt.Errorf("type %s: %w", ts.Name, err)
			}
			fields = append(fields, f)
		}

		t, err := NewType(ts.Name, fields...)
		if err != nil {
			return nil, err
		}
		schema.Add(t)
	}

	return schema, nil
}

func (fs FieldSpec) field(schema *Schema) (Field, error) {
	f := Field{
		Name:        fs.Name,
		Description: fs.Description,
		Identifier:  fs.Identifier,
	}

	kind := strings.ToLower(strings.TrimSpace(fs.Kind))
	if ref, ok := strings.CutPrefix(kind, "record:"); ok {
		t, found := schema.Type(ref)
		if !found {
			return f, fmt.Errorf("field %s: unknown record type %q", fs.Name, ref)
		}
		f.Kind = Ref
		f.RefType = t
		return f, nil
	}

	k, err := ParseKind(kind)
	if err != nil {
		return f, fmt.Errorf("field %s: %w", fs.Name, err)
	}
	f.Kind = k

	if fs.Default != "" {
		def, err := parseDefault(f, fs.Default)
		if err != nil {
			return f, err
		}
		f.Default = def
	}

	return f, nil
}

func parseDefault(f Field, text string) (any, error) {
	text = strings.TrimSpace(text)

	var (
		v   any
		err error
	)
	switch f.Kind {
	case Int:
		v, err = strconv.Atoi(text)
	case Float:
		v, err = strconv.ParseFloat(text, 64)
	case Bool:
		v, err = strconv.ParseBool(text)
	default:
		return f.Convert(text)
	}
	if err != nil {
		return nil, fmt.Errorf("field %s: invalid default %q: %w", f.Name, text, err)
	}
	return v, nil
}

// ParseKind maps a kind name to its field kind.
func ParseKind(name string) (reflect.Type, error) {
	switch name {
	case "string", "":
		return String, nil
	case "int":
		return Int, nil
	case "float":
		return Float, nil
	case "bool":
		return Bool, nil
	case "time":
		return Time, nil
	case "bytes":
		return Bytes, nil
	case "any":
		return Any, nil
	default:
		return nil, fmt.Errorf("unknown field kind %q", name)
	}
}

// KindName is the inverse of ParseKind.
func KindName(f *Field) string {
	switch {
	case f.RefType != nil:
		return "record:" + f.RefType.Name()
	case f.Kind == nil:
		return "any"
	case f.Kind == String:
		return "string"
	case f.Kind == Int:
		return "int"
	case f.Kind == Float:
		return "float"
	case f.Kind == Bool:
		return "bool"
	case f.Kind == Time:
		return "time"
	case f.Kind == Bytes:
		return "bytes"
	default:
		return utils.ToString(f.Kind)
	}
}
