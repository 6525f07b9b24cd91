package record

import (
	"fmt"
	"sort"
)

// Type is a named record schema: an ordered list of fields.
type Type struct {
	name   string
	fields []*Field
	index  map[string]*Field
}

// NewType declares a record type. Every default value is validated against
// its field kind at declaration time.
func NewType(name string, fields ...Field) (*Type, error) {
	t := &Type{
		name:  name,
		index: make(map[string]*Field, len(fields)),
	}

	for i := range fields {
		f := fields[i]
		if f.Name == "" {
			return nil, fmt.Errorf("type %s: field %d has no name", name, i)
		}
		if _, dup := t.index[f.Name]; dup {
			return nil, fmt.Errorf("type %s: duplicate field %s", name, f.Name)
		}
		if f.RefType != nil && f.Kind == nil {
			f.Kind = Ref
		}
		def, err := f.Resolve(f.Default)
		if err != nil {
			return nil, fmt.Errorf("type %s: invalid default: %w", name, err)
		}
		f.Default = def

		t.fields = append(t.fields, &f)
		t.index[f.Name] = &f
	}

	return t, nil
}

// MustNewType is like NewType but panics on an invalid declaration.
func MustNewType(name string, fields ...Field) *Type {
	t, err := NewType(name, fields...)
	if err != nil {
		panic(err)
	}
	return t
}

// Name returns the type name.
func (t *Type) Name() string {
	return t.name
}

// Fields returns the declared fields in declaration order.
func (t *Type) Fields() []*Field {
	return t.fields
}

// Field returns the named field.
func (t *Type) Field(name string) (*Field, bool) {
	f, ok := t.index[name]
	return f, ok
}

// Identifiers returns the identifier fields in declaration order. The first
// one is the local id, the following ones are parent ids.
func (t *Type) Identifiers() []*Field {
	var ids []*Field
	for _, f := range t.fields {
		if f.Identifier {
			ids = append(ids, f)
		}
	}
	return ids
}

// New creates a detached record from field values. Absent fields take their
// default value.
func (t *Type) New(values map[string]any) (*Record, error) {
	return t.build(values, (*Field).Resolve)
}

// FromRaw creates a detached record from backend-native values, converting
// them to the field kinds where possible.
func (t *Type) FromRaw(raw map[string]any) (*Record, error) {
	return t.build(raw, (*Field).Convert)
}

func (t *Type) build(values map[string]any, apply func(*Field, any) (any, error)) (*Record, error) {
	for name := range values {
		if _, ok := t.index[name]; !ok {
			return nil, fmt.Errorf("type %s: %w: %s", t.name, ErrNoSuchField, name)
		}
	}

	data := make(map[string]any, len(t.fields))
	for _, f := range t.fields {
		v, err := apply(f, values[f.Name])
		if err != nil {
			return nil, err
		}
		data[f.Name] = v
	}

	return &Record{
		typ:  t,
		data: data,
		old:  make(map[string]any),
	}, nil
}

// Schema is a set of record types addressable by name.
type Schema struct {
	types map[string]*Type
}

// NewSchema creates a schema holding the given types.
func NewSchema(types ...*Type) *Schema {
	s := &Schema{types: make(map[string]*Type, len(types))}
	for _, t := range types {
		s.types[t.Name()] = t
	}
	return s
}

// Add registers a type. A type with the same name is replaced.
func (s *Schema) Add(t *Type) {
	s.types[t.Name()] = t
}

// Type returns the named type.
func (s *Schema) Type(name string) (*Type, bool) {
	t, ok := s.types[name]
	return t, ok
}

// Lookup resolves type names, failing on the first unknown one.
func (s *Schema) Lookup(names ...string) ([]*Type, error) {
	types := make([]*Type, 0, len(names))
	for _, name := range names {
		t, ok := s.types[name]
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownType, name)
		}
		types = append(types, t)
	}
	return types, nil
}

// Types returns all types sorted by name.
func (s *Schema) Types() []*Type {
	types := make([]*Type, 0, len(s.types))
	for _, t := range s.types {
		types = append(types, t)
	}
	SortTypes(types)
	return types
}

// SortTypes sorts types by name in place.
func SortTypes(types []*Type) {
	sort.Slice(types, func(i, j int) bool {
		return types[i].Name() < types[j].Name()
	})
}
