package store

import (
	"context"
	"fmt"
	"sort"

	"storesync/core/record"

	"github.com/go-viper/mapstructure/v2"
)

// Spec declares one store.
type Spec struct {
	// Name is the unique store name.
	Name string `mapstructure:"name"`
	// Kind selects the factory building the store (e.g. "memory", "sql").
	Kind string `mapstructure:"kind"`
	// Types lists the record type names the store serves. Empty means every
	// declared type.
	Types []string `mapstructure:"types"`
	// Options holds backend specific settings.
	Options map[string]any `mapstructure:"options"`
}

// DecodeOptions decodes the spec options into out.
func (s Spec) DecodeOptions(out any) error {
	if len(s.Options) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(s.Options); err != nil {
		return fmt.Errorf("store %s: options: %w", s.Name, err)
	}
	return nil
}

// Factory builds a store of one kind.
type Factory func(ctx context.Context, spec Spec, types []*record.Type) (*Store, error)

// Builder resolves store specs against a schema and a set of factories.
type Builder struct {
	schema    *record.Schema
	factories map[string]Factory
}

// NewBuilder returns a builder with no factories.
func NewBuilder(schema *record.Schema) *Builder {
	return &Builder{
		schema:    schema,
		factories: make(map[string]Factory),
	}
}

// Register maps kind to f, replacing any previous factory.
func (b *Builder) Register(kind string, f Factory) {
	b.factories[kind] = f
}

// Kinds returns the registered kinds, sorted.
func (b *Builder) Kinds() []string {
	kinds := make([]string, 0, len(b.factories))
	for k := range b.factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Build constructs the store declared by spec.
func (b *Builder) Build(ctx context.Context, spec Spec) (*Store, error) {
	if spec.Name == "" {
		return nil, fmt.Errorf("store spec has no name")
	}
	f, ok := b.factories[spec.Kind]
	if !ok {
		return nil, fmt.Errorf("store %s: unknown kind %q", spec.Name, spec.Kind)
	}

	var types []*record.Type
	if len(spec.Types) == 0 {
		types = b.schema.Types()
	} else {
		var err error
		if types, err = b.schema.Lookup(spec.Types...); err != nil {
			return nil, fmt.Errorf("store %s: %w", spec.Name, err)
		}
	}

	s, err := f(ctx, spec, types)
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", spec.Name, err)
	}
	return s, nil
}

// BuildAll constructs every store in order. Names must be unique.
func (b *Builder) BuildAll(ctx context.Context, specs []Spec) ([]*Store, error) {
	seen := make(map[string]bool, len(specs))
	stores := make([]*Store, 0, len(specs))
	for _, spec := range specs {
		if seen[spec.Name] {
			return nil, fmt.Errorf("duplicate store %q", spec.Name)
		}
		seen[spec.Name] = true

		s, err := b.Build(ctx, spec)
		if err != nil {
			return nil, err
		}
		stores = append(stores, s)
	}
	return stores, nil
}
