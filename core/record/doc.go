// Package record provides the schema'd data container synchronized between
// stores.
//
// # Types and fields
//
// A Type is an ordered list of Field declarations. Each field has a kind (a
// Go type constraint), a default value validated at declaration time, a
// description and an identifier flag:
//
//	project := record.MustNewType("project",
//	    record.Field{Name: "id", Kind: record.String, Identifier: true},
//	    record.Field{Name: "title", Kind: record.String, Default: "untitled"},
//	)
//
// Types may also be declared in configuration through TypeSpec and built into
// a Schema with BuildSchema.
//
// # Records
//
// A Record tracks its current values, the values as of the last commit (an
// undo log used by Cancel) and the stores it is registered with. Writes are
// validated by the field; an invalid value is rejected, never coerced.
//
//	r, _ := project.New(map[string]any{"id": "p1"})
//	_ = r.Set("title", "sync engine")
//	r.IsDirty() // true
//	r.Cancel()  // title is "untitled" again
//
// Records compare by content: two records of the same type with equal field
// values are Equal and have the same Hash regardless of identity.
//
// # Identity
//
// Identifier fields form the record Key. The first identifier is the local id
// and the following ones are parent ids, combined with package globalid.
package record
