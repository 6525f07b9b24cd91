// Package accessor defines the contract between stores and backends.
//
// An Accessor performs the physical create/add/update/get/find/count/remove
// operations for a set of record types against one backend's native
// representation. Concrete accessors live in the feature packages
// (memory, sqlstore, objectstore).
//
// # Errors
//
// Accessors only return *Error values whose Kind is one of ErrAlreadyExists,
// ErrNotFound, ErrValidation or ErrBackend. Stores wrap them into their own
// error type, so each layer exposes a single taxonomy.
//
// # Registry
//
// Registry maps a record type to the accessor responsible for it. Lookups
// never fail: an unmapped type yields nil.
package accessor
