// Package memory implements an in-process store backend. Records are kept as
// detached deep copies, keyed by type name and record key.
//
// It backs the "memory" store kind and is used as a scratch or cache store
// next to durable backends.
package memory
