// Package replication keeps several stores in sync.
//
// A Registry holds an ordered set of stores and offers two kinds of
// operations:
//
//   - Fan-out (Add, Update, Get, Find, Remove): the operation is applied to
//     every selected store independently. A failing store never aborts the
//     call; each store's outcome is reported in Results.
//   - Synchronize: records are read page by page from each source store and
//     upserted into every target store. Any failure stops the run and is
//     returned as an *Error. Targets are not rolled back, so a failure on one
//     target can leave earlier targets updated.
//
// Synchronize scans sources by offset without a snapshot: records inserted or
// removed in a source during a run can be skipped or visited twice. The next
// run converges them.
//
// Watch adds live propagation: a write observed on one store is replayed on
// every other store of the registry.
package replication
