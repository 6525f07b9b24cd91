// Package store provides the Store façade: a named backend that dispatches
// record operations to the accessor registered for each record type, keeps
// every record's store set current and notifies observers after successful
// writes.
//
// Stores are usually built from configuration through a Builder, which maps a
// backend kind to the factory constructing it.
package store
