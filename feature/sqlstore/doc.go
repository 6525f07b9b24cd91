// Package sqlstore implements a store backend on a SQL database through GORM.
//
// Every record is one row of a single table, keyed by record type name and
// record key, holding the CBOR encoded field values:
//
//	record_type | record_key | data | updated_at
//
// Pages without a filter are served by the database in key order. Filters
// apply to decoded values, so filtered finds and counts read every row of the
// type.
package sqlstore
