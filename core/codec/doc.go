// Package codec encodes records for storage backends as CBOR.
//
// A record is written as the CBOR map of its raw field values. Times are
// tagged RFC 3339 strings and nested records are nested maps, so a record
// graph must be acyclic to be encoded.
package codec
