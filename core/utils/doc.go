// Package utils provides loose conversion helpers shared by the record schema
// and the storage backends, which receive values in whatever shape their wire
// format decodes to (uint64 from CBOR, strings from configuration files).
package utils
