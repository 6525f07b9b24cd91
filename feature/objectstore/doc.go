// Package objectstore implements a store backend on an S3 compatible bucket.
//
// Each record is one CBOR object named
//
//	<prefix>/<type>/<escaped key>.cbor
//
// where the key is path escaped. Listings are sorted by record key before
// pagination. Writes of a batch are not atomic: a failing put leaves the
// objects written before it.
package objectstore
