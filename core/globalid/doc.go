// Package globalid encodes a local identifier and its ordered parent
// identifiers into one flat string, and decodes it back.
//
// Backends that only support flat addressing (an object name, a single primary
// key column) use it to address records that are naturally nested, such as a
// comment inside a thread inside a project.
//
// # Format
//
// Every parent id is appended as `::<n>::<parent>` where n is the length of the
// segment immediately before the marker:
//
//	Encode("c1", "t9", "p1") == "c1::2::t9::2::p1"
//
// The length marker lets the decoder tell a separator inserted by the encoder
// from a `::` that occurs inside an id:
//
//	Encode("a::b", "c") == "a::b::4::c"
//	Decode("a::b::4::c") == ("a::b", ["c"])
//
// # Limitations
//
// Decoding is ambiguous when an id itself contains `::<n>::` where n happens to
// equal the length of the text before it (for example "a::1::b"), and when an
// id starts or ends with a single ':'. Such ids do not round-trip.
package globalid
