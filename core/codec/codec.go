package codec

import (
	"errors"
	"fmt"
	"reflect"

	"storesync/core/record"

	"github.com/fxamacker/cbor/v2"
)

// MaxDepth bounds the nesting of encoded records.
const MaxDepth = 32

// ErrTooDeep is returned for record graphs nested deeper than MaxDepth,
// including cyclic ones.
var ErrTooDeep = errors.New("record nesting too deep")

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{
		Sort:    cbor.SortCanonical,
		Time:    cbor.TimeRFC3339Nano,
		TimeTag: cbor.EncTagRequired,
	}.EncMode()
	if err != nil {
		panic(err)
	}

	decMode, err = cbor.DecOptions{
		TimeTagToAny:   cbor.TimeTagToTime,
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

// Encode returns the CBOR form of the record's current values.
func Encode(rec *record.Record) ([]byte, error) {
	raw := rec.Raw(true)
	if err := checkDepth(raw, 0); err != nil {
		return nil, fmt.Errorf("encode %s %s: %w", rec.Type().Name(), rec.Key(), err)
	}
	data, err := encMode.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("encode %s %s: %w", rec.Type().Name(), rec.Key(), err)
	}
	return data, nil
}

// Decode materializes a record of rtype from data produced by Encode.
func Decode(rtype *record.Type, data []byte) (*record.Record, error) {
	var raw map[string]any
	if err := decMode.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", rtype.Name(), err)
	}
	rec, err := rtype.FromRaw(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", rtype.Name(), err)
	}
	return rec, nil
}

func checkDepth(v any, depth int) error {
	if depth > MaxDepth {
		return ErrTooDeep
	}
	switch val := v.(type) {
	case map[string]any:
		for _, e := range val {
			if err := checkDepth(e, depth+1); err != nil {
				return err
			}
		}
	case []any:
		for _, e := range val {
			if err := checkDepth(e, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}
