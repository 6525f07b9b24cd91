package record

import (
	"fmt"
	"strconv"

	"storesync/core/globalid"
)

// FromKey creates a record of t holding only the identifier values encoded in
// key, the inverse of Record.Key. Other fields take their default.
func (t *Type) FromKey(key string) (*Record, error) {
	ids := t.Identifiers()
	if len(ids) == 0 {
		return nil, fmt.Errorf("type %s has no identifier", t.name)
	}
	id, pids := globalid.Decode(key)
	if len(pids) != len(ids)-1 {
		return nil, fmt.Errorf("key %q has %d parts, type %s needs %d", key, len(pids)+1, t.name, len(ids))
	}

	parts := append([]string{id}, pids...)
	raw := make(map[string]any, len(ids))
	for i, f := range ids {
		v, err := parseSegment(f, parts[i])
		if err != nil {
			return nil, fmt.Errorf("key %q: field %s: %w", key, f.Name, err)
		}
		raw[f.Name] = v
	}
	return t.FromRaw(raw)
}

// parseSegment converts a key segment to the identifier kind. Other kinds are
// left to Field.Convert.
func parseSegment(f *Field, text string) (any, error) {
	switch f.Kind {
	case Int:
		return strconv.Atoi(text)
	case Float:
		return strconv.ParseFloat(text, 64)
	case Bool:
		return strconv.ParseBool(text)
	}
	return text, nil
}
