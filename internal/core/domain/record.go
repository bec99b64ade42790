package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Record is one flat object of a persisted collection. Values keep the
// shape they were decoded with; numbers are json.Number.
type Record map[string]any

const ItemIDField = "id"

// opaqueKey holds the raw JSON of a collection element that is not an
// object. Decoded values are never json.RawMessage, so callers cannot forge it.
const opaqueKey = "\x00element"

// OpaqueRecord wraps a non-object collection element so it can be carried
// through a load/save cycle unchanged.
func OpaqueRecord(raw json.RawMessage) Record {
	return Record{opaqueKey: raw}
}

// Opaque returns the raw JSON of a record built by OpaqueRecord.
func (r Record) Opaque() (json.RawMessage, bool) {
	if len(r) != 1 {
		return nil, false
	}
	raw, ok := r[opaqueKey].(json.RawMessage)
	return raw, ok
}

// MarshalJSON writes opaque records back verbatim and every other record as
// a plain object.
func (r Record) MarshalJSON() ([]byte, error) {
	if raw, ok := r.Opaque(); ok {
		return raw, nil
	}
	return json.Marshal(map[string]any(r))
}

// ID returns the string form of the record's id field.
// ok is false when the record carries no id.
func (r Record) ID() (id string, ok bool) {
	v, exists := r[ItemIDField]
	if !exists || v == nil {
		return "", false
	}
	return stringify(v), true
}

// Merge copies every key of partial into r, overwriting existing keys.
func (r Record) Merge(partial Record) {
	for k, v := range partial {
		r[k] = v
	}
}

// Clone returns a shallow copy.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// stringify renders numbers by their JSON literal text, so 1e3 stays "1e3".
func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprint(t)
	}
}
