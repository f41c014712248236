package entities

import (
	"encoding/json"
	"fmt"
)

// Record is the untyped form of a node, relationship or graph: the shape
// callers pass in and the shape stored documents decode into.
type Record map[string]any

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	return CloneValue(map[string]any(r)).(map[string]any)
}

// Merge returns a shallow merge of patch over r. Keys present in patch win.
func (r Record) Merge(patch Record) Record {
	out := make(Record, len(r)+len(patch))
	for k, v := range r {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// String reads a textual field, returning "" when absent or not text. Typed
// enums such as NodeKind read as their underlying string.
func (r Record) String(key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case NodeKind:
		return string(v)
	case RelationshipType:
		return string(v)
	case fmt.Stringer:
		return v.String()
	}
	return ""
}

// ToRecord converts any JSON-serializable value into a Record.
func ToRecord(v any) (Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}

// CloneValue deep-copies maps and slices produced by JSON decoding or built
// by callers as metadata. Other values are returned as is.
func CloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = CloneValue(val)
		}
		return out
	case Record:
		return Record(CloneValue(map[string]any(t)).(map[string]any))
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = CloneValue(val)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

func cloneMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	return CloneValue(m).(map[string]any)
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
