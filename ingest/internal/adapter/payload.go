package adapter

import (
	"bytes"
	"encoding/json"
	"strings"
)

// object is a decoded JSON object whose fields are inspected lazily.
type object map[string]json.RawMessage

func decodeObject(raw []byte) (object, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}
	var o object
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, false
	}
	return o, true
}

// present reports whether key exists with a non-null value.
func (o object) present(key string) bool {
	raw, ok := o[key]
	return ok && !bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// text returns a non-empty string field, or the literal of a numeric field.
func (o object) text(key string) Optional {
	if !o.present(key) {
		return None()
	}
	raw := bytes.TrimSpace(o[key])
	switch {
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil || strings.TrimSpace(s) == "" {
			return None()
		}
		return Some(s)
	case raw[0] == '-' || (raw[0] >= '0' && raw[0] <= '9'):
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return None()
		}
		return Some(n.String())
	}
	return None()
}

// number returns a field only when it is a JSON number.
func (o object) number(key string) *float64 {
	if !o.present(key) {
		return nil
	}
	raw := bytes.TrimSpace(o[key])
	if raw[0] != '-' && (raw[0] < '0' || raw[0] > '9') {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil
	}
	return &f
}

// object returns a nested object field, or nil.
func (o object) object(key string) object {
	if !o.present(key) {
		return nil
	}
	nested, _ := decodeObject(o[key])
	return nested
}
