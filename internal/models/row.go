package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Row is one roster or candidate row: a JSON object whose key order is kept
// exactly as received. Values are held as raw JSON.
type Row struct {
	keys   []string
	values []json.RawMessage
}

// Rows is an ordered sequence of rows.
type Rows []Row

// NewRow builds a row from alternating key, value pairs. Values are JSON-encoded.
func NewRow(kv ...interface{}) (Row, error) {
	if len(kv)%2 != 0 {
		return Row{}, errors.New("row: odd number of arguments")
	}
	var r Row
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			return Row{}, fmt.Errorf("row: key %v is not a string", kv[i])
		}
		raw, err := json.Marshal(kv[i+1])
		if err != nil {
			return Row{}, fmt.Errorf("row: encode %q: %w", k, err)
		}
		r.set(k, raw)
	}
	return r, nil
}

// MustRow is NewRow that panics on error. Intended for fixtures.
func MustRow(kv ...interface{}) Row {
	r, err := NewRow(kv...)
	if err != nil {
		panic(err)
	}
	return r
}

// Len is the number of keys.
func (r Row) Len() int { return len(r.keys) }

// Keys returns the keys in insertion order.
func (r Row) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// At returns the raw value at position i.
func (r Row) At(i int) (json.RawMessage, bool) {
	if i < 0 || i >= len(r.values) {
		return nil, false
	}
	return r.values[i], true
}

// Get returns the raw value for key.
func (r Row) Get(key string) (json.RawMessage, bool) {
	for i, k := range r.keys {
		if k == key {
			return r.values[i], true
		}
	}
	return nil, false
}

// GetFold is Get with a case-insensitive key match; the first matching key wins.
func (r Row) GetFold(key string) (json.RawMessage, bool) {
	for i, k := range r.keys {
		if strings.EqualFold(k, key) {
			return r.values[i], true
		}
	}
	return nil, false
}

// set overwrites an existing key in place, otherwise appends.
func (r *Row) set(key string, raw json.RawMessage) {
	for i, k := range r.keys {
		if k == key {
			r.values[i] = raw
			return
		}
	}
	r.keys = append(r.keys, key)
	r.values = append(r.values, raw)
}

// MarshalJSON writes the object with keys in their original order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		if len(r.values[i]) == 0 {
			buf.WriteString("null")
		} else {
			buf.Write(r.values[i])
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object token by token so key order is retained.
// A repeated key keeps its first position and takes the last value.
func (r *Row) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("row: expected JSON object")
	}
	var out Row
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return errors.New("row: expected object key")
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("row: value for %q: %w", key, err)
		}
		out.set(key, raw)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = out
	return nil
}

// ParseRows decodes a JSON array of objects.
func ParseRows(s string) (Rows, error) {
	var rows Rows
	if err := json.Unmarshal([]byte(s), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// JSONText returns the compact JSON of raw, or "" if it is not valid JSON.
func JSONText(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return ""
	}
	return buf.String()
}

// StringValue renders a raw scalar the way it reads as text: strings unquoted,
// numbers and booleans as written, null as "". Objects and arrays stay JSON.
func StringValue(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	text := JSONText(raw)
	if text == "null" {
		return ""
	}
	return text
}
