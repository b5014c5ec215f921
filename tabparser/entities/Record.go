package entities

import (
	"bytes"
	"encoding/json"
)

// Record is a single spreadsheet row keyed by header name. Keys keep the
// order the headers were resolved in, which a plain map would lose when
// marshalling, so Record carries its own key list and implements
// json.Marshaler. Setting an existing key overwrites the value but keeps
// the original position (last column wins on duplicate headers).
type Record struct {
	keys   []string
	values map[string]string
}

// NewRecord creates an empty record.
func NewRecord() *Record {
	return &Record{
		values: make(map[string]string),
	}
}

// Set stores a value under key, appending the key on first use.
func (r *Record) Set(key, value string) {
	if _, exists := r.values[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get returns the value for key and whether it is present.
func (r *Record) Get(key string) (string, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Len returns the number of keys in the record.
func (r *Record) Len() int {
	return len(r.keys)
}

// Keys returns the keys in insertion order.
func (r *Record) Keys() []string {
	return r.keys
}

// Empty reports whether the record carries no usable data: either no keys
// at all, or every value trimmed down to the empty string. Fully empty
// records come from blank trailing spreadsheet rows and are dropped.
func (r *Record) Empty() bool {
	for _, v := range r.values {
		if v != "" {
			return false
		}
	}
	return true
}

// MarshalJSON writes the record as a JSON object in key insertion order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(r.values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
