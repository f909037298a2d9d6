package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// RequestID is a JSON-RPC id. It keeps the id's original JSON encoding so a
// response echoes exactly what the request carried.
type RequestID struct {
	raw json.RawMessage
}

// NewRequestID creates a RequestID from a string or number. Other values
// produce a null id.
func NewRequestID(value interface{}) *RequestID {
	switch v := value.(type) {
	case string, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		b, err := json.Marshal(v)
		if err != nil {
			return &RequestID{}
		}
		return &RequestID{raw: b}
	default:
		return &RequestID{}
	}
}

// String returns the string representation of the ID
func (id *RequestID) String() string {
	if id.IsNil() {
		return ""
	}
	var s string
	if err := json.Unmarshal(id.raw, &s); err == nil {
		return s
	}
	return string(id.raw)
}

// Value decodes the id into a string, int64, float64 or, for ids that are
// neither, the generic decoded JSON value.
func (id *RequestID) Value() interface{} {
	if id.IsNil() {
		return nil
	}
	if n, err := strconv.ParseInt(string(id.raw), 10, 64); err == nil {
		return n
	}
	var v interface{}
	if err := json.Unmarshal(id.raw, &v); err != nil {
		return nil
	}
	return v
}

// IsNil returns true if the ID is absent or JSON null.
func (id *RequestID) IsNil() bool {
	if id == nil {
		return true
	}
	return len(id.raw) == 0 || bytes.Equal(id.raw, []byte("null"))
}

// MarshalJSON implements json.Marshaler
func (id *RequestID) MarshalJSON() ([]byte, error) {
	if id.IsNil() {
		return []byte("null"), nil
	}
	return id.raw, nil
}

// UnmarshalJSON implements json.Unmarshaler. Any JSON value is accepted and
// kept verbatim.
func (id *RequestID) UnmarshalJSON(data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("JSON-RPC ID is not valid JSON: %s", string(data))
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return err
	}
	id.raw = buf.Bytes()
	return nil
}
