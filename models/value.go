package models

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Value is a numeric field of an evaluation payload. JSON numbers are held as
// decimals; anything else is kept verbatim so it can still be shown and
// encoded again unchanged. The zero Value means the field was absent.
type Value struct {
	dec decimal.Decimal
	num bool
	raw json.RawMessage
}

// Number wraps d as a numeric Value.
func Number(d decimal.Decimal) Value {
	return Value{dec: d, num: true}
}

// Decimal returns the number and whether the value is numeric.
func (v Value) Decimal() (decimal.Decimal, bool) {
	return v.dec, v.num
}

// IsZero reports whether the field was absent.
func (v Value) IsZero() bool {
	return !v.num && v.raw == nil
}

// Equal reports whether v is numeric and equal to d.
func (v Value) Equal(d decimal.Decimal) bool {
	return v.num && v.dec.Equal(d)
}

// Raw returns the JSON of a non-numeric value.
func (v Value) Raw() json.RawMessage {
	return v.raw
}

func (v Value) String() string {
	if v.num {
		return v.dec.String()
	}
	return rawText(v.raw)
}

// StringFixed rounds numbers to places; other values print as sent.
func (v Value) StringFixed(places int32) string {
	if v.num {
		return v.dec.StringFixed(places)
	}
	return rawText(v.raw)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && (trimmed[0] == '-' || (trimmed[0] >= '0' && trimmed[0] <= '9')) {
		if d, err := decimal.NewFromString(string(trimmed)); err == nil {
			*v = Value{dec: d, num: true}
			return nil
		}
	}
	*v = Value{raw: append(json.RawMessage(nil), trimmed...)}
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch {
	case v.num:
		return []byte(v.dec.String()), nil
	case v.raw != nil:
		return v.raw, nil
	default:
		return []byte("null"), nil
	}
}

// rawText prints JSON strings without quotes and everything else as sent.
// null prints as an empty string.
func rawText(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s
	}
	return string(trimmed)
}
