package table

import (
	"encoding/json"
	"math"
	"strconv"
)

// ValueType defines the storage type for a cell
type ValueType string

const (
	ValueTypeNumeric ValueType = "numeric"
	ValueTypeText    ValueType = "text"
	ValueTypeMissing ValueType = "missing"
)

// Value is a single typed cell: a number, a piece of text, or missing
type Value struct {
	Type ValueType
	Num  float64
	Str  string
}

// NewNumericValue creates a numeric value. NaN is stored as missing.
func NewNumericValue(n float64) Value {
	if math.IsNaN(n) {
		return NewMissingValue()
	}
	return Value{Type: ValueTypeNumeric, Num: n}
}

// NewTextValue creates a text value
func NewTextValue(s string) Value {
	return Value{Type: ValueTypeText, Str: s}
}

// NewMissingValue creates a missing value
func NewMissingValue() Value {
	return Value{Type: ValueTypeMissing}
}

func (v Value) IsNumeric() bool { return v.Type == ValueTypeNumeric }
func (v Value) IsText() bool    { return v.Type == ValueTypeText }

// IsMissing treats the zero Value as missing too
func (v Value) IsMissing() bool {
	return v.Type == ValueTypeMissing || v.Type == ""
}

// AsFloat64 returns the numeric value, or NaN if the value is not numeric
func (v Value) AsFloat64() float64 {
	if v.IsNumeric() {
		return v.Num
	}
	return math.NaN()
}

// String renders the value the way it is written to CSV: shortest round-trip
// form for numbers, empty for missing.
func (v Value) String() string {
	switch v.Type {
	case ValueTypeNumeric:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case ValueTypeText:
		return v.Str
	default:
		return ""
	}
}

// MarshalJSON encodes numbers as JSON numbers, text as strings and missing as null
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Type {
	case ValueTypeNumeric:
		return Float(v.Num).MarshalJSON()
	case ValueTypeText:
		return json.Marshal(v.Str)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts any JSON scalar
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = ValueFromAny(raw)
	return nil
}

// ValueFromAny converts a decoded JSON (or Go) scalar into a Value.
// Strings are kept as text; coercion of raw cell text is the importer's job.
func ValueFromAny(raw interface{}) Value {
	switch x := raw.(type) {
	case nil:
		return NewMissingValue()
	case Value:
		return x
	case float64:
		return NewNumericValue(x)
	case float32:
		return NewNumericValue(float64(x))
	case int:
		return NewNumericValue(float64(x))
	case int64:
		return NewNumericValue(float64(x))
	case int32:
		return NewNumericValue(float64(x))
	case json.Number:
		if f, err := x.Float64(); err == nil {
			return NewNumericValue(f)
		}
		return NewTextValue(x.String())
	case string:
		return NewTextValue(x)
	case bool:
		return NewTextValue(strconv.FormatBool(x))
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return NewMissingValue()
		}
		return NewTextValue(string(b))
	}
}

// Float is a float64 whose JSON form maps NaN and ±Inf to null
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	x := float64(f)
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(x, 'g', -1, 64)), nil
}

// ColumnKind summarises the values held by a column
type ColumnKind string

const (
	KindNumeric ColumnKind = "numeric"
	KindText    ColumnKind = "text"
	KindEmpty   ColumnKind = "empty"
)

// Column is a named sequence of values
type Column struct {
	Name   string     `json:"name"`
	Kind   ColumnKind `json:"kind"`
	Values []Value    `json:"values"`
}

// InferKind returns KindText if any value is text, KindNumeric if at least one
// value is a number and the rest are missing, and KindEmpty otherwise.
func InferKind(values []Value) ColumnKind {
	kind := KindEmpty
	for _, v := range values {
		switch {
		case v.IsText():
			return KindText
		case v.IsNumeric():
			kind = KindNumeric
		}
	}
	return kind
}

// Floats returns the non-missing numeric values of the column
func (c *Column) Floats() []float64 {
	out := make([]float64, 0, len(c.Values))
	for _, v := range c.Values {
		if v.IsNumeric() {
			out = append(out, v.Num)
		}
	}
	return out
}

// HasMissing reports whether any value in the column is missing
func (c *Column) HasMissing() bool {
	for _, v := range c.Values {
		if v.IsMissing() {
			return true
		}
	}
	return false
}
