// Package signal models observed facts about a target project.
//
// A [Value] is a typed scalar observation (boolean, number, or string), and a
// [Set] is an immutable snapshot of named values for one resolution. Sets are
// compared structurally via [Set.Hash], so unrelated churn in how a set was
// produced never registers as a change.
package signal

import (
	"fmt"

	"github.com/goccy/go-yaml"
	"github.com/invopop/jsonschema"
)

// Kind identifies the type of a signal value.
type Kind string

const (
	KindBool   Kind = "bool"
	KindNumber Kind = "number"
	KindString Kind = "string"
)

// Value is a single typed observation. The zero Value has no kind and
// compares unequal to everything, including itself.
//
// Fields are exported for structural hashing; use the constructors and
// accessors rather than writing fields directly.
type Value struct {
	Kind   Kind    `json:"kind"`
	Bool   bool    `json:"bool,omitempty"`
	Number float64 `json:"number,omitempty"`
	String string  `json:"string,omitempty"`
}

// NewBool creates a boolean [Value].
func NewBool(v bool) Value {
	return Value{Kind: KindBool, Bool: v}
}

// NewNumber creates a numeric [Value].
func NewNumber(v float64) Value {
	return Value{Kind: KindNumber, Number: v}
}

// NewString creates a string [Value].
func NewString(v string) Value {
	return Value{Kind: KindString, String: v}
}

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(other Value) bool {
	if v.Kind == "" || v.Kind != other.Kind {
		return false
	}

	switch v.Kind {
	case KindBool:
		return v.Bool == other.Bool
	case KindNumber:
		return v.Number == other.Number
	case KindString:
		return v.String == other.String
	}

	return false
}

// UnmarshalYAML decodes a value from a YAML scalar.
// Implements [github.com/goccy/go-yaml.BytesUnmarshaler].
func (v *Value) UnmarshalYAML(data []byte) error {
	var raw any

	err := yaml.Unmarshal(data, &raw)
	if err != nil {
		return fmt.Errorf("unmarshal signal value: %w", err)
	}

	switch val := raw.(type) {
	case bool:
		*v = NewBool(val)
	case int:
		*v = NewNumber(float64(val))
	case int64:
		*v = NewNumber(float64(val))
	case uint64:
		*v = NewNumber(float64(val))
	case float64:
		*v = NewNumber(val)
	case string:
		*v = NewString(val)
	default:
		return fmt.Errorf("signal value must be a boolean, number, or string, got %T", raw)
	}

	return nil
}

// MarshalYAML encodes the value as a YAML scalar.
// Implements [github.com/goccy/go-yaml.InterfaceMarshaler].
func (v Value) MarshalYAML() (any, error) {
	switch v.Kind {
	case KindBool:
		return v.Bool, nil
	case KindNumber:
		return v.Number, nil
	case KindString:
		return v.String, nil
	}

	return nil, fmt.Errorf("signal value has no kind")
}

// JSONSchema overrides the reflected schema so descriptors author values as
// plain scalars.
func (Value) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Title: "Signal Value",
		OneOf: []*jsonschema.Schema{
			{Type: "boolean"},
			{Type: "number"},
			{Type: "string"},
		},
	}
}

func (v Value) GoString() string {
	switch v.Kind {
	case KindBool:
		return fmt.Sprintf("%t", v.Bool)
	case KindNumber:
		return fmt.Sprintf("%g", v.Number)
	case KindString:
		return fmt.Sprintf("%q", v.String)
	}

	return "<unset>"
}
