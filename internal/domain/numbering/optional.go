package numbering

import (
	"bytes"
	"encoding/json"
)

// OptionalString is a tagged optional: "absent" and "present but empty"
// are distinct states. Prefix values travel through every layer (request,
// counter key, formatter, history) as OptionalString so the two states
// can never be confused by blind string concatenation.
type OptionalString struct {
	value string
	set   bool
}

// Some returns a present OptionalString.
func Some(v string) OptionalString {
	return OptionalString{value: v, set: true}
}

// None returns an absent OptionalString.
func None() OptionalString {
	return OptionalString{}
}

// FromPtr converts a nullable pointer (database representation) into
// an OptionalString. nil maps to None.
func FromPtr(p *string) OptionalString {
	if p == nil {
		return None()
	}
	return Some(*p)
}

// IsSet reports whether a value is present.
func (o OptionalString) IsSet() bool {
	return o.set
}

// Get returns the value and whether it is present.
func (o OptionalString) Get() (string, bool) {
	return o.value, o.set
}

// MustGet returns the value; only call after checking IsSet.
func (o OptionalString) MustGet() string {
	if !o.set {
		panic("OptionalString: MustGet on absent value")
	}
	return o.value
}

// Ptr returns the database representation: nil when absent.
func (o OptionalString) Ptr() *string {
	if !o.set {
		return nil
	}
	v := o.value
	return &v
}

// String renders the value for logs; absent values render as "<none>".
func (o OptionalString) String() string {
	if !o.set {
		return "<none>"
	}
	return o.value
}

// MarshalJSON encodes absent as null.
func (o OptionalString) MarshalJSON() ([]byte, error) {
	if !o.set {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

// UnmarshalJSON decodes null (or a missing field) as absent.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*o = None()
		return nil
	}
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}
