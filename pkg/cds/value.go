package cds

import "encoding/json"

// Value is a dynamic JSON document: a CDS Hooks context or prefetch bag,
// which may be an object, an array, a scalar, or absent entirely. Rule
// handlers walk it with the accessor helpers below instead of asserting a
// fixed Go struct, mirroring how the corpus's FHIR client treats resources
// as generic maps rather than typed models.
type Value struct {
	raw interface{}
}

// NewValue wraps an already-decoded interface{} (typically the result of
// json.Unmarshal into an interface{}, or a value built in tests).
func NewValue(raw interface{}) Value {
	return Value{raw: raw}
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &v.raw)
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.raw == nil {
		return []byte("null"), nil
	}
	return json.Marshal(v.raw)
}

// IsZero reports whether the value is entirely absent.
func (v Value) IsZero() bool {
	return v.raw == nil
}

// asObject returns the value as a JSON object, or (nil, false) if it isn't
// one.
func (v Value) asObject() (map[string]interface{}, bool) {
	m, ok := v.raw.(map[string]interface{})
	return m, ok
}

// asArray returns the value as a JSON array, or (nil, false) if it isn't
// one.
func (v Value) asArray() ([]interface{}, bool) {
	a, ok := v.raw.([]interface{})
	return a, ok
}

// asString returns the value as a string, or ("", false) if it isn't one.
func (v Value) asString() (string, bool) {
	s, ok := v.raw.(string)
	return s, ok
}

// Get returns the value stored at key in an object value. Absent on any
// mismatch (not an object, key missing).
func (v Value) Get(key string) Value {
	obj, ok := v.asObject()
	if !ok {
		return Value{}
	}
	child, ok := obj[key]
	if !ok {
		return Value{}
	}
	return Value{raw: child}
}

// Index returns the element at i in an array value. Absent on any mismatch.
func (v Value) Index(i int) Value {
	arr, ok := v.asArray()
	if !ok || i < 0 || i >= len(arr) {
		return Value{}
	}
	return Value{raw: arr[i]}
}

// Items returns every element of an array value, or nil if v isn't an
// array.
func (v Value) Items() []Value {
	arr, ok := v.asArray()
	if !ok {
		return nil
	}
	out := make([]Value, len(arr))
	for i, item := range arr {
		out[i] = Value{raw: item}
	}
	return out
}

// String returns the value as a string, or "" if it isn't one.
func (v Value) String() string {
	s, _ := v.asString()
	return s
}

// Float64 returns the value as a float64, or (0, false) if it isn't a JSON
// number. json.Unmarshal into interface{} always decodes numbers as
// float64.
func (v Value) Float64() (float64, bool) {
	f, ok := v.raw.(float64)
	return f, ok
}

// GetPath walks a sequence of object keys, one argument per key (e.g.
// GetPath("medicationCodeableConcept", "coding")), and returns the value
// found there, or a zero Value if the path doesn't resolve.
func (v Value) GetPath(path ...string) Value {
	cur := v
	for _, key := range path {
		cur = cur.Get(key)
		if cur.IsZero() {
			return Value{}
		}
	}
	return cur
}

// Coding is a single FHIR coding tuple extracted from a codeable-concept-
// shaped value: {coding: [{system, code, display}], text}.
type Coding struct {
	System  string
	Code    string
	Display string
}

// Codings extracts every {system, code, display} entry from a FHIR
// codeable-concept-shaped value's "coding" array. Absent or malformed
// shapes yield an empty slice, never an error: rule handlers tolerate
// partial or missing prefetch data (spec §4.7).
func (v Value) Codings() []Coding {
	var out []Coding
	for _, item := range v.Get("coding").Items() {
		out = append(out, Coding{
			System:  item.Get("system").String(),
			Code:    item.Get("code").String(),
			Display: item.Get("display").String(),
		})
	}
	return out
}

// Text returns the plain-text fallback of a codeable-concept-shaped value.
func (v Value) Text() string {
	return v.Get("text").String()
}
