package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind identifies which JSON shape a Value holds
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a decoded JSON value. The zero Value is JSON null.
type Value struct {
	kind Kind
	b    bool
	num  json.Number
	str  string
	arr  []Value
	obj  map[string]Value
}

// Null returns the JSON null value
func Null() Value { return Value{} }

// String wraps s as a JSON string value
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number wraps a numeric literal such as "12" or "3.5"
func Number(n string) Value { return Value{kind: KindNumber, num: json.Number(n)} }

// Bool wraps b as a JSON boolean value
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Array builds a JSON array value
func Array(items ...Value) Value { return Value{kind: KindArray, arr: items} }

// Object builds a JSON object value
func Object(members map[string]Value) Value {
	if members == nil {
		members = map[string]Value{}
	}
	return Value{kind: KindObject, obj: members}
}

// FromAny converts the output of encoding/json (decoded into any) into a Value.
// Unsupported Go types become null.
func FromAny(raw any) Value {
	switch t := raw.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case json.Number:
		return Number(t.String())
	case float64:
		return Number(strconv.FormatFloat(t, 'f', -1, 64))
	case int:
		return Number(strconv.Itoa(t))
	case string:
		return String(t)
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = FromAny(item)
		}
		return Array(items...)
	case map[string]any:
		members := make(map[string]Value, len(t))
		for k, item := range t {
			members[k] = FromAny(item)
		}
		return Object(members)
	}
	return Null()
}

// ParseValue decodes a JSON document, keeping numbers in their literal form.
func ParseValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Value{}, fmt.Errorf("decode json: %w", err)
	}
	return FromAny(raw), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, err := ParseValue(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// MarshalJSON implements json.Marshaler
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.toAny())
}

func (v Value) toAny() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.num
	case KindString:
		return v.str
	case KindArray:
		items := make([]any, len(v.arr))
		for i, item := range v.arr {
			items[i] = item.toAny()
		}
		return items
	case KindObject:
		members := make(map[string]any, len(v.obj))
		for k, item := range v.obj {
			members[k] = item.toAny()
		}
		return members
	}
	return nil
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// Get returns the member named key. It reports false when v is not an
// object or has no such member.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	member, ok := v.obj[key]
	return member, ok
}

// Items returns the elements of an array value
func (v Value) Items() ([]Value, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	return v.arr, true
}

// Str returns the content of a string value
func (v Value) Str() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

// Text renders the value the way it reads in a report: strings verbatim,
// numbers in their literal form, everything else as compact JSON.
func (v Value) Text() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return v.num.String()
	case KindString:
		return v.str
	}
	data, err := v.MarshalJSON()
	if err != nil {
		return "<" + v.kind.String() + ">"
	}
	return string(data)
}
