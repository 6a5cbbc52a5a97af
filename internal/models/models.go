package models

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Kind identifies which variant of the JSON sum type a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// String returns the JSON name of the kind
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
	default:
		return "unknown"
	}
}

// Value is a JSON value: null, boolean, number, string, array or object.
// The zero Value is JSON null.
type Value struct {
	kind Kind
	b    bool
	s    string // string contents or the literal text of a number
	arr  []Value
	obj  *Object
}

// Null returns the JSON null value
func Null() Value { return Value{} }

// Bool wraps a boolean
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number wraps a number, keeping its literal text
func Number(n json.Number) Value { return Value{kind: KindNumber, s: string(n)} }

// Int is a convenience constructor for integral numbers
func Int(i int64) Value { return Number(json.Number(strconv.FormatInt(i, 10))) }

// String wraps a string
func String(s string) Value { return Value{kind: KindString, s: s} }

// Array wraps a sequence of values. A nil slice yields an empty array, not null.
func Array(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindArray, arr: items}
}

// ObjectValue wraps an object. A nil object yields an empty object.
func ObjectValue(o *Object) Value {
	if o == nil {
		o = NewObject()
	}
	return Value{kind: KindObject, obj: o}
}

// Kind reports the variant held by v
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is JSON null
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsScalar reports whether v is neither an array nor an object
func (v Value) IsScalar() bool { return v.kind != KindArray && v.kind != KindObject }

// AsBool returns the boolean held by v
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsNumber returns the number literal held by v
func (v Value) AsNumber() (json.Number, bool) { return json.Number(v.s), v.kind == KindNumber }

// AsString returns the string held by v
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsArray returns the elements held by v
func (v Value) AsArray() ([]Value, bool) { return v.arr, v.kind == KindArray }

// AsObject returns the object held by v
func (v Value) AsObject() (*Object, bool) { return v.obj, v.kind == KindObject }

// Text renders v for a table cell: null is empty, strings are unquoted,
// numbers and booleans are their literals and containers are compact JSON.
func (v Value) Text() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber, KindString:
		return v.s
	default:
		data, err := v.MarshalJSON()
		if err != nil {
			return ""
		}
		return string(data)
	}
}

// Equal reports deep equality, including object key order
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindNumber, KindString:
		return v.s == other.s
	case KindArray:
		if len(v.arr) != len(other.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(other.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		return v.obj.Equal(other.obj)
	}
	return false
}

// MarshalJSON encodes v, preserving object key order
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindNumber:
		if v.s == "" {
			buf.WriteString("0")
		} else {
			buf.WriteString(v.s)
		}
	case KindString:
		data, err := json.Marshal(v.s)
		if err != nil {
			return err
		}
		buf.Write(data)
	case KindArray:
		buf.WriteByte('[')
		for i, item := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		return v.obj.encode(buf)
	}
	return nil
}

// Object is a JSON object that remembers key insertion order.
type Object struct {
	keys   []string
	values map[string]Value
}

// NewObject creates an empty object
func NewObject() *Object {
	return &Object{values: make(map[string]Value)}
}

// Set stores value under key. An existing key keeps its position.
// The zero Object is ready to use.
func (o *Object) Set(key string, value Value) {
	if o.values == nil {
		o.values = make(map[string]Value)
	}
	if _, exists := o.values[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

// Get returns the value stored under key
func (o *Object) Get(key string) (Value, bool) {
	if o == nil {
		return Value{}, false
	}
	v, ok := o.values[key]
	return v, ok
}

// Keys returns the keys in insertion order
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Len returns the number of members
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Each calls fn for every member in insertion order until fn returns false
func (o *Object) Each(fn func(key string, value Value) bool) {
	if o == nil {
		return
	}
	for _, k := range o.keys {
		if !fn(k, o.values[k]) {
			return
		}
	}
}

// Equal reports whether both objects hold the same members in the same order
func (o *Object) Equal(other *Object) bool {
	if o.Len() != other.Len() {
		return false
	}
	for i, k := range o.Keys() {
		if other.keys[i] != k {
			return false
		}
		if !o.values[k].Equal(other.values[k]) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the object in insertion order
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := o.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (o *Object) encode(buf *bytes.Buffer) error {
	buf.WriteByte('{')
	for i, k := range o.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if err := o.values[k].encode(buf); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}
