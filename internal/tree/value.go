// Package tree holds the schema-less decoded form of a replay segment.
package tree

import (
	"bytes"
	"fmt"
	"math"

	"github.com/go-json-experiment/json/jsontext"
)

// Kind enumerates the dynamic types a Value can hold.
type Kind uint8

const (
	Null Kind = iota
	Bool
	Int
	Float
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Member is a single name/value pair of an object.
type Member struct {
	Key   string
	Value Value
}

// Value is a tagged union over the JSON data model. The zero value is null.
type Value struct {
	kind  Kind
	b     bool
	i     int64
	f     float64
	s     string
	items []Value
	obj   *object
}

// object keeps members in document order with a name index for lookups.
type object struct {
	members []Member
	index   map[string]int
}

func newObject(capacity int) *object {
	return &object{members: make([]Member, 0, capacity), index: make(map[string]int, capacity)}
}

// set appends a member or, for a repeated name, overwrites it in its original position.
func (o *object) set(key string, v Value) {
	if pos, ok := o.index[key]; ok {
		o.members[pos].Value = v
		return
	}
	o.index[key] = len(o.members)
	o.members = append(o.members, Member{Key: key, Value: v})
}

// NullValue returns the null value.
func NullValue() Value { return Value{} }

// BoolValue wraps a boolean.
func BoolValue(b bool) Value { return Value{kind: Bool, b: b} }

// IntValue wraps a signed integer.
func IntValue(i int64) Value { return Value{kind: Int, i: i} }

// FloatValue wraps a floating point number.
func FloatValue(f float64) Value { return Value{kind: Float, f: f} }

// StringValue wraps a string.
func StringValue(s string) Value { return Value{kind: String, s: s} }

// ArrayValue wraps the supplied items in order.
func ArrayValue(items ...Value) Value {
	return Value{kind: Array, items: append([]Value(nil), items...)}
}

// ObjectValue builds an object from members; a repeated key keeps its first position.
func ObjectValue(members ...Member) Value {
	obj := newObject(len(members))
	for _, m := range members {
		obj.set(m.Key, m.Value)
	}
	return Value{kind: Object, obj: obj}
}

// Kind reports the dynamic type of the value.
func (v Value) Kind() Kind { return v.kind }

// AsInt returns the payload of an Int value. Floats are not converted.
func (v Value) AsInt() (int64, bool) {
	if v.kind != Int {
		return 0, false
	}
	return v.i, true
}

// AsString returns the payload of a String value.
func (v Value) AsString() (string, bool) {
	if v.kind != String {
		return "", false
	}
	return v.s, true
}

// Len reports the number of items or members; zero for scalars.
func (v Value) Len() int {
	switch v.kind {
	case Array:
		return len(v.items)
	case Object:
		return len(v.obj.members)
	default:
		return 0
	}
}

// Index returns the i-th array item.
func (v Value) Index(i int) (Value, bool) {
	if v.kind != Array || i < 0 || i >= len(v.items) {
		return Value{}, false
	}
	return v.items[i], true
}

// Get looks up an object member by name.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != Object {
		return Value{}, false
	}
	pos, ok := v.obj.index[key]
	if !ok {
		return Value{}, false
	}
	return v.obj.members[pos].Value, true
}

// First returns the first object member in document order.
func (v Value) First() (Member, bool) {
	if v.kind != Object || len(v.obj.members) == 0 {
		return Member{}, false
	}
	return v.obj.members[0], true
}

// Keys lists object member names in document order.
func (v Value) Keys() []string {
	if v.kind != Object {
		return nil
	}
	keys := make([]string, len(v.obj.members))
	for i, m := range v.obj.members {
		keys[i] = m.Key
	}
	return keys
}

// Lookup walks nested objects by member name.
func (v Value) Lookup(path ...string) (Value, bool) {
	current := v
	for _, key := range path {
		next, ok := current.Get(key)
		if !ok {
			return Value{}, false
		}
		current = next
	}
	return current, true
}

// MarshalJSON renders the value with object members in document order.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := jsontext.NewEncoder(&buf, jsontext.AllowInvalidUTF8(true), jsontext.AllowDuplicateNames(true))
	if err := v.encode(enc); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (v Value) encode(enc *jsontext.Encoder) error {
	switch v.kind {
	case Null:
		return enc.WriteToken(jsontext.Null)
	case Bool:
		return enc.WriteToken(jsontext.Bool(v.b))
	case Int:
		return enc.WriteToken(jsontext.Int(v.i))
	case Float:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return fmt.Errorf("tree: cannot encode non-finite float %v", v.f)
		}
		return enc.WriteToken(jsontext.Float(v.f))
	case String:
		return enc.WriteToken(jsontext.String(v.s))
	case Array:
		if err := enc.WriteToken(jsontext.BeginArray); err != nil {
			return err
		}
		for _, item := range v.items {
			if err := item.encode(enc); err != nil {
				return err
			}
		}
		return enc.WriteToken(jsontext.EndArray)
	case Object:
		if err := enc.WriteToken(jsontext.BeginObject); err != nil {
			return err
		}
		for _, m := range v.obj.members {
			if err := enc.WriteToken(jsontext.String(m.Key)); err != nil {
				return err
			}
			if err := m.Value.encode(enc); err != nil {
				return err
			}
		}
		return enc.WriteToken(jsontext.EndObject)
	default:
		return fmt.Errorf("tree: unknown kind %d", v.kind)
	}
}

// String renders compact JSON, or a marker when encoding fails.
func (v Value) String() string {
	data, err := v.MarshalJSON()
	if err != nil {
		return "<" + v.kind.String() + ": " + err.Error() + ">"
	}
	return string(data)
}
