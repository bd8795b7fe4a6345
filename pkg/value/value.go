// Package value defines the schema-less cell value shared by every result set.
//
// A Value is a closed variant: null, bool, number, string, object or array.
// Objects keep the insertion order of their keys so that serialization is
// stable and matches what the backend sent.
package value

import (
	"fmt"
	"sort"
	"strconv"
	"unicode/utf8"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindObject
	KindArray
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
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is an immutable schema-less value. The zero Value is null.
type Value struct {
	kind   Kind
	b      bool
	s      string // string contents or number literal
	keys   []string
	fields map[string]Value
	items  []Value
}

// Field is one key/value pair of an object.
type Field struct {
	Key   string
	Value Value
}

// ────────────────────────────────────────────────────────────────────────────────
// Constructors
// ────────────────────────────────────────────────────────────────────────────────

// Null returns the null value.
func Null() Value { return Value{} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Int wraps an integer number.
func Int(n int64) Value { return Value{kind: KindNumber, s: strconv.FormatInt(n, 10)} }

// Float wraps a floating point number.
func Float(f float64) Value {
	return Value{kind: KindNumber, s: strconv.FormatFloat(f, 'g', -1, 64)}
}

// Number wraps a JSON number literal. It returns an error when lit is not a
// valid number.
func Number(lit string) (Value, error) {
	if _, err := strconv.ParseFloat(lit, 64); err != nil {
		return Value{}, fmt.Errorf("invalid number literal %q", lit)
	}
	return Value{kind: KindNumber, s: lit}, nil
}

// Object builds an object from fields in order. A repeated key keeps its
// first position and takes the last value.
func Object(fields ...Field) Value {
	v := Value{kind: KindObject, fields: make(map[string]Value, len(fields))}
	for _, f := range fields {
		if _, ok := v.fields[f.Key]; !ok {
			v.keys = append(v.keys, f.Key)
		}
		v.fields[f.Key] = f.Value
	}
	return v
}

// Array builds an array from items.
func Array(items ...Value) Value {
	out := make([]Value, len(items))
	copy(out, items)
	return Value{kind: KindArray, items: out}
}

// F is shorthand for a Field literal.
func F(key string, v Value) Field { return Field{Key: key, Value: v} }

// ────────────────────────────────────────────────────────────────────────────────
// Accessors
// ────────────────────────────────────────────────────────────────────────────────

// Kind returns the variant of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsComposite reports whether v is an object or an array.
func (v Value) IsComposite() bool { return v.kind == KindObject || v.kind == KindArray }

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsString returns the string held by v.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// AsFloat returns the number held by v as a float64.
func (v Value) AsFloat() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	f, err := strconv.ParseFloat(v.s, 64)
	return f, err == nil
}

// AsInt returns the number held by v when it is integral.
func (v Value) AsInt() (int64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	if n, err := strconv.ParseInt(v.s, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(v.s, 64)
	if err != nil || f != float64(int64(f)) {
		return 0, false
	}
	return int64(f), true
}

// Literal returns the number literal held by v.
func (v Value) Literal() string {
	if v.kind != KindNumber {
		return ""
	}
	return v.s
}

// Len returns the number of keys of an object, the number of items of an
// array, or the number of runes of a string. Other kinds have length 0.
func (v Value) Len() int {
	switch v.kind {
	case KindObject:
		return len(v.keys)
	case KindArray:
		return len(v.items)
	case KindString:
		return utf8.RuneCountInString(v.s)
	default:
		return 0
	}
}

// Keys returns the object keys in insertion order.
func (v Value) Keys() []string {
	out := make([]string, len(v.keys))
	copy(out, v.keys)
	return out
}

// Get returns the value stored under key.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	f, ok := v.fields[key]
	return f, ok
}

// Fields returns the object fields in insertion order.
func (v Value) Fields() []Field {
	out := make([]Field, 0, len(v.keys))
	for _, k := range v.keys {
		out = append(out, Field{Key: k, Value: v.fields[k]})
	}
	return out
}

// Items returns the array items.
func (v Value) Items() []Value {
	out := make([]Value, len(v.items))
	copy(out, v.items)
	return out
}

// Index returns the i-th array item.
func (v Value) Index(i int) (Value, bool) {
	if v.kind != KindArray || i < 0 || i >= len(v.items) {
		return Value{}, false
	}
	return v.items[i], true
}

// Display returns the plain text form of a primitive. Strings are returned
// unquoted; composites fall back to their compact JSON form.
func (v Value) Display() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber, KindString:
		return v.s
	default:
		return v.Compact()
	}
}

// String implements fmt.Stringer.
func (v Value) String() string { return v.Display() }

// Equal reports whether a and b hold the same value. Numbers compare by
// numeric value, objects by key order and contents.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindString:
		return a.s == b.s
	case KindNumber:
		if a.s == b.s {
			return true
		}
		fa, oka := a.AsFloat()
		fb, okb := b.AsFloat()
		return oka && okb && fa == fb
	case KindArray:
		if len(a.items) != len(b.items) {
			return false
		}
		for i := range a.items {
			if !Equal(a.items[i], b.items[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(a.keys) != len(b.keys) {
			return false
		}
		for i, k := range a.keys {
			if b.keys[i] != k || !Equal(a.fields[k], b.fields[k]) {
				return false
			}
		}
		return true
	}
	return false
}

// ────────────────────────────────────────────────────────────────────────────────
// Native conversion
// ────────────────────────────────────────────────────────────────────────────────

// Native converts v into plain Go values: nil, bool, float64, string,
// map[string]any and []any.
func (v Value) Native() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		if n, err := strconv.ParseInt(v.s, 10, 64); err == nil {
			return int(n)
		}
		f, _ := strconv.ParseFloat(v.s, 64)
		return f
	case KindString:
		return v.s
	case KindObject:
		m := make(map[string]any, len(v.keys))
		for _, k := range v.keys {
			m[k] = v.fields[k].Native()
		}
		return m
	case KindArray:
		out := make([]any, len(v.items))
		for i, it := range v.items {
			out[i] = it.Native()
		}
		return out
	default:
		return nil
	}
}

// FromNative converts a Go value into a Value. Maps are ordered by key since
// Go maps carry no order. Byte slices become arrays of byte numbers.
func FromNative(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case int:
		return Int(int64(t)), nil
	case int8:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case uint:
		return Number(strconv.FormatUint(uint64(t), 10))
	case uint8:
		return Int(int64(t)), nil
	case uint16:
		return Int(int64(t)), nil
	case uint32:
		return Int(int64(t)), nil
	case uint64:
		return Number(strconv.FormatUint(t, 10))
	case float32:
		return Float(float64(t)), nil
	case float64:
		return Float(t), nil
	case []byte:
		items := make([]Value, len(t))
		for i, b := range t {
			items[i] = Int(int64(b))
		}
		return Value{kind: KindArray, items: items}, nil
	case []string:
		items := make([]Value, len(t))
		for i, s := range t {
			items[i] = String(s)
		}
		return Value{kind: KindArray, items: items}, nil
	case []Value:
		return Array(t...), nil
	case []any:
		items := make([]Value, len(t))
		for i, it := range t {
			v, err := FromNative(it)
			if err != nil {
				return Value{}, err
			}
			items[i] = v
		}
		return Value{kind: KindArray, items: items}, nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := make([]Field, 0, len(keys))
		for _, k := range keys {
			v, err := FromNative(t[k])
			if err != nil {
				return Value{}, err
			}
			fields = append(fields, Field{Key: k, Value: v})
		}
		return Object(fields...), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", x)
	}
}

// Strings converts a slice of strings into an array value.
func Strings(ss []string) Value {
	v, _ := FromNative(ss)
	return v
}
