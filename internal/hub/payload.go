package hub

import (
	"encoding/json"
	"fmt"
	"sort"
)

// ValueKind identifies the concrete type held by a Value.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindObject
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is a tagged JSON-like payload: null, bool, number, string, an
// ordered list of Values, or a string-keyed object of Values. Command
// arguments and return values travel through the hub as Values so that
// handlers never touch raw interface{} soup.
//
// The zero Value is null.
type Value struct {
	kind ValueKind
	b    bool
	num  float64
	str  string
	list []Value
	obj  map[string]Value
}

// Null returns the null Value.
func Null() Value { return Value{} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number wraps a float64.
func Number(n float64) Value { return Value{kind: KindNumber, num: n} }

// Int wraps an integer as a number Value.
func Int(n int) Value { return Number(float64(n)) }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, str: s} }

// List wraps a sequence of Values, preserving order.
func List(items ...Value) Value {
	return Value{kind: KindList, list: items}
}

// Object wraps a string-keyed mapping of Values.
func Object(fields map[string]Value) Value {
	if fields == nil {
		fields = map[string]Value{}
	}
	return Value{kind: KindObject, obj: fields}
}

// Kind returns the tag of the Value.
func (v Value) Kind() ValueKind { return v.kind }

// IsNull reports whether the Value is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean payload. ok is false for other kinds.
func (v Value) AsBool() (b, ok bool) {
	return v.b, v.kind == KindBool
}

// AsNumber returns the numeric payload. ok is false for other kinds.
func (v Value) AsNumber() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// AsString returns the string payload. ok is false for other kinds.
func (v Value) AsString() (string, bool) {
	return v.str, v.kind == KindString
}

// AsList returns the list payload. ok is false for other kinds.
func (v Value) AsList() ([]Value, bool) {
	return v.list, v.kind == KindList
}

// AsObject returns the object payload. ok is false for other kinds.
func (v Value) AsObject() (map[string]Value, bool) {
	return v.obj, v.kind == KindObject
}

// Interface converts the Value to plain Go types (nil, bool, float64,
// string, []interface{}, map[string]interface{}) for JSON encoding and
// log fields.
func (v Value) Interface() interface{} {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.num
	case KindString:
		return v.str
	case KindList:
		out := make([]interface{}, len(v.list))
		for i, item := range v.list {
			out[i] = item.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]interface{}, len(v.obj))
		for k, item := range v.obj {
			out[k] = item.Interface()
		}
		return out
	default:
		return nil
	}
}

// String renders the Value as compact JSON for display.
func (v Value) String() string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("<invalid value: %v>", err)
	}
	return string(data)
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.b)
	case KindNumber:
		return json.Marshal(v.num)
	case KindString:
		return json.Marshal(v.str)
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	case KindObject:
		// Encode keys in sorted order so output is deterministic.
		keys := make([]string, 0, len(v.obj))
		for k := range v.obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf := []byte{'{'}
		for i, k := range keys {
			if i > 0 {
				buf = append(buf, ',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			vb, err := json.Marshal(v.obj[k])
			if err != nil {
				return nil, err
			}
			buf = append(buf, kb...)
			buf = append(buf, ':')
			buf = append(buf, vb...)
		}
		return append(buf, '}'), nil
	default:
		return nil, fmt.Errorf("%w: value kind %d", ErrInvalidArgument, v.kind)
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := FromInterface(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// FromInterface converts decoded JSON (or compatible Go values) into a
// Value. Integer types are widened to float64 like encoding/json does.
func FromInterface(raw interface{}) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int32:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Null(), fmt.Errorf("%w: number %q", ErrInvalidArgument, t.String())
		}
		return Number(f), nil
	case string:
		return String(t), nil
	case []interface{}:
		items := make([]Value, len(t))
		for i, item := range t {
			parsed, err := FromInterface(item)
			if err != nil {
				return Null(), err
			}
			items[i] = parsed
		}
		return List(items...), nil
	case map[string]interface{}:
		fields := make(map[string]Value, len(t))
		for k, item := range t {
			parsed, err := FromInterface(item)
			if err != nil {
				return Null(), err
			}
			fields[k] = parsed
		}
		return Object(fields), nil
	default:
		return Null(), fmt.Errorf("%w: unsupported payload type %T", ErrInvalidArgument, raw)
	}
}

// ArgsFromInterface converts a decoded JSON object into command arguments.
// nil yields an empty argument map.
func ArgsFromInterface(raw map[string]interface{}) (map[string]Value, error) {
	args := make(map[string]Value, len(raw))
	for k, item := range raw {
		parsed, err := FromInterface(item)
		if err != nil {
			return nil, err
		}
		args[k] = parsed
	}
	return args, nil
}
