// Package value implements the explicit Value sum type called for by
// spec.md §9 ("an explicit Value sum type... instead of reflection"),
// replacing the reflective type-probing a naive port would use inside
// Describe and expression evaluation.
package value

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Kind tags which variant a Value holds.
type Kind int

const (
	KNull Kind = iota
	KBool
	KInt64
	KFloat64
	KString
	KBytes
	KDate
	KArray
	KObject
)

// Value is a closed algebraic type: exactly one of its fields is
// meaningful, selected by Kind. Constructed only via the New* helpers so
// Kind and payload never disagree.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	by   []byte
	t    time.Time
	arr  []Value
	obj  map[string]Value
}

var Null = Value{kind: KNull}

func NewBool(b bool) Value       { return Value{kind: KBool, b: b} }
func NewInt64(i int64) Value     { return Value{kind: KInt64, i: i} }
func NewFloat64(f float64) Value { return Value{kind: KFloat64, f: f} }
func NewString(s string) Value   { return Value{kind: KString, s: s} }
func NewBytes(b []byte) Value    { return Value{kind: KBytes, by: b} }
func NewDate(t time.Time) Value  { return Value{kind: KDate, t: t} }
func NewArray(v []Value) Value   { return Value{kind: KArray, arr: v} }
func NewObject(m map[string]Value) Value {
	return Value{kind: KObject, obj: m}
}

func (v Value) Kind() Kind  { return v.kind }
func (v Value) IsNull() bool { return v.kind == KNull }

func (v Value) Bool() bool               { return v.b }
func (v Value) Int64() int64             { return v.i }
func (v Value) Float64() float64         { return v.f }
func (v Value) String() string           { return v.s }
func (v Value) Bytes() []byte            { return v.by }
func (v Value) Date() time.Time          { return v.t }
func (v Value) Array() []Value           { return v.arr }
func (v Value) Object() map[string]Value { return v.obj }

// TypeName returns the canonical runtime-class name used by DESCRIBE
// (spec.md §4.8's "Type=runtime-class-of(value)").
func (v Value) TypeName() string {
	switch v.kind {
	case KNull:
		return "null"
	case KBool:
		return "boolean"
	case KInt64:
		return "integer"
	case KFloat64:
		return "double"
	case KString:
		return "string"
	case KBytes:
		return "binary"
	case KDate:
		return "date"
	case KArray:
		return "array"
	case KObject:
		return "object"
	default:
		return "unknown"
	}
}

// Display renders v as the single-line string DESCRIBE samples with
// (spec.md §4.8) and that delimited-text writers emit for a cell.
func (v Value) Display() string {
	switch v.kind {
	case KNull:
		return ""
	case KBool:
		if v.b {
			return "true"
		}
		return "false"
	case KInt64:
		return strconv.FormatInt(v.i, 10)
	case KFloat64:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KString:
		return oneLine(v.s)
	case KBytes:
		return fmt.Sprintf("0x%x", v.by)
	case KDate:
		return v.t.Format(time.RFC3339)
	case KArray:
		parts := make([]string, len(v.arr))
		for i, e := range v.arr {
			parts[i] = e.Display()
		}
		return "[" + strings.Join(parts, ",") + "]"
	case KObject:
		keys := make([]string, 0, len(v.obj))
		for k := range v.obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ":" + v.obj[k].Display()
		}
		return "{" + strings.Join(parts, ",") + "}"
	default:
		return ""
	}
}

func oneLine(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\r\n", " "), "\n", " ")
}

// Equal reports deep value equality, used by DISTINCT dedup and the
// multiset-equality testable property in spec.md §8.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		// numeric cross-kind equality (e.g. 1 == 1.0) keeps arithmetic results
		// comparable regardless of which literal form produced them.
		if af, aok := asFloat(a); aok {
			if bf, bok := asFloat(b); bok {
				return af == bf
			}
		}
		return false
	}
	switch a.kind {
	case KNull:
		return true
	case KBool:
		return a.b == b.b
	case KInt64:
		return a.i == b.i
	case KFloat64:
		return a.f == b.f
	case KString:
		return a.s == b.s
	case KBytes:
		return string(a.by) == string(b.by)
	case KDate:
		return a.t.Equal(b.t)
	case KArray:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !Equal(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	case KObject:
		if len(a.obj) != len(b.obj) {
			return false
		}
		for k, av := range a.obj {
			bv, ok := b.obj[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	}
	return false
}

func asFloat(v Value) (float64, bool) {
	switch v.kind {
	case KInt64:
		return float64(v.i), true
	case KFloat64:
		return v.f, true
	default:
		return 0, false
	}
}

// HashKey returns a string suitable for use as a map key representing v,
// used by GROUP BY's per-key accumulator map and DISTINCT's hash set
// (spec.md §4.6). Numeric kinds are normalized through the same asFloat
// coercion Equal uses, so Int64(1) and Float64(1.0) hash identically —
// otherwise two values Equal calls equal could end up in different
// groups/rows merely because of which literal form produced them.
func (v Value) HashKey() string {
	if f, ok := asFloat(v); ok {
		return "num:" + strconv.FormatFloat(f, 'g', -1, 64)
	}
	return fmt.Sprintf("%d:%s", v.kind, v.Display())
}

// FromGo converts a generic decoded value (as produced by encoding/json,
// encoding/csv-with-inference, or a database/sql Scan) into a Value.
func FromGo(x any) Value {
	switch t := x.(type) {
	case nil:
		return Null
	case bool:
		return NewBool(t)
	case int:
		return NewInt64(int64(t))
	case int64:
		return NewInt64(t)
	case float64:
		return NewFloat64(t)
	case string:
		return NewString(t)
	case []byte:
		return NewBytes(t)
	case time.Time:
		return NewDate(t)
	case []any:
		arr := make([]Value, len(t))
		for i, e := range t {
			arr[i] = FromGo(e)
		}
		return NewArray(arr)
	case map[string]any:
		obj := make(map[string]Value, len(t))
		for k, e := range t {
			obj[k] = FromGo(e)
		}
		return NewObject(obj)
	default:
		return NewString(fmt.Sprintf("%v", t))
	}
}
