// Package model defines core data structures for ontoforge.
package model

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies the closed set of cell value types.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindObject
)

// Value is a single cell value: null, bool, number, string, or a nested
// structure. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	list []Value
	obj  *Record
}

// Null is the null sentinel.
var Null = Value{}

// Bool wraps a boolean cell value.
func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// Number wraps a numeric cell value. NaN is preserved and treated as missing
// by the analyzers.
func Number(v float64) Value { return Value{kind: KindNumber, n: v} }

// String wraps a string cell value.
func String(v string) Value { return Value{kind: KindString, s: v} }

// List wraps a nested list value.
func List(vs ...Value) Value { return Value{kind: KindList, list: vs} }

// Object wraps a nested record value.
func Object(r *Record) Value { return Value{kind: KindObject, obj: r} }

// Kind returns the value's kind.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is the null sentinel.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsMissing reports whether the value counts as missing: null or a
// floating-point NaN.
func (v Value) IsMissing() bool {
	return v.kind == KindNull || (v.kind == KindNumber && math.IsNaN(v.n))
}

// Bool returns the boolean payload. Only meaningful for KindBool.
func (v Value) Bool() bool { return v.b }

// Number returns the numeric payload. Only meaningful for KindNumber.
func (v Value) Number() float64 { return v.n }

// Str returns the string payload. Only meaningful for KindString.
func (v Value) Str() string { return v.s }

// ListItems returns the nested list payload.
func (v Value) ListItems() []Value { return v.list }

// ObjectRecord returns the nested record payload.
func (v Value) ObjectRecord() *Record { return v.obj }

// AsFloat attempts a numeric view of the value: numbers pass through, bools
// map to 0/1, and strings are parsed (with commas and currency stripped).
// Anything else reports ok=false.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindNumber:
		if math.IsNaN(v.n) {
			return 0, false
		}
		return v.n, true
	case KindBool:
		if v.b {
			return 1, true
		}
		return 0, true
	case KindString:
		s := strings.TrimSpace(v.s)
		s = strings.ReplaceAll(s, ",", "")
		s = strings.TrimPrefix(s, "$")
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Canonical returns a deterministic string encoding of the value. Nested
// object keys are sorted so structural equality, not identity, drives
// comparisons between canonical forms.
func (v Value) Canonical() string {
	var sb strings.Builder
	v.canonicalize(&sb)
	return sb.String()
}

func (v Value) canonicalize(sb *strings.Builder) {
	switch v.kind {
	case KindNull:
		sb.WriteString("null")
	case KindBool:
		sb.WriteString(strconv.FormatBool(v.b))
	case KindNumber:
		sb.WriteString(strconv.FormatFloat(v.n, 'g', -1, 64))
	case KindString:
		sb.WriteString("s:")
		sb.WriteString(v.s)
	case KindList:
		sb.WriteByte('[')
		for i, item := range v.list {
			if i > 0 {
				sb.WriteByte(',')
			}
			item.canonicalize(sb)
		}
		sb.WriteByte(']')
	case KindObject:
		sb.WriteByte('{')
		if v.obj != nil {
			keys := append([]string(nil), v.obj.Columns()...)
			sort.Strings(keys)
			for i, k := range keys {
				if i > 0 {
					sb.WriteByte(',')
				}
				sb.WriteString(k)
				sb.WriteByte('=')
				val, _ := v.obj.Get(k)
				val.canonicalize(sb)
			}
		}
		sb.WriteByte('}')
	}
}

// Record is one row: an ordered column-name to value mapping. Column order is
// insertion order and survives Clone, so downstream fingerprinting sees the
// same layout the loader produced.
type Record struct {
	keys   []string
	values map[string]Value
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{values: make(map[string]Value)}
}

// Set stores a value, appending the column on first sight.
func (r *Record) Set(name string, v Value) {
	if r.values == nil {
		r.values = make(map[string]Value)
	}
	if _, seen := r.values[name]; !seen {
		r.keys = append(r.keys, name)
	}
	r.values[name] = v
}

// Get returns the value for a column and whether the column exists.
func (r *Record) Get(name string) (Value, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Has reports whether the column exists.
func (r *Record) Has(name string) bool {
	_, ok := r.values[name]
	return ok
}

// Delete removes a column, preserving the order of the rest.
func (r *Record) Delete(name string) {
	if _, ok := r.values[name]; !ok {
		return
	}
	delete(r.values, name)
	for i, k := range r.keys {
		if k == name {
			r.keys = append(r.keys[:i], r.keys[i+1:]...)
			break
		}
	}
}

// Rename moves a column to a new name in place, keeping its position. If the
// target name already exists the old column is dropped and the target keeps
// its own position and value order semantics (last write wins).
func (r *Record) Rename(from, to string) {
	v, ok := r.values[from]
	if !ok || from == to {
		return
	}
	if _, exists := r.values[to]; exists {
		r.Delete(from)
		r.values[to] = v
		return
	}
	delete(r.values, from)
	r.values[to] = v
	for i, k := range r.keys {
		if k == from {
			r.keys[i] = to
			break
		}
	}
}

// Columns returns the column names in first-seen order. The returned slice is
// owned by the record; callers must not mutate it.
func (r *Record) Columns() []string { return r.keys }

// Len returns the number of columns.
func (r *Record) Len() int { return len(r.keys) }

// Clone returns a deep copy. Transforms always operate on copies, never in
// place.
func (r *Record) Clone() *Record {
	out := &Record{
		keys:   append([]string(nil), r.keys...),
		values: make(map[string]Value, len(r.values)),
	}
	for k, v := range r.values {
		out.values[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v Value) Value {
	switch v.kind {
	case KindList:
		items := make([]Value, len(v.list))
		for i, item := range v.list {
			items[i] = cloneValue(item)
		}
		return Value{kind: KindList, list: items}
	case KindObject:
		if v.obj == nil {
			return v
		}
		return Value{kind: KindObject, obj: v.obj.Clone()}
	default:
		return v
	}
}

// ToMap flattens the record into a plain map for JSON export. Nested values
// convert recursively; null becomes nil.
func (r *Record) ToMap() map[string]interface{} {
	out := make(map[string]interface{}, len(r.keys))
	for _, k := range r.keys {
		out[k] = toInterface(r.values[k])
	}
	return out
}

func toInterface(v Value) interface{} {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		if math.IsNaN(v.n) {
			return nil
		}
		return v.n
	case KindString:
		return v.s
	case KindList:
		items := make([]interface{}, len(v.list))
		for i, item := range v.list {
			items[i] = toInterface(item)
		}
		return items
	case KindObject:
		if v.obj == nil {
			return nil
		}
		return v.obj.ToMap()
	default:
		return nil
	}
}

// FromInterface converts a decoded JSON value into a Value. Unknown types
// degrade to their string form rather than failing.
func FromInterface(raw interface{}) Value {
	switch t := raw.(type) {
	case nil:
		return Null
	case bool:
		return Bool(t)
	case float64:
		return Number(t)
	case int:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case string:
		return String(t)
	case []interface{}:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = FromInterface(item)
		}
		return List(items...)
	case map[string]interface{}:
		rec := NewRecord()
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			rec.Set(k, FromInterface(t[k]))
		}
		return Object(rec)
	default:
		return String(fmt.Sprintf("%v", t))
	}
}
