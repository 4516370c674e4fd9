// value.go — runtime value model for the template engine.
//
// OVERVIEW
// ========
// Every piece of data a template can touch is a `Value`: a small tagged
// variant over none, bool, integer, float, string, list, dict, callable and
// opaque host handles. Operators, truthiness, equality and string rendering
// all dispatch on the tag pair.
//
// What you get in this file:
//   • The tag enum (`ValueTag`) and the `Value` struct itself.
//   • Constructors (`None/Bool/Int/Float/Str/List/Dict/...`).
//   • Truthiness (`Truthy`), structural equality (`valueEqual`), and the
//     string renderer (`Stringify`) with a bounded recursion depth.
//   • The `Callable` variants (native host function, renderer-aware special
//     form, template-defined function) and the `Opaque` capability set.
//
// Lists and dicts are held behind pointers so template library functions can
// mutate them in place; parsed node trees never hold mutable Values.
package tmpl

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

/* ===========================
   PUBLIC API
   =========================== */

// ValueTag identifies the runtime kind of a Value.
type ValueTag int

const (
	VTNone ValueTag = iota
	VTBool
	VTInt
	VTFloat
	VTStr
	VTList
	VTDict
	VTCallable
	VTOpaque
)

// String returns the user-facing name of the tag, used in error messages.
func (t ValueTag) String() string {
	switch t {
	case VTNone:
		return "none"
	case VTBool:
		return "bool"
	case VTInt:
		return "int"
	case VTFloat:
		return "float"
	case VTStr:
		return "string"
	case VTList:
		return "list"
	case VTDict:
		return "dict"
	case VTCallable:
		return "callable"
	case VTOpaque:
		return "opaque"
	}
	return "unknown"
}

// Value is the uniform runtime value. Data holds, per tag:
//
//	VTNone     nil
//	VTBool     bool
//	VTInt      int64
//	VTFloat    float64
//	VTStr      string
//	VTList     *ListObject
//	VTDict     *DictObject
//	VTCallable *Callable
//	VTOpaque   Opaque
type Value struct {
	Tag  ValueTag
	Data interface{}
}

// ListObject is the backing store of a VTList value.
type ListObject struct {
	Items []Value
}

// DictObject is the backing store of a VTDict value. Key order carries no
// semantic weight; rendering sorts keys for determinism.
type DictObject struct {
	Entries map[string]Value
}

// Opaque is the capability set a host value must expose to participate in
// attribute/item/call chains. The engine never peeks inside host values.
type Opaque interface {
	// GetAttr resolves `.name` on the handle; ok=false means unknown.
	GetAttr(name string) (Value, bool)
	// GetItem resolves `[key]` on the handle; ok=false means unknown.
	GetItem(key Value) (Value, bool)
	// CallOpaque invokes the handle when used as a callable.
	CallOpaque(args []Value) (Value, error)
}

// NativeFunc is a host-provided function: list of Values in, Value out.
type NativeFunc func(args []Value) (Value, error)

// SpecialFunc receives the live render state and the *unevaluated* argument
// expressions. Used by builtins like defined/default that must observe
// evaluation failures of their arguments.
type SpecialFunc func(st *renderState, line int, params []Expr) (Value, error)

// Callable backs a VTCallable value. Exactly one of Native, Special or Body
// is set.
type Callable struct {
	Name    string
	Native  NativeFunc
	Special SpecialFunc

	// Template-defined function (def ... enddef).
	Params   []string
	Body     *NodeList
	Captured *frame
	Owner    *Template
}

// Constructors.

func None() Value           { return Value{Tag: VTNone} }
func Bool(b bool) Value     { return Value{Tag: VTBool, Data: b} }
func Int(n int64) Value     { return Value{Tag: VTInt, Data: n} }
func Float(f float64) Value { return Value{Tag: VTFloat, Data: f} }
func Str(s string) Value    { return Value{Tag: VTStr, Data: s} }

// List builds a new list value owning its own backing slice.
func List(items ...Value) Value {
	own := make([]Value, len(items))
	copy(own, items)
	return Value{Tag: VTList, Data: &ListObject{Items: own}}
}

// Dict builds a new empty dict value.
func Dict() Value {
	return Value{Tag: VTDict, Data: &DictObject{Entries: map[string]Value{}}}
}

// DictFrom builds a dict value from a plain map. The map is copied.
func DictFrom(m map[string]Value) Value {
	d := &DictObject{Entries: make(map[string]Value, len(m))}
	for k, v := range m {
		d.Entries[k] = v
	}
	return Value{Tag: VTDict, Data: d}
}

// NewNative wraps a host function as a callable value.
func NewNative(name string, fn NativeFunc) Value {
	return Value{Tag: VTCallable, Data: &Callable{Name: name, Native: fn}}
}

// NewOpaque wraps a host handle as an opaque value.
func NewOpaque(h Opaque) Value {
	return Value{Tag: VTOpaque, Data: h}
}

// Accessors. Each panics with a Go type-assertion error, not a render fault,
// if the tag is wrong; callers check Tag first.

func (v Value) AsBool() bool         { return v.Data.(bool) }
func (v Value) AsInt() int64         { return v.Data.(int64) }
func (v Value) AsFloat() float64     { return v.Data.(float64) }
func (v Value) AsStr() string        { return v.Data.(string) }
func (v Value) AsList() *ListObject  { return v.Data.(*ListObject) }
func (v Value) AsDict() *DictObject  { return v.Data.(*DictObject) }
func (v Value) AsCallable() *Callable { return v.Data.(*Callable) }

// Truthy reports template truthiness: none, false, 0, 0.0, "" and empty
// containers are false; everything else is true.
func (v Value) Truthy() bool {
	switch v.Tag {
	case VTNone:
		return false
	case VTBool:
		return v.AsBool()
	case VTInt:
		return v.AsInt() != 0
	case VTFloat:
		return v.AsFloat() != 0
	case VTStr:
		return v.AsStr() != ""
	case VTList:
		return len(v.AsList().Items) > 0
	case VTDict:
		return len(v.AsDict().Entries) > 0
	}
	return true
}

// stringifyMaxDepth bounds container recursion during string rendering.
const stringifyMaxDepth = 32

// Stringify renders a value as output text. none renders as the empty
// string; containers render in template literal syntax with sorted dict
// keys. Recursion beyond stringifyMaxDepth renders a placeholder.
func (v Value) Stringify() string {
	var b strings.Builder
	stringifyInto(&b, v, 0)
	return b.String()
}

//// END_OF_PUBLIC

/* ===========================
   PRIVATE: rendering & equality
   =========================== */

func stringifyInto(b *strings.Builder, v Value, depth int) {
	if depth > stringifyMaxDepth {
		b.WriteString("...")
		return
	}
	switch v.Tag {
	case VTNone:
	case VTBool:
		if v.AsBool() {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case VTInt:
		b.WriteString(strconv.FormatInt(v.AsInt(), 10))
	case VTFloat:
		b.WriteString(formatFloat(v.AsFloat()))
	case VTStr:
		b.WriteString(v.AsStr())
	case VTList:
		b.WriteByte('[')
		for i, it := range v.AsList().Items {
			if i > 0 {
				b.WriteString(", ")
			}
			stringifyInto(b, it, depth+1)
		}
		b.WriteByte(']')
	case VTDict:
		entries := v.AsDict().Entries
		if len(entries) == 0 {
			b.WriteString("[:]")
			return
		}
		keys := make([]string, 0, len(entries))
		for k := range entries {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('[')
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(k)
			b.WriteString(": ")
			stringifyInto(b, entries[k], depth+1)
		}
		b.WriteByte(']')
	case VTCallable:
		fmt.Fprintf(b, "<function %s>", v.AsCallable().Name)
	case VTOpaque:
		b.WriteString("<opaque>")
	}
}

// formatFloat keeps a trailing ".0" on integral floats so int and float
// render distinguishably.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") && !strings.Contains(s, "Inf") && !strings.Contains(s, "NaN") {
		s += ".0"
	}
	return s
}

// valueEqual reports structural equality. Numeric int/float pairs widen and
// compare; none equals only none. Any other cross-tag pair is a type fault
// (ok=false) the caller turns into a TypeError.
func valueEqual(a, b Value) (eq bool, ok bool) {
	if a.Tag == VTNone || b.Tag == VTNone {
		return a.Tag == b.Tag, true
	}
	if isNumeric(a) && isNumeric(b) {
		if a.Tag == VTInt && b.Tag == VTInt {
			return a.AsInt() == b.AsInt(), true
		}
		return numAsFloat(a) == numAsFloat(b), true
	}
	if a.Tag != b.Tag {
		return false, false
	}
	switch a.Tag {
	case VTBool:
		return a.AsBool() == b.AsBool(), true
	case VTStr:
		return a.AsStr() == b.AsStr(), true
	case VTList:
		la, lb := a.AsList().Items, b.AsList().Items
		if len(la) != len(lb) {
			return false, true
		}
		for i := range la {
			eq, ok := valueEqual(la[i], lb[i])
			if !ok {
				return false, false
			}
			if !eq {
				return false, true
			}
		}
		return true, true
	case VTDict:
		da, db := a.AsDict().Entries, b.AsDict().Entries
		if len(da) != len(db) {
			return false, true
		}
		for k, va := range da {
			vb, present := db[k]
			if !present {
				return false, true
			}
			eq, ok := valueEqual(va, vb)
			if !ok {
				return false, false
			}
			if !eq {
				return false, true
			}
		}
		return true, true
	case VTCallable:
		return a.Data == b.Data, true
	case VTOpaque:
		return a.Data == b.Data, true
	}
	return false, false
}

func isNumeric(v Value) bool { return v.Tag == VTInt || v.Tag == VTFloat }

func numAsFloat(v Value) float64 {
	if v.Tag == VTInt {
		return float64(v.AsInt())
	}
	return v.AsFloat()
}
