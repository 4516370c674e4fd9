// builtin_core.go — core functions seeded into every render's GLOBAL map.
//
// OVERVIEW
// ========
// Two kinds of builtins live here. Ordinary natives (str, len, range, ...)
// receive evaluated arguments. The two special forms, defined and default,
// receive their argument expressions unevaluated so they can observe and
// absorb evaluation failures: `default(user.nick, "anon")` yields the
// fallback when user has no nick instead of failing the render.
package tmpl

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

/* ===========================
   PRIVATE: registry
   =========================== */

func coreFuncs() map[string]Value {
	return map[string]Value{
		"defined":  newSpecial("defined", specialDefined),
		"default":  newSpecial("default", specialDefault),
		"str":      NewNative("str", coreStr),
		"int":      NewNative("int", coreInt),
		"float":    NewNative("float", coreFloat),
		"bool":     NewNative("bool", coreBool),
		"len":      NewNative("len", coreLen),
		"abs":      NewNative("abs", coreAbs),
		"min":      NewNative("min", coreMin),
		"max":      NewNative("max", coreMax),
		"range":    NewNative("range", coreRange),
		"round":    NewNative("round", coreRound),
		"sorted":   NewNative("sorted", coreSorted),
		"reversed": NewNative("reversed", coreReversed),
		"keys":     NewNative("keys", coreKeys),
		"values":   NewNative("values", coreValues),
	}
}

func newSpecial(name string, fn SpecialFunc) Value {
	return Value{Tag: VTCallable, Data: &Callable{Name: name, Special: fn}}
}

// standardLibraries builds the import libraries pre-registered on every
// environment.
func standardLibraries() map[string]Value {
	return map[string]Value{
		"string": stringLibrary(),
		"list":   listLibrary(),
		"path":   pathLibrary(),
		"html":   htmlLibrary(),
		"time":   timeLibrary(),
	}
}

/* ===========================
   PRIVATE: special forms
   =========================== */

// absorbable reports whether a fault counts as "the value is not there" for
// defined/default, as opposed to a real failure worth propagating.
func absorbable(e *Error) bool {
	switch e.Kind {
	case ErrUnknownVariable, ErrType, ErrIndex, ErrNotFound:
		return true
	}
	return false
}

// tryEval evaluates one expression, catching a render fault instead of
// letting it unwind.
func (st *renderState) tryEval(e Expr) (v Value, fault *Error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if f, ok := r.(renderFault); ok {
			v, fault = None(), f.err
			return
		}
		panic(r)
	}()
	return st.evalExpr(e), nil
}

func specialDefined(st *renderState, line int, params []Expr) (Value, error) {
	for _, p := range params {
		if _, fault := st.tryEval(p); fault != nil {
			if !absorbable(fault) {
				return None(), fault
			}
			return Bool(false), nil
		}
	}
	return Bool(true), nil
}

func specialDefault(st *renderState, line int, params []Expr) (Value, error) {
	if len(params) != 2 {
		return None(), &Error{Kind: ErrType, Msg: "default takes 2 arguments", Line: line}
	}
	v, fault := st.tryEval(params[0])
	if fault == nil {
		return v, nil
	}
	if !absorbable(fault) {
		return None(), fault
	}
	return st.evalExpr(params[1]), nil
}

/* ===========================
   PRIVATE: natives
   =========================== */

func errArgc(name string, want string) error {
	return &Error{Kind: ErrType, Msg: fmt.Sprintf("%s takes %s", name, want)}
}

func errArg(name string, want string, got ValueTag) error {
	return &Error{Kind: ErrType, Msg: fmt.Sprintf("%s wants %s, got %s", name, want, got)}
}

func coreStr(args []Value) (Value, error) {
	if len(args) != 1 {
		return None(), errArgc("str", "1 argument")
	}
	return Str(args[0].Stringify()), nil
}

func coreInt(args []Value) (Value, error) {
	if len(args) != 1 {
		return None(), errArgc("int", "1 argument")
	}
	v := args[0]
	switch v.Tag {
	case VTInt:
		return v, nil
	case VTFloat:
		return Int(int64(v.AsFloat())), nil
	case VTBool:
		if v.AsBool() {
			return Int(1), nil
		}
		return Int(0), nil
	case VTStr:
		n, err := strconv.ParseInt(strings.TrimSpace(v.AsStr()), 10, 64)
		if err != nil {
			return None(), &Error{Kind: ErrType, Msg: fmt.Sprintf("cannot convert %q to int", v.AsStr())}
		}
		return Int(n), nil
	}
	return None(), errArg("int", "a number or string", v.Tag)
}

func coreFloat(args []Value) (Value, error) {
	if len(args) != 1 {
		return None(), errArgc("float", "1 argument")
	}
	v := args[0]
	switch v.Tag {
	case VTFloat:
		return v, nil
	case VTInt:
		return Float(float64(v.AsInt())), nil
	case VTBool:
		if v.AsBool() {
			return Float(1), nil
		}
		return Float(0), nil
	case VTStr:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.AsStr()), 64)
		if err != nil {
			return None(), &Error{Kind: ErrType, Msg: fmt.Sprintf("cannot convert %q to float", v.AsStr())}
		}
		return Float(f), nil
	}
	return None(), errArg("float", "a number or string", v.Tag)
}

func coreBool(args []Value) (Value, error) {
	if len(args) != 1 {
		return None(), errArgc("bool", "1 argument")
	}
	return Bool(args[0].Truthy()), nil
}

func coreLen(args []Value) (Value, error) {
	if len(args) != 1 {
		return None(), errArgc("len", "1 argument")
	}
	switch v := args[0]; v.Tag {
	case VTStr:
		return Int(int64(utf8.RuneCountInString(v.AsStr()))), nil
	case VTList:
		return Int(int64(len(v.AsList().Items))), nil
	case VTDict:
		return Int(int64(len(v.AsDict().Entries))), nil
	}
	return None(), errArg("len", "a string, list or dict", args[0].Tag)
}

func coreAbs(args []Value) (Value, error) {
	if len(args) != 1 {
		return None(), errArgc("abs", "1 argument")
	}
	switch v := args[0]; v.Tag {
	case VTInt:
		n := v.AsInt()
		if n < 0 {
			n = -n
		}
		return Int(n), nil
	case VTFloat:
		return Float(math.Abs(v.AsFloat())), nil
	}
	return None(), errArg("abs", "a number", args[0].Tag)
}

func coreMin(args []Value) (Value, error) { return minMax("min", args, true) }
func coreMax(args []Value) (Value, error) { return minMax("max", args, false) }

func minMax(name string, args []Value, wantMin bool) (Value, error) {
	if len(args) == 1 && args[0].Tag == VTList {
		args = args[0].AsList().Items
	}
	if len(args) == 0 {
		return None(), errArgc(name, "at least 1 argument")
	}
	best := args[0]
	for _, v := range args {
		if !isNumeric(v) {
			return None(), errArg(name, "numbers", v.Tag)
		}
		if wantMin == (numAsFloat(v) < numAsFloat(best)) && numAsFloat(v) != numAsFloat(best) {
			best = v
		}
	}
	return best, nil
}

func coreRange(args []Value) (Value, error) {
	var start, stop, step int64 = 0, 0, 1
	ints := make([]int64, len(args))
	for i, v := range args {
		if v.Tag != VTInt {
			return None(), errArg("range", "ints", v.Tag)
		}
		ints[i] = v.AsInt()
	}
	switch len(args) {
	case 1:
		stop = ints[0]
	case 2:
		start, stop = ints[0], ints[1]
	case 3:
		start, stop, step = ints[0], ints[1], ints[2]
		if step == 0 {
			return None(), &Error{Kind: ErrArithmetic, Msg: "range step cannot be zero"}
		}
	default:
		return None(), errArgc("range", "1 to 3 arguments")
	}
	var items []Value
	if step > 0 {
		for n := start; n < stop; n += step {
			items = append(items, Int(n))
		}
	} else {
		for n := start; n > stop; n += step {
			items = append(items, Int(n))
		}
	}
	return Value{Tag: VTList, Data: &ListObject{Items: items}}, nil
}

func coreRound(args []Value) (Value, error) {
	if len(args) != 1 {
		return None(), errArgc("round", "1 argument")
	}
	switch v := args[0]; v.Tag {
	case VTInt:
		return v, nil
	case VTFloat:
		return Int(int64(math.Round(v.AsFloat()))), nil
	}
	return None(), errArg("round", "a number", args[0].Tag)
}

func coreSorted(args []Value) (Value, error) {
	if len(args) != 1 || args[0].Tag != VTList {
		return None(), errArgc("sorted", "1 list argument")
	}
	src := args[0].AsList().Items
	items := make([]Value, len(src))
	copy(items, src)

	var sortErr error
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if isNumeric(a) && isNumeric(b) {
			return numAsFloat(a) < numAsFloat(b)
		}
		if a.Tag == VTStr && b.Tag == VTStr {
			return a.AsStr() < b.AsStr()
		}
		if sortErr == nil {
			sortErr = &Error{Kind: ErrType, Msg: fmt.Sprintf("cannot order %s and %s", a.Tag, b.Tag)}
		}
		return false
	})
	if sortErr != nil {
		return None(), sortErr
	}
	return Value{Tag: VTList, Data: &ListObject{Items: items}}, nil
}

func coreReversed(args []Value) (Value, error) {
	if len(args) != 1 {
		return None(), errArgc("reversed", "1 argument")
	}
	switch v := args[0]; v.Tag {
	case VTList:
		src := v.AsList().Items
		items := make([]Value, len(src))
		for i, it := range src {
			items[len(src)-1-i] = it
		}
		return Value{Tag: VTList, Data: &ListObject{Items: items}}, nil
	case VTStr:
		runes := []rune(v.AsStr())
		for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
			runes[i], runes[j] = runes[j], runes[i]
		}
		return Str(string(runes)), nil
	}
	return None(), errArg("reversed", "a list or string", args[0].Tag)
}

func coreKeys(args []Value) (Value, error) {
	if len(args) != 1 || args[0].Tag != VTDict {
		return None(), errArgc("keys", "1 dict argument")
	}
	keys := sortedKeys(args[0].AsDict().Entries)
	items := make([]Value, len(keys))
	for i, k := range keys {
		items[i] = Str(k)
	}
	return Value{Tag: VTList, Data: &ListObject{Items: items}}, nil
}

func coreValues(args []Value) (Value, error) {
	if len(args) != 1 || args[0].Tag != VTDict {
		return None(), errArgc("values", "1 dict argument")
	}
	entries := args[0].AsDict().Entries
	keys := sortedKeys(entries)
	items := make([]Value, len(keys))
	for i, k := range keys {
		items[i] = entries[k]
	}
	return Value{Tag: VTList, Data: &ListObject{Items: items}}, nil
}
