// eval.go — expression evaluation over the parsed tree.
//
// OVERVIEW
// ========
// The evaluator walks expr.go nodes directly against the render state. Every
// fault panics with a renderFault wrapping a *Error that carries the template
// name and source line; run() in render.go recovers it. The operator semantics:
//
//   - `/` between two integers divides and truncates toward zero; a mixed
//     int/float pair promotes to float. Division or modulo by zero is an
//     arithmetic error.
//   - `+` adds numbers, concatenates strings and concatenates lists into a
//     fresh list.
//   - `==`/`!=` compare structurally; a cross-type pair is a type error
//     unless one side is none or both are numeric.
//   - `in` tests substring, list membership or dict key presence.
//   - `and`/`or` short-circuit and yield a bool.
package tmpl

import (
	"fmt"
	"math"
	"strings"
)

/* ===========================
   PRIVATE: evaluator
   =========================== */

func (st *renderState) evalExpr(e Expr) Value {
	switch x := e.(type) {
	case *LitExpr:
		return x.Val
	case *ListExpr:
		items := make([]Value, len(x.Items))
		for i, it := range x.Items {
			items[i] = st.evalExpr(it)
		}
		return Value{Tag: VTList, Data: &ListObject{Items: items}}
	case *DictExpr:
		d := &DictObject{Entries: make(map[string]Value, len(x.Keys))}
		for i := range x.Keys {
			k := st.dictKey(x.Keys[i].ExprLine(), st.evalExpr(x.Keys[i]))
			d.Entries[k] = st.evalExpr(x.Vals[i])
		}
		return Value{Tag: VTDict, Data: d}
	case *VarExpr:
		return st.lookupVar(x.Pos, x.Name, x.Where)
	case *AttrExpr:
		return st.evalAttr(x)
	case *ItemExpr:
		return st.evalItem(x)
	case *CallExpr:
		return st.evalCall(x)
	case *UnaryExpr:
		return st.evalUnary(x)
	case *BinExpr:
		return st.evalBinary(x)
	}
	st.failf(ErrInternal, e.ExprLine(), "unhandled expression node %T", e)
	return None()
}

// lookupVar resolves a variable reference or raises an unknown-variable
// error carrying fuzzy-matched candidates from the visible scope.
func (st *renderState) lookupVar(line int, name string, where Compartment) Value {
	if v, ok := st.scope.Get(name, where); ok {
		return v
	}
	st.raise(&Error{
		Kind:        ErrUnknownVariable,
		Msg:         fmt.Sprintf("'%s'", name),
		Template:    st.name,
		Line:        line,
		Suggestions: suggestNames(name, st.scope.VisibleNames()),
	})
	return None()
}

func (st *renderState) evalAttr(x *AttrExpr) Value {
	base := st.evalExpr(x.Base)
	switch base.Tag {
	case VTDict:
		d := base.AsDict()
		if v, ok := d.Entries[x.Name]; ok {
			return v
		}
		keys := make([]string, 0, len(d.Entries))
		for k := range d.Entries {
			keys = append(keys, k)
		}
		st.raise(&Error{
			Kind:        ErrUnknownVariable,
			Msg:         fmt.Sprintf("'%s'", x.Name),
			Template:    st.name,
			Line:        x.Pos,
			Suggestions: suggestNames(x.Name, keys),
		})
	case VTOpaque:
		if v, ok := base.Data.(Opaque).GetAttr(x.Name); ok {
			return v
		}
		st.failf(ErrUnknownVariable, x.Pos, "'%s'", x.Name)
	}
	st.failf(ErrType, x.Pos, "cannot access attribute %q on %s", x.Name, base.Tag)
	return None()
}

func (st *renderState) evalItem(x *ItemExpr) Value {
	base := st.evalExpr(x.Base)
	key := st.evalExpr(x.Key)
	switch base.Tag {
	case VTDict:
		k := st.dictKey(x.Pos, key)
		if v, ok := base.AsDict().Entries[k]; ok {
			return v
		}
		st.failf(ErrIndex, x.Pos, "key %q not in dict", k)
	case VTList:
		items := base.AsList().Items
		return items[st.seqIndex(x.Pos, len(items), key)]
	case VTStr:
		s := base.AsStr()
		i := st.seqIndex(x.Pos, len(s), key)
		return Str(s[i : i+1])
	case VTOpaque:
		if v, ok := base.Data.(Opaque).GetItem(key); ok {
			return v
		}
		st.failf(ErrIndex, x.Pos, "key %s not found", key.Stringify())
	}
	st.failf(ErrType, x.Pos, "cannot index %s", base.Tag)
	return None()
}

// seqIndex validates an index against a sequence of length n. Negative
// indexes count from the end.
func (st *renderState) seqIndex(line, n int, key Value) int {
	if key.Tag != VTInt {
		st.failf(ErrType, line, "index must be int, got %s", key.Tag)
	}
	i := int(key.AsInt())
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		st.failf(ErrIndex, line, "index %d out of range for length %d", key.AsInt(), n)
	}
	return i
}

func (st *renderState) evalCall(x *CallExpr) Value {
	fn := st.evalExpr(x.Fn)
	switch fn.Tag {
	case VTCallable:
		c := fn.AsCallable()
		if c.Special != nil {
			v, err := c.Special(st, x.Pos, x.Args)
			if err != nil {
				st.raiseErr(err, x.Pos)
			}
			return v
		}
		args := make([]Value, len(x.Args))
		for i, a := range x.Args {
			args[i] = st.evalExpr(a)
		}
		if c.Native != nil {
			v, err := c.Native(args)
			if err != nil {
				st.raiseErr(err, x.Pos)
			}
			return v
		}
		return st.callTemplateFunc(c, args, x.Pos)
	case VTOpaque:
		args := make([]Value, len(x.Args))
		for i, a := range x.Args {
			args[i] = st.evalExpr(a)
		}
		v, err := fn.Data.(Opaque).CallOpaque(args)
		if err != nil {
			st.raiseErr(err, x.Pos)
		}
		return v
	}
	st.failf(ErrType, x.Pos, "%s is not callable", fn.Tag)
	return None()
}

func (st *renderState) evalUnary(x *UnaryExpr) Value {
	v := st.evalExpr(x.X)
	switch x.Op {
	case T_NOT:
		return Bool(!v.Truthy())
	case T_MINUS:
		switch v.Tag {
		case VTInt:
			return Int(-v.AsInt())
		case VTFloat:
			return Float(-v.AsFloat())
		}
		st.failf(ErrType, x.Pos, "cannot negate %s", v.Tag)
	}
	st.failf(ErrInternal, x.Pos, "unhandled unary operator")
	return None()
}

func (st *renderState) evalBinary(x *BinExpr) Value {
	// Short-circuit forms evaluate the right side only when needed.
	switch x.Op {
	case T_AND:
		if !st.evalExpr(x.L).Truthy() {
			return Bool(false)
		}
		return Bool(st.evalExpr(x.R).Truthy())
	case T_OR:
		if st.evalExpr(x.L).Truthy() {
			return Bool(true)
		}
		return Bool(st.evalExpr(x.R).Truthy())
	}

	l := st.evalExpr(x.L)
	r := st.evalExpr(x.R)
	switch x.Op {
	case T_EQ, T_NE:
		eq, ok := valueEqual(l, r)
		if !ok {
			st.failf(ErrType, x.Pos, "cannot compare %s and %s", l.Tag, r.Tag)
		}
		if x.Op == T_NE {
			eq = !eq
		}
		return Bool(eq)
	case T_LT, T_LE, T_GT, T_GE:
		return Bool(st.evalOrder(x.Pos, x.Op, l, r))
	case T_IN:
		return Bool(st.evalIn(x.Pos, l, r))
	case T_PLUS:
		return st.evalAdd(x.Pos, l, r)
	case T_MINUS, T_STAR, T_SLASH, T_PERCENT:
		return st.evalArith(x.Pos, x.Op, l, r)
	}
	st.failf(ErrInternal, x.Pos, "unhandled binary operator")
	return None()
}

// evalOrder handles < <= > >= over numeric pairs and string pairs.
func (st *renderState) evalOrder(line int, op TokenType, l, r Value) bool {
	if isNumeric(l) && isNumeric(r) {
		if l.Tag == VTInt && r.Tag == VTInt {
			a, b := l.AsInt(), r.AsInt()
			switch op {
			case T_LT:
				return a < b
			case T_LE:
				return a <= b
			case T_GT:
				return a > b
			}
			return a >= b
		}
		a, b := numAsFloat(l), numAsFloat(r)
		switch op {
		case T_LT:
			return a < b
		case T_LE:
			return a <= b
		case T_GT:
			return a > b
		}
		return a >= b
	}
	if l.Tag == VTStr && r.Tag == VTStr {
		a, b := l.AsStr(), r.AsStr()
		switch op {
		case T_LT:
			return a < b
		case T_LE:
			return a <= b
		case T_GT:
			return a > b
		}
		return a >= b
	}
	st.failf(ErrType, line, "cannot order %s and %s", l.Tag, r.Tag)
	return false
}

// evalIn tests membership: substring in string, element in list, key in
// dict.
func (st *renderState) evalIn(line int, l, r Value) bool {
	switch r.Tag {
	case VTStr:
		if l.Tag != VTStr {
			st.failf(ErrType, line, "cannot search for %s in string", l.Tag)
		}
		return strings.Contains(r.AsStr(), l.AsStr())
	case VTList:
		for _, it := range r.AsList().Items {
			eq, ok := valueEqual(l, it)
			if ok && eq {
				return true
			}
		}
		return false
	case VTDict:
		_, present := r.AsDict().Entries[st.dictKey(line, l)]
		return present
	}
	st.failf(ErrType, line, "%s is not a container", r.Tag)
	return false
}

func (st *renderState) evalAdd(line int, l, r Value) Value {
	if isNumeric(l) && isNumeric(r) {
		if l.Tag == VTInt && r.Tag == VTInt {
			return Int(l.AsInt() + r.AsInt())
		}
		return Float(numAsFloat(l) + numAsFloat(r))
	}
	if l.Tag == VTStr && r.Tag == VTStr {
		return Str(l.AsStr() + r.AsStr())
	}
	if l.Tag == VTList && r.Tag == VTList {
		la, lb := l.AsList().Items, r.AsList().Items
		items := make([]Value, 0, len(la)+len(lb))
		items = append(items, la...)
		items = append(items, lb...)
		return Value{Tag: VTList, Data: &ListObject{Items: items}}
	}
	st.failf(ErrType, line, "cannot add %s and %s", l.Tag, r.Tag)
	return None()
}

func (st *renderState) evalArith(line int, op TokenType, l, r Value) Value {
	if !isNumeric(l) || !isNumeric(r) {
		st.failf(ErrType, line, "cannot apply %s to %s and %s", opName(op), l.Tag, r.Tag)
	}
	if l.Tag == VTInt && r.Tag == VTInt {
		a, b := l.AsInt(), r.AsInt()
		switch op {
		case T_MINUS:
			return Int(a - b)
		case T_STAR:
			return Int(a * b)
		case T_SLASH:
			if b == 0 {
				st.failf(ErrArithmetic, line, "division by zero")
			}
			return Int(a / b)
		case T_PERCENT:
			if b == 0 {
				st.failf(ErrArithmetic, line, "modulo by zero")
			}
			return Int(a % b)
		}
	}
	a, b := numAsFloat(l), numAsFloat(r)
	switch op {
	case T_MINUS:
		return Float(a - b)
	case T_STAR:
		return Float(a * b)
	case T_SLASH:
		if b == 0 {
			st.failf(ErrArithmetic, line, "division by zero")
		}
		return Float(a / b)
	case T_PERCENT:
		if b == 0 {
			st.failf(ErrArithmetic, line, "modulo by zero")
		}
		return Float(math.Mod(a, b))
	}
	st.failf(ErrInternal, line, "unhandled arithmetic operator")
	return None()
}

// dictKey coerces a value to a dict key. Scalars stringify; containers and
// callables are rejected.
func (st *renderState) dictKey(line int, v Value) string {
	switch v.Tag {
	case VTStr:
		return v.AsStr()
	case VTBool, VTInt, VTFloat:
		return v.Stringify()
	}
	st.failf(ErrType, line, "%s cannot be a dict key", v.Tag)
	return ""
}

func opName(op TokenType) string {
	switch op {
	case T_PLUS:
		return "'+'"
	case T_MINUS:
		return "'-'"
	case T_STAR:
		return "'*'"
	case T_SLASH:
		return "'/'"
	case T_PERCENT:
		return "'%'"
	}
	return "operator"
}
