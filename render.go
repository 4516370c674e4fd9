// render.go — tree walk for one render invocation.
//
// OVERVIEW
// ========
// A renderState owns everything one render touches: the scope, the output
// sink stack, captured sections and the cancellation context. Node renders
// return a signal so break/continue can unwind to the innermost loop without
// threading error values through every call.
//
// Faults raised while walking the tree panic with a renderFault wrapping the
// engine *Error; run() recovers it at the top of the walk and hands the
// error back to Template.Render. Only set/else recovery, include chain
// annotation and the defined/default special forms (tryEval in
// builtin_core.go) intercept the panic on the way up.
package tmpl

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
)

/* ===========================
   PRIVATE: render state
   =========================== */

// maxIncludeDepth bounds include recursion so a template cannot include
// itself forever.
const maxIncludeDepth = 64

// abortCheckMask controls how often the walk polls the context; power of
// two minus one. Zero polls on every node entry.
const abortCheckMask = 0

type signal int

const (
	sigNormal signal = iota
	sigBreak
	sigContinue
)

// renderFault carries an engine error up the walk as a panic payload.
type renderFault struct{ err *Error }

type renderState struct {
	env   *Environment
	ctx   context.Context
	name  string
	tmpl  *Template
	scope *Scope

	sinks    []*strings.Builder
	sections map[string]string
	steps    int
	depth    int
}

func newRenderState(env *Environment, ctx context.Context, tmpl *Template, scope *Scope) *renderState {
	return &renderState{
		env:      env,
		ctx:      ctx,
		name:     tmpl.Name(),
		tmpl:     tmpl,
		scope:    scope,
		sinks:    []*strings.Builder{{}},
		sections: map[string]string{},
	}
}

// run walks the tree and converts any render fault back into an error.
func (st *renderState) run(list *NodeList) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if f, ok := r.(renderFault); ok {
			err = f.err
			return
		}
		panic(r)
	}()
	st.renderList(list)
	return nil
}

func (st *renderState) output() string { return st.sinks[0].String() }

func (st *renderState) sink() *strings.Builder { return st.sinks[len(st.sinks)-1] }

func (st *renderState) pushSink() { st.sinks = append(st.sinks, &strings.Builder{}) }

func (st *renderState) popSink() string {
	b := st.sinks[len(st.sinks)-1]
	st.sinks = st.sinks[:len(st.sinks)-1]
	return b.String()
}

func (st *renderState) write(s string) { st.sink().WriteString(s) }

/* fault helpers */

func (st *renderState) raise(e *Error) {
	panic(renderFault{err: e})
}

func (st *renderState) failf(kind ErrorKind, line int, format string, args ...interface{}) {
	st.raise(&Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Template: st.name, Line: line})
}

// raiseErr lifts an error returned by a host function into the fault path.
// Engine errors pass through with location filled in; anything else becomes
// a type error at the call site.
func (st *renderState) raiseErr(err error, line int) {
	if e, ok := err.(*Error); ok {
		if e.Template == "" {
			e.Template = st.name
		}
		if e.Line == 0 {
			e.Line = line
		}
		st.raise(e)
	}
	st.failf(ErrType, line, "%s", err.Error())
}

/* ===========================
   PRIVATE: node walk
   =========================== */

func (st *renderState) renderList(list *NodeList) signal {
	if list == nil {
		return sigNormal
	}
	for _, n := range list.Nodes {
		st.steps++
		if st.steps&abortCheckMask == 0 && st.ctx.Err() != nil {
			st.failf(ErrAbort, n.NodeLine(), "%s", st.ctx.Err().Error())
		}
		if sig := st.renderNode(n); sig != sigNormal {
			return sig
		}
	}
	return sigNormal
}

func (st *renderState) renderNode(n Node) signal {
	switch x := n.(type) {
	case *TextNode:
		st.write(x.Text)
	case *EmitNode:
		st.write(st.evalExpr(x.Expr).Stringify())
	case *IfNode:
		return st.renderIf(x)
	case *ForNode:
		return st.renderFor(x)
	case *ForeachNode:
		return st.renderForeach(x)
	case *SwitchNode:
		return st.renderSwitch(x)
	case *SetNode:
		st.renderSet(x)
	case *UnsetNode:
		for _, t := range x.Targets {
			st.scope.Unset(t.Name, t.Where)
		}
	case *ClearNode:
		st.scope.Clear(x.Where)
	case *ScopeNode:
		return st.renderScope(x)
	case *IncludeNode:
		st.renderInclude(x)
	case *ExpandNode:
		st.renderExpand(x)
	case *ReturnNode:
		st.applyAssigns(x.Assigns, CompReturn)
	case *DefNode:
		st.renderDef(x)
	case *CallNode:
		st.evalExpr(x.Expr)
	case *SectionNode:
		st.renderSection(x)
	case *UseNode:
		st.renderUse(x)
	case *VarNode:
		st.pushSink()
		sig := st.renderList(x.Body)
		st.scope.Set(x.Target.Name, x.Target.Where, Str(st.popSink()))
		return sig
	case *ErrorNode:
		st.failf(ErrUser, x.Line, "%s", st.evalExpr(x.Expr).Stringify())
	case *ImportNode:
		st.renderImport(x)
	case *DoNode:
		for _, e := range x.Exprs {
			st.evalExpr(e)
		}
	case *HookNode:
		st.renderHook(x)
	case *BreakNode:
		return sigBreak
	case *ContinueNode:
		return sigContinue
	default:
		st.failf(ErrInternal, n.NodeLine(), "unhandled node %T", n)
	}
	return sigNormal
}

func (st *renderState) renderIf(n *IfNode) signal {
	for i, cond := range n.Conds {
		if st.evalExpr(cond).Truthy() {
			return st.renderList(n.Bodies[i])
		}
	}
	return st.renderList(n.Else)
}

func (st *renderState) renderFor(n *ForNode) signal {
	st.applyAssigns(n.Init, CompInfer)
	ran := false
	for st.evalExpr(n.Test).Truthy() {
		ran = true
		sig := st.renderList(n.Body)
		if sig == sigBreak {
			return sigNormal
		}
		st.applyAssigns(n.Incr, CompInfer)
	}
	if !ran {
		return st.renderList(n.Else)
	}
	return sigNormal
}

func (st *renderState) renderForeach(n *ForeachNode) signal {
	items := st.iterItems(n.Iter)
	if len(items) == 0 {
		return st.renderList(n.Else)
	}
	for i, it := range items {
		if n.HasIdx {
			st.scope.Set(n.Idx.Name, n.Idx.Where, Int(int64(i)))
		}
		st.scope.Set(n.Var.Name, n.Var.Where, it)
		sig := st.renderList(n.Body)
		if sig == sigBreak {
			break
		}
	}
	return sigNormal
}

// iterItems flattens an iterable into a value slice: list elements, sorted
// dict keys, or the runes of a string. none iterates as empty.
func (st *renderState) iterItems(e Expr) []Value {
	v := st.evalExpr(e)
	switch v.Tag {
	case VTList:
		return v.AsList().Items
	case VTDict:
		keys := sortedKeys(v.AsDict().Entries)
		items := make([]Value, len(keys))
		for i, k := range keys {
			items[i] = Str(k)
		}
		return items
	case VTStr:
		runes := []rune(v.AsStr())
		items := make([]Value, len(runes))
		for i, r := range runes {
			items[i] = Str(string(r))
		}
		return items
	case VTNone:
		return nil
	}
	st.failf(ErrType, e.ExprLine(), "cannot iterate %s", v.Tag)
	return nil
}

func (st *renderState) renderSwitch(n *SwitchNode) signal {
	subject := st.evalExpr(n.Subject)
	for i := range n.Cases {
		rhs := st.evalExpr(n.CaseRHS[i])
		if st.caseMatches(n.Line, n.CaseOps[i], subject, rhs) {
			return st.renderList(n.Cases[i])
		}
	}
	return st.renderList(n.Default)
}

func (st *renderState) caseMatches(line int, op TokenType, subject, rhs Value) bool {
	switch op {
	case T_EQ, T_NE:
		eq, ok := valueEqual(subject, rhs)
		if !ok {
			st.failf(ErrType, line, "cannot compare %s and %s", subject.Tag, rhs.Tag)
		}
		if op == T_NE {
			return !eq
		}
		return eq
	}
	return st.evalOrder(line, op, subject, rhs)
}

// renderSet applies a set action all-or-nothing: every right-hand side is
// evaluated before any target is written. When a right-hand side fails and
// the action carries an else clause, the recovery assignments run instead.
func (st *renderState) renderSet(n *SetNode) {
	vals, fault := st.tryEvalAssigns(n.Assigns)
	if fault != nil {
		if fault.Kind == ErrAbort || !n.HasElse {
			st.raise(fault)
		}
		for _, a := range n.Else {
			st.scope.Set(a.Name, assignWhere(a, n.Where), st.evalExpr(a.Expr))
		}
		return
	}
	for i, a := range n.Assigns {
		st.scope.Set(a.Name, assignWhere(a, n.Where), vals[i])
	}
}

// tryEvalAssigns evaluates each right-hand side, catching a render fault
// instead of letting it unwind.
func (st *renderState) tryEvalAssigns(assigns []Assign) (vals []Value, fault *Error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if f, ok := r.(renderFault); ok {
			vals, fault = nil, f.err
			return
		}
		panic(r)
	}()
	vals = make([]Value, len(assigns))
	for i, a := range assigns {
		vals[i] = st.evalExpr(a.Expr)
	}
	return vals, nil
}

func (st *renderState) renderScope(n *ScopeNode) signal {
	st.scope.PushBlock()
	defer st.scope.PopBlock()
	st.applyAssigns(n.With, CompInfer)
	return st.renderList(n.Body)
}

func (st *renderState) renderInclude(n *IncludeNode) {
	if st.depth >= maxIncludeDepth {
		st.failf(ErrInternal, n.Line, "include depth exceeds %d", maxIncludeDepth)
	}
	path := st.evalExpr(n.Path)
	if path.Tag != VTStr {
		st.failf(ErrType, n.Line, "include path must be string, got %s", path.Tag)
	}
	callee, err := st.env.loadRelative(path.AsStr(), st.tmpl)
	if err != nil {
		st.raiseErr(err, n.Line)
	}

	// Seed assignments evaluate in the caller's scope before the frame
	// switch.
	names := make([]string, len(n.With))
	wheres := make([]Compartment, len(n.With))
	seeds := make([]Value, len(n.With))
	for i, a := range n.With {
		names[i], wheres[i] = a.Name, assignWhere(a, CompInfer)
		seeds[i] = st.evalExpr(a.Expr)
	}

	prevName, prevTmpl, prevDepth := st.name, st.tmpl, st.depth
	st.scope.PushInclude()
	for i := range names {
		st.scope.Set(names[i], wheres[i], seeds[i])
	}
	st.name, st.tmpl, st.depth = callee.Name(), callee, st.depth+1

	func() {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if f, ok := r.(renderFault); ok {
				f.err.Chain = append(f.err.Chain, ErrorFrame{Template: prevName, Line: n.Line})
			}
			panic(r)
		}()
		st.renderList(callee.nodes)
	}()

	st.scope.PopInclude()
	st.name, st.tmpl, st.depth = prevName, prevTmpl, prevDepth

	// The RETURN compartment persists across includes; a return-var
	// snapshots and drains it.
	if n.HasRet {
		st.scope.Set(n.Ret.Name, n.Ret.Where, DictFrom(st.scope.ResetReturn()))
	}
}

func (st *renderState) renderExpand(n *ExpandNode) {
	v := st.evalExpr(n.Expr)
	if v.Tag != VTDict {
		st.failf(ErrType, n.Line, "expand needs a dict, got %s", v.Tag)
	}
	for k, val := range v.AsDict().Entries {
		st.scope.Set(k, n.Where, val)
	}
}

func (st *renderState) renderDef(n *DefNode) {
	c := &Callable{
		Name:     n.Target.Name,
		Params:   n.Params,
		Body:     n.Body,
		Captured: st.scope.Frame(),
		Owner:    st.tmpl,
	}
	st.scope.Set(n.Target.Name, n.Target.Where, Value{Tag: VTCallable, Data: c})
}

func (st *renderState) renderSection(n *SectionNode) {
	name := st.evalExpr(n.Name).Stringify()
	st.pushSink()
	st.renderList(n.Body)
	st.sections[name] = st.popSink()
}

func (st *renderState) renderUse(n *UseNode) {
	name := st.evalExpr(n.Name).Stringify()
	text, ok := st.sections[name]
	if !ok {
		st.failf(ErrNotFound, n.Line, "no section %q captured", name)
	}
	st.write(text)
}

func (st *renderState) renderImport(n *ImportNode) {
	for _, a := range n.Assigns {
		libName := st.evalExpr(a.Expr)
		if libName.Tag != VTStr {
			st.failf(ErrType, n.Line, "import name must be string, got %s", libName.Tag)
		}
		lib, ok := st.env.library(libName.AsStr())
		if !ok {
			st.failf(ErrNotFound, n.Line, "no library %q registered", libName.AsStr())
		}
		st.scope.Set(a.Name, assignWhere(a, CompInfer), lib)
	}
}

func (st *renderState) renderHook(n *HookNode) {
	name := st.evalExpr(n.Name).Stringify()
	args := make(map[string]Value, len(n.With))
	for _, a := range n.With {
		args[a.Name] = st.evalExpr(a.Expr)
	}
	h := st.env.hook(name)
	if h == nil {
		return
	}
	var w io.Writer = st.sink()
	if n.Reverse {
		w = io.Discard
	}
	if err := h(st.ctx, w, args); err != nil {
		st.raiseErr(err, n.Line)
	}
}

// callTemplateFunc invokes a def-defined function: parameters bind into a
// fresh frame chained onto the captured one, the body renders into a side
// sink, and the captured text is the call's value.
func (st *renderState) callTemplateFunc(c *Callable, args []Value, line int) Value {
	if len(args) != len(c.Params) {
		st.failf(ErrType, line, "%s takes %d arguments, got %d", c.Name, len(c.Params), len(args))
	}
	prev := st.scope.Frame()
	st.scope.PushCall(c.Captured)
	defer st.scope.PopCall(prev)
	for i, p := range c.Params {
		st.scope.Set(p, CompLocal, args[i])
	}

	prevName, prevTmpl := st.name, st.tmpl
	if c.Owner != nil {
		st.name, st.tmpl = c.Owner.Name(), c.Owner
	}
	defer func() { st.name, st.tmpl = prevName, prevTmpl }()

	st.pushSink()
	st.renderList(c.Body)
	return Str(st.popSink())
}

/* ===========================
   PRIVATE: small helpers
   =========================== */

// assignWhere resolves the compartment for one assignment target: an
// explicit prefix on the target wins, otherwise the action's default
// applies.
func assignWhere(a Assign, def Compartment) Compartment {
	if a.Where != CompInfer {
		return a.Where
	}
	return def
}

func (st *renderState) applyAssigns(assigns []Assign, def Compartment) {
	for _, a := range assigns {
		st.scope.Set(a.Name, assignWhere(a, def), st.evalExpr(a.Expr))
	}
}

func sortedKeys(m map[string]Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
