// scope.go — four-compartment variable store with frame stack discipline.
//
// OVERVIEW
// ========
// A render owns one Scope. The Scope keeps a stack of frames, each holding a
// LOCAL and a PRIVATE map, plus three maps shared by the whole render:
// GLOBAL, RETURN and APP.
//
//	PushBlock    copies LOCAL and PRIVATE into a child frame (scope/endscope).
//	PushInclude  copies LOCAL, starts a fresh PRIVATE, and marks the frame as
//	             a template root (include composition).
//	PushCall     chains a fresh frame onto a captured frame (template-defined
//	             function invocation).
//
// Name resolution without an explicit prefix infers the compartment from the
// name's shape: `_` and `_name` are PRIVATE, `_name_` is GLOBAL, anything
// else is LOCAL. LOCAL reads walk parent frames so function bodies see their
// captured scope; writes always land in the current frame.
package tmpl

/* ===========================
   PUBLIC API
   =========================== */

// Compartment names a variable namespace.
type Compartment int

const (
	CompInfer    Compartment = iota // resolve from the name's shape
	CompLocal                       // current frame
	CompGlobal                      // render-wide singleton
	CompPrivate                     // current frame, never copied by includes
	CompReturn                      // render-wide, snapshotted by include `return`
	CompApp                         // render-wide, surfaced on the render result
	CompTemplate                    // LOCAL of the nearest template-root frame
)

func (c Compartment) String() string {
	switch c {
	case CompLocal:
		return "local"
	case CompGlobal:
		return "global"
	case CompPrivate:
		return "private"
	case CompReturn:
		return "return"
	case CompApp:
		return "app"
	case CompTemplate:
		return "template"
	}
	return "infer"
}

// InferCompartment resolves the default compartment for an unprefixed name.
func InferCompartment(name string) Compartment {
	if name == "_" {
		return CompPrivate
	}
	if len(name) > 1 && name[0] == '_' {
		if name[len(name)-1] == '_' {
			return CompGlobal
		}
		return CompPrivate
	}
	return CompLocal
}

// Scope is the variable store for one render invocation.
type Scope struct {
	cur    *frame
	global map[string]Value
	ret    map[string]Value
	app    map[string]Value
}

// NewScope builds a root scope. The seed map becomes the GLOBAL compartment.
func NewScope(seed map[string]Value) *Scope {
	s := &Scope{
		global: map[string]Value{},
		ret:    map[string]Value{},
		app:    map[string]Value{},
	}
	for k, v := range seed {
		s.global[k] = v
	}
	s.cur = &frame{
		local:    map[string]Value{},
		private:  map[string]Value{},
		tmplRoot: true,
	}
	return s
}

// Get resolves a variable. where may be CompInfer. ok=false means unknown.
func (s *Scope) Get(name string, where Compartment) (Value, bool) {
	if where == CompInfer {
		where = InferCompartment(name)
	}
	switch where {
	case CompGlobal:
		v, ok := s.global[name]
		return v, ok
	case CompReturn:
		v, ok := s.ret[name]
		return v, ok
	case CompApp:
		v, ok := s.app[name]
		return v, ok
	case CompPrivate:
		v, ok := s.cur.private[name]
		return v, ok
	case CompTemplate:
		v, ok := s.templateFrame().local[name]
		return v, ok
	}
	// LOCAL walks parent frames so call frames see their captured scope,
	// then falls through to GLOBAL: the global map acts as the root local,
	// which is what lets seeded names resolve without a prefix.
	for f := s.cur; f != nil; f = f.parent {
		if v, ok := f.local[name]; ok {
			return v, true
		}
	}
	v, ok := s.global[name]
	return v, ok
}

// Set writes a variable into the resolved compartment.
func (s *Scope) Set(name string, where Compartment, v Value) {
	if where == CompInfer {
		where = InferCompartment(name)
	}
	switch where {
	case CompGlobal:
		s.global[name] = v
	case CompReturn:
		s.ret[name] = v
	case CompApp:
		s.app[name] = v
	case CompPrivate:
		s.cur.private[name] = v
	case CompTemplate:
		s.templateFrame().local[name] = v
	default:
		s.cur.local[name] = v
	}
}

// Unset removes a variable from the resolved compartment, if present.
func (s *Scope) Unset(name string, where Compartment) {
	if where == CompInfer {
		where = InferCompartment(name)
	}
	switch where {
	case CompGlobal:
		delete(s.global, name)
	case CompReturn:
		delete(s.ret, name)
	case CompApp:
		delete(s.app, name)
	case CompPrivate:
		delete(s.cur.private, name)
	case CompTemplate:
		delete(s.templateFrame().local, name)
	default:
		delete(s.cur.local, name)
	}
}

// Clear empties a compartment. LOCAL and PRIVATE clear the current frame
// only.
func (s *Scope) Clear(where Compartment) {
	switch where {
	case CompGlobal:
		s.global = map[string]Value{}
	case CompReturn:
		s.ret = map[string]Value{}
	case CompApp:
		s.app = map[string]Value{}
	case CompPrivate:
		s.cur.private = map[string]Value{}
	default:
		s.cur.local = map[string]Value{}
	}
}

// PushBlock enters a scope/endscope frame: LOCAL and PRIVATE are shallow
// copies, so writes inside the block vanish at PopBlock.
func (s *Scope) PushBlock() {
	s.cur = &frame{
		parent:  s.cur,
		local:   copyVars(s.cur.local),
		private: copyVars(s.cur.private),
	}
}

// PopBlock leaves a block frame.
func (s *Scope) PopBlock() {
	s.cur = s.cur.parent
}

// PushInclude enters an included template: LOCAL is a shallow copy of the
// caller's, PRIVATE starts empty, and the frame becomes the template root
// for TEMPLATE-compartment writes.
func (s *Scope) PushInclude() {
	s.cur = &frame{
		parent:   s.cur,
		local:    copyVars(s.cur.local),
		private:  map[string]Value{},
		tmplRoot: true,
	}
}

// PopInclude leaves an include frame; the caller's LOCAL and PRIVATE maps
// come back untouched.
func (s *Scope) PopInclude() {
	s.cur = s.cur.parent
}

// PushCall chains a fresh frame onto the frame captured at function
// definition time. LOCAL starts empty (parameters are bound by the caller);
// reads fall through to the captured frame.
func (s *Scope) PushCall(captured *frame) {
	s.cur = &frame{
		parent:  captured,
		local:   map[string]Value{},
		private: map[string]Value{},
	}
}

// PopCall leaves a call frame, restoring the frame active before PushCall.
func (s *Scope) PopCall(prev *frame) {
	s.cur = prev
}

// Frame returns the current frame handle, captured by function definitions.
func (s *Scope) Frame() *frame { return s.cur }

// Depth reports the frame stack depth (used by invariant tests).
func (s *Scope) Depth() int {
	n := 0
	for f := s.cur; f != nil; f = f.parent {
		n++
	}
	return n
}

// ReturnMap exposes the RETURN compartment.
func (s *Scope) ReturnMap() map[string]Value { return s.ret }

// AppMap exposes the APP compartment.
func (s *Scope) AppMap() map[string]Value { return s.app }

// ResetReturn swaps in a fresh RETURN map and hands back the old one.
func (s *Scope) ResetReturn() map[string]Value {
	old := s.ret
	s.ret = map[string]Value{}
	return old
}

// VisibleNames lists every name reachable from the current frame, for
// "did you mean" suggestions on unknown-variable errors.
func (s *Scope) VisibleNames() []string {
	seen := map[string]bool{}
	var names []string
	add := func(m map[string]Value) {
		for k := range m {
			if !seen[k] {
				seen[k] = true
				names = append(names, k)
			}
		}
	}
	for f := s.cur; f != nil; f = f.parent {
		add(f.local)
	}
	add(s.cur.private)
	add(s.global)
	return names
}

//// END_OF_PUBLIC

/* ===========================
   PRIVATE
   =========================== */

type frame struct {
	parent   *frame
	local    map[string]Value
	private  map[string]Value
	tmplRoot bool
}

// templateFrame finds the nearest enclosing template-root frame.
func (s *Scope) templateFrame() *frame {
	for f := s.cur; f != nil; f = f.parent {
		if f.tmplRoot {
			return f
		}
	}
	return s.cur
}

func copyVars(m map[string]Value) map[string]Value {
	out := make(map[string]Value, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
