// env.go — engine facade: environment, template handles, render results.
//
// OVERVIEW
// ========
// An Environment owns everything that outlives a single render: the parsed
// tree cache, the loader, the GLOBAL seed, and the hook and library
// registries. The tree cache locks internally, so templates may be fetched
// and rendered concurrently. RegisterHook and RegisterLibrary write the
// registries without locking and are not safe to call while other
// goroutines use the environment.
//
// A Template is a handle to one parsed tree. Render walks it with a fresh
// scope, so one Template may serve concurrent renders.
//
//	env := tmpl.NewEnvironment(
//		tmpl.WithLoader(tmpl.FSLoader{FS: os.DirFS("templates")}),
//		tmpl.WithGlobals(map[string]tmpl.Value{"site_": tmpl.Str("demo")}),
//	)
//	t, err := env.GetTemplate("page.tmpl")
//	res, err := t.Render(ctx, map[string]tmpl.Value{"title": tmpl.Str("hi")})
package tmpl

import (
	"context"
	"fmt"
	"io"
	"sync"
)

/* ===========================
   PUBLIC API
   =========================== */

// Hook is a host callback invoked by the hook/rhook actions. Text written
// to w lands in the template output (rhook discards it). Absent hooks are
// skipped, not errors.
type Hook func(ctx context.Context, w io.Writer, args map[string]Value) error

// Environment hosts parsed templates and host registrations.
type Environment struct {
	loader  Loader
	globals map[string]Value
	hooks   map[string]Hook
	libs    map[string]Value
	loopCtl bool

	mu    sync.Mutex
	cache map[string]*Template
}

// Option configures a new Environment.
type Option func(*Environment)

// WithLoader sets the template loader used by GetTemplate and includes.
func WithLoader(l Loader) Option {
	return func(env *Environment) { env.loader = l }
}

// WithGlobals merges vars into the GLOBAL seed of every render.
func WithGlobals(vars map[string]Value) Option {
	return func(env *Environment) {
		for k, v := range vars {
			env.globals[k] = v
		}
	}
}

// WithLoopControl enables the break and continue actions.
func WithLoopControl() Option {
	return func(env *Environment) { env.loopCtl = true }
}

// WithHook registers a named hook.
func WithHook(name string, h Hook) Option {
	return func(env *Environment) { env.hooks[name] = h }
}

// WithLibrary registers a named function library for the import action.
// The value is typically a dict of callables but may be any Value.
func WithLibrary(name string, lib Value) Option {
	return func(env *Environment) { env.libs[name] = lib }
}

// NewEnvironment builds an environment. The core builtin functions are
// seeded into GLOBAL and the standard libraries are pre-registered.
func NewEnvironment(opts ...Option) *Environment {
	env := &Environment{
		globals: map[string]Value{},
		hooks:   map[string]Hook{},
		libs:    map[string]Value{},
		cache:   map[string]*Template{},
	}
	for name, fn := range coreFuncs() {
		env.globals[name] = fn
	}
	for name, lib := range standardLibraries() {
		env.libs[name] = lib
	}
	for _, opt := range opts {
		opt(env)
	}
	return env
}

// GetTemplate loads, parses and caches a template by name.
func (env *Environment) GetTemplate(name string) (*Template, error) {
	env.mu.Lock()
	defer env.mu.Unlock()

	if t, ok := env.cache[name]; ok {
		return t, nil
	}
	if env.loader == nil {
		return nil, &Error{Kind: ErrNotFound, Msg: "no loader configured", Template: name}
	}
	src, canonical, err := env.loader.Load(name)
	if err != nil {
		if e, ok := err.(*Error); ok {
			return nil, e
		}
		return nil, &Error{Kind: ErrNotFound, Msg: err.Error(), Template: name}
	}
	if t, ok := env.cache[canonical]; ok {
		env.cache[name] = t
		return t, nil
	}
	t, err := env.parse(canonical, src)
	if err != nil {
		return nil, err
	}
	env.cache[name] = t
	env.cache[canonical] = t
	return t, nil
}

// ParseString parses source held in memory and caches it under name.
func (env *Environment) ParseString(name, src string) (*Template, error) {
	env.mu.Lock()
	defer env.mu.Unlock()
	t, err := env.parse(name, src)
	if err != nil {
		return nil, err
	}
	env.cache[name] = t
	return t, nil
}

// RegisterHook adds or replaces a named hook.
func (env *Environment) RegisterHook(name string, h Hook) { env.hooks[name] = h }

// RegisterLibrary adds or replaces a named import library.
func (env *Environment) RegisterLibrary(name string, lib Value) { env.libs[name] = lib }

// Template is a handle to one parsed tree, owned by its Environment.
type Template struct {
	env   *Environment
	name  string
	src   string
	nodes *NodeList
}

// Name returns the canonical template name.
func (t *Template) Name() string { return t.name }

// Source returns the original template source, kept for error snippets.
func (t *Template) Source() string { return t.src }

// RenderResult carries everything one render produced besides errors.
type RenderResult struct {
	// Output is the rendered text.
	Output string

	// Return and App are the final RETURN and APP compartments.
	Return map[string]Value
	App    map[string]Value

	// Sections holds the named section captures.
	Sections map[string]string
}

// Render walks the template with vars seeded into the root LOCAL frame.
// Cancelling ctx aborts the walk with an ErrAbort error; output produced
// before the abort is discarded along with the result.
func (t *Template) Render(ctx context.Context, vars map[string]Value) (*RenderResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := startSpan(ctx, "tmpl.Render", t.name)
	defer span.End()

	scope := NewScope(t.env.globals)
	for k, v := range vars {
		scope.Set(k, CompLocal, v)
	}
	st := newRenderState(t.env, ctx, t, scope)
	if err := st.run(t.nodes); err != nil {
		logger(ctx).DebugContext(ctx, "render failed",
			"template", t.name, "error", err)
		return nil, err
	}
	res := &RenderResult{
		Output:   st.output(),
		Return:   scope.ReturnMap(),
		App:      scope.AppMap(),
		Sections: st.sections,
	}
	logger(ctx).DebugContext(ctx, "render complete",
		"template", t.name, "bytes", len(res.Output))
	return res, nil
}

// RenderTo renders into w and returns the side-channel result.
func (t *Template) RenderTo(ctx context.Context, w io.Writer, vars map[string]Value) (*RenderResult, error) {
	res, err := t.Render(ctx, vars)
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(w, res.Output); err != nil {
		return nil, fmt.Errorf("writing render output: %w", err)
	}
	return res, nil
}

//// END_OF_PUBLIC

/* ===========================
   PRIVATE
   =========================== */

// parse builds a Template; the caller holds the cache lock or owns env
// exclusively.
func (env *Environment) parse(name, src string) (*Template, error) {
	nodes, err := Parse(name, src, env.loopCtl)
	if err != nil {
		return nil, parseErrAt(err, name)
	}
	return &Template{env: env, name: name, src: src, nodes: nodes}, nil
}

func (env *Environment) hook(name string) Hook { return env.hooks[name] }

func (env *Environment) library(name string) (Value, bool) {
	lib, ok := env.libs[name]
	return lib, ok
}

// loadRelative resolves an include path against the including template's
// canonical name.
func (env *Environment) loadRelative(path string, from *Template) (*Template, error) {
	name := path
	if from != nil {
		name = relativeName(from.name, path)
	}
	return env.GetTemplate(name)
}
