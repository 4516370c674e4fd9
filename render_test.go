package tmpl

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

// --- helpers ---------------------------------------------------------------

func renderSrc(t *testing.T, src string, vars map[string]Value) string {
	t.Helper()
	res := renderFull(t, src, vars)
	return res.Output
}

func renderFull(t *testing.T, src string, vars map[string]Value) *RenderResult {
	t.Helper()
	env := NewEnvironment()
	tpl, err := env.ParseString("test", src)
	if err != nil {
		t.Fatalf("parse error: %v\nsource:\n%s", err, src)
	}
	res, err := tpl.Render(context.Background(), vars)
	if err != nil {
		t.Fatalf("render error: %v\nsource:\n%s", err, src)
	}
	return res
}

func renderExpectError(t *testing.T, src string, vars map[string]Value) *Error {
	t.Helper()
	env := NewEnvironment()
	tpl, err := env.ParseString("test", src)
	if err != nil {
		t.Fatalf("parse error: %v\nsource:\n%s", err, src)
	}
	_, rerr := tpl.Render(context.Background(), vars)
	if rerr == nil {
		t.Fatalf("expected render error, got nil\nsource:\n%s", src)
	}
	e, ok := rerr.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T: %v", rerr, rerr)
	}
	return e
}

func wantOutput(t *testing.T, src string, vars map[string]Value, want string) {
	t.Helper()
	got := renderSrc(t, src, vars)
	if got != want {
		t.Fatalf("output mismatch\nsource:   %q\nwant:     %q\ngot:      %q", src, want, got)
	}
}

func wantRenderKind(t *testing.T, src string, vars map[string]Value, kind ErrorKind) *Error {
	t.Helper()
	e := renderExpectError(t, src, vars)
	if e.Kind != kind {
		t.Fatalf("want error kind %v, got %v (%v)", kind, e.Kind, e)
	}
	return e
}

// --- emission and literals -------------------------------------------------

func Test_Render_Text_And_Emit(t *testing.T) {
	wantOutput(t, `Hello {{ name }}!`, map[string]Value{"name": Str("World")}, "Hello World!")
	wantOutput(t, `{{ 1 + 2 }}`, nil, "3")
	wantOutput(t, `{{ "a" + "b" }}`, nil, "ab")
	wantOutput(t, `{{ 5.0 }}`, nil, "5.0")
	wantOutput(t, `{{ none_thing }}`, map[string]Value{"none_thing": None()}, "")
}

func Test_Render_Comment_Emits_Nothing(t *testing.T) {
	wantOutput(t, `a{# anything goes here #}b`, nil, "ab")
}

func Test_Render_Empty_Action_Tag_Is_Legal(t *testing.T) {
	wantOutput(t, `a{% %}b`, nil, "ab")
}

func Test_Render_Unknown_Variable(t *testing.T) {
	wantRenderKind(t, `{{ missing }}`, nil, ErrUnknownVariable)
}

// --- if --------------------------------------------------------------------

func Test_Render_If_Elif_Else(t *testing.T) {
	src := `{% if a == 1 %}one{% elif a == 2 %}two{% else %}other{% endif %}`
	wantOutput(t, src, map[string]Value{"a": Int(1)}, "one")
	wantOutput(t, src, map[string]Value{"a": Int(2)}, "two")
	wantOutput(t, src, map[string]Value{"a": Int(9)}, "other")
}

func Test_Render_If_Truthiness(t *testing.T) {
	src := `{% if v %}T{% else %}F{% endif %}`
	wantOutput(t, src, map[string]Value{"v": Str("")}, "F")
	wantOutput(t, src, map[string]Value{"v": Str("x")}, "T")
	wantOutput(t, src, map[string]Value{"v": Int(0)}, "F")
	wantOutput(t, src, map[string]Value{"v": List()}, "F")
	wantOutput(t, src, map[string]Value{"v": List(Int(1))}, "T")
	wantOutput(t, src, map[string]Value{"v": None()}, "F")
}

// --- loops -----------------------------------------------------------------

func Test_Render_Foreach_List(t *testing.T) {
	src := `{% foreach x in xs %}{{ x }},{% endforeach %}`
	wantOutput(t, src, map[string]Value{"xs": List(Int(1), Int(2), Int(3))}, "1,2,3,")
}

func Test_Render_Foreach_With_Index(t *testing.T) {
	src := `{% foreach x, i in xs %}{{ i }}:{{ x }} {% endforeach %}`
	wantOutput(t, src, map[string]Value{"xs": List(Str("a"), Str("b"))}, "0:a 1:b ")
}

func Test_Render_Foreach_Dict_Iterates_Sorted_Keys(t *testing.T) {
	d := DictFrom(map[string]Value{"b": Int(2), "a": Int(1), "c": Int(3)})
	wantOutput(t, `{% foreach k in d %}{{ k }}{% endforeach %}`, map[string]Value{"d": d}, "abc")
}

func Test_Render_Foreach_String_Iterates_Runes(t *testing.T) {
	wantOutput(t, `{% foreach c in s %}{{ c }}.{% endforeach %}`, map[string]Value{"s": Str("héj")}, "h.é.j.")
}

func Test_Render_Foreach_Empty_Renders_Else(t *testing.T) {
	src := `{% foreach x in xs %}{{ x }}{% else %}empty{% endforeach %}`
	wantOutput(t, src, map[string]Value{"xs": List()}, "empty")
	wantOutput(t, src, map[string]Value{"xs": None()}, "empty")
}

func Test_Render_Foreach_NonIterable(t *testing.T) {
	wantRenderKind(t, `{% foreach x in n %}{% endforeach %}`, map[string]Value{"n": Int(5)}, ErrType)
}

func Test_Render_For_Counter(t *testing.T) {
	src := `{% for i = 0 ; i < 3 ; i = i + 1 %}{{ i }}{% endfor %}`
	wantOutput(t, src, nil, "012")
}

func Test_Render_For_Else_When_Test_False_At_Start(t *testing.T) {
	src := `{% for i = 5 ; i < 3 ; i = i + 1 %}{{ i }}{% else %}none{% endfor %}`
	wantOutput(t, src, nil, "none")
}

func Test_Render_Loop_Control(t *testing.T) {
	env := NewEnvironment(WithLoopControl())
	tpl, err := env.ParseString("t", `{% foreach x in xs %}{% if x == 3 %}{% break %}{% endif %}{{ x }}{% endforeach %}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	res, err := tpl.Render(context.Background(), map[string]Value{"xs": List(Int(1), Int(2), Int(3), Int(4))})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if res.Output != "12" {
		t.Fatalf("want %q, got %q", "12", res.Output)
	}

	tpl2, err := env.ParseString("t2", `{% foreach x in xs %}{% if x == 2 %}{% continue %}{% endif %}{{ x }}{% endforeach %}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	res, err = tpl2.Render(context.Background(), map[string]Value{"xs": List(Int(1), Int(2), Int(3))})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if res.Output != "13" {
		t.Fatalf("want %q, got %q", "13", res.Output)
	}
}

func Test_Render_Break_Rejected_Without_Loop_Control(t *testing.T) {
	env := NewEnvironment()
	if _, err := env.ParseString("t", `{% break %}`); err == nil {
		t.Fatal("expected parse error for break without loop control")
	}
}

// --- switch ----------------------------------------------------------------

func Test_Render_Switch(t *testing.T) {
	src := `{% switch n %}{% eq 1 %}one{% eq 2 %}two{% gt 10 %}big{% default %}other{% endswitch %}`
	wantOutput(t, src, map[string]Value{"n": Int(1)}, "one")
	wantOutput(t, src, map[string]Value{"n": Int(2)}, "two")
	wantOutput(t, src, map[string]Value{"n": Int(42)}, "big")
	wantOutput(t, src, map[string]Value{"n": Int(5)}, "other")
}

func Test_Render_Switch_First_Match_Wins(t *testing.T) {
	src := `{% switch n %}{% gt 0 %}pos{% gt 10 %}big{% endswitch %}`
	wantOutput(t, src, map[string]Value{"n": Int(50)}, "pos")
}

func Test_Render_Switch_No_Match_No_Default(t *testing.T) {
	src := `a{% switch n %}{% eq 1 %}one{% endswitch %}b`
	wantOutput(t, src, map[string]Value{"n": Int(2)}, "ab")
}

// --- set and friends -------------------------------------------------------

func Test_Render_Set(t *testing.T) {
	wantOutput(t, `{% set x = 10 %}{{ x }}`, nil, "10")
	wantOutput(t, `{% set x = 1, y = 2 %}{{ x + y }}`, nil, "3")
}

func Test_Render_Set_Else_Recovery(t *testing.T) {
	wantOutput(t, `{% set x = 10 ; else x = 0 %}{{ x }}`, nil, "10")
	wantOutput(t, `{% set x = y ; else x = 0 %}{{ x }}`, nil, "0")
}

func Test_Render_Set_All_Or_Nothing(t *testing.T) {
	// The first assignment's value must not be committed when the second
	// fails.
	src := `{% set a = 1, b = nope ; else ok = "r" %}{{ default(a, "unset") }}{{ ok }}`
	wantOutput(t, src, nil, "unsetr")
}

func Test_Render_Set_Without_Else_Propagates(t *testing.T) {
	wantRenderKind(t, `{% set x = y %}`, nil, ErrUnknownVariable)
}

func Test_Render_Global_Visible_After_Scope(t *testing.T) {
	src := `{% global g = 1 %}{% scope %}{% global g = 2 %}{% endscope %}{{ g }}`
	wantOutput(t, src, nil, "2")
}

func Test_Render_Compartment_Prefixes(t *testing.T) {
	wantOutput(t, `{% set g@x = 1 %}{{ g@x }}`, nil, "1")
	wantOutput(t, `{% set p@x = 2 %}{{ p@x }}`, nil, "2")
	wantOutput(t, `{% set l@x = 3 %}{{ x }}`, nil, "3")
}

func Test_Render_Inferred_Compartments(t *testing.T) {
	// _name is PRIVATE, _name_ is GLOBAL.
	wantOutput(t, `{% set _x = 1 %}{{ p@_x }}`, nil, "1")
	wantOutput(t, `{% set _x_ = 2 %}{{ g@_x_ }}`, nil, "2")
}

func Test_Render_Unset(t *testing.T) {
	src := `{% set x = 1 %}{% unset x %}{{ default(x, "gone") }}`
	wantOutput(t, src, nil, "gone")
}

func Test_Render_Clear_Local(t *testing.T) {
	src := `{% set x = 1, y = 2 %}{% clear local %}{{ default(x, "-") }}{{ default(y, "-") }}`
	wantOutput(t, src, nil, "--")
}

// --- scope -----------------------------------------------------------------

func Test_Render_Scope_Writes_Vanish(t *testing.T) {
	src := `{% set x = 1 %}{% scope %}{% set x = 2 %}{{ x }}{% endscope %}{{ x }}`
	wantOutput(t, src, nil, "21")
}

func Test_Render_Scope_With_Assigns(t *testing.T) {
	src := `{% scope y = 5 %}{{ y }}{% endscope %}{{ default(y, "-") }}`
	wantOutput(t, src, nil, "5-")
}

// --- var, section, use -----------------------------------------------------

func Test_Render_Var_Captures_Body(t *testing.T) {
	src := `{% var v %}x={{ 1 + 1 }}{% endvar %}[{{ v }}]`
	wantOutput(t, src, nil, "[x=2]")
}

func Test_Render_Section_And_Use(t *testing.T) {
	src := `{% section "head" %}<title>{{ t }}</title>{% endsection %}{% use "head" %}|{% use "head" %}`
	wantOutput(t, src, map[string]Value{"t": Str("hi")}, "<title>hi</title>|<title>hi</title>")
}

func Test_Render_Section_Replaces_Prior(t *testing.T) {
	src := `{% section "s" %}one{% endsection %}{% section "s" %}two{% endsection %}{% use "s" %}`
	wantOutput(t, src, nil, "two")
}

func Test_Render_Use_Missing_Section(t *testing.T) {
	wantRenderKind(t, `{% use "nope" %}`, nil, ErrNotFound)
}

func Test_Render_Sections_On_Result(t *testing.T) {
	res := renderFull(t, `{% section "s" %}body{% endsection %}`, nil)
	if res.Sections["s"] != "body" {
		t.Fatalf("want section %q, got %#v", "body", res.Sections)
	}
}

// --- def and call ----------------------------------------------------------

func Test_Render_Def_And_Call(t *testing.T) {
	src := `{% def greet(who) %}Hello {{ who }}!{% enddef %}{{ greet("World") }}`
	wantOutput(t, src, nil, "Hello World!")
}

func Test_Render_Def_Captures_Scope(t *testing.T) {
	src := `{% set salutation = "Hi" %}{% def greet(who) %}{{ salutation }} {{ who }}{% enddef %}{{ greet("Bob") }}`
	wantOutput(t, src, nil, "Hi Bob")
}

func Test_Render_Def_Arity_Mismatch(t *testing.T) {
	src := `{% def f(a, b) %}{% enddef %}{{ f(1) }}`
	wantRenderKind(t, src, nil, ErrType)
}

func Test_Render_Call_Discards_Value(t *testing.T) {
	src := `{% def f(x) %}ignored{% enddef %}{% call f(1) %}done`
	wantOutput(t, src, nil, "done")
}

// --- return, app, expand ---------------------------------------------------

func Test_Render_Return_Compartment_On_Result(t *testing.T) {
	res := renderFull(t, `{% return status = "ok", count = 3 %}`, nil)
	if got := res.Return["status"]; got.Tag != VTStr || got.AsStr() != "ok" {
		t.Fatalf("want return status ok, got %#v", got)
	}
	if got := res.Return["count"]; got.Tag != VTInt || got.AsInt() != 3 {
		t.Fatalf("want return count 3, got %#v", got)
	}
}

func Test_Render_App_Compartment_On_Result(t *testing.T) {
	res := renderFull(t, `{% set a@flag = 1 == 1 %}`, nil)
	if got := res.App["flag"]; got.Tag != VTBool || !got.AsBool() {
		t.Fatalf("want app flag true, got %#v", got)
	}
}

func Test_Render_Expand(t *testing.T) {
	d := DictFrom(map[string]Value{"a": Int(1), "b": Str("x")})
	wantOutput(t, `{% expand d %}{{ a }}{{ b }}`, map[string]Value{"d": d}, "1x")
}

func Test_Render_Expand_Into_Global(t *testing.T) {
	d := DictFrom(map[string]Value{"k": Int(7)})
	wantOutput(t, `{% expand d ; into global %}{{ g@k }}`, map[string]Value{"d": d}, "7")
}

func Test_Render_Expand_Needs_Dict(t *testing.T) {
	wantRenderKind(t, `{% expand v %}`, map[string]Value{"v": Int(1)}, ErrType)
}

// --- do, error -------------------------------------------------------------

func Test_Render_Do_Discards(t *testing.T) {
	wantOutput(t, `{% import l = "list" %}{% set xs = [1] %}{% do l.append(xs, 2), l.append(xs, 3) %}{{ xs }}`,
		nil, "[1, 2, 3]")
}

func Test_Render_Error_Action(t *testing.T) {
	e := wantRenderKind(t, `{% error "boom: " + why %}`, map[string]Value{"why": Str("reason")}, ErrUser)
	if !strings.Contains(e.Msg, "boom: reason") {
		t.Fatalf("want message with payload, got %q", e.Msg)
	}
}

// --- import ----------------------------------------------------------------

func Test_Render_Import_Standard_Library(t *testing.T) {
	src := `{% import s = "string" %}{{ s.upper("abc") }}`
	wantOutput(t, src, nil, "ABC")
}

func Test_Render_Import_Unknown_Library(t *testing.T) {
	wantRenderKind(t, `{% import x = "nope" %}`, nil, ErrNotFound)
}

func Test_Render_Import_Registered_Library(t *testing.T) {
	env := NewEnvironment(WithLibrary("answers", DictFrom(map[string]Value{
		"ultimate": Int(42),
	})))
	tpl, err := env.ParseString("t", `{% import a = "answers" %}{{ a.ultimate }}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	res, err := tpl.Render(context.Background(), nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if res.Output != "42" {
		t.Fatalf("want 42, got %q", res.Output)
	}
}

// --- abort -----------------------------------------------------------------

func Test_Render_Abort_On_Cancelled_Context(t *testing.T) {
	env := NewEnvironment()
	tpl, err := env.ParseString("t", `{% for i = 0 ; i < 100000 ; i = i + 1 %}x{% endfor %}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, rerr := tpl.Render(ctx, nil)
	if !IsKind(rerr, ErrAbort) {
		t.Fatalf("want abort error, got %v", rerr)
	}
}

func Test_Render_Set_Else_Does_Not_Absorb_Abort(t *testing.T) {
	env := NewEnvironment()
	src := `{% for i = 0 ; i < 100000 ; i = i + 1 %}{% set x = i ; else x = 0 %}{% endfor %}`
	tpl, err := env.ParseString("t", src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, rerr := tpl.Render(ctx, nil)
	if !IsKind(rerr, ErrAbort) {
		t.Fatalf("want abort error, got %v", rerr)
	}
}

// --- hooks -----------------------------------------------------------------

func Test_Render_Hook_Writes_To_Output(t *testing.T) {
	env := NewEnvironment(WithHook("stamp", func(ctx context.Context, w io.Writer, args map[string]Value) error {
		_, err := io.WriteString(w, "<"+args["id"].Stringify()+">")
		return err
	}))
	tpl, err := env.ParseString("t", `a{% hook "stamp" ; with id = 7 %}b`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	res, err := tpl.Render(context.Background(), nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if res.Output != "a<7>b" {
		t.Fatalf("want %q, got %q", "a<7>b", res.Output)
	}
}

func Test_Render_Rhook_Discards_Output(t *testing.T) {
	called := false
	env := NewEnvironment(WithHook("side", func(ctx context.Context, w io.Writer, args map[string]Value) error {
		called = true
		_, err := io.WriteString(w, "invisible")
		return err
	}))
	tpl, err := env.ParseString("t", `a{% rhook "side" %}b`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	res, err := tpl.Render(context.Background(), nil)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if res.Output != "ab" {
		t.Fatalf("want %q, got %q", "ab", res.Output)
	}
	if !called {
		t.Fatal("rhook was not invoked")
	}
}

func Test_Render_Absent_Hook_Is_Skipped(t *testing.T) {
	wantOutput(t, `a{% hook "nothing" %}b`, nil, "ab")
}

func Test_Render_Hook_Error_Propagates(t *testing.T) {
	env := NewEnvironment(WithHook("bad", func(ctx context.Context, w io.Writer, args map[string]Value) error {
		return errors.New("host refused")
	}))
	tpl, err := env.ParseString("t", `{% hook "bad" %}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	_, rerr := tpl.Render(context.Background(), nil)
	if rerr == nil || !strings.Contains(rerr.Error(), "host refused") {
		t.Fatalf("want hook error to surface, got %v", rerr)
	}
}
