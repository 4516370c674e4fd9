// builtin_strings_test.go
package tmpl

import "testing"

func strLib(t *testing.T) map[string]Value {
	t.Helper()
	return stringLibrary().AsDict().Entries
}

func callStr(t *testing.T, name string, args ...Value) Value {
	t.Helper()
	fn := strLib(t)[name]
	v, err := fn.AsCallable().Native(args)
	if err != nil {
		t.Fatalf("string.%s: %v", name, err)
	}
	return v
}

// --- basics ----------------------------------------------------------------

func Test_Builtin_Strings_Concat(t *testing.T) {
	if v := callStr(t, "concat", Str("a"), Str("b"), Str("c")); v.AsStr() != "abc" {
		t.Fatalf("got %q", v.AsStr())
	}
	if _, err := strConcat([]Value{Str("a"), Int(1)}); !IsKind(err, ErrType) {
		t.Fatalf("want type error, got %v", err)
	}
}

func Test_Builtin_Strings_Split_Join(t *testing.T) {
	v := callStr(t, "split", Str(","), Str("a,b,c"))
	if v.Stringify() != "[a, b, c]" {
		t.Fatalf("split: %q", v.Stringify())
	}
	j := callStr(t, "join", Str("-"), List(Str("a"), Int(1)))
	if j.AsStr() != "a-1" {
		t.Fatalf("join stringifies items: %q", j.AsStr())
	}
}

func Test_Builtin_Strings_Replace(t *testing.T) {
	if v := callStr(t, "replace", Str("o"), Str("0"), Str("foo")); v.AsStr() != "f00" {
		t.Fatalf("got %q", v.AsStr())
	}
}

func Test_Builtin_Strings_Strip_Variants(t *testing.T) {
	if v := callStr(t, "strip", Str("  x  ")); v.AsStr() != "x" {
		t.Fatalf("strip: %q", v.AsStr())
	}
	if v := callStr(t, "lstrip", Str("  x  ")); v.AsStr() != "x  " {
		t.Fatalf("lstrip: %q", v.AsStr())
	}
	if v := callStr(t, "rstrip", Str("  x  ")); v.AsStr() != "  x" {
		t.Fatalf("rstrip: %q", v.AsStr())
	}
	if v := callStr(t, "strip", Str("--x--"), Str("-")); v.AsStr() != "x" {
		t.Fatalf("custom cutset: %q", v.AsStr())
	}
}

// --- substr ----------------------------------------------------------------

func Test_Builtin_Strings_Substr_Clamp_And_Unicode(t *testing.T) {
	s := Str("héllo")
	if v := callStr(t, "substr", s, Int(1), Int(3)); v.AsStr() != "él" {
		t.Fatalf("rune slice: %q", v.AsStr())
	}
	if v := callStr(t, "substr", s, Int(2)); v.AsStr() != "llo" {
		t.Fatalf("open end: %q", v.AsStr())
	}
	if v := callStr(t, "substr", s, Int(-2)); v.AsStr() != "lo" {
		t.Fatalf("negative start: %q", v.AsStr())
	}
	if v := callStr(t, "substr", s, Int(0), Int(99)); v.AsStr() != "héllo" {
		t.Fatalf("end clamps: %q", v.AsStr())
	}
	if v := callStr(t, "substr", s, Int(4), Int(2)); v.AsStr() != "" {
		t.Fatalf("inverted bounds yield empty: %q", v.AsStr())
	}
	if _, err := strSubstr([]Value{s, Str("x")}); !IsKind(err, ErrType) {
		t.Fatalf("want type error, got %v", err)
	}
}

// --- search and case -------------------------------------------------------

func Test_Builtin_Strings_Find(t *testing.T) {
	if v := callStr(t, "find", Str("abcabc"), Str("bc")); v.AsInt() != 1 {
		t.Fatalf("find: %d", v.AsInt())
	}
	if v := callStr(t, "rfind", Str("abcabc"), Str("bc")); v.AsInt() != 4 {
		t.Fatalf("rfind: %d", v.AsInt())
	}
	if v := callStr(t, "find", Str("abc"), Str("zz")); v.AsInt() != -1 {
		t.Fatalf("missing should be -1: %d", v.AsInt())
	}
}

func Test_Builtin_Strings_Case(t *testing.T) {
	if v := callStr(t, "lower", Str("AbC")); v.AsStr() != "abc" {
		t.Fatalf("lower: %q", v.AsStr())
	}
	if v := callStr(t, "upper", Str("AbC")); v.AsStr() != "ABC" {
		t.Fatalf("upper: %q", v.AsStr())
	}
}

// --- reachable through import ----------------------------------------------

func Test_Builtin_Strings_Via_Import(t *testing.T) {
	wantOutput(t, `{% import s = "string" %}{{ s.upper("go") }}`, nil, "GO")
}
