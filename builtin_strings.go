// builtin_strings.go — the "string" import library.
package tmpl

import "strings"

func stringLibrary() Value {
	return DictFrom(map[string]Value{
		"concat":  NewNative("string.concat", strConcat),
		"split":   NewNative("string.split", strSplit),
		"join":    NewNative("string.join", strJoin),
		"replace": NewNative("string.replace", strReplace),
		"strip":   NewNative("string.strip", strStrip),
		"lstrip":  NewNative("string.lstrip", strLstrip),
		"rstrip":  NewNative("string.rstrip", strRstrip),
		"substr":  NewNative("string.substr", strSubstr),
		"find":    NewNative("string.find", strFind),
		"rfind":   NewNative("string.rfind", strRfind),
		"lower":   NewNative("string.lower", strLower),
		"upper":   NewNative("string.upper", strUpper),
	})
}

func wantStr(name string, v Value) (string, error) {
	if v.Tag != VTStr {
		return "", errArg(name, "a string", v.Tag)
	}
	return v.AsStr(), nil
}

func strConcat(args []Value) (Value, error) {
	var b strings.Builder
	for _, v := range args {
		s, err := wantStr("string.concat", v)
		if err != nil {
			return None(), err
		}
		b.WriteString(s)
	}
	return Str(b.String()), nil
}

func strSplit(args []Value) (Value, error) {
	if len(args) != 2 {
		return None(), errArgc("string.split", "2 arguments")
	}
	delim, err := wantStr("string.split", args[0])
	if err != nil {
		return None(), err
	}
	s, err := wantStr("string.split", args[1])
	if err != nil {
		return None(), err
	}
	parts := strings.Split(s, delim)
	items := make([]Value, len(parts))
	for i, p := range parts {
		items[i] = Str(p)
	}
	return Value{Tag: VTList, Data: &ListObject{Items: items}}, nil
}

func strJoin(args []Value) (Value, error) {
	if len(args) != 2 {
		return None(), errArgc("string.join", "2 arguments")
	}
	delim, err := wantStr("string.join", args[0])
	if err != nil {
		return None(), err
	}
	if args[1].Tag != VTList {
		return None(), errArg("string.join", "a list", args[1].Tag)
	}
	items := args[1].AsList().Items
	parts := make([]string, len(items))
	for i, v := range items {
		parts[i] = v.Stringify()
	}
	return Str(strings.Join(parts, delim)), nil
}

func strReplace(args []Value) (Value, error) {
	if len(args) != 3 {
		return None(), errArgc("string.replace", "3 arguments")
	}
	from, err := wantStr("string.replace", args[0])
	if err != nil {
		return None(), err
	}
	to, err := wantStr("string.replace", args[1])
	if err != nil {
		return None(), err
	}
	s, err := wantStr("string.replace", args[2])
	if err != nil {
		return None(), err
	}
	return Str(strings.ReplaceAll(s, from, to)), nil
}

func trimWith(name string, args []Value, trim func(s, cutset string) string) (Value, error) {
	if len(args) < 1 || len(args) > 2 {
		return None(), errArgc(name, "1 or 2 arguments")
	}
	s, err := wantStr(name, args[0])
	if err != nil {
		return None(), err
	}
	cutset := wsCutset
	if len(args) == 2 {
		cutset, err = wantStr(name, args[1])
		if err != nil {
			return None(), err
		}
	}
	return Str(trim(s, cutset)), nil
}

func strStrip(args []Value) (Value, error) {
	return trimWith("string.strip", args, strings.Trim)
}

func strLstrip(args []Value) (Value, error) {
	return trimWith("string.lstrip", args, strings.TrimLeft)
}

func strRstrip(args []Value) (Value, error) {
	return trimWith("string.rstrip", args, strings.TrimRight)
}

// strSubstr slices by rune position, end exclusive. Negative positions
// count from the end; out-of-range positions clamp.
func strSubstr(args []Value) (Value, error) {
	if len(args) < 2 || len(args) > 3 {
		return None(), errArgc("string.substr", "2 or 3 arguments")
	}
	s, err := wantStr("string.substr", args[0])
	if err != nil {
		return None(), err
	}
	runes := []rune(s)
	start, err := sliceBound("string.substr", args[1], len(runes))
	if err != nil {
		return None(), err
	}
	end := len(runes)
	if len(args) == 3 {
		end, err = sliceBound("string.substr", args[2], len(runes))
		if err != nil {
			return None(), err
		}
	}
	if start > end {
		return Str(""), nil
	}
	return Str(string(runes[start:end])), nil
}

func sliceBound(name string, v Value, n int) (int, error) {
	if v.Tag != VTInt {
		return 0, errArg(name, "int positions", v.Tag)
	}
	i := int(v.AsInt())
	if i < 0 {
		i += n
	}
	if i < 0 {
		i = 0
	}
	if i > n {
		i = n
	}
	return i, nil
}

func findWith(name string, args []Value, find func(s, what string) int) (Value, error) {
	if len(args) != 2 {
		return None(), errArgc(name, "2 arguments")
	}
	s, err := wantStr(name, args[0])
	if err != nil {
		return None(), err
	}
	what, err := wantStr(name, args[1])
	if err != nil {
		return None(), err
	}
	return Int(int64(find(s, what))), nil
}

func strFind(args []Value) (Value, error) {
	return findWith("string.find", args, strings.Index)
}

func strRfind(args []Value) (Value, error) {
	return findWith("string.rfind", args, strings.LastIndex)
}

func strLower(args []Value) (Value, error) {
	if len(args) != 1 {
		return None(), errArgc("string.lower", "1 argument")
	}
	s, err := wantStr("string.lower", args[0])
	if err != nil {
		return None(), err
	}
	return Str(strings.ToLower(s)), nil
}

func strUpper(args []Value) (Value, error) {
	if len(args) != 1 {
		return None(), errArgc("string.upper", "1 argument")
	}
	s, err := wantStr("string.upper", args[0])
	if err != nil {
		return None(), err
	}
	return Str(strings.ToUpper(s)), nil
}
