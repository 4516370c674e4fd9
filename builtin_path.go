// builtin_path.go — the "path" import library, thin wrappers over the
// platform path rules.
package tmpl

import (
	"path/filepath"
)

func pathLibrary() Value {
	return DictFrom(map[string]Value{
		"sep":      NewNative("path.sep", pathSep),
		"join":     NewNative("path.join", pathJoin),
		"split":    NewNative("path.split", pathSplit),
		"splitext": NewNative("path.splitext", pathSplitext),
		"dirname":  NewNative("path.dirname", pathDirname),
		"basename": NewNative("path.basename", pathBasename),
		"relpath":  NewNative("path.relpath", pathRelpath),
	})
}

func pathSep(args []Value) (Value, error) {
	if len(args) != 0 {
		return None(), errArgc("path.sep", "no arguments")
	}
	return Str(string(filepath.Separator)), nil
}

func pathJoin(args []Value) (Value, error) {
	parts := make([]string, len(args))
	for i, v := range args {
		s, err := wantStr("path.join", v)
		if err != nil {
			return None(), err
		}
		parts[i] = s
	}
	return Str(filepath.Join(parts...)), nil
}

func pathSplit(args []Value) (Value, error) {
	if len(args) != 1 {
		return None(), errArgc("path.split", "1 argument")
	}
	s, err := wantStr("path.split", args[0])
	if err != nil {
		return None(), err
	}
	dir, file := filepath.Split(s)
	return List(Str(dir), Str(file)), nil
}

func pathSplitext(args []Value) (Value, error) {
	if len(args) != 1 {
		return None(), errArgc("path.splitext", "1 argument")
	}
	s, err := wantStr("path.splitext", args[0])
	if err != nil {
		return None(), err
	}
	ext := filepath.Ext(s)
	return List(Str(s[:len(s)-len(ext)]), Str(ext)), nil
}

func pathDirname(args []Value) (Value, error) {
	if len(args) != 1 {
		return None(), errArgc("path.dirname", "1 argument")
	}
	s, err := wantStr("path.dirname", args[0])
	if err != nil {
		return None(), err
	}
	return Str(filepath.Dir(s)), nil
}

func pathBasename(args []Value) (Value, error) {
	if len(args) != 1 {
		return None(), errArgc("path.basename", "1 argument")
	}
	s, err := wantStr("path.basename", args[0])
	if err != nil {
		return None(), err
	}
	return Str(filepath.Base(s)), nil
}

func pathRelpath(args []Value) (Value, error) {
	if len(args) != 2 {
		return None(), errArgc("path.relpath", "2 arguments")
	}
	target, err := wantStr("path.relpath", args[0])
	if err != nil {
		return None(), err
	}
	base, err := wantStr("path.relpath", args[1])
	if err != nil {
		return None(), err
	}
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return None(), &Error{Kind: ErrType, Msg: err.Error()}
	}
	return Str(rel), nil
}
