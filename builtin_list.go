// builtin_list.go — the "list" import library.
//
// The mutating helpers (append, extend, insert, remove, pop, reverse) work
// in place on the shared ListObject, which is how templates build lists
// across loop iterations.
package tmpl

func listLibrary() Value {
	return DictFrom(map[string]Value{
		"append":   NewNative("list.append", listAppend),
		"extend":   NewNative("list.extend", listExtend),
		"insert":   NewNative("list.insert", listInsert),
		"remove":   NewNative("list.remove", listRemove),
		"pop":      NewNative("list.pop", listPop),
		"reverse":  NewNative("list.reverse", listReverse),
		"count":    NewNative("list.count", listCount),
		"contains": NewNative("list.contains", listContains),
		"splice":   NewNative("list.splice", listSplice),
	})
}

func wantList(name string, v Value) (*ListObject, error) {
	if v.Tag != VTList {
		return nil, errArg(name, "a list", v.Tag)
	}
	return v.AsList(), nil
}

func listAppend(args []Value) (Value, error) {
	if len(args) != 2 {
		return None(), errArgc("list.append", "2 arguments")
	}
	l, err := wantList("list.append", args[0])
	if err != nil {
		return None(), err
	}
	l.Items = append(l.Items, args[1])
	return None(), nil
}

func listExtend(args []Value) (Value, error) {
	if len(args) != 2 {
		return None(), errArgc("list.extend", "2 arguments")
	}
	l, err := wantList("list.extend", args[0])
	if err != nil {
		return None(), err
	}
	more, err := wantList("list.extend", args[1])
	if err != nil {
		return None(), err
	}
	l.Items = append(l.Items, more.Items...)
	return None(), nil
}

func listInsert(args []Value) (Value, error) {
	if len(args) != 3 {
		return None(), errArgc("list.insert", "3 arguments")
	}
	l, err := wantList("list.insert", args[0])
	if err != nil {
		return None(), err
	}
	i, err := sliceBound("list.insert", args[1], len(l.Items))
	if err != nil {
		return None(), err
	}
	l.Items = append(l.Items, None())
	copy(l.Items[i+1:], l.Items[i:])
	l.Items[i] = args[2]
	return None(), nil
}

func listRemove(args []Value) (Value, error) {
	if len(args) != 2 {
		return None(), errArgc("list.remove", "2 arguments")
	}
	l, err := wantList("list.remove", args[0])
	if err != nil {
		return None(), err
	}
	for i, it := range l.Items {
		eq, ok := valueEqual(it, args[1])
		if ok && eq {
			l.Items = append(l.Items[:i], l.Items[i+1:]...)
			return None(), nil
		}
	}
	return None(), &Error{Kind: ErrIndex, Msg: "value not in list"}
}

func listPop(args []Value) (Value, error) {
	if len(args) < 1 || len(args) > 2 {
		return None(), errArgc("list.pop", "1 or 2 arguments")
	}
	l, err := wantList("list.pop", args[0])
	if err != nil {
		return None(), err
	}
	if len(l.Items) == 0 {
		return None(), &Error{Kind: ErrIndex, Msg: "pop from empty list"}
	}
	i := len(l.Items) - 1
	if len(args) == 2 {
		if args[1].Tag != VTInt {
			return None(), errArg("list.pop", "an int index", args[1].Tag)
		}
		i = int(args[1].AsInt())
		if i < 0 {
			i += len(l.Items)
		}
		if i < 0 || i >= len(l.Items) {
			return None(), &Error{Kind: ErrIndex, Msg: "pop index out of range"}
		}
	}
	v := l.Items[i]
	l.Items = append(l.Items[:i], l.Items[i+1:]...)
	return v, nil
}

func listReverse(args []Value) (Value, error) {
	if len(args) != 1 {
		return None(), errArgc("list.reverse", "1 argument")
	}
	l, err := wantList("list.reverse", args[0])
	if err != nil {
		return None(), err
	}
	for i, j := 0, len(l.Items)-1; i < j; i, j = i+1, j-1 {
		l.Items[i], l.Items[j] = l.Items[j], l.Items[i]
	}
	return None(), nil
}

func listCount(args []Value) (Value, error) {
	if len(args) != 2 {
		return None(), errArgc("list.count", "2 arguments")
	}
	l, err := wantList("list.count", args[0])
	if err != nil {
		return None(), err
	}
	var n int64
	for _, it := range l.Items {
		eq, ok := valueEqual(it, args[1])
		if ok && eq {
			n++
		}
	}
	return Int(n), nil
}

func listContains(args []Value) (Value, error) {
	if len(args) != 2 {
		return None(), errArgc("list.contains", "2 arguments")
	}
	l, err := wantList("list.contains", args[0])
	if err != nil {
		return None(), err
	}
	for _, it := range l.Items {
		eq, ok := valueEqual(it, args[1])
		if ok && eq {
			return Bool(true), nil
		}
	}
	return Bool(false), nil
}

func listSplice(args []Value) (Value, error) {
	if len(args) != 3 {
		return None(), errArgc("list.splice", "3 arguments")
	}
	l, err := wantList("list.splice", args[0])
	if err != nil {
		return None(), err
	}
	start, err := sliceBound("list.splice", args[1], len(l.Items))
	if err != nil {
		return None(), err
	}
	end, err := sliceBound("list.splice", args[2], len(l.Items))
	if err != nil {
		return None(), err
	}
	if start > end {
		return List(), nil
	}
	return List(l.Items[start:end]...), nil
}
