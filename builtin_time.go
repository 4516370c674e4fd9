// builtin_time.go — the "time" import library. Timestamps travel as
// integer milliseconds since the Unix epoch; formatting is RFC 3339 UTC.
package tmpl

import (
	"time"
)

func timeLibrary() Value {
	return DictFrom(map[string]Value{
		"now":     NewNative("time.now", timeNow),
		"date":    NewNative("time.date", timeDate),
		"rfc3339": NewNative("time.rfc3339", timeRFC3339),
		"parse":   NewNative("time.parse", timeParse),
	})
}

func timeNow(args []Value) (Value, error) {
	if len(args) != 0 {
		return None(), errArgc("time.now", "no arguments")
	}
	return Int(time.Now().UnixMilli()), nil
}

func wantMillis(name string, v Value) (time.Time, error) {
	if v.Tag != VTInt {
		return time.Time{}, errArg(name, "an int of epoch milliseconds", v.Tag)
	}
	return time.Unix(0, v.AsInt()*int64(time.Millisecond)).UTC(), nil
}

// timeDate splits a timestamp into its UTC calendar components. With no
// argument it uses the current time.
func timeDate(args []Value) (Value, error) {
	var t time.Time
	switch len(args) {
	case 0:
		t = time.Now().UTC()
	case 1:
		var err error
		t, err = wantMillis("time.date", args[0])
		if err != nil {
			return None(), err
		}
	default:
		return None(), errArgc("time.date", "at most 1 argument")
	}
	return DictFrom(map[string]Value{
		"year":        Int(int64(t.Year())),
		"month":       Int(int64(t.Month())),
		"day":         Int(int64(t.Day())),
		"hour":        Int(int64(t.Hour())),
		"minute":      Int(int64(t.Minute())),
		"second":      Int(int64(t.Second())),
		"millisecond": Int(int64(t.Nanosecond() / int(time.Millisecond))),
	}), nil
}

func timeRFC3339(args []Value) (Value, error) {
	if len(args) != 1 {
		return None(), errArgc("time.rfc3339", "1 argument")
	}
	t, err := wantMillis("time.rfc3339", args[0])
	if err != nil {
		return None(), err
	}
	// RFC3339Nano keeps whole-second stamps free of a trailing ".000".
	return Str(t.Format(time.RFC3339Nano)), nil
}

func timeParse(args []Value) (Value, error) {
	if len(args) != 1 {
		return None(), errArgc("time.parse", "1 argument")
	}
	s, err := wantStr("time.parse", args[0])
	if err != nil {
		return None(), err
	}
	t, perr := time.Parse(time.RFC3339Nano, s)
	if perr != nil {
		if t, err2 := time.Parse(time.RFC3339, s); err2 == nil {
			return Int(t.UnixMilli()), nil
		}
		return None(), &Error{Kind: ErrType, Msg: "time.parse: invalid RFC 3339 timestamp " + s}
	}
	return Int(t.UnixMilli()), nil
}
