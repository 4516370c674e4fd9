// builtin_html.go — the "html" import library.
package tmpl

import "strings"

func htmlLibrary() Value {
	return DictFrom(map[string]Value{
		"esc": NewNative("html.esc", htmlEsc),
	})
}

var (
	htmlEscaper      = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	htmlQuoteEscaper = strings.NewReplacer(
		"&", "&amp;", "<", "&lt;", ">", "&gt;",
		`"`, "&quot;", "'", "&#39;",
	)
)

// htmlEsc escapes markup metacharacters. A truthy second argument also
// escapes both quote characters for use inside attribute values.
func htmlEsc(args []Value) (Value, error) {
	if len(args) < 1 || len(args) > 2 {
		return None(), errArgc("html.esc", "1 or 2 arguments")
	}
	s := args[0].Stringify()
	if len(args) == 2 && args[1].Truthy() {
		return Str(htmlQuoteEscaper.Replace(s)), nil
	}
	return Str(htmlEscaper.Replace(s)), nil
}
