// loader.go — template source loaders.
//
// A Loader maps a template name to its source text plus a canonical name
// the environment caches under. Include paths resolve against the including
// template's canonical name: a path starting with "/" is taken from the
// loader root, anything else is relative to the includer's directory.
package tmpl

import (
	"io/fs"
	"path"
	"strings"
)

/* ===========================
   PUBLIC API
   =========================== */

// Loader supplies template source by name.
type Loader interface {
	// Load returns the source and the canonical name for caching. A
	// missing template fails with an ErrNotFound *Error.
	Load(name string) (src string, canonical string, err error)
}

// FSLoader serves templates from a file system rooted at FS. Names are
// slash paths; lookups can never escape the root.
type FSLoader struct {
	FS fs.FS
}

func (l FSLoader) Load(name string) (string, string, error) {
	canonical := canonicalName(name)
	data, err := fs.ReadFile(l.FS, canonical)
	if err != nil {
		return "", "", &Error{Kind: ErrNotFound, Msg: "cannot load template", Template: canonical}
	}
	return string(data), canonical, nil
}

// MapLoader serves templates from an in-memory map, mainly for tests and
// embedded defaults.
type MapLoader map[string]string

func (l MapLoader) Load(name string) (string, string, error) {
	canonical := canonicalName(name)
	src, ok := l[canonical]
	if !ok {
		return "", "", &Error{Kind: ErrNotFound, Msg: "cannot load template", Template: canonical}
	}
	return src, canonical, nil
}

//// END_OF_PUBLIC

/* ===========================
   PRIVATE
   =========================== */

// canonicalName normalizes a template name to a clean, rooted slash path
// without the leading slash. Upward traversal is clipped at the root.
func canonicalName(name string) string {
	cleaned := path.Clean("/" + strings.ReplaceAll(name, "\\", "/"))
	return strings.TrimPrefix(cleaned, "/")
}

// relativeName resolves an include path against the includer's canonical
// name. Absolute paths restart from the loader root.
func relativeName(from, p string) string {
	if strings.HasPrefix(p, "/") {
		return canonicalName(p)
	}
	return canonicalName(path.Join(path.Dir(from), p))
}
