package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	tmpl "github.com/daios-ai/tmpl"
)

// loadVars merges YAML variable files in order, then applies name=value
// overrides on top. Later sources win.
func loadVars(files, sets []string) (map[string]tmpl.Value, error) {
	vars := make(map[string]tmpl.Value)
	for _, f := range files {
		src, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		var doc map[string]interface{}
		if err := yaml.Unmarshal(src, &doc); err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		for k, v := range doc {
			vars[k] = toValue(v)
		}
	}
	for _, s := range sets {
		name, val, ok := strings.Cut(s, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --set %q, want name=value", s)
		}
		vars[name] = tmpl.Str(val)
	}
	return vars, nil
}

func toValue(v interface{}) tmpl.Value {
	switch x := v.(type) {
	case nil:
		return tmpl.None()
	case bool:
		return tmpl.Bool(x)
	case int:
		return tmpl.Int(int64(x))
	case int64:
		return tmpl.Int(x)
	case uint64:
		return tmpl.Int(int64(x))
	case float64:
		return tmpl.Float(x)
	case string:
		return tmpl.Str(x)
	case []interface{}:
		items := make([]tmpl.Value, len(x))
		for i, it := range x {
			items[i] = toValue(it)
		}
		return tmpl.List(items...)
	case map[string]interface{}:
		entries := make(map[string]tmpl.Value, len(x))
		for k, it := range x {
			entries[k] = toValue(it)
		}
		return tmpl.DictFrom(entries)
	default:
		return tmpl.Str(fmt.Sprint(x))
	}
}
