package testkit

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Vars holds the values captured by earlier steps of a scenario.
type Vars map[string]string

var placeholderRE = regexp.MustCompile(`\{\{([A-Za-z_][A-Za-z0-9_]*)\}\}`)

// Expand replaces every {{name}} with its captured value. Unknown names and
// the wildcard are left as they are.
func (v Vars) Expand(s string) string {
	return placeholderRE.ReplaceAllStringFunc(s, func(m string) string {
		if val, ok := v[m[2:len(m)-2]]; ok {
			return val
		}
		return m
	})
}

// Capture stores the value at each dotted path of the JSON body.
func (v Vars) Capture(body []byte, paths map[string]string) error {
	if len(paths) == 0 {
		return nil
	}
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("testkit: capture from non-JSON body: %w", err)
	}
	for name, path := range paths {
		val, err := lookupPath(doc, path)
		if err != nil {
			return fmt.Errorf("testkit: capture %s: %w", name, err)
		}
		v[name] = val
	}
	return nil
}

// lookupPath walks a.b.0.c through objects and arrays.
func lookupPath(doc any, path string) (string, error) {
	cur := doc
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[part]
			if !ok {
				return "", fmt.Errorf("no key %q in %q", part, path)
			}
			cur = next
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return "", fmt.Errorf("bad index %q in %q", part, path)
			}
			cur = node[i]
		default:
			return "", fmt.Errorf("cannot descend into %T at %q", cur, part)
		}
	}
	switch val := cur.(type) {
	case string:
		return val, nil
	case nil:
		return "", fmt.Errorf("null at %q", path)
	default:
		return fmt.Sprintf("%v", val), nil
	}
}
