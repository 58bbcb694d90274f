// internal/payload/fieldpath.go
package payload

import (
	"strconv"
	"strings"
)

// ResolvePath walks a dotted path into a decoded JSON object. Numeric path
// segments index into arrays ("comment.values.0.value"). Returns nil when
// any segment is missing.
func ResolvePath(obj interface{}, path string) interface{} {
	current := obj
	for _, key := range strings.Split(path, ".") {
		switch v := current.(type) {
		case map[string]interface{}:
			current = v[key]
		case []interface{}:
			idx, err := strconv.Atoi(key)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil
			}
			current = v[idx]
		default:
			return nil
		}
		if current == nil {
			return nil
		}
	}
	return current
}

// ResolveFirst evaluates paths in priority order against obj and returns
// the first non-empty resolution. This is the single access pattern for all
// heterogeneous payload shapes: text, author, title, and profile fields all
// go through the same table-driven lookup.
func ResolveFirst(obj interface{}, paths ...string) interface{} {
	for _, path := range paths {
		val := ResolvePath(obj, path)
		if val == nil {
			continue
		}
		if s, ok := val.(string); ok && s == "" {
			continue
		}
		return val
	}
	return nil
}

// ResolveFirstString is ResolveFirst restricted to string results.
func ResolveFirstString(obj interface{}, paths ...string) string {
	val := ResolveFirst(obj, paths...)
	if s, ok := val.(string); ok {
		return s
	}
	return ""
}
