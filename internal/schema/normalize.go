package schema

import (
	"github.com/anziyang2000/hq-code-sub003/internal/domain"
)

// Clone deep-copies a generic JSON value.
func Clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = Clone(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = Clone(item)
		}
		return out
	default:
		return v
	}
}

// Normalize deep-copies template and writes every key of patch into it.
// Each key replaces the first same-named key found anywhere in the copy,
// searching depth first with object keys in byte order. Keys found nowhere
// are added at the top level.
func Normalize(template, patch map[string]any) map[string]any {
	result, _ := Clone(template).(map[string]any)
	if result == nil {
		result = map[string]any{}
	}
	for _, key := range sortedKeys(patch) {
		if replaceFirst(result, key, patch[key]) {
			continue
		}
		result[key] = Clone(patch[key])
	}
	return result
}

func replaceFirst(node any, key string, value any) bool {
	switch n := node.(type) {
	case map[string]any:
		for _, k := range sortedKeys(n) {
			if k == key {
				n[k] = Clone(value)
				return true
			}
			if replaceFirst(n[k], key, value) {
				return true
			}
		}
	case []any:
		for _, item := range n {
			if replaceFirst(item, key, value) {
				return true
			}
		}
	}
	return false
}

// StrictNormalize deep-copies target and applies patch path by path. Every
// patched key or array index must already exist in target (NotFound
// otherwise) and carry a compatible type (TypeMismatch otherwise).
func StrictNormalize(target, patch map[string]any) (map[string]any, error) {
	result, _ := Clone(target).(map[string]any)
	if result == nil {
		result = map[string]any{}
	}
	if err := mergeStrict(result, patch, ""); err != nil {
		return nil, err
	}
	return result, nil
}

func mergeStrict(dst, patch map[string]any, path string) error {
	for _, key := range sortedKeys(patch) {
		p := join(path, key)
		cur, ok := dst[key]
		if !ok {
			return domain.Errorf(domain.CodeNotFound, "key %q not found at %s", key, p)
		}
		next, err := strictValue(cur, patch[key], p)
		if err != nil {
			return err
		}
		dst[key] = next
	}
	return nil
}

func strictValue(cur, val any, path string) (any, error) {
	if typeClass(cur) != typeClass(val) {
		return nil, mismatch(path, kindOf(cur), kindOf(val))
	}
	switch c := cur.(type) {
	case map[string]any:
		switch v := val.(type) {
		case nil:
			return nil, nil
		case map[string]any:
			return c, mergeStrict(c, v, path)
		default:
			return nil, mismatch(path, "object", kindOf(val))
		}
	case []any:
		switch v := val.(type) {
		case nil:
			return nil, nil
		case []any:
			for i, item := range v {
				p := index(path, i)
				if i >= len(c) {
					return nil, domain.Errorf(domain.CodeNotFound, "index %d not found at %s", i, p)
				}
				next, err := strictValue(c[i], item, p)
				if err != nil {
					return nil, err
				}
				c[i] = next
			}
			return c, nil
		default:
			return nil, mismatch(path, "array", kindOf(val))
		}
	}
	return Clone(val), nil
}
