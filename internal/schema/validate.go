// Package schema checks and canonicalizes caller-submitted nested records.
//
// Values handled here are generic JSON values as produced by Decode:
// map[string]any, []any, string, json.Number, bool and nil.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/anziyang2000/hq-code-sub003/internal/domain"
)

// Decode parses raw JSON into a generic value, keeping numbers as json.Number.
func Decode(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, domain.Errorf(domain.CodeParseError, "invalid JSON: %v", err)
	}
	if dec.More() {
		return nil, domain.Errorf(domain.CodeParseError, "invalid JSON: trailing data")
	}
	return v, nil
}

// DecodeObject parses raw JSON that must be a non-empty object.
func DecodeObject(raw []byte, name string) (map[string]any, error) {
	v, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		if v == nil {
			return nil, domain.Errorf(domain.CodeNotFound, "%s should not be empty", name)
		}
		return nil, domain.Errorf(domain.CodeTypeMismatch, "%s must be an object, got %s", name, kindOf(v))
	}
	if len(obj) == 0 {
		return nil, domain.Errorf(domain.CodeNotFound, "%s should not be empty", name)
	}
	return obj, nil
}

// DecodeArray parses raw JSON that must be a non-empty array.
func DecodeArray(raw []byte, name string) ([]any, error) {
	v, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	list, ok := v.([]any)
	if !ok {
		if v == nil {
			return nil, domain.Errorf(domain.CodeNotFound, "%s must be a non-empty array", name)
		}
		return nil, domain.Errorf(domain.CodeTypeMismatch, "%s must be an array", name)
	}
	if len(list) == 0 {
		return nil, domain.Errorf(domain.CodeNotFound, "%s must be a non-empty array", name)
	}
	return list, nil
}

// ToValue converts a typed value into its generic JSON form.
func ToValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, domain.Errorf(domain.CodeParseError, "encode: %v", err)
	}
	return Decode(b)
}

// Into decodes a generic value into a typed destination.
func Into(v any, dst any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return domain.Errorf(domain.CodeParseError, "encode: %v", err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		var ce *domain.ContractError
		if errors.As(err, &ce) {
			return ce
		}
		return domain.Errorf(domain.CodeParseError, "decode: %v", err)
	}
	return nil
}

// ValidateStructure requires value to have exactly the keys of template at
// every nesting level and the same leaf kinds. Arrays are checked element by
// element against the first element of the template array.
func ValidateStructure(value, template any) error {
	return validate(value, template, "")
}

func validate(value, tmpl any, path string) error {
	switch t := tmpl.(type) {
	case map[string]any:
		v, ok := value.(map[string]any)
		if !ok {
			return mismatch(path, "object", kindOf(value))
		}
		for _, k := range sortedKeys(v) {
			if _, ok := t[k]; !ok {
				return domain.Errorf(domain.CodeTypeMismatch, "unexpected property %s at %s", k, display(path))
			}
		}
		for _, k := range sortedKeys(t) {
			child, ok := v[k]
			if !ok {
				return domain.Errorf(domain.CodeTypeMismatch, "missing property %s at %s", k, display(path))
			}
			if err := validate(child, t[k], join(path, k)); err != nil {
				return err
			}
		}
	case []any:
		v, ok := value.([]any)
		if !ok {
			return mismatch(path, "array", kindOf(value))
		}
		for i, item := range v {
			p := index(path, i)
			if len(t) == 0 {
				return domain.Errorf(domain.CodeTypeMismatch, "unexpected element at %s", p)
			}
			if err := validate(item, t[0], p); err != nil {
				return err
			}
		}
	default:
		if kindOf(value) != kindOf(tmpl) {
			return mismatch(path, kindOf(tmpl), kindOf(value))
		}
	}
	return nil
}

func mismatch(path, want, got string) error {
	return domain.Errorf(domain.CodeTypeMismatch, "type mismatch at %s: expected %s, got %s", display(path), want, got)
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, float64, float32, int, int64, int32, uint, uint64:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// typeClass collapses null, objects and arrays into one class, the way a
// loosely typed caller sees them.
func typeClass(v any) string {
	switch k := kindOf(v); k {
	case "null", "object", "array":
		return "object"
	default:
		return k
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func index(path string, i int) string {
	return fmt.Sprintf("%s[%d]", path, i)
}

func display(path string) string {
	if path == "" {
		return "root"
	}
	return path
}
