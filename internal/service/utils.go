package service

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/anziyang2000/hq-code-sub003/internal/domain"
)

func parseTriggerTime(n json.Number) (int64, error) {
	raw := strings.TrimSpace(n.String())
	if raw == "" {
		return 0, domain.Errorf(domain.CodeNotFound, "trigger_time is required")
	}
	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, domain.Errorf(domain.CodeNumberError, "trigger_time %q is not an integer", raw)
	}
	return ts, nil
}

func sortedFieldKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// indexBy returns the index of the first object in list whose field equals
// want, or -1.
func indexBy(list []any, field, want string) int {
	for i, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if s, ok := m[field].(string); ok && s == want {
			return i
		}
	}
	return -1
}
