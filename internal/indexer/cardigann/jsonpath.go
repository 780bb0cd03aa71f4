package cardigann

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// decodeJSON parses a response body for JSON row extraction.
func decodeJSON(body []byte) (any, error) {
	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return data, nil
}

// selectPath walks data along a dot path such as "data.torrents[0].name".
// An empty path or "." selects data itself.
func selectPath(data any, path string) (any, error) {
	current := data
	for _, seg := range splitPath(path) {
		switch v := current.(type) {
		case map[string]any:
			next, ok := v[seg]
			if !ok {
				return nil, fmt.Errorf("key not found: %s", seg)
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil {
				return nil, fmt.Errorf("cannot access field %s on array", seg)
			}
			if idx < 0 {
				idx += len(v)
			}
			if idx < 0 || idx >= len(v) {
				return nil, fmt.Errorf("array index out of bounds: %s", seg)
			}
			current = v[idx]
		default:
			return nil, fmt.Errorf("cannot access %s on %T", seg, current)
		}
	}
	return current, nil
}

func splitPath(path string) []string {
	path = strings.NewReplacer("[", ".", "]", "").Replace(path)
	var segs []string
	for _, s := range strings.Split(path, ".") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// jsonRows selects the row array of a JSON document.
func jsonRows(data any, rows Rows) ([]any, error) {
	v, err := selectPath(data, rows.Selector)
	if err != nil {
		return nil, err
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("value at %q is not an array", rows.Selector)
	}
	if rows.After > 0 {
		arr = arr[min(rows.After, len(arr)):]
	}
	if rows.Attribute == "" {
		return arr, nil
	}
	out := make([]any, 0, len(arr))
	for _, row := range arr {
		if m, ok := row.(map[string]any); ok {
			if nested, ok := m[rows.Attribute]; ok {
				out = append(out, nested)
			}
		}
	}
	return out, nil
}

// jsonString renders a scalar the way a site would print it.
func jsonString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

// extractJSONField reads one field from a JSON row. It returns false when the
// selector does not resolve and the field has no default.
func extractJSONField(row any, field Field) (string, bool) {
	v, err := selectPath(row, field.Selector)
	if err != nil {
		return field.Default, field.Default != ""
	}
	return jsonString(v), true
}
