package router

import "reflect"

// deepCopyParams copies a parameter mapping, tolerating cycles. A map or
// slice reachable from itself is copied once and the copy is reused at
// every further occurrence, so the copy preserves the cycle instead of
// recursing forever.
func deepCopyParams(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}
	visited := map[uintptr]any{}
	return copyValue(params, visited).(map[string]any)
}

func copyValue(v any, visited map[uintptr]any) any {
	switch val := v.(type) {
	case map[string]any:
		key := reflect.ValueOf(val).Pointer()
		if prior, ok := visited[key]; ok {
			return prior
		}
		out := make(map[string]any, len(val))
		visited[key] = out
		for k, item := range val {
			out[k] = copyValue(item, visited)
		}
		return out
	case []any:
		if val == nil {
			return val
		}
		key := reflect.ValueOf(val).Pointer()
		if prior, ok := visited[key]; ok {
			return prior
		}
		out := make([]any, len(val))
		visited[key] = out
		for i, item := range val {
			out[i] = copyValue(item, visited)
		}
		return out
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out
	default:
		// Scalars and unrecognized types pass through by value.
		return v
	}
}
