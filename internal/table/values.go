package table

import (
	"math"
	"strconv"
	"strings"
)

// Float reports v as a float64 when it holds a non-missing number.
func Float(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) {
			return 0, false
		}
		return t, true
	case float32:
		if math.IsNaN(float64(t)) {
			return 0, false
		}
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// String reports v as a trimmed string when it holds non-empty text.
func String(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// ParseFloat is strconv.ParseFloat that maps failures to ok=false.
func ParseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
