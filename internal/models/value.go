package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Str normalizes any JSON value to its string form so that numeric and
// string payloads compare equal (clients send both for the same field).
func Str(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

// Num parses a JSON value as a number, returning 0 when it is not one.
func Num(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// IntOr parses a JSON value as an integer with a fallback.
func IntOr(v any, def int) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case int:
		return t
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return def
		}
		return n
	default:
		return def
	}
}

// DottedDateKey converts a "Y.M.D" date into a sortable integer
// (year*10000 + month*100 + day). Malformed input yields 0.
func DottedDateKey(s string) int {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return 0
	}
	year, _ := strconv.Atoi(strings.TrimSpace(parts[0]))
	month, _ := strconv.Atoi(strings.TrimSpace(parts[1]))
	day, _ := strconv.Atoi(strings.TrimSpace(parts[2]))
	return year*10000 + month*100 + day
}

// FlexibleDateKey accepts dotted dates written either year-first
// ("2024.3.15") or day-first ("15.3.2024") and returns a sortable key.
// yearFirst forces year-first parsing regardless of digit count.
func FlexibleDateKey(s string, yearFirst bool) int {
	parts := strings.Split(s, ".")
	if len(parts) < 3 {
		return 0
	}
	a, _ := strconv.Atoi(strings.TrimSpace(parts[0]))
	b, _ := strconv.Atoi(strings.TrimSpace(parts[1]))
	c, _ := strconv.Atoi(strings.TrimSpace(parts[2]))
	if yearFirst || len(strings.TrimSpace(parts[0])) == 4 {
		return a*10000 + b*100 + c
	}
	return c*10000 + b*100 + a
}

// DateLess orders date-map keys ascending. Dotted and dashed calendar
// dates compare numerically, anything unparseable falls back to a plain
// string compare so company-name keys keep a stable order.
func DateLess(a, b string) bool {
	ka := looseDateKey(a)
	kb := looseDateKey(b)
	if ka != 0 && kb != 0 && ka != kb {
		return ka < kb
	}
	if ka != 0 && kb == 0 {
		return true
	}
	if ka == 0 && kb != 0 {
		return false
	}
	return a < b
}

func looseDateKey(s string) int {
	normalized := strings.NewReplacer("-", ".", "/", ".").Replace(s)
	return DottedDateKey(normalized)
}
