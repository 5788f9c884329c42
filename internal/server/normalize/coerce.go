package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// placeholders the site uses for "no value"
var placeholders = map[string]bool{"": true, "-": true, "--": true, "&nbsp;": true}

var unicodeFractions = map[rune]float64{'⅓': 1.0 / 3, '⅔': 2.0 / 3, '¼': 0.25, '½': 0.5, '¾': 0.75}

// Int coerces v to an integer, returning nil for anything that is not a whole number
func Int(v any) *int64 {
	switch n := v.(type) {
	case nil:
		return nil
	case int:
		i := int64(n)
		return &i
	case int32:
		i := int64(n)
		return &i
	case int64:
		return &n
	case float64:
		return wholeFloat(n)
	case float32:
		return wholeFloat(float64(n))
	case json.Number:
		return Int(string(n))
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(n), ",", "")
		if placeholders[s] {
			return nil
		}
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return &i
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return wholeFloat(f)
		}
		return nil
	default:
		return nil
	}
}

func wholeFloat(f float64) *int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil
	}
	i := int64(f)
	return &i
}

// Float coerces v to a float, understanding innings notation such as "5 2/3" and "5⅔"
func Float(v any) *float64 {
	switch n := v.(type) {
	case nil:
		return nil
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return nil
		}
		return &n
	case float32:
		return Float(float64(n))
	case int:
		f := float64(n)
		return &f
	case int64:
		f := float64(n)
		return &f
	case json.Number:
		return Float(string(n))
	case string:
		return parseInnings(n)
	default:
		return nil
	}
}

func parseInnings(s string) *float64 {
	s = strings.TrimSpace(s)
	if placeholders[s] {
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return &f
	}

	var total float64
	var parsed bool
	for _, part := range strings.Fields(s) {
		// trailing unicode fraction: "5⅔"
		if r := []rune(part); len(r) > 0 {
			if frac, ok := unicodeFractions[r[len(r)-1]]; ok {
				total += frac
				part = string(r[:len(r)-1])
				parsed = true
				if part == "" {
					continue
				}
			}
		}
		if num, den, ok := strings.Cut(part, "/"); ok {
			a, errA := strconv.ParseFloat(num, 64)
			b, errB := strconv.ParseFloat(den, 64)
			if errA != nil || errB != nil || b == 0 {
				return nil
			}
			total += a / b
			parsed = true
			continue
		}
		f, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil
		}
		total += f
		parsed = true
	}
	if !parsed {
		return nil
	}
	return &total
}

// Text stringifies v; lists are joined with ", " and empty values become nil
func Text(v any) *string {
	var s string
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		s = strings.TrimSpace(t)
	case []string:
		s = joinNonEmpty(t)
	case []any:
		items := make([]string, 0, len(t))
		for _, item := range t {
			if p := Text(item); p != nil {
				items = append(items, *p)
			}
		}
		s = joinNonEmpty(items)
	case int:
		s = strconv.Itoa(t)
	case int64:
		s = strconv.FormatInt(t, 10)
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		s = t.String()
	default:
		s = strings.TrimSpace(fmt.Sprint(t))
	}
	if s == "" {
		return nil
	}
	return &s
}

func joinNonEmpty(items []string) string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return strings.Join(out, ", ")
}
