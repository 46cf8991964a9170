package normalize

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
)

var (
	nonNumeric     = regexp.MustCompile(`[^0-9.\-]`)
	leadingNumeric = regexp.MustCompile(`^-?(\d+\.?\d*|\.\d+)`)
)

// ExtractNumeric coerces a raw JSON value into a number rounded to one
// decimal place. Strings are stripped of everything but digits, dots and
// minus signs before parsing ("42.7%" -> 42.7). Anything that cannot be
// read as a finite number yields nil.
func ExtractNumeric(value any) *float64 {
	switch v := value.(type) {
	case nil:
		return nil
	case float64:
		return round1(v)
	case float32:
		return round1(float64(v))
	case int:
		return round1(float64(v))
	case int64:
		return round1(float64(v))
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil
		}
		return round1(f)
	case string:
		match := leadingNumeric.FindString(nonNumeric.ReplaceAllString(v, ""))
		if match == "" {
			return nil
		}
		f, err := strconv.ParseFloat(match, 64)
		if err != nil {
			return nil
		}
		return round1(f)
	default:
		return nil
	}
}

func round1(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	// Halves round toward positive infinity: -4.25 -> -4.2.
	r := math.Floor(f*10+0.5) / 10
	return &r
}
