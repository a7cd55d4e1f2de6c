package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	decimalToken    = regexp.MustCompile(`\d+\.?\d*`)
	integerToken    = regexp.MustCompile(`\d+`)
	innerWhitespace = regexp.MustCompile(`\s+`)
)

// cleanText trims and collapses whitespace runs.
func cleanText(s string) string {
	return strings.TrimSpace(innerWhitespace.ReplaceAllString(s, " "))
}

// parseRating returns the first decimal token in s.
func parseRating(s string) (float64, bool) {
	tok := decimalToken.FindString(s)
	if tok == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(tok, "."), 64)
	if err != nil {
		return 0, false
	}
	return finite(v)
}

// parseInt returns the first integer token in s.
func parseInt(s string) (int, bool) {
	tok := integerToken.FindString(s)
	if tok == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(tok, 10, 64)
	if err != nil {
		return 0, false
	}
	return storableInt(float64(v))
}

// finite rejects NaN and infinities.
func finite(v float64) (float64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// storableInt truncates v and rejects anything outside the 32-bit INTEGER
// range of the record stores.
func storableInt(v float64) (int, bool) {
	v, ok := finite(v)
	if !ok {
		return 0, false
	}
	v = math.Trunc(v)
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, false
	}
	return int(v), true
}

func ptr[T any](v T) *T {
	return &v
}

func optional[T any](v T, ok bool) *T {
	if !ok {
		return nil
	}
	return &v
}
