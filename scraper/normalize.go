package scraper

import (
	"math"
	"strconv"
	"strings"
)

var currencyReplacer = strings.NewReplacer("€", "", "£", "", "$", "", " ", "", " ", "")

// CleanPrice parses heterogeneous scraped text into a decimal price.
// Convention: commas are decimal separators; after cleaning, when several
// periods remain, all but the last are thousands separators ("1.234,56"
// becomes 1234.56) and a single period is always the decimal point. Input
// that cannot be parsed yields 0, the intentional "no price" sentinel that
// triggers the AI fallback and the zero-price warning, never an error.
func CleanPrice(raw string) float64 {
	s := currencyReplacer.Replace(strings.TrimSpace(raw))
	s = strings.ReplaceAll(s, ",", ".")

	var b strings.Builder
	for _, r := range s {
		if r == '.' || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	s = b.String()

	if strings.Count(s, ".") > 1 {
		last := strings.LastIndex(s, ".")
		s = strings.ReplaceAll(s[:last], ".", "") + s[last:]
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return value
}
