package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// viewCountPattern matches a numeric prefix with an optional magnitude
// suffix, after thousands separators have been stripped.
var viewCountPattern = regexp.MustCompile(`([\d]+(?:\.\d+)?)\s*([KMB])?`)

var suffixMultipliers = map[string]float64{
	"K": 1_000,
	"M": 1_000_000,
	"B": 1_000_000_000,
}

// ParseViewCount turns a human-readable view count ("1,234 views",
// "2.5K views", "10M views") into an absolute number. The second return is
// false when no numeric token could be parsed, in which case the selector
// chain continues.
func ParseViewCount(text string) (int64, bool) {
	cleaned := strings.ToUpper(strings.ReplaceAll(text, ",", ""))
	m := viewCountPattern.FindStringSubmatch(cleaned)
	if m == nil {
		return 0, false
	}
	number, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	multiplier := 1.0
	if m[2] != "" {
		multiplier = suffixMultipliers[m[2]]
	}
	return int64(math.Round(number * multiplier)), true
}
