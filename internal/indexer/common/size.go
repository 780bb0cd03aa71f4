package common

import (
	"regexp"
	"strconv"
	"strings"
)

var sizePattern = regexp.MustCompile(`^([\d.,]+)\s*([KMGTP]?)(I?B)?$`)

var sizeMultipliers = map[string]float64{
	"":  1,
	"K": 1 << 10,
	"M": 1 << 20,
	"G": 1 << 30,
	"T": 1 << 40,
	"P": 1 << 50,
}

// ParseSize converts a human-readable size such as "1.4 GiB" or "700 MB" to bytes.
// Units are binary. The boolean is false when the value cannot be parsed.
func ParseSize(raw string) (int64, bool) {
	value := strings.ToUpper(strings.TrimSpace(raw))
	value = strings.ReplaceAll(value, "\u00a0", " ")
	if value == "" {
		return 0, false
	}

	m := sizePattern.FindStringSubmatch(value)
	if m == nil {
		return 0, false
	}

	number := m[1]
	switch {
	case strings.Contains(number, ",") && strings.Contains(number, "."):
		number = strings.ReplaceAll(number, ",", "")
	case strings.Count(number, ",") == 1 && len(number)-strings.Index(number, ",") != 4:
		number = strings.ReplaceAll(number, ",", ".")
	default:
		number = strings.ReplaceAll(number, ",", "")
	}

	if m[2] == "" && m[3] == "" {
		n, err := strconv.ParseInt(number, 10, 64)
		return n, err == nil && n >= 0
	}

	f, err := strconv.ParseFloat(number, 64)
	if err != nil || f < 0 {
		return 0, false
	}
	return int64(f * sizeMultipliers[m[2]]), true
}
