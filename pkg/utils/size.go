package utils

import (
	"fmt"
	"strconv"
	"strings"
)

var sizeUnits = map[string]int64{
	"B":   1,
	"KB":  1024,
	"K":   1024,
	"KIB": 1024,
	"MB":  1024 * 1024,
	"M":   1024 * 1024,
	"MIB": 1024 * 1024,
	"GB":  1024 * 1024 * 1024,
	"G":   1024 * 1024 * 1024,
	"GIB": 1024 * 1024 * 1024,
	"TB":  1024 * 1024 * 1024 * 1024,
	"T":   1024 * 1024 * 1024 * 1024,
	"TIB": 1024 * 1024 * 1024 * 1024,
}

// ParseDataSize parses human-friendly sizes like "2GB", "512MB",
// "1.5GiB", or a plain byte count, into bytes. Units are 1024-based.
func ParseDataSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}

	cut := len(s)
	for cut > 0 {
		c := s[cut-1]
		if c >= '0' && c <= '9' || c == '.' {
			break
		}
		cut--
	}

	number := strings.TrimSpace(s[:cut])
	unit := strings.ToUpper(strings.TrimSpace(s[cut:]))

	multiplier, ok := sizeUnits[unit]
	if !ok {
		return 0, fmt.Errorf("unknown size unit %q in %q", unit, s)
	}

	value, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value %q: %w", s, err)
	}

	bytes := int64(value * float64(multiplier))
	if bytes < 0 {
		return 0, fmt.Errorf("negative size %q", s)
	}
	return bytes, nil
}

// FormatDataSize renders bytes as a human-readable 1024-based string.
func FormatDataSize(bytes int64) string {
	if bytes < 0 {
		return "invalid"
	}

	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	units := []string{"KB", "MB", "GB", "TB", "PB"}
	value := float64(bytes)
	idx := -1
	for value >= unit && idx < len(units)-1 {
		value /= unit
		idx++
	}

	return fmt.Sprintf("%.1f %s", value, units[idx])
}
