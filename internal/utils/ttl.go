package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"tunnel-keeper/internal/models"
)

/**
 * Parse a tunnel TTL expression
 * @param {string} ttl - Expression matching N[h|m|s], or forever/none/0
 * @returns {(time.Duration, bool, error)} Duration, forever flag, parse error
 * @description
 * - "2h" -> 7200s, "30m" -> 1800s, "90s" -> 90s
 * - "forever", "none" and "0" all mean no expiry
 * - Anything else fails with models.ErrInvalidTTL
 */
func ParseTTL(ttl string) (time.Duration, bool, error) {
	switch strings.ToLower(strings.TrimSpace(ttl)) {
	case "forever", "none", "0":
		return 0, true, nil
	}
	s := strings.TrimSpace(ttl)
	if len(s) < 2 {
		return 0, false, fmt.Errorf("%w: %q", models.ErrInvalidTTL, ttl)
	}
	value, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || value <= 0 {
		return 0, false, fmt.Errorf("%w: %q", models.ErrInvalidTTL, ttl)
	}
	var unit time.Duration
	switch s[len(s)-1] {
	case 'h':
		unit = time.Hour
	case 'm':
		unit = time.Minute
	case 's':
		unit = time.Second
	default:
		return 0, false, fmt.Errorf("%w: %q", models.ErrInvalidTTL, ttl)
	}
	return time.Duration(value) * unit, false, nil
}
