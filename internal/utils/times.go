package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseOffset parses a transit time-of-day string in HH:MM:SS form into
// seconds. Hours may exceed 24 for services running past midnight.
func ParseOffset(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid time offset %q: expected HH:MM:SS", s)
	}

	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hours in time offset %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minutes in time offset %q", s)
	}
	sec, err := strconv.Atoi(parts[2])
	if err != nil {
		return 0, fmt.Errorf("invalid seconds in time offset %q", s)
	}

	if h < 0 || m < 0 || m > 59 || sec < 0 || sec > 59 {
		return 0, fmt.Errorf("time offset %q out of range", s)
	}

	return h*3600 + m*60 + sec, nil
}

// FormatOffset renders seconds since midnight as a zero-padded HH:MM:SS
// string. Hours are not wrapped at 24.
func FormatOffset(seconds int) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
