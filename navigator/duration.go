package navigator

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var errInvalidDuration = errors.New("invalid duration")

const (
	day  = 24 * time.Hour
	week = 7 * day
)

var durationUnits = map[byte]time.Duration{
	'w': week,
	'd': day,
	'h': time.Hour,
	'm': time.Minute,
}

// ParseDuration parses a relative period such as "-3d" or "-4w 2d 3h 15m".
// A leading minus negates the whole period. A bare number is minutes and
// magnitudes may be fractional.
func ParseDuration(raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	negative := strings.HasPrefix(s, "-")
	if negative {
		s = strings.TrimSpace(s[1:])
	}
	if s == "" {
		return 0, fmt.Errorf("%w: %q", errInvalidDuration, raw)
	}

	var total float64
	if minutes, err := strconv.ParseFloat(s, 64); err == nil && isPlainNumber(s) {
		total = minutes * float64(time.Minute)
	} else {
		for _, token := range strings.Fields(s) {
			unit, ok := durationUnits[lower(token[len(token)-1])]
			if !ok {
				return 0, fmt.Errorf("%w: %q", errInvalidDuration, raw)
			}
			magnitude := token[:len(token)-1]
			if !isPlainNumber(magnitude) {
				return 0, fmt.Errorf("%w: %q", errInvalidDuration, raw)
			}
			n, err := strconv.ParseFloat(magnitude, 64)
			if err != nil {
				return 0, fmt.Errorf("%w: %q", errInvalidDuration, raw)
			}
			total += n * float64(unit)
		}
	}

	d := time.Duration(total)
	if negative {
		d = -d
	}
	return d, nil
}

// IsDuration reports whether raw parses as a relative period.
func IsDuration(raw string) bool {
	_, err := ParseDuration(raw)
	return err == nil
}

// isPlainNumber accepts digits with at most one decimal point, rejecting
// the exponent and sign forms strconv would otherwise allow.
func isPlainNumber(s string) bool {
	if s == "" || s == "." {
		return false
	}
	dot := false
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= '0' && c <= '9':
		case c == '.' && !dot:
			dot = true
		default:
			return false
		}
	}
	return true
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
