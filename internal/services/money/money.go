// Package money converts between the wire/display representation of an
// amount (decimal currency units) and the integer minor-unit form used by
// the ledger. No money arithmetic ever touches floating point.
package money

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidAmount is returned for negative, malformed or non-finite input.
var ErrInvalidAmount = errors.New("invalid amount")

const minorUnitsPerMajor = 100

// ToMinorUnits parses a decimal string like "125.50" into minor units
// (12550). At most two fractional digits are accepted.
func ToMinorUnits(decimal string) (int64, error) {
	s := strings.TrimSpace(decimal)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, decimal)
	}

	whole := s
	frac := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("%w: more than two fractional digits in %q", ErrInvalidAmount, decimal)
	}
	// Right-pad the fraction so "5.5" means 550 minor units.
	for len(frac) < 2 {
		frac += "0"
	}

	major, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, decimal)
	}
	minor, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, decimal)
	}

	if major > (1<<62)/minorUnitsPerMajor {
		return 0, fmt.Errorf("%w: %q overflows", ErrInvalidAmount, decimal)
	}
	return major*minorUnitsPerMajor + minor, nil
}

// ToDisplay formats minor units as a decimal string with two fractional
// digits: 12550 -> "125.50".
func ToDisplay(minorUnits int64) string {
	sign := ""
	if minorUnits < 0 {
		sign = "-"
		minorUnits = -minorUnits
	}
	return fmt.Sprintf("%s%d.%02d", sign, minorUnits/minorUnitsPerMajor, minorUnits%minorUnitsPerMajor)
}
