package money

import (
	"fmt"
	"strconv"
	"strings"
)

// Cents is a money amount in integer minor units. All budget arithmetic
// operates on Cents so comparisons stay exact.
type Cents int64

// Parse converts a decimal string like "12.34" into Cents.
// At most two fractional digits are accepted; negative amounts are rejected.
func Parse(s string) (Cents, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("amount is empty")
	}
	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("amount %s is negative", s)
	}
	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("amount %s has more than two decimal places", s)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %s", s)
	}
	var f int64
	if frac != "00" {
		f, err = strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid amount %s", s)
		}
	}
	return Cents(w*100 + f), nil
}

// MustParse is Parse for trusted literals; it panics on error.
func MustParse(s string) Cents {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

// String formats the amount with exactly two decimal places.
func (c Cents) String() string {
	sign := ""
	v := int64(c)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}
