package domain

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Money is a fixed-point monetary amount stored as integer cents.
// All ledger arithmetic (sums, comparisons) happens on this type so binary
// floating-point rounding can never misclassify an expense as settled or
// partial at the boundary.
type Money int64

// ParseMoney converts a decimal string into Money with exact two-digit
// semantics. Both dot (12.34) and comma (12,34) separators are accepted;
// a third decimal digit is rounded half-up. Negative values and malformed
// input are rejected. Zero is a valid result — callers that require a
// positive amount must check Money.Positive themselves.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: amount is required", ErrValidation)
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("%w: amount must not be signed", ErrValidation)
	}

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, fmt.Errorf("%w: malformed amount %q", ErrValidation, s)
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return 0, fmt.Errorf("%w: malformed amount %q", ErrValidation, s)
		}
	}

	whole, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: malformed amount %q", ErrValidation, s)
	}
	// Guard the *100 below against int64 overflow.
	const maxWhole = (1<<63 - 1) / 100
	if whole > maxWhole {
		return 0, fmt.Errorf("%w: amount %q too large", ErrValidation, s)
	}

	var cents int64
	if len(fracPart) > 0 {
		cents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			cents += int64(fracPart[1] - '0')
			// Half-up rounding on the third decimal digit.
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				cents++
			}
		}
	}

	return Money(whole*100 + cents), nil
}

// Cents returns the raw integer-cents value for persistence.
func (m Money) Cents() int64 { return int64(m) }

// Positive reports whether the amount is strictly greater than zero.
func (m Money) Positive() bool { return m > 0 }

// String renders the amount as a plain decimal with two fraction digits,
// e.g. 1234 cents -> "12.34". Locale-aware currency formatting is a
// presentation concern and lives with the caller.
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON encodes Money as a two-decimal string ("12.34") so JSON
// consumers never see a binary float.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(m.String())), nil
}

// UnmarshalJSON accepts the same formats as ParseMoney, quoted.
func (m *Money) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("%w: amount must be a decimal string", ErrValidation)
	}
	parsed, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
