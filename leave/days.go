package leave

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DAYS - Fixed-point leave quantity (half-day granularity)
// =============================================================================

// Days is a leave quantity stored as a whole number of half-days.
// Balances and deltas are always multiples of 0.5, so integer arithmetic on
// half-days never accumulates rounding error. Use Decimal or String to present.
type Days int64

const (
	HalfDay Days = 1
	FullDay Days = 2
)

var two = decimal.NewFromInt(2)

// NewDays returns n whole days.
func NewDays(n int) Days { return Days(n) * FullDay }

// HalfDays returns n half-days.
func HalfDays(n int64) Days { return Days(n) }

// ParseDays parses a decimal string such as "2", "1.5" or "-0.5".
func ParseDays(s string) (Days, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, &ValidationError{Field: "days", Message: fmt.Sprintf("invalid number %q", s)}
	}
	return DaysFromDecimal(d)
}

// DaysFromDecimal converts a decimal to Days. The value must be a multiple of 0.5.
func DaysFromDecimal(d decimal.Decimal) (Days, error) {
	halves := d.Mul(two)
	if !halves.Equal(halves.Truncate(0)) {
		return 0, &ValidationError{Field: "days", Message: fmt.Sprintf("%s is not a multiple of 0.5", d)}
	}
	return Days(halves.IntPart()), nil
}

// DaysFromFloat converts a float such as a JSON or YAML number to Days.
func DaysFromFloat(f float64) (Days, error) {
	return DaysFromDecimal(decimal.NewFromFloat(f))
}

// MustDays is DaysFromFloat for constants and tests.
func MustDays(f float64) Days {
	d, err := DaysFromFloat(f)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Days) HalfDays() int64 { return int64(d) }
func (d Days) Decimal() decimal.Decimal { return decimal.New(int64(d)*5, -1) }
func (d Days) Float64() float64 { return float64(d) / 2 }
func (d Days) String() string { return d.Decimal().String() }
func (d Days) Neg() Days { return -d }
func (d Days) IsZero() bool { return d == 0 }
func (d Days) IsNegative() bool { return d < 0 }
func (d Days) IsPositive() bool { return d > 0 }
func (d Days) Min(o Days) Days { return min(d, o) }
func (d Days) Max(o Days) Days { return max(d, o) }

// Abs returns the magnitude of d.
func (d Days) Abs() Days {
	if d < 0 {
		return -d
	}
	return d
}

// MarshalJSON renders Days as a JSON number (2, 1.5).
func (d Days) MarshalJSON() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (d *Days) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" || s == "" {
		*d = 0
		return nil
	}
	v, err := ParseDays(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}
