package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a non-negative integer quantity. It decodes from a JSON number
// or a decimal string and always encodes as a JSON number.
type Amount int64

func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = 0
		return nil
	}
	raw := string(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return Errorf(CodeParseError, "amount: %v", err)
		}
		raw = s
	}
	n, err := ParseAmount(raw)
	if err != nil {
		return err
	}
	*a = Amount(n)
	return nil
}

func (a Amount) Int64() int64 { return int64(a) }

var maxQuantity = decimal.NewFromInt(math.MaxInt64)

// ParseAmount parses an integer quantity. Empty, fractional, negative and
// out-of-range values are rejected with a NumberError.
func ParseAmount(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, Errorf(CodeNumberError, "amount is empty")
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, Errorf(CodeNumberError, "amount %q is not a number", raw)
	}
	if !d.IsInteger() {
		return 0, Errorf(CodeNumberError, "amount %q must be an integer", raw)
	}
	if d.IsNegative() {
		return 0, Errorf(CodeNumberError, "amount %q must not be negative", raw)
	}
	if d.GreaterThan(maxQuantity) {
		return 0, Errorf(CodeNumberError, "amount %q exceeds the largest quantity %d", raw, int64(math.MaxInt64))
	}
	return d.IntPart(), nil
}

// ParsePositiveDecimal parses a monetary amount that must be a number
// greater than zero. Fractions are allowed.
func ParsePositiveDecimal(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, Errorf(CodeNumberError, "amount is empty")
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, Errorf(CodeNumberError, "amount %q is not a number", raw)
	}
	if !d.IsPositive() {
		return decimal.Zero, Errorf(CodeNumberError, "amount %q must be greater than 0", raw)
	}
	return d, nil
}

// AddQuantity returns a+b, or a NumberError when the sum leaves the int64
// range.
func AddQuantity(a, b int64) (int64, error) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, Errorf(CodeNumberError, "quantity %d + %d overflows", a, b)
	}
	return a + b, nil
}

// ParsePositive parses a quantity that must be strictly greater than zero.
func ParsePositive(raw string) (int64, error) {
	n, err := ParseAmount(raw)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, Errorf(CodeNumberError, "amount %q must be greater than 0", raw)
	}
	return n, nil
}

// HasEscrow reports whether ratio asks for part of a transfer to be withheld.
func HasEscrow(ratio string) bool {
	ratio = strings.TrimSpace(ratio)
	return ratio != "" && ratio != NoEscrowRatio
}

// EffectiveBalance returns the immediately spendable part of amount:
// ceil(amount * ratio) when escrow applies, amount otherwise.
func EffectiveBalance(amount int64, ratio string) (int64, error) {
	if !HasEscrow(ratio) {
		return amount, nil
	}
	r, err := decimal.NewFromString(strings.TrimSpace(ratio))
	if err != nil {
		return 0, Errorf(CodeNumberError, "available_ratio %q is not a number", ratio)
	}
	if !r.IsPositive() || r.GreaterThan(decimal.NewFromInt(1)) {
		return 0, Errorf(CodeNumberError, "available_ratio %q must be in (0, 1]", ratio)
	}
	return decimal.NewFromInt(amount).Mul(r).Ceil().IntPart(), nil
}

// ParseUnitRatio parses a ratio in the closed range [0, 1].
func ParseUnitRatio(raw string) (decimal.Decimal, error) {
	r, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, Errorf(CodeNumberError, "available_ratio %q is not a number", raw)
	}
	if r.IsNegative() || r.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, Errorf(CodeNumberError, "available_ratio %q must be between 0 and 1", raw)
	}
	return r, nil
}

// UnfreezePerPeriod returns ceil((1 - ratio) * num / totalPeriods).
func UnfreezePerPeriod(num decimal.Decimal, ratio decimal.Decimal, totalPeriods int64) (int64, error) {
	frozen := decimal.NewFromInt(1).Sub(ratio).Mul(num)
	per := frozen.Div(decimal.NewFromInt(totalPeriods)).Ceil()
	if per.GreaterThan(maxQuantity) {
		return 0, Errorf(CodeNumberError, "unfreeze amount %s exceeds the largest quantity", per)
	}
	return per.IntPart(), nil
}
