// Package core provides money parsing and amount validation.
//
// Amounts are carried as shopspring decimals so that the company limit check
// and the daily totals never go through binary floating point.
package core

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// AmountLimit is the largest amount a single expense may carry.
var AmountLimit = decimal.NewFromInt(10000)

var (
	ErrAmountNotPositive = errors.New("Amount must be greater than 0")
	ErrAmountOverLimit   = errors.New("Amount exceeds company limit of 10000")
	ErrAmountRequired    = errors.New("Expense amount is required.")
	ErrInvalidAmount     = errors.New("value is not a valid decimal")
	ErrAmountPrecision   = errors.New("Amount must have at most 2 decimal places")
)

// ValidateAmount enforces 0 < amount <= AmountLimit with at most two decimal
// places, matching the NUMERIC(12,2) column. It is the single rule shared by
// input parsing and the pre-save guard.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrAmountNotPositive
	}
	if amount.GreaterThan(AmountLimit) {
		return ErrAmountOverLimit
	}
	if !amount.Equal(amount.Round(2)) {
		return ErrAmountPrecision
	}
	return nil
}

// ParseAmount converts an untyped transport value into a decimal.
//
// Strings accept a dot (12.34) or a single comma followed by one or two
// digits (12,34) as the decimal separator. "1,500" is rejected rather than
// read as a thousands separator.
// JSON numbers, floats and integers are accepted as-is.
func ParseAmount(v any) (decimal.Decimal, error) {
	switch val := v.(type) {
	case decimal.Decimal:
		return val, nil
	case float64:
		return decimal.NewFromFloat(val), nil
	case float32:
		return decimal.NewFromFloat32(val), nil
	case int:
		return decimal.NewFromInt(int64(val)), nil
	case int64:
		return decimal.NewFromInt(val), nil
	case json.Number:
		return parseAmountString(val.String())
	case string:
		return parseAmountString(val)
	default:
		return decimal.Zero, ErrInvalidAmount
	}
}

func parseAmountString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if whole, frac, ok := strings.Cut(s, ","); ok {
		if strings.ContainsAny(whole, ".,") || strings.Contains(frac, ",") || len(frac) == 0 || len(frac) > 2 {
			return decimal.Zero, ErrInvalidAmount
		}
		s = whole + "." + frac
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}
