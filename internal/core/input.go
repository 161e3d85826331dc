package core

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseExpenseInput turns untyped keyword arguments into a validated Expense.
//
// Every field is checked so that the returned *ValidationError lists all
// problems at once. A blank description is replaced by DefaultDescription.
func ParseExpenseInput(kwargs map[string]any) (Expense, error) {
	verr := &ValidationError{}
	var e Expense

	e.ExpenseDate = requiredString(verr, kwargs, "expense_date")
	if e.ExpenseDate != "" && !ValidDate(e.ExpenseDate) {
		verr.add("expense_date", "invalid date format, expected YYYY-MM-DD", IssueInvalidDate)
	}
	e.Category = requiredString(verr, kwargs, "category")

	if raw, ok := present(kwargs, "amount"); !ok {
		verr.add("amount", "field required", IssueMissing)
	} else if amount, err := ParseAmount(raw); err != nil {
		verr.add("amount", err.Error(), IssueInvalidAmount)
	} else if err := ValidateAmount(amount); err != nil {
		verr.add("amount", err.Error(), IssueAmountRange)
	} else {
		e.Amount = decimal.NewNullDecimal(amount)
	}

	if raw, ok := present(kwargs, "description"); ok {
		if s, ok := stringValue(raw); ok {
			e.Description = strings.TrimSpace(s)
		} else {
			verr.add("description", "str type expected", IssueInvalidString)
		}
	}
	ApplyDefaultDescription(&e)

	e.PaymentMethod = requiredString(verr, kwargs, "payment_method")

	if !verr.empty() {
		return Expense{}, verr
	}
	return e, nil
}

func requiredString(verr *ValidationError, kwargs map[string]any, field string) string {
	raw, ok := present(kwargs, field)
	if !ok {
		verr.add(field, "field required", IssueMissing)
		return ""
	}
	s, ok := stringValue(raw)
	if !ok {
		verr.add(field, "str type expected", IssueInvalidString)
		return ""
	}
	s = strings.TrimSpace(s)
	if s == "" {
		verr.add(field, "field required", IssueMissing)
	}
	return s
}

// present returns the value for key unless it is absent or null.
func present(kwargs map[string]any, key string) (any, bool) {
	v, ok := kwargs[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// stringValue converts scalar transport values to text.
func stringValue(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case json.Number:
		return val.String(), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	default:
		return "", false
	}
}
