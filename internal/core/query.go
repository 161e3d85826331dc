package core

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10

	// MaxLimit caps the page size; larger limits are clamped to it.
	MaxLimit = 1000
	// maxOffset bounds (page-1)*limit so every backend can skip that far.
	maxOffset = math.MaxInt32
)

// ListFilter narrows a listing. Empty fields do not filter.
// From and To bound expense_date inclusively.
type ListFilter struct {
	From          string
	To            string
	Category      string
	PaymentMethod string
}

// ListQuery is a parsed get_expenses request.
type ListQuery struct {
	Filter ListFilter
	Page   int
	Limit  int
}

// Offset is the number of filtered records skipped before this page.
func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// Matches reports whether e passes every set filter.
func (f ListFilter) Matches(e Expense) bool {
	if f.From != "" && e.ExpenseDate < f.From {
		return false
	}
	if f.To != "" && e.ExpenseDate > f.To {
		return false
	}
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	if f.PaymentMethod != "" && e.PaymentMethod != f.PaymentMethod {
		return false
	}
	return true
}

// ParseListQuery builds a ListQuery from untyped keyword arguments.
//
// page and limit fall back to their defaults together when either one cannot
// be coerced to an integer; values below 1 are treated the same way, as is a
// page whose offset would exceed maxOffset. limit is clamped to MaxLimit.
func ParseListQuery(kwargs map[string]any) ListQuery {
	q := ListQuery{
		Filter: ListFilter{
			From:          optionalString(kwargs, "start_date"),
			To:            optionalString(kwargs, "end_date"),
			Category:      optionalString(kwargs, "category"),
			PaymentMethod: optionalString(kwargs, "payment_method"),
		},
		Page:  DefaultPage,
		Limit: DefaultLimit,
	}

	page, pageOK := coerceInt(kwargs["page"], DefaultPage)
	limit, limitOK := coerceInt(kwargs["limit"], DefaultLimit)
	if !pageOK || !limitOK || page < 1 || limit < 1 {
		return q
	}
	limit = min(limit, MaxLimit)
	if page-1 > maxOffset/limit {
		return q
	}
	q.Page = page
	q.Limit = limit
	return q
}

func optionalString(kwargs map[string]any, key string) string {
	v, ok := present(kwargs, key)
	if !ok {
		return ""
	}
	s, ok := stringValue(v)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

// coerceInt mirrors int() on loosely typed input; only nil yields def.
func coerceInt(v any, def int) (int, bool) {
	switch val := v.(type) {
	case nil:
		return def, true
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		if math.IsNaN(val) || val >= math.MaxInt64 || val < math.MinInt64 {
			return 0, false
		}
		return int(val), true
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return int(i), true
		}
		return 0, false
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}
