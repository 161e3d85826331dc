package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DailySummary is the aggregate sent to administrators once per day.
type DailySummary struct {
	Since      time.Time
	Expenses   []Expense
	Total      decimal.Decimal
	Recipients []string
}

// SummaryWindowStart returns midnight UTC of the day before now.
func SummaryWindowStart(now time.Time) time.Time {
	y, m, d := now.UTC().AddDate(0, 0, -1).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewDailySummary totals expenses; missing amounts count as zero.
func NewDailySummary(since time.Time, expenses []Expense) DailySummary {
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.AmountValue())
	}
	return DailySummary{Since: since, Expenses: expenses, Total: total}
}

// Body renders the plain-text notification body.
func (s DailySummary) Body() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Total Expenses in last 24 hours: %s\n\nDetails:\n", s.Total.StringFixed(2))
	for _, e := range s.Expenses {
		fmt.Fprintf(&b, "- %s: %s (%s)\n", e.ID, e.AmountString(), e.Description)
	}
	return b.String()
}
