package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DefaultDescription replaces a missing or blank description.
	DefaultDescription = "No description provided"

	// DateLayout is the only accepted expense_date format.
	DateLayout = "2006-01-02"

	expenseIDPrefix = "EXP-"
)

type (
	Expense struct {
		ID            string
		ExpenseDate   string
		Category      string
		Amount        decimal.NullDecimal
		Description   string
		PaymentMethod string
		Owner         string // username that created the record
		Creation      time.Time
	}

	// Role names a permission group a user can hold.
	Role string
)

// SystemManager is the administrative role that receives the daily summary.
const SystemManager Role = "System Manager"

var ErrInvalidExpenseID = errors.New("invalid expense id")

// AmountValue returns the amount, or zero when it is missing.
func (e Expense) AmountValue() decimal.Decimal {
	if !e.Amount.Valid {
		return decimal.Zero
	}
	return e.Amount.Decimal
}

// AmountString renders the amount with two decimals, or "None" when missing.
func (e Expense) AmountString() string {
	if !e.Amount.Valid {
		return "None"
	}
	return e.Amount.Decimal.StringFixed(2)
}

// CreatedNotice is the operator-facing text announcing a new expense.
func (e Expense) CreatedNotice() string {
	return fmt.Sprintf("[after_insert] Expense %s created\nAmount: %s\nDescription: %s",
		e.ID, e.AmountString(), e.Description)
}

// ApplyDefaultDescription fills the default description when it is blank.
// It reports whether the description was changed.
func ApplyDefaultDescription(e *Expense) bool {
	if strings.TrimSpace(e.Description) != "" {
		return false
	}
	e.Description = DefaultDescription
	return true
}

// FormatExpenseID renders a repository sequence number as an expense id.
func FormatExpenseID(seq int64) string {
	return fmt.Sprintf("%s%04d", expenseIDPrefix, seq)
}

// ParseExpenseID is the inverse of FormatExpenseID.
func ParseExpenseID(id string) (int64, error) {
	raw, ok := strings.CutPrefix(strings.TrimSpace(id), expenseIDPrefix)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidExpenseID, id)
	}
	seq, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || seq < 1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidExpenseID, id)
	}
	return seq, nil
}

// ValidDate reports whether s is a calendar date in DateLayout.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}
