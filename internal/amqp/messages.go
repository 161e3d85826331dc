package amqp

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"expensemanager/internal/core"
)

// ExpenseCreatedMessage announces a newly stored expense to operators.
// Amount is null when the record carries no amount.
type ExpenseCreatedMessage struct {
	ExpenseID     string              `json:"expense_id"`
	ExpenseDate   string              `json:"expense_date"`
	Category      string              `json:"category"`
	Amount        decimal.NullDecimal `json:"amount"`
	Description   string              `json:"description"`
	PaymentMethod string              `json:"payment_method"`
	Owner         string              `json:"owner,omitempty"`
	Timestamp     time.Time           `json:"timestamp"`
}

// NewExpenseCreatedMessage builds the message for a stored expense.
func NewExpenseCreatedMessage(e core.Expense) *ExpenseCreatedMessage {
	return &ExpenseCreatedMessage{
		ExpenseID:     e.ID,
		ExpenseDate:   e.ExpenseDate,
		Category:      e.Category,
		Amount:        e.Amount,
		Description:   e.Description,
		PaymentMethod: e.PaymentMethod,
		Owner:         e.Owner,
		Timestamp:     time.Now().UTC(),
	}
}

// Expense rebuilds the announced record.
func (m *ExpenseCreatedMessage) Expense() core.Expense {
	return core.Expense{
		ID:            m.ExpenseID,
		ExpenseDate:   m.ExpenseDate,
		Category:      m.Category,
		Amount:        m.Amount,
		Description:   m.Description,
		PaymentMethod: m.PaymentMethod,
		Owner:         m.Owner,
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseCreatedMessageFromJSON parses a message body.
func ExpenseCreatedMessageFromJSON(data []byte) (*ExpenseCreatedMessage, error) {
	var msg ExpenseCreatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
