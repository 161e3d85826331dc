package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"expensemanager/internal/core"
	"expensemanager/internal/log"
	"expensemanager/internal/services"
)

// Error log titles.
const (
	titleAddExpenseValidation = "Add Expense Validation Error"
	titleAddExpense           = "Add Expense API"
	titleGetExpenses          = "get_expenses"
)

// expenseRecord is the listing shape of one expense.
type expenseRecord struct {
	ID            string `json:"id"`
	ExpenseDate   string `json:"expense_date"`
	Category      string `json:"category"`
	Amount        any    `json:"amount"`
	Description   string `json:"description"`
	PaymentMethod string `json:"payment_method"`
}

func newExpenseRecord(e core.Expense) expenseRecord {
	var amount any
	if e.Amount.Valid {
		amount = json.Number(e.Amount.Decimal.String())
	}
	return expenseRecord{
		ID:            e.ID,
		ExpenseDate:   e.ExpenseDate,
		Category:      e.Category,
		Amount:        amount,
		Description:   e.Description,
		PaymentMethod: e.PaymentMethod,
	}
}

func (s *Server) handleAddExpense(c *gin.Context) {
	ctx := c.Request.Context()
	logger := log.FromContext(ctx).WithComponent(log.ComponentExpense)
	user := sessionFrom(c).Username

	kwargs, err := ParseKwargs(c.Request)
	if err != nil {
		logger.WarnContext(ctx, "Unreadable add_expense request", log.FieldError, err)
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	logger.InfoContext(ctx, "add_expense called", log.FieldUser, user, "data", map[string]any(kwargs))

	expense, err := core.ParseExpenseInput(kwargs)
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		logger.WarnContext(ctx, "Validation error in add_expense",
			log.FieldUser, user,
			log.FieldOperation, log.OpValidate,
			log.FieldError, verr)
		services.RecordError(ctx, s.errorLog, titleAddExpenseValidation, verr.Error())
		c.JSON(http.StatusOK, gin.H{"success": false, "error": log.ErrorTypeValidation, "details": verr.Details})
		return
	}

	if err == nil {
		expense.Owner = user
		expense, err = s.expenses.Create(ctx, expense)
	}
	if err != nil {
		log.NewStructuredLogger(logger).LogError(ctx, "Unexpected error in add_expense", err,
			log.ComponentExpense, log.OpCreate, log.NewFields().WithUser(user))
		services.RecordError(ctx, s.errorLog, titleAddExpense, fmt.Sprintf("Error creating expense: %v", err))
		c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error()})
		return
	}

	log.NewStructuredLogger(logger).LogExpenseCreated(ctx, user, expense.ID,
		expense.AmountString(), expense.Category, expense.Description)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Expense created", "expense_id": expense.ID})
}

func (s *Server) handleGetExpenses(c *gin.Context) {
	ctx := c.Request.Context()
	logger := log.FromContext(ctx).WithComponent(log.ComponentExpense)
	user := sessionFrom(c).Username

	kwargs, err := ParseKwargs(c.Request)
	if err != nil {
		logger.WarnContext(ctx, "Unreadable get_expenses request", log.FieldError, err)
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	q := core.ParseListQuery(kwargs)
	logger.InfoContext(ctx, "get_expenses called",
		log.FieldUser, user,
		"start_date", q.Filter.From,
		"end_date", q.Filter.To,
		log.FieldCategory, q.Filter.Category,
		log.FieldPaymentMethod, q.Filter.PaymentMethod,
		log.FieldPage, q.Page,
		log.FieldLimit, q.Limit)

	items, err := s.expenses.List(ctx, q)
	if err != nil {
		logger.ErrorContext(ctx, "Error in get_expenses",
			log.FieldOperation, log.OpList,
			log.FieldError, err)
		services.RecordError(ctx, s.errorLog, titleGetExpenses, fmt.Sprintf("Error fetching expenses: %v", err))
		c.JSON(http.StatusOK, gin.H{"success": false, "error": err.Error()})
		return
	}

	data := make([]expenseRecord, 0, len(items))
	for _, e := range items {
		data = append(data, newExpenseRecord(e))
	}

	logger.DebugContext(ctx, "Fetched expenses", log.FieldCount, len(data), log.FieldUser, user)
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data, "page": q.Page, "limit": q.Limit})
}

// handleDailySummary runs the summary job on demand.
func (s *Server) handleDailySummary(c *gin.Context) {
	ctx := c.Request.Context()
	log.FromContext(ctx).WithComponent(log.ComponentSummary).InfoContext(ctx, "Daily summary triggered manually",
		log.FieldOperation, log.OpSummary)
	s.summary.Run(ctx)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
