package services

import (
	"context"
	"fmt"

	"expensemanager/internal/core"
	"expensemanager/internal/log"
)

func (s *ExpenseService) beforeInsert(ctx context.Context, e *core.Expense) {
	if core.ApplyDefaultDescription(e) {
		log.FromContext(ctx).WithComponent(log.ComponentHooks).InfoContext(ctx,
			"[before_insert] Description set to default")
	}
}

// beforeSave is the last amount check before the write.
func (s *ExpenseService) beforeSave(ctx context.Context, e *core.Expense) error {
	if !e.Amount.Valid {
		return &core.GuardError{Err: core.ErrAmountRequired}
	}
	if err := core.ValidateAmount(e.Amount.Decimal); err != nil {
		return &core.GuardError{Err: err}
	}
	log.FromContext(ctx).WithComponent(log.ComponentHooks).DebugContext(ctx,
		"[before_save] Expense validated", log.FieldAmount, e.AmountString())
	return nil
}

// afterInsert never fails the create; problems go to the error log.
func (s *ExpenseService) afterInsert(ctx context.Context, e core.Expense) {
	logger := log.FromContext(ctx).WithComponent(log.ComponentHooks)
	logger.InfoContext(ctx, "[after_insert] Expense created",
		log.FieldExpenseID, e.ID,
		log.FieldAmount, e.AmountString(),
		log.FieldDescription, e.Description)

	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyExpenseCreated(ctx, e); err != nil {
		logger.ErrorContext(ctx, "Expense notification failed",
			log.FieldExpenseID, e.ID,
			log.FieldError, err)
		RecordError(ctx, s.errors, TitleAfterInsert, fmt.Sprintf("after_insert_expense failed: %v", err))
	}
}
