package services

import (
	"context"
	"fmt"

	"expensemanager/internal/core"
	"expensemanager/internal/log"
	"expensemanager/internal/ports"
)

// Error log titles.
const (
	TitleAfterInsert = "after_insert_expense"
	TitleSummary     = "send_daily_expense_summary"
)

// ExpenseService runs the expense lifecycle around the repository.
type ExpenseService struct {
	repo     ports.ExpenseRepository
	notifier ports.Notifier
	errors   ports.ErrorLog
}

// NewExpenseService wires the service. A nil notifier disables
// after-insert notifications.
func NewExpenseService(repo ports.ExpenseRepository, notifier ports.Notifier, errLog ports.ErrorLog) *ExpenseService {
	return &ExpenseService{
		repo:     repo,
		notifier: notifier,
		errors:   errLog,
	}
}

// Create persists e through the insert hooks:
// beforeInsert, beforeSave, Insert, afterInsert.
// A beforeSave failure is returned as *core.GuardError and nothing is written.
func (s *ExpenseService) Create(ctx context.Context, e core.Expense) (core.Expense, error) {
	s.beforeInsert(ctx, &e)

	if err := s.beforeSave(ctx, &e); err != nil {
		return core.Expense{}, err
	}

	saved, err := s.repo.Insert(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	s.afterInsert(ctx, saved)
	return saved, nil
}

// List returns one page of expenses matching q.
func (s *ExpenseService) List(ctx context.Context, q core.ListQuery) ([]core.Expense, error) {
	items, err := s.repo.List(ctx, q.Filter, q.Offset(), q.Limit)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	log.FromContext(ctx).DebugContext(ctx, "Fetched expenses",
		log.FieldCount, len(items),
		log.FieldPage, q.Page,
		log.FieldLimit, q.Limit)

	return items, nil
}

func (s *ExpenseService) Get(ctx context.Context, id string) (core.Expense, error) {
	return s.repo.Get(ctx, id)
}

// RecordError writes to the durable error log. A failing sink is logged and
// otherwise ignored.
func RecordError(ctx context.Context, sink ports.ErrorLog, title, message string) {
	if sink == nil {
		return
	}
	if err := sink.Record(ctx, title, message); err != nil {
		log.FromContext(ctx).WarnContext(ctx, "Failed to record error",
			log.FieldTitle, title,
			log.FieldError, err)
	}
}
