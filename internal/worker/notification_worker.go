// Package worker consumes expense notifications from the broker and hands
// them to a local notifier.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"expensemanager/internal/amqp"
	"expensemanager/internal/log"
	"expensemanager/internal/ports"
)

// DefaultRetryDelay is the pause before reconnecting a dropped consumer.
const DefaultRetryDelay = 5 * time.Second

// Consumer is the broker side of the worker, satisfied by *amqp.Client.
type Consumer interface {
	ConsumeNotifications(ctx context.Context, handler func(*amqp.ExpenseCreatedMessage) error) error
	Reconnect(ctx context.Context) error
}

// NotificationWorker relays expense-created messages to a notifier until its
// context is cancelled, reconnecting whenever the consumer stops.
type NotificationWorker struct {
	consumer   Consumer
	notifier   ports.Notifier
	retryDelay time.Duration
	logger     *log.Logger

	after func(time.Duration) <-chan time.Time
}

func NewNotificationWorker(consumer Consumer, notifier ports.Notifier, retryDelay time.Duration, logger *log.Logger) *NotificationWorker {
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}
	return &NotificationWorker{
		consumer:   consumer,
		notifier:   notifier,
		retryDelay: retryDelay,
		logger:     logger.WithComponent(log.ComponentNotifier),
		after:      time.After,
	}
}

// HandleMessage processes a single expense-created message.
func (w *NotificationWorker) HandleMessage(ctx context.Context, msg *amqp.ExpenseCreatedMessage) error {
	w.logger.DebugContext(ctx, "Processing notification", log.FieldExpenseID, msg.ExpenseID)

	if err := w.notifier.NotifyExpenseCreated(ctx, msg.Expense()); err != nil {
		w.logger.ErrorContext(ctx, "Failed to deliver notification",
			log.FieldExpenseID, msg.ExpenseID,
			log.FieldError, err)
		return fmt.Errorf("notify expense %s: %w", msg.ExpenseID, err)
	}
	return nil
}

// Run blocks until ctx is cancelled.
func (w *NotificationWorker) Run(ctx context.Context) error {
	handle := func(msg *amqp.ExpenseCreatedMessage) error {
		return w.HandleMessage(ctx, msg)
	}

	for {
		err := w.consumer.ConsumeNotifications(ctx, handle)
		if ctx.Err() != nil {
			w.logger.InfoContext(ctx, "Notification worker stopped", "reason", ctx.Err())
			return ctx.Err()
		}
		w.logger.WarnContext(ctx, "Consumer stopped, retrying",
			log.FieldError, err,
			"retry_in", w.retryDelay.String())

		select {
		case <-ctx.Done():
			continue
		case <-w.after(w.retryDelay):
		}

		if err := w.consumer.Reconnect(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.ErrorContext(ctx, "Reconnect failed", log.FieldError, err)
		}
	}
}
