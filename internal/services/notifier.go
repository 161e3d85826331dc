package services

import (
	"context"
	"fmt"
	"io"
	"sync"

	"expensemanager/internal/core"
	"expensemanager/internal/log"
	"expensemanager/internal/ports"
)

// LogNotifier writes the operator notice to the log. It is used when no
// message broker is configured.
type LogNotifier struct {
	logger *log.Logger
}

var _ ports.Notifier = (*LogNotifier)(nil)

func NewLogNotifier(logger *log.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.WithComponent(log.ComponentNotifier)}
}

func (n *LogNotifier) NotifyExpenseCreated(ctx context.Context, e core.Expense) error {
	n.logger.InfoContext(ctx, e.CreatedNotice(), log.FieldExpenseID, e.ID)
	return nil
}

// ConsoleNotifier prints the operator notice to a writer. The notification
// consumer uses it as its popup stand-in.
type ConsoleNotifier struct {
	mu  sync.Mutex
	out io.Writer
}

var _ ports.Notifier = (*ConsoleNotifier)(nil)

func NewConsoleNotifier(out io.Writer) *ConsoleNotifier {
	return &ConsoleNotifier{out: out}
}

func (n *ConsoleNotifier) NotifyExpenseCreated(ctx context.Context, e core.Expense) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, err := fmt.Fprintf(n.out, "%s\n\n", e.CreatedNotice()); err != nil {
		return fmt.Errorf("print notice for %s: %w", e.ID, err)
	}
	return nil
}
