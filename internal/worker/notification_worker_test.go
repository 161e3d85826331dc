package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"expensemanager/internal/amqp"
	"expensemanager/internal/core"
	"expensemanager/internal/log"
)

type recordingNotifier struct {
	mu   sync.Mutex
	seen []core.Expense
	err  error
}

func (n *recordingNotifier) NotifyExpenseCreated(_ context.Context, e core.Expense) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.seen = append(n.seen, e)
	return nil
}

// scriptedConsumer delivers one batch per ConsumeNotifications call and then
// fails, cancelling the run after the last batch.
type scriptedConsumer struct {
	batches    [][]*amqp.ExpenseCreatedMessage
	calls      int
	reconnects int
	cancel     context.CancelFunc
}

func (c *scriptedConsumer) ConsumeNotifications(ctx context.Context, handler func(*amqp.ExpenseCreatedMessage) error) error {
	if c.calls >= len(c.batches) {
		c.cancel()
		<-ctx.Done()
		return ctx.Err()
	}
	for _, msg := range c.batches[c.calls] {
		_ = handler(msg)
	}
	c.calls++
	return errors.New("channel closed")
}

func (c *scriptedConsumer) Reconnect(context.Context) error {
	c.reconnects++
	return nil
}

func immediately(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

func TestNotificationWorkerReconnectsAndRelays(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	notifier := &recordingNotifier{}
	consumer := &scriptedConsumer{
		batches: [][]*amqp.ExpenseCreatedMessage{
			{{ExpenseID: "EXP-0001", Category: "Travel"}},
			{{ExpenseID: "EXP-0002", Category: "Food"}, {ExpenseID: "EXP-0003"}},
		},
		cancel: cancel,
	}
	w := NewNotificationWorker(consumer, notifier, time.Second, log.Discard())
	w.after = immediately

	if err := w.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() = %v, want context.Canceled", err)
	}
	if consumer.reconnects != 2 {
		t.Errorf("reconnects = %d, want 2", consumer.reconnects)
	}
	if len(notifier.seen) != 3 || notifier.seen[1].Category != "Food" {
		t.Fatalf("unexpected deliveries %+v", notifier.seen)
	}
}

func TestNotificationWorkerHandleMessageError(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("console gone")}
	w := NewNotificationWorker(&scriptedConsumer{}, notifier, 0, log.Discard())

	if w.retryDelay != DefaultRetryDelay {
		t.Errorf("retryDelay = %v, want default", w.retryDelay)
	}
	err := w.HandleMessage(context.Background(), &amqp.ExpenseCreatedMessage{ExpenseID: "EXP-0009"})
	if err == nil || !errors.Is(err, notifier.err) {
		t.Fatalf("HandleMessage() = %v, want wrapped notifier error", err)
	}
}
