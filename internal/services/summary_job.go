package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"expensemanager/internal/core"
	"expensemanager/internal/log"
	"expensemanager/internal/ports"
)

// SummaryJob composes the daily expense summary and prints it for the
// holders of a role.
type SummaryJob struct {
	repo   ports.ExpenseRepository
	users  ports.UserStore
	errors ports.ErrorLog
	role   core.Role
	out    io.Writer
	now    func() time.Time
}

func NewSummaryJob(repo ports.ExpenseRepository, users ports.UserStore, errLog ports.ErrorLog, out io.Writer, role core.Role) *SummaryJob {
	if role == "" {
		role = core.SystemManager
	}
	return &SummaryJob{
		repo:   repo,
		users:  users,
		errors: errLog,
		role:   role,
		out:    out,
		now:    time.Now,
	}
}

// SetClock overrides the time source used to compute the window.
func (j *SummaryJob) SetClock(now func() time.Time) { j.now = now }

// Build gathers the expenses created since midnight UTC yesterday and the
// enabled recipients.
func (j *SummaryJob) Build(ctx context.Context) (core.DailySummary, error) {
	since := core.SummaryWindowStart(j.now())

	expenses, err := j.repo.CreatedSince(ctx, since)
	if err != nil {
		return core.DailySummary{}, fmt.Errorf("load expenses: %w", err)
	}

	users, err := j.users.ListUsersWithRole(ctx, j.role)
	if err != nil {
		return core.DailySummary{}, fmt.Errorf("load recipients: %w", err)
	}

	summary := core.NewDailySummary(since, expenses)
	for _, u := range users {
		if u.Enabled {
			summary.Recipients = append(summary.Recipients, u.Username)
		}
	}
	return summary, nil
}

// Run builds and prints the summary. Failures are logged and recorded,
// never returned.
func (j *SummaryJob) Run(ctx context.Context) {
	logger := log.FromContext(ctx).WithComponent(log.ComponentSummary)

	summary, err := j.Build(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Daily expense summary failed", log.FieldError, err)
		RecordError(ctx, j.errors, TitleSummary, fmt.Sprintf("Failed to send daily expense summary: %v", err))
		return
	}

	var b strings.Builder
	b.WriteString("---- DAILY EXPENSE SUMMARY ----\n")
	fmt.Fprintf(&b, "Recipients: %s\n", strings.Join(summary.Recipients, ", "))
	b.WriteString(summary.Body())
	b.WriteString("---- END OF SUMMARY ----\n")

	if _, err := io.WriteString(j.out, b.String()); err != nil {
		logger.ErrorContext(ctx, "Daily expense summary output failed", log.FieldError, err)
		RecordError(ctx, j.errors, TitleSummary, fmt.Sprintf("Failed to send daily expense summary: %v", err))
		return
	}

	logger.InfoContext(ctx, "Daily expense summary sent",
		log.FieldSince, summary.Since.Format(time.RFC3339),
		log.FieldCount, len(summary.Expenses),
		log.FieldTotal, summary.Total.StringFixed(2),
		log.FieldRecipients, len(summary.Recipients))
}
