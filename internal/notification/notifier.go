// Package notification tells a task's creator that processing finished.
package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/tigerroll/recordhub/internal/adapter/mail"
	"github.com/tigerroll/recordhub/internal/config"
	"github.com/tigerroll/recordhub/internal/domain/model"
	"github.com/tigerroll/recordhub/internal/support/logger"
)

// Completion describes a finished task.
type Completion struct {
	Task    model.Task
	Creator *model.User
	// ErrorFraction is the share of records whose status log records a failure.
	ErrorFraction float64
}

func (c Completion) summary() string {
	return fmt.Sprintf("Task %d (%s, %s) finished processing %d record(s); %.0f%% with errors.",
		c.Task.ID, c.Task.Filename, c.Task.Kind, c.Task.RecordCount, c.ErrorFraction*100)
}

// Notifier delivers completion notices.
type Notifier interface {
	NotifyTaskCompleted(ctx context.Context, c Completion) error
}

// LogNotifier only logs completions.
type LogNotifier struct{}

func NewLogNotifier() Notifier {
	logger.Infof("Notification: completions are logged only.")
	return &LogNotifier{}
}

func (n *LogNotifier) NotifyTaskCompleted(_ context.Context, c Completion) error {
	if c.ErrorFraction > 0 {
		logger.Warnf("Notification: %s", c.summary())
	} else {
		logger.Infof("Notification: %s", c.summary())
	}
	return nil
}

// MailNotifier mails the creator. Tasks without a creator address are only logged.
type MailNotifier struct {
	mailer mail.Mailer
}

func NewMailNotifier(m mail.Mailer) Notifier {
	return &MailNotifier{mailer: m}
}

func (n *MailNotifier) NotifyTaskCompleted(ctx context.Context, c Completion) error {
	if c.Creator == nil || strings.TrimSpace(c.Creator.Email) == "" {
		logger.Infof("Notification: %s No creator address on file.", c.summary())
		return nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n%s\n", c.Creator.DisplayName(), c.summary())
	if c.ErrorFraction > 0 {
		b.WriteString("\nThe status of each failed record describes what went wrong.\n")
	}
	subject := fmt.Sprintf("Batch '%s' processed", c.Task.Filename)
	return n.mailer.Send(ctx, []string{c.Creator.Email}, subject, b.String())
}

// NewNotifier mails completions when mail delivery is enabled.
func NewNotifier(cfg *config.Config, m mail.Mailer) Notifier {
	if cfg.RecordHub.Mail.Enabled {
		return NewMailNotifier(m)
	}
	return NewLogNotifier()
}

var (
	_ Notifier = (*LogNotifier)(nil)
	_ Notifier = (*MailNotifier)(nil)
)
