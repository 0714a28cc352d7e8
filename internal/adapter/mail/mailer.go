// Package mail sends plain text e-mail over SMTP.
package mail

import (
	"context"
	"crypto/tls"
	"fmt"

	gomail "github.com/go-mail/mail/v2"

	"github.com/tigerroll/recordhub/internal/config"
	"github.com/tigerroll/recordhub/internal/support/exception"
	"github.com/tigerroll/recordhub/internal/support/logger"
)

// Mailer delivers one message.
type Mailer interface {
	Send(ctx context.Context, to []string, subject, body string) error
}

// SMTPMailer dials the configured server for every message.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(mc config.MailConfig) *SMTPMailer {
	d := gomail.NewDialer(mc.Host, mc.Port, mc.Username, mc.Password)
	d.TLSConfig = &tls.Config{ServerName: mc.Host}
	if mc.Port == 587 {
		d.StartTLSPolicy = gomail.MandatoryStartTLS
	}
	return &SMTPMailer{dialer: d, from: mc.From}
}

func (m *SMTPMailer) message(to []string, subject, body string) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	return msg
}

func (m *SMTPMailer) Send(ctx context.Context, to []string, subject, body string) error {
	if len(to) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.dialer.DialAndSend(m.message(to, subject, body)); err != nil {
		return exception.NewBatchError("mail", fmt.Sprintf("failed to send %q to %v", subject, to), err, true)
	}
	logger.Debugf("Mail %q sent to %v.", subject, to)
	return nil
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, to []string, subject, body string) error {
	logger.Infof("Mail to %v: %s\n%s", to, subject, body)
	return nil
}

// NewMailer returns an SMTPMailer when mail is enabled, else a LogMailer.
func NewMailer(cfg *config.Config) Mailer {
	mc := cfg.RecordHub.Mail
	if !mc.Enabled || mc.Host == "" {
		logger.Infof("Mail delivery disabled; messages are logged.")
		return LogMailer{}
	}
	return NewSMTPMailer(mc)
}

var (
	_ Mailer = (*SMTPMailer)(nil)
	_ Mailer = LogMailer{}
)
