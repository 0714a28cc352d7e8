package mail

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/recordhub/internal/config"
)

func TestNewMailer(t *testing.T) {
	cfg := config.NewConfig()
	assert.IsType(t, LogMailer{}, NewMailer(cfg))

	cfg.RecordHub.Mail.Enabled = true
	cfg.RecordHub.Mail.Host = "smtp.example.com"
	cfg.RecordHub.Mail.From = "hub@example.com"
	assert.IsType(t, &SMTPMailer{}, NewMailer(cfg))
}

func TestSMTPMailer_Message(t *testing.T) {
	m := NewSMTPMailer(config.MailConfig{Host: "smtp.example.com", Port: 587, From: "hub@example.com"})
	var buf bytes.Buffer
	_, err := m.message([]string{"a@example.com"}, "Hello", "Body text").WriteTo(&buf)
	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, "From: hub@example.com")
	assert.Contains(t, out, "To: a@example.com")
	assert.Contains(t, out, "Subject: Hello")
	assert.Contains(t, out, "Body text")
}

func TestSMTPMailer_NoRecipients(t *testing.T) {
	m := NewSMTPMailer(config.MailConfig{Host: "127.0.0.1", Port: 1})
	assert.NoError(t, m.Send(context.Background(), nil, "s", "b"))
}

func TestLogMailer(t *testing.T) {
	assert.NoError(t, LogMailer{}.Send(context.Background(), []string{"a@example.com"}, "s", "b"))
}
