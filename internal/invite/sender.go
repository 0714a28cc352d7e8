package invite

import (
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/tigerroll/recordhub/internal/adapter/mail"
)

// Message is what an invitation tells its recipient.
type Message struct {
	Recipient string
	Name      string
	OrgName   string
	Sections  []string
	URL       string
	Expires   time.Time
}

// Sender delivers invitations.
type Sender interface {
	SendInvitation(ctx context.Context, msg Message) error
}

var invitationTemplate = template.Must(template.New("invitation").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(`Dear {{.Name}},

{{.OrgName}} would like to add {{if .Sections}}your {{join .Sections ", "}} details{{else}}information{{end}} to your ORCID record.
Please follow the link below to grant access:

{{.URL}}

The link is valid until {{.Expires.Format "2 January 2006"}}.
`))

// MailSender renders the invitation template and mails it.
type MailSender struct {
	mailer mail.Mailer
}

func NewMailSender(m mail.Mailer) Sender {
	return &MailSender{mailer: m}
}

func render(msg Message) (string, error) {
	var b strings.Builder
	if msg.Name == "" {
		msg.Name = msg.Recipient
	}
	if err := invitationTemplate.Execute(&b, msg); err != nil {
		return "", fmt.Errorf("render invitation: %w", err)
	}
	return b.String(), nil
}

func (s *MailSender) SendInvitation(ctx context.Context, msg Message) error {
	body, err := render(msg)
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("%s invites you to connect your ORCID record", msg.OrgName)
	return s.mailer.Send(ctx, []string{msg.Recipient}, subject, body)
}
