package invite

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tigerroll/recordhub/internal/config"
	"github.com/tigerroll/recordhub/internal/domain/model"
	"github.com/tigerroll/recordhub/internal/store"
	"github.com/tigerroll/recordhub/internal/support/logger"
)

// Ledger records sent invitations. store.Store satisfies it.
type Ledger interface {
	LastInvitation(ctx context.Context, orgID uint, email string) (*model.Invitation, error)
	SaveInvitation(ctx context.Context, inv *model.Invitation) error
}

// Outcome tells what Invite did.
type Outcome struct {
	Sent bool
	// LastSent is the earlier invitation that suppressed this one.
	LastSent time.Time
}

// Inviter sends at most one invitation per person and organisation within the resend window.
type Inviter struct {
	issuer  *TokenIssuer
	sender  Sender
	ledger  Ledger
	resend  time.Duration
	baseURL string
	now     func() time.Time
}

func NewInviter(cfg *config.Config, issuer *TokenIssuer, sender Sender, ledger Ledger) *Inviter {
	return &Inviter{
		issuer:  issuer,
		sender:  sender,
		ledger:  ledger,
		resend:  time.Duration(cfg.RecordHub.Processor.InvitationResendHours) * time.Hour,
		baseURL: strings.TrimRight(cfg.RecordHub.Invitation.BaseURL, "/"),
		now:     time.Now,
	}
}

// Invite mails p a token for org unless an invitation went out within the resend window.
// A failed delivery is returned and nothing is recorded, so a later run tries again.
func (iv *Inviter) Invite(ctx context.Context, actor model.Actor, org *model.Organisation, taskID uint, p model.Person, aff model.Affiliation) (Outcome, error) {
	email := strings.TrimSpace(p.Email)
	if email == "" {
		return Outcome{}, fmt.Errorf("cannot invite %s without an e-mail address", p.Key())
	}
	last, err := iv.ledger.LastInvitation(ctx, org.ID, email)
	switch {
	case err == nil:
		if iv.resend > 0 && iv.now().Sub(last.SentAt) < iv.resend {
			logger.Debugf("Invitation to %s for organisation %d already sent at %s.", email, org.ID, last.SentAt)
			return Outcome{LastSent: last.SentAt}, nil
		}
	case !errors.Is(err, store.ErrNotFound):
		return Outcome{}, err
	}

	inv := &model.Invitation{OrgID: org.ID, TaskID: taskID, Email: email, Affiliations: aff, CreatedBy: actor.UserID}
	token, expires, err := iv.issuer.Issue(inv)
	if err != nil {
		return Outcome{}, err
	}
	msg := Message{
		Recipient: email,
		Name:      strings.TrimSpace(p.FirstName + " " + p.LastName),
		OrgName:   org.Name,
		Sections:  aff.Sections(),
		URL:       iv.baseURL + "/invitation/" + url.PathEscape(token),
		Expires:   expires,
	}
	if err := iv.sender.SendInvitation(ctx, msg); err != nil {
		return Outcome{}, err
	}
	inv.SentAt = iv.now()
	if err := iv.ledger.SaveInvitation(ctx, inv); err != nil {
		return Outcome{}, err
	}
	logger.Infof("Invitation sent to %s on behalf of %s.", email, org.Name)
	return Outcome{Sent: true}, nil
}
