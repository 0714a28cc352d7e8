package invite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/recordhub/internal/config"
	"github.com/tigerroll/recordhub/internal/domain/model"
	"github.com/tigerroll/recordhub/internal/store"
)

func testConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.RecordHub.Invitation.Secret = "s3cret"
	cfg.RecordHub.Invitation.BaseURL = "https://hub.example.com/"
	return cfg
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	iss := NewTokenIssuer(testConfig())
	inv := &model.Invitation{OrgID: 3, TaskID: 8, Email: "a@example.com", Affiliations: model.AffiliationEmployment}

	token, expires, err := iss.Issue(inv)
	require.NoError(t, err)
	assert.NotEmpty(t, inv.TokenID)
	assert.WithinDuration(t, time.Now().Add(720*time.Hour), expires, time.Minute)

	claims, err := iss.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", claims.Email)
	assert.Equal(t, uint(3), claims.OrgID)
	assert.Equal(t, inv.TokenID, claims.ID)
	assert.Equal(t, "Employment", claims.Affiliations)
}

func TestTokenIssuer_Rejects(t *testing.T) {
	iss := NewTokenIssuer(testConfig())
	token, _, err := iss.Issue(&model.Invitation{OrgID: 1, Email: "a@example.com"})
	require.NoError(t, err)

	other := testConfig()
	other.RecordHub.Invitation.Secret = "different"
	_, err = NewTokenIssuer(other).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	later := NewTokenIssuer(testConfig())
	later.now = func() time.Time { return time.Now().Add(800 * time.Hour) }
	_, err = later.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noSecret := NewTokenIssuer(config.NewConfig())
	_, _, err = noSecret.Issue(&model.Invitation{Email: "a@example.com"})
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	body, err := render(Message{
		Recipient: "a@example.com",
		OrgName:   "University",
		Sections:  []string{"employment"},
		URL:       "https://hub.example.com/invitation/x",
		Expires:   time.Date(2026, 11, 18, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Contains(t, body, "Dear a@example.com,")
	assert.Contains(t, body, "your employment details")
	assert.Contains(t, body, "18 November 2026")
}

type ledgerMock struct{ mock.Mock }

func (m *ledgerMock) LastInvitation(ctx context.Context, orgID uint, email string) (*model.Invitation, error) {
	args := m.Called(ctx, orgID, email)
	inv, _ := args.Get(0).(*model.Invitation)
	return inv, args.Error(1)
}

func (m *ledgerMock) SaveInvitation(ctx context.Context, inv *model.Invitation) error {
	return m.Called(ctx, inv).Error(0)
}

type senderMock struct{ mock.Mock }

func (m *senderMock) SendInvitation(ctx context.Context, msg Message) error {
	return m.Called(ctx, msg).Error(0)
}

var org = &model.Organisation{ID: 3, Name: "University"}

func TestInviter_SendsAndRecords(t *testing.T) {
	ledger, sender := &ledgerMock{}, &senderMock{}
	ledger.On("LastInvitation", mock.Anything, uint(3), "a@example.com").Return(nil, store.ErrNotFound)
	sender.On("SendInvitation", mock.Anything, mock.MatchedBy(func(m Message) bool {
		return m.Recipient == "a@example.com" && m.Name == "Ann Lee" &&
			len(m.URL) > len("https://hub.example.com/invitation/")
	})).Return(nil)
	ledger.On("SaveInvitation", mock.Anything, mock.MatchedBy(func(inv *model.Invitation) bool {
		return inv.TaskID == 8 && inv.TokenID != "" && !inv.SentAt.IsZero()
	})).Return(nil)

	iv := NewInviter(testConfig(), NewTokenIssuer(testConfig()), sender, ledger)
	out, err := iv.Invite(context.Background(), model.SystemActor, org, 8,
		model.Person{Email: "a@example.com", FirstName: "Ann", LastName: "Lee"}, model.AffiliationEmployment)
	require.NoError(t, err)
	assert.True(t, out.Sent)
	ledger.AssertExpectations(t)
	sender.AssertExpectations(t)
}

func TestInviter_ResendWindow(t *testing.T) {
	ledger, sender := &ledgerMock{}, &senderMock{}
	recent := time.Now().Add(-2 * time.Hour)
	ledger.On("LastInvitation", mock.Anything, uint(3), "a@example.com").
		Return(&model.Invitation{SentAt: recent}, nil)

	iv := NewInviter(testConfig(), NewTokenIssuer(testConfig()), sender, ledger)
	out, err := iv.Invite(context.Background(), model.SystemActor, org, 8, model.Person{Email: "a@example.com"}, 0)
	require.NoError(t, err)
	assert.False(t, out.Sent)
	assert.Equal(t, recent, out.LastSent)
	sender.AssertNotCalled(t, "SendInvitation", mock.Anything, mock.Anything)
}

func TestInviter_DeliveryFailureIsNotRecorded(t *testing.T) {
	ledger, sender := &ledgerMock{}, &senderMock{}
	old := time.Now().Add(-400 * time.Hour)
	ledger.On("LastInvitation", mock.Anything, uint(3), "a@example.com").Return(&model.Invitation{SentAt: old}, nil)
	sender.On("SendInvitation", mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	iv := NewInviter(testConfig(), NewTokenIssuer(testConfig()), sender, ledger)
	_, err := iv.Invite(context.Background(), model.SystemActor, org, 8, model.Person{Email: "a@example.com"}, 0)
	assert.EqualError(t, err, "smtp down")
	ledger.AssertNotCalled(t, "SaveInvitation", mock.Anything, mock.Anything)

	_, err = iv.Invite(context.Background(), model.SystemActor, org, 8, model.Person{ORCID: "0000-0002-1825-0097"}, 0)
	assert.Error(t, err)
}
