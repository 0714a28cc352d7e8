package notification

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/recordhub/internal/config"
	"github.com/tigerroll/recordhub/internal/domain/model"
)

type mailerMock struct{ mock.Mock }

func (m *mailerMock) Send(ctx context.Context, to []string, subject, body string) error {
	return m.Called(ctx, to, subject, body).Error(0)
}

func completion(creator *model.User, errFrac float64) Completion {
	return Completion{
		Task:          model.Task{ID: 5, Filename: "staff.tsv", Kind: model.KindAffiliation, RecordCount: 4},
		Creator:       creator,
		ErrorFraction: errFrac,
	}
}

func TestMailNotifier(t *testing.T) {
	m := &mailerMock{}
	m.On("Send", mock.Anything, []string{"admin@example.com"}, "Batch 'staff.tsv' processed",
		mock.MatchedBy(func(body string) bool {
			return assert.Contains(t, body, "Dear Ada Admin,") &&
				assert.Contains(t, body, "4 record(s); 25% with errors") &&
				assert.Contains(t, body, "failed record")
		})).Return(nil)

	n := NewMailNotifier(m)
	creator := &model.User{Email: "admin@example.com", FirstName: "Ada", LastName: "Admin"}
	require.NoError(t, n.NotifyTaskCompleted(context.Background(), completion(creator, 0.25)))
	m.AssertExpectations(t)
}

func TestMailNotifier_NoCreator(t *testing.T) {
	m := &mailerMock{}
	n := NewMailNotifier(m)
	require.NoError(t, n.NotifyTaskCompleted(context.Background(), completion(nil, 0)))
	m.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestNewNotifier(t *testing.T) {
	cfg := config.NewConfig()
	assert.IsType(t, &LogNotifier{}, NewNotifier(cfg, &mailerMock{}))
	assert.NoError(t, NewLogNotifier().NotifyTaskCompleted(context.Background(), completion(nil, 0.5)))

	cfg.RecordHub.Mail.Enabled = true
	assert.IsType(t, &MailNotifier{}, NewNotifier(cfg, &mailerMock{}))
}
