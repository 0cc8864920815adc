package senddecisionnotification

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docverify/internal/common/config"
	apperrors "docverify/internal/common/errors"
	"docverify/internal/lifecycle"
	"docverify/internal/lifecycle/lifecycletest"
	"docverify/internal/models"
)

// ==========================
// Mock Senders
// ==========================

type MockEmail struct {
	mock.Mock
}

func (m *MockEmail) SendText(ctx context.Context, from, to, subject, body string) (string, error) {
	args := m.Called(ctx, from, to, subject, body)
	return args.String(0), args.Error(1)
}

type MockSMS struct {
	mock.Mock
}

func (m *MockSMS) SendSMS(ctx context.Context, phone, senderID, message string) (string, error) {
	args := m.Called(ctx, phone, senderID, message)
	return args.String(0), args.Error(1)
}

func enabledConfig() *Config {
	cfg := DefaultConfig()
	cfg.EmailEnabled = true
	cfg.SMSEnabled = true
	cfg.SenderID = "CIVREG"
	return cfg
}

func newTestHandler(t *testing.T, cfg *Config) (*Handler, *lifecycletest.Env, *MockEmail, *MockSMS) {
	t.Helper()
	env := lifecycletest.New(t)
	email, sms := new(MockEmail), new(MockSMS)
	h, err := NewHandler(HandlerOptions{Config: cfg, Manager: env.Manager, Email: email, SMS: sms, Logger: env.Logger})
	require.NoError(t, err)
	return h, env, email, sms
}

func statuses(out *Output) map[string]string {
	m := map[string]string{}
	for _, n := range out.Notifications {
		m[n.Channel] = n.Status
	}
	return m
}

// ==========================
// Execute
// ==========================

func TestHandler_Execute_Approved(t *testing.T) {
	h, env, email, sms := newTestHandler(t, enabledConfig())
	c := env.Submit(t, "birth_certificate", lifecycletest.Authentic)
	issued := env.Approve(t, c.ID)

	email.On("SendText", mock.Anything, "noreply@civil-registry.gov", lifecycletest.Citizen.Email,
		"Application "+c.ID+" approved",
		mock.MatchedBy(func(body string) bool {
			return assert.Contains(t, body, "birth certificate application") &&
				assert.Contains(t, body, "Verification ID: "+issued.VerificationID)
		})).Return("ses-1", nil)
	sms.On("SendSMS", mock.Anything, lifecycletest.Citizen.Phone, "CIVREG",
		mock.MatchedBy(func(msg string) bool { return assert.Contains(t, msg, issued.VerificationID) })).Return("sns-1", nil)

	out, err := h.Execute(context.Background(), &Input{CaseID: c.ID})
	require.NoError(t, err)

	assert.Equal(t, 2, out.Sent)
	assert.Equal(t, map[string]string{ChannelEmail: StatusSent, ChannelSMS: StatusSent}, statuses(out))
	for _, n := range out.Notifications {
		assert.Equal(t, TypeCaseDecided, n.Type)
		assert.NotEmpty(t, n.SentAt)
		assert.NotEmpty(t, n.Payload["messageId"])
	}
	email.AssertExpectations(t)
	sms.AssertExpectations(t)
}

func TestHandler_Execute_Channels(t *testing.T) {
	tests := []struct {
		name     string
		cfg      func() *Config
		citizen  func(c *models.Citizen)
		channels []string
		want     map[string]string
		wantSent int
	}{
		{
			name:     "everything disabled",
			cfg:      DefaultConfig,
			want:     map[string]string{ChannelEmail: StatusDisabled, ChannelSMS: StatusDisabled},
			wantSent: 0,
		},
		{
			name:     "email only",
			cfg:      enabledConfig,
			channels: []string{ChannelEmail},
			want:     map[string]string{ChannelEmail: StatusSent},
			wantSent: 1,
		},
		{
			name:     "invalid contact details are skipped",
			cfg:      enabledConfig,
			citizen:  func(c *models.Citizen) { c.Email = "not-an-email"; c.Phone = "12" },
			want:     map[string]string{ChannelEmail: StatusSkipped, ChannelSMS: StatusSkipped},
			wantSent: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, env, email, sms := newTestHandler(t, tt.cfg())
			email.On("SendText", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("ses-1", nil).Maybe()
			sms.On("SendSMS", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("sns-1", nil).Maybe()

			citizen := lifecycletest.Citizen
			if tt.citizen != nil {
				tt.citizen(&citizen)
			}
			res, err := env.Manager.Submit(context.Background(), lifecycle.Submission{
				Citizen:      citizen,
				DocumentType: "passport",
				Documents:    []lifecycle.Upload{{Filename: "a.png", Data: []byte(lifecycletest.Fraudulent)}},
			})
			require.NoError(t, err)
			_, err = env.Manager.Decide(context.Background(), lifecycle.Decision{CaseID: res.Case.ID, Status: models.StatusRejected})
			require.NoError(t, err)

			out, err := h.Execute(context.Background(), &Input{CaseID: res.Case.ID, Channels: tt.channels})
			require.NoError(t, err)
			assert.Equal(t, tt.want, statuses(out))
			assert.Equal(t, tt.wantSent, out.Sent)
		})
	}
}

func TestHandler_Execute_PartialFailure(t *testing.T) {
	h, env, email, sms := newTestHandler(t, enabledConfig())
	c := env.Submit(t, "passport", lifecycletest.Authentic)
	env.Approve(t, c.ID)

	email.On("SendText", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("throttled"))
	sms.On("SendSMS", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("sns-1", nil)

	out, err := h.Execute(context.Background(), &Input{CaseID: c.ID})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{ChannelEmail: StatusFailed, ChannelSMS: StatusSent}, statuses(out))
	assert.Equal(t, 1, out.Sent)
}

func TestHandler_Execute_AllFailed(t *testing.T) {
	h, env, email, sms := newTestHandler(t, enabledConfig())
	c := env.Submit(t, "passport", lifecycletest.Authentic)
	env.Approve(t, c.ID)

	email.On("SendText", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("throttled"))
	sms.On("SendSMS", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("opted out"))

	_, err := h.Execute(context.Background(), &Input{CaseID: c.ID})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotification))
	assert.True(t, apperrors.FromError(err).Retryable)
}

func TestHandler_Execute_AppealResolved(t *testing.T) {
	h, env, email, _ := newTestHandler(t, enabledConfig())
	ctx := context.Background()
	c := env.Submit(t, "passport", lifecycletest.Fraudulent)
	_, err := env.Manager.Decide(ctx, lifecycle.Decision{CaseID: c.ID, Status: models.StatusRejected})
	require.NoError(t, err)
	filed, err := env.Manager.FileAppeal(ctx, lifecycle.AppealRequest{CaseID: c.ID, Reason: "recheck"})
	require.NoError(t, err)

	_, err = h.Execute(ctx, &Input{CaseID: c.ID, Type: TypeAppealResolved, AppealID: filed.Appeal.ID, Channels: []string{ChannelEmail}})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidState), "pending appeal has nothing to announce")

	_, err = env.Manager.ResolveAppeal(ctx, filed.Appeal.ID, models.AppealApproved, "OFF-3", "new scan accepted")
	require.NoError(t, err)

	email.On("SendText", mock.Anything, mock.Anything, mock.Anything, "Appeal "+filed.Appeal.ID+" approved",
		mock.MatchedBy(func(body string) bool { return assert.Contains(t, body, "Reviewer notes: new scan accepted") })).Return("ses-2", nil)

	out, err := h.Execute(ctx, &Input{CaseID: c.ID, Type: TypeAppealResolved, AppealID: filed.Appeal.ID, Channels: []string{ChannelEmail}})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Sent)
	assert.Equal(t, TypeAppealResolved, out.Notifications[0].Type)
	email.AssertExpectations(t)
}

func TestHandler_Execute_Invalid(t *testing.T) {
	h, env, _, _ := newTestHandler(t, enabledConfig())
	pending := env.Submit(t, "passport", lifecycletest.Authentic)

	tests := []struct {
		name    string
		input   *Input
		wantErr error
	}{
		{name: "missing case id", input: &Input{}, wantErr: apperrors.ErrInvalidInput},
		{name: "unknown type", input: &Input{CaseID: pending.ID, Type: "reminder"}, wantErr: apperrors.ErrInvalidInput},
		{name: "unknown case", input: &Input{CaseID: "APP-2026-FFF"}, wantErr: apperrors.ErrNotFound},
		{name: "undecided case", input: &Input{CaseID: pending.ID}, wantErr: apperrors.ErrInvalidState},
		{name: "appeal id missing", input: &Input{CaseID: pending.ID, Type: TypeAppealResolved}, wantErr: apperrors.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Execute(context.Background(), tt.input)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}

	env.Approve(t, pending.ID)
	_, err := h.Execute(context.Background(), &Input{CaseID: pending.ID, Channels: []string{"fax"}})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestNewConfig(t *testing.T) {
	app := &config.Config{}
	app.Notifications.Email.Enabled = true
	app.Notifications.Email.FromEmail = "registry@gov.test"
	app.Notifications.SMS.Enabled = true
	app.Notifications.SMS.SenderID = "GOV"

	cfg := NewConfig(app)
	assert.True(t, cfg.EmailEnabled)
	assert.Equal(t, "registry@gov.test", cfg.FromEmail)
	assert.True(t, cfg.SMSEnabled)
	assert.Equal(t, "GOV", cfg.SenderID)
	assert.True(t, cfg.Enabled)
}
