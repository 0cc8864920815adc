package resolveappeal

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "docverify/internal/common/errors"
	"docverify/internal/lifecycle"
	"docverify/internal/lifecycle/lifecycletest"
	"docverify/internal/models"
)

func setup(t *testing.T) (*Handler, *lifecycletest.Env, *models.Appeal) {
	t.Helper()
	env := lifecycletest.New(t)
	h, err := NewHandler(HandlerOptions{Manager: env.Manager, Logger: env.Logger})
	require.NoError(t, err)

	c := env.Submit(t, "passport", lifecycletest.Fraudulent)
	_, err = env.Manager.Decide(context.Background(), lifecycle.Decision{CaseID: c.ID, Status: models.StatusRejected})
	require.NoError(t, err)
	res, err := env.Manager.FileAppeal(context.Background(), lifecycle.AppealRequest{CaseID: c.ID, Reason: "wrong call"})
	require.NoError(t, err)
	return h, env, res.Appeal
}

func TestHandler_Execute(t *testing.T) {
	tests := []struct {
		action     string
		wantStatus models.AppealStatus
	}{
		{action: ActionApprove, wantStatus: models.AppealApproved},
		{action: ActionReject, wantStatus: models.AppealRejected},
	}

	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			h, env, appeal := setup(t)

			out, err := h.Execute(context.Background(), &Input{AppealID: appeal.ID, Action: tt.action, ReviewedBy: "OFF-2", Notes: "checked"})
			require.NoError(t, err)
			assert.Equal(t, string(tt.wantStatus), out.Status)
			assert.Equal(t, appeal.CaseID, out.CaseID)
			assert.Equal(t, "OFF-2", out.ReviewedBy)
			assert.False(t, out.Deleted)

			view, err := env.Manager.GetCase(context.Background(), appeal.CaseID)
			require.NoError(t, err)
			assert.Equal(t, models.StatusRejected, view.Status)

			_, err = h.Execute(context.Background(), &Input{AppealID: appeal.ID, Action: ActionApprove})
			assert.True(t, errors.Is(err, apperrors.ErrInvalidTransition))
		})
	}
}

func TestHandler_Execute_Delete(t *testing.T) {
	h, env, appeal := setup(t)

	out, err := h.Execute(context.Background(), &Input{AppealID: appeal.ID, Action: ActionDelete})
	require.NoError(t, err)
	assert.True(t, out.Deleted)

	_, err = env.Manager.GetAppeal(context.Background(), appeal.ID)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	_, err = h.Execute(context.Background(), &Input{AppealID: appeal.ID, Action: ActionDelete})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestHandler_Execute_Invalid(t *testing.T) {
	h, _, appeal := setup(t)

	tests := []struct {
		name    string
		input   *Input
		wantErr error
	}{
		{name: "missing id", input: &Input{Action: ActionApprove}, wantErr: apperrors.ErrInvalidInput},
		{name: "unknown action", input: &Input{AppealID: appeal.ID, Action: "escalate"}, wantErr: apperrors.ErrInvalidInput},
		{name: "unknown appeal", input: &Input{AppealID: "APPEAL-FFFFFFFF", Action: ActionReject}, wantErr: apperrors.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Execute(context.Background(), tt.input)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}
