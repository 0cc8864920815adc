package lifecycle

import (
	"context"

	apperrors "docverify/internal/common/errors"
	"docverify/internal/models"
	"docverify/internal/store"
)

// CaseUpdate is a partial update. Nil fields are left alone.
type CaseUpdate struct {
	Status          *models.CaseStatus `json:"status,omitempty"`
	Feedback        *string            `json:"feedback,omitempty"`
	Stage           *models.Stage      `json:"stage,omitempty"`
	OfficerID       *string            `json:"officerId,omitempty"`
	Notes           *string            `json:"notes,omitempty"`
	ExpectedVersion int64              `json:"expectedVersion,omitempty"`
}

func (u CaseUpdate) Empty() bool {
	return u.Status == nil && u.Feedback == nil && u.Stage == nil && u.OfficerID == nil && u.Notes == nil
}

type UpdateResult struct {
	Case   *models.Case
	Issued *models.IssuedDocument
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ApplyUpdate turns a partial update into Forward, Decide, MarkUnderReview
// or AddFeedback and applies the result atomically.
func (m *Manager) ApplyUpdate(ctx context.Context, caseID string, u CaseUpdate) (*UpdateResult, error) {
	if u.Empty() {
		return nil, apperrors.NewInvalidInputError("update carries no fields")
	}
	if u.Status != nil && !u.Status.Valid() {
		return nil, apperrors.NewInvalidInputError("unknown status " + string(*u.Status))
	}
	if u.Stage != nil && *u.Stage != models.StageLocal && *u.Stage != models.StageCentral {
		return nil, apperrors.NewInvalidInputError("unknown stage " + string(*u.Stage))
	}

	var issued *models.IssuedDocument
	c, err := m.mutate(ctx, caseID, func(ctx context.Context, tx store.Tx, c *models.Case) error {
		if err := checkVersion(c, u.ExpectedVersion); err != nil {
			return err
		}
		doc, err := m.applyUpdate(ctx, tx, c, u)
		issued = doc
		return err
	})
	if err != nil {
		return nil, err
	}
	return &UpdateResult{Case: c, Issued: issued}, nil
}

func (m *Manager) applyUpdate(ctx context.Context, tx store.Tx, c *models.Case, u CaseUpdate) (*models.IssuedDocument, error) {
	officer := deref(u.OfficerID)
	feedbackUsed := false

	// A case already at the central stage moves between its statuses directly.
	toCentral := false
	if c.Stage != models.StageCentral {
		toCentral = u.Stage != nil && *u.Stage == models.StageCentral
		if u.Status != nil && *u.Status == models.StatusPendingIrembo && c.Status != models.StatusPendingIrembo {
			toCentral = true
		}
	}
	if u.Stage != nil && *u.Stage == models.StageLocal && c.Stage == models.StageCentral {
		return nil, apperrors.NewInvalidTransitionError(string(models.StageCentral), string(models.StageLocal))
	}

	var issued *models.IssuedDocument
	switch {
	case toCentral:
		if err := m.forward(c, officer, deref(u.Feedback)); err != nil {
			return nil, err
		}
		feedbackUsed = true
		if u.Status != nil && *u.Status != models.StatusPendingIrembo {
			doc, err := m.applyStatus(ctx, tx, c, *u.Status, officer, deref(u.Notes))
			if err != nil {
				return nil, err
			}
			issued = doc
		}
	case u.Status != nil && *u.Status != c.Status:
		doc, err := m.applyStatus(ctx, tx, c, *u.Status, officer, deref(u.Notes))
		if err != nil {
			return nil, err
		}
		issued = doc
	}

	if u.Feedback != nil && !feedbackUsed {
		c.Feedback = *u.Feedback
	}
	if officer != "" {
		c.OfficerID = officer
	}
	if u.Notes != nil {
		c.OfficerNotes = *u.Notes
	}
	return issued, nil
}

func (m *Manager) applyStatus(ctx context.Context, tx store.Tx, c *models.Case, to models.CaseStatus, officer, notes string) (*models.IssuedDocument, error) {
	switch to {
	case models.StatusApproved, models.StatusSent, models.StatusRejected:
		return m.decide(ctx, tx, c, Decision{CaseID: c.ID, Status: to, OfficerID: officer, Notes: notes})
	case models.StatusUnderReview, models.StatusPendingIrembo:
		return nil, transition(c, to)
	default:
		return nil, apperrors.NewInvalidTransitionError(string(c.Status), string(to))
	}
}
