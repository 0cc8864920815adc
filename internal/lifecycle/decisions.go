package lifecycle

import (
	"context"

	apperrors "docverify/internal/common/errors"
	"docverify/internal/issuance"
	"docverify/internal/models"
	"docverify/internal/store"
)

// Decision is an officer's final call on a case.
type Decision struct {
	CaseID          string
	Status          models.CaseStatus
	OfficerID       string
	Notes           string
	Feedback        string
	ExpectedVersion int64
}

type DecisionResult struct {
	Case   *models.Case
	Issued *models.IssuedDocument
}

// Forward hands a case from the local office to the central authority.
func (m *Manager) Forward(ctx context.Context, caseID, officerID, feedback string) (*models.Case, error) {
	return m.mutate(ctx, caseID, func(_ context.Context, _ store.Tx, c *models.Case) error {
		return m.forward(c, officerID, feedback)
	})
}

func (m *Manager) forward(c *models.Case, officerID, feedback string) error {
	if c.Stage == models.StageCentral {
		return apperrors.NewInvalidTransitionError(string(c.Stage), string(models.StageCentral))
	}
	if err := transition(c, models.StatusPendingIrembo); err != nil {
		return err
	}
	c.Stage = models.StageCentral
	if feedback != "" {
		c.LocalFeedback = feedback
	}
	if officerID != "" {
		c.OfficerID = officerID
	}
	return nil
}

// MarkUnderReview records that an officer picked the case up.
func (m *Manager) MarkUnderReview(ctx context.Context, caseID, officerID string) (*models.Case, error) {
	return m.mutate(ctx, caseID, func(_ context.Context, _ store.Tx, c *models.Case) error {
		if err := transition(c, models.StatusUnderReview); err != nil {
			return err
		}
		if officerID != "" {
			c.OfficerID = officerID
		}
		return nil
	})
}

// AddFeedback replaces the feedback shown to the citizen without touching status.
func (m *Manager) AddFeedback(ctx context.Context, caseID, feedback string) (*models.Case, error) {
	return m.mutate(ctx, caseID, func(_ context.Context, _ store.Tx, c *models.Case) error {
		c.Feedback = feedback
		return nil
	})
}

// Decide approves, sends or rejects a case. Approved and sent cases get an
// IssuedDocument in the same transaction; if that write fails the status
// change is rolled back with it.
func (m *Manager) Decide(ctx context.Context, d Decision) (*DecisionResult, error) {
	var issued *models.IssuedDocument
	c, err := m.mutate(ctx, d.CaseID, func(ctx context.Context, tx store.Tx, c *models.Case) error {
		if err := checkVersion(c, d.ExpectedVersion); err != nil {
			return err
		}
		doc, err := m.decide(ctx, tx, c, d)
		issued = doc
		return err
	})
	if err != nil {
		return nil, err
	}
	return &DecisionResult{Case: c, Issued: issued}, nil
}

func (m *Manager) decide(ctx context.Context, tx store.Tx, c *models.Case, d Decision) (*models.IssuedDocument, error) {
	switch d.Status {
	case models.StatusApproved, models.StatusSent, models.StatusRejected:
	default:
		return nil, apperrors.NewInvalidInputError("decision status must be approved, sent or rejected")
	}
	if err := transition(c, d.Status); err != nil {
		return nil, err
	}
	if d.OfficerID != "" {
		c.OfficerID = d.OfficerID
	}
	if d.Notes != "" {
		c.OfficerNotes = d.Notes
	}
	if d.Feedback != "" {
		c.Feedback = d.Feedback
	}
	if !d.Status.IsIssued() {
		return nil, nil
	}

	issuedID := NewIssuedID()
	doc := &models.IssuedDocument{
		ID:              issuedID,
		CaseID:          c.ID,
		OfficerID:       c.OfficerID,
		Notes:           d.Notes,
		Status:          string(d.Status),
		DownloadLocator: issuance.DownloadKey(c.ID, issuedID),
		VerificationID:  issuance.VerificationID(c.ID, c.DocumentType, c.Citizen.IDNumber),
		IssuedAt:        m.now(),
	}
	if err := tx.InsertIssuedDocument(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func checkVersion(c *models.Case, expected int64) error {
	if expected != 0 && expected != c.Version {
		return apperrors.NewConflictError(c.ID, expected)
	}
	return nil
}
