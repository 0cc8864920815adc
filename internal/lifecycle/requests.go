package lifecycle

import (
	"context"
	"strings"

	apperrors "docverify/internal/common/errors"
	"docverify/internal/models"
	"docverify/internal/store"
)

const defaultRequestReason = "No reason specified"

type DocumentRequest struct {
	Citizen      models.Citizen
	DocumentType string
	Reason       string
}

// CreateDocumentRequest opens a request for an already issued document. A
// registry record lets it skip ahead to review.
func (m *Manager) CreateDocumentRequest(ctx context.Context, req DocumentRequest) (*models.Case, error) {
	if strings.TrimSpace(req.DocumentType) == "" {
		return nil, apperrors.NewInvalidInputError("document type is required")
	}
	if strings.TrimSpace(req.Citizen.IDNumber) == "" {
		return nil, apperrors.NewInvalidInputError("citizen id is required")
	}

	match := m.registry.Match(ctx, req.Citizen.IDNumber, req.DocumentType)
	status := models.StatusPending
	if match.Matched {
		status = models.StatusReview
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = defaultRequestReason
	}

	now := m.now()
	c := &models.Case{
		ID:            m.caseID(models.KindDocumentRequest, now),
		Kind:          models.KindDocumentRequest,
		Citizen:       req.Citizen,
		DocumentType:  req.DocumentType,
		Description:   reason,
		Status:        status,
		Stage:         models.StageLocal,
		Priority:      models.PriorityNormal,
		RegistryMatch: match.Matched,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err := m.insertWithFreshID(c, func() error {
		return m.store.WithinTx(ctx, func(tx store.Tx) error {
			return tx.InsertCase(ctx, c)
		})
	}, func(id string) { c.ID = id })
	if err != nil {
		return nil, err
	}

	m.logger.Info("document request created", map[string]interface{}{
		"caseId":        c.ID,
		"documentType":  c.DocumentType,
		"registryMatch": match.Matched,
		"lookupFailed":  match.LookupFailed,
		"status":        c.Status,
	})
	m.recordTransition(c, "")
	m.index(ctx, c)
	return c, nil
}
