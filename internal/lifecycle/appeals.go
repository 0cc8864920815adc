package lifecycle

import (
	"context"
	"strings"

	apperrors "docverify/internal/common/errors"
	"docverify/internal/decision/identity"
	"docverify/internal/models"
	"docverify/internal/store"
)

type AppealRequest struct {
	CaseID    string
	CitizenID string
	Reason    string
	// Document is an optional replacement image. It is evaluated and its
	// record appended to the case.
	Document *Upload
}

type AppealResult struct {
	Appeal *models.Appeal
	Record *models.VerdictRecord
}

type AppealList struct {
	Items   []*models.Appeal `json:"items"`
	Total   int              `json:"total"`
	Page    int              `json:"page"`
	PerPage int              `json:"perPage"`
}

// FileAppeal disputes a decision. The case status is not touched.
func (m *Manager) FileAppeal(ctx context.Context, req AppealRequest) (*AppealResult, error) {
	if strings.TrimSpace(req.Reason) == "" {
		return nil, apperrors.NewInvalidInputError("appeal reason is required")
	}
	if req.Document != nil && int64(len(req.Document.Data)) > m.maxFileSize {
		return nil, apperrors.NewFileTooLargeError(int64(len(req.Document.Data)), m.maxFileSize)
	}

	c, err := m.store.GetCase(ctx, req.CaseID)
	if err != nil {
		return nil, err
	}

	citizenID := req.CitizenID
	if citizenID == "" {
		citizenID = c.Citizen.IDNumber
	}
	now := m.now()
	appeal := &models.Appeal{
		ID:        NewAppealID(),
		CaseID:    c.ID,
		CitizenID: citizenID,
		Reason:    req.Reason,
		Status:    models.AppealPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if req.Document == nil {
		if err := m.store.WithinTx(ctx, func(tx store.Tx) error {
			return tx.InsertAppeal(ctx, appeal)
		}); err != nil {
			return nil, err
		}
		m.logAppeal(appeal)
		return &AppealResult{Appeal: appeal}, nil
	}

	declared := identity.Declared{FullName: c.Citizen.FullName, IDNumber: c.Citizen.IDNumber}
	ev, err := m.evaluate(ctx, c.ID, *req.Document, declared)
	if err != nil {
		return nil, err
	}
	appeal.ReevaluationVerdict = string(ev.record.Verdict)

	keys, err := m.retain(ctx, []evaluated{ev})
	if err != nil {
		m.discard(ctx, keys)
		return nil, err
	}

	updated, err := m.mutate(ctx, c.ID, func(ctx context.Context, tx store.Tx, c *models.Case) error {
		c.Documents = append(c.Documents, ev.desc)
		c.Verdicts = append(c.Verdicts, ev.record)
		return tx.InsertAppeal(ctx, appeal)
	})
	if err != nil {
		m.discard(ctx, keys)
		return nil, err
	}

	m.logAppeal(appeal)
	record := updated.Verdicts[len(updated.Verdicts)-1]
	return &AppealResult{Appeal: appeal, Record: &record}, nil
}

func (m *Manager) logAppeal(a *models.Appeal) {
	m.logger.Info("appeal filed", map[string]interface{}{
		"appealId":     a.ID,
		"caseId":       a.CaseID,
		"reevaluation": a.ReevaluationVerdict,
	})
}

// ResolveAppeal approves or rejects a pending appeal. Propagating the outcome
// to the case is left to the caller.
func (m *Manager) ResolveAppeal(ctx context.Context, appealID string, status models.AppealStatus, reviewer, notes string) (*models.Appeal, error) {
	if status != models.AppealApproved && status != models.AppealRejected {
		return nil, apperrors.NewInvalidInputError("appeal resolution must be approved or rejected")
	}

	var out *models.Appeal
	err := m.store.WithinTx(ctx, func(tx store.Tx) error {
		a, err := tx.GetAppeal(ctx, appealID)
		if err != nil {
			return err
		}
		if a.Status != models.AppealPending {
			return apperrors.NewInvalidTransitionError(string(a.Status), string(status))
		}
		a.Status = status
		a.Notes = notes
		a.ReviewedBy = reviewer
		a.UpdatedAt = m.now()
		if err := tx.UpdateAppeal(ctx, a); err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.logger.Info("appeal resolved", map[string]interface{}{"appealId": appealID, "status": status, "reviewedBy": reviewer})
	return out, nil
}

func (m *Manager) DeleteAppeal(ctx context.Context, appealID string) error {
	return m.store.WithinTx(ctx, func(tx store.Tx) error {
		return tx.DeleteAppeal(ctx, appealID)
	})
}

func (m *Manager) GetAppeal(ctx context.Context, appealID string) (*models.Appeal, error) {
	return m.store.GetAppeal(ctx, appealID)
}

func (m *Manager) ListAppeals(ctx context.Context, filter models.AppealFilter, page models.Page) (*AppealList, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperrors.NewInvalidInputError("unknown appeal status " + string(filter.Status))
	}
	page = page.Normalize()
	items, total, err := m.store.ListAppeals(ctx, filter, page)
	if err != nil {
		return nil, err
	}
	return &AppealList{Items: items, Total: total, Page: page.Number, PerPage: page.PerPage}, nil
}

func (m *Manager) AppealStatistics(ctx context.Context) (*models.AppealStatistics, error) {
	counts, err := m.store.CountAppealsByStatus(ctx)
	if err != nil {
		return nil, err
	}
	stats := &models.AppealStatistics{ByStatus: map[models.AppealStatus]int{
		models.AppealPending:  0,
		models.AppealApproved: 0,
		models.AppealRejected: 0,
	}}
	for status, n := range counts {
		stats.ByStatus[status] += n
		stats.Total += n
	}
	return stats, nil
}
