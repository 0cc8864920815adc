package lifecycle

import (
	"context"

	"docverify/internal/models"
)

type CaseList struct {
	Items   []CaseView `json:"items"`
	Total   int        `json:"total"`
	Page    int        `json:"page"`
	PerPage int        `json:"perPage"`
}

func (m *Manager) GetCase(ctx context.Context, caseID string) (*CaseView, error) {
	c, err := m.store.GetCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	pos, err := m.QueuePosition(ctx, c)
	if err != nil {
		return nil, err
	}
	return &CaseView{Case: c, QueuePosition: pos}, nil
}

func (m *Manager) ListCases(ctx context.Context, filter models.CaseFilter, page models.Page) (*CaseList, error) {
	page = page.Normalize()
	cases, total, err := m.store.ListCases(ctx, filter, page)
	if err != nil {
		return nil, err
	}
	out := &CaseList{Items: make([]CaseView, 0, len(cases)), Total: total, Page: page.Number, PerPage: page.PerPage}
	for _, c := range cases {
		pos, err := m.QueuePosition(ctx, c)
		if err != nil {
			return nil, err
		}
		out.Items = append(out.Items, CaseView{Case: c, QueuePosition: pos})
	}
	return out, nil
}

// QueuePosition is 1 + the number of pending cases of the same document type
// created earlier. Cases that are not pending have no position. It is
// computed on read and never stored.
func (m *Manager) QueuePosition(ctx context.Context, c *models.Case) (int, error) {
	if c.Status != models.StatusPending {
		return 0, nil
	}
	ahead, err := m.store.CountAhead(ctx, c.DocumentType, c.CreatedAt)
	if err != nil {
		return 0, err
	}
	return ahead + 1, nil
}

func (m *Manager) GetIssuedDocument(ctx context.Context, caseID string) (*models.IssuedDocument, error) {
	return m.store.GetIssuedDocument(ctx, caseID)
}
