package listcases

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "docverify/internal/common/errors"
	"docverify/internal/lifecycle"
	"docverify/internal/lifecycle/lifecycletest"
	"docverify/internal/models"
	"docverify/internal/search"
)

// ==========================
// Mock Searcher
// ==========================

type MockSearcher struct {
	mock.Mock
}

func (m *MockSearcher) Search(ctx context.Context, q search.Query) (*search.SearchResult, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*search.SearchResult), args.Error(1)
}

func newTestHandler(t *testing.T, searcher Searcher) (*Handler, *lifecycletest.Env) {
	t.Helper()
	env := lifecycletest.New(t)
	h, err := NewHandler(HandlerOptions{Manager: env.Manager, Searcher: searcher, Logger: env.Logger})
	require.NoError(t, err)
	return h, env
}

// ==========================
// Execute
// ==========================

func TestHandler_Execute_GetByID(t *testing.T) {
	h, env := newTestHandler(t, nil)
	env.Submit(t, "passport", lifecycletest.Authentic)
	c := env.Submit(t, "passport", lifecycletest.Suspicious)

	out, err := h.Execute(context.Background(), &Input{CaseID: c.ID})
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, c.ID, out.Items[0].ID)
	assert.Equal(t, 2, out.Items[0].QueuePosition)
	assert.Equal(t, string(models.PriorityUrgent), out.Items[0].Priority)
	require.NotNil(t, out.Items[0].LatestVerdict)
	assert.Equal(t, string(models.VerdictSuspicious), out.Items[0].LatestVerdict["verdict"])
	assert.Equal(t, c.ID, out.Items[0].LatestVerdict["caseId"])
	assert.Equal(t, SourceStore, out.Source)

	_, err = h.Execute(context.Background(), &Input{CaseID: "APP-2026-FFF"})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestHandler_Execute_List(t *testing.T) {
	h, env := newTestHandler(t, nil)
	env.Submit(t, "passport", lifecycletest.Authentic)
	env.Submit(t, "passport", lifecycletest.Fraudulent)
	birth := env.Submit(t, "birth_certificate", lifecycletest.Authentic)
	rejected := env.Submit(t, "passport", lifecycletest.Suspicious)
	_, err := env.Manager.ApplyUpdate(context.Background(), rejected.ID, updateStatus(models.StatusRejected))
	require.NoError(t, err)

	tests := []struct {
		name      string
		input     *Input
		wantTotal int
		wantItems int
	}{
		{name: "everything", input: &Input{}, wantTotal: 4, wantItems: 4},
		{name: "by document type", input: &Input{DocumentType: "passport"}, wantTotal: 3, wantItems: 3},
		{name: "by status", input: &Input{Status: "rejected"}, wantTotal: 1, wantItems: 1},
		{name: "by kind", input: &Input{Kind: "document_request"}, wantTotal: 0, wantItems: 0},
		{name: "second page", input: &Input{Page: 2, PerPage: 3}, wantTotal: 4, wantItems: 1},
		{name: "query without index falls back to store", input: &Input{Query: "Jane"}, wantTotal: 4, wantItems: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := h.Execute(context.Background(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTotal, out.Total)
			assert.Len(t, out.Items, tt.wantItems)
			assert.Equal(t, SourceStore, out.Source)
		})
	}

	out, err := h.Execute(context.Background(), &Input{DocumentType: "birth_certificate"})
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, birth.ID, out.Items[0].ID)
	assert.Equal(t, 1, out.Items[0].QueuePosition)
	assert.Equal(t, 10, out.PerPage)

	out, err = h.Execute(context.Background(), &Input{Status: "rejected"})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Items[0].QueuePosition)
}

func TestHandler_Execute_InvalidFilter(t *testing.T) {
	h, _ := newTestHandler(t, nil)
	for _, in := range []*Input{{Kind: "complaint"}, {Status: "archived"}} {
		_, err := h.Execute(context.Background(), in)
		assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	}
}

func TestHandler_Execute_Search(t *testing.T) {
	searcher := new(MockSearcher)
	h, env := newTestHandler(t, searcher)
	c := env.Submit(t, "passport", lifecycletest.Authentic)

	searcher.On("Search", mock.Anything, mock.MatchedBy(func(q search.Query) bool {
		return q.Text == "mukamana" && q.Filter.DocumentType == "passport" && q.Page.PerPage == 10
	})).Return(&search.SearchResult{
		Items: []search.CaseDocument{{ID: c.ID}, {ID: "APP-2026-GONE"}},
		Total: 2,
	}, nil)

	out, err := h.Execute(context.Background(), &Input{Query: "mukamana", DocumentType: "passport"})
	require.NoError(t, err)
	assert.Equal(t, SourceSearch, out.Source)
	assert.Equal(t, 2, out.Total)
	require.Len(t, out.Items, 1)
	assert.Equal(t, c.ID, out.Items[0].ID)
	assert.Equal(t, lifecycletest.Citizen.FullName, out.Items[0].CitizenName)
	searcher.AssertExpectations(t)
}

func TestHandler_Execute_SearchFailure(t *testing.T) {
	searcher := new(MockSearcher)
	h, _ := newTestHandler(t, searcher)
	searcher.On("Search", mock.Anything, mock.Anything).Return(nil, apperrors.NewDatabaseError("search", errors.New("cluster red")))

	_, err := h.Execute(context.Background(), &Input{Query: "x"})
	assert.True(t, errors.Is(err, apperrors.ErrDatabase))
}

func updateStatus(s models.CaseStatus) lifecycle.CaseUpdate {
	return lifecycle.CaseUpdate{Status: &s}
}
