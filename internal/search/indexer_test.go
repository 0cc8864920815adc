package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docverify/internal/common/logger"
	"docverify/internal/models"
)

// fakeTransport answers every request with a canned response and records
// what was sent.
type fakeTransport struct {
	status   int
	body     string
	requests []*http.Request
	bodies   []string
}

func (f *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	f.requests = append(f.requests, req)
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		f.bodies = append(f.bodies, string(b))
	}
	h := http.Header{}
	h.Set("X-Elastic-Product", "Elasticsearch")
	h.Set("Content-Type", "application/json")
	return &http.Response{
		StatusCode: f.status,
		Header:     h,
		Body:       io.NopCloser(strings.NewReader(f.body)),
		Request:    req,
	}, nil
}

func newIndex(t *testing.T, ft *fakeTransport) *CaseIndex {
	t.Helper()
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{"http://es.test:9200"},
		Transport: ft,
	})
	require.NoError(t, err)
	return NewCaseIndex(client, "", logger.NewTestLogger(t))
}

var sampleCase = &models.Case{
	ID:           "APP-2026-A1B",
	Kind:         models.KindApplication,
	Citizen:      models.Citizen{FullName: "JOHN DOE", IDNumber: "ID-884-221"},
	DocumentType: "passport",
	Status:       models.StatusPending,
	Stage:        models.StageLocal,
	Priority:     models.PriorityUrgent,
	Verdict:      models.VerdictSuspicious,
	Confidence:   83,
	CreatedAt:    time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC),
	UpdatedAt:    time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC),
}

func TestIndexCase(t *testing.T) {
	ft := &fakeTransport{status: http.StatusCreated, body: `{"result":"created"}`}
	idx := newIndex(t, ft)

	require.NoError(t, idx.IndexCase(context.Background(), sampleCase))
	require.Len(t, ft.requests, 1)
	assert.Equal(t, http.MethodPut, ft.requests[0].Method)
	assert.Equal(t, "/cases/_doc/APP-2026-A1B", ft.requests[0].URL.Path)

	var doc CaseDocument
	require.NoError(t, json.Unmarshal([]byte(ft.bodies[0]), &doc))
	assert.Equal(t, "JOHN DOE", doc.CitizenName)
	assert.Equal(t, "urgent", doc.Priority)
	assert.Equal(t, "suspicious", doc.Verdict)
}

func TestIndexCase_ErrorResponse(t *testing.T) {
	ft := &fakeTransport{status: http.StatusServiceUnavailable, body: `{"error":"cluster_block_exception"}`}
	idx := newIndex(t, ft)

	err := idx.IndexCase(context.Background(), sampleCase)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "APP-2026-A1B")
}

func TestSearch(t *testing.T) {
	ft := &fakeTransport{status: http.StatusOK, body: `{
		"hits": {
			"total": {"value": 12},
			"hits": [
				{"_source": {"id": "APP-2026-A1B", "citizenName": "JOHN DOE", "status": "pending"}},
				{"_source": {"id": "APP-2026-C2D", "citizenName": "JOHN DOE", "status": "approved"}}
			]
		}
	}`}
	idx := newIndex(t, ft)

	res, err := idx.Search(context.Background(), Query{
		Text:   "john",
		Filter: models.CaseFilter{DocumentType: "passport"},
		Page:   models.Page{Number: 2, PerPage: 5},
	})
	require.NoError(t, err)
	assert.Equal(t, 12, res.Total)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "APP-2026-C2D", res.Items[1].ID)

	q := ft.requests[0].URL.Query()
	assert.Equal(t, "5", q.Get("from"))
	assert.Equal(t, "5", q.Get("size"))
	assert.Contains(t, ft.bodies[0], `"documentType.keyword":"passport"`)
	assert.Contains(t, ft.bodies[0], `"query":"john"`)
}

func TestBuildQuery_NoFilters(t *testing.T) {
	q := buildQuery(Query{})
	b := q["query"].(map[string]interface{})["bool"].(map[string]interface{})
	assert.Empty(t, b["must"])
	assert.Empty(t, b["filter"])
}
