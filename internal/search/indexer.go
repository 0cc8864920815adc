// Package search mirrors cases into Elasticsearch for officer-side lookups.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"docverify/internal/common/logger"
	"docverify/internal/models"
)

const DefaultIndex = "cases"

// CaseDocument is the indexed projection of a case. Images and verdict
// records stay in the primary store.
type CaseDocument struct {
	ID            string    `json:"id"`
	Kind          string    `json:"kind"`
	CitizenName   string    `json:"citizenName"`
	CitizenID     string    `json:"citizenId"`
	DocumentType  string    `json:"documentType"`
	Description   string    `json:"description,omitempty"`
	Status        string    `json:"status"`
	Stage         string    `json:"stage"`
	Priority      string    `json:"priority"`
	Verdict       string    `json:"verdict,omitempty"`
	Confidence    float64   `json:"confidence"`
	RegistryMatch bool      `json:"registryMatch"`
	OfficerID     string    `json:"officerId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func NewCaseDocument(c *models.Case) CaseDocument {
	return CaseDocument{
		ID:            c.ID,
		Kind:          string(c.Kind),
		CitizenName:   c.Citizen.FullName,
		CitizenID:     c.Citizen.IDNumber,
		DocumentType:  c.DocumentType,
		Description:   c.Description,
		Status:        string(c.Status),
		Stage:         string(c.Stage),
		Priority:      string(c.Priority),
		Verdict:       string(c.Verdict),
		Confidence:    c.Confidence,
		RegistryMatch: c.RegistryMatch,
		OfficerID:     c.OfficerID,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

type CaseIndex struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewCaseIndex(client *elasticsearch.Client, index string, log logger.Logger) *CaseIndex {
	if index == "" {
		index = DefaultIndex
	}
	return &CaseIndex{client: client, index: index, logger: log}
}

// IndexCase upserts the case document under its id.
func (x *CaseIndex) IndexCase(ctx context.Context, c *models.Case) error {
	body, err := json.Marshal(NewCaseDocument(c))
	if err != nil {
		return fmt.Errorf("marshal case document: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      x.index,
		DocumentID: c.ID,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, x.client)
	if err != nil {
		return fmt.Errorf("index case %s: %w", c.ID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index case %s failed: %s", c.ID, res.String())
	}
	x.logger.Debug("case indexed", map[string]interface{}{"caseId": c.ID, "index": x.index})
	return nil
}

// Query is a free-text search narrowed by the usual case filters.
type Query struct {
	Text   string
	Filter models.CaseFilter
	Page   models.Page
}

type SearchResult struct {
	Items []CaseDocument `json:"items"`
	Total int            `json:"total"`
}

func (x *CaseIndex) Search(ctx context.Context, q Query) (*SearchResult, error) {
	page := q.Page.Normalize()
	from, size := page.Offset(), page.PerPage

	body, _ := json.Marshal(buildQuery(q))
	req := esapi.SearchRequest{
		Index: []string{x.index},
		Body:  strings.NewReader(string(body)),
		From:  &from,
		Size:  &size,
	}
	res, err := req.Do(ctx, x.client)
	if err != nil {
		return nil, fmt.Errorf("search cases: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search failed: %s", res.String())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source CaseDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := &SearchResult{Items: make([]CaseDocument, 0, len(r.Hits.Hits)), Total: r.Hits.Total.Value}
	for _, h := range r.Hits.Hits {
		out.Items = append(out.Items, h.Source)
	}
	return out, nil
}

func buildQuery(q Query) map[string]interface{} {
	must := []interface{}{}
	filter := []interface{}{}

	if text := strings.TrimSpace(q.Text); text != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  text,
				"fields": []string{"citizenName^3", "id^2", "citizenId^2", "description"},
				"type":   "best_fields",
			},
		})
	}

	terms := map[string]string{
		"kind":         string(q.Filter.Kind),
		"citizenId":    q.Filter.CitizenID,
		"documentType": q.Filter.DocumentType,
		"status":       string(q.Filter.Status),
	}
	for field, value := range terms {
		if value == "" {
			continue
		}
		filter = append(filter, map[string]interface{}{
			"term": map[string]interface{}{field + ".keyword": value},
		})
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"must": must, "filter": filter},
		},
		"sort": []interface{}{
			map[string]interface{}{"createdAt": map[string]string{"order": "desc"}},
		},
	}
}

// CaseMapping is the index body used when the case index is first created.
// String fields carry a .keyword sub-field for exact filters.
const CaseMapping = `{
  "mappings": {
    "properties": {
      "id":            {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
      "kind":          {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
      "citizenName":   {"type": "text"},
      "citizenId":     {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
      "documentType":  {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
      "description":   {"type": "text"},
      "status":        {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
      "stage":         {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
      "priority":      {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
      "verdict":       {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
      "confidence":    {"type": "float"},
      "registryMatch": {"type": "boolean"},
      "officerId":     {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
      "createdAt":     {"type": "date"},
      "updatedAt":     {"type": "date"}
    }
  }
}`
