package lifecycle

import (
	"context"
	"path"
	"strings"

	apperrors "docverify/internal/common/errors"
	"docverify/internal/decision"
	"docverify/internal/decision/identity"
	"docverify/internal/decision/scoring"
	"docverify/internal/models"
	"docverify/internal/registry"
	"docverify/internal/store"
)

const (
	IssueLowConfidence = "Low confidence score - manual review recommended"
	IssueLowQuality    = "Image quality could be improved"

	lowConfidenceBelow = 85.0
	lowQualityBelow    = 75.0
)

// Upload is one document file as received.
type Upload struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"-"`
}

type Submission struct {
	Citizen      models.Citizen
	DocumentType string
	Description  string
	Documents    []Upload
}

type SubmitResult struct {
	Case    *models.Case
	Records []models.VerdictRecord
}

type evaluated struct {
	upload Upload
	desc   models.DocumentDescriptor
	record models.VerdictRecord
}

// Submit evaluates every document and creates a pending Case. A document
// that cannot be decoded rejects the whole submission and nothing is stored.
func (m *Manager) Submit(ctx context.Context, sub Submission) (*SubmitResult, error) {
	if err := m.validateSubmission(sub); err != nil {
		return nil, err
	}

	now := m.now()
	caseID := m.caseID(models.KindApplication, now)
	declared := identity.Declared{FullName: sub.Citizen.FullName, IDNumber: sub.Citizen.IDNumber}

	docs := make([]evaluated, 0, len(sub.Documents))
	for _, up := range sub.Documents {
		ev, err := m.evaluate(ctx, caseID, up, declared)
		if err != nil {
			return nil, err
		}
		docs = append(docs, ev)
	}

	c := &models.Case{
		ID:           caseID,
		Kind:         models.KindApplication,
		Citizen:      sub.Citizen,
		DocumentType: sub.DocumentType,
		Description:  sub.Description,
		Status:       models.StatusPending,
		Stage:        models.StageLocal,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	records := make([]models.VerdictRecord, 0, len(docs))
	for _, d := range docs {
		c.Documents = append(c.Documents, d.desc)
		records = append(records, d.record)
	}
	c.Verdicts = records

	c.Verdict = AggregateVerdict(records)
	avg := AverageConfidence(records)
	c.Confidence = avg

	match := m.registry.Match(ctx, sub.Citizen.IDNumber, sub.DocumentType)
	c.RegistryMatch = match.Matched
	if match.Matched && c.Verdict == models.VerdictAuthentic {
		c.Confidence = decision.ApplyRegistryBoost(avg)
		c.RegistryBoosted = true
	}
	c.Feedback = registry.Feedback(match.Matched, c.Verdict, avg)
	c.Priority = models.PriorityNormal
	if c.Verdict != models.VerdictAuthentic {
		c.Priority = models.PriorityUrgent
	}

	var uploaded []string
	err := m.insertWithFreshID(c, func() error {
		keys, err := m.retain(ctx, docs)
		uploaded = keys
		if err != nil {
			return err
		}
		return m.store.WithinTx(ctx, func(tx store.Tx) error {
			return tx.InsertCase(ctx, c)
		})
	}, func(id string) {
		m.discard(ctx, uploaded)
		relabel(c, docs, id)
	})
	if err != nil {
		m.discard(ctx, uploaded)
		return nil, err
	}

	m.recordTransition(c, "")
	m.index(ctx, c)
	return &SubmitResult{Case: c, Records: records}, nil
}

func (m *Manager) validateSubmission(sub Submission) error {
	if len(sub.Documents) == 0 {
		return apperrors.NewInvalidInputError("at least one document is required")
	}
	if strings.TrimSpace(sub.DocumentType) == "" {
		return apperrors.NewInvalidInputError("document type is required")
	}
	if strings.TrimSpace(sub.Citizen.FullName) == "" {
		return apperrors.NewInvalidInputError("citizen name is required")
	}
	for _, up := range sub.Documents {
		if int64(len(up.Data)) > m.maxFileSize {
			return apperrors.NewFileTooLargeError(int64(len(up.Data)), m.maxFileSize)
		}
	}
	return nil
}

func (m *Manager) evaluate(ctx context.Context, caseID string, up Upload, declared identity.Declared) (evaluated, error) {
	docID := NewDocumentID()
	record, err := m.evaluator.Evaluate(ctx, decision.Input{
		Image:      up.Data,
		Declared:   declared,
		CaseID:     caseID,
		DocumentID: docID,
	})
	if err != nil {
		return evaluated{}, err
	}

	contentType := up.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	desc := models.DocumentDescriptor{
		ID:           docID,
		Filename:     up.Filename,
		ContentType:  contentType,
		Size:         int64(len(up.Data)),
		StorageKey:   storageKey(caseID, docID, up.Filename),
		Verdict:      record.Verdict,
		Confidence:   record.PercentConfidence,
		QualityScore: record.QualityScore,
		AIProcessed:  record.AIProcessed,
		Issues:       DocumentIssues(record),
		UploadedAt:   record.ProducedAt,
	}
	up.ContentType = contentType
	return evaluated{upload: up, desc: desc, record: record}, nil
}

func storageKey(caseID, docID, filename string) string {
	return caseID + "/" + docID + strings.ToLower(path.Ext(filename))
}

// relabel moves a not yet stored case and its documents to a new id.
func relabel(c *models.Case, docs []evaluated, id string) {
	c.ID = id
	for i := range docs {
		key := storageKey(id, docs[i].desc.ID, docs[i].upload.Filename)
		docs[i].desc.StorageKey = key
		docs[i].record.CaseID = id
		c.Documents[i].StorageKey = key
		c.Verdicts[i].CaseID = id
	}
}

func (m *Manager) retain(ctx context.Context, docs []evaluated) ([]string, error) {
	var keys []string
	for _, d := range docs {
		if err := m.blobs.Put(ctx, m.bucket, d.desc.StorageKey, d.upload.Data, d.upload.ContentType); err != nil {
			return keys, err
		}
		keys = append(keys, d.desc.StorageKey)
	}
	return keys, nil
}

func (m *Manager) discard(ctx context.Context, keys []string) {
	for _, k := range keys {
		if err := m.blobs.Delete(ctx, m.bucket, k); err != nil {
			m.logger.Warn("failed to remove retained upload", map[string]interface{}{"key": k, "error": err.Error()})
		}
	}
}

// AggregateVerdict is authentic only when every document is; otherwise the
// most severe document verdict wins.
func AggregateVerdict(records []models.VerdictRecord) models.Verdict {
	out := models.VerdictAuthentic
	for _, r := range records {
		if r.Verdict.Severity() > out.Severity() {
			out = r.Verdict
		}
	}
	return out
}

// AverageConfidence averages percent confidence to two decimals.
func AverageConfidence(records []models.VerdictRecord) float64 {
	if len(records) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range records {
		sum += r.PercentConfidence
	}
	return scoring.Round2(sum / float64(len(records)))
}

func DocumentIssues(r models.VerdictRecord) []string {
	issues := []string{}
	if r.PercentConfidence < lowConfidenceBelow {
		issues = append(issues, IssueLowConfidence)
	}
	if r.QualityScore < lowQualityBelow {
		issues = append(issues, IssueLowQuality)
	}
	return issues
}
