// Package lifecycletest builds a Manager over in-memory stores for handler
// tests. Document images are plain strings naming the verdict they produce.
package lifecycletest

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"docverify/internal/common/config"
	apperrors "docverify/internal/common/errors"
	"docverify/internal/common/logger"
	"docverify/internal/common/payload"
	"docverify/internal/common/storage/storagetest"
	"docverify/internal/decision"
	"docverify/internal/issuance"
	"docverify/internal/lifecycle"
	"docverify/internal/models"
	"docverify/internal/registry"
	"docverify/internal/store"
	"docverify/internal/store/memory"
)

// Image names understood by Evaluator.
const (
	Authentic  = "authentic-90"
	Fraudulent = "fraudulent-60"
	Suspicious = "suspicious-83"
)

var Start = time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)

// Evaluator returns canned records keyed by image content. Unknown content
// fails to decode.
type Evaluator struct {
	mu      sync.Mutex
	Records map[string]models.VerdictRecord
	Calls   int
}

func NewEvaluator() *Evaluator {
	return &Evaluator{Records: map[string]models.VerdictRecord{
		Authentic:  Record(models.VerdictAuthentic, 90, 88),
		Fraudulent: Record(models.VerdictFraudulent, 60, 80),
		Suspicious: Record(models.VerdictSuspicious, 83, 85),
	}}
}

func (e *Evaluator) Evaluate(_ context.Context, in decision.Input) (models.VerdictRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Calls++
	rec, ok := e.Records[string(in.Image)]
	if !ok {
		return models.VerdictRecord{}, apperrors.NewDecodeError(errors.New("image: unknown format"))
	}
	rec.CaseID = in.CaseID
	rec.DocumentID = in.DocumentID
	return rec, nil
}

func Record(v models.Verdict, percent, quality float64) models.VerdictRecord {
	return models.VerdictRecord{
		ID:                "VER-TEST",
		RawConfidence:     percent / 100,
		PercentConfidence: percent,
		Verdict:           v,
		QualityScore:      quality,
		AIProcessed:       true,
		IdentityMatch:     models.IdentityMatch{Score: 100, IsMatch: true},
		ProducedAt:        Start.Add(time.Hour),
	}
}

type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// Now advances one second per call.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type Env struct {
	Manager   *lifecycle.Manager
	Store     *memory.Store
	Blobs     *storagetest.Store
	Evaluator *Evaluator
	Matcher   *registry.Matcher
	Logger    logger.Logger
	Clock     *Clock
}

func New(t *testing.T) *Env {
	t.Helper()
	st := memory.New()
	blobs := storagetest.New()
	log := logger.NewTestLogger(t)
	eval := NewEvaluator()
	matcher := registry.NewMatcher(st, nil, 0, log)
	clk := &Clock{now: Start}
	m := lifecycle.NewManager(lifecycle.Deps{
		Store:           st,
		Blobs:           blobs,
		Evaluator:       eval,
		Registry:        matcher,
		DocumentsBucket: "documents",
		Logger:          log,
		Now:             clk.Now,
	})
	return &Env{Manager: m, Store: st, Blobs: blobs, Evaluator: eval, Matcher: matcher, Logger: log, Clock: clk}
}

// Resolver builds a download resolver over the same stores.
func (e *Env) Resolver() *issuance.Resolver {
	return issuance.NewResolver(e.Store, e.Blobs, issuance.Buckets{}, issuance.NewCertificateRenderer(config.CertificateConfig{Width: 600, Height: 400, FontSize: 20}), e.Logger)
}

// Payload builds a payload source over the documents bucket.
func (e *Env) Payload() *payload.Source {
	return payload.NewSource(e.Blobs, "documents")
}

func (e *Env) SeedRegistry(t *testing.T, citizenID, documentType string) *models.RegistryRecord {
	t.Helper()
	rec := &models.RegistryRecord{
		ID:           "REG-" + citizenID,
		CitizenID:    citizenID,
		DocumentType: documentType,
		IssuedDate:   time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, e.Store.WithinTx(context.Background(), func(tx store.Tx) error {
		return tx.UpsertRecord(context.Background(), rec)
	}))
	return rec
}

// Citizen is the declared identity used by Submit.
var Citizen = models.Citizen{
	FullName: "Jane Mukamana",
	IDNumber: "1199080012345678",
	Email:    "jane@example.com",
	Phone:    "+250788123456",
}

// Submit creates an application with one document per image.
func (e *Env) Submit(t *testing.T, docType string, images ...string) *models.Case {
	t.Helper()
	sub := lifecycle.Submission{Citizen: Citizen, DocumentType: docType}
	for _, img := range images {
		sub.Documents = append(sub.Documents, lifecycle.Upload{Filename: img + ".png", ContentType: "image/png", Data: []byte(img)})
	}
	res, err := e.Manager.Submit(context.Background(), sub)
	require.NoError(t, err)
	return res.Case
}

// Approve moves a case straight to approved and returns the issued document.
func (e *Env) Approve(t *testing.T, caseID string) *models.IssuedDocument {
	t.Helper()
	res, err := e.Manager.Decide(context.Background(), lifecycle.Decision{
		CaseID: caseID, Status: models.StatusApproved, OfficerID: "OFF-1", Notes: "verified",
	})
	require.NoError(t, err)
	return res.Issued
}

// Inline encodes an image name as a job payload document.
func Inline(image string) payload.Document {
	return payload.Document{
		Filename:    image + ".png",
		ContentType: "image/png",
		Content:     base64.StdEncoding.EncodeToString([]byte(image)),
	}
}
