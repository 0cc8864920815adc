// Package lifecycle moves Applications and Document Requests through review:
// submission, forwarding to the central office, decisions with issuance, and
// appeals.
package lifecycle

import (
	"context"
	"errors"
	"time"

	apperrors "docverify/internal/common/errors"
	"docverify/internal/common/logger"
	"docverify/internal/common/metrics"
	"docverify/internal/common/storage"
	"docverify/internal/decision"
	"docverify/internal/models"
	"docverify/internal/registry"
	"docverify/internal/store"
)

const DefaultMaxFileSize int64 = 10 * 1024 * 1024

// maxIDAttempts bounds how often an insert is retried after its generated
// case id turned out to be taken.
const maxIDAttempts = 5

// Evaluator produces one VerdictRecord per document image.
type Evaluator interface {
	Evaluate(ctx context.Context, in decision.Input) (models.VerdictRecord, error)
}

type RegistryMatcher interface {
	Match(ctx context.Context, citizenID, documentType string) registry.Result
}

// Indexer mirrors cases into a search index. Failures are logged only.
type Indexer interface {
	IndexCase(ctx context.Context, c *models.Case) error
}

type Deps struct {
	Store           store.Store
	Blobs           storage.BlobStore
	Evaluator       Evaluator
	Registry        RegistryMatcher
	Indexer         Indexer
	DocumentsBucket string
	MaxFileSize     int64
	Logger          logger.Logger
	Now             func() time.Time
	CaseIDs         CaseIDFunc
}

type Manager struct {
	store       store.Store
	blobs       storage.BlobStore
	evaluator   Evaluator
	registry    RegistryMatcher
	indexer     Indexer
	bucket      string
	maxFileSize int64
	logger      logger.Logger
	now         func() time.Time
	caseID      CaseIDFunc
}

func NewManager(d Deps) *Manager {
	m := &Manager{
		store:       d.Store,
		blobs:       d.Blobs,
		evaluator:   d.Evaluator,
		registry:    d.Registry,
		indexer:     d.Indexer,
		bucket:      d.DocumentsBucket,
		maxFileSize: d.MaxFileSize,
		logger:      d.Logger,
		now:         d.Now,
		caseID:      d.CaseIDs,
	}
	if m.maxFileSize <= 0 {
		m.maxFileSize = DefaultMaxFileSize
	}
	if m.now == nil {
		m.now = func() time.Time { return time.Now().UTC() }
	}
	if m.caseID == nil {
		m.caseID = NewCaseID
	}
	if m.bucket == "" {
		m.bucket = "documents"
	}
	return m
}

// CaseView is a Case plus its read-time queue position. Position is 0 for
// cases that are no longer waiting.
type CaseView struct {
	*models.Case
	QueuePosition int `json:"queuePosition"`
}

// insertWithFreshID runs insert until it succeeds or fails for a reason
// other than a taken case id. renew is given a new id before each retry.
func (m *Manager) insertWithFreshID(c *models.Case, insert func() error, renew func(id string)) error {
	for attempt := 1; ; attempt++ {
		err := insert()
		if err == nil || !errors.Is(err, apperrors.ErrDuplicate) || attempt == maxIDAttempts {
			return err
		}
		id := m.caseID(c.Kind, c.CreatedAt)
		m.logger.Warn("case id already taken, retrying", map[string]interface{}{
			"caseId":  c.ID,
			"newId":   id,
			"attempt": attempt,
		})
		renew(id)
	}
}

// mutate loads a case, applies fn and writes it back in one transaction.
func (m *Manager) mutate(ctx context.Context, caseID string, fn func(ctx context.Context, tx store.Tx, c *models.Case) error) (*models.Case, error) {
	var (
		out  *models.Case
		from models.CaseStatus
	)
	err := m.store.WithinTx(ctx, func(tx store.Tx) error {
		c, err := tx.GetCase(ctx, caseID)
		if err != nil {
			return err
		}
		from = c.Status
		if err := fn(ctx, tx, c); err != nil {
			return err
		}
		c.UpdatedAt = m.now()
		if err := tx.UpdateCase(ctx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out.Status != from {
		m.recordTransition(out, from)
	}
	m.index(ctx, out)
	return out, nil
}

func (m *Manager) index(ctx context.Context, c *models.Case) {
	if m.indexer == nil || c == nil {
		return
	}
	if err := m.indexer.IndexCase(ctx, c); err != nil {
		m.logger.Warn("case index update failed", map[string]interface{}{"caseId": c.ID, "error": err.Error()})
	}
}

func (m *Manager) recordTransition(c *models.Case, from models.CaseStatus) {
	metrics.CaseTransitions.WithLabelValues(string(c.Kind), string(from), string(c.Status)).Inc()
	m.logger.Info("case status changed", map[string]interface{}{
		"caseId": c.ID,
		"from":   from,
		"to":     c.Status,
		"stage":  c.Stage,
	})
}
