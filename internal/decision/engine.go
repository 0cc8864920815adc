// Package decision wires feature extraction, scoring, identity matching and
// verdict resolution into a single evaluation.
package decision

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"docverify/internal/common/logger"
	"docverify/internal/common/metrics"
	"docverify/internal/decision/features"
	"docverify/internal/decision/identity"
	"docverify/internal/decision/scoring"
	"docverify/internal/models"
)

// Input is one document image plus the identity its submitter declared.
type Input struct {
	Image      []byte
	Declared   identity.Declared
	CaseID     string
	DocumentID string
}

// Engine is built once at startup and shared by every worker.
type Engine struct {
	size      int
	maxPixels int
	scorer    *scoring.Scorer
	matcher   *identity.Matcher
	resolver  Resolver
	logger    logger.Logger
	now       func() time.Time
	extract   ExtractFunc
}

// ExtractFunc measures an encoded image at a square resolution.
type ExtractFunc func(data []byte, size int) (models.FeatureVector, error)

type Option func(*Engine)

// WithExtractor replaces the image feature extractor.
func WithExtractor(fn ExtractFunc) Option {
	return func(e *Engine) { e.extract = fn }
}

// WithClock replaces the timestamp source for produced records.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

type Config struct {
	TargetSize int
	Threshold  float64
	// MaxPixels rejects images whose declared dimensions exceed it.
	MaxPixels int
}

func NewEngine(cfg Config, scorer *scoring.Scorer, matcher *identity.Matcher, log logger.Logger, opts ...Option) *Engine {
	size := cfg.TargetSize
	if size <= 0 {
		size = features.DefaultSize
	}
	maxPixels := cfg.MaxPixels
	if maxPixels <= 0 {
		maxPixels = features.DefaultMaxPixels
	}
	e := &Engine{
		size:      size,
		maxPixels: maxPixels,
		scorer:    scorer,
		matcher:   matcher,
		resolver:  NewResolver(cfg.Threshold),
		logger:    log,
		now:       time.Now,
	}
	e.extract = func(data []byte, size int) (models.FeatureVector, error) {
		return features.ExtractWithLimits(data, size, e.maxPixels)
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) Threshold() float64 {
	return e.resolver.Threshold()
}

// Evaluate produces exactly one VerdictRecord for in.Image. A decode error
// is returned as-is and nothing is scored; every other failure degrades.
func (e *Engine) Evaluate(ctx context.Context, in Input) (models.VerdictRecord, error) {
	start := time.Now()
	fv, err := e.extract(in.Image, e.size)
	metrics.FeatureExtractionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		e.logger.Warn("document could not be decoded", map[string]interface{}{
			"caseId":     in.CaseID,
			"documentId": in.DocumentID,
			"error":      err.Error(),
		})
		return models.VerdictRecord{}, err
	}

	res := e.scorer.Score(fv)

	match, err := e.matcher.Match(ctx, in.Image, in.Declared)
	if err != nil {
		e.logger.Warn("identity extraction failed, recording empty match", map[string]interface{}{
			"caseId":     in.CaseID,
			"documentId": in.DocumentID,
			"error":      err.Error(),
		})
	}

	record := e.resolver.Resolve(res, match, e.now())
	record.ID = newVerdictID()
	record.CaseID = in.CaseID
	record.DocumentID = in.DocumentID
	record.Features = &fv

	metrics.VerdictsTotal.WithLabelValues(string(record.Verdict), strconv.FormatBool(record.AIProcessed)).Inc()
	e.logger.Info("document evaluated", map[string]interface{}{
		"caseId":            in.CaseID,
		"documentId":        in.DocumentID,
		"verdict":           record.Verdict,
		"percentConfidence": record.PercentConfidence,
		"aiProcessed":       record.AIProcessed,
		"blurBypass":        res.BlurBypass,
		"identityScore":     record.IdentityMatch.Score,
	})
	return record, nil
}

func newVerdictID() string {
	return "VER-" + strings.ToUpper(uuid.NewString()[:8])
}
