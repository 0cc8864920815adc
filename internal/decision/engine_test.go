package decision

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "docverify/internal/common/errors"
	"docverify/internal/common/logger"
	"docverify/internal/decision/identity"
	"docverify/internal/decision/scoring"
	"docverify/internal/models"
)

type constClassifier float64

func (c constClassifier) Predict([]float64) (float64, error) { return float64(c), nil }

func pipelineReturning(conf float64) *scoring.Pipeline {
	n := models.ModelInputSize
	scale := make([]float64, n)
	for i := range scale {
		scale[i] = 1
	}
	return &scoring.Pipeline{
		Poly:   scoring.PolynomialFeatures{Degree: 1, InputSize: n},
		Scaler: scoring.StandardScaler{Mean: make([]float64, n), Scale: scale},
		Model:  constClassifier(conf),
	}
}

func fixedFeatures(fv models.FeatureVector) ExtractFunc {
	return func([]byte, int) (models.FeatureVector, error) { return fv, nil }
}

var produced = time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

func newTestEngine(t *testing.T, p *scoring.Pipeline, opts ...Option) *Engine {
	log := logger.NewTestLogger(t)
	scorer := scoring.NewScorer(p, log, scoring.WithRand(rand.New(rand.NewPCG(3, 4))))
	matcher := identity.NewMatcher(
		identity.StaticOCR{Fields: models.OCRFields{FullName: "JOHN DOE", IDNumber: "ID-884-221", ExpiryDate: "2029-12-31"}},
		identity.Declared{FullName: "JOHN DOE", IDNumber: "ID-884-221"},
	)
	opts = append([]Option{WithClock(func() time.Time { return produced })}, opts...)
	return NewEngine(Config{Threshold: DefaultThreshold}, scorer, matcher, log, opts...)
}

// ==========================
// Resolver
// ==========================

func TestPercentConfidence(t *testing.T) {
	tests := []struct {
		raw  float64
		want float64
	}{
		{0.60, 60},
		{0.8456, 84.56},
		{0.87455, 87.45},
		{0.123449, 12.34},
		{1, 100},
		{0, 0},
		{0.84625, 84.62},
		{0.00125, 0.12},
		{0.28575, 28.57},
		{0.84635, 84.64},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PercentConfidence(tt.raw), "raw=%v", tt.raw)
	}
}

func TestResolver_Threshold(t *testing.T) {
	r := NewResolver(DefaultThreshold)

	tests := []struct {
		name string
		res  scoring.Result
		want models.Verdict
	}{
		{"at threshold", scoring.Result{RawConfidence: 0.84, AIProcessed: true}, models.VerdictAuthentic},
		{"just below", scoring.Result{RawConfidence: 0.8399, AIProcessed: true}, models.VerdictFraudulent},
		{"low", scoring.Result{RawConfidence: 0.60, AIProcessed: true}, models.VerdictFraudulent},
		{"simulated suspicious", scoring.Result{RawConfidence: 0.83, Simulation: true, SimulatedVerdict: models.VerdictSuspicious}, models.VerdictSuspicious},
		{"simulated authentic", scoring.Result{RawConfidence: 0.9, Simulation: true, SimulatedVerdict: models.VerdictAuthentic}, models.VerdictAuthentic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := r.Resolve(tt.res, models.IdentityMatch{}, produced)
			assert.Equal(t, tt.want, rec.Verdict)
			assert.Equal(t, PercentConfidence(tt.res.RawConfidence), rec.PercentConfidence)
		})
	}
}

func TestResolver_IdentityNeverFlipsVerdict(t *testing.T) {
	r := NewResolver(DefaultThreshold)
	rec := r.Resolve(scoring.Result{RawConfidence: 0.95, AIProcessed: true}, models.IdentityMatch{Score: 0}, produced)
	assert.Equal(t, models.VerdictAuthentic, rec.Verdict)
	assert.False(t, rec.IdentityMatch.IsMatch)
}

func TestNewResolver_InvalidThresholdFallsBack(t *testing.T) {
	assert.Equal(t, DefaultThreshold, NewResolver(0).Threshold())
	assert.Equal(t, DefaultThreshold, NewResolver(3).Threshold())
	assert.Equal(t, 0.7, NewResolver(0.7).Threshold())
}

func TestApplyRegistryBoost(t *testing.T) {
	assert.Equal(t, 95.0, ApplyRegistryBoost(90.0))
	assert.Equal(t, 100.0, ApplyRegistryBoost(97.0))
	assert.Equal(t, 100.0, ApplyRegistryBoost(100.0))
}

// ==========================
// Engine
// ==========================

func TestEngine_BlurryGenuineCaptureIsAuthentic(t *testing.T) {
	e := newTestEngine(t, pipelineReturning(0.50),
		WithExtractor(fixedFeatures(models.FeatureVector{BlurScore: 30, ForensicNoise: 8.0})))

	rec, err := e.Evaluate(context.Background(), Input{
		Image:      []byte("img"),
		Declared:   identity.Declared{FullName: "JOHN DOE", IDNumber: "ID-884-221"},
		CaseID:     "APP-2026-ABC",
		DocumentID: "DOC-1",
	})
	require.NoError(t, err)

	assert.Equal(t, models.VerdictAuthentic, rec.Verdict)
	assert.InDelta(t, 0.85, rec.RawConfidence, 1e-9)
	assert.Equal(t, 85.0, rec.PercentConfidence)
	assert.Equal(t, 80, rec.IdentityMatch.Score)
	assert.True(t, rec.IdentityMatch.IsMatch)
	assert.True(t, rec.AIProcessed)
	assert.Equal(t, 8.0, rec.ForensicFlags.NoiseIntegrity)
	assert.Equal(t, 0.0, rec.ForensicFlags.SpecularGlare)
	assert.False(t, rec.ForensicFlags.IsScreenForgery)
	assert.Equal(t, produced, rec.ProducedAt)
	assert.Equal(t, "APP-2026-ABC", rec.CaseID)
	assert.Regexp(t, `^VER-[0-9A-F]{8}$`, rec.ID)
	require.NotNil(t, rec.Features)
	assert.Equal(t, 30.0, rec.Features.BlurScore)
}

func TestEngine_LowConfidenceIsFraudulent(t *testing.T) {
	e := newTestEngine(t, pipelineReturning(0.60),
		WithExtractor(fixedFeatures(models.FeatureVector{BlurScore: 400, ForensicNoise: 20})))

	rec, err := e.Evaluate(context.Background(), Input{Image: []byte("img")})
	require.NoError(t, err)
	assert.Equal(t, models.VerdictFraudulent, rec.Verdict)
	assert.Equal(t, 60.0, rec.PercentConfidence)
}

func TestEngine_DecodeErrorStopsPipeline(t *testing.T) {
	e := newTestEngine(t, pipelineReturning(0.99))

	_, err := e.Evaluate(context.Background(), Input{Image: []byte("not an image")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrDecode))
}

func TestEngine_RejectsImagesAboveConfiguredPixels(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 40, 30))))

	log := logger.NewTestLogger(t)
	scorer := scoring.NewScorer(pipelineReturning(0.99), log)
	matcher := identity.NewMatcher(identity.StaticOCR{}, identity.Declared{})

	tests := []struct {
		name      string
		maxPixels int
		wantErr   bool
	}{
		{name: "fits", maxPixels: 1200},
		{name: "one pixel over", maxPixels: 1199, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(Config{Threshold: DefaultThreshold, MaxPixels: tt.maxPixels}, scorer, matcher, log)
			_, err := e.Evaluate(context.Background(), Input{Image: buf.Bytes()})
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, apperrors.ErrDecode))
		})
	}
}

func TestEngine_SimulationWhenModelMissing(t *testing.T) {
	e := newTestEngine(t, nil, WithExtractor(fixedFeatures(models.FeatureVector{BlurScore: 200, ForensicNoise: 3})))

	rec, err := e.Evaluate(context.Background(), Input{Image: []byte("img")})
	require.NoError(t, err)
	assert.False(t, rec.AIProcessed)
	assert.True(t, rec.Simulation)
	assert.Contains(t, []models.Verdict{models.VerdictAuthentic, models.VerdictSuspicious}, rec.Verdict)
	assert.Equal(t, PercentConfidence(rec.RawConfidence), rec.PercentConfidence)
}
