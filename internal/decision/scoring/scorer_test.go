package scoring

import (
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	apperrors "docverify/internal/common/errors"
	"docverify/internal/common/logger"
	"docverify/internal/models"
)

type fixedClassifier struct {
	conf float64
	err  error
}

func (f fixedClassifier) Predict([]float64) (float64, error) {
	return f.conf, f.err
}

func identityPipeline(c Classifier) *Pipeline {
	mean := make([]float64, models.ModelInputSize)
	scale := make([]float64, models.ModelInputSize)
	for i := range scale {
		scale[i] = 1
	}
	return &Pipeline{
		Poly:    PolynomialFeatures{Degree: 1, InputSize: models.ModelInputSize},
		Scaler:  StandardScaler{Mean: mean, Scale: scale},
		Model:   c,
		Version: "test",
	}
}

func seeded() Option {
	return WithRand(rand.New(rand.NewPCG(42, 1337)))
}

// ==========================
// Pipeline stages
// ==========================

func TestPolynomialFeatures_Ordering(t *testing.T) {
	p := PolynomialFeatures{Degree: 2, InputSize: 2, IncludeBias: true}
	out, err := p.Transform([]float64{2, 3})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4, 6, 9}, out)
	assert.Equal(t, 6, p.OutputSize())

	full := PolynomialFeatures{Degree: 2, InputSize: 8, IncludeBias: true}
	assert.Equal(t, 45, full.OutputSize())

	_, err = p.Transform([]float64{1})
	assert.Error(t, err)
}

func TestStandardScaler(t *testing.T) {
	s := StandardScaler{Mean: []float64{10, 0}, Scale: []float64{2, 0}}
	out, err := s.Transform([]float64{14, 5})
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 5}, out)
}

func TestNetwork_Predict(t *testing.T) {
	net := Network{Layers: []Dense{
		{Weights: [][]float64{{1, -1}, {1, 1}}, Bias: []float64{0, 0}, Activation: ActivationReLU},
		{Weights: [][]float64{{1}, {0}}, Bias: []float64{0}, Activation: ActivationSigmoid},
	}}
	conf, err := net.Predict([]float64{0, 0})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, conf, 1e-9)

	_, err = Network{}.Predict([]float64{1})
	assert.Error(t, err)

	bad := Network{Layers: []Dense{{Weights: [][]float64{{1}}, Bias: []float64{0}, Activation: "softplus"}}}
	_, err = bad.Predict([]float64{1})
	assert.Error(t, err)
}

// ==========================
// Override rules
// ==========================

func TestScorer_BlurBypass(t *testing.T) {
	s := NewScorer(identityPipeline(fixedClassifier{conf: 0.40}), logger.NewNoOpLogger())

	tests := []struct {
		name       string
		fv         models.FeatureVector
		wantConf   float64
		wantBypass bool
	}{
		{"blurry physical capture", models.FeatureVector{BlurScore: 50, ForensicNoise: 6.0}, 0.85, true},
		{"blurry flat noise", models.FeatureVector{BlurScore: 50, ForensicNoise: 4.0}, 0.40, false},
		{"sharp capture", models.FeatureVector{BlurScore: 150, ForensicNoise: 6.0}, 0.40, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := s.Score(tt.fv)
			assert.InDelta(t, tt.wantConf, res.RawConfidence, 1e-9)
			assert.Equal(t, tt.wantBypass, res.BlurBypass)
			assert.True(t, res.AIProcessed)
			assert.False(t, res.Simulation)
		})
	}
}

func TestScorer_BlurBypassNeverLowers(t *testing.T) {
	s := NewScorer(identityPipeline(fixedClassifier{conf: 0.93}), logger.NewNoOpLogger())
	res := s.Score(models.FeatureVector{BlurScore: 30, ForensicNoise: 8})
	assert.InDelta(t, 0.93, res.RawConfidence, 1e-9)
	assert.False(t, res.BlurBypass)
}

func TestForensicFlags(t *testing.T) {
	tests := []struct {
		name   string
		fv     models.FeatureVector
		screen bool
	}{
		{"clean capture", models.FeatureVector{GlareIndex: 0.01, ForensicNoise: 6}, false},
		{"glare", models.FeatureVector{GlareIndex: 0.06, ForensicNoise: 6}, true},
		{"flat noise", models.FeatureVector{GlareIndex: 0.0, ForensicNoise: 1.5}, true},
		{"boundary glare", models.FeatureVector{GlareIndex: 0.05, ForensicNoise: 2.0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := ForensicFlags(tt.fv)
			assert.Equal(t, tt.screen, f.IsScreenForgery)
			assert.Equal(t, tt.fv.ForensicNoise, f.NoiseIntegrity)
			assert.Equal(t, tt.fv.GlareIndex, f.SpecularGlare)
		})
	}
}

// ==========================
// Simulation mode
// ==========================

func TestScorer_SimulationWithoutArtifacts(t *testing.T) {
	s := NewScorer(nil, logger.NewNoOpLogger(), seeded())
	require.True(t, s.Simulated())

	for i := 0; i < 200; i++ {
		res := s.Score(models.FeatureVector{})
		assert.False(t, res.AIProcessed)
		assert.True(t, res.Simulation)
		assert.GreaterOrEqual(t, res.RawConfidence, 0.80)
		assert.LessOrEqual(t, res.RawConfidence, 0.95)
		assert.GreaterOrEqual(t, res.QualityScore, 80.0)
		assert.LessOrEqual(t, res.QualityScore, 98.0)
		if Round2(res.RawConfidence*100) > 85 {
			assert.Equal(t, models.VerdictAuthentic, res.SimulatedVerdict)
		} else {
			assert.Equal(t, models.VerdictSuspicious, res.SimulatedVerdict)
		}
	}
}

// "suspicious" is only ever produced by the simulation path; the model path
// leaves SimulatedVerdict empty and the resolver emits authentic/fraudulent.
func TestScorer_SuspiciousOnlyFromSimulation(t *testing.T) {
	sim := NewScorer(nil, logger.NewNoOpLogger(), seeded())
	seen := map[models.Verdict]bool{}
	for i := 0; i < 500; i++ {
		seen[sim.Score(models.FeatureVector{}).SimulatedVerdict] = true
	}
	assert.True(t, seen[models.VerdictSuspicious])
	assert.True(t, seen[models.VerdictAuthentic])

	model := NewScorer(identityPipeline(fixedClassifier{conf: 0.2}), logger.NewNoOpLogger())
	assert.Empty(t, model.Score(models.FeatureVector{BlurScore: 400}).SimulatedVerdict)
}

func TestScorer_InferenceErrorFallsBack(t *testing.T) {
	s := NewScorer(identityPipeline(fixedClassifier{err: errors.New("nan weights")}), logger.NewNoOpLogger(), seeded())
	res := s.Score(models.FeatureVector{})
	assert.True(t, res.Simulation)
	assert.False(t, res.AIProcessed)
}

func TestRound2(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{87.455, 87.45},
		{39.999, 40.0},
		{0.60 * 100, 60.0},
		{2.675, 2.67},
		{0.125, 0.12},
		{0.375, 0.38},
		{-1.005, -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Round2(tt.in), "in=%v", tt.in)
	}
}

// ==========================
// Artifact bundle
// ==========================

func sampleBundle() (PolynomialFeatures, StandardScaler, Network) {
	poly := PolynomialFeatures{Degree: 1, InputSize: models.ModelInputSize, IncludeBias: true}
	n := poly.OutputSize()
	mean := make([]float64, n)
	scale := make([]float64, n)
	weights := make([][]float64, n)
	for i := range scale {
		scale[i] = 1
		weights[i] = []float64{0.01}
	}
	net := Network{Layers: []Dense{{Weights: weights, Bias: []float64{-1}, Activation: ActivationSigmoid}}}
	return poly, StandardScaler{Mean: mean, Scale: scale}, net
}

func TestBundle_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	poly, scaler, net := sampleBundle()
	path, err := WriteBundle(dir, "2026.10", poly, scaler, net)
	require.NoError(t, err)

	p, err := LoadBundle(path)
	require.NoError(t, err)
	assert.Equal(t, "2026.10", p.Version)

	x := []float64{120, 40, 200, 0.1, 300, 0.2, 3.1, 1.4}
	want, err := (&Pipeline{Poly: poly, Scaler: scaler, Model: net}).Predict(x)
	require.NoError(t, err)
	got, err := p.Predict(x)
	require.NoError(t, err)
	assert.InDelta(t, want, got, 1e-12)
}

func TestBundle_Unavailable(t *testing.T) {
	t.Run("no manifest configured", func(t *testing.T) {
		_, err := LoadBundle("")
		assert.True(t, errors.Is(err, apperrors.ErrModelUnavailable))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadBundle(filepath.Join(t.TempDir(), "manifest.yaml"))
		assert.True(t, errors.Is(err, apperrors.ErrModelUnavailable))
	})

	t.Run("tampered model", func(t *testing.T) {
		dir := t.TempDir()
		poly, scaler, net := sampleBundle()
		path, err := WriteBundle(dir, "v1", poly, scaler, net)
		require.NoError(t, err)

		f, err := os.OpenFile(filepath.Join(dir, "model.cbor"), os.O_APPEND|os.O_WRONLY, 0)
		require.NoError(t, err)
		_, err = f.Write([]byte{0x00})
		require.NoError(t, err)
		require.NoError(t, f.Close())

		_, err = LoadBundle(path)
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrModelUnavailable))
		assert.Contains(t, apperrors.FromError(err).Details, "digest mismatch")
	})

	t.Run("artifact without digest", func(t *testing.T) {
		dir := t.TempDir()
		poly, scaler, net := sampleBundle()
		path, err := WriteBundle(dir, "v1", poly, scaler, net)
		require.NoError(t, err)

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		var m Manifest
		require.NoError(t, yaml.Unmarshal(raw, &m))
		m.Scaler.BLAKE3 = ""
		raw, err = yaml.Marshal(m)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, raw, 0o644))

		_, err = LoadBundle(path)
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrModelUnavailable))
		assert.Contains(t, apperrors.FromError(err).Details, "no digest")
	})

	t.Run("width mismatch", func(t *testing.T) {
		dir := t.TempDir()
		poly, scaler, net := sampleBundle()
		scaler.Mean = scaler.Mean[:3]
		path, err := WriteBundle(dir, "v1", poly, scaler, net)
		require.NoError(t, err)

		_, err = LoadBundle(path)
		assert.True(t, errors.Is(err, apperrors.ErrModelUnavailable))
	})
}
