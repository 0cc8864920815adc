package scoring

import (
	"math"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"docverify/internal/common/logger"
	"docverify/internal/models"
)

const (
	blurBypassBlurMax  = 100.0
	blurBypassNoiseMin = 5.0
	blurBypassFloor    = 0.85

	screenGlareMax = 0.05
	screenNoiseMin = 2.0

	simConfidenceMin  = 80.0
	simConfidenceSpan = 15.0
	simAuthenticAbove = 85.0
	simQualityMin     = 80.0
	simQualitySpan    = 18.0
)

// Result carries the scoring fields of a VerdictRecord.
type Result struct {
	RawConfidence float64
	QualityScore  float64
	Flags         models.ForensicFlags
	AIProcessed   bool
	Simulation    bool
	BlurBypass    bool
	ModelVersion  string

	// SimulatedVerdict is only set on the simulation path, which decides
	// authentic/suspicious itself instead of going through the threshold.
	SimulatedVerdict models.Verdict
}

// Scorer applies the classifier pipeline and the forensic override rules.
// A Scorer without a pipeline always simulates.
type Scorer struct {
	pipeline *Pipeline
	logger   logger.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

type Option func(*Scorer)

// WithRand fixes the random source used by simulation mode.
func WithRand(r *rand.Rand) Option {
	return func(s *Scorer) { s.rng = r }
}

func NewScorer(p *Pipeline, log logger.Logger, opts ...Option) *Scorer {
	s := &Scorer{
		pipeline: p,
		logger:   log,
		rng:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
	}
	for _, o := range opts {
		o(s)
	}
	if p == nil {
		log.Warn("scoring artifacts unavailable, running in simulation mode", nil)
	}
	return s
}

// Simulated reports whether the scorer has no pipeline loaded.
func (s *Scorer) Simulated() bool {
	return s.pipeline == nil
}

func (s *Scorer) Score(fv models.FeatureVector) Result {
	flags := ForensicFlags(fv)

	if s.pipeline == nil {
		return s.simulate(flags)
	}

	raw, err := s.pipeline.Predict(fv.ModelInput())
	if err != nil {
		s.logger.Error("inference failed, falling back to simulation", map[string]interface{}{
			"error":        err.Error(),
			"modelVersion": s.pipeline.Version,
		})
		return s.simulate(flags)
	}

	bypass := false
	if BlurBypassApplies(fv) && raw < blurBypassFloor {
		raw = blurBypassFloor
		bypass = true
	}

	return Result{
		RawConfidence: raw,
		QualityScore:  qualityScore(fv),
		Flags:         flags,
		AIProcessed:   true,
		BlurBypass:    bypass,
		ModelVersion:  s.pipeline.Version,
	}
}

// BlurBypassApplies is true for blurry captures whose noise profile looks
// like a physical camera rather than a screen re-scan.
func BlurBypassApplies(fv models.FeatureVector) bool {
	return fv.BlurScore < blurBypassBlurMax && fv.ForensicNoise > blurBypassNoiseMin
}

// ForensicFlags reports the raw noise and glare readings and flags a likely
// screen re-capture.
func ForensicFlags(fv models.FeatureVector) models.ForensicFlags {
	return models.ForensicFlags{
		NoiseIntegrity:  fv.ForensicNoise,
		SpecularGlare:   fv.GlareIndex,
		IsScreenForgery: fv.GlareIndex > screenGlareMax || fv.ForensicNoise < screenNoiseMin,
	}
}

func (s *Scorer) simulate(flags models.ForensicFlags) Result {
	s.mu.Lock()
	conf := simConfidenceMin + s.rng.Float64()*simConfidenceSpan
	quality := simQualityMin + s.rng.Float64()*simQualitySpan
	s.mu.Unlock()

	percent := Round2(conf)
	verdict := models.VerdictSuspicious
	if percent > simAuthenticAbove {
		verdict = models.VerdictAuthentic
	}
	return Result{
		RawConfidence:    percent / 100,
		QualityScore:     Round2(quality),
		Flags:            flags,
		AIProcessed:      false,
		Simulation:       true,
		SimulatedVerdict: verdict,
	}
}

// qualityScore rates sharpness and contrast on a 0–100 scale.
func qualityScore(fv models.FeatureVector) float64 {
	sharp := math.Min(fv.BlurScore/500, 1)
	contrast := math.Min(fv.Contrast/255, 1)
	return Round2(100 * (0.5*sharp + 0.5*contrast))
}

// Round2 rounds the binary value of v to two decimal places. Exact ties go
// to the even digit, so 84.625 becomes 84.62.
func Round2(v float64) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	return r
}
