package decision

import (
	"math"
	"time"

	"docverify/internal/decision/scoring"
	"docverify/internal/models"
)

const (
	// DefaultThreshold is the minimum raw confidence for an authentic verdict.
	DefaultThreshold = 0.84

	// RegistryBoost is added, in percentage points, to an authentic case's
	// stored confidence when an official record corroborates it.
	RegistryBoost = 5.0
)

// Resolver turns scorer output into a verdict.
type Resolver struct {
	threshold float64
}

func NewResolver(threshold float64) Resolver {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return Resolver{threshold: threshold}
}

func (r Resolver) Threshold() float64 {
	return r.threshold
}

// Resolve builds the VerdictRecord. The identity match is recorded as
// advisory metadata only. Simulated results keep their own verdict, which is
// the only way "suspicious" is produced.
func (r Resolver) Resolve(res scoring.Result, match models.IdentityMatch, producedAt time.Time) models.VerdictRecord {
	verdict := models.VerdictFraudulent
	switch {
	case res.Simulation:
		verdict = res.SimulatedVerdict
	case res.RawConfidence >= r.threshold:
		verdict = models.VerdictAuthentic
	}

	return models.VerdictRecord{
		RawConfidence:     res.RawConfidence,
		PercentConfidence: PercentConfidence(res.RawConfidence),
		Verdict:           verdict,
		ForensicFlags:     res.Flags,
		IdentityMatch:     match,
		QualityScore:      res.QualityScore,
		AIProcessed:       res.AIProcessed,
		Simulation:        res.Simulation,
		ProducedAt:        producedAt.UTC(),
	}
}

// PercentConfidence is raw*100 rounded to 2 places.
func PercentConfidence(raw float64) float64 {
	return scoring.Round2(raw * 100)
}

// ApplyRegistryBoost adds RegistryBoost points, capped at 100.
func ApplyRegistryBoost(percent float64) float64 {
	return math.Min(percent+RegistryBoost, 100)
}
