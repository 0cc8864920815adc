// internal/models/verdict.go
package models

import "time"

type Verdict string

const (
	VerdictAuthentic  Verdict = "authentic"
	VerdictFraudulent Verdict = "fraudulent"
	VerdictSuspicious Verdict = "suspicious"
)

// Severity orders verdicts so a case takes the worst of its documents.
func (v Verdict) Severity() int {
	switch v {
	case VerdictFraudulent:
		return 2
	case VerdictSuspicious:
		return 1
	default:
		return 0
	}
}

// FeatureVector holds the structural and forensic descriptors of one image.
type FeatureVector struct {
	BrightnessMean   float64 `json:"brightnessMean"`
	BrightnessStd    float64 `json:"brightnessStd"`
	Contrast         float64 `json:"contrast"`
	EdgeDensity      float64 `json:"edgeDensity"`
	BlurScore        float64 `json:"blurScore"`
	TextDensity      float64 `json:"textDensity"`
	HistogramEntropy float64 `json:"histogramEntropy"`
	AspectRatio      float64 `json:"aspectRatio"`
	ForensicNoise    float64 `json:"forensicNoise"`
	GlareIndex       float64 `json:"glareIndex"`
}

func (f FeatureVector) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"brightnessMean":   f.BrightnessMean,
		"brightnessStd":    f.BrightnessStd,
		"contrast":         f.Contrast,
		"edgeDensity":      f.EdgeDensity,
		"blurScore":        f.BlurScore,
		"textDensity":      f.TextDensity,
		"histogramEntropy": f.HistogramEntropy,
		"aspectRatio":      f.AspectRatio,
		"forensicNoise":    f.ForensicNoise,
		"glareIndex":       f.GlareIndex,
	}
}

// ModelInputSize is the number of features the classifier consumes.
const ModelInputSize = 8

// ModelInput returns the classifier features in training order. Noise and
// glare only feed the override rules.
func (f FeatureVector) ModelInput() []float64 {
	return []float64{
		f.BrightnessMean,
		f.BrightnessStd,
		f.Contrast,
		f.EdgeDensity,
		f.BlurScore,
		f.TextDensity,
		f.HistogramEntropy,
		f.AspectRatio,
	}
}

// ForensicFlags carries the measured noise level and glare index alongside
// the screen re-capture decision drawn from them.
type ForensicFlags struct {
	NoiseIntegrity  float64 `json:"noiseIntegrity"`
	SpecularGlare   float64 `json:"specularGlare"`
	IsScreenForgery bool    `json:"isScreenForgery"`
}

// IdentityMatch is advisory: it never flips a verdict.
type IdentityMatch struct {
	Score     int               `json:"score"`
	IsMatch   bool              `json:"isMatch"`
	IsExpired bool              `json:"isExpired"`
	Details   map[string]string `json:"details,omitempty"`
	Extracted OCRFields         `json:"extracted"`
}

type OCRFields struct {
	FullName   string `json:"fullName"`
	IDNumber   string `json:"idNumber"`
	ExpiryDate string `json:"expiryDate"`
}

// VerdictRecord is produced once per evaluated image and never mutated.
type VerdictRecord struct {
	ID                string         `json:"id"`
	CaseID            string         `json:"caseId,omitempty"`
	DocumentID        string         `json:"documentId,omitempty"`
	RawConfidence     float64        `json:"rawConfidence"`
	PercentConfidence float64        `json:"percentConfidence"`
	Verdict           Verdict        `json:"verdict"`
	ForensicFlags     ForensicFlags  `json:"forensicFlags"`
	IdentityMatch     IdentityMatch  `json:"identityMatch"`
	QualityScore      float64        `json:"qualityScore"`
	AIProcessed       bool           `json:"aiProcessed"`
	Simulation        bool           `json:"simulation"`
	Features          *FeatureVector `json:"features,omitempty"`
	ProducedAt        time.Time      `json:"producedAt"`
}

// ToMap flattens the record for process variables and index documents.
func (v VerdictRecord) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":                 v.ID,
		"rawConfidence":      v.RawConfidence,
		"percentConfidence":  v.PercentConfidence,
		"verdict":            string(v.Verdict),
		"noiseIntegrity":     v.ForensicFlags.NoiseIntegrity,
		"specularGlare":      v.ForensicFlags.SpecularGlare,
		"isScreenForgery":    v.ForensicFlags.IsScreenForgery,
		"identityMatchScore": v.IdentityMatch.Score,
		"identityIsMatch":    v.IdentityMatch.IsMatch,
		"identityIsExpired":  v.IdentityMatch.IsExpired,
		"qualityScore":       v.QualityScore,
		"aiProcessed":        v.AIProcessed,
		"simulation":         v.Simulation,
		"producedAt":         v.ProducedAt.UTC().Format(time.RFC3339Nano),
	}
	if v.CaseID != "" {
		m["caseId"] = v.CaseID
	}
	if v.DocumentID != "" {
		m["documentId"] = v.DocumentID
	}
	if v.Features != nil {
		m["features"] = v.Features.ToMap()
	}
	return m
}
