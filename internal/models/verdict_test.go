package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerdictRecord_ToMap(t *testing.T) {
	fv := &FeatureVector{BlurScore: 42.5, ForensicNoise: 6.52, GlareIndex: 0.031, AspectRatio: 1.6}
	rec := VerdictRecord{
		ID:                "VER-1",
		CaseID:            "APP-2026-ABC",
		PercentConfidence: 91.2,
		Verdict:           VerdictAuthentic,
		ForensicFlags:     ForensicFlags{NoiseIntegrity: 6.52, SpecularGlare: 0.031},
		Features:          fv,
		ProducedAt:        time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC),
	}

	m := rec.ToMap()
	assert.Equal(t, 6.52, m["noiseIntegrity"])
	assert.Equal(t, 0.031, m["specularGlare"])
	assert.Equal(t, false, m["isScreenForgery"])
	assert.Equal(t, "APP-2026-ABC", m["caseId"])
	assert.NotContains(t, m, "documentId")

	features, ok := m["features"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 42.5, features["blurScore"])
	assert.Equal(t, 6.52, features["forensicNoise"])
	assert.Equal(t, 0.031, features["glareIndex"])

	rec.Features = nil
	assert.NotContains(t, rec.ToMap(), "features")
}

func TestForensicFlags_JSONKeepsReadings(t *testing.T) {
	raw, err := json.Marshal(ForensicFlags{NoiseIntegrity: 1.5, SpecularGlare: 0.06, IsScreenForgery: true})
	require.NoError(t, err)
	assert.JSONEq(t, `{"noiseIntegrity":1.5,"specularGlare":0.06,"isScreenForgery":true}`, string(raw))
}
