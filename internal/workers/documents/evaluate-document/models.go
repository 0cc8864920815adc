package evaluatedocument

import "docverify/internal/common/payload"

// Input evaluates a single image outside of any case, for instance a
// pre-check before the citizen submits.
type Input struct {
	Document payload.Document `json:"document"`
	FullName string           `json:"fullName,omitempty"`
	IDNumber string           `json:"idNumber,omitempty"`
	CaseID   string           `json:"caseId,omitempty"`
}

type Output struct {
	Verdict           string                 `json:"verdict"`
	PercentConfidence float64                `json:"percentConfidence"`
	QualityScore      float64                `json:"qualityScore"`
	AIProcessed       bool                   `json:"aiProcessed"`
	Simulation        bool                   `json:"simulation"`
	IdentityScore     int                    `json:"identityScore"`
	IdentityMatch     bool                   `json:"identityMatch"`
	IdentityExpired   bool                   `json:"identityExpired"`
	Issues            []string               `json:"issues"`
	Record            map[string]interface{} `json:"record"`
}
