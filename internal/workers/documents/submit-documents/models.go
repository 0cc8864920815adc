package submitdocuments

import (
	"docverify/internal/common/payload"
	"docverify/internal/models"
)

type Input struct {
	Citizen      models.Citizen     `json:"citizen"`
	DocumentType string             `json:"documentType"`
	Description  string             `json:"description,omitempty"`
	Documents    []payload.Document `json:"documents"`
}

type Output struct {
	CaseID          string                   `json:"caseId"`
	Status          string                   `json:"status"`
	Stage           string                   `json:"stage"`
	Priority        string                   `json:"priority"`
	Verdict         string                   `json:"verdict"`
	Confidence      float64                  `json:"confidence"`
	RegistryMatch   bool                     `json:"registryMatch"`
	RegistryBoosted bool                     `json:"registryBoosted"`
	Feedback        string                   `json:"feedback"`
	QueuePosition   int                      `json:"queuePosition"`
	DocumentCount   int                      `json:"documentCount"`
	Verdicts        []map[string]interface{} `json:"verdicts"`
}
