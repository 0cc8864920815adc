package fileappeal

import "docverify/internal/common/payload"

type Input struct {
	CaseID    string            `json:"caseId"`
	CitizenID string            `json:"citizenId,omitempty"`
	Reason    string            `json:"reason"`
	Document  *payload.Document `json:"document,omitempty"`
}

type Output struct {
	AppealID            string                 `json:"appealId"`
	CaseID              string                 `json:"caseId"`
	Status              string                 `json:"status"`
	ReevaluationVerdict string                 `json:"reevaluationVerdict,omitempty"`
	Record              map[string]interface{} `json:"record,omitempty"`
}
