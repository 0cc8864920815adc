// internal/models/appeal.go
package models

import "time"

type AppealStatus string

const (
	AppealPending  AppealStatus = "pending"
	AppealApproved AppealStatus = "approved"
	AppealRejected AppealStatus = "rejected"
)

func (s AppealStatus) Valid() bool {
	return s == AppealPending || s == AppealApproved || s == AppealRejected
}

// Appeal disputes a Case decision. Its status is independent of the Case.
type Appeal struct {
	ID                  string       `json:"id"`
	CaseID              string       `json:"caseId"`
	CitizenID           string       `json:"citizenId"`
	Reason              string       `json:"reason"`
	Status              AppealStatus `json:"status"`
	Notes               string       `json:"notes,omitempty"`
	ReviewedBy          string       `json:"reviewedBy,omitempty"`
	ReevaluationVerdict string       `json:"reevaluationVerdict,omitempty"`
	Version             int64        `json:"version"`
	CreatedAt           time.Time    `json:"createdAt"`
	UpdatedAt           time.Time    `json:"updatedAt"`
}

type AppealFilter struct {
	CitizenID string
	Status    AppealStatus
}

type AppealStatistics struct {
	Total    int                  `json:"total"`
	ByStatus map[AppealStatus]int `json:"byStatus"`
}
