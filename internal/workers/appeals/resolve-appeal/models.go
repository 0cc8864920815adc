package resolveappeal

const (
	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionDelete  = "delete"
)

type Input struct {
	AppealID   string `json:"appealId"`
	Action     string `json:"action"`
	ReviewedBy string `json:"reviewedBy,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

type Output struct {
	AppealID   string `json:"appealId"`
	CaseID     string `json:"caseId,omitempty"`
	Status     string `json:"status,omitempty"`
	ReviewedBy string `json:"reviewedBy,omitempty"`
	Deleted    bool   `json:"deleted"`
}
