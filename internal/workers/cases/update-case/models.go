package updatecase

// Input is a partial case update. Absent fields are left unchanged.
type Input struct {
	CaseID          string  `json:"caseId"`
	Status          *string `json:"status,omitempty"`
	Stage           *string `json:"stage,omitempty"`
	Feedback        *string `json:"feedback,omitempty"`
	OfficerID       *string `json:"officerId,omitempty"`
	Notes           *string `json:"notes,omitempty"`
	ExpectedVersion int64   `json:"expectedVersion,omitempty"`
}

type Output struct {
	CaseID           string `json:"caseId"`
	Status           string `json:"status"`
	Stage            string `json:"stage"`
	Feedback         string `json:"feedback"`
	LocalFeedback    string `json:"localFeedback,omitempty"`
	OfficerID        string `json:"officerId,omitempty"`
	Version          int64  `json:"version"`
	Issued           bool   `json:"issued"`
	IssuedDocumentID string `json:"issuedDocumentId,omitempty"`
	VerificationID   string `json:"verificationId,omitempty"`
	DownloadLocator  string `json:"downloadLocator,omitempty"`
}
