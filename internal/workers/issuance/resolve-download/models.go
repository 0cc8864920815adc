package resolvedownload

import "time"

type Input struct {
	CaseID        string `json:"caseId"`
	ExpirySeconds int    `json:"expirySeconds,omitempty"`
}

type Output struct {
	CaseID         string    `json:"caseId"`
	VerificationID string    `json:"verificationId"`
	Source         string    `json:"source"`
	Filename       string    `json:"filename"`
	ContentType    string    `json:"contentType"`
	Size           int       `json:"size"`
	Locator        string    `json:"locator"`
	URL            string    `json:"url"`
	ExpiresAt      time.Time `json:"expiresAt"`
}
