// internal/models/notification.go
package models

type Notification struct {
	ID        string                 `json:"id"`
	CaseID    string                 `json:"caseId"`
	Type      string                 `json:"type"`    // "case_decided", "appeal_resolved"
	Channel   string                 `json:"channel"` // "email", "sms"
	Status    string                 `json:"status"`  // "sent", "failed", "disabled", "skipped"
	Recipient string                 `json:"recipient"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	SentAt    string                 `json:"sentAt,omitempty"`
}
