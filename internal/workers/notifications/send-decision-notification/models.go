package senddecisionnotification

import "docverify/internal/models"

const (
	TypeCaseDecided    = "case_decided"
	TypeAppealResolved = "appeal_resolved"

	ChannelEmail = "email"
	ChannelSMS   = "sms"

	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusDisabled = "disabled"
	StatusSkipped  = "skipped"
)

type Input struct {
	CaseID   string   `json:"caseId"`
	Type     string   `json:"type,omitempty"`
	AppealID string   `json:"appealId,omitempty"`
	Channels []string `json:"channels,omitempty"`
}

type Output struct {
	CaseID        string                `json:"caseId"`
	Notifications []models.Notification `json:"notifications"`
	Sent          int                   `json:"sent"`
}

type message struct {
	Subject string
	Body    string
	SMS     string
}
