// internal/models/case.go
package models

import "time"

type CaseKind string

const (
	KindApplication     CaseKind = "application"
	KindDocumentRequest CaseKind = "document_request"
)

type CaseStatus string

const (
	StatusPending       CaseStatus = "pending"
	StatusReview        CaseStatus = "review"
	StatusUnderReview   CaseStatus = "under-review"
	StatusPendingIrembo CaseStatus = "pending_irembo"
	StatusApproved      CaseStatus = "approved"
	StatusSent          CaseStatus = "sent"
	StatusRejected      CaseStatus = "rejected"
)

// IsIssued reports whether the case carries an issued document.
// "sent" is treated exactly like "approved".
func (s CaseStatus) IsIssued() bool {
	return s == StatusApproved || s == StatusSent
}

func (s CaseStatus) IsTerminal() bool {
	return s.IsIssued() || s == StatusRejected
}

func (s CaseStatus) Valid() bool {
	switch s {
	case StatusPending, StatusReview, StatusUnderReview, StatusPendingIrembo,
		StatusApproved, StatusSent, StatusRejected:
		return true
	}
	return false
}

type Stage string

const (
	StageLocal   Stage = "local"
	StageCentral Stage = "central"
)

type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

type Citizen struct {
	FullName string `json:"fullName"`
	IDNumber string `json:"idNumber"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// DocumentDescriptor points at a retained upload and summarises its evaluation.
type DocumentDescriptor struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	ContentType  string    `json:"contentType"`
	Size         int64     `json:"size"`
	StorageKey   string    `json:"storageKey"`
	Verdict      Verdict   `json:"verdict"`
	Confidence   float64   `json:"confidence"`
	QualityScore float64   `json:"qualityScore"`
	AIProcessed  bool      `json:"aiProcessed"`
	Issues       []string  `json:"issues"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

// Case is an Application or a Document Request moving through review.
type Case struct {
	ID              string               `json:"id"`
	Kind            CaseKind             `json:"kind"`
	Citizen         Citizen              `json:"citizen"`
	DocumentType    string               `json:"documentType"`
	Description     string               `json:"description,omitempty"`
	Status          CaseStatus           `json:"status"`
	Stage           Stage                `json:"stage"`
	Priority        Priority             `json:"priority"`
	Verdict         Verdict              `json:"verdict,omitempty"`
	Confidence      float64              `json:"confidence"`
	RegistryMatch   bool                 `json:"registryMatch"`
	RegistryBoosted bool                 `json:"registryBoosted"`
	Feedback        string               `json:"feedback"`
	LocalFeedback   string               `json:"localFeedback,omitempty"`
	OfficerID       string               `json:"officerId,omitempty"`
	OfficerNotes    string               `json:"officerNotes,omitempty"`
	Documents       []DocumentDescriptor `json:"documents"`
	Verdicts        []VerdictRecord      `json:"verdicts,omitempty"`
	Version         int64                `json:"version"`
	CreatedAt       time.Time            `json:"createdAt"`
	UpdatedAt       time.Time            `json:"updatedAt"`
}

// LatestVerdict returns the newest record, or nil when none was attached.
func (c *Case) LatestVerdict() *VerdictRecord {
	var latest *VerdictRecord
	for i := range c.Verdicts {
		if latest == nil || !c.Verdicts[i].ProducedAt.Before(latest.ProducedAt) {
			latest = &c.Verdicts[i]
		}
	}
	return latest
}

// CaseFilter narrows case listings. Zero values match everything.
type CaseFilter struct {
	Kind         CaseKind
	CitizenID    string
	DocumentType string
	Status       CaseStatus
}

// Page is a 1-based page request.
type Page struct {
	Number  int `json:"page"`
	PerPage int `json:"perPage"`
}

const (
	DefaultPerPage = 10
	MaxPerPage     = 100
)

// Normalize clamps the page into the accepted range.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	return p
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.PerPage
}
