// internal/models/registry.go
package models

import "time"

// RegistryRecord is an authoritative record of a previously issued document.
// It is maintained outside this service and only read here.
type RegistryRecord struct {
	ID            string            `json:"id" yaml:"id"`
	CitizenID     string            `json:"citizenId" yaml:"citizen_id"`
	DocumentType  string            `json:"documentType" yaml:"document_type"`
	IssuedDate    time.Time         `json:"issuedDate" yaml:"issued_date"`
	SourceFileRef string            `json:"sourceFileRef,omitempty" yaml:"source_file_ref"`
	Metadata      map[string]string `json:"metadata,omitempty" yaml:"metadata"`
}

// IssuedDocument is written in the same transaction as an approval.
type IssuedDocument struct {
	ID              string    `json:"id"`
	CaseID          string    `json:"caseId"`
	OfficerID       string    `json:"officerId"`
	Notes           string    `json:"notes,omitempty"`
	Status          string    `json:"status"`
	DownloadLocator string    `json:"downloadLocator"`
	VerificationID  string    `json:"verificationId"`
	IssuedAt        time.Time `json:"issuedAt"`
}
