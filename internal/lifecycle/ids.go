package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"docverify/internal/models"
)

// CaseIDFunc names a new case of the given kind.
type CaseIDFunc func(kind models.CaseKind, now time.Time) string

func hexID(n int) string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:n])
}

func NewApplicationID(now time.Time) string {
	return fmt.Sprintf("APP-%d-%s", now.Year(), hexID(3))
}

func NewDocumentRequestID(now time.Time) string {
	return fmt.Sprintf("DOCREQ-%d-%s", now.Year(), hexID(8))
}

func NewCaseID(kind models.CaseKind, now time.Time) string {
	if kind == models.KindDocumentRequest {
		return NewDocumentRequestID(now)
	}
	return NewApplicationID(now)
}

func NewDocumentID() string { return "DOC-" + hexID(8) }

func NewAppealID() string { return "APPEAL-" + hexID(8) }

func NewIssuedID() string { return "ISSUED-" + hexID(8) }
