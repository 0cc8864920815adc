// Package identity cross-checks identity fields read from a document against
// what the citizen declared.
package identity

import (
	"context"
	"strings"
	"time"

	"docverify/internal/models"
)

const (
	nameWeight = 40
	idWeight   = 40

	// MatchThreshold is the minimum score for IdentityMatch.IsMatch.
	MatchThreshold = 80

	expiryLayout = "2006-01-02"
)

// OCR reads identity fields from a document image.
type OCR interface {
	Extract(ctx context.Context, image []byte) (models.OCRFields, error)
}

// StaticOCR returns the same fields for every image. It stands in until a
// real text recogniser is wired.
type StaticOCR struct {
	Fields models.OCRFields
}

func (s StaticOCR) Extract(context.Context, []byte) (models.OCRFields, error) {
	return s.Fields, nil
}

// Declared is what the citizen typed in.
type Declared struct {
	FullName string `json:"fullName"`
	IDNumber string `json:"idNumber"`
}

type Matcher struct {
	ocr      OCR
	defaults Declared
	now      func() time.Time
}

// NewMatcher builds a matcher. defaults fill declared fields left empty.
func NewMatcher(ocr OCR, defaults Declared) *Matcher {
	return &Matcher{ocr: ocr, defaults: defaults, now: time.Now}
}

// Match runs OCR on image and scores it against declared.
func (m *Matcher) Match(ctx context.Context, image []byte, declared Declared) (models.IdentityMatch, error) {
	fields, err := m.ocr.Extract(ctx, image)
	if err != nil {
		return models.IdentityMatch{Details: map[string]string{"name_match": "mismatch_flagged", "id_match": "mismatch_flagged"}}, err
	}
	return m.Compare(fields, declared), nil
}

// Compare scores extracted fields: name and id number are worth 40 each;
// expiry is reported but not scored.
func (m *Matcher) Compare(fields models.OCRFields, declared Declared) models.IdentityMatch {
	if declared.FullName == "" {
		declared.FullName = m.defaults.FullName
	}
	if declared.IDNumber == "" {
		declared.IDNumber = m.defaults.IDNumber
	}

	res := models.IdentityMatch{
		Details:   map[string]string{},
		Extracted: fields,
	}

	if fields.FullName != "" && normalize(fields.FullName) == normalize(declared.FullName) {
		res.Score += nameWeight
		res.Details["name_match"] = "perfect"
	} else {
		res.Details["name_match"] = "mismatch_flagged"
	}

	if fields.IDNumber != "" && normalize(fields.IDNumber) == normalize(declared.IDNumber) {
		res.Score += idWeight
		res.Details["id_match"] = "verified"
	} else {
		res.Details["id_match"] = "mismatch_flagged"
	}

	if exp, err := time.Parse(expiryLayout, fields.ExpiryDate); err == nil {
		res.IsExpired = m.now().After(exp.Add(24 * time.Hour))
	}

	res.IsMatch = res.Score >= MatchThreshold
	return res
}

func normalize(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}
