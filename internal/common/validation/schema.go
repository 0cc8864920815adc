// Package validation checks job variables against the input schemas declared
// in the activity registry.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	apperrors "docverify/internal/common/errors"
	"docverify/pkg/registry"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Validator holds one compiled input schema per task type. Task types
// without a schema accept anything.
type Validator struct {
	mu      sync.RWMutex
	schemas map[string]*gojsonschema.Schema
}

func NewValidator() *Validator {
	return &Validator{schemas: make(map[string]*gojsonschema.Schema)}
}

// FromRegistry compiles the input schema of every activity.
func FromRegistry(reg *registry.ActivityRegistry) (*Validator, error) {
	v := NewValidator()
	for _, a := range reg.Activities {
		if len(a.InputSchema) == 0 {
			continue
		}
		if err := v.Register(a.TaskType, a.InputSchema); err != nil {
			return nil, fmt.Errorf("activity %s: %w", a.ID, err)
		}
	}
	return v, nil
}

func (v *Validator) Register(taskType string, schema map[string]interface{}) error {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	v.mu.Lock()
	v.schemas[taskType] = compiled
	v.mu.Unlock()
	return nil
}

func (v *Validator) Check(taskType string, input interface{}) (*ValidationResult, error) {
	v.mu.RLock()
	schema, ok := v.schemas[taskType]
	v.mu.RUnlock()
	if !ok {
		return &ValidationResult{Valid: true}, nil
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(input))
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	return out, nil
}

// Validate returns an INVALID_INPUT error listing every violation.
func (v *Validator) Validate(taskType string, input interface{}) error {
	res, err := v.Check(taskType, input)
	if err != nil {
		return apperrors.NewInvalidInputError(err.Error())
	}
	if !res.Valid {
		return apperrors.NewInvalidInputError(strings.Join(res.GetErrorMessages(), "; "))
	}
	return nil
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field || strings.HasPrefix(err.Field, field+".") {
			return true
		}
	}
	return false
}

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phonePattern = regexp.MustCompile(`^\+?[\d\s\-\(\)]{10,}$`)
)

// ValidateEmail validates email format
func ValidateEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// ValidatePhone validates basic phone number format
func ValidatePhone(phone string) bool {
	return phonePattern.MatchString(phone)
}
