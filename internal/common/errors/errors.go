// internal/common/errors/errors.go
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ErrorCode identifies an error class across workers and BPMN boundary events.
type ErrorCode string

const (
	// Decision pipeline
	ErrCodeDecode                   ErrorCode = "DECODE_ERROR"
	ErrCodeModelUnavailable         ErrorCode = "MODEL_UNAVAILABLE"
	ErrCodeRegistryLookupFailed     ErrorCode = "REGISTRY_LOOKUP_FAILED"
	ErrCodeFileTooLarge             ErrorCode = "FILE_TOO_LARGE"
	ErrCodeArtifactGenerationFailed ErrorCode = "ARTIFACT_GENERATION_FAILED"

	// Lifecycle
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	ErrCodeInvalidState      ErrorCode = "INVALID_STATE"
	ErrCodeVersionConflict   ErrorCode = "VERSION_CONFLICT"
	ErrCodeDuplicateID       ErrorCode = "DUPLICATE_ID"
	ErrCodeInvalidInput      ErrorCode = "INVALID_INPUT"

	// Infrastructure
	ErrCodeDatabase           ErrorCode = "DATABASE_ERROR"
	ErrCodeStorage            ErrorCode = "STORAGE_ERROR"
	ErrCodeNotificationFailed ErrorCode = "NOTIFICATION_FAILED"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
)

// Sentinels usable with errors.Is. Constructors below wrap them so that a
// StandardError still matches its sentinel after crossing package boundaries.
var (
	ErrDecode             = stderrors.New("DECODE_ERROR")
	ErrModelUnavailable   = stderrors.New("MODEL_UNAVAILABLE")
	ErrRegistryLookup     = stderrors.New("REGISTRY_LOOKUP_FAILED")
	ErrFileTooLarge       = stderrors.New("FILE_TOO_LARGE")
	ErrArtifactGeneration = stderrors.New("ARTIFACT_GENERATION_FAILED")
	ErrNotFound           = stderrors.New("NOT_FOUND")
	ErrInvalidTransition  = stderrors.New("INVALID_TRANSITION")
	ErrInvalidState       = stderrors.New("INVALID_STATE")
	ErrConflict           = stderrors.New("VERSION_CONFLICT")
	ErrDuplicate          = stderrors.New("DUPLICATE_ID")
	ErrInvalidInput       = stderrors.New("INVALID_INPUT")
	ErrDatabase           = stderrors.New("DATABASE_ERROR")
	ErrStorage            = stderrors.New("STORAGE_ERROR")
	ErrNotification       = stderrors.New("NOTIFICATION_FAILED")
)

var sentinelCodes = []struct {
	err  error
	code ErrorCode
}{
	{ErrDecode, ErrCodeDecode},
	{ErrModelUnavailable, ErrCodeModelUnavailable},
	{ErrRegistryLookup, ErrCodeRegistryLookupFailed},
	{ErrFileTooLarge, ErrCodeFileTooLarge},
	{ErrArtifactGeneration, ErrCodeArtifactGenerationFailed},
	{ErrNotFound, ErrCodeNotFound},
	{ErrInvalidTransition, ErrCodeInvalidTransition},
	{ErrInvalidState, ErrCodeInvalidState},
	{ErrConflict, ErrCodeVersionConflict},
	{ErrDuplicate, ErrCodeDuplicateID},
	{ErrInvalidInput, ErrCodeInvalidInput},
	{ErrDatabase, ErrCodeDatabase},
	{ErrStorage, ErrCodeStorage},
	{ErrNotification, ErrCodeNotificationFailed},
}

// StandardError is the structured error returned by services and workers.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// BPMNError is the shape thrown back to the process engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

func newError(code ErrorCode, sentinel error, message, details string, retryable bool, cause error) *StandardError {
	wrapped := sentinel
	if cause != nil {
		wrapped = fmt.Errorf("%w: %w", sentinel, cause)
	}
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     wrapped,
	}
}

func detailsOf(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func NewDecodeError(err error) *StandardError {
	return newError(ErrCodeDecode, ErrDecode, "Image could not be decoded", detailsOf(err), false, err)
}

func NewModelUnavailableError(err error) *StandardError {
	return newError(ErrCodeModelUnavailable, ErrModelUnavailable, "Scoring artifacts unavailable", detailsOf(err), false, err)
}

func NewRegistryLookupError(err error) *StandardError {
	return newError(ErrCodeRegistryLookupFailed, ErrRegistryLookup, "Registry lookup failed", detailsOf(err), true, err)
}

func NewFileTooLargeError(size, limit int64) *StandardError {
	return newError(ErrCodeFileTooLarge, ErrFileTooLarge, "Document exceeds maximum file size",
		fmt.Sprintf("size: %d, limit: %d", size, limit), false, nil)
}

func NewArtifactGenerationError(err error) *StandardError {
	return newError(ErrCodeArtifactGenerationFailed, ErrArtifactGeneration, "Certificate synthesis failed", detailsOf(err), false, err)
}

func NewNotFoundError(kind, id string) *StandardError {
	e := newError(ErrCodeNotFound, ErrNotFound, fmt.Sprintf("%s not found", kind), fmt.Sprintf("id: %s", id), false, nil)
	e.Metadata = map[string]interface{}{"kind": kind, "id": id}
	return e
}

func NewInvalidTransitionError(from, to string) *StandardError {
	e := newError(ErrCodeInvalidTransition, ErrInvalidTransition, "Status transition not allowed",
		fmt.Sprintf("from: %s, to: %s", from, to), false, nil)
	e.Metadata = map[string]interface{}{"from": from, "to": to}
	return e
}

// NewInvalidStateError reports an operation the record's current status does
// not permit, e.g. downloading a case that was never issued.
func NewInvalidStateError(kind, id, status string) *StandardError {
	e := newError(ErrCodeInvalidState, ErrInvalidState, fmt.Sprintf("%s is not in a valid state for this operation", kind),
		fmt.Sprintf("id: %s, status: %s", id, status), false, nil)
	e.Metadata = map[string]interface{}{"kind": kind, "id": id, "status": status}
	return e
}

func NewConflictError(id string, version int64) *StandardError {
	return newError(ErrCodeVersionConflict, ErrConflict, "Record was modified concurrently",
		fmt.Sprintf("id: %s, expectedVersion: %d", id, version), true, nil)
}

// NewDuplicateError reports an insert whose generated id is already taken.
// The caller picks a fresh id, so it is retryable.
func NewDuplicateError(kind, id string) *StandardError {
	e := newError(ErrCodeDuplicateID, ErrDuplicate, fmt.Sprintf("%s id already exists", kind), fmt.Sprintf("id: %s", id), true, nil)
	e.Metadata = map[string]interface{}{"kind": kind, "id": id}
	return e
}

func NewInvalidInputError(details string) *StandardError {
	return newError(ErrCodeInvalidInput, ErrInvalidInput, "Invalid input", details, false, nil)
}

func NewDatabaseError(op string, err error) *StandardError {
	return newError(ErrCodeDatabase, ErrDatabase, fmt.Sprintf("Database operation '%s' failed", op), detailsOf(err), true, err)
}

func NewStorageError(op string, err error) *StandardError {
	return newError(ErrCodeStorage, ErrStorage, fmt.Sprintf("Object storage operation '%s' failed", op), detailsOf(err), true, err)
}

func NewNotificationFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationFailed, ErrNotification, "Notification delivery failed",
		fmt.Sprintf("channel: %s, error: %s", channel, detailsOf(err)), true, err)
}

// FromError classifies any error into a StandardError. Plain errors wrapping
// one of the sentinels keep that sentinel's code.
func FromError(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	for _, sc := range sentinelCodes {
		if stderrors.Is(err, sc.err) {
			return &StandardError{
				Code:      sc.code,
				Message:   err.Error(),
				Retryable: IsRetryableErrorCode(sc.code),
				Timestamp: time.Now().UTC(),
				cause:     err,
			}
		}
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// GetRetryCount is the number of job retries granted to an error code.
// Business outcomes get none and surface as BPMN errors.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabase,
		ErrCodeStorage,
		ErrCodeNotificationFailed,
		ErrCodeRegistryLookupFailed:
		return 3
	case ErrCodeVersionConflict, ErrCodeDuplicateID:
		return 2
	default:
		return 0
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}
	vars := map[string]interface{}{
		"errorCategory": GetErrorCategory(stdErr.Code),
		"timestamp":     stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}
	return &BPMNError{
		Code:           string(stdErr.Code),
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "DECODE") || strings.Contains(codeStr, "MODEL") || strings.Contains(codeStr, "FILE"):
		return "DECISION"
	case strings.Contains(codeStr, "REGISTRY") || strings.Contains(codeStr, "ARTIFACT"):
		return "ISSUANCE"
	case strings.Contains(codeStr, "TRANSITION") || strings.Contains(codeStr, "STATE") || strings.Contains(codeStr, "CONFLICT") || strings.Contains(codeStr, "NOT_FOUND"):
		return "LIFECYCLE"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "STORAGE") || strings.Contains(codeStr, "DUPLICATE"):
		return "PERSISTENCE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
