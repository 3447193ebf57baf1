// Package errors provides the standardized error taxonomy shared by the HTTP API and the Zeebe workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidation    ErrorCode = "VALIDATION_ERROR"
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"

	ErrCodeAuthentication   ErrorCode = "AUTHENTICATION_ERROR"
	ErrCodePermissionDenied ErrorCode = "PERMISSION_DENIED"

	ErrCodeRetrievalNotFound  ErrorCode = "RETRIEVAL_NOT_FOUND"
	ErrCodeRetrievalForbidden ErrorCode = "RETRIEVAL_FORBIDDEN"
	ErrCodeRetrievalFailed    ErrorCode = "RETRIEVAL_FAILED"
	ErrCodeNetwork            ErrorCode = "NETWORK_ERROR"

	ErrCodeLLMTimeout          ErrorCode = "LLM_TIMEOUT"
	ErrCodeLLMSynthesisFailed  ErrorCode = "LLM_SYNTHESIS_FAILED"
	ErrCodeSynthesisExhausted  ErrorCode = "SYNTHESIS_EXHAUSTED"
	ErrCodeAnswerSchemaInvalid ErrorCode = "ANSWER_SCHEMA_INVALID"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// AsStandardError extracts a StandardError from an error chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := AsStandardError(err)
	return ok && stdErr.Code == code
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
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

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
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

// ==========================
// 3. Error Constructors
// ==========================

// NewValidationError creates a non-retryable request validation error.
// The message is surfaced verbatim to callers.
func NewValidationError(message string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidation,
		Message:   message,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewConfigurationError names the deployment parameter that could not be resolved.
func NewConfigurationError(field string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfiguration,
		Message:   fmt.Sprintf("%s environment variable is not set", field),
		Details:   fmt.Sprintf("field: %s", field),
		Retryable: false,
		Metadata:  map[string]interface{}{"field": field},
		Timestamp: time.Now().UTC(),
	}
}

// NewAuthenticationError is returned when no backend credential could be obtained.
// Denials are classified separately so callers receive a 403.
func NewAuthenticationError(err error) *StandardError {
	code := ErrCodeAuthentication
	msg := "Failed to obtain access token"
	if isPermissionDenied(err) {
		code = ErrCodePermissionDenied
		msg = "Permission denied. Check service account permissions."
	}
	return &StandardError{
		Code:      code,
		Message:   msg,
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewRetrievalError maps a retrieval backend status code to the taxonomy.
func NewRetrievalError(status int, details string) *StandardError {
	switch status {
	case 404:
		return &StandardError{
			Code:      ErrCodeRetrievalNotFound,
			Message:   "RAG Engine not found. Check your RAG_ENGINE_ID configuration.",
			Details:   details,
			Retryable: false,
			Timestamp: time.Now().UTC(),
		}
	case 403:
		return &StandardError{
			Code:      ErrCodeRetrievalForbidden,
			Message:   "Permission denied. Check service account permissions.",
			Details:   details,
			Retryable: false,
			Timestamp: time.Now().UTC(),
		}
	default:
		return &StandardError{
			Code:      ErrCodeRetrievalFailed,
			Message:   fmt.Sprintf("RAG Engine API error (%d)", status),
			Details:   details,
			Retryable: true,
			Metadata:  map[string]interface{}{"status": status},
			Timestamp: time.Now().UTC(),
		}
	}
}

// NewRetrievalFailedError wraps a backend failure that carries no HTTP status.
func NewRetrievalFailedError(backend string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRetrievalFailed,
		Message:   fmt.Sprintf("Retrieval backend '%s' error", backend),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewNetworkError creates a retryable transport error.
func NewNetworkError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNetwork,
		Message:   "Network error connecting to RAG Engine. Please try again.",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewLLMTimeoutError marks one provider attempt that exceeded its deadline.
func NewLLMTimeoutError(region, model string) *StandardError {
	return &StandardError{
		Code:      ErrCodeLLMTimeout,
		Message:   "LLM synthesis timeout",
		Details:   fmt.Sprintf("region: %s, model: %s", region, model),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewLLMSynthesisFailedError marks one provider attempt that failed.
func NewLLMSynthesisFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeLLMSynthesisFailed,
		Message:   "LLM synthesis API error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewSynthesisExhaustedError records that every provider failed.
func NewSynthesisExhaustedError(attempts int, lastErr error) *StandardError {
	details := fmt.Sprintf("attempts: %d", attempts)
	if lastErr != nil {
		details = fmt.Sprintf("%s, last error: %s", details, lastErr.Error())
	}
	return &StandardError{
		Code:      ErrCodeSynthesisExhausted,
		Message:   "All synthesis providers failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     lastErr,
	}
}

// NewAnswerSchemaInvalidError is returned when an assembled answer violates the response contract.
func NewAnswerSchemaInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAnswerSchemaInvalid,
		Message:   "Answer failed response schema validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func isPermissionDenied(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "permission denied") ||
		strings.Contains(msg, "permission_denied") ||
		strings.Contains(msg, "forbidden")
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeValidation:          "RAG_VALIDATION_FAILED",
	ErrCodeConfiguration:       "RAG_CONFIGURATION_MISSING",
	ErrCodeAuthentication:      "RAG_AUTHENTICATION_FAILED",
	ErrCodePermissionDenied:    "RAG_PERMISSION_DENIED",
	ErrCodeRetrievalNotFound:   "RAG_CORPUS_NOT_FOUND",
	ErrCodeRetrievalForbidden:  "RAG_PERMISSION_DENIED",
	ErrCodeRetrievalFailed:     "RAG_RETRIEVAL_FAILED",
	ErrCodeNetwork:             "RAG_NETWORK_ERROR",
	ErrCodeLLMTimeout:          "LLM_TIMEOUT",
	ErrCodeLLMSynthesisFailed:  "LLM_SYNTHESIS_FAILED",
	ErrCodeSynthesisExhausted:  "LLM_SYNTHESIS_EXHAUSTED",
	ErrCodeAnswerSchemaInvalid: "RAG_ANSWER_INVALID",
}

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeRetrievalFailed,
		ErrCodeNetwork,
		ErrCodeLLMSynthesisFailed:
		return 3

	case ErrCodeLLMTimeout:
		return 1

	default:
		return 0 // Business errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "VALIDATION"), strings.Contains(codeStr, "SCHEMA"):
		return "VALIDATION"
	case strings.Contains(codeStr, "CONFIGURATION"):
		return "CONFIGURATION"
	case strings.Contains(codeStr, "AUTHENTICATION"), strings.Contains(codeStr, "PERMISSION"):
		return "AUTH"
	case strings.Contains(codeStr, "RETRIEVAL"), strings.Contains(codeStr, "NETWORK"):
		return "RETRIEVAL"
	case strings.Contains(codeStr, "LLM"), strings.Contains(codeStr, "SYNTHESIS"):
		return "AI"
	default:
		return "OTHER"
	}
}
