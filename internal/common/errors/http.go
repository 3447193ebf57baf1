// internal/common/errors/http.go
package errors

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
)

// ErrorResponse is the JSON body returned for every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// HTTPStatus maps an error to the status code the API answers with.
func HTTPStatus(err error) int {
	stdErr, ok := AsStandardError(err)
	if !ok {
		if isNetworkError(err) {
			return http.StatusServiceUnavailable
		}
		return http.StatusInternalServerError
	}

	switch stdErr.Code {
	case ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeConfiguration, ErrCodeAuthentication:
		return http.StatusInternalServerError
	case ErrCodePermissionDenied, ErrCodeRetrievalForbidden:
		return http.StatusForbidden
	case ErrCodeRetrievalNotFound:
		return http.StatusNotFound
	case ErrCodeRetrievalFailed:
		return http.StatusBadGateway
	case ErrCodeNetwork:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message safe to show callers.
func PublicMessage(err error) string {
	stdErr, ok := AsStandardError(err)
	if !ok {
		if isNetworkError(err) {
			return "Network error connecting to RAG Engine. Please try again."
		}
		return "Internal server error"
	}

	switch stdErr.Code {
	case ErrCodeConfiguration:
		return "Configuration error: " + stdErr.Message
	case ErrCodeInternal:
		return "Internal server error"
	default:
		return stdErr.Message
	}
}

// NewErrorResponse builds the error body. Details are only exposed outside production.
func NewErrorResponse(err error, production bool) ErrorResponse {
	resp := ErrorResponse{Error: PublicMessage(err)}
	if !production {
		if stdErr, ok := AsStandardError(err); ok {
			resp.Details = stdErr.Details
		} else {
			resp.Details = err.Error()
		}
	}
	return resp
}

func isNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return stderrors.As(err, &netErr)
}
