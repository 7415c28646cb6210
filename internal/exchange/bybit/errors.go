package bybit

import (
	"fmt"
	"net/http"
)

// APIError represents a Bybit API error with its retCode.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("Bybit API error %d: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("Bybit API error %d: %s", e.Code, e.Message)
}

// Error codes relevant to market-data access.
const (
	ErrCodeInvalidAPIKey     = 10003
	ErrCodeInvalidSignature  = 10004
	ErrCodeInvalidTimestamp  = 10005
	ErrCodeRateLimitExceeded = 10006
	ErrCodeSymbolNotFound    = 110009
)

// IsRetryableError reports whether the error is transient.
func IsRetryableError(err error) bool {
	apiErr, ok := err.(*APIError)
	if !ok {
		return false
	}
	switch apiErr.Code {
	case ErrCodeRateLimitExceeded,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// IsRateLimitError reports whether the error is a rate-limit rejection.
func IsRateLimitError(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.Code == ErrCodeRateLimitExceeded
}

// NewAPIError creates a new APIError.
func NewAPIError(code int, message string, details ...string) *APIError {
	err := &APIError{Code: code, Message: message}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

// WrapAPIError attaches the failed operation to an error.
func WrapAPIError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if apiErr, ok := err.(*APIError); ok {
		apiErr.Details = fmt.Sprintf("Operation: %s", operation)
		return apiErr
	}
	return fmt.Errorf("%s failed: %w", operation, err)
}

// ParseAPIError converts a non-zero retCode into an error.
func ParseAPIError(retCode int, retMsg string) error {
	if retCode == 0 {
		return nil
	}
	return NewAPIError(retCode, retMsg)
}
