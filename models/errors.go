package models

import (
	"errors"
	"fmt"
)

// Error codes used in API responses and internal error handling.
const (
	ErrCodeBadRequest          = "BAD_REQUEST"
	ErrCodeEngineError         = "ENGINE_ERROR"
	ErrCodeExhaustedEscalation = "EXHAUSTED_ESCALATION"
	ErrCodeResourceError       = "RESOURCE_ERROR"
	ErrCodePoolDisconnected    = "POOL_DISCONNECTED"
	ErrCodeCancelled           = "CANCELLED"
	ErrCodeRateLimited         = "RATE_LIMITED"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeNotFound            = "NOT_FOUND"
)

// CrawlError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type CrawlError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *CrawlError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CrawlError) Unwrap() error {
	return e.Err
}

// NewCrawlError creates a new CrawlError.
func NewCrawlError(code, message string, err error) *CrawlError {
	return &CrawlError{Code: code, Message: message, Err: err}
}

// NewBadRequest reports invalid caller input. Mapped to HTTP 400.
func NewBadRequest(message string) *CrawlError {
	return &CrawlError{Code: ErrCodeBadRequest, Message: message}
}

// NewEngineError wraps a failure from a named fetch engine.
func NewEngineError(engine string, err error) *CrawlError {
	return &CrawlError{Code: ErrCodeEngineError, Message: engine + " engine failed", Err: err}
}

// NewExhaustedEscalation reports that every ladder step failed or returned
// insufficient content for the given domain.
func NewExhaustedEscalation(domain string) *CrawlError {
	return &CrawlError{Code: ErrCodeExhaustedEscalation, Message: "all escalation steps failed for " + domain}
}

// NewPoolDisconnected reports a browser pool connection loss that survived
// the single reconnect retry.
func NewPoolDisconnected(err error) *CrawlError {
	return &CrawlError{Code: ErrCodePoolDisconnected, Message: "browser pool disconnected", Err: err}
}

// NewCancelled reports a caller-aborted request.
func NewCancelled(err error) *CrawlError {
	return &CrawlError{Code: ErrCodeCancelled, Message: "request cancelled", Err: err}
}

// ErrorCode extracts the CrawlError code from err, or empty when err is not
// a CrawlError.
func ErrorCode(err error) string {
	var ce *CrawlError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// UserMessage renders err as the one-line string surfaced in API responses.
func UserMessage(err error) string {
	var ce *CrawlError
	if errors.As(err, &ce) {
		if ce.Err != nil {
			return fmt.Sprintf("%s: %v", ce.Message, ce.Err)
		}
		return ce.Message
	}
	return err.Error()
}
