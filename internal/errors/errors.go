package errors

import (
	"fmt"
	"time"
)

// ErrCode represents an error code
type ErrCode string

const (
	ErrCodeInvalidOrganization ErrCode = "INVALID_ORGANIZATION"
	ErrCodeUnauthorized        ErrCode = "UNAUTHORIZED"
	ErrCodeRateLimited         ErrCode = "RATE_LIMITED"
	ErrCodeProcessing          ErrCode = "PROCESSING"
	ErrCodeNotFound            ErrCode = "NOT_FOUND"
	ErrCodeInternal            ErrCode = "INTERNAL_ERROR"
)

// AppError represents an application error. Every surfaced error carries the
// organization name that was searched; rate-limit errors additionally carry
// the upstream reset time.
type AppError struct {
	Code         ErrCode
	Message      string
	Organization string
	ResetAt      time.Time
	Err          error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewInvalidOrganizationError creates an error for a name validation found
// nothing for
func NewInvalidOrganizationError(organization string) *AppError {
	return &AppError{
		Code:         ErrCodeInvalidOrganization,
		Message:      "the transferred organization name is incorrect",
		Organization: organization,
	}
}

// NewUnauthorizedError creates an error for rejected upstream credentials
func NewUnauthorizedError(organization string) *AppError {
	return &AppError{
		Code:         ErrCodeUnauthorized,
		Message:      "the configured API token was rejected upstream",
		Organization: organization,
	}
}

// NewRateLimitedError creates an error for an exhausted rate budget
func NewRateLimitedError(organization string, resetAt time.Time) *AppError {
	return &AppError{
		Code:         ErrCodeRateLimited,
		Message:      fmt.Sprintf("no remaining rate limit, refreshed at %s", resetAt.Format(time.RFC3339)),
		Organization: organization,
		ResetAt:      resetAt,
	}
}

// NewProcessingError creates an error signalling the organization is still
// being crawled
func NewProcessingError(organization string) *AppError {
	return &AppError{
		Code:         ErrCodeProcessing,
		Message:      "the transferred organization is being processed",
		Organization: organization,
	}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
		Err:     err,
	}
}

// IsProcessing checks if the error signals an in-flight crawl
func IsProcessing(err error) bool {
	return hasCode(err, ErrCodeProcessing)
}

// IsRateLimited checks if the error is a rate limited error
func IsRateLimited(err error) bool {
	return hasCode(err, ErrCodeRateLimited)
}

// IsInvalidOrganization checks if the error is a failed name validation
func IsInvalidOrganization(err error) bool {
	return hasCode(err, ErrCodeInvalidOrganization)
}

// IsUnauthorized checks if the error is a credentials rejection
func IsUnauthorized(err error) bool {
	return hasCode(err, ErrCodeUnauthorized)
}

func hasCode(err error, code ErrCode) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == code
	}
	return false
}
