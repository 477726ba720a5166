package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unique error code
type ErrorCode string

const (
	// Authentication Errors (1xxx)
	CodeInvalidCredentials ErrorCode = "AUTH_1001"
	CodeUnauthorized       ErrorCode = "AUTH_1002"
	CodeUserNotFound       ErrorCode = "AUTH_1003"

	// Validation Errors (2xxx)
	CodeInvalidEmail    ErrorCode = "VALID_2001"
	CodeInvalidPassword ErrorCode = "VALID_2002"
	CodeInvalidRequest  ErrorCode = "VALID_2003"

	// Conflict Errors (3xxx)
	CodeEmailTaken ErrorCode = "CONFLICT_3001"

	// Rate Limiting Errors (4xxx)
	CodeRateLimited ErrorCode = "RATE_4001"

	// Database Errors (5xxx)
	CodeDatabaseError ErrorCode = "DB_5001"

	// Server Errors (6xxx)
	CodeInternal ErrorCode = "SERVER_6001"
)

// AppError represents a structured application error
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the cause error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches AppErrors by code so wrapped instances still compare equal
// to the catalog sentinels under errors.Is.
func (e *AppError) Is(target error) bool {
	var other *AppError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// New creates a new application error
func New(code ErrorCode, message, details string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
		Cause:   cause,
	}
}

// Catalog sentinels. The 401 messages are intentionally generic: which
// sub-case occurred (expired, forged, mismatched type, vanished user)
// is for logs only, never for the client.
var (
	ErrInvalidCredentials = New(CodeInvalidCredentials, "Invalid credentials", "", nil)
	ErrUnauthorized       = New(CodeUnauthorized, "Invalid or expired token", "", nil)
	ErrUserNotFound       = New(CodeUserNotFound, "Invalid or expired token", "", nil)
	ErrEmailTaken         = New(CodeEmailTaken, "Email already registered", "", nil)
	ErrRateLimited        = New(CodeRateLimited, "Too many requests. Please try again later.", "", nil)
)

func ErrInvalidEmail() *AppError {
	return New(CodeInvalidEmail, "Invalid email format", "", nil)
}

func ErrInvalidPassword(details string) *AppError {
	return New(CodeInvalidPassword, "Invalid password", details, nil)
}

func ErrInvalidRequest(details string) *AppError {
	return New(CodeInvalidRequest, "Invalid request", details, nil)
}

func ErrDatabase(operation string, cause error) *AppError {
	return New(CodeDatabaseError, "Database operation failed", fmt.Sprintf("Operation: %s", operation), cause)
}

func ErrInternal(details string, cause error) *AppError {
	return New(CodeInternal, "Internal server error", details, cause)
}

// HTTPStatus maps an error to its HTTP status code. A user vanishing
// between token issuance and refresh surfaces as 401, not 404, so an
// unauthenticated caller cannot probe account existence.
func HTTPStatus(err error) int {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError
	}

	switch appErr.Code {
	case CodeInvalidCredentials, CodeUnauthorized, CodeUserNotFound:
		return http.StatusUnauthorized
	case CodeInvalidEmail, CodeInvalidPassword, CodeInvalidRequest:
		return http.StatusBadRequest
	case CodeEmailTaken:
		return http.StatusConflict
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeDatabaseError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
