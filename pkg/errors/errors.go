package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown      ErrorCode = "UNKNOWN"
	ErrInternal     ErrorCode = "INTERNAL"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrIOFailure    ErrorCode = "IO_FAILURE"

	// Security errors. These always abort the operation that raised them
	// and must propagate to the orchestrating caller uncaught.
	ErrPathSecurity   ErrorCode = "PATH_SECURITY"
	ErrSymlinkRefused ErrorCode = "SYMLINK_REFUSED"
	ErrProtectedDir   ErrorCode = "PROTECTED_DIR"
	ErrArchiveBomb    ErrorCode = "ARCHIVE_BOMB"
	ErrArchiveFormat  ErrorCode = "ARCHIVE_FORMAT"
	ErrFileTooLarge   ErrorCode = "FILE_TOO_LARGE"

	// Mod and manifest errors
	ErrModNotFound     ErrorCode = "MOD_NOT_FOUND"
	ErrManifestMissing ErrorCode = "MANIFEST_MISSING"
	ErrManifestInvalid ErrorCode = "MANIFEST_INVALID"

	// Recovery errors
	ErrRestorePointNotFound ErrorCode = "RESTORE_POINT_NOT_FOUND"

	// Configuration errors
	ErrNoTarget    ErrorCode = "NO_TARGET"
	ErrConfigLoad  ErrorCode = "CONFIG_LOAD"
	ErrConfigWrite ErrorCode = "CONFIG_WRITE"
)

// ModmanError represents a structured error with code and details
type ModmanError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *ModmanError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *ModmanError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *ModmanError) Is(target error) bool {
	var targetErr *ModmanError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new ModmanError with the given code and message
func New(code ErrorCode, message string) *ModmanError {
	return &ModmanError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new ModmanError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *ModmanError {
	return &ModmanError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a ModmanError
func Wrap(err error, code ErrorCode, message string) *ModmanError {
	if err == nil {
		return nil
	}
	return &ModmanError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *ModmanError {
	if err == nil {
		return nil
	}
	return &ModmanError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *ModmanError) WithDetail(key string, value interface{}) *ModmanError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var merr *ModmanError
	if errors.As(err, &merr) {
		return merr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a ModmanError
func GetErrorCode(err error) ErrorCode {
	var merr *ModmanError
	if errors.As(err, &merr) {
		return merr.Code
	}
	return ErrUnknown
}

// IsSecurity reports whether err carries one of the security error codes
// that must never be swallowed by batch loops.
func IsSecurity(err error) bool {
	switch GetErrorCode(err) {
	case ErrPathSecurity, ErrSymlinkRefused, ErrProtectedDir, ErrArchiveBomb, ErrArchiveFormat:
		return true
	}
	return false
}
