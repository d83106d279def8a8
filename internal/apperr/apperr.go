package apperr

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// AppError is an error that knows how it should be presented to an API client.
type AppError interface {
	error
	HTTPCode() int     // HTTP status code
	ErrorCode() string // Machine readable error code
	Message() string   // Human readable message
	Details() any      // Optional structured detail
}

// Error is the concrete AppError used throughout the service.
type Error struct {
	httpCode  int
	errorCode string
	message   string
	details   any
	cause     error
}

// New creates an Error.
func New(httpCode int, errorCode, message string) *Error {
	return &Error{httpCode: httpCode, errorCode: errorCode, message: message}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

func (e *Error) HTTPCode() int     { return e.httpCode }
func (e *Error) ErrorCode() string { return e.errorCode }
func (e *Error) Message() string   { return e.message }
func (e *Error) Details() any      { return e.details }

// Unwrap exposes the underlying cause, if any.
func (e *Error) Unwrap() error { return e.cause }

// WithDetails returns a copy of e carrying details.
func (e *Error) WithDetails(details any) *Error {
	cp := *e
	cp.details = details
	return &cp
}

// WithCause returns a copy of e wrapping cause.
func (e *Error) WithCause(cause error) *Error {
	cp := *e
	cp.cause = cause
	return &cp
}

// Error codes.
const (
	CodeAuthenticationFailed = "AUTHENTICATION_FAILED"
	CodeInvalidToken         = "INVALID_TOKEN"
	CodeForbidden            = "FORBIDDEN"
	CodeInactiveAccount      = "INACTIVE_ACCOUNT"
	CodeMachineMaintenance   = "MACHINE_MAINTENANCE"
	CodeValidation           = "VALIDATION_ERROR"
	CodeBadRequest           = "BAD_REQUEST"
	CodeNotFound             = "NOT_FOUND"
	CodeConflict             = "CONFLICT"
	CodeDatabase             = "DATABASE_ERROR"
	CodeNotImplemented       = "NOT_IMPLEMENTED"
	CodeServer               = "SERVER_ERROR"
	CodeRateLimited          = "RATE_LIMITED"
)

var (
	ErrInvalidCredentials = New(http.StatusUnauthorized, CodeAuthenticationFailed, "Incorrect username or password")
	ErrInvalidToken       = New(http.StatusUnauthorized, CodeInvalidToken, "Could not validate credentials")
	ErrForbidden          = New(http.StatusForbidden, CodeForbidden, "Not enough permissions")
	ErrInactiveUser       = New(http.StatusForbidden, CodeInactiveAccount, "Inactive user")
	ErrMachineMaintenance = New(http.StatusForbidden, CodeMachineMaintenance, "Machine is in maintenance mode")
	ErrInternal           = New(http.StatusInternalServerError, CodeServer, "Internal server error")
	ErrRateLimited        = New(http.StatusTooManyRequests, CodeRateLimited, "Too many requests")
)

// Validation reports malformed input rejected before any write.
func Validation(message string, details any) *Error {
	return New(http.StatusUnprocessableEntity, CodeValidation, message).WithDetails(details)
}

// BadRequest reports a request that is well formed but not acceptable.
func BadRequest(message string) *Error {
	return New(http.StatusBadRequest, CodeBadRequest, message)
}

// NotFound reports an entity that does not exist or is out of the caller's scope.
func NotFound(entity string) *Error {
	return New(http.StatusNotFound, CodeNotFound, entity+" not found")
}

// Conflict reports a uniqueness violation.
func Conflict(message string) *Error {
	return New(http.StatusConflict, CodeConflict, message)
}

// Unimplemented reports a recognised but unsupported option.
func Unimplemented(message string) *Error {
	return New(http.StatusNotImplemented, CodeNotImplemented, message)
}

// Storage wraps a database failure. The cause is kept for logging only.
func Storage(cause error) *Error {
	return New(http.StatusInternalServerError, CodeDatabase, "Database error occurred").WithCause(cause)
}

// As extracts an AppError from err's chain.
func As(err error) (AppError, bool) {
	var appErr AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// FromStorage converts an error returned by the store into an AppError.
// entity names the thing that was looked up, for not-found messages.
func FromStorage(err error, entity string) error {
	if err == nil {
		return nil
	}
	if _, ok := As(err); ok {
		return err
	}
	switch cause := errors.Cause(err); {
	case stderrors.Is(err, gorm.ErrRecordNotFound) || stderrors.Is(cause, gorm.ErrRecordNotFound):
		return NotFound(entity)
	case stderrors.Is(err, gorm.ErrDuplicatedKey) || stderrors.Is(cause, gorm.ErrDuplicatedKey):
		return Conflict(entity + " already exists")
	default:
		return Storage(err)
	}
}
