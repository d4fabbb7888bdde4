// Package apperror defines the error codes returned to API clients.
package apperror

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

type Code string

const (
	CodeInvalidInput         Code = "INVALID_INPUT"
	CodeValidationFailed     Code = "VALIDATION_FAILED"
	CodeExternalService      Code = "EXTERNAL_SERVICE_ERROR"
	CodePersistence          Code = "PERSISTENCE_ERROR"
	CodeAdaptationFailed     Code = "ADAPTATION_FAILED"
	CodeInvalidFigmaLink     Code = "INVALID_FIGMA_LINK"
	CodeMethodNotAllowed     Code = "METHOD_NOT_ALLOWED"
	CodeNotFound             Code = "NOT_FOUND"
	CodeConflict             Code = "CONFLICT"
	CodeUnauthorized         Code = "UNAUTHORIZED"
	CodeFeatureDisabled      Code = "FEATURE_DISABLED"
	CodeInternal             Code = "INTERNAL_ERROR"
	CodeRateLimited          Code = "RATE_LIMITED"
	CodeExternalAccessDenied Code = "EXTERNAL_ACCESS_DENIED"
	CodeExternalNotFound     Code = "EXTERNAL_NOT_FOUND"
)

// Error is a user-facing failure. Message is safe to show; Details is an
// optional diagnostic string; Cause never leaves the process.
type Error struct {
	Code    Code
	Message string
	Details string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Status maps the code to an HTTP status.
func (e *Error) Status() int {
	switch e.Code {
	case CodeInvalidInput, CodeInvalidFigmaLink:
		return fiber.StatusBadRequest
	case CodeValidationFailed, CodeAdaptationFailed:
		return fiber.StatusUnprocessableEntity
	case CodeExternalService, CodeExternalAccessDenied, CodeExternalNotFound:
		return fiber.StatusBadGateway
	case CodeRateLimited:
		return fiber.StatusTooManyRequests
	case CodeMethodNotAllowed:
		return fiber.StatusMethodNotAllowed
	case CodeNotFound:
		return fiber.StatusNotFound
	case CodeConflict:
		return fiber.StatusConflict
	case CodeUnauthorized:
		return fiber.StatusUnauthorized
	case CodeFeatureDisabled:
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func (e *Error) WithDetails(details string) *Error {
	e.Details = details
	return e
}

// From returns err as an *Error, wrapping unknown errors as INTERNAL_ERROR.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(CodeInternal, "Internal Server Error", err)
}

// CodeOf reports the code carried by err, or "" when err is not an *Error.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
