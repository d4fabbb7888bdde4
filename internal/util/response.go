package util

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/fadilmartias/cv-builder/internal/apperror"
	"github.com/fadilmartias/cv-builder/internal/config"
	"github.com/fadilmartias/cv-builder/internal/response"
	"github.com/fadilmartias/cv-builder/internal/schema"
	"github.com/gofiber/fiber/v2"
)

type SuccessResponseFormat struct {
	Code       int
	Message    string
	Data       any
	Pagination *response.Pagination
	Meta       any
}

type OrderedSuccessResponse struct {
	Success    bool                 `json:"success"`
	Message    string               `json:"message"`
	Meta       any                  `json:"meta,omitempty"`
	Pagination *response.Pagination `json:"pagination,omitempty"`
	Data       any                  `json:"data,omitempty"`
}

type ErrorResponseFormat struct {
	Code       int
	ErrorCode  apperror.Code
	Message    string
	DevMessage string
	Details    any
	Trace      string
}

type OrderedErrorResponse struct {
	Success    bool          `json:"success"`
	Message    string        `json:"message"`
	Error      apperror.Code `json:"error"`
	DevMessage string        `json:"dev_message,omitempty"`
	Details    any           `json:"details,omitempty"`
	Trace      string        `json:"trace,omitempty"`
}

// FormError carries per-field request validation messages.
type FormError struct {
	Errors  map[string]string
	Message string
}

func (e *FormError) Error() string {
	return fmt.Sprintf("form error: %s", e.Message)
}

func NewFormError(message string, errors map[string]string) *FormError {
	return &FormError{
		Message: message,
		Errors:  errors,
	}
}

// SuccessResponse mengirim response JSON standar untuk sukses
func SuccessResponse(c *fiber.Ctx, params SuccessResponseFormat) error {
	response := OrderedSuccessResponse{
		Success:    true,
		Message:    params.Message,
		Data:       params.Data,
		Pagination: params.Pagination,
		Meta:       params.Meta,
	}
	code := params.Code
	if code == 0 {
		code = fiber.StatusOK
	}
	return c.Status(code).JSON(response)
}

// ErrorResponse mengirim response JSON standar untuk error
func ErrorResponse(c *fiber.Ctx, params ErrorResponseFormat, errs ...error) error {
	errorCode := params.ErrorCode
	if errorCode == "" {
		errorCode = apperror.CodeInternal
	}
	response := OrderedErrorResponse{
		Success: false,
		Message: params.Message,
		Error:   errorCode,
	}
	if params.Details != nil {
		response.Details = params.Details
	}
	if config.LoadAppConfig().ExposeErrors() {
		if len(errs) > 0 && errs[0] != nil {
			response.DevMessage = errs[0].Error()
			if response.Details == nil {
				response.Details = errs[0].Error()
			}
			response.Trace = string(debug.Stack())
		}

		if params.DevMessage != "" {
			response.DevMessage = params.DevMessage
		}
		if params.Trace != "" {
			response.Trace = params.Trace
		}
	}

	status := params.Code
	if status == 0 {
		status = fiber.StatusInternalServerError
	}
	return c.Status(status).JSON(response)
}

// AppErrorResponse renders any error through the apperror taxonomy.
// Validation and form errors expose their field list as details in every
// environment.
func AppErrorResponse(c *fiber.Ctx, err error) error {
	appErr := apperror.From(err)
	params := ErrorResponseFormat{
		Code:      appErr.Status(),
		ErrorCode: appErr.Code,
		Message:   appErr.Message,
	}
	if appErr.Details != "" {
		params.Details = appErr.Details
	}

	var verr *schema.ValidationError
	var ferr *FormError
	switch {
	case errors.As(err, &verr):
		params.Details = verr.Errors
	case errors.As(err, &ferr):
		params.Details = ferr.Errors
	}
	return ErrorResponse(c, params, appErr.Cause)
}
