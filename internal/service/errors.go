package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/fadilmartias/cv-builder/internal/apperror"
)

var (
	ErrEmptyResponse      = errors.New("model returned an empty response")
	ErrCircuitOpen        = errors.New("circuit breaker open")
	ErrProviderNotEnabled = errors.New("AI provider not configured")
)

// ProviderError is a failed call to an external model API.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Cause      error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Cause }

func (e *ProviderError) RateLimited() bool  { return e.StatusCode == http.StatusTooManyRequests }
func (e *ProviderError) AccessDenied() bool { return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden }
func (e *ProviderError) NotFound() bool     { return e.StatusCode == http.StatusNotFound }

// AsAppError maps a provider failure to the client-facing error taxonomy.
func AsAppError(err error, fallback string) *apperror.Error {
	if err == nil {
		return nil
	}
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperror.Wrap(apperror.CodeExternalService, "AI service timed out", err)
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		switch {
		case pe.RateLimited():
			return apperror.Wrap(apperror.CodeRateLimited, "AI service rate limit reached, please try again later", err)
		case pe.AccessDenied():
			return apperror.Wrap(apperror.CodeExternalAccessDenied, "AI service denied access", err)
		case pe.NotFound():
			return apperror.Wrap(apperror.CodeExternalNotFound, "AI model not found", err)
		}
	}
	return apperror.Wrap(apperror.CodeExternalService, fallback, err)
}
