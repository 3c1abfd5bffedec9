package util

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spec-kit/sla-engine/internal/domain"
	"github.com/spec-kit/sla-engine/internal/repository"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts engine and repository errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}

	var illegal *domain.IllegalTransitionError
	if errors.As(err, &illegal) {
		return &DomainError{
			Code:       "ILLEGAL_TRANSITION",
			Message:    illegal.Error(),
			HTTPStatus: http.StatusConflict,
			Details:    map[string]any{"from": illegal.From, "event": illegal.Event},
		}
	}
	var noPolicy *domain.PolicyNotFoundError
	if errors.As(err, &noPolicy) {
		return &DomainError{
			Code:       "POLICY_NOT_FOUND",
			Message:    noPolicy.Error(),
			HTTPStatus: http.StatusUnprocessableEntity,
		}
	}
	var concurrent *domain.ConcurrentModificationError
	if errors.As(err, &concurrent) {
		return &DomainError{
			Code:       "CONCURRENT_MODIFICATION",
			Message:    concurrent.Error(),
			HTTPStatus: http.StatusConflict,
			Details:    map[string]any{"ticket_id": concurrent.TicketID},
		}
	}
	var invalidPolicy *domain.InvalidPolicyConfigurationError
	if errors.As(err, &invalidPolicy) {
		return &DomainError{
			Code:       "INVALID_POLICY_CONFIGURATION",
			Message:    invalidPolicy.Error(),
			HTTPStatus: http.StatusBadRequest,
		}
	}
	if errors.Is(err, repository.ErrNotFound) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}

	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}
