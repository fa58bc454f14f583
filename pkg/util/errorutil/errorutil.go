package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// Failure codes raised by the conversation engine. Everything carrying one of
// these is converted to a user-facing reply at the dialogue router boundary;
// nothing escapes to the channel adapter as an unhandled fault.
const (
	CodeLowConfidence           = "CLASSIFICATION_LOW_CONFIDENCE"
	CodeSessionStoreUnavailable = "SESSION_STORE_UNAVAILABLE"
	CodeDocumentIndexMiss       = "DOCUMENT_INDEX_MISS"
	CodeModelProviderTimeout    = "MODEL_PROVIDER_TIMEOUT"
	CodeIncompleteTicketFields  = "INCOMPLETE_TICKET_FIELDS"
	CodeTicketSinkUnavailable   = "TICKET_SINK_UNAVAILABLE"
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

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

// NewSessionStoreUnavailable marks a failed session read or write. The
// router fails closed on this: transient reply, no fabricated session.
func NewSessionStoreUnavailable(err error) error {
	return &DomainError{
		Code:       CodeSessionStoreUnavailable,
		Message:    "session store unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

// NewModelProviderTimeout marks a timed-out or cancelled model-provider call.
func NewModelProviderTimeout(err error) error {
	return &DomainError{
		Code:       CodeModelProviderTimeout,
		Message:    "model provider timed out",
		HTTPStatus: http.StatusGatewayTimeout,
		Err:        err,
	}
}

// NewIncompleteTicketFields marks a submission attempt on a draft missing
// required fields.
func NewIncompleteTicketFields(missing []string) error {
	return &DomainError{
		Code:       CodeIncompleteTicketFields,
		Message:    "ticket draft incomplete",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"missing": missing},
	}
}

// NewTicketSinkUnavailable marks a failed publish to the ticketing backend.
// The SUBMITTED record stays durable locally and is retried.
func NewTicketSinkUnavailable(err error) error {
	return &DomainError{
		Code:       CodeTicketSinkUnavailable,
		Message:    "ticket submission sink unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// HasCode reports whether err carries the given domain code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return false
	}
	return domainErr.Code == code
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}
