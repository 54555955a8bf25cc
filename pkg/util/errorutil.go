package util

import (
	"errors"
	"fmt"
	"net/http"
)

// Failure codes surfaced to API callers. Each lifecycle failure maps to
// exactly one code so callers can tell, e.g., an expired voucher from an
// already redeemed one.
const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeInvalidLineItem     = "INVALID_LINE_ITEM"
	CodeMalformedPayload    = "MALFORMED_PAYLOAD"
	CodeSignatureMismatch   = "SIGNATURE_MISMATCH"
	CodeTicketNotFound      = "TICKET_NOT_FOUND"
	CodeAlreadyRedeemed     = "ALREADY_REDEEMED"
	CodeExpired             = "EXPIRED"
	CodeDuplicateIdentifier = "DUPLICATE_IDENTIFIER"
	CodeStorageError        = "STORAGE_ERROR"
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

func NewInvalidRequest(message string, details map[string]any) error {
	return NewDomainError(CodeInvalidRequest, message, http.StatusBadRequest, details)
}

func NewInvalidLineItem(message string, details map[string]any) error {
	return NewDomainError(CodeInvalidLineItem, message, http.StatusBadRequest, details)
}

func NewMalformedPayload(message string) error {
	return NewDomainError(CodeMalformedPayload, message, http.StatusBadRequest, nil)
}

func NewSignatureMismatch() error {
	return NewDomainError(CodeSignatureMismatch, "hash mismatch (invalid or altered code)", http.StatusBadRequest, nil)
}

func NewTicketNotFound(ticketID string) error {
	return NewDomainError(CodeTicketNotFound, "ticket not found", http.StatusNotFound, map[string]any{
		"ticket_id": ticketID,
	})
}

func NewAlreadyRedeemed(status string) error {
	return NewDomainError(CodeAlreadyRedeemed,
		fmt.Sprintf("ticket not redeemable (status=%s)", status),
		http.StatusConflict, map[string]any{"status": status})
}

func NewExpired() error {
	return NewDomainError(CodeExpired, "ticket expired", http.StatusGone, nil)
}

func NewDuplicateIdentifier() error {
	return NewDomainError(CodeDuplicateIdentifier, "could not allocate a unique ticket identifier", http.StatusConflict, nil)
}

// NewStorageError wraps a collaborator failure without leaking its details to
// the caller; the wrapped error stays available for logging.
func NewStorageError(err error) error {
	return &DomainError{
		Code:       CodeStorageError,
		Message:    "storage error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
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
	if de, ok := NewStorageError(err).(*DomainError); ok {
		return de
	}
	return &DomainError{
		Code:       CodeStorageError,
		Message:    "storage error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}
