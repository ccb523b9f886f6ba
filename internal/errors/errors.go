// Package errors defines the error values shared by the client, service and
// handler layers.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// ErrNotFound is returned when the taproom API answers 404.
var ErrNotFound = stderrors.New("not found")

// ErrAlreadyPaid is returned when a pay action targets a paid order.
var ErrAlreadyPaid = stderrors.New("order already paid")

// ErrPaymentInFlight is returned when another pay request for the same order
// has not finished yet.
var ErrPaymentInFlight = stderrors.New("payment already in progress")

// ValidationError describes invalid user input. Details maps field names to
// messages when more than one field failed.
type ValidationError struct {
	Field   string
	Message string
	Details map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	keys := make([]string, 0, len(e.Details))
	for k := range e.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Details[k])
	}
	return strings.Join(parts, "; ")
}

// NewValidationError creates a single-field validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Details: map[string]string{field: message},
	}
}

// APIError is a non-2xx answer from the taproom API. Detail carries the
// server's `detail` message when one was sent.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("taproom api returned status %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("taproom api returned status %d", e.Status)
}

// Message is the text shown to the user.
func (e *APIError) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	return http.StatusText(e.Status)
}

// Wrap annotates err with a message and a stack trace.
func Wrap(err error, message string) error {
	return pkgerrors.Wrap(err, message)
}

// Wrapf is Wrap with formatting.
func Wrapf(err error, format string, args ...interface{}) error {
	return pkgerrors.Wrapf(err, format, args...)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// AsAPIError unwraps err into an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// AsValidationError unwraps err into a *ValidationError.
func AsValidationError(err error) (*ValidationError, bool) {
	var vErr *ValidationError
	if stderrors.As(err, &vErr) {
		return vErr, true
	}
	return nil, false
}
