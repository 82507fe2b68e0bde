// Package apierrors contains the errors returned to API clients and the helpers used to
// write them as JSON responses.
package apierrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

const genericMessage = "an unexpected error occurred, please try again later"

// APIError represents an error that carries the HTTP status code that should be sent to
// the client.
type APIError struct {
	detail         string
	httpStatusCode int
}

// APIErrorOption determines the Functional Options used to create a new APIError.
type APIErrorOption func(apiErr *APIError)

// WithDetail sets the message shown to the client.
func WithDetail(detail string) APIErrorOption {
	return func(apiErr *APIError) {
		apiErr.detail = detail
	}
}

// WithHTTPStatusCode sets the HTTP status code associated to the error.
func WithHTTPStatusCode(code int) APIErrorOption {
	return func(apiErr *APIError) {
		apiErr.httpStatusCode = code
	}
}

// NewAPIError creates a new APIError. Without options it represents an internal error.
func NewAPIError(opts ...APIErrorOption) *APIError {
	apiErr := &APIError{
		detail:         genericMessage,
		httpStatusCode: http.StatusInternalServerError,
	}
	for _, opt := range opts {
		opt(apiErr)
	}
	return apiErr
}

// NotFound creates an APIError with status 404.
func NotFound(detail string) *APIError {
	return NewAPIError(WithDetail(detail), WithHTTPStatusCode(http.StatusNotFound))
}

// Conflict creates an APIError with status 409.
func Conflict(detail string) *APIError {
	return NewAPIError(WithDetail(detail), WithHTTPStatusCode(http.StatusConflict))
}

// BadRequest creates an APIError with status 400.
func BadRequest(detail string) *APIError {
	return NewAPIError(WithDetail(detail), WithHTTPStatusCode(http.StatusBadRequest))
}

func (a *APIError) Error() string {
	return a.detail
}

// Detail returns the message shown to the client.
func (a *APIError) Detail() string {
	return a.detail
}

// HTTPStatusCode returns the HTTP status code associated to the error.
func (a *APIError) HTTPStatusCode() int {
	return a.httpStatusCode
}

func (a *APIError) MarshalJSON() ([]byte, error) {
	return json.Marshal(errorBody{Success: false, Message: a.detail})
}

// ValidationError represents an invalid field in a request.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a new ValidationError for the given field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (v *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

func (v *ValidationError) MarshalJSON() ([]byte, error) {
	return json.Marshal(errorBody{Success: false, Message: v.Error(), Field: v.Field})
}

type errorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// StatusCode maps the given error to the HTTP status code sent to the client.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode()
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Write writes the given error as a JSON response. Errors that are neither an APIError nor
// a ValidationError are reported with a generic message.
func Write(w http.ResponseWriter, err error) {
	var body interface{} = errorBody{Success: false, Message: genericMessage}
	var apiErr *APIError
	var validationErr *ValidationError
	switch {
	case errors.As(err, &apiErr):
		body = apiErr
	case errors.As(err, &validationErr):
		body = validationErr
	}
	w.WriteHeader(StatusCode(err))
	_ = json.NewEncoder(w).Encode(body)
}
