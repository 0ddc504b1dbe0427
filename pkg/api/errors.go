package api

import (
	"encoding/json"
	"fmt"
)

// ErrorType represents the category of an API error.
type ErrorType string

const (
	ErrorTypeInvalidRequest      ErrorType = "invalid_request"
	ErrorTypeUnauthorized        ErrorType = "unauthorized"
	ErrorTypeNotFound            ErrorType = "not_found"
	ErrorTypeUpstreamError       ErrorType = "upstream_error"
	ErrorTypeUpstreamUnavailable ErrorType = "upstream_unavailable"
	ErrorTypeUpstreamTimeout     ErrorType = "upstream_timeout"
	ErrorTypeResourceError       ErrorType = "resource_error"
	ErrorTypeServerError         ErrorType = "server_error"
)

// APIError represents a structured API error with type, param, and message.
type APIError struct {
	Type    ErrorType
	Param   string
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s (param: %s)", e.Type, e.Message, e.Param)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorResponse is the JSON body written for failed requests.
//
// The "error" member is a plain string; clients that only read body.error
// get the message.
type ErrorResponse struct {
	Error *APIError
}

type errorResponseJSON struct {
	Error string    `json:"error"`
	Type  ErrorType `json:"type"`
	Param string    `json:"param,omitempty"`
}

// MarshalJSON flattens the wrapped APIError into the wire shape.
func (r ErrorResponse) MarshalJSON() ([]byte, error) {
	if r.Error == nil {
		return json.Marshal(errorResponseJSON{Type: ErrorTypeServerError})
	}
	return json.Marshal(errorResponseJSON{
		Error: r.Error.Message,
		Type:  r.Error.Type,
		Param: r.Error.Param,
	})
}

// UnmarshalJSON restores the APIError from the wire shape.
func (r *ErrorResponse) UnmarshalJSON(data []byte) error {
	var raw errorResponseJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Error = &APIError{Type: raw.Type, Param: raw.Param, Message: raw.Error}
	return nil
}

// NewInvalidRequestError creates an APIError for invalid request parameters.
func NewInvalidRequestError(param, message string) *APIError {
	return &APIError{
		Type:    ErrorTypeInvalidRequest,
		Param:   param,
		Message: message,
	}
}

// NewUnauthorizedError creates an APIError for missing or rejected credentials.
func NewUnauthorizedError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeUnauthorized,
		Message: message,
	}
}

// NewNotFoundError creates an APIError for resources that cannot be found.
func NewNotFoundError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewUpstreamError creates an APIError for a completion service that
// answered with an error status.
func NewUpstreamError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeUpstreamError,
		Message: message,
	}
}

// NewUpstreamUnavailableError creates an APIError for a completion service
// that could not be reached.
func NewUpstreamUnavailableError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeUpstreamUnavailable,
		Message: message,
	}
}

// NewUpstreamTimeoutError creates an APIError for a completion call that
// ran past its deadline.
func NewUpstreamTimeoutError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeUpstreamTimeout,
		Message: message,
	}
}

// NewResourceError creates an APIError for resource bridge failures.
func NewResourceError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeResourceError,
		Message: message,
	}
}

// NewServerError creates an APIError for internal server errors.
func NewServerError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeServerError,
		Message: message,
	}
}
