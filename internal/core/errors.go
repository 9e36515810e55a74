// Package core provides core types and interfaces for the model router.
package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorType represents the type of error that occurred
type ErrorType string

const (
	// ErrorTypeConfiguration indicates a required credential or setting is missing
	ErrorTypeConfiguration ErrorType = "configuration_error"
	// ErrorTypeProvider indicates an upstream provider error (non-2xx)
	ErrorTypeProvider ErrorType = "provider_error"
	// ErrorTypeRateLimit indicates a rate limit error (429 or quota markers)
	ErrorTypeRateLimit ErrorType = "rate_limit_error"
	// ErrorTypeInvalidRequest indicates a validation error (4xx)
	ErrorTypeInvalidRequest ErrorType = "invalid_request_error"
	// ErrorTypeAuthentication indicates the provider rejected the credential (401/403)
	ErrorTypeAuthentication ErrorType = "authentication_error"
	// ErrorTypeNotFound indicates a not found error (404)
	ErrorTypeNotFound ErrorType = "not_found_error"
	// ErrorTypeUnavailable indicates a provider that cannot be reached from this runtime
	ErrorTypeUnavailable ErrorType = "provider_unavailable_error"
)

// GatewayError is the base error type for all router errors
type GatewayError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	StatusCode int       `json:"status_code"`
	Provider   string    `json:"provider,omitempty"`
	Model      string    `json:"model,omitempty"`
	// UpstreamStatus is the status the provider answered with; StatusCode is
	// what the router reports to its own caller.
	UpstreamStatus int `json:"upstream_status,omitempty"`
	// Body is the raw upstream error text
	Body  string `json:"body,omitempty"`
	Field string `json:"field,omitempty"`
	Value any    `json:"value,omitempty"`
	// Headers carries upstream response headers so quota signals survive a failed call
	Headers http.Header `json:"-"`
	// Original error for debugging (not exposed to clients)
	Err error `json:"-"`
}

// Error implements the error interface
func (e *GatewayError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Provider, e.Type, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the error unwrapping interface
func (e *GatewayError) Unwrap() error {
	return e.Err
}

// HTTPStatusCode returns the appropriate HTTP status code for this error
func (e *GatewayError) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}
	switch e.Type {
	case ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	case ErrorTypeInvalidRequest:
		return http.StatusBadRequest
	case ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeProvider:
		return http.StatusBadGateway
	case ErrorTypeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ToJSON converts the error to a JSON-compatible map
func (e *GatewayError) ToJSON() map[string]interface{} {
	body := map[string]interface{}{
		"type":    e.Type,
		"message": e.Message,
	}
	if e.Provider != "" {
		body["provider"] = e.Provider
	}
	if e.Model != "" {
		body["model"] = e.Model
	}
	if e.UpstreamStatus != 0 {
		body["upstream_status"] = e.UpstreamStatus
	}
	if e.Field != "" {
		body["field"] = e.Field
		body["value"] = e.Value
	}
	return map[string]interface{}{"error": body}
}

// NewConfigurationError creates an error for a missing credential or setting.
func NewConfigurationError(provider string, message string) *GatewayError {
	return &GatewayError{
		Type:       ErrorTypeConfiguration,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Provider:   provider,
	}
}

// NewMissingCredentialError reports that the named environment value is absent.
func NewMissingCredentialError(provider, envName string) *GatewayError {
	return NewConfigurationError(provider, fmt.Sprintf("missing credential %s", envName))
}

// NewProviderError creates a new provider error (upstream non-2xx)
func NewProviderError(provider string, statusCode int, message string, err error) *GatewayError {
	return &GatewayError{
		Type:       ErrorTypeProvider,
		Message:    message,
		StatusCode: statusCode,
		Provider:   provider,
		Err:        err,
	}
}

// NewRateLimitError creates a new rate limit error (429)
func NewRateLimitError(provider string, message string) *GatewayError {
	return &GatewayError{
		Type:       ErrorTypeRateLimit,
		Message:    message,
		StatusCode: http.StatusTooManyRequests,
		Provider:   provider,
	}
}

// NewInvalidRequestError creates a new invalid request error (400)
func NewInvalidRequestError(message string, err error) *GatewayError {
	return NewInvalidRequestErrorWithStatus(http.StatusBadRequest, message, err)
}

// NewInvalidRequestErrorWithStatus creates a new invalid request error with a specific status code
func NewInvalidRequestErrorWithStatus(statusCode int, message string, err error) *GatewayError {
	return &GatewayError{
		Type:       ErrorTypeInvalidRequest,
		Message:    message,
		StatusCode: statusCode,
		Err:        err,
	}
}

// NewValidationError creates an invalid request error naming the offending field and value.
func NewValidationError(field string, value any, message string) *GatewayError {
	return &GatewayError{
		Type:       ErrorTypeInvalidRequest,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Field:      field,
		Value:      value,
	}
}

// NewAuthenticationError creates a new authentication error (401)
func NewAuthenticationError(provider string, message string) *GatewayError {
	return &GatewayError{
		Type:       ErrorTypeAuthentication,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
		Provider:   provider,
	}
}

// NewNotFoundError creates a new not found error (404)
func NewNotFoundError(message string) *GatewayError {
	return &GatewayError{
		Type:       ErrorTypeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewUnavailableError reports a provider that cannot serve calls from this runtime.
func NewUnavailableError(provider string, message string) *GatewayError {
	return &GatewayError{
		Type:       ErrorTypeUnavailable,
		Message:    message,
		StatusCode: http.StatusServiceUnavailable,
		Provider:   provider,
	}
}

// ParseProviderError parses an error response from a provider and returns an appropriate GatewayError.
// The raw body, model id and response headers are preserved on the returned error.
func ParseProviderError(provider, model string, statusCode int, body []byte, headers http.Header) *GatewayError {
	var errorResponse struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}

	message := string(body)
	if err := json.Unmarshal(body, &errorResponse); err == nil && errorResponse.Error.Message != "" {
		message = errorResponse.Error.Message
	}
	if message == "" {
		message = http.StatusText(statusCode)
	}

	var gwErr *GatewayError
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		gwErr = NewAuthenticationError(provider, message)
		gwErr.StatusCode = statusCode
	case statusCode == http.StatusTooManyRequests:
		gwErr = NewRateLimitError(provider, message)
	case statusCode >= 400 && statusCode < 500:
		gwErr = NewInvalidRequestErrorWithStatus(statusCode, message, nil)
		gwErr.Provider = provider
	default:
		gwErr = NewProviderError(provider, http.StatusBadGateway, message, nil)
	}
	if gwErr.Type != ErrorTypeRateLimit && HasRateLimitMarker(message) {
		gwErr.Type = ErrorTypeRateLimit
		gwErr.StatusCode = http.StatusTooManyRequests
	}
	gwErr.UpstreamStatus = statusCode
	gwErr.Model = model
	gwErr.Body = string(body)
	gwErr.Headers = headers
	return gwErr
}

// Markers are phrased as quota wording; "exceeded" alone also appears in
// context-length and payload-size rejections.
var rateLimitMarkers = []string{
	"rate limit",
	"rate_limit",
	"ratelimit",
	"rate-limit",
	"too many requests",
	"quota exceeded",
	"quota_exceeded",
	"exceeded your current quota",
	"exceeded quota",
	"insufficient_quota",
	"resource_exhausted",
	"resource exhausted",
}

// HasRateLimitMarker reports whether text contains one of the rate-limit markers.
func HasRateLimitMarker(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range rateLimitMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// IsRateLimit classifies err as a rate-limit failure by type, status or message text.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		if gwErr.Type == ErrorTypeRateLimit || gwErr.StatusCode == http.StatusTooManyRequests {
			return true
		}
		return HasRateLimitMarker(gwErr.Message) || HasRateLimitMarker(gwErr.Body)
	}
	return HasRateLimitMarker(err.Error())
}

// ErrorTypeOf returns the GatewayError type of err, or an empty type when err is not one.
func ErrorTypeOf(err error) ErrorType {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Type
	}
	return ""
}
