package core

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestGatewayError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *GatewayError
		expected string
	}{
		{
			name: "error with provider",
			err: &GatewayError{
				Type:     ErrorTypeProvider,
				Message:  "upstream error",
				Provider: "groq",
			},
			expected: "[groq] provider_error: upstream error",
		},
		{
			name: "error without provider",
			err: &GatewayError{
				Type:    ErrorTypeInvalidRequest,
				Message: "bad request",
			},
			expected: "invalid_request_error: bad request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGatewayError_Unwrap(t *testing.T) {
	originalErr := errors.New("original error")
	gatewayErr := &GatewayError{
		Type:    ErrorTypeProvider,
		Message: "wrapped error",
		Err:     originalErr,
	}

	if unwrapped := gatewayErr.Unwrap(); unwrapped != originalErr {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, originalErr)
	}
}

func TestGatewayError_HTTPStatusCode(t *testing.T) {
	tests := []struct {
		name     string
		err      *GatewayError
		expected int
	}{
		{"explicit status code", &GatewayError{Type: ErrorTypeProvider, StatusCode: http.StatusServiceUnavailable}, http.StatusServiceUnavailable},
		{"rate limit default", &GatewayError{Type: ErrorTypeRateLimit}, http.StatusTooManyRequests},
		{"invalid request default", &GatewayError{Type: ErrorTypeInvalidRequest}, http.StatusBadRequest},
		{"authentication default", &GatewayError{Type: ErrorTypeAuthentication}, http.StatusUnauthorized},
		{"not found default", &GatewayError{Type: ErrorTypeNotFound}, http.StatusNotFound},
		{"provider error default", &GatewayError{Type: ErrorTypeProvider}, http.StatusBadGateway},
		{"unavailable default", &GatewayError{Type: ErrorTypeUnavailable}, http.StatusServiceUnavailable},
		{"configuration default", &GatewayError{Type: ErrorTypeConfiguration}, http.StatusInternalServerError},
		{"unknown error type", &GatewayError{Type: ErrorType("unknown")}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.HTTPStatusCode(); got != tt.expected {
				t.Errorf("HTTPStatusCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGatewayError_ToJSON(t *testing.T) {
	err := NewValidationError("temperature", 7, "temperature out of range")

	result := err.ToJSON()

	errorData, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatal("ToJSON() should return map with 'error' key")
	}
	if errorData["type"] != ErrorTypeInvalidRequest {
		t.Errorf("ToJSON() type = %v, want %v", errorData["type"], ErrorTypeInvalidRequest)
	}
	if errorData["field"] != "temperature" {
		t.Errorf("ToJSON() field = %v, want temperature", errorData["field"])
	}
	if errorData["value"] != 7 {
		t.Errorf("ToJSON() value = %v, want 7", errorData["value"])
	}
}

func TestNewMissingCredentialError(t *testing.T) {
	err := NewMissingCredentialError("groq", "GROQ_API_KEY")

	if err.Type != ErrorTypeConfiguration {
		t.Errorf("Type = %v, want %v", err.Type, ErrorTypeConfiguration)
	}
	if err.Provider != "groq" {
		t.Errorf("Provider = %v, want groq", err.Provider)
	}
	if err.Message != "missing credential GROQ_API_KEY" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestParseProviderError(t *testing.T) {
	headers := http.Header{"X-Ratelimit-Remaining-Requests": []string{"0"}}

	tests := []struct {
		name         string
		statusCode   int
		body         string
		expectedType ErrorType
		expectedCode int
		expectedMsg  string
	}{
		{
			name:         "unauthorized",
			statusCode:   http.StatusUnauthorized,
			body:         `{"error":{"message":"invalid api key"}}`,
			expectedType: ErrorTypeAuthentication,
			expectedCode: http.StatusUnauthorized,
			expectedMsg:  "invalid api key",
		},
		{
			name:         "forbidden keeps status",
			statusCode:   http.StatusForbidden,
			body:         `{"error":{"message":"access denied"}}`,
			expectedType: ErrorTypeAuthentication,
			expectedCode: http.StatusForbidden,
			expectedMsg:  "access denied",
		},
		{
			name:         "too many requests",
			statusCode:   http.StatusTooManyRequests,
			body:         `{"error":{"message":"slow down"}}`,
			expectedType: ErrorTypeRateLimit,
			expectedCode: http.StatusTooManyRequests,
			expectedMsg:  "slow down",
		},
		{
			name:         "quota marker on 400",
			statusCode:   http.StatusBadRequest,
			body:         `{"error":{"message":"Quota exceeded for tokens per day"}}`,
			expectedType: ErrorTypeRateLimit,
			expectedCode: http.StatusTooManyRequests,
			expectedMsg:  "Quota exceeded for tokens per day",
		},
		{
			name:         "plain bad request",
			statusCode:   http.StatusBadRequest,
			body:         `{"error":{"message":"model not supported"}}`,
			expectedType: ErrorTypeInvalidRequest,
			expectedCode: http.StatusBadRequest,
			expectedMsg:  "model not supported",
		},
		{
			name:         "upstream 500 becomes bad gateway",
			statusCode:   http.StatusInternalServerError,
			body:         `internal failure`,
			expectedType: ErrorTypeProvider,
			expectedCode: http.StatusBadGateway,
			expectedMsg:  "internal failure",
		},
		{
			name:         "upstream 503 keeps upstream status",
			statusCode:   http.StatusServiceUnavailable,
			body:         `{"error":{"message":"model is loading"}}`,
			expectedType: ErrorTypeProvider,
			expectedCode: http.StatusBadGateway,
			expectedMsg:  "model is loading",
		},
		{
			name:         "context length exceeded stays invalid request",
			statusCode:   http.StatusBadRequest,
			body:         `{"error":{"message":"This model's maximum context length exceeded: 9000 tokens requested"}}`,
			expectedType: ErrorTypeInvalidRequest,
			expectedCode: http.StatusBadRequest,
			expectedMsg:  "This model's maximum context length exceeded: 9000 tokens requested",
		},
		{
			name:         "payload limit exceeded stays invalid request",
			statusCode:   http.StatusRequestEntityTooLarge,
			body:         `{"error":{"message":"request size exceeded"}}`,
			expectedType: ErrorTypeInvalidRequest,
			expectedCode: http.StatusRequestEntityTooLarge,
			expectedMsg:  "request size exceeded",
		},
		{
			name:         "openai insufficient quota on 400",
			statusCode:   http.StatusBadRequest,
			body:         `{"error":{"message":"You exceeded your current quota, please check your plan"}}`,
			expectedType: ErrorTypeRateLimit,
			expectedCode: http.StatusTooManyRequests,
			expectedMsg:  "You exceeded your current quota, please check your plan",
		},
		{
			name:         "resource exhausted marker on 503",
			statusCode:   http.StatusServiceUnavailable,
			body:         `{"error":{"message":"RESOURCE_EXHAUSTED"}}`,
			expectedType: ErrorTypeRateLimit,
			expectedCode: http.StatusTooManyRequests,
			expectedMsg:  "RESOURCE_EXHAUSTED",
		},
		{
			name:         "empty body uses status text",
			statusCode:   http.StatusBadGateway,
			body:         ``,
			expectedType: ErrorTypeProvider,
			expectedCode: http.StatusBadGateway,
			expectedMsg:  "Bad Gateway",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ParseProviderError("groq", "llama-3.1-8b-instant", tt.statusCode, []byte(tt.body), headers)

			if err.Type != tt.expectedType {
				t.Errorf("Type = %v, want %v", err.Type, tt.expectedType)
			}
			if err.StatusCode != tt.expectedCode {
				t.Errorf("StatusCode = %v, want %v", err.StatusCode, tt.expectedCode)
			}
			if err.HTTPStatusCode() != tt.expectedCode {
				t.Errorf("HTTPStatusCode() = %v, want %v", err.HTTPStatusCode(), tt.expectedCode)
			}
			if err.UpstreamStatus != tt.statusCode {
				t.Errorf("UpstreamStatus = %v, want %v", err.UpstreamStatus, tt.statusCode)
			}
			if err.Message != tt.expectedMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.expectedMsg)
			}
			if err.Provider != "groq" {
				t.Errorf("Provider = %v, want groq", err.Provider)
			}
			if err.Model != "llama-3.1-8b-instant" {
				t.Errorf("Model = %v, want llama-3.1-8b-instant", err.Model)
			}
			if err.Body != tt.body {
				t.Errorf("Body = %q, want %q", err.Body, tt.body)
			}
			if err.Headers.Get("x-ratelimit-remaining-requests") != "0" {
				t.Error("Headers should be preserved")
			}
		})
	}
}

func TestParseProviderError_ToJSONCarriesUpstreamStatus(t *testing.T) {
	err := ParseProviderError("huggingface", "whisper-large-v3", http.StatusServiceUnavailable, []byte("loading"), nil)

	errorData := err.ToJSON()["error"].(map[string]interface{})
	if errorData["upstream_status"] != http.StatusServiceUnavailable {
		t.Errorf("upstream_status = %v, want %v", errorData["upstream_status"], http.StatusServiceUnavailable)
	}
	if err.HTTPStatusCode() != http.StatusBadGateway {
		t.Errorf("HTTPStatusCode() = %v, want %v", err.HTTPStatusCode(), http.StatusBadGateway)
	}
}

func TestHasRateLimitMarker(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Rate limit reached for requests", true},
		{"Quota exceeded for metric generate_content_free_tier_requests", true},
		{"insufficient_quota", true},
		{"429 RESOURCE_EXHAUSTED", true},
		{"maximum context length exceeded", false},
		{"max_tokens exceeded model limit", false},
		{"check your quota settings page", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := HasRateLimitMarker(tt.text); got != tt.want {
				t.Errorf("HasRateLimitMarker(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestIsRateLimit(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limit type", NewRateLimitError("groq", "slow"), true},
		{"429 status on provider error", &GatewayError{Type: ErrorTypeProvider, StatusCode: http.StatusTooManyRequests}, true},
		{"marker in body", &GatewayError{Type: ErrorTypeProvider, Message: "oops", Body: "Too Many Requests"}, true},
		{"plain provider error", NewProviderError("groq", http.StatusBadGateway, "boom", nil), false},
		{"wrapped", fmt.Errorf("call: %w", NewRateLimitError("groq", "x")), true},
		{"plain error with marker", errors.New("rate_limit reached"), true},
		{"plain error", errors.New("connection refused"), false},
		{"context length exceeded", NewInvalidRequestError("context length exceeded", nil), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRateLimit(tt.err); got != tt.want {
				t.Errorf("IsRateLimit() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorTypeOf(t *testing.T) {
	wrapped := fmt.Errorf("wrap: %w", NewNotFoundError("missing"))
	if got := ErrorTypeOf(wrapped); got != ErrorTypeNotFound {
		t.Errorf("ErrorTypeOf() = %v, want %v", got, ErrorTypeNotFound)
	}
	if got := ErrorTypeOf(errors.New("plain")); got != "" {
		t.Errorf("ErrorTypeOf(plain) = %v, want empty", got)
	}
}
