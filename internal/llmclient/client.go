// Package llmclient provides the base HTTP client shared by provider adapters:
// JSON request marshaling, request-id forwarding, and typed error parsing that keeps
// the upstream status, raw body and response headers.
//
// The client makes exactly one attempt per call. Retries and fallbacks are the caller's decision.
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"modelrouter/internal/core"
	"modelrouter/internal/httpclient"
)

// Config holds configuration for the LLM client
type Config struct {
	// ProviderName identifies the provider for error messages
	ProviderName string

	// BaseURL is the API base URL
	BaseURL string
}

// HeaderSetter is a function that sets headers on an HTTP request
type HeaderSetter func(req *http.Request)

// Client is a base HTTP client for LLM providers
type Client struct {
	httpClient   *http.Client
	config       Config
	headerSetter HeaderSetter
}

// New creates a new LLM client. A nil httpClient uses the shared default.
func New(httpClient *http.Client, config Config, headerSetter HeaderSetter) *Client {
	if httpClient == nil {
		httpClient = httpclient.NewHTTPClient(nil)
	}
	return &Client{
		httpClient:   httpClient,
		config:       config,
		headerSetter: headerSetter,
	}
}

// SetBaseURL updates the base URL
func (c *Client) SetBaseURL(url string) {
	c.config.BaseURL = url
}

// BaseURL returns the current base URL
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// ProviderName returns the provider the client reports in errors.
func (c *Client) ProviderName() string {
	return c.config.ProviderName
}

// Request represents an HTTP request to be made
type Request struct {
	Method   string
	Endpoint string
	Body     interface{} // Will be JSON marshaled if not nil
	Headers  map[string]string
	// Model is reported on errors
	Model string
}

// Response represents an HTTP response
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// Do executes a request and returns the raw response.
// Any non-2xx status is returned as a *core.GatewayError built by core.ParseProviderError.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		err = redactURL(err)
		gwErr := core.NewProviderError(c.config.ProviderName, http.StatusBadGateway, "failed to send request: "+err.Error(), err)
		gwErr.Model = req.Model
		return nil, gwErr
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		gwErr := core.NewProviderError(c.config.ProviderName, http.StatusBadGateway, "failed to read response: "+err.Error(), err)
		gwErr.Model = req.Model
		gwErr.Headers = resp.Header
		return nil, gwErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, core.ParseProviderError(c.config.ProviderName, req.Model, resp.StatusCode, body, resp.Header)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       body,
		Headers:    resp.Header,
	}, nil
}

// DoJSON executes a request and requires the response body to be valid JSON.
func (c *Client) DoJSON(ctx context.Context, req Request) (*Response, error) {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if !json.Valid(resp.Body) {
		gwErr := core.NewProviderError(c.config.ProviderName, http.StatusBadGateway, "provider returned a non-JSON response", nil)
		gwErr.Model = req.Model
		gwErr.Body = string(resp.Body)
		gwErr.Headers = resp.Headers
		return nil, gwErr
	}
	return resp, nil
}

// redactURL strips the query string from a transport error's URL.
// Some providers take the API key as a query parameter.
func redactURL(err error) error {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}
	redacted := *urlErr
	redacted.URL, _, _ = strings.Cut(urlErr.URL, "?")
	return &redacted
}

// buildRequest creates an HTTP request from a Request
func (c *Client) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	target := c.config.BaseURL + req.Endpoint

	var bodyReader io.Reader
	if req.Body != nil {
		bodyBytes, err := json.Marshal(req.Body)
		if err != nil {
			return nil, core.NewInvalidRequestError("failed to marshal request", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, bodyReader)
	if err != nil {
		return nil, core.NewInvalidRequestError("failed to create request", err)
	}

	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")

	if requestID := core.GetRequestID(ctx); requestID != "" {
		httpReq.Header.Set("X-Request-ID", requestID)
	}

	// Apply provider-specific headers
	if c.headerSetter != nil {
		c.headerSetter(httpReq)
	}

	// Apply request-specific headers
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	return httpReq, nil
}

// Result converts the response into the adapter-neutral call result.
func (r *Response) Result() *core.CallResult {
	return &core.CallResult{
		Data:       r.Body,
		Headers:    r.Headers,
		StatusCode: r.StatusCode,
	}
}
