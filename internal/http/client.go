package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/fivetwenty-io/cloudsdk/internal/constants"
	"github.com/fivetwenty-io/cloudsdk/pkg/cloud"
)

// TokenManager supplies the token sent in the X-Auth-Token header.
type TokenManager interface {
	GetToken(ctx context.Context) (string, error)
	// RefreshToken discards the rejected token and authenticates again,
	// unless the token has already been replaced.
	RefreshToken(ctx context.Context, rejected string) error
}

// Client is the transport shared by identity and service clients.
type Client struct {
	baseURL      string
	httpClient   *retryablehttp.Client
	tokenManager TokenManager
	logger       cloud.Logger
	debug        bool
	userAgent    string
	headers      map[string]string
	interceptors *cloud.InterceptorChain
}

// Request is a single API call relative to the client's base URL.
type Request struct {
	Method string
	// Path is joined to the base URL unless it is already absolute.
	Path    string
	Query   url.Values
	Body    interface{}
	Headers map[string]string
	// ContentType overrides application/json for Body.
	ContentType string
}

// Response holds a fully read response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte

	badResponse *cloud.BadResponseError
	// authToken is the token the request was sent with.
	authToken string
}

// Decode unmarshals the body into target.
func (r *Response) Decode(target interface{}) error {
	err := json.Unmarshal(r.Body, target)
	if err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger cloud.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables request and response logging.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithRetryConfig sets retry limits for 5xx, 429 and connection errors.
func WithRetryConfig(retryMax int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.httpClient.RetryMax = retryMax
		c.httpClient.RetryWaitMin = waitMin
		c.httpClient.RetryWaitMax = waitMax
	}
}

// WithInterceptors runs chain around every request.
func WithInterceptors(chain *cloud.InterceptorChain) Option {
	return func(c *Client) {
		c.interceptors = chain
	}
}

// WithHeaders adds headers to every request.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		for key, value := range headers {
			c.headers[key] = value
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient.HTTPClient = httpClient
		}
	}
}

// WithTimeout bounds each attempt.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.HTTPClient.Timeout = timeout
		}
	}
}

// NewClient creates a client rooted at baseURL. tokenManager may be nil for
// unauthenticated calls such as the identity exchange itself.
func NewClient(baseURL string, tokenManager TokenManager, opts ...Option) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = constants.DefaultRetryMax
	retryClient.RetryWaitMin = constants.DefaultRetryWaitMin
	retryClient.RetryWaitMax = constants.DefaultRetryWaitMax
	retryClient.HTTPClient.Timeout = constants.DefaultHTTPTimeout
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.Logger = nil

	client := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		httpClient:   retryClient,
		tokenManager: tokenManager,
		userAgent:    constants.UserAgentPrefix,
		headers:      make(map[string]string),
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.logger != nil {
		retryClient.Logger = &retryLogger{logger: client.logger}
	}

	return client
}

// BaseURL returns the URL relative paths are resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends req. Any status of 400 or above is returned as a
// *cloud.BadResponseError together with the response. A 401 on an
// authenticated client refreshes the token and replays the request once.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	body, contentType, err := encodeBody(req)
	if err != nil {
		return nil, err
	}

	resp, err := c.send(ctx, req, body, contentType)
	if err != nil {
		return resp, err
	}

	if resp.StatusCode == http.StatusUnauthorized && c.tokenManager != nil {
		if c.logger != nil {
			c.logger.Debug("Token rejected, re-authenticating", map[string]interface{}{
				"method": req.Method,
				"path":   req.Path,
			})
		}

		err = c.tokenManager.RefreshToken(ctx, resp.authToken)
		if err != nil {
			return resp, fmt.Errorf("re-authenticating after 401: %w", err)
		}

		resp, err = c.send(ctx, req, body, contentType)
		if err != nil {
			return resp, err
		}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return resp, resp.badResponse
	}

	return resp, nil
}

func (c *Client) send(ctx context.Context, req *Request, body []byte, contentType string) (*Response, error) {
	intercepted := &cloud.Request{
		Method:   req.Method,
		Path:     req.Path,
		Headers:  make(http.Header),
		Body:     body,
		Metadata: make(map[string]interface{}),
	}

	intercepted.Headers.Set(constants.HeaderAccept, constants.ContentTypeJSON)

	if c.userAgent != "" {
		intercepted.Headers.Set(constants.HeaderUserAgent, c.userAgent)
	}

	if len(body) > 0 {
		intercepted.Headers.Set(constants.HeaderContentType, contentType)
	}

	for key, value := range c.headers {
		intercepted.Headers.Set(key, value)
	}

	for key, value := range req.Headers {
		intercepted.Headers.Set(key, value)
	}

	err := c.interceptors.ExecuteRequestInterceptors(ctx, intercepted)
	if err != nil {
		return nil, err
	}

	if c.tokenManager != nil {
		token, err := c.tokenManager.GetToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get auth token: %w", err)
		}

		intercepted.Headers.Set(constants.HeaderAuthToken, token)
	}

	var reqBody interface{}
	if len(intercepted.Body) > 0 {
		reqBody = intercepted.Body
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, intercepted.Method, c.buildURL(intercepted.Path, req.Query), reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header = intercepted.Headers

	if c.debug && c.logger != nil {
		c.logger.Debug("HTTP Request", map[string]interface{}{
			"method":  httpReq.Method,
			"url":     httpReq.URL.String(),
			"headers": cloud.MaskHeaders(httpReq.Header),
		})
	}

	start := time.Now()

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		_ = c.interceptors.ExecuteResponseInterceptors(ctx, intercepted, &cloud.Response{Error: err})

		return nil, fmt.Errorf("request failed: %w", err)
	}

	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if c.debug && c.logger != nil {
		c.logger.Debug("HTTP Response", map[string]interface{}{
			"status":   httpResp.StatusCode,
			"duration": time.Since(start).String(),
			"size":     len(respBody),
		})
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       respBody,
		authToken:  httpReq.Header.Get(constants.HeaderAuthToken),
	}

	interceptedResp := &cloud.Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       resp.Body,
	}

	if resp.StatusCode >= http.StatusBadRequest {
		resp.badResponse = cloud.NewBadResponseError(httpReq.Request, intercepted.Body, httpResp, respBody)
		interceptedResp.Error = resp.badResponse
	}

	err = c.interceptors.ExecuteResponseInterceptors(ctx, intercepted, interceptedResp)
	if err != nil {
		return resp, err
	}

	return resp, nil
}

func (c *Client) buildURL(path string, query url.Values) string {
	var target string

	switch {
	case strings.HasPrefix(path, "http://"), strings.HasPrefix(path, "https://"):
		target = path
	case path == "":
		target = c.baseURL
	default:
		target = c.baseURL + "/" + strings.TrimPrefix(path, "/")
	}

	if len(query) > 0 {
		separator := "?"
		if strings.Contains(target, "?") {
			separator = "&"
		}

		target += separator + query.Encode()
	}

	return target
}

func encodeBody(req *Request) ([]byte, string, error) {
	contentType := req.ContentType
	if contentType == "" {
		contentType = constants.ContentTypeJSON
	}

	switch body := req.Body.(type) {
	case nil:
		return nil, contentType, nil
	case []byte:
		return body, contentType, nil
	case json.RawMessage:
		return body, contentType, nil
	default:
		var buf bytes.Buffer

		err := json.NewEncoder(&buf).Encode(body)
		if err != nil {
			return nil, "", fmt.Errorf("failed to marshal request body: %w", err)
		}

		return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), contentType, nil
	}
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query})
}

// Post performs a POST request.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body})
}

// Put performs a PUT request.
func (c *Client) Put(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPut, Path: path, Body: body})
}

// Patch performs a PATCH request.
func (c *Client) Patch(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPatch, Path: path, Body: body})
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodDelete, Path: path})
}

// retryLogger forwards retryablehttp's warnings and errors. Per-attempt
// debug lines are dropped since the client logs requests itself.
type retryLogger struct {
	logger cloud.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, fieldsFromPairs(keysAndValues))
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, fieldsFromPairs(keysAndValues))
}

func fieldsFromPairs(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)

	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}

	return fields
}
