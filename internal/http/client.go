// Package http is the retrying HTTP transport shared by the APIC-EM and
// IOS-XE clients. It knows nothing about credentials; callers add the vendor
// header per request.
package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/netdevops/ciscoctl/internal/constants"
	"github.com/netdevops/ciscoctl/internal/logging"
)

// Static errors for err113 compliance.
var (
	ErrInvalidProxyURL = errors.New("invalid proxy URL")
	ErrNoResponse      = errors.New("no response received")
)

const (
	acceptHeader      = "application/json, text/plain"
	contentTypeJSON   = "application/json"
	maxErrorBodyBytes = 512
)

// Request describes one API call relative to the client's base URL.
type Request struct {
	Method    string
	Path      string
	Query     url.Values
	Body      interface{}
	Headers   map[string]string
	BasicAuth *BasicAuth
}

// BasicAuth carries HTTP Basic credentials for a single request.
type BasicAuth struct {
	Username string
	Password string
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// ContentType returns the response Content-Type header.
func (r *Response) ContentType() string {
	return r.Headers.Get("Content-Type")
}

// ResponseError is returned together with the Response for 4xx and 5xx answers.
type ResponseError struct {
	StatusCode int
	Method     string
	URL        string
	Body       string
}

// Error implements the error interface.
func (e *ResponseError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: HTTP %d", e.Method, e.URL, e.StatusCode)
	}

	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// Client performs requests against one base URL.
type Client struct {
	baseURL    string
	httpClient *retryablehttp.Client
	logger     logging.Logger
	debug      bool
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(c *Client) {
		c.logger = logger
		c.httpClient.Logger = &leveledLogger{logger: logger}
	}
}

// WithDebug logs every request and response.
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

// WithTimeout sets the per-attempt timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.HTTPClient.Timeout = timeout
	}
}

// WithRetryConfig sets the retry policy for 5xx and 429 answers.
func WithRetryConfig(retryMax int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.httpClient.RetryMax = retryMax
		c.httpClient.RetryWaitMin = waitMin
		c.httpClient.RetryWaitMax = waitMax
	}
}

// WithInsecureSkipVerify disables certificate verification. Device REST
// APIs commonly serve self-signed certificates.
func WithInsecureSkipVerify(skip bool) Option {
	return func(c *Client) {
		if !skip {
			return
		}

		//nolint:gosec // opt-in for lab devices with self-signed certificates
		transport(c).TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
}

// WithProxy routes requests through a fixed proxy URL.
func WithProxy(proxyURL *url.URL) Option {
	return func(c *Client) {
		if proxyURL != nil {
			transport(c).Proxy = http.ProxyURL(proxyURL)
		}
	}
}

// ParseProxy parses an optional proxy URL from configuration.
func ParseProxy(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, nil //nolint:nilnil // no proxy configured
	}

	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProxyURL, raw)
	}

	return parsed, nil
}

func transport(c *Client) *http.Transport {
	if t, ok := c.httpClient.HTTPClient.Transport.(*http.Transport); ok {
		return t
	}

	t := http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert // stdlib default
	c.httpClient.HTTPClient.Transport = t

	return t
}

// NewClient creates a client for baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = constants.DefaultRetryMax
	retryClient.RetryWaitMin = constants.DefaultRetryWaitMin
	retryClient.RetryWaitMax = constants.DefaultRetryWaitMax
	retryClient.HTTPClient.Timeout = constants.DefaultHTTPTimeout
	retryClient.HTTPClient.Transport = http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert // stdlib default
	retryClient.Logger = nil
	// Hand the last 5xx back instead of a "giving up" error.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	client := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: retryClient,
		logger:     logging.Nop{},
		userAgent:  constants.AppName,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Do performs req. A non-nil error with a nil Response means the request
// never produced an HTTP answer; a *ResponseError comes with the Response.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	fullURL := c.baseURL + req.Path
	if len(req.Query) > 0 {
		fullURL += "?" + req.Query.Encode()
	}

	body, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpReq.Header.Set("Accept", acceptHeader)
	httpReq.Header.Set("Content-Type", contentTypeJSON)

	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	if req.BasicAuth != nil {
		httpReq.SetBasicAuth(req.BasicAuth.Username, req.BasicAuth.Password)
	}

	if c.debug {
		c.logger.Debug("HTTP Request", map[string]interface{}{
			"method": req.Method,
			"url":    fullURL,
		})
	}

	// After the last retry the passthrough handler returns the final 5xx
	// together with the retry policy error; the response wins.
	httpResp, err := c.httpClient.Do(httpReq)
	if httpResp == nil {
		if err == nil {
			err = ErrNoResponse
		}

		return nil, fmt.Errorf("%s %s: %w", req.Method, fullURL, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       respBody,
	}

	if c.debug {
		c.logger.Debug("HTTP Response", map[string]interface{}{
			"method":      req.Method,
			"url":         fullURL,
			"status_code": resp.StatusCode,
		})
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return resp, &ResponseError{
			StatusCode: resp.StatusCode,
			Method:     req.Method,
			URL:        fullURL,
			Body:       truncate(string(respBody), maxErrorBodyBytes),
		}
	}

	return resp, nil
}

func encodeBody(body interface{}) (interface{}, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case string:
		return []byte(b), nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}

		return bytes.NewReader(data), nil
	}
}

func truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}

	return s[:limit] + "..."
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body})
}

// leveledLogger adapts Logger to retryablehttp.LeveledLogger.
type leveledLogger struct {
	logger logging.Logger
}

func (l *leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, fieldsOf(keysAndValues))
}

func (l *leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg, fieldsOf(keysAndValues))
}

func (l *leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, fieldsOf(keysAndValues))
}

func (l *leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warn(msg, fieldsOf(keysAndValues))
}

func fieldsOf(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)

	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}

	return fields
}
