// Package rest wraps the HTTP transport with the credential lifecycle: every
// call acquires a credential from the cache, sends it in the vendor header
// and refreshes it after a successful answer.
package rest

import (
	"context"
	"net/http"
	"net/url"

	"github.com/netdevops/ciscoctl/internal/auth"
	cischttp "github.com/netdevops/ciscoctl/internal/http"
	"github.com/netdevops/ciscoctl/internal/logging"
)

// Config wires a Client.
type Config struct {
	// Host keys the credential in the cache.
	Host string
	// Header carries the credential value on every request.
	Header string
	// BasePath is prepended to every request path, e.g. "/api/v1".
	BasePath      string
	Transport     *cischttp.Client
	Cache         *auth.Cache
	Authenticator auth.Authenticator
	Logger        logging.Logger
}

// Client performs authenticated calls against one device.
type Client struct {
	host          string
	header        string
	basePath      string
	transport     *cischttp.Client
	cache         *auth.Cache
	authenticator auth.Authenticator
	logger        logging.Logger
}

// NewClient creates a client from config.
func NewClient(config Config) *Client {
	return &Client{
		host:          config.Host,
		header:        config.Header,
		basePath:      config.BasePath,
		transport:     config.Transport,
		cache:         config.Cache,
		authenticator: config.Authenticator,
		logger:        logging.OrNop(config.Logger),
	}
}

// Host returns the device host.
func (c *Client) Host() string {
	return c.host
}

// Credential acquires the current credential without sending a request.
func (c *Client) Credential(ctx context.Context) (*auth.Credential, error) {
	return c.cache.Acquire(ctx, c.host, c.authenticator)
}

// Get performs an authenticated GET.
func (c *Client) Get(ctx context.Context, path string, query url.Values) *Result {
	return c.Do(ctx, http.MethodGet, path, query, nil)
}

// Post performs an authenticated POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body interface{}) *Result {
	return c.Do(ctx, http.MethodPost, path, nil, body)
}

// Put performs an authenticated PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body interface{}) *Result {
	return c.Do(ctx, http.MethodPut, path, nil, body)
}

// Delete performs an authenticated DELETE.
func (c *Client) Delete(ctx context.Context, path string) *Result {
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}

// Do performs an authenticated request. It never returns nil.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body interface{}) *Result {
	return c.withCredential(ctx, func(cred *auth.Credential) (*cischttp.Response, error) {
		return c.transport.Do(ctx, &cischttp.Request{
			Method:  method,
			Path:    c.basePath + path,
			Query:   query,
			Body:    body,
			Headers: map[string]string{c.header: cred.Value},
		})
	})
}

func (c *Client) withCredential(
	ctx context.Context,
	call func(cred *auth.Credential) (*cischttp.Response, error),
) *Result {
	fields := map[string]interface{}{"host": c.host}

	cred, err := c.cache.Acquire(ctx, c.host, c.authenticator)
	if err != nil {
		fields["error"] = err.Error()
		c.logger.Error("no credential available, request not sent", fields)

		return failure(StatusNoCredential, err)
	}

	resp, err := call(cred)
	if resp == nil {
		if err == nil {
			err = cischttp.ErrNoResponse
		}

		fields["error"] = err.Error()
		c.logger.Error("request failed", fields)

		return failure(StatusRequestFailed, err)
	}

	result := &Result{
		StatusCode:  resp.StatusCode,
		ContentType: resp.ContentType(),
		Body:        resp.Body,
	}

	if result.OK() {
		c.cache.Touch(ctx, c.host, cred)
	} else {
		fields["status_code"] = resp.StatusCode
		c.logger.Warn("request returned an error status", fields)
	}

	return result
}
