// Package apicem is the APIC-EM northbound REST client: service ticket
// authentication plus the host, network device, interface and flow-analysis
// resources.
package apicem

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/netdevops/ciscoctl/internal/auth"
	"github.com/netdevops/ciscoctl/internal/constants"
	cischttp "github.com/netdevops/ciscoctl/internal/http"
	"github.com/netdevops/ciscoctl/internal/logging"
	"github.com/netdevops/ciscoctl/internal/rest"
)

// Static errors for err113 compliance.
var (
	ErrEmptyTicket = errors.New("APIC-EM returned no service ticket")
	ErrTaskFailed  = errors.New("APIC-EM task failed")
	ErrNoPathFound = errors.New("no routing path was found")
	ErrNoTaskID    = errors.New("APIC-EM returned no task id")
	ErrNoTimeout   = errors.New("APIC-EM returned a service ticket without session or idle timeout")
)

// Config describes one APIC-EM controller.
type Config struct {
	Host     string
	Port     int
	Version  string
	Username string
	Password string

	// PollInterval and MaxAttempts bound WaitForTask.
	PollInterval time.Duration
	MaxAttempts  int
}

// Client calls the APIC-EM API of one controller.
type Client struct {
	rest         *rest.Client
	pollInterval time.Duration
	maxAttempts  int
	logger       logging.Logger
}

// New wires the transport, the ticket authenticator and the REST client for
// config. The cache is shared with every other client of the same process.
func New(config Config, cache *auth.Cache, logger logging.Logger, opts ...cischttp.Option) *Client {
	if config.Version == "" {
		config.Version = constants.APICEMDefaultVersion
	}

	if config.Port == 0 {
		config.Port = constants.APICEMDefaultPort
	}

	logger = logging.OrNop(logger)
	opts = append([]cischttp.Option{cischttp.WithLogger(logger)}, opts...)
	transport := cischttp.NewClient(rest.BaseURL(config.Host, config.Port), opts...)
	basePath := "/api/" + config.Version

	return NewWithREST(rest.NewClient(rest.Config{
		Host:      config.Host,
		Header:    constants.APICEMTicketHeader,
		BasePath:  basePath,
		Transport: transport,
		Cache:     cache,
		Authenticator: &Authenticator{
			Transport: transport,
			Path:      basePath + "/ticket",
			Username:  config.Username,
			Password:  config.Password,
		},
		Logger: logger,
	}), config.PollInterval, config.MaxAttempts, logger)
}

// NewWithREST creates a client over an existing REST client.
func NewWithREST(restClient *rest.Client, pollInterval time.Duration, maxAttempts int, logger logging.Logger) *Client {
	if pollInterval <= 0 {
		pollInterval = constants.DefaultPollInterval
	}

	if maxAttempts <= 0 {
		maxAttempts = constants.DefaultPollAttempts
	}

	return &Client{
		rest:         restClient,
		pollInterval: pollInterval,
		maxAttempts:  maxAttempts,
		logger:       logging.OrNop(logger),
	}
}

// REST returns the underlying authenticated client for raw calls.
func (c *Client) REST() *rest.Client {
	return c.rest
}

// envelope is the wrapper around every APIC-EM answer.
type envelope[T any] struct {
	Version  string `json:"version"`
	Response T      `json:"response"`
}

func decode[T any](result *rest.Result, what string) (T, error) {
	var env envelope[T]

	err := result.DecodeJSON(&env)
	if err != nil {
		return env.Response, fmt.Errorf("getting %s: %w", what, err)
	}

	return env.Response, nil
}

// Get performs a raw authenticated GET relative to the API version prefix.
func (c *Client) Get(ctx context.Context, path string, query url.Values) *rest.Result {
	return c.rest.Get(ctx, path, query)
}
