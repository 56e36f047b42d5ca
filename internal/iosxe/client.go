// Package iosxe is the IOS-XE REST API client: token-services
// authentication plus running configuration, interfaces, routing table and
// CPU resources.
package iosxe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/netdevops/ciscoctl/internal/auth"
	"github.com/netdevops/ciscoctl/internal/constants"
	cischttp "github.com/netdevops/ciscoctl/internal/http"
	"github.com/netdevops/ciscoctl/internal/logging"
	"github.com/netdevops/ciscoctl/internal/rest"
)

// Static errors for err113 compliance.
var (
	ErrEmptyToken    = errors.New("IOS-XE returned no token")
	ErrInvalidExpiry = errors.New("invalid token expiry time")
)

// ExpiryLayout is the format of the expiry-time field, always in UTC.
const ExpiryLayout = "Mon Jan _2 15:04:05 2006"

const tokenServicesPath = "/api/v1/auth/token-services"

// Config describes one IOS-XE device.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
}

// Client calls the REST API of one device.
type Client struct {
	rest *rest.Client
}

// New wires the transport, the token authenticator and the REST client for
// config. The cache is keyed by host, so one cache serves many devices.
func New(config Config, cache *auth.Cache, logger logging.Logger, opts ...cischttp.Option) *Client {
	if config.Port == 0 {
		config.Port = constants.IOSXEDefaultPort
	}

	logger = logging.OrNop(logger)
	opts = append([]cischttp.Option{cischttp.WithLogger(logger)}, opts...)
	transport := cischttp.NewClient(rest.BaseURL(config.Host, config.Port), opts...)

	return &Client{
		rest: rest.NewClient(rest.Config{
			Host:      config.Host,
			Header:    constants.IOSXETokenHeader,
			Transport: transport,
			Cache:     cache,
			Authenticator: &Authenticator{
				Transport: transport,
				Username:  config.Username,
				Password:  config.Password,
			},
			Logger: logger,
		}),
	}
}

// REST returns the underlying authenticated client for raw calls.
func (c *Client) REST() *rest.Client {
	return c.rest
}

// Authenticator obtains a token with an HTTP Basic POST to token-services.
type Authenticator struct {
	Transport *cischttp.Client
	Username  string
	Password  string
}

type tokenResponse struct {
	Kind       string `json:"kind"`
	Link       string `json:"link"`
	ExpiryTime string `json:"expiry-time"`
	TokenID    string `json:"token-id"`
}

// Authenticate implements auth.Authenticator.
func (a *Authenticator) Authenticate(ctx context.Context, _ string) (*auth.Credential, error) {
	resp, err := a.Transport.Do(ctx, &cischttp.Request{
		Method:    http.MethodPost,
		Path:      tokenServicesPath,
		BasicAuth: &cischttp.BasicAuth{Username: a.Username, Password: a.Password},
	})
	if err != nil {
		return nil, fmt.Errorf("requesting token: %w", err)
	}

	var token tokenResponse

	err = json.Unmarshal(resp.Body, &token)
	if err != nil {
		return nil, fmt.Errorf("decoding token: %w", err)
	}

	if token.TokenID == "" {
		return nil, ErrEmptyToken
	}

	expiresAt, err := ParseExpiry(token.ExpiryTime)
	if err != nil {
		return nil, err
	}

	return auth.NewToken(token.TokenID, expiresAt), nil
}

// ParseExpiry parses expiry-time as UTC. RFC 3339 is accepted as well.
func ParseExpiry(value string) (time.Time, error) {
	value = strings.TrimSpace(value)

	expiresAt, err := time.ParseInLocation(ExpiryLayout, value, time.UTC)
	if err == nil {
		return expiresAt, nil
	}

	expiresAt, err = time.Parse(time.RFC3339, value)
	if err == nil {
		return expiresAt.UTC(), nil
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidExpiry, value)
}

// Interface is one entry of the interface collection.
type Interface struct {
	Name        string `json:"if-name"      yaml:"if-name"`
	Type        string `json:"type"         yaml:"type"`
	Description string `json:"description"  yaml:"description"`
	IPAddress   string `json:"ip-address"   yaml:"ip-address"`
	SubnetMask  string `json:"subnet-mask"  yaml:"subnet-mask"`
	MACAddress  string `json:"mac-address"  yaml:"mac-address"`
	AdminStatus string `json:"admin-status" yaml:"admin-status"`
}

// Route is one entry of the routing table.
type Route struct {
	DestinationNetwork string `json:"destination-network" yaml:"destination-network"`
	NextHopRouter      string `json:"next-hop-router"     yaml:"next-hop-router"`
	OutgoingInterface  string `json:"outgoing-interface"  yaml:"outgoing-interface"`
	AdminDistance      int    `json:"admin-distance"      yaml:"admin-distance"`
	Metric             int    `json:"metric"              yaml:"metric"`
}

// CPU is the processor utilization summary.
type CPU struct {
	Kind                 string  `json:"kind"                    yaml:"kind"`
	Last5SecsUtilization float64 `json:"last-5-secs-utilization" yaml:"last-5-secs-utilization"`
	Last1MinUtilization  float64 `json:"last-1-min-utilization"  yaml:"last-1-min-utilization"`
	Last5MinsUtilization float64 `json:"last-5-mins-utilization" yaml:"last-5-mins-utilization"`
}

type collection[T any] struct {
	Kind  string `json:"kind"`
	Items []T    `json:"items"`
}

type runningConfig struct {
	Config string `json:"config"`
}

// RunningConfig returns the running configuration text.
func (c *Client) RunningConfig(ctx context.Context) (string, error) {
	result := c.rest.Get(ctx, "/api/v1/global/running-config", nil)

	err := result.Err()
	if err != nil {
		return "", fmt.Errorf("getting running config: %w", err)
	}

	if result.IsJSON() {
		var config runningConfig

		err = result.DecodeJSON(&config)
		if err != nil {
			return "", fmt.Errorf("getting running config: %w", err)
		}

		return config.Config, nil
	}

	return result.Text(), nil
}

// Interfaces lists the interfaces.
func (c *Client) Interfaces(ctx context.Context) ([]Interface, error) {
	return items[Interface](c.rest.Get(ctx, "/api/v1/interfaces", nil), "interfaces")
}

// RoutingTable lists the routing table.
func (c *Client) RoutingTable(ctx context.Context) ([]Route, error) {
	return items[Route](c.rest.Get(ctx, "/api/v1/routing-svc/routing-table", nil), "routing table")
}

// CPU returns the CPU utilization.
func (c *Client) CPU(ctx context.Context) (*CPU, error) {
	var cpu CPU

	err := c.rest.Get(ctx, "/api/v1/global/cpu", nil).DecodeJSON(&cpu)
	if err != nil {
		return nil, fmt.Errorf("getting cpu: %w", err)
	}

	return &cpu, nil
}

// Get performs a raw authenticated GET.
func (c *Client) Get(ctx context.Context, path string, query url.Values) *rest.Result {
	return c.rest.Get(ctx, path, query)
}

func items[T any](result *rest.Result, what string) ([]T, error) {
	var coll collection[T]

	err := result.DecodeJSON(&coll)
	if err != nil {
		return nil, fmt.Errorf("getting %s: %w", what, err)
	}

	return coll.Items, nil
}
