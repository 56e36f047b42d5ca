package apicem

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/netdevops/ciscoctl/internal/auth"
	cischttp "github.com/netdevops/ciscoctl/internal/http"
)

// Authenticator obtains a service ticket with a JSON username/password POST.
type Authenticator struct {
	Transport *cischttp.Client
	// Path is the ticket endpoint relative to the transport base URL.
	Path     string
	Username string
	Password string
}

type ticketRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type ticketResponse struct {
	ServiceTicket  string `json:"serviceTicket"`
	IdleTimeout    int64  `json:"idleTimeout"`
	SessionTimeout int64  `json:"sessionTimeout"`
}

// Authenticate implements auth.Authenticator. The host argument is the cache
// key; the transport already points at the controller.
func (a *Authenticator) Authenticate(ctx context.Context, _ string) (*auth.Credential, error) {
	resp, err := a.Transport.Post(ctx, a.Path, ticketRequest{
		Username: a.Username,
		Password: a.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("requesting service ticket: %w", err)
	}

	var env envelope[ticketResponse]

	err = json.Unmarshal(resp.Body, &env)
	if err != nil {
		return nil, fmt.Errorf("decoding service ticket: %w", err)
	}

	if env.Response.ServiceTicket == "" {
		return nil, ErrEmptyTicket
	}

	// A ticket without any timeout would never expire from the cache.
	if env.Response.SessionTimeout <= 0 && env.Response.IdleTimeout <= 0 {
		return nil, ErrNoTimeout
	}

	return auth.NewTicket(
		env.Response.ServiceTicket,
		time.Duration(env.Response.SessionTimeout)*time.Second,
		time.Duration(env.Response.IdleTimeout)*time.Second,
	), nil
}
