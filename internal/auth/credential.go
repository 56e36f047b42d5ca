// Package auth manages the lifecycle of device API credentials: the APIC-EM
// service ticket and the IOS-XE token. A Cache keeps the current credential
// per host in memory, persists it through a Store and serializes
// authentication so concurrent callers share one round-trip.
package auth

import (
	"context"
	"time"

	"github.com/netdevops/ciscoctl/internal/constants"
)

// Credential is an issued ticket or token.
//
// Ticket credentials carry SessionTimeout and IdleTimeout relative to
// IssuedAt and LastUsed. Token credentials carry the server supplied
// ExpiresAt.
type Credential struct {
	Value          string
	IssuedAt       time.Time
	LastUsed       time.Time
	SessionTimeout time.Duration
	IdleTimeout    time.Duration
	ExpiresAt      time.Time
}

// NewTicket creates a credential bounded by session and idle timeouts.
func NewTicket(value string, sessionTimeout, idleTimeout time.Duration) *Credential {
	return &Credential{
		Value:          value,
		SessionTimeout: sessionTimeout,
		IdleTimeout:    idleTimeout,
	}
}

// NewToken creates a credential bounded by an absolute expiry.
func NewToken(value string, expiresAt time.Time) *Credential {
	return &Credential{
		Value:     value,
		ExpiresAt: expiresAt,
	}
}

// Clone returns a copy that can be handed out without sharing state.
func (c *Credential) Clone() *Credential {
	if c == nil {
		return nil
	}

	clone := *c

	return &clone
}

// Preview returns the first characters of the value for logs and tables.
func (c *Credential) Preview() string {
	if c == nil || c.Value == "" {
		return constants.NotAvailable
	}

	if len(c.Value) <= constants.SecretPreviewLength {
		return constants.MaskedSecret
	}

	return c.Value[:constants.SecretPreviewLength] + constants.MaskedSecret
}

// Authenticator performs the vendor authentication call for host.
type Authenticator interface {
	Authenticate(ctx context.Context, host string) (*Credential, error)
}

// AuthenticatorFunc adapts a function to Authenticator.
type AuthenticatorFunc func(ctx context.Context, host string) (*Credential, error)

// Authenticate implements Authenticator.
func (f AuthenticatorFunc) Authenticate(ctx context.Context, host string) (*Credential, error) {
	return f(ctx, host)
}
