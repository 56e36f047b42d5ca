package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// FormatVersion is the version of the persisted credential envelope.
const FormatVersion = 1

// Static errors for err113 compliance.
var (
	ErrUnsupportedVersion = errors.New("unsupported credential store version")
	ErrKindMismatch       = errors.New("credential store belongs to another cache")
)

type envelope struct {
	Version     int               `json:"version"`
	Kind        string            `json:"kind"`
	Credentials map[string]record `json:"credentials"`
}

type record struct {
	Value                 string    `json:"value"`
	IssuedAt              time.Time `json:"issued_at"`
	LastUsed              time.Time `json:"last_used,omitzero"`
	SessionTimeoutSeconds int64     `json:"session_timeout_seconds,omitempty"`
	IdleTimeoutSeconds    int64     `json:"idle_timeout_seconds,omitempty"`
	ExpiresAt             time.Time `json:"expires_at,omitzero"`
}

// Encode serializes the credentials of cache kind into the versioned envelope.
func Encode(kind string, creds map[string]*Credential) ([]byte, error) {
	env := envelope{
		Version:     FormatVersion,
		Kind:        kind,
		Credentials: make(map[string]record, len(creds)),
	}

	for host, cred := range creds {
		if cred == nil {
			continue
		}

		env.Credentials[host] = record{
			Value:                 cred.Value,
			IssuedAt:              cred.IssuedAt,
			LastUsed:              cred.LastUsed,
			SessionTimeoutSeconds: int64(cred.SessionTimeout / time.Second),
			IdleTimeoutSeconds:    int64(cred.IdleTimeout / time.Second),
			ExpiresAt:             cred.ExpiresAt,
		}
	}

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding credentials: %w", err)
	}

	return data, nil
}

// Decode parses an envelope written by Encode for the same cache kind.
func Decode(kind string, data []byte) (map[string]*Credential, error) {
	var env envelope

	err := json.Unmarshal(data, &env)
	if err != nil {
		return nil, fmt.Errorf("decoding credentials: %w", err)
	}

	if env.Version != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, env.Version)
	}

	if env.Kind != kind {
		return nil, fmt.Errorf("%w: found %q, expected %q", ErrKindMismatch, env.Kind, kind)
	}

	creds := make(map[string]*Credential, len(env.Credentials))
	for host, rec := range env.Credentials {
		creds[host] = &Credential{
			Value:          rec.Value,
			IssuedAt:       rec.IssuedAt,
			LastUsed:       rec.LastUsed,
			SessionTimeout: time.Duration(rec.SessionTimeoutSeconds) * time.Second,
			IdleTimeout:    time.Duration(rec.IdleTimeoutSeconds) * time.Second,
			ExpiresAt:      rec.ExpiresAt,
		}
	}

	return creds, nil
}
