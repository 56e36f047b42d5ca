package auth

import "time"

// GraceMargin is subtracted from every timeout boundary to absorb clock skew
// between this host and the device.
const GraceMargin = 3 * time.Minute

// Deadline returns the instant from which cred is treated as expired, or the
// zero time when cred has no bound at all.
func Deadline(cred *Credential) time.Time {
	if cred == nil {
		return time.Time{}
	}

	var deadline time.Time

	earliest := func(t time.Time) {
		if deadline.IsZero() || t.Before(deadline) {
			deadline = t
		}
	}

	if cred.SessionTimeout > 0 {
		earliest(cred.IssuedAt.Add(cred.SessionTimeout))
	}

	if cred.IdleTimeout > 0 {
		lastUsed := cred.LastUsed
		if lastUsed.IsZero() {
			lastUsed = cred.IssuedAt
		}

		earliest(lastUsed.Add(cred.IdleTimeout))
	}

	if !cred.ExpiresAt.IsZero() {
		earliest(cred.ExpiresAt)
	}

	if deadline.IsZero() {
		return deadline
	}

	return deadline.Add(-GraceMargin)
}

// Expired reports whether cred must not be used at now.
func Expired(cred *Credential, now time.Time) bool {
	if cred == nil || cred.Value == "" {
		return true
	}

	deadline := Deadline(cred)
	if deadline.IsZero() {
		return false
	}

	return !now.Before(deadline)
}
