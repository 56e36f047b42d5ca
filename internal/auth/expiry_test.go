package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/netdevops/ciscoctl/internal/auth"
)

var issued = time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)

func TestExpired(t *testing.T) {
	t.Parallel()

	tests := getExpiryTestCases()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, auth.Expired(tt.cred, tt.now))
		})
	}
}

//nolint:funlen
func getExpiryTestCases() []struct {
	name     string
	cred     *auth.Credential
	now      time.Time
	expected bool
} {
	ticket := func() *auth.Credential {
		cred := auth.NewTicket("ST-1", 6*time.Hour, 30*time.Minute)
		cred.IssuedAt = issued
		cred.LastUsed = issued

		return cred
	}

	return []struct {
		name     string
		cred     *auth.Credential
		now      time.Time
		expected bool
	}{
		{
			name:     "nil credential",
			cred:     nil,
			now:      issued,
			expected: true,
		},
		{
			name:     "empty value",
			cred:     &auth.Credential{IssuedAt: issued},
			now:      issued,
			expected: true,
		},
		{
			name:     "no bound",
			cred:     &auth.Credential{Value: "x", IssuedAt: issued},
			now:      issued.Add(1000 * time.Hour),
			expected: false,
		},
		{
			name:     "fresh ticket",
			cred:     ticket(),
			now:      issued.Add(time.Minute),
			expected: false,
		},
		{
			name:     "ticket one second before idle boundary minus grace",
			cred:     ticket(),
			now:      issued.Add(27*time.Minute - time.Second),
			expected: false,
		},
		{
			name:     "ticket at idle boundary minus grace",
			cred:     ticket(),
			now:      issued.Add(27 * time.Minute),
			expected: true,
		},
		{
			name: "ticket kept alive until session boundary",
			cred: func() *auth.Credential {
				cred := ticket()
				cred.LastUsed = issued.Add(5*time.Hour + 50*time.Minute)

				return cred
			}(),
			now:      issued.Add(6*time.Hour - 3*time.Minute),
			expected: true,
		},
		{
			name: "ticket kept alive before session boundary",
			cred: func() *auth.Credential {
				cred := ticket()
				cred.LastUsed = issued.Add(5*time.Hour + 50*time.Minute)

				return cred
			}(),
			now:      issued.Add(5*time.Hour + 56*time.Minute),
			expected: false,
		},
		{
			name: "idle timeout counts from issue when never used",
			cred: func() *auth.Credential {
				cred := ticket()
				cred.LastUsed = time.Time{}

				return cred
			}(),
			now:      issued.Add(28 * time.Minute),
			expected: true,
		},
		{
			name:     "token before expiry minus grace",
			cred:     auth.NewToken("tok", issued.Add(time.Hour)),
			now:      issued.Add(56 * time.Minute),
			expected: false,
		},
		{
			name:     "token inside grace",
			cred:     auth.NewToken("tok", issued.Add(time.Hour)),
			now:      issued.Add(58 * time.Minute),
			expected: true,
		},
		{
			name:     "token past expiry",
			cred:     auth.NewToken("tok", issued.Add(time.Hour)),
			now:      issued.Add(2 * time.Hour),
			expected: true,
		},
	}
}

func TestDeadline(t *testing.T) {
	t.Parallel()

	t.Run("earliest boundary wins", func(t *testing.T) {
		t.Parallel()

		cred := auth.NewTicket("ST-1", time.Hour, 2*time.Hour)
		cred.IssuedAt = issued
		cred.ExpiresAt = issued.Add(30 * time.Minute)

		assert.Equal(t, issued.Add(27*time.Minute), auth.Deadline(cred))
	})

	t.Run("unbounded", func(t *testing.T) {
		t.Parallel()

		assert.True(t, auth.Deadline(&auth.Credential{Value: "x"}).IsZero())
		assert.True(t, auth.Deadline(nil).IsZero())
	})
}

func TestCredential_Preview(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "ST-123***", (&auth.Credential{Value: "ST-1234567890"}).Preview())
	assert.Equal(t, "***", (&auth.Credential{Value: "abc"}).Preview())
	assert.Equal(t, "N/A", (*auth.Credential)(nil).Preview())
}
