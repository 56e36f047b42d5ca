package rest_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netdevops/ciscoctl/internal/auth"
	cischttp "github.com/netdevops/ciscoctl/internal/http"
	"github.com/netdevops/ciscoctl/internal/rest"
)

var errLoginRejected = errors.New("login rejected")

type testEnv struct {
	server *httptest.Server
	client *rest.Client
	cache  *auth.Cache
	logins *atomic.Int32
}

func newTestEnv(t *testing.T, handler http.HandlerFunc, authenticator auth.Authenticator) *testEnv {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logins := &atomic.Int32{}
	if authenticator == nil {
		authenticator = auth.AuthenticatorFunc(func(context.Context, string) (*auth.Credential, error) {
			logins.Add(1)

			return auth.NewTicket("ST-42", time.Hour, 30*time.Minute), nil
		})
	}

	cache := auth.NewCache(auth.WithName("rest-test"))

	return &testEnv{
		server: server,
		cache:  cache,
		logins: logins,
		client: rest.NewClient(rest.Config{
			Host:          "apic.example.com",
			Header:        "X-Auth-Token",
			BasePath:      "/api/v1",
			Transport:     cischttp.NewClient(server.URL, cischttp.WithRetryConfig(0, time.Millisecond, time.Millisecond)),
			Cache:         cache,
			Authenticator: authenticator,
		}),
	}
}

func TestClient_AttachesCredential(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ST-42", r.Header.Get("X-Auth-Token"))
		assert.Equal(t, "/api/v1/host", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response":[{"hostIp":"10.1.15.117"}],"version":"1.0"}`))
	}, nil)

	result := env.client.Get(context.Background(), "/host", map[string][]string{"limit": {"5"}})
	require.NoError(t, result.Err())
	assert.True(t, result.OK())
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, "application/json", result.ContentType)

	var body struct {
		Response []struct {
			HostIP string `json:"hostIp"`
		} `json:"response"`
	}

	require.NoError(t, result.DecodeJSON(&body))
	require.Len(t, body.Response, 1)
	assert.Equal(t, "10.1.15.117", body.Response[0].HostIP)
}

func TestClient_ReusesCredentialAcrossCalls(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}, nil)

	ctx := context.Background()
	assert.True(t, env.client.Get(ctx, "/host", nil).OK())
	assert.True(t, env.client.Post(ctx, "/flow-analysis", map[string]string{"sourceIP": "10.0.0.1"}).OK())
	assert.True(t, env.client.Put(ctx, "/x", nil).OK())
	assert.True(t, env.client.Delete(ctx, "/x").OK())

	assert.Equal(t, int32(4), calls.Load())
	assert.Equal(t, int32(1), env.logins.Load())
}

func TestClient_RefreshesLastUsedOnSuccess(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}, nil)

	ctx := context.Background()

	before, err := env.client.Credential(ctx)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	require.True(t, env.client.Get(ctx, "/host", nil).OK())

	after, ok := env.cache.Get(ctx, "apic.example.com")
	require.True(t, ok)
	assert.True(t, after.LastUsed.After(before.LastUsed))
	assert.True(t, before.IssuedAt.Equal(after.IssuedAt))
}

func TestClient_NoCredential(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}, auth.AuthenticatorFunc(func(context.Context, string) (*auth.Credential, error) {
		return nil, errLoginRejected
	}))

	result := env.client.Get(context.Background(), "/host", nil)
	assert.Equal(t, rest.StatusNoCredential, result.StatusCode)
	assert.False(t, result.OK())
	require.ErrorIs(t, result.Err(), rest.ErrNoCredential)
	require.ErrorIs(t, result.Err(), errLoginRejected)
	assert.Equal(t, int32(0), calls.Load())
}

func TestClient_RequestFailed(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {}, nil)
	env.server.Close()

	result := env.client.Get(context.Background(), "/host", nil)
	assert.Equal(t, rest.StatusRequestFailed, result.StatusCode)
	require.ErrorIs(t, result.Err(), rest.ErrRequestFailed)

	var body map[string]interface{}
	require.ErrorIs(t, result.DecodeJSON(&body), rest.ErrRequestFailed)
}

func TestClient_HTTPError(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}, nil)

	result := env.client.Get(context.Background(), "/network-device/missing", nil)
	assert.Equal(t, http.StatusNotFound, result.StatusCode)

	var statusErr *rest.StatusError
	require.ErrorAs(t, result.Err(), &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Contains(t, statusErr.Error(), "not found")
}

type steppingClock struct {
	mutex sync.Mutex
	now   time.Time
}

func (c *steppingClock) Now() time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.now
}

func (c *steppingClock) Advance(d time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.now = c.now.Add(d)
}

func TestClient_SlowCallKeepsNewerCredential(t *testing.T) {
	t.Parallel()

	clock := &steppingClock{now: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}
	started := make(chan struct{})
	release := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/slow" {
			close(started)
			<-release
		}

		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	var logins atomic.Int32

	cache := auth.NewCache(auth.WithName("rest-slow-call"), auth.WithClock(clock.Now))
	client := rest.NewClient(rest.Config{
		Host:      "apic.example.com",
		Header:    "X-Auth-Token",
		BasePath:  "/api/v1",
		Transport: cischttp.NewClient(server.URL, cischttp.WithRetryConfig(0, time.Millisecond, time.Millisecond)),
		Cache:     cache,
		Authenticator: auth.AuthenticatorFunc(func(context.Context, string) (*auth.Credential, error) {
			n := logins.Add(1)

			return auth.NewTicket("ST-"+strconv.Itoa(int(n)), 10*time.Minute, 30*time.Minute), nil
		}),
	})

	ctx := context.Background()
	done := make(chan *rest.Result)

	go func() {
		done <- client.Get(ctx, "/slow", nil)
	}()

	<-started

	// ST-1 is past its session timeout minus the grace margin.
	clock.Advance(8 * time.Minute)
	require.True(t, client.Get(ctx, "/host", nil).OK())
	assert.Equal(t, int32(2), logins.Load())

	close(release)
	require.True(t, (<-done).OK())

	cached, ok := cache.Get(ctx, "apic.example.com")
	require.True(t, ok)
	assert.Equal(t, "ST-2", cached.Value)

	require.True(t, client.Get(ctx, "/host", nil).OK())
	assert.Equal(t, int32(2), logins.Load())
}
