package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBucketUnavailable = errors.New("bucket unavailable")

type memoryKV struct {
	mutex  sync.Mutex
	values map[string][]byte
	err    error
}

func (m *memoryKV) get(_ context.Context, key string) ([]byte, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.err != nil {
		return nil, m.err
	}

	value, ok := m.values[key]
	if !ok {
		return nil, ErrNotPersisted
	}

	return value, nil
}

func (m *memoryKV) put(_ context.Context, key string, value []byte) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.err != nil {
		return m.err
	}

	m.values[key] = value

	return nil
}

func TestNATSStore_SharedBetweenCaches(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	kv := &memoryKV{values: make(map[string][]byte)}
	calls := 0
	authenticator := AuthenticatorFunc(func(context.Context, string) (*Credential, error) {
		calls++

		return NewToken("tok-shared", time.Now().Add(time.Hour)), nil
	})

	first := NewCache(WithName("iosxe"), WithStore(&NATSStore{kv: kv, key: "iosxe"}))
	_, err := first.Acquire(ctx, "r1.example.com", authenticator)
	require.NoError(t, err)
	assert.Contains(t, kv.values, "iosxe")

	second := NewCache(WithName("iosxe"), WithStore(&NATSStore{kv: kv, key: "iosxe"}))
	cred, err := second.Acquire(ctx, "r1.example.com", authenticator)
	require.NoError(t, err)
	assert.Equal(t, "tok-shared", cred.Value)
	assert.Equal(t, 1, calls)
}

func TestNATSStore_RequiresURL(t *testing.T) {
	t.Parallel()

	_, err := NewNATSStore(context.Background(), NATSConfig{}, "apicem")
	require.ErrorIs(t, err, ErrNATSURLRequired)
}

func TestCacheMetrics(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	name := "metrics-" + t.Name()
	kv := &memoryKV{values: make(map[string][]byte)}
	cache := NewCache(WithName(name), WithStore(&NATSStore{kv: kv, key: name}))
	authenticator := AuthenticatorFunc(func(context.Context, string) (*Credential, error) {
		return NewTicket("ST-1", time.Hour, 30*time.Minute), nil
	})

	_, err := cache.Acquire(ctx, "apic.example.com", authenticator)
	require.NoError(t, err)

	_, err = cache.Acquire(ctx, "apic.example.com", authenticator)
	require.NoError(t, err)

	_, ok := NewCache(WithName(name), WithStore(&NATSStore{kv: kv, key: name})).Get(ctx, "apic.example.com")
	require.True(t, ok)

	assert.InDelta(t, 1, testutil.ToFloat64(credentialLookups.WithLabelValues(name, sourceMiss)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(credentialLookups.WithLabelValues(name, sourceMemory)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(credentialLookups.WithLabelValues(name, sourceStore)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(authentications.WithLabelValues(name, resultSuccess)), 0)

	kv.mutex.Lock()
	kv.err = errBucketUnavailable
	kv.mutex.Unlock()

	require.NoError(t, cache.Put(ctx, "apic.example.com", NewTicket("ST-2", time.Hour, 30*time.Minute)))
	assert.InDelta(t, 1, testutil.ToFloat64(persistFailures.WithLabelValues(name)), 0)
}
