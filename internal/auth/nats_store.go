package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/netdevops/ciscoctl/internal/constants"
)

// Static errors for err113 compliance.
var (
	ErrNATSURLRequired = errors.New("NATS URL is required")
)

// NATSConfig configures the JetStream key-value credential store.
type NATSConfig struct {
	URL     string
	Bucket  string
	Timeout time.Duration
}

// keyValue is the part of jetstream.KeyValue the store needs.
type keyValue interface {
	get(ctx context.Context, key string) ([]byte, error)
	put(ctx context.Context, key string, value []byte) error
}

type jetstreamKV struct {
	kv jetstream.KeyValue
}

func (j jetstreamKV) get(ctx context.Context, key string) ([]byte, error) {
	entry, err := j.kv.Get(ctx, key)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, ErrNotPersisted
	}

	if err != nil {
		return nil, fmt.Errorf("reading key %q: %w", key, err)
	}

	return entry.Value(), nil
}

func (j jetstreamKV) put(ctx context.Context, key string, value []byte) error {
	_, err := j.kv.Put(ctx, key, value)
	if err != nil {
		return fmt.Errorf("writing key %q: %w", key, err)
	}

	return nil
}

// NATSStore keeps the encoded credentials of one cache under a single key of
// a JetStream KV bucket, so several hosts running ciscoctl share credentials.
type NATSStore struct {
	conn *nats.Conn
	kv   keyValue
	key  string
}

// NewNATSStore connects to NATS and opens (or creates) the bucket.
func NewNATSStore(ctx context.Context, config NATSConfig, key string) (*NATSStore, error) {
	if config.URL == "" {
		return nil, ErrNATSURLRequired
	}

	if config.Bucket == "" {
		config.Bucket = constants.DefaultNATSBucket
	}

	if config.Timeout <= 0 {
		config.Timeout = constants.DefaultNATSTimeout
	}

	conn, err := nats.Connect(config.URL, nats.Name(constants.AppName), nats.Timeout(config.Timeout))
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()

		return nil, fmt.Errorf("creating JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, config.Timeout)
	defer cancel()

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      config.Bucket,
		Description: "ciscoctl device API credentials",
		History:     1,
	})
	if err != nil {
		conn.Close()

		return nil, fmt.Errorf("opening KV bucket %q: %w", config.Bucket, err)
	}

	return &NATSStore{
		conn: conn,
		kv:   jetstreamKV{kv: kv},
		key:  key,
	}, nil
}

// Load reads the key.
func (s *NATSStore) Load(ctx context.Context) ([]byte, error) {
	return s.kv.get(ctx, s.key)
}

// Save replaces the key.
func (s *NATSStore) Save(ctx context.Context, data []byte) error {
	return s.kv.put(ctx, s.key, data)
}

// Close releases the NATS connection.
func (s *NATSStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}

	return nil
}
