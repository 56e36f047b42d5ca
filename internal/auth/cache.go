package auth

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/netdevops/ciscoctl/internal/logging"
)

// Static errors for err113 compliance.
var (
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrEmptyCredential      = errors.New("authenticator returned an empty credential")
	ErrEmptyHost            = errors.New("host is required")
)

// Cache holds the current credential per host for one vendor API.
//
// A single mutex covers every operation, including the authentication
// round-trip inside Acquire, so that concurrent callers racing on an expired
// credential trigger exactly one authentication.
type Cache struct {
	mutex   sync.Mutex
	name    string
	entries map[string]*Credential
	store   Store
	logger  logging.Logger
	now     func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithName sets the cache name used in persisted data, logs and metrics.
func WithName(name string) Option {
	return func(c *Cache) {
		c.name = name
	}
}

// WithStore sets the persisted store. Without one the cache is memory only.
func WithStore(store Store) Option {
	return func(c *Cache) {
		c.store = store
	}
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(c *Cache) {
		c.logger = logging.OrNop(logger)
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// NewCache creates an empty cache.
func NewCache(opts ...Option) *Cache {
	cache := &Cache{
		name:    "default",
		entries: make(map[string]*Credential),
		logger:  logging.Nop{},
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(cache)
	}

	return cache
}

// Name returns the cache name.
func (c *Cache) Name() string {
	return c.name
}

// Get returns a valid credential for host from memory or, failing that,
// from the store.
func (c *Cache) Get(ctx context.Context, host string) (*Credential, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.lookup(ctx, host)
}

// Put stores cred for host and persists it. IssuedAt is stamped when unset
// and LastUsed is always set to now. Persistence failures are logged only.
func (c *Cache) Put(ctx context.Context, host string, cred *Credential) error {
	if host == "" {
		return ErrEmptyHost
	}

	if cred == nil || cred.Value == "" {
		return ErrEmptyCredential
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.save(ctx, host, cred)

	return nil
}

// Touch marks cred as used now and persists it, provided it is still the
// credential held for host. A credential replaced while a request was in
// flight is left alone, and Touch reports false.
func (c *Cache) Touch(ctx context.Context, host string, cred *Credential) bool {
	if host == "" || cred == nil {
		return false
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	current, ok := c.entries[host]
	if !ok || current.Value != cred.Value {
		c.logger.Debug("credential was replaced during the request, not touching it", map[string]interface{}{
			"cache": c.name,
			"host":  host,
		})

		return false
	}

	c.save(ctx, host, current)

	return true
}

// Acquire returns a valid credential for host, calling authenticator when
// neither memory nor store hold one. A freshly issued credential is returned
// even if it already falls inside the grace margin.
func (c *Cache) Acquire(ctx context.Context, host string, authenticator Authenticator) (*Credential, error) {
	if host == "" {
		return nil, ErrEmptyHost
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	cred, ok := c.lookup(ctx, host)
	if ok {
		return cred, nil
	}

	c.logger.Info("requesting new credential", map[string]interface{}{
		"cache": c.name,
		"host":  host,
	})

	issued, err := authenticator.Authenticate(ctx, host)
	if err != nil {
		authentications.WithLabelValues(c.name, resultError).Inc()

		return nil, fmt.Errorf("%w: %s: %w", ErrAuthenticationFailed, host, err)
	}

	if issued == nil || issued.Value == "" {
		authentications.WithLabelValues(c.name, resultError).Inc()

		return nil, fmt.Errorf("%w: %s", ErrEmptyCredential, host)
	}

	authentications.WithLabelValues(c.name, resultSuccess).Inc()

	return c.save(ctx, host, issued), nil
}

// Entry is a cached credential as listed by Entries.
type Entry struct {
	Host       string
	Credential *Credential
	Deadline   time.Time
	Expired    bool
	InMemory   bool
}

// Entries lists the credentials in memory and in the store, expired ones
// included, sorted by host.
func (c *Cache) Entries(ctx context.Context) []Entry {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	merged := c.load(ctx)
	for host, cred := range c.entries {
		merged[host] = cred
	}

	now := c.now()
	entries := make([]Entry, 0, len(merged))

	for host, cred := range merged {
		_, inMemory := c.entries[host]
		entries = append(entries, Entry{
			Host:       host,
			Credential: cred.Clone(),
			Deadline:   Deadline(cred),
			Expired:    Expired(cred, now),
			InMemory:   inMemory,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Host < entries[j].Host
	})

	return entries
}

// lookup must be called with the mutex held.
func (c *Cache) lookup(ctx context.Context, host string) (*Credential, bool) {
	now := c.now()
	fields := map[string]interface{}{"cache": c.name, "host": host}

	cred, ok := c.entries[host]
	if ok && !Expired(cred, now) {
		c.logger.Debug("found credential in memory cache", fields)
		credentialLookups.WithLabelValues(c.name, sourceMemory).Inc()

		return cred.Clone(), true
	}

	c.logger.Debug("no credential in memory cache", fields)

	if c.store != nil {
		cred, ok = c.load(ctx)[host]
		if ok && !Expired(cred, now) {
			c.logger.Debug("found credential in persisted store", fields)
			credentialLookups.WithLabelValues(c.name, sourceStore).Inc()
			c.entries[host] = cred

			return cred.Clone(), true
		}

		c.logger.Debug("no credential in persisted store", fields)
	}

	credentialLookups.WithLabelValues(c.name, sourceMiss).Inc()

	return nil, false
}

// save must be called with the mutex held.
func (c *Cache) save(ctx context.Context, host string, cred *Credential) *Credential {
	now := c.now()

	stored := cred.Clone()
	if stored.IssuedAt.IsZero() {
		stored.IssuedAt = now
	}

	stored.LastUsed = now
	c.entries[host] = stored

	c.persist(ctx)

	return stored.Clone()
}

// persist writes memory entries over what the store already holds, keeping
// entries for hosts this process has not touched.
func (c *Cache) persist(ctx context.Context) {
	if c.store == nil {
		return
	}

	merged := c.load(ctx)
	for host, cred := range c.entries {
		merged[host] = cred
	}

	data, err := Encode(c.name, merged)
	if err == nil {
		err = c.store.Save(ctx, data)
	}

	if err != nil {
		persistFailures.WithLabelValues(c.name).Inc()
		c.logger.Warn("failed to persist credentials, keeping them in memory only", map[string]interface{}{
			"cache": c.name,
			"error": err.Error(),
		})
	}
}

// load returns the decoded store content, or an empty map when the store is
// absent, empty or unreadable.
func (c *Cache) load(ctx context.Context) map[string]*Credential {
	creds := make(map[string]*Credential)

	if c.store == nil {
		return creds
	}

	data, err := c.store.Load(ctx)
	if errors.Is(err, ErrNotPersisted) {
		return creds
	}

	if err == nil {
		var decoded map[string]*Credential

		decoded, err = Decode(c.name, data)
		if err == nil {
			return decoded
		}
	}

	c.logger.Warn("ignoring unreadable credential store", map[string]interface{}{
		"cache": c.name,
		"error": err.Error(),
	})

	return creds
}
