package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/netdevops/ciscoctl/internal/apicem"
	"github.com/netdevops/ciscoctl/internal/auth"
	"github.com/netdevops/ciscoctl/internal/config"
	"github.com/netdevops/ciscoctl/internal/constants"
	cischttp "github.com/netdevops/ciscoctl/internal/http"
	"github.com/netdevops/ciscoctl/internal/iosxe"
	"github.com/netdevops/ciscoctl/internal/logging"
)

// loadConfig decodes the global viper instance.
func loadConfig() (*config.Config, error) {
	return config.Load(viper.GetViper())
}

// newLogger builds the stderr logger from log.level, log.format and --verbose.
func newLogger(cmd *cobra.Command) *logging.SlogLogger {
	level := viper.GetString("log.level")
	if viper.GetBool("verbose") {
		level = "debug"
	}

	return logging.New(logging.Config{
		Level:  level,
		Format: viper.GetString("log.format"),
		Output: cmd.ErrOrStderr(),
	})
}

// session bundles what a device command needs and releases it on Close.
type session struct {
	cfg     *config.Config
	logger  *logging.SlogLogger
	closers []io.Closer
	// where each vendor's credentials are persisted, empty for memory only
	locations map[string]string
}

func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	return &session{cfg: cfg, logger: newLogger(cmd), locations: make(map[string]string)}, nil
}

// Close releases store connections.
func (s *session) Close() {
	for _, closer := range s.closers {
		_ = closer.Close()
	}
}

// cache creates the credential cache of vendor on the configured store.
func (s *session) cache(ctx context.Context, vendor string) (*auth.Cache, error) {
	opts := []auth.Option{
		auth.WithName(vendor),
		auth.WithLogger(s.logger.With("credentials")),
	}

	switch s.cfg.Store.Backend {
	case constants.StoreBackendFile:
		store := auth.NewFileStore(s.cfg.CredentialFile(vendor))
		s.locations[vendor] = store.Path()
		opts = append(opts, auth.WithStore(store))
	case constants.StoreBackendNATS:
		store, err := auth.NewNATSStore(ctx, auth.NATSConfig{
			URL:     s.cfg.Store.NATS.URL,
			Bucket:  s.cfg.Store.NATS.Bucket,
			Timeout: s.cfg.Store.NATS.Timeout,
		}, vendor)
		if err != nil {
			return nil, fmt.Errorf("opening credential store: %w", err)
		}

		s.closers = append(s.closers, store)
		s.locations[vendor] = fmt.Sprintf("%s bucket %s key %s", s.cfg.Store.NATS.URL, s.cfg.Store.NATS.Bucket, vendor)
		opts = append(opts, auth.WithStore(store))
	case constants.StoreBackendNone:
	default:
		return nil, fmt.Errorf("%w: %q", constants.ErrUnknownStoreBackend, s.cfg.Store.Backend)
	}

	s.logger.Debug("credential store selected", map[string]interface{}{
		"vendor":   vendor,
		"backend":  s.cfg.Store.Backend,
		"location": s.locations[vendor],
	})

	return auth.NewCache(opts...), nil
}

// httpOptions maps the http section onto transport options.
func (s *session) httpOptions() ([]cischttp.Option, error) {
	opts := []cischttp.Option{
		cischttp.WithTimeout(s.cfg.HTTP.Timeout),
		cischttp.WithRetryConfig(s.cfg.HTTP.RetryMax, constants.DefaultRetryWaitMin, constants.DefaultRetryWaitMax),
		cischttp.WithInsecureSkipVerify(s.cfg.HTTP.InsecureSkipVerify),
		cischttp.WithDebug(viper.GetBool("verbose")),
		cischttp.WithUserAgent(constants.AppName),
	}

	if s.cfg.HTTP.Proxy != "" {
		proxyURL, err := cischttp.ParseProxy(s.cfg.HTTP.Proxy)
		if err != nil {
			return nil, err
		}

		opts = append(opts, cischttp.WithProxy(proxyURL))
	}

	return opts, nil
}

func (s *session) apicem(cmd *cobra.Command) (*apicem.Client, error) {
	section := s.cfg.APICEM

	err := section.Validate()
	if err != nil {
		return nil, err
	}

	password, err := passwordFor(cmd, "APIC-EM", section.Username, section.Password)
	if err != nil {
		return nil, err
	}

	cache, err := s.cache(cmd.Context(), constants.VendorAPICEM)
	if err != nil {
		return nil, err
	}

	opts, err := s.httpOptions()
	if err != nil {
		return nil, err
	}

	return apicem.New(apicem.Config{
		Host:         section.Host,
		Port:         section.Port,
		Version:      section.Version,
		Username:     section.Username,
		Password:     password,
		PollInterval: section.PollInterval,
		MaxAttempts:  section.PollAttempts,
	}, cache, s.logger.With(constants.VendorAPICEM), opts...), nil
}

// iosxe returns one client per host, all sharing one credential cache.
// Without hosts the configured iosxe.host is used.
func (s *session) iosxe(cmd *cobra.Command, hosts []string) ([]*iosxe.Client, error) {
	section := s.cfg.IOSXE
	if len(hosts) == 0 {
		hosts = []string{section.Host}
	} else if section.Host == "" {
		section.Host = hosts[0]
	}

	err := section.Validate()
	if err != nil {
		return nil, err
	}

	password, err := passwordFor(cmd, "IOS-XE", section.Username, section.Password)
	if err != nil {
		return nil, err
	}

	cache, err := s.cache(cmd.Context(), constants.VendorIOSXE)
	if err != nil {
		return nil, err
	}

	opts, err := s.httpOptions()
	if err != nil {
		return nil, err
	}

	clients := make([]*iosxe.Client, 0, len(hosts))
	for _, host := range hosts {
		clients = append(clients, iosxe.New(iosxe.Config{
			Host:     host,
			Port:     section.Port,
			Username: section.Username,
			Password: password,
		}, cache, s.logger.With(constants.VendorIOSXE), opts...))
	}

	return clients, nil
}

// passwordFor returns the configured password or prompts for it when stdin
// is a terminal.
func passwordFor(cmd *cobra.Command, product, username, password string) (string, error) {
	if password != "" {
		return password, nil
	}

	fd := int(os.Stdin.Fd()) //nolint:gosec // file descriptors fit in int

	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("%w for %s user %s", constants.ErrPasswordRequired, product, username)
	}

	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s password for %s: ", product, username)

	secret, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(cmd.ErrOrStderr())

	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	if strings.TrimSpace(string(secret)) == "" {
		return "", constants.ErrPasswordRequired
	}

	return string(secret), nil
}
