// Package config holds the typed ciscoctl configuration read through viper
// from ~/.ciscoctl/config.yml, CISCOCTL_* environment variables and flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/netdevops/ciscoctl/internal/constants"
)

const maxPort = 65535

// Config is the complete CLI configuration.
type Config struct {
	Output string       `json:"output" mapstructure:"output" yaml:"output"`
	Log    LogConfig    `json:"log"    mapstructure:"log"    yaml:"log"`
	HTTP   HTTPConfig   `json:"http"   mapstructure:"http"   yaml:"http"`
	Store  StoreConfig  `json:"store"  mapstructure:"store"  yaml:"store"`
	APICEM APICEMConfig `json:"apicem" mapstructure:"apicem" yaml:"apicem"`
	IOSXE  IOSXEConfig  `json:"iosxe"  mapstructure:"iosxe"  yaml:"iosxe"`
}

// LogConfig configures the stderr logger.
type LogConfig struct {
	Level  string `json:"level"  mapstructure:"level"  yaml:"level"`
	Format string `json:"format" mapstructure:"format" yaml:"format"`
}

// HTTPConfig configures the device API transport.
type HTTPConfig struct {
	Timeout            time.Duration `json:"timeout"              mapstructure:"timeout"              yaml:"timeout"`
	RetryMax           int           `json:"retry_max"            mapstructure:"retry_max"            yaml:"retry_max"`
	InsecureSkipVerify bool          `json:"insecure_skip_verify" mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify"`
	Proxy              string        `json:"proxy,omitempty"      mapstructure:"proxy"                yaml:"proxy,omitempty"`
}

// StoreConfig selects where credentials are persisted.
type StoreConfig struct {
	Backend string     `json:"backend" mapstructure:"backend" yaml:"backend"`
	Dir     string     `json:"dir"     mapstructure:"dir"     yaml:"dir"`
	NATS    NATSConfig `json:"nats"    mapstructure:"nats"    yaml:"nats"`
}

// NATSConfig locates the JetStream KV bucket of the nats backend.
type NATSConfig struct {
	URL     string        `json:"url,omitempty" mapstructure:"url"     yaml:"url,omitempty"`
	Bucket  string        `json:"bucket"        mapstructure:"bucket"  yaml:"bucket"`
	Timeout time.Duration `json:"timeout"       mapstructure:"timeout" yaml:"timeout"`
}

// APICEMConfig locates the APIC-EM controller.
type APICEMConfig struct {
	Host         string        `json:"host"          mapstructure:"host"          yaml:"host"`
	Port         int           `json:"port"          mapstructure:"port"          yaml:"port"`
	Version      string        `json:"version"       mapstructure:"version"       yaml:"version"`
	Username     string        `json:"username"      mapstructure:"username"      yaml:"username"`
	Password     string        `json:"password"      mapstructure:"password"      yaml:"password"`
	PollInterval time.Duration `json:"poll_interval" mapstructure:"poll_interval" yaml:"poll_interval"`
	PollAttempts int           `json:"poll_attempts" mapstructure:"poll_attempts" yaml:"poll_attempts"`
}

// IOSXEConfig locates the default IOS-XE device. Username and password are
// shared by every device addressed with --host.
type IOSXEConfig struct {
	Host     string `json:"host"     mapstructure:"host"     yaml:"host"`
	Port     int    `json:"port"     mapstructure:"port"     yaml:"port"`
	Username string `json:"username" mapstructure:"username" yaml:"username"`
	Password string `json:"password" mapstructure:"password" yaml:"password"`
}

// Dir returns ~/.ciscoctl, or a relative .ciscoctl when there is no home.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return constants.ConfigDirName
	}

	return filepath.Join(home, constants.ConfigDirName)
}

// SetDefaults registers every key with its default so that AllKeys lists
// the complete configuration.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("output", constants.FormatTable)
	v.SetDefault("log.level", constants.DefaultLogLevel)
	v.SetDefault("log.format", constants.DefaultLogFormat)

	v.SetDefault("http.timeout", constants.DefaultHTTPTimeout)
	v.SetDefault("http.retry_max", constants.DefaultRetryMax)
	v.SetDefault("http.insecure_skip_verify", false)
	v.SetDefault("http.proxy", "")

	v.SetDefault("store.backend", constants.StoreBackendFile)
	v.SetDefault("store.dir", Dir())
	v.SetDefault("store.nats.url", "")
	v.SetDefault("store.nats.bucket", constants.DefaultNATSBucket)
	v.SetDefault("store.nats.timeout", constants.DefaultNATSTimeout)

	v.SetDefault("apicem.host", "")
	v.SetDefault("apicem.port", constants.APICEMDefaultPort)
	v.SetDefault("apicem.version", constants.APICEMDefaultVersion)
	v.SetDefault("apicem.username", "")
	v.SetDefault("apicem.password", "")
	v.SetDefault("apicem.poll_interval", constants.DefaultPollInterval)
	v.SetDefault("apicem.poll_attempts", constants.DefaultPollAttempts)

	v.SetDefault("iosxe.host", "")
	v.SetDefault("iosxe.port", constants.IOSXEDefaultPort)
	v.SetDefault("iosxe.username", "")
	v.SetDefault("iosxe.password", "")
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	var config Config

	err := v.Unmarshal(&config)
	if err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}

	err = config.Validate()
	if err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the values that do not depend on the command being run.
func (c *Config) Validate() error {
	if !slices.Contains([]string{constants.FormatTable, constants.FormatJSON, constants.FormatYAML}, c.Output) {
		return fmt.Errorf("%w: %q", constants.ErrInvalidOutputFormat, c.Output)
	}

	switch c.Store.Backend {
	case constants.StoreBackendFile, constants.StoreBackendNone:
	case constants.StoreBackendNATS:
		if c.Store.NATS.URL == "" {
			return constants.ErrNoNATSURL
		}
	default:
		return fmt.Errorf("%w: %q", constants.ErrUnknownStoreBackend, c.Store.Backend)
	}

	for name, port := range map[string]int{"apicem.port": c.APICEM.Port, "iosxe.port": c.IOSXE.Port} {
		if port < 1 || port > maxPort {
			return fmt.Errorf("%w: %s=%d", constants.ErrInvalidPort, name, port)
		}
	}

	return nil
}

// Validate checks that the controller can be reached and logged into.
// The password may still be prompted for.
func (c APICEMConfig) Validate() error {
	return requireHostAndUser("apicem", c.Host, c.Username)
}

// Validate checks that a device can be reached and logged into.
func (c IOSXEConfig) Validate() error {
	return requireHostAndUser("iosxe", c.Host, c.Username)
}

func requireHostAndUser(section, host, username string) error {
	if host == "" {
		return fmt.Errorf("%w: set %s.host", constants.ErrNoHostConfigured, section)
	}

	if username == "" {
		return fmt.Errorf("%w: set %s.username", constants.ErrNoUsernameConfigured, section)
	}

	return nil
}

// CredentialFile returns the file backing the credential cache of vendor.
func (c *Config) CredentialFile(vendor string) string {
	return filepath.Join(c.Store.Dir, vendor+"-credentials.json")
}

// Masked returns a copy with passwords replaced, for display.
func (c *Config) Masked() *Config {
	masked := *c

	if masked.APICEM.Password != "" {
		masked.APICEM.Password = constants.MaskedSecret
	}

	if masked.IOSXE.Password != "" {
		masked.IOSXE.Password = constants.MaskedSecret
	}

	return &masked
}

// IsKnownKey reports whether key is a configuration key registered by
// SetDefaults.
func IsKnownKey(v *viper.Viper, key string) bool {
	return slices.Contains(v.AllKeys(), strings.ToLower(key))
}
