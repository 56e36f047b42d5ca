package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netdevops/ciscoctl/internal/config"
	"github.com/netdevops/ciscoctl/internal/constants"
)

func newViper(t *testing.T, yamlContent string) *viper.Viper {
	t.Helper()

	v := viper.New()
	config.SetDefaults(v)

	if yamlContent != "" {
		path := filepath.Join(t.TempDir(), "config.yml")
		require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o600))

		v.SetConfigFile(path)
		require.NoError(t, v.ReadInConfig())
	}

	return v
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load(newViper(t, ""))
	require.NoError(t, err)

	assert.Equal(t, constants.FormatTable, cfg.Output)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 10*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, constants.StoreBackendFile, cfg.Store.Backend)
	assert.Equal(t, 443, cfg.APICEM.Port)
	assert.Equal(t, "v1", cfg.APICEM.Version)
	assert.Equal(t, time.Second, cfg.APICEM.PollInterval)
	assert.Equal(t, 30, cfg.APICEM.PollAttempts)
	assert.Equal(t, 55443, cfg.IOSXE.Port)
	assert.False(t, cfg.HTTP.InsecureSkipVerify)
}

func TestLoad_File(t *testing.T) {
	t.Parallel()

	v := newViper(t, `
output: json
http:
  timeout: 3s
  insecure_skip_verify: true
store:
  backend: nats
  nats:
    url: nats://127.0.0.1:4222
apicem:
  host: devnetapi.cisco.com/sandbox/apic_em
  username: devnetuser
  password: Cisco123!
  poll_interval: 2s
iosxe:
  host: 10.35.185.11
  username: cisco
`)

	cfg, err := config.Load(v)
	require.NoError(t, err)

	assert.Equal(t, constants.FormatJSON, cfg.Output)
	assert.Equal(t, 3*time.Second, cfg.HTTP.Timeout)
	assert.True(t, cfg.HTTP.InsecureSkipVerify)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.Store.NATS.URL)
	assert.Equal(t, constants.DefaultNATSBucket, cfg.Store.NATS.Bucket)
	assert.Equal(t, "devnetapi.cisco.com/sandbox/apic_em", cfg.APICEM.Host)
	assert.Equal(t, 2*time.Second, cfg.APICEM.PollInterval)
	require.NoError(t, cfg.APICEM.Validate())
	require.NoError(t, cfg.IOSXE.Validate())

	masked := cfg.Masked()
	assert.Equal(t, constants.MaskedSecret, masked.APICEM.Password)
	assert.Empty(t, masked.IOSXE.Password)
	assert.Equal(t, "Cisco123!", cfg.APICEM.Password)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("CISCOCTL_IOSXE_HOST", "10.0.0.9")

	v := newViper(t, "")
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg, err := config.Load(v)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.9", cfg.IOSXE.Host)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		yaml    string
		wantErr error
	}{
		{name: "bad output", yaml: "output: xml", wantErr: constants.ErrInvalidOutputFormat},
		{name: "bad backend", yaml: "store:\n  backend: redis", wantErr: constants.ErrUnknownStoreBackend},
		{name: "nats without url", yaml: "store:\n  backend: nats", wantErr: constants.ErrNoNATSURL},
		{name: "bad port", yaml: "iosxe:\n  port: 70000", wantErr: constants.ErrInvalidPort},
		{name: "memory only", yaml: "store:\n  backend: none"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.Load(newViper(t, tt.yaml))
			if tt.wantErr == nil {
				require.NoError(t, err)

				return
			}

			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSectionValidate(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, config.APICEMConfig{}.Validate(), constants.ErrNoHostConfigured)
	require.ErrorIs(t, config.IOSXEConfig{Host: "r1"}.Validate(), constants.ErrNoUsernameConfigured)
}

func TestCredentialFileAndKeys(t *testing.T) {
	t.Parallel()

	v := newViper(t, "store:\n  dir: /var/lib/ciscoctl")

	cfg, err := config.Load(v)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/ciscoctl/apicem-credentials.json", cfg.CredentialFile(constants.VendorAPICEM))
	assert.True(t, config.IsKnownKey(v, "apicem.host"))
	assert.True(t, config.IsKnownKey(v, "HTTP.Timeout"))
	assert.False(t, config.IsKnownKey(v, "apicem.token"))
}
