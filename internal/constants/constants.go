package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration and credential files.
	ConfigFilePerm = 0600
)

// Application directories and files.
const (
	// AppName is the CLI binary name and the prefix for metrics.
	AppName = "ciscoctl"

	// ConfigDirName is the directory created under the user's home.
	ConfigDirName = ".ciscoctl"

	// ConfigFileName is the base name of the YAML configuration file.
	ConfigFileName = "config"

	// EnvPrefix is the prefix viper uses for environment overrides.
	EnvPrefix = "CISCOCTL"
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the fixed timeout of every device API call.
	DefaultHTTPTimeout = 10 * time.Second

	// DefaultNATSTimeout bounds connecting to the NATS credential store.
	DefaultNATSTimeout = 5 * time.Second
)

// Retry limits.
const (
	// DefaultRetryMax is the default number of retries on 5xx and 429.
	DefaultRetryMax = 2

	// DefaultRetryWaitMin is the minimum wait time between retries.
	DefaultRetryWaitMin = 500 * time.Millisecond

	// DefaultRetryWaitMax is the maximum wait time between retries.
	DefaultRetryWaitMax = 5 * time.Second
)

// Flow-analysis polling.
const (
	// DefaultPollInterval is the sleep between two task status checks.
	DefaultPollInterval = 1 * time.Second

	// DefaultPollAttempts bounds the number of task status checks.
	DefaultPollAttempts = 30
)

// Vendor endpoints and defaults.
const (
	// APICEMDefaultPort is the HTTPS port of an APIC-EM controller.
	APICEMDefaultPort = 443

	// APICEMDefaultVersion is the API version segment of APIC-EM URLs.
	APICEMDefaultVersion = "v1"

	// APICEMTicketHeader carries the service ticket on APIC-EM requests.
	APICEMTicketHeader = "X-Auth-Token"

	// IOSXEDefaultPort is the default port of the IOS-XE REST API.
	IOSXEDefaultPort = 55443

	// IOSXETokenHeader carries the token on IOS-XE requests.
	IOSXETokenHeader = "X-auth-token"

	// HTTPSDefaultPort is omitted from generated URLs.
	HTTPSDefaultPort = 443
)

// Credential store backends and names.
const (
	// StoreBackendFile persists credentials to one local file per vendor.
	StoreBackendFile = "file"

	// StoreBackendNATS persists credentials to a NATS JetStream KV bucket.
	StoreBackendNATS = "nats"

	// StoreBackendNone keeps credentials in memory only.
	StoreBackendNone = "none"

	// DefaultNATSBucket is the KV bucket used by the NATS backend.
	DefaultNATSBucket = "ciscoctl-credentials"

	// VendorAPICEM names the APIC-EM credential cache.
	VendorAPICEM = "apicem"

	// VendorIOSXE names the IOS-XE credential cache.
	VendorIOSXE = "iosxe"
)

// UI and display constants.
const (
	// NotAvailable is used when information is not available.
	NotAvailable = "N/A"

	// MaskedSecret is used to hide sensitive information.
	MaskedSecret = "***"

	// SecretPreviewLength is the number of leading characters shown of a credential.
	SecretPreviewLength = 6

	// TimeFormat is the display format for timestamps in tables.
	TimeFormat = "2006-01-02 15:04:05"
)

// Format constants.
const (
	// FormatTable for tabulated output.
	FormatTable = "table"

	// FormatJSON for JSON output format.
	FormatJSON = "json"

	// FormatYAML for YAML output format.
	FormatYAML = "yaml"
)

// Logging defaults.
const (
	// DefaultLogLevel matches the quiet default of an interactive CLI.
	DefaultLogLevel = "warn"

	// DefaultLogFormat is the slog handler used on stderr.
	DefaultLogFormat = "text"
)
