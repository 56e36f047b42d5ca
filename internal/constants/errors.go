package constants

import "errors"

// Configuration errors.
var (
	ErrNoHostConfigured     = errors.New("no host configured")
	ErrNoUsernameConfigured = errors.New("no username configured")
	ErrUnknownStoreBackend  = errors.New("unknown credential store backend")
	ErrNoNATSURL            = errors.New("NATS backend selected but no NATS URL configured")
	ErrInvalidOutputFormat  = errors.New("invalid output format, use table, json or yaml")
	ErrInvalidPort          = errors.New("port must be between 1 and 65535")
	ErrUnknownConfigKey     = errors.New("unknown configuration key")
)

// Command errors.
var (
	ErrUnknownVendor       = errors.New("unknown vendor, use apicem or iosxe")
	ErrInventoryEmpty      = errors.New("no hosts or network devices found")
	ErrSelectionOutOfRange = errors.New("selection is out of range")
	ErrPasswordRequired    = errors.New("password is required")
)
