package auth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	sourceMemory = "memory"
	sourceStore  = "store"
	sourceMiss   = "miss"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	credentialLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ciscoctl_credential_lookups_total",
			Help: "Credential cache lookups by where the credential was found",
		},
		[]string{"cache", "source"}, // memory, store or miss
	)

	authentications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ciscoctl_authentications_total",
			Help: "Authentication round-trips to the device API",
		},
		[]string{"cache", "result"}, // success or error
	)

	persistFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ciscoctl_credential_persist_failures_total",
			Help: "Failed writes to the persisted credential store",
		},
		[]string{"cache"},
	)
)
