// Package metrics holds the Prometheus collectors of the account service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Outcome label values.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Registrations counts account registrations per role and outcome.
var Registrations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ride_accounts_registrations_total",
		Help: "Total number of registration attempts",
	},
	[]string{"role", "outcome"},
)

// Logins counts login attempts per role and outcome.
var Logins = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ride_accounts_logins_total",
		Help: "Total number of login attempts",
	},
	[]string{"role", "outcome"},
)

// Refreshes counts refresh token exchanges per role and outcome.
var Refreshes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ride_accounts_token_refreshes_total",
		Help: "Total number of refresh token exchanges",
	},
	[]string{"role", "outcome"},
)

// AuthFailures counts requests rejected by the session authenticator.
var AuthFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ride_accounts_auth_failures_total",
		Help: "Requests rejected by the session authenticator",
	},
	[]string{"reason"},
)

// NewRegistry returns a registry holding the runtime collectors and every
// collector of this package.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	RegisterMetrics(reg)
	return reg
}

// RegisterMetrics registers the package collectors with reg.  Panics if
// registration fails.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Registrations, Logins, Refreshes, AuthFailures)
}

func RecordRegistration(role, outcome string) { Registrations.WithLabelValues(role, outcome).Inc() }

func RecordLogin(role, outcome string) { Logins.WithLabelValues(role, outcome).Inc() }

func RecordRefresh(role, outcome string) { Refreshes.WithLabelValues(role, outcome).Inc() }

func RecordAuthFailure(reason string) { AuthFailures.WithLabelValues(reason).Inc() }
