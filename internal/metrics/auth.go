package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	AuthAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "teamgate_auth_attempts_total",
		Help: "Intentos de autenticación por provider y resultado",
	}, []string{"provider", "outcome"})

	DirectoryExchange = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "teamgate_directory_exchange_seconds",
		Help:    "Duración del intercambio bind/search/bind contra el directorio",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
	})

	SessionsIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "teamgate_sessions_issued_total",
		Help: "Sesiones emitidas",
	})

	RateLimited = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "teamgate_rate_limited_total",
		Help: "Requests rechazados por rate limit, por path",
	}, []string{"path"})
)

// Outcomes para AuthAttempts.
const (
	OutcomeSuccess  = "success"
	OutcomeFailed   = "failed"
	OutcomeMismatch = "provider_mismatch"
	OutcomeError    = "error"
)

// Register registra las métricas en el registry dado (default si nil).
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{AuthAttempts, DirectoryExchange, SessionsIssued, RateLimited} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
