package auth

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Login and authentication outcomes recorded by Metrics.
const (
	outcomeIssued       = "issued"
	outcomeReused       = "reused"
	outcomeRejected     = "rejected"
	outcomeOK           = "ok"
	outcomeUnauthorized = "unauthorized"
	outcomeExpired      = "expired"
	outcomeNotFound     = "session_not_found"
	outcomeError        = "error"
)

// Metrics counts auth outcomes. A nil *Metrics records nothing.
type Metrics struct {
	logins          *prometheus.CounterVec
	authentications *prometheus.CounterVec
	purged          prometheus.Counter
}

// NewMetrics registers auth collectors on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	logins, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "posts_auth_logins_total",
		Help: "Login attempts by outcome.",
	}, []string{"outcome"}))
	if err != nil {
		return nil, err
	}
	authentications, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "posts_auth_authentications_total",
		Help: "Bearer token authentications by outcome.",
	}, []string{"outcome"}))
	if err != nil {
		return nil, err
	}
	purged, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "posts_auth_sessions_purged_total",
		Help: "Expired sessions removed by the purge job.",
	}))
	if err != nil {
		return nil, err
	}
	return &Metrics{logins: logins, authentications: authentications, purged: purged}, nil
}

// register adds c to reg, reusing an identical collector registered earlier.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		var zero T
		return zero, err
	}
	return c, nil
}

func (m *Metrics) login(outcome string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(outcome).Inc()
}

func (m *Metrics) authenticate(err error) {
	if m == nil {
		return
	}
	outcome := outcomeOK
	switch {
	case err == nil:
	case errors.Is(err, ErrSessionExpired):
		outcome = outcomeExpired
	case errors.Is(err, ErrSessionNotFound):
		outcome = outcomeNotFound
	case errors.Is(err, ErrUnauthorized):
		outcome = outcomeUnauthorized
	default:
		outcome = outcomeError
	}
	m.authentications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) sessionsPurged(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.purged.Add(float64(n))
}
