package posts

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts post list cache lookups. A nil *Metrics records nothing.
type Metrics struct {
	lookups *prometheus.CounterVec
}

// NewMetrics registers the cache collectors on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	lookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "posts_list_cache_lookups_total",
		Help: "Post list cache lookups by result (hit, miss, error).",
	}, []string{"result"})
	if err := reg.Register(lookups); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, err
		}
		existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, err
		}
		lookups = existing
	}
	return &Metrics{lookups: lookups}, nil
}

func (m *Metrics) lookup(result string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(result).Inc()
}
