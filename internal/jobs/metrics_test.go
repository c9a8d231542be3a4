package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	tracker := m.Track("sessions:purge_expired")
	tracker.Processed(3)
	assert.NoError(t, tracker.End(nil))

	boom := errors.New("boom")
	assert.ErrorIs(t, m.Track("sessions:purge_expired").End(boom), boom)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("sessions:purge_expired", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("sessions:purge_expired", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("sessions:purge_expired")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.processed.WithLabelValues("sessions:purge_expired")))
}

func TestNewMetricsReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewMetrics(reg)
	require.NoError(t, err)
	second, err := NewMetrics(reg)
	require.NoError(t, err)

	second.Track("job").End(nil)
	assert.Equal(t, 1.0, testutil.ToFloat64(first.runs.WithLabelValues("job", "success")))
}

func TestNilMetricsTracker(t *testing.T) {
	var m *Metrics
	tracker := m.Track("job")
	tracker.Processed(1)
	assert.NoError(t, tracker.End(nil))
}
