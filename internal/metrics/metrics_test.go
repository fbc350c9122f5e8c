package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestGetIsSingleton(t *testing.T) {
	assert.Same(t, Get(), Get())
}

func TestLedgerCounters(t *testing.T) {
	m := newMetrics(prometheus.NewRegistry())

	m.LedgerOperationsTotal.WithLabelValues("toggle_like", "ok").Inc()
	m.LedgerOperationsTotal.WithLabelValues("toggle_like", "ok").Inc()
	m.LedgerConflictsTotal.WithLabelValues("toggle_follow").Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.LedgerOperationsTotal.WithLabelValues("toggle_like", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LedgerConflictsTotal.WithLabelValues("toggle_follow")))
}
