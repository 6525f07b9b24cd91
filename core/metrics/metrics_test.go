package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Replicated("a", "b", 3)
	m.Replicated("a", "b", 4)
	m.Page("a")
	m.FanoutFailed("b", "add")
	m.SyncDone(time.Now(), nil)
	m.SyncDone(time.Now(), errors.New("boom"))

	assert.Equal(t, 7.0, testutil.ToFloat64(m.records.WithLabelValues("a", "b")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pages.WithLabelValues("a")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("b", "add")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("failure")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.pages))

	n, err := testutil.GatherAndCount(reg)
	assert.NoError(t, err)
	assert.Equal(t, 6, n)
}

func TestMetrics_Nil(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Replicated("a", "b", 1)
		m.Page("a")
		m.FanoutFailed("a", "get")
		m.SyncDone(time.Now(), nil)
	})
}
