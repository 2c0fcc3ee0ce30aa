package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(EventsAdmitted.WithLabelValues("ALOWARE"))
	EventsAdmitted.WithLabelValues("ALOWARE").Add(2)
	assert.Equal(t, before+2, testutil.ToFloat64(EventsAdmitted.WithLabelValues("ALOWARE")))
}

func TestRegisteredWithDefaultRegistry(t *testing.T) {
	RateLimitHits.WithLabelValues("HUBSPOT").Inc()

	n, err := testutil.GatherAndCount(prometheus.DefaultGatherer, "factflow_ingest_rate_limit_hits_total")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 1)
}
