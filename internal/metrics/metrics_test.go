package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveAdapterCall(t *testing.T) {
	before := testutil.ToFloat64(AdapterCallsTotal.WithLabelValues("explorer", "txlist", "error"))

	ObserveAdapterCall("explorer", "txlist", time.Now(), errors.New("boom"))
	ObserveAdapterCall("explorer", "txlist", time.Now(), nil)

	assert.Equal(t, before+1, testutil.ToFloat64(AdapterCallsTotal.WithLabelValues("explorer", "txlist", "error")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(AdapterCallsTotal.WithLabelValues("explorer", "txlist", "ok")), float64(1))
}

func TestObserveCacheLookup(t *testing.T) {
	hits := testutil.ToFloat64(CacheLookupsTotal.WithLabelValues("price", "hit"))
	misses := testutil.ToFloat64(CacheLookupsTotal.WithLabelValues("price", "miss"))

	ObserveCacheLookup("price", true)
	ObserveCacheLookup("price", false)
	ObserveCacheLookup("price", false)

	assert.Equal(t, hits+1, testutil.ToFloat64(CacheLookupsTotal.WithLabelValues("price", "hit")))
	assert.Equal(t, misses+2, testutil.ToFloat64(CacheLookupsTotal.WithLabelValues("price", "miss")))
}
