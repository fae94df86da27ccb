package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestTierCallCounters(t *testing.T) {
	c := New()

	c.ObserveTierCall("free", "ok", 20*time.Millisecond, 4)
	c.ObserveTierCall("free", "ok", 30*time.Millisecond, 2)
	c.ObserveTierCall("paid", "skipped", 0, 0)

	body := scrape(t, c)
	assert.Contains(t, body, `recipe_aggregator_provider_calls_total{outcome="ok",tier="free"} 2`)
	assert.Contains(t, body, `recipe_aggregator_provider_calls_total{outcome="skipped",tier="paid"} 1`)
	assert.Contains(t, body, `recipe_aggregator_provider_results_total{tier="free"} 6`)
	assert.Contains(t, body, `recipe_aggregator_provider_call_duration_seconds_count{tier="free"} 2`)
	assert.NotContains(t, body, `recipe_aggregator_provider_call_duration_seconds_count{tier="paid"}`)
}

func TestPersistenceAndHTTPCounters(t *testing.T) {
	c := New()

	c.ObservePersistence("created")
	c.ObservePersistence("created")
	c.ObservePersistence("failed")
	c.ObserveHTTP(http.MethodPost, "/api/v1/recipes/search", 200, time.Millisecond)
	c.ObserveHTTP(http.MethodGet, "", 404, time.Millisecond)

	body := scrape(t, c)
	assert.Contains(t, body, `recipe_aggregator_persistence_writes_total{outcome="created"} 2`)
	assert.Contains(t, body, `recipe_aggregator_persistence_writes_total{outcome="failed"} 1`)
	assert.Contains(t, body, `recipe_aggregator_http_requests_total{method="GET",route="unmatched",status="404"} 1`)
}

func TestCollectorsAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.ObservePersistence("created")

	assert.Contains(t, scrape(t, a), `recipe_aggregator_persistence_writes_total{outcome="created"} 1`)
	assert.NotContains(t, scrape(t, b), `recipe_aggregator_persistence_writes_total`)
}
