package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()
	m.ProviderAttempt("relay", OutcomeError)
	m.ProviderAttempt("relay", OutcomeError)
	m.ProviderAttempt("direct", OutcomeSuccess)
	m.Delivery("redirect")
	m.StreamBytes(1024)
	m.StreamBytes(-1)

	if got := testutil.ToFloat64(m.providerAttempts.WithLabelValues("relay", OutcomeError)); got != 2 {
		t.Errorf("relay errors = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.providerAttempts.WithLabelValues("direct", OutcomeSuccess)); got != 1 {
		t.Errorf("direct successes = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.deliveries.WithLabelValues("redirect")); got != 1 {
		t.Errorf("redirects = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.streamBytes); got != 1024 {
		t.Errorf("stream bytes = %v, want 1024", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.ProviderAttempt("relay", OutcomeSuccess)
	m.Delivery("buffered")
	m.StreamBytes(10)
}

func TestHandler(t *testing.T) {
	m := New()
	m.Delivery("streamed")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `vidrelay_deliveries_total{mode="streamed"} 1`) {
		t.Errorf("exposition missing deliveries counter:\n%s", body)
	}
}
