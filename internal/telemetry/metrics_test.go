package telemetry

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg)
	if err != nil {
		t.Fatalf("New failed: %s", err)
	}
	c.FramesTransmitted.Inc()
	c.BytesTransmitted.Add(16)
	c.RSSI.Set(-72)
	c.RecordRound(true)
	c.RecordRound(false)
	c.RecordRound(true)

	if got := testutil.ToFloat64(c.FramesTransmitted); got != 1 {
		t.Errorf("expected 1 transmitted frame, got %v", got)
	}
	if got := testutil.ToFloat64(c.BytesTransmitted); got != 16 {
		t.Errorf("expected 16 transmitted bytes, got %v", got)
	}
	if got := testutil.ToFloat64(c.RSSI); got != -72 {
		t.Errorf("expected rssi gauge at -72, got %v", got)
	}
	if got := testutil.ToFloat64(c.LinkTestRounds.WithLabelValues("ok")); got != 2 {
		t.Errorf("expected 2 ok rounds, got %v", got)
	}
	if got := testutil.ToFloat64(c.LinkTestRounds.WithLabelValues("lost")); got != 1 {
		t.Errorf("expected 1 lost round, got %v", got)
	}
}

func TestNewReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := New(reg)
	if err != nil {
		t.Fatalf("first New failed: %s", err)
	}
	b, err := New(reg)
	if err != nil {
		t.Fatalf("second New failed: %s", err)
	}
	b.FramesReceived.Inc()
	if got := testutil.ToFloat64(a.FramesReceived); got != 1 {
		t.Errorf("expected both collectors to share the counter, got %v", got)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg)
	if err != nil {
		t.Fatalf("New failed: %s", err)
	}
	c.FramesReceived.Inc()

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, req)

	body, err := io.ReadAll(rec.Result().Body)
	if err != nil {
		t.Fatalf("read body: %s", err)
	}
	if !strings.Contains(string(body), "radio_frames_received_total 1") {
		t.Errorf("expected the frame counter exposed, got:\n%s", body)
	}
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	c.RecordRound(true)
}
