package metrics

import (
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestDomainCounters(t *testing.T) {
	m := NewMetrics("test")
	m.RecordsParsed.WithLabelValues("a.txt").Add(3)
	m.MergeRejections.WithLabelValues("capacity").Inc()
	m.MergesCommitted.Inc()
	m.ObserveStage("decode")()

	if got := testutil.ToFloat64(m.RecordsParsed.WithLabelValues("a.txt")); got != 3 {
		t.Errorf("records parsed = %v", got)
	}
	if got := testutil.ToFloat64(m.MergesCommitted); got != 1 {
		t.Errorf("merges committed = %v", got)
	}
	if n := testutil.CollectAndCount(m.StageDuration); n != 1 {
		t.Errorf("expected one stage series, got %d", n)
	}

	m.RegisterBuildInfo("flightroute", "v1")
	m.RegisterBuildInfo("flightroute", "v2")
	if got := testutil.ToFloat64(m.BuildInfo.WithLabelValues("flightroute", "v1")); got != 1 {
		t.Errorf("build info = %v", got)
	}
}

func TestHandlerAndTextfile(t *testing.T) {
	m := NewMetrics("test")
	m.MergeTies.Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "flightroute_merge_ties_total 1") {
		t.Errorf("handler output missing tie counter")
	}

	path := filepath.Join(t.TempDir(), "flightroute.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || !strings.Contains(string(data), "flightroute_merge_ties_total") {
		t.Errorf("textfile missing metric: %v", err)
	}
}
