package metrics

import (
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"price-drop-tracker/internal/database"
	"price-drop-tracker/internal/types"
)

func observeCycle(m *Metrics) {
	threshold := -1.5
	results := []types.CheckResult{
		{Symbol: "ISAC.L", ChangePct: 0.4, Status: types.StatusChecked},
		{Symbol: "CSPX.L", ChangePct: -1.6, Status: types.StatusChecked, AlertSent: true, Threshold: &threshold, NotifyError: "timeout"},
		{Symbol: "FLXC.DE", Status: types.StatusError, Error: "HTTP 500"},
	}
	for _, r := range results {
		m.ObserveResult(r)
	}
	m.ObserveCycle(&types.Snapshot{Timestamp: time.Unix(1770000000, 0), Results: results, Success: true})
}

func TestObserve(t *testing.T) {
	m := New()
	observeCycle(m)
	m.ObserveCycle(&types.Snapshot{Timestamp: time.Unix(1770000300, 0), Error: "critical"})

	checks := map[string]float64{
		"alerts":        testutil.ToFloat64(m.AlertsSent.WithLabelValues("CSPX.L")),
		"fetch errors":  testutil.ToFloat64(m.FetchErrors.WithLabelValues("FLXC.DE")),
		"notify errors": testutil.ToFloat64(m.NotifyErrors),
		"successes":     testutil.ToFloat64(m.Cycles.WithLabelValues(OutcomeSuccess)),
		"failures":      testutil.ToFloat64(m.Cycles.WithLabelValues(OutcomeFailed)),
	}
	for name, got := range checks {
		if got != 1 {
			t.Errorf("%s = %v, want 1", name, got)
		}
	}
	if got := testutil.ToFloat64(m.ChangePercent.WithLabelValues("CSPX.L")); got != -1.6 {
		t.Errorf("change percent = %v", got)
	}
	if got := testutil.ToFloat64(m.LastCycle); got != 1770000300 {
		t.Errorf("last cycle = %v", got)
	}
	if got := testutil.CollectAndCount(m.AlertsSent); got != 1 {
		t.Errorf("alerts series = %d, want 1", got)
	}
}

func TestSaveAndLoad(t *testing.T) {
	db, err := database.Open(filepath.Join(t.TempDir(), "tracker.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	m := New()
	observeCycle(m)
	observeCycle(m)
	if err := m.Save(db); err != nil {
		t.Fatal(err)
	}

	restored := New()
	restored.Load(db)

	if got := testutil.ToFloat64(restored.AlertsSent.WithLabelValues("CSPX.L")); got != 2 {
		t.Errorf("restored alerts = %v, want 2", got)
	}
	if got := testutil.ToFloat64(restored.FetchErrors.WithLabelValues("FLXC.DE")); got != 2 {
		t.Errorf("restored fetch errors = %v, want 2", got)
	}
	if got := testutil.ToFloat64(restored.NotifyErrors); got != 2 {
		t.Errorf("restored notify errors = %v, want 2", got)
	}
	if got := testutil.ToFloat64(restored.Cycles.WithLabelValues(OutcomeSuccess)); got != 2 {
		t.Errorf("restored cycles = %v, want 2", got)
	}
}

func TestRestoreKeepsCountersMonotonic(t *testing.T) {
	db, err := database.Open(filepath.Join(t.TempDir(), "tracker.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if err := db.SaveMetricWithLabels("cycles_total", "outcome", OutcomeSuccess, 50); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveMetric("notify_errors_total", 3); err != nil {
		t.Fatal(err)
	}

	// a one-shot check run starts, observes one cycle and saves
	m := Restore(db)
	observeCycle(m)
	if err := m.Save(db); err != nil {
		t.Fatal(err)
	}

	cycles, err := db.GetMetricsWithLabels("cycles_total")
	if err != nil {
		t.Fatal(err)
	}
	if got := cycles["outcome"][OutcomeSuccess]; got != 51 {
		t.Errorf("persisted successful cycles = %v, want 51", got)
	}
	if got, _ := db.GetMetric("notify_errors_total"); got != 4 {
		t.Errorf("persisted notify errors = %v, want 4", got)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	observeCycle(m)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`price_drop_tracker_alerts_sent_total{symbol="CSPX.L"} 1`,
		`price_drop_tracker_cycles_total{outcome="success"} 1`,
		"price_drop_tracker_last_cycle_timestamp_seconds",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}
