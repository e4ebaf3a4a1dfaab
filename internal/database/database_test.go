package database

import (
	"path/filepath"
	"testing"
	"time"

	"price-drop-tracker/internal/types"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "data", "tracker.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func TestThresholdStore(t *testing.T) {
	db := openTestDB(t)
	c := &clock{t: time.Date(2026, 2, 9, 10, 0, 0, 0, time.UTC)}
	s := db.ThresholdStore(c.Now)

	if got := s.Load(); len(got) != 0 {
		t.Fatalf("empty store loaded %v", got)
	}
	if err := s.Save("ISAC.L", -1.0); err != nil {
		t.Fatal(err)
	}
	if err := s.Save("CSPX.L", -1.5); err != nil {
		t.Fatal(err)
	}
	if err := s.Save("ISAC.L", -2.0); err != nil {
		t.Fatal(err)
	}

	got := s.Load()
	if len(got) != 2 || got["ISAC.L"] != -2.0 || got["CSPX.L"] != -1.5 {
		t.Errorf("Load = %v", got)
	}

	c.t = c.t.Add(24 * time.Hour)
	if got := s.Load(); len(got) != 0 {
		t.Errorf("next day loaded %v", got)
	}
	if err := s.ResetIfStale(); err != nil {
		t.Fatal(err)
	}

	c.t = c.t.Add(-24 * time.Hour)
	if got := s.Load(); len(got) != 0 {
		t.Errorf("stale thresholds survived reset: %v", got)
	}
}

func TestThresholdStoreSameDayReset(t *testing.T) {
	db := openTestDB(t)
	c := &clock{t: time.Date(2026, 2, 9, 10, 0, 0, 0, time.UTC)}
	s := db.ThresholdStore(c.Now)

	if err := s.Save("ISAC.L", -1.5); err != nil {
		t.Fatal(err)
	}
	if err := s.ResetIfStale(); err != nil {
		t.Fatal(err)
	}
	if got := s.Load(); got["ISAC.L"] != -1.5 {
		t.Errorf("same-day reset dropped thresholds: %v", got)
	}
}

func TestAlertHistory(t *testing.T) {
	db := openTestDB(t)
	now := time.Date(2026, 2, 9, 11, 15, 0, 0, time.UTC)

	for _, rec := range []types.AlertRecord{
		{Day: "2026-02-08", Symbol: "ISAC.L", Name: "MSCI ACWI Globalny", Price: 110, ChangePct: -1.1, Threshold: -1.0, CreatedAt: now.Add(-24 * time.Hour)},
		{Day: "2026-02-09", Symbol: "CSPX.L", Name: "S&P 500", Price: 98.4, ChangePct: -1.6, Threshold: -1.5, CreatedAt: now},
		{Day: "2026-02-09", Symbol: "CSPX.L", Name: "S&P 500", Price: 97.8, ChangePct: -2.2, Threshold: -2.0, CreatedAt: now.Add(time.Minute)},
	} {
		if _, err := db.InsertAlert(rec); err != nil {
			t.Fatal(err)
		}
	}

	alerts, err := db.GetAlertsByDay("2026-02-09")
	if err != nil {
		t.Fatal(err)
	}
	if len(alerts) != 2 {
		t.Fatalf("got %d alerts, want 2", len(alerts))
	}
	if alerts[0].Threshold != -1.5 || alerts[1].Threshold != -2.0 {
		t.Errorf("alerts out of order: %+v", alerts)
	}
	if !alerts[0].CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", alerts[0].CreatedAt, now)
	}

	none, err := db.GetAlertsByDay("2026-01-01")
	if err != nil {
		t.Fatal(err)
	}
	if none == nil || len(none) != 0 {
		t.Errorf("empty day = %#v, want empty slice", none)
	}
}

func TestHistoryRecorder(t *testing.T) {
	db := openTestDB(t)
	c := &clock{t: time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)}
	h := db.HistoryRecorder(c.Now)

	threshold := -1.0
	h.ObserveResult(types.CheckResult{Symbol: "ISAC.L", Name: "MSCI ACWI Globalny", Price: 98.8, ChangePct: -1.2, Status: types.StatusChecked, AlertSent: true, Threshold: &threshold})
	h.ObserveResult(types.CheckResult{Symbol: "CSPX.L", Name: "S&P 500", Price: 99.5, ChangePct: -0.5, Status: types.StatusChecked})
	h.ObserveCycle(&types.Snapshot{})

	alerts, err := db.GetAlertsByDay("2026-02-09")
	if err != nil {
		t.Fatal(err)
	}
	if len(alerts) != 1 || alerts[0].Symbol != "ISAC.L" || alerts[0].Threshold != -1.0 {
		t.Errorf("history = %+v", alerts)
	}
}

func TestMetrics(t *testing.T) {
	db := openTestDB(t)

	if v, err := db.GetMetric("cycles_total"); err != nil || v != 0 {
		t.Fatalf("missing metric = %v, %v", v, err)
	}

	if err := db.SaveMetric("notify_errors_total", 3); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveMetric("notify_errors_total", 4); err != nil {
		t.Fatal(err)
	}
	if v, err := db.GetMetric("notify_errors_total"); err != nil || v != 4 {
		t.Errorf("GetMetric = %v, %v, want 4", v, err)
	}

	if err := db.SaveMetricWithLabels("alerts_sent_total", "symbol", "ISAC.L", 2); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveMetricWithLabels("alerts_sent_total", "symbol", "CSPX.L", 5); err != nil {
		t.Fatal(err)
	}

	labeled, err := db.GetMetricsWithLabels("alerts_sent_total")
	if err != nil {
		t.Fatal(err)
	}
	if labeled["symbol"]["ISAC.L"] != 2 || labeled["symbol"]["CSPX.L"] != 5 {
		t.Errorf("labeled = %v", labeled)
	}

	unlabeled, err := db.GetMetricsWithLabels("notify_errors_total")
	if err != nil {
		t.Fatal(err)
	}
	if len(unlabeled) != 0 {
		t.Errorf("unlabeled metric listed with labels: %v", unlabeled)
	}
}
