package config

import (
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	if got := GetFloat64("alert_threshold_first"); got != -1.0 {
		t.Errorf("alert_threshold_first = %v, want -1.0", got)
	}
	if got := GetFloat64("alert_threshold_step"); got != -0.5 {
		t.Errorf("alert_threshold_step = %v, want -0.5", got)
	}
	if got := GetInt("market_open_hour"); got != 9 {
		t.Errorf("market_open_hour = %d, want 9", got)
	}
	if got := GetInt("market_close_hour"); got != 18 {
		t.Errorf("market_close_hour = %d, want 18", got)
	}
	if got := GetDuration("fetch_timeout"); got != 10*time.Second {
		t.Errorf("fetch_timeout = %v, want 10s", got)
	}
}

func TestFetchTimeoutFromEnv(t *testing.T) {
	tests := map[string]time.Duration{
		"10":    10 * time.Second,
		"2.5":   2500 * time.Millisecond,
		"1m30s": 90 * time.Second,
		"750ms": 750 * time.Millisecond,
	}
	for raw, want := range tests {
		t.Setenv("FETCH_TIMEOUT", raw)
		if got := GetDuration("fetch_timeout"); got != want {
			t.Errorf("FETCH_TIMEOUT=%s read as %v, want %v", raw, got, want)
		}
	}
}

func TestSymbolNames(t *testing.T) {
	symbols := Symbols()
	if len(symbols) != 8 {
		t.Fatalf("got %d symbols, want 8", len(symbols))
	}

	names := make(map[string]string, len(symbols))
	for _, s := range symbols {
		if s.Name == "" {
			t.Errorf("symbol %s has no name", s.Symbol)
		}
		names[s.Symbol] = s.Name
	}

	tests := map[string]string{
		"ETFBW20TR.WA": "WIG20",
		"CSPX.L":       "S&P 500",
		"CNDX.L":       "NASDAQ 100",
		"VVSM.DE":      "Semiconductor",
	}
	for symbol, want := range tests {
		if names[symbol] != want {
			t.Errorf("name of %s = %q, want %q", symbol, names[symbol], want)
		}
	}
}

func TestSymbolsReturnsCopy(t *testing.T) {
	symbols := Symbols()
	symbols[0].Name = "changed"

	if DefaultSymbols[0].Name == "changed" {
		t.Error("Symbols exposed the default table")
	}
}
