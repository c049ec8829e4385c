package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestFetchEconomicFRED(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/series/observations") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		series := r.URL.Query().Get("series_id")
		w.Header().Set("Content-Type", "application/json")

		// Only UNRATE returns data; every other series is empty and skipped.
		if series != "UNRATE" {
			_ = json.NewEncoder(w).Encode(map[string]any{"observations": []any{}})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"observations": []map[string]string{
				{"date": "2026-06-01", "value": "4.0"},
				{"date": "2026-07-01", "value": "."},
				{"date": "2026-08-01", "value": "4.2"},
			},
		})
	}))
	defer srv.Close()

	e := NewEconomic(EconomicOptions{
		FREDAPIKey:  "test-key",
		FREDBaseURL: srv.URL,
		Timeout:     time.Second,
	}, noopLogger())

	snap := e.FetchEconomic(context.Background())
	if snap.Failed() {
		t.Fatalf("unexpected error: %s", snap.Err)
	}

	metrics, ok := snap.Indicators["Unemployment Rate"]
	if !ok {
		t.Fatalf("missing Unemployment Rate, got %v", snap.Indicators)
	}
	if metrics.Date != "2026-08-01" {
		t.Errorf("date = %s, want 2026-08-01", metrics.Date)
	}
	if !metrics.Value.Valid || metrics.Value.Decimal.StringFixed(1) != "4.2" {
		t.Errorf("value = %v, want 4.2", metrics.Value)
	}
	// The "." placeholder must be dropped, so the change is against 4.0.
	if !metrics.ChangePct.Valid || metrics.ChangePct.Decimal.StringFixed(2) != "5.00" {
		t.Errorf("change pct = %v, want 5.00", metrics.ChangePct)
	}
}

func TestFetchEconomicAlphaVantage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("function"); got == "" {
			t.Error("missing function parameter")
		}
		w.Header().Set("Content-Type", "application/json")

		// Newest first, the way the API responds.
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{
				{"date": "2026-08-01", "value": "4.2"},
				{"date": "2026-07-01", "value": "4.0"},
				{"date": "2026-06-01", "value": "3.9"},
				{"date": "2026-05-01", "value": "3.5"},
			},
		})
	}))
	defer srv.Close()

	e := NewEconomic(EconomicOptions{
		AlphaVantageAPIKey: "test-key",
		AlphaVantageURL:    srv.URL,
		Timeout:            time.Second,
	}, noopLogger())

	snap := e.FetchEconomic(context.Background())
	if snap.Failed() {
		t.Fatalf("unexpected error: %s", snap.Err)
	}

	metrics, ok := snap.Indicators["Unemployment (Alpha Vantage)"]
	if !ok {
		t.Fatalf("missing Unemployment (Alpha Vantage), got %v", snap.Indicators)
	}
	if metrics.Date != "2026-08-01" {
		t.Errorf("date = %s, want 2026-08-01", metrics.Date)
	}
	// Latest must be the newest observation, not a trailing one.
	if !metrics.Value.Valid || metrics.Value.Decimal.StringFixed(1) != "4.2" {
		t.Errorf("value = %v, want 4.2", metrics.Value)
	}
	if !metrics.Change.Valid || metrics.Change.Decimal.StringFixed(1) != "0.2" {
		t.Errorf("change = %v, want 0.2", metrics.Change)
	}
	if !metrics.ChangePct.Valid || metrics.ChangePct.Decimal.StringFixed(2) != "5.00" {
		t.Errorf("change pct = %v, want 5.00", metrics.ChangePct)
	}
}

func TestFetchEconomicAlphaVantageSingleObservation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{
				{"date": "2026-08-01", "value": "4.2"},
			},
		})
	}))
	defer srv.Close()

	e := NewEconomic(EconomicOptions{
		AlphaVantageAPIKey: "test-key",
		AlphaVantageURL:    srv.URL,
		Timeout:            time.Second,
	}, noopLogger())

	snap := e.FetchEconomic(context.Background())
	metrics, ok := snap.Indicators["CPI (Alpha Vantage)"]
	if !ok {
		t.Fatalf("missing CPI (Alpha Vantage), got %v", snap.Indicators)
	}
	if !metrics.Value.Valid || metrics.Value.Decimal.StringFixed(1) != "4.2" {
		t.Errorf("value = %v, want 4.2", metrics.Value)
	}
	if metrics.Change.Valid || metrics.ChangePct.Valid {
		t.Error("a single observation has no change")
	}
}

func TestFetchEconomicNoKeys(t *testing.T) {
	e := NewEconomic(EconomicOptions{}, noopLogger())
	if snap := e.FetchEconomic(context.Background()); !snap.Failed() {
		t.Fatal("missing api keys should fail the snapshot")
	}
}

func TestIndicatorFromSeriesSingleValue(t *testing.T) {
	metrics := indicatorFromSeries([]decimal.Decimal{decimal.NewFromInt(10)}, "2026-08-01")
	if !metrics.Value.Valid {
		t.Fatal("value should be present")
	}
	if metrics.Change.Valid || metrics.ChangePct.Valid {
		t.Error("a single observation has no change")
	}
}

func TestFormatEconomicReport(t *testing.T) {
	snap := EconomicSnapshot{Indicators: map[string]IndicatorMetrics{
		"Unemployment Rate": {
			Value:     nullDec("4.2"),
			Date:      "2026-08-01",
			ChangePct: nullDec("5"),
		},
		"GDP": {
			Value: nullDec("28000.5"),
			Date:  "2026-04-01",
		},
	}}

	out := FormatEconomicReport(snap)
	for _, want := range []string{
		"# Economic Indicators",
		"## Growth",
		"### GDP",
		"- Current: 28000.50 (as of 2026-04-01)",
		"- Change: N/A",
		"## Employment",
		"### Unemployment Rate",
		"- Current: 4.20% (as of 2026-08-01)",
		"- Change: ↑5.00%",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}

	// Growth comes before Employment in the category layout.
	if strings.Index(out, "## Growth") > strings.Index(out, "## Employment") {
		t.Error("categories out of order")
	}
}
