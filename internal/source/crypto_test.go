package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func geckoEntry(symbol, name string, rank int, price, cap float64) map[string]any {
	return map[string]any{
		"symbol":                      symbol,
		"name":                        name,
		"market_cap_rank":             rank,
		"current_price":               price,
		"market_cap":                  cap,
		"price_change_percentage_24h": 1.5,
		"price_change_percentage_7d_in_currency": -3.2,
	}
}

func TestFetchCryptoFiltersStablecoins(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("per_page"); got != "12" {
			t.Errorf("per_page = %s, want 12 (top-n plus candidates)", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]map[string]any{
			geckoEntry("btc", "Bitcoin", 1, 60000, 1.2e12),
			geckoEntry("usdt", "Tether", 2, 1, 1.1e11),
			geckoEntry("eth", "Ethereum", 3, 3000, 4e11),
			geckoEntry("usdc", "USD Coin", 4, 1, 3e10),
			geckoEntry("sol", "Solana", 5, 150, 7e10),
		})
	}))
	defer srv.Close()

	c := NewCrypto(CryptoOptions{BaseURL: srv.URL, TopN: 2, Timeout: time.Second}, noopLogger())
	snap := c.FetchCrypto(context.Background())

	if snap.Failed() {
		t.Fatalf("unexpected error: %s", snap.Err)
	}
	if len(snap.Top) != 2 {
		t.Fatalf("got %d coins, want 2", len(snap.Top))
	}
	if snap.Top[0].Symbol != "BTC" || snap.Top[1].Symbol != "ETH" {
		t.Fatalf("got %s, %s; stablecoins should be skipped", snap.Top[0].Symbol, snap.Top[1].Symbol)
	}
}

func TestFetchCryptoSkipsIncompleteEntries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"symbol": "btc", "name": "Bitcoin", "market_cap_rank": 1},
			geckoEntry("eth", "Ethereum", 2, 3000, 4e11),
		})
	}))
	defer srv.Close()

	c := NewCrypto(CryptoOptions{BaseURL: srv.URL, TopN: 5, Timeout: time.Second}, noopLogger())
	snap := c.FetchCrypto(context.Background())

	if len(snap.Top) != 1 || snap.Top[0].Symbol != "ETH" {
		t.Fatalf("entry without a price should be skipped, got %+v", snap.Top)
	}
}

func TestFetchCryptoAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewCrypto(CryptoOptions{BaseURL: srv.URL, TopN: 5, Timeout: time.Second}, noopLogger())
	if snap := c.FetchCrypto(context.Background()); !snap.Failed() {
		t.Fatal("non-200 response should fail the snapshot")
	}
}

func TestFormatCryptoReport(t *testing.T) {
	snap := CryptoSnapshot{Top: []CryptoEntry{
		{
			Symbol:    "BTC",
			Name:      "Bitcoin",
			Rank:      1,
			Price:     nullDec("60123.45"),
			Change24h: nullDec("2.5"),
			Change7d:  nullDec("-1.1"),
			MarketCap: nullDec("1200000000000"),
		},
	}}

	out := FormatCryptoReport(snap)
	for _, want := range []string{
		"| Rank | Name (Symbol) | Price (USD) | 24h Change | 7d Change | Market Cap |",
		"| 1 | Bitcoin (BTC) | $60123.45 | ↑2.50% | ↓1.10% | $1.2T |",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestFormatCryptoReportEmpty(t *testing.T) {
	out := FormatCryptoReport(CryptoSnapshot{})
	if !strings.Contains(out, "_No cryptocurrency data available._") {
		t.Fatalf("unexpected empty report: %s", out)
	}
}
