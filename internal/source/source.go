package source

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// MarketProvider retrieves index and stock performance data.
type MarketProvider interface {
	FetchMarket(ctx context.Context) MarketSnapshot
}

// EconomicProvider retrieves macroeconomic indicator data.
type EconomicProvider interface {
	FetchEconomic(ctx context.Context) EconomicSnapshot
}

// CryptoProvider retrieves cryptocurrency listing data.
type CryptoProvider interface {
	FetchCrypto(ctx context.Context) CryptoSnapshot
}

// NewsProvider retrieves financial news headlines.
type NewsProvider interface {
	FetchNews(ctx context.Context) NewsSnapshot
}

// IndexMetrics summarise one market index over the lookback window.
type IndexMetrics struct {
	Close           decimal.NullDecimal
	DailyChangePct  decimal.NullDecimal
	WeeklyChangePct decimal.NullDecimal
	Volatility      decimal.NullDecimal
}

// StockMetrics summarise one stock over the lookback window.
type StockMetrics struct {
	Close           decimal.NullDecimal
	DailyChangePct  decimal.NullDecimal
	WeeklyChangePct decimal.NullDecimal
	Volume          decimal.NullDecimal
	VolumeChangePct decimal.NullDecimal
}

// ClosePoint is one raw close observation, kept for charting and audit.
type ClosePoint struct {
	Time  time.Time
	Close float64
}

// MarketSnapshot is the normalised result of one market fetch. A failed
// fetch sets Err and leaves the maps empty but non-nil so formatting always
// has a safe default.
type MarketSnapshot struct {
	Indices    map[string]IndexMetrics
	IndexOrder []string
	Stocks     map[string]StockMetrics
	TopGainers []string
	TopLosers  []string
	Series     map[string][]ClosePoint
	Err        string
}

// Failed reports whether the fetch as a whole errored.
func (s MarketSnapshot) Failed() bool { return s.Err != "" }

// IndicatorMetrics summarise one economic indicator.
type IndicatorMetrics struct {
	Value     decimal.NullDecimal
	Date      string
	Change    decimal.NullDecimal
	ChangePct decimal.NullDecimal
}

// EconomicSnapshot is the normalised result of one economic fetch.
type EconomicSnapshot struct {
	Indicators map[string]IndicatorMetrics
	Err        string
}

func (s EconomicSnapshot) Failed() bool { return s.Err != "" }

// CryptoEntry is one listed coin, ordered by market cap rank.
type CryptoEntry struct {
	Symbol    string
	Name      string
	Rank      int
	Price     decimal.NullDecimal
	Change24h decimal.NullDecimal
	Change7d  decimal.NullDecimal
	MarketCap decimal.NullDecimal
}

// CryptoSnapshot is the normalised result of one crypto fetch.
type CryptoSnapshot struct {
	Top []CryptoEntry
	Err string
}

func (s CryptoSnapshot) Failed() bool { return s.Err != "" }

// Headline is one merged news item.
type Headline struct {
	Title       string
	Summary     string
	Source      string
	URL         string
	PublishedAt time.Time
}

// NewsSnapshot is the normalised result of one news fetch.
type NewsSnapshot struct {
	Headlines []Headline
	Err       string
}

func (s NewsSnapshot) Failed() bool { return s.Err != "" }

// Extractor pulls headlines from a single news source.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, limit int) ([]Headline, error)
}

const notAvailable = "N/A"

// changeGlyph maps the sign of a change to a directional arrow.
func changeGlyph(d decimal.Decimal) string {
	switch d.Sign() {
	case 1:
		return "↑"
	case -1:
		return "↓"
	default:
		return "→"
	}
}

// fmtPct renders a percentage as glyph plus two-decimal magnitude,
// e.g. "↑1.23%". Absent values render as "N/A" so report layout stays
// stable.
func fmtPct(v decimal.NullDecimal) string {
	if !v.Valid {
		return notAvailable
	}
	return changeGlyph(v.Decimal) + v.Decimal.Abs().StringFixed(2) + "%"
}

// fmtValue renders a plain numeric value with two decimals.
func fmtValue(v decimal.NullDecimal) string {
	if !v.Valid {
		return notAvailable
	}
	return v.Decimal.StringFixed(2)
}

// fmtUSD renders a dollar amount with two decimals.
func fmtUSD(v decimal.NullDecimal) string {
	if !v.Valid {
		return notAvailable
	}
	return "$" + v.Decimal.StringFixed(2)
}

var (
	decTrillion = decimal.New(1, 12)
	decBillion  = decimal.New(1, 9)
	decMillion  = decimal.New(1, 6)
)

// fmtMarketCap abbreviates large dollar amounts at T/B/M thresholds.
func fmtMarketCap(v decimal.NullDecimal) string {
	if !v.Valid {
		return notAvailable
	}
	d := v.Decimal
	switch {
	case d.GreaterThanOrEqual(decTrillion):
		return "$" + d.Div(decTrillion).StringFixed(1) + "T"
	case d.GreaterThanOrEqual(decBillion):
		return "$" + d.Div(decBillion).StringFixed(1) + "B"
	case d.GreaterThanOrEqual(decMillion):
		return "$" + d.Div(decMillion).StringFixed(1) + "M"
	default:
		return "$" + d.StringFixed(0)
	}
}

func nullFromFloat(f float64) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.NewFromFloat(f), Valid: true}
}
