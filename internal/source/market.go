package source

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	finnhub "github.com/Finnhub-Stock-API/finnhub-go/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// MarketOptions parameterise the Finnhub market fetcher.
type MarketOptions struct {
	APIKey       string
	Indices      []string
	Stocks       []string
	LookbackDays int
	Timeout      time.Duration
}

// Market fetches index and stock candles from Finnhub.
type Market struct {
	opts   MarketOptions
	client *finnhub.DefaultApiService
	logger zerolog.Logger
}

// NewMarket constructs a market fetcher.
func NewMarket(opts MarketOptions, logger zerolog.Logger) *Market {
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = 30
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	cfg := finnhub.NewConfiguration()
	cfg.AddDefaultHeader("X-Finnhub-Token", opts.APIKey)
	cfg.HTTPClient = &http.Client{Timeout: timeout}

	return &Market{
		opts:   opts,
		client: finnhub.NewAPIClient(cfg).DefaultApi,
		logger: logger.With().Str("component", "market_source").Logger(),
	}
}

// FetchMarket retrieves candles for the configured indices and stocks. A
// single failing symbol is skipped with a warning; only a total failure
// sets the snapshot error.
func (m *Market) FetchMarket(ctx context.Context) MarketSnapshot {
	snap := emptyMarketSnapshot()

	if m.opts.APIKey == "" {
		snap.Err = "finnhub api key not configured"
		return snap
	}

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -m.opts.LookbackDays)

	for _, symbol := range m.opts.Indices {
		closes, times, _, err := m.fetchCandles(ctx, symbol, from, to)
		if err != nil {
			m.logger.Warn().Err(err).Str("symbol", symbol).Msg("skipping index")
			continue
		}
		snap.Indices[symbol] = indexMetricsFromCloses(closes)
		snap.IndexOrder = append(snap.IndexOrder, symbol)
		snap.Series[symbol] = closeSeries(closes, times)
	}

	for _, symbol := range m.opts.Stocks {
		closes, _, volumes, err := m.fetchCandles(ctx, symbol, from, to)
		if err != nil {
			m.logger.Warn().Err(err).Str("symbol", symbol).Msg("skipping stock")
			continue
		}
		snap.Stocks[symbol] = stockMetricsFromCloses(closes, volumes)
	}

	if len(snap.Indices) == 0 && len(snap.Stocks) == 0 {
		snap.Err = "no market data could be fetched"
		return snap
	}

	snap.TopGainers, snap.TopLosers = rankStocks(snap.Stocks)

	m.logger.Info().
		Int("indices", len(snap.Indices)).
		Int("stocks", len(snap.Stocks)).
		Msg("market data fetched")
	return snap
}

func emptyMarketSnapshot() MarketSnapshot {
	return MarketSnapshot{
		Indices: map[string]IndexMetrics{},
		Stocks:  map[string]StockMetrics{},
		Series:  map[string][]ClosePoint{},
	}
}

func (m *Market) fetchCandles(ctx context.Context, symbol string, from, to time.Time) (closes []float64, times []int64, volumes []float64, err error) {
	res, _, err := m.client.StockCandles(ctx).
		Symbol(symbol).
		Resolution("D").
		From(from.Unix()).
		To(to.Unix()).
		Execute()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("fetch candles for %s: %w", symbol, err)
	}
	if res.GetS() != "ok" {
		return nil, nil, nil, fmt.Errorf("no candle data for %s (status %q)", symbol, res.GetS())
	}

	for _, c := range res.GetC() {
		closes = append(closes, float64(c))
	}
	for _, v := range res.GetV() {
		volumes = append(volumes, float64(v))
	}
	times = res.GetT()

	if len(closes) == 0 {
		return nil, nil, nil, fmt.Errorf("empty candle series for %s", symbol)
	}
	return closes, times, volumes, nil
}

func closeSeries(closes []float64, times []int64) []ClosePoint {
	points := make([]ClosePoint, 0, len(closes))
	for i, c := range closes {
		var ts time.Time
		if i < len(times) {
			ts = time.Unix(times[i], 0).UTC()
		}
		points = append(points, ClosePoint{Time: ts, Close: c})
	}
	return points
}

func indexMetricsFromCloses(closes []float64) IndexMetrics {
	var metrics IndexMetrics
	metrics.Close = nullFromFloat(closes[len(closes)-1])
	metrics.DailyChangePct = pctChangeFrom(closes, len(closes)-2)
	metrics.WeeklyChangePct = weeklyChange(closes)
	metrics.Volatility = volatility(closes)
	return metrics
}

func stockMetricsFromCloses(closes, volumes []float64) StockMetrics {
	var metrics StockMetrics
	metrics.Close = nullFromFloat(closes[len(closes)-1])
	metrics.DailyChangePct = pctChangeFrom(closes, len(closes)-2)
	metrics.WeeklyChangePct = weeklyChange(closes)
	if len(volumes) > 0 {
		metrics.Volume = nullFromFloat(volumes[len(volumes)-1])
		metrics.VolumeChangePct = pctChangeFrom(volumes, len(volumes)-2)
	}
	return metrics
}

// pctChangeFrom computes the percentage change of the last element against
// the element at index i. Out-of-range or zero baselines yield an absent
// value.
func pctChangeFrom(series []float64, i int) decimal.NullDecimal {
	if i < 0 || i >= len(series)-1 {
		return decimal.NullDecimal{}
	}
	base := series[i]
	if base == 0 {
		return decimal.NullDecimal{}
	}
	latest := series[len(series)-1]
	return nullFromFloat((latest - base) / base * 100)
}

// weeklyChange measures the move across the lookback window. At least six
// observations are required, mirroring five prior trading days.
func weeklyChange(closes []float64) decimal.NullDecimal {
	if len(closes) <= 5 {
		return decimal.NullDecimal{}
	}
	return pctChangeFrom(closes, 0)
}

func volatility(closes []float64) decimal.NullDecimal {
	if len(closes) < 3 {
		return decimal.NullDecimal{}
	}
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		returns = append(returns, (closes[i]-closes[i-1])/closes[i-1])
	}
	if len(returns) < 2 {
		return decimal.NullDecimal{}
	}
	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)
	return nullFromFloat(math.Sqrt(variance) * 100)
}

// rankStocks orders tickers by daily change descending, symbol ascending on
// ties, and slices the top and bottom three. Losers come back most negative
// first. Tickers without a daily change sort last.
func rankStocks(stocks map[string]StockMetrics) (gainers, losers []string) {
	symbols := make([]string, 0, len(stocks))
	for symbol := range stocks {
		symbols = append(symbols, symbol)
	}
	sort.Slice(symbols, func(i, j int) bool {
		a, b := stocks[symbols[i]].DailyChangePct, stocks[symbols[j]].DailyChangePct
		switch {
		case a.Valid && !b.Valid:
			return true
		case !a.Valid && b.Valid:
			return false
		case a.Valid && b.Valid && !a.Decimal.Equal(b.Decimal):
			return a.Decimal.GreaterThan(b.Decimal)
		}
		return symbols[i] < symbols[j]
	})

	n := len(symbols)
	top := n
	if top > 3 {
		top = 3
	}
	gainers = append(gainers, symbols[:top]...)

	bottom := n - 3
	if bottom < 0 {
		bottom = 0
	}
	for i := n - 1; i >= bottom; i-- {
		losers = append(losers, symbols[i])
	}
	return gainers, losers
}

var indexNames = map[string]string{
	"^GSPC": "S&P 500",
	"^DJI":  "Dow Jones Industrial Average",
	"^IXIC": "NASDAQ Composite",
	"^RUT":  "Russell 2000",
	"^VIX":  "CBOE Volatility Index",
	"^FTSE": "FTSE 100",
	"^N225": "Nikkei 225",
}

// IndexName resolves an index symbol to its display name.
func IndexName(symbol string) string {
	if name, ok := indexNames[symbol]; ok {
		return name
	}
	return symbol
}

// FormatMarketReport renders a market snapshot as a self-contained markdown
// section. Pure, no side effects.
func FormatMarketReport(s MarketSnapshot) string {
	if s.Failed() {
		return "# Market Summary\n\n_Error fetching stock market data: " + s.Err + "_\n"
	}

	var b strings.Builder
	b.WriteString("# Market Summary\n\n")

	if len(s.Indices) == 0 {
		b.WriteString("No market summary data available.\n\n")
	}
	for _, symbol := range s.IndexOrder {
		metrics, ok := s.Indices[symbol]
		if !ok {
			continue
		}
		b.WriteString("## " + IndexName(symbol) + "\n")
		b.WriteString("- Current: " + fmtValue(metrics.Close) + "\n")
		b.WriteString("- Daily Change: " + fmtPct(metrics.DailyChangePct) + "\n")
		b.WriteString("- Weekly Change: " + fmtPct(metrics.WeeklyChangePct) + "\n")
		b.WriteString("- Volatility: " + fmtValue(metrics.Volatility) + "\n\n")
	}

	b.WriteString("# Top Performing Stocks\n\n")
	if len(s.TopGainers) == 0 {
		b.WriteString("No top gainers data available.\n\n")
	}
	for _, symbol := range s.TopGainers {
		writeStockEntry(&b, symbol, s.Stocks[symbol])
	}

	b.WriteString("# Underperforming Stocks\n\n")
	if len(s.TopLosers) == 0 {
		b.WriteString("No underperforming stocks data available.\n\n")
	}
	for _, symbol := range s.TopLosers {
		writeStockEntry(&b, symbol, s.Stocks[symbol])
	}

	return b.String()
}

func writeStockEntry(b *strings.Builder, symbol string, metrics StockMetrics) {
	b.WriteString("## " + symbol + "\n")
	b.WriteString("- Current: " + fmtUSD(metrics.Close) + "\n")
	b.WriteString("- Daily Change: " + fmtPct(metrics.DailyChangePct) + "\n\n")
}

var _ MarketProvider = (*Market)(nil)
