package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// EconomicOptions parameterise the FRED and Alpha Vantage fetchers.
type EconomicOptions struct {
	FREDAPIKey         string
	FREDBaseURL        string
	AlphaVantageAPIKey string
	AlphaVantageURL    string
	LookbackDays       int
	Timeout            time.Duration
}

// Economic fetches macro indicators from FRED, supplemented by Alpha
// Vantage when a key is configured.
type Economic struct {
	opts    EconomicOptions
	client  *http.Client
	fredURL string
	avURL   string
	logger  zerolog.Logger
}

// fredSeries maps FRED series codes to report names.
var fredSeries = []struct {
	Code string
	Name string
}{
	{"GDP", "GDP"},
	{"UNRATE", "Unemployment Rate"},
	{"CPIAUCSL", "CPI"},
	{"FEDFUNDS", "Fed Funds Rate"},
	{"T10Y2Y", "Yield Curve"},
	{"PAYEMS", "Nonfarm Payrolls"},
	{"HOUST", "Housing Starts"},
	{"RSAFS", "Retail Sales"},
	{"INDPRO", "Industrial Production"},
	{"M2", "M2 Money Supply"},
}

// avFunctions maps Alpha Vantage economic functions to report names.
var avFunctions = []struct {
	Function string
	Interval string
	Name     string
}{
	{"REAL_GDP", "quarterly", "Real GDP (Alpha Vantage)"},
	{"CPI", "monthly", "CPI (Alpha Vantage)"},
	{"UNEMPLOYMENT", "", "Unemployment (Alpha Vantage)"},
	{"RETAIL_SALES", "", "Retail Sales (Alpha Vantage)"},
	{"NONFARM_PAYROLL", "", "Nonfarm Payroll (Alpha Vantage)"},
}

// NewEconomic constructs an economic indicators fetcher.
func NewEconomic(opts EconomicOptions, logger zerolog.Logger) *Economic {
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = 365
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	fredURL := strings.TrimRight(opts.FREDBaseURL, "/")
	if fredURL == "" {
		fredURL = "https://api.stlouisfed.org/fred"
	}
	avURL := opts.AlphaVantageURL
	if avURL == "" {
		avURL = "https://www.alphavantage.co/query"
	}

	return &Economic{
		opts:    opts,
		client:  &http.Client{Timeout: timeout},
		fredURL: fredURL,
		avURL:   avURL,
		logger:  logger.With().Str("component", "economic_source").Logger(),
	}
}

// FetchEconomic retrieves the configured indicator set. Individual series
// failures are logged and skipped.
func (e *Economic) FetchEconomic(ctx context.Context) EconomicSnapshot {
	snap := EconomicSnapshot{Indicators: map[string]IndicatorMetrics{}}

	if e.opts.FREDAPIKey == "" && e.opts.AlphaVantageAPIKey == "" {
		snap.Err = "no economic data api key configured"
		return snap
	}

	if e.opts.FREDAPIKey != "" {
		start := time.Now().UTC().AddDate(0, 0, -e.opts.LookbackDays)
		for _, series := range fredSeries {
			metrics, err := e.fetchFREDSeries(ctx, series.Code, start)
			if err != nil {
				e.logger.Warn().Err(err).Str("series", series.Code).Msg("skipping FRED series")
				continue
			}
			snap.Indicators[series.Name] = metrics
		}
	} else {
		e.logger.Warn().Msg("FRED api key missing; skipping FRED data")
	}

	if e.opts.AlphaVantageAPIKey != "" {
		for _, fn := range avFunctions {
			metrics, err := e.fetchAlphaVantage(ctx, fn.Function, fn.Interval)
			if err != nil {
				e.logger.Warn().Err(err).Str("function", fn.Function).Msg("skipping Alpha Vantage indicator")
				continue
			}
			snap.Indicators[fn.Name] = metrics
		}
	} else {
		e.logger.Warn().Msg("Alpha Vantage api key missing; skipping Alpha Vantage data")
	}

	if len(snap.Indicators) == 0 {
		snap.Err = "no economic data could be fetched"
		return snap
	}

	e.logger.Info().Int("indicators", len(snap.Indicators)).Msg("economic data fetched")
	return snap
}

type fredObservationsResponse struct {
	Observations []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"observations"`
}

func (e *Economic) fetchFREDSeries(ctx context.Context, code string, start time.Time) (IndicatorMetrics, error) {
	params := url.Values{}
	params.Set("series_id", code)
	params.Set("api_key", e.opts.FREDAPIKey)
	params.Set("file_type", "json")
	params.Set("sort_order", "asc")
	params.Set("observation_start", start.Format("2006-01-02"))

	endpoint := e.fredURL + "/series/observations?" + params.Encode()
	payload, err := e.getJSON(ctx, endpoint)
	if err != nil {
		return IndicatorMetrics{}, err
	}

	var res fredObservationsResponse
	if err := json.Unmarshal(payload, &res); err != nil {
		return IndicatorMetrics{}, fmt.Errorf("decode FRED response: %w", err)
	}

	// FRED encodes missing observations as ".".
	values := make([]decimal.Decimal, 0, len(res.Observations))
	dates := make([]string, 0, len(res.Observations))
	for _, obs := range res.Observations {
		if obs.Value == "." || obs.Value == "" {
			continue
		}
		v, err := decimal.NewFromString(obs.Value)
		if err != nil {
			continue
		}
		values = append(values, v)
		dates = append(dates, obs.Date)
	}
	if len(values) == 0 {
		return IndicatorMetrics{}, fmt.Errorf("no observations for %s", code)
	}

	return indicatorFromSeries(values, dates[len(dates)-1]), nil
}

type avEconomicResponse struct {
	Data []struct {
		Date  string `json:"date"`
		Value string `json:"value"`
	} `json:"data"`
}

func (e *Economic) fetchAlphaVantage(ctx context.Context, function, interval string) (IndicatorMetrics, error) {
	params := url.Values{}
	params.Set("function", function)
	params.Set("apikey", e.opts.AlphaVantageAPIKey)
	params.Set("datatype", "json")
	if interval != "" {
		params.Set("interval", interval)
	}

	payload, err := e.getJSON(ctx, e.avURL+"?"+params.Encode())
	if err != nil {
		return IndicatorMetrics{}, err
	}

	var res avEconomicResponse
	if err := json.Unmarshal(payload, &res); err != nil {
		return IndicatorMetrics{}, fmt.Errorf("decode Alpha Vantage response: %w", err)
	}
	if len(res.Data) == 0 {
		return IndicatorMetrics{}, fmt.Errorf("no data for %s", function)
	}

	// Alpha Vantage returns newest first, so the latest two observations sit
	// at the head of the feed. Collect them in ascending order.
	first := 1
	if len(res.Data) < 2 {
		first = 0
	}
	values := make([]decimal.Decimal, 0, 2)
	for i := first; i >= 0; i-- {
		v, err := strconv.ParseFloat(res.Data[i].Value, 64)
		if err != nil {
			return IndicatorMetrics{}, fmt.Errorf("parse value for %s: %w", function, err)
		}
		values = append(values, decimal.NewFromFloat(v))
	}

	return indicatorFromSeries(values, res.Data[0].Date), nil
}

// indicatorFromSeries derives latest value plus change metrics from an
// ascending value series.
func indicatorFromSeries(values []decimal.Decimal, latestDate string) IndicatorMetrics {
	metrics := IndicatorMetrics{Date: latestDate}
	latest := values[len(values)-1]
	metrics.Value = decimal.NullDecimal{Decimal: latest, Valid: true}

	if len(values) > 1 {
		prev := values[len(values)-2]
		change := latest.Sub(prev)
		metrics.Change = decimal.NullDecimal{Decimal: change, Valid: true}
		if !prev.IsZero() {
			metrics.ChangePct = decimal.NullDecimal{
				Decimal: change.Div(prev).Mul(decimal.NewFromInt(100)),
				Valid:   true,
			}
		}
	}
	return metrics
}

func (e *Economic) getJSON(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("economic api error (%d): %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	return payload, nil
}

// indicatorCategories groups indicators for report layout only.
var indicatorCategories = []struct {
	Name       string
	Indicators []string
}{
	{"Growth", []string{"GDP", "Real GDP (Alpha Vantage)", "Industrial Production"}},
	{"Employment", []string{"Unemployment Rate", "Unemployment (Alpha Vantage)", "Nonfarm Payrolls", "Nonfarm Payroll (Alpha Vantage)"}},
	{"Inflation", []string{"CPI", "CPI (Alpha Vantage)"}},
	{"Interest Rates", []string{"Fed Funds Rate", "Yield Curve"}},
	{"Consumer", []string{"Retail Sales", "Retail Sales (Alpha Vantage)"}},
	{"Housing", []string{"Housing Starts"}},
	{"Money Supply", []string{"M2 Money Supply"}},
}

// FormatEconomicReport renders an economic snapshot as a self-contained
// markdown section grouped by category. Pure, no side effects.
func FormatEconomicReport(s EconomicSnapshot) string {
	if s.Failed() {
		return "# Economic Indicators\n\n_Error fetching economic indicator data: " + s.Err + "_\n"
	}

	var b strings.Builder
	b.WriteString("# Economic Indicators\n\n")

	wrote := false
	for _, category := range indicatorCategories {
		var present []string
		for _, name := range category.Indicators {
			if _, ok := s.Indicators[name]; ok {
				present = append(present, name)
			}
		}
		if len(present) == 0 {
			continue
		}
		wrote = true
		b.WriteString("## " + category.Name + "\n\n")
		for _, name := range present {
			metrics := s.Indicators[name]
			value := fmtValue(metrics.Value)
			if metrics.Value.Valid && isRateIndicator(name) {
				value += "%"
			}
			b.WriteString("### " + name + "\n")
			b.WriteString("- Current: " + value + " (as of " + metrics.Date + ")\n")
			b.WriteString("- Change: " + fmtPct(metrics.ChangePct) + "\n\n")
		}
	}
	if !wrote {
		b.WriteString("No economic indicator data available.\n\n")
	}

	return b.String()
}

func isRateIndicator(name string) bool {
	return strings.Contains(name, "Rate") || strings.Contains(name, "Unemployment")
}

var _ EconomicProvider = (*Economic)(nil)
