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
)

// stablecoins is the denylist of symbols excluded from crypto rankings,
// matched case-insensitively.
var stablecoins = map[string]struct{}{
	"usdt": {}, "usdc": {}, "busd": {}, "dai": {}, "tusd": {}, "usdp": {},
	"ust": {}, "frax": {}, "lusd": {}, "fei": {}, "gusd": {}, "usdd": {},
}

// extraCandidates is how many listings beyond top-N are requested so
// filtering stablecoins still yields a full ranking.
const extraCandidates = 10

// CryptoOptions parameterise the CoinGecko fetcher.
type CryptoOptions struct {
	BaseURL string
	APIKey  string
	TopN    int
	Timeout time.Duration
}

// Crypto fetches market listings from CoinGecko.
type Crypto struct {
	opts    CryptoOptions
	client  *http.Client
	baseURL string
	logger  zerolog.Logger
}

// NewCrypto constructs a crypto fetcher.
func NewCrypto(opts CryptoOptions, logger zerolog.Logger) *Crypto {
	if opts.TopN <= 0 {
		opts.TopN = 10
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.coingecko.com/api/v3"
	}

	return &Crypto{
		opts:    opts,
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		logger:  logger.With().Str("component", "crypto_source").Logger(),
	}
}

type geckoMarketEntry struct {
	Symbol       string   `json:"symbol"`
	Name         string   `json:"name"`
	CurrentPrice *float64 `json:"current_price"`
	MarketCap    *float64 `json:"market_cap"`
	Change24h    *float64 `json:"price_change_percentage_24h"`
	Change7d     *float64 `json:"price_change_percentage_7d_in_currency"`
	Rank         int      `json:"market_cap_rank"`
}

// FetchCrypto retrieves the top-N coins by market cap, denylisted
// stablecoins excluded.
func (c *Crypto) FetchCrypto(ctx context.Context) CryptoSnapshot {
	snap := CryptoSnapshot{Top: []CryptoEntry{}}

	params := url.Values{}
	params.Set("vs_currency", "usd")
	params.Set("order", "market_cap_desc")
	params.Set("per_page", strconv.Itoa(c.opts.TopN+extraCandidates))
	params.Set("page", "1")
	params.Set("sparkline", "false")
	params.Set("price_change_percentage", "24h,7d")

	endpoint := c.baseURL + "/coins/markets?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		snap.Err = err.Error()
		return snap
	}
	req.Header.Set("Accept", "application/json")
	if c.opts.APIKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.opts.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		snap.Err = err.Error()
		return snap
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		snap.Err = err.Error()
		return snap
	}
	if resp.StatusCode != http.StatusOK {
		snap.Err = fmt.Sprintf("coingecko api error (%d): %s", resp.StatusCode, strings.TrimSpace(string(payload)))
		return snap
	}

	var entries []geckoMarketEntry
	if err := json.Unmarshal(payload, &entries); err != nil {
		snap.Err = fmt.Sprintf("decode coingecko response: %s", err)
		return snap
	}

	for _, entry := range entries {
		if len(snap.Top) >= c.opts.TopN {
			break
		}
		symbol := strings.ToLower(entry.Symbol)
		if _, denied := stablecoins[symbol]; denied {
			c.logger.Debug().Str("symbol", symbol).Msg("skipping stablecoin")
			continue
		}
		if entry.Symbol == "" || entry.Name == "" || entry.CurrentPrice == nil {
			c.logger.Warn().Str("name", entry.Name).Msg("incomplete coin entry, skipping")
			continue
		}

		coin := CryptoEntry{
			Symbol: strings.ToUpper(entry.Symbol),
			Name:   entry.Name,
			Rank:   entry.Rank,
			Price:  nullFromFloat(*entry.CurrentPrice),
		}
		if entry.Change24h != nil {
			coin.Change24h = nullFromFloat(*entry.Change24h)
		}
		if entry.Change7d != nil {
			coin.Change7d = nullFromFloat(*entry.Change7d)
		}
		if entry.MarketCap != nil {
			coin.MarketCap = nullFromFloat(*entry.MarketCap)
		}
		snap.Top = append(snap.Top, coin)
	}

	if len(snap.Top) < c.opts.TopN {
		c.logger.Warn().
			Int("fetched", len(snap.Top)).
			Int("requested", c.opts.TopN).
			Msg("fewer non-stablecoin listings than requested")
	}

	c.logger.Info().Int("coins", len(snap.Top)).Msg("crypto data fetched")
	return snap
}

// FormatCryptoReport renders a crypto snapshot as a markdown table. Pure,
// no side effects.
func FormatCryptoReport(s CryptoSnapshot) string {
	if s.Failed() {
		return "# Cryptocurrency Market Highlights\n\n_Error fetching crypto data: " + s.Err + "_\n"
	}
	if len(s.Top) == 0 {
		return "# Cryptocurrency Market Highlights\n\n_No cryptocurrency data available._\n"
	}

	var b strings.Builder
	b.WriteString("# Cryptocurrency Market Highlights\n\n")
	b.WriteString("| Rank | Name (Symbol) | Price (USD) | 24h Change | 7d Change | Market Cap |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, coin := range s.Top {
		b.WriteString(fmt.Sprintf("| %d | %s (%s) | %s | %s | %s | %s |\n",
			coin.Rank,
			coin.Name,
			coin.Symbol,
			fmtUSD(coin.Price),
			fmtPct(coin.Change24h),
			fmtPct(coin.Change7d),
			fmtMarketCap(coin.MarketCap),
		))
	}
	return b.String()
}

var _ CryptoProvider = (*Crypto)(nil)
