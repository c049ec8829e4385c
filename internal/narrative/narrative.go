// Package narrative produces the language-model-written sections of the
// newsletter. Every call degrades to a tagged failure instead of an error so
// the report always assembles.
package narrative

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"finbrief/internal/source"
)

// State tags the outcome of one section request.
type State int

const (
	// StateOK carries generated prose.
	StateOK State = iota
	// StateFailed marks a model call that errored.
	StateFailed
	// StateSkipped marks a section whose upstream data was unavailable, so
	// no model call was spent on it.
	StateSkipped
)

// Section is the result of one narrative request.
type Section struct {
	State  State
	Text   string
	Reason string
}

func ok(text string) Section { return Section{State: StateOK, Text: text} }

func failed(err error) Section { return Section{State: StateFailed, Reason: err.Error()} }

func skipped(reason string) Section { return Section{State: StateSkipped, Reason: reason} }

// completer issues one chat-completion request. The seam exists so tests can
// substitute a fake for the OpenAI client.
type completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Generator writes the five narrative sections.
type Generator struct {
	completer completer
	logger    zerolog.Logger
}

// NewGenerator constructs a generator backed by the OpenAI API.
func NewGenerator(opts OpenAIOptions, logger zerolog.Logger) *Generator {
	return &Generator{
		completer: newOpenAICompleter(opts),
		logger:    logger.With().Str("component", "narrative").Logger(),
	}
}

func (g *Generator) complete(ctx context.Context, name, system, user string) Section {
	g.logger.Info().Str("section", name).Msg("generating narrative section")
	text, err := g.completer.Complete(ctx, system, user)
	if err != nil {
		g.logger.Error().Err(err).Str("section", name).Msg("narrative generation failed")
		return failed(err)
	}
	return ok(strings.TrimSpace(text))
}

// Introduction writes the opening paragraphs from headline index moves.
func (g *Generator) Introduction(ctx context.Context, market source.MarketSnapshot, date string) Section {
	if market.Failed() {
		return skipped("market data unavailable")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Today is %s.\n\nKey market indicators:\n", date)
	for _, symbol := range []string{"^GSPC", "^DJI", "^IXIC"} {
		fmt.Fprintf(&b, "- %s: %s\n", source.IndexName(symbol), indexLine(market, symbol))
	}
	b.WriteString("\nWrite a professional, insightful introduction (2-3 paragraphs) for this week's financial newsletter. " +
		"Focus on the overall market sentiment and key themes for investors to watch. " +
		"Do not include specific numbers in your response, just provide a high-level overview.")

	return g.complete(ctx, "introduction",
		"You are a professional financial analyst writing the introduction to a weekly newsletter for investors.",
		b.String())
}

// MarketAnalysis writes the index and stock performance commentary.
func (g *Generator) MarketAnalysis(ctx context.Context, market source.MarketSnapshot) Section {
	if market.Failed() {
		return skipped("market data unavailable")
	}

	var b strings.Builder
	b.WriteString("Market data:\n")
	for _, symbol := range market.IndexOrder {
		fmt.Fprintf(&b, "- %s: %s\n", source.IndexName(symbol), indexLine(market, symbol))
	}
	b.WriteString("\nTop performing stocks:\n")
	for _, symbol := range market.TopGainers {
		fmt.Fprintf(&b, "- %s: %s\n", symbol, stockLine(market.Stocks[symbol]))
	}
	b.WriteString("\nUnderperforming stocks:\n")
	for _, symbol := range market.TopLosers {
		fmt.Fprintf(&b, "- %s: %s\n", symbol, stockLine(market.Stocks[symbol]))
	}
	b.WriteString("\nBased on this data, write a detailed market analysis (3-4 paragraphs) covering overall performance, " +
		"sector insights, what might be driving the gainers and losers, and any technical patterns worth noting. " +
		"Use a professional, analytical tone.")

	return g.complete(ctx, "market_analysis",
		"You are a professional financial analyst providing market analysis for a weekly investor newsletter.",
		b.String())
}

// keyIndicators bounds the economic context to a handful of lines.
var keyIndicators = []string{"GDP", "Unemployment Rate", "CPI", "Fed Funds Rate"}

// EconomicAnalysis writes the macro commentary.
func (g *Generator) EconomicAnalysis(ctx context.Context, economic source.EconomicSnapshot) Section {
	if economic.Failed() {
		return skipped("economic data unavailable")
	}

	var b strings.Builder
	b.WriteString("Economic indicators:\n")
	for _, name := range keyIndicators {
		metrics, okInd := economic.Indicators[name]
		if !okInd {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s%s\n", name, valueText(metrics.Value), changeText(metrics.ChangePct))
	}
	b.WriteString("\nBased on these indicators, write an economic analysis (2-3 paragraphs) explaining what the data " +
		"suggests about growth, inflation, and monetary policy, and what it means for investors. " +
		"Use a professional, analytical tone.")

	return g.complete(ctx, "economic_analysis",
		"You are a professional economist providing macroeconomic analysis for a weekly investor newsletter.",
		b.String())
}

// CryptoAnalysis writes the digital-asset commentary.
func (g *Generator) CryptoAnalysis(ctx context.Context, crypto source.CryptoSnapshot) Section {
	if crypto.Failed() {
		return skipped("crypto data unavailable")
	}

	var b strings.Builder
	b.WriteString("Top cryptocurrencies by market cap:\n")
	for i, coin := range crypto.Top {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&b, "- %s (%s): %s, 24h %s\n", coin.Name, coin.Symbol, valueText(coin.Price), changeOnly(coin.Change24h))
	}
	b.WriteString("\nWrite a short analysis (1-2 paragraphs) of the cryptocurrency market based on these movements. " +
		"Use a professional tone and avoid hype.")

	return g.complete(ctx, "crypto_analysis",
		"You are a professional analyst covering digital assets for a weekly investor newsletter.",
		b.String())
}

// Outlook writes the forward-looking synthesis.
func (g *Generator) Outlook(ctx context.Context, market source.MarketSnapshot, economic source.EconomicSnapshot, news source.NewsSnapshot) Section {
	if market.Failed() && economic.Failed() {
		return skipped("market and economic data unavailable")
	}

	var b strings.Builder
	if !market.Failed() {
		b.WriteString("Market data:\n")
		for _, symbol := range market.IndexOrder {
			fmt.Fprintf(&b, "- %s: %s\n", source.IndexName(symbol), indexLine(market, symbol))
		}
	}
	if !economic.Failed() {
		b.WriteString("\nEconomic indicators:\n")
		for _, name := range keyIndicators {
			metrics, okInd := economic.Indicators[name]
			if !okInd {
				continue
			}
			fmt.Fprintf(&b, "- %s: %s%s\n", name, valueText(metrics.Value), changeText(metrics.ChangePct))
		}
	}
	if !news.Failed() {
		b.WriteString("\nRecent headlines:\n")
		for i, h := range news.Headlines {
			if i >= 5 {
				break
			}
			fmt.Fprintf(&b, "- %s\n", h.Title)
		}
	}
	b.WriteString("\nSynthesize this into a forward-looking outlook (3-4 paragraphs): key risks and opportunities for " +
		"the coming weeks, sectors to watch, and how recent news might shape sentiment. " +
		"Use a professional, strategic tone.")

	return g.complete(ctx, "outlook",
		"You are a professional financial strategist providing a forward-looking outlook for a weekly investor newsletter.",
		b.String())
}

func indexLine(market source.MarketSnapshot, symbol string) string {
	metrics, okIdx := market.Indices[symbol]
	if !okIdx {
		return "data not available"
	}
	return valueText(metrics.Close) + changeText(metrics.DailyChangePct)
}

func stockLine(metrics source.StockMetrics) string {
	return valueText(metrics.Close) + changeText(metrics.DailyChangePct)
}

func valueText(v decimal.NullDecimal) string {
	if !v.Valid {
		return "N/A"
	}
	return v.Decimal.StringFixed(2)
}

func changeText(v decimal.NullDecimal) string {
	if !v.Valid {
		return ""
	}
	return ", " + changeOnly(v)
}

func changeOnly(v decimal.NullDecimal) string {
	if !v.Valid {
		return "unchanged"
	}
	direction := "up"
	if v.Decimal.Sign() < 0 {
		direction = "down"
	}
	return direction + " " + v.Decimal.Abs().StringFixed(2) + "%"
}
