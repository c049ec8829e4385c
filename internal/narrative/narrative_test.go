package narrative

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"finbrief/internal/source"
)

func nullDec(s string) decimal.NullDecimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

type fakeCompleter struct {
	lastSystem string
	lastUser   string
	reply      string
	err        error
}

func (f *fakeCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	f.lastSystem = system
	f.lastUser = user
	return f.reply, f.err
}

func testGenerator(c completer) *Generator {
	return &Generator{completer: c, logger: zerolog.Nop()}
}

func marketFixture() source.MarketSnapshot {
	return source.MarketSnapshot{
		Indices: map[string]source.IndexMetrics{
			"^GSPC": {Close: nullDec("5000"), DailyChangePct: nullDec("1.2")},
		},
		IndexOrder: []string{"^GSPC"},
		Stocks: map[string]source.StockMetrics{
			"AAPL": {Close: nullDec("190"), DailyChangePct: nullDec("2.5")},
		},
		TopGainers: []string{"AAPL"},
	}
}

func TestIntroductionBuildsPrompt(t *testing.T) {
	fake := &fakeCompleter{reply: "  An upbeat week.  "}
	g := testGenerator(fake)

	section := g.Introduction(context.Background(), marketFixture(), "August 30, 2026")

	if section.State != StateOK {
		t.Fatalf("state = %v, want ok", section.State)
	}
	if section.Text != "An upbeat week." {
		t.Errorf("text not trimmed: %q", section.Text)
	}
	if !strings.Contains(fake.lastUser, "Today is August 30, 2026.") {
		t.Errorf("prompt missing date:\n%s", fake.lastUser)
	}
	if !strings.Contains(fake.lastUser, "S&P 500: 5000.00, up 1.20%") {
		t.Errorf("prompt missing index line:\n%s", fake.lastUser)
	}
	if !strings.Contains(fake.lastSystem, "financial analyst") {
		t.Errorf("unexpected system prompt: %s", fake.lastSystem)
	}
}

func TestIntroductionSkippedWhenMarketFailed(t *testing.T) {
	fake := &fakeCompleter{reply: "should not be called"}
	g := testGenerator(fake)

	section := g.Introduction(context.Background(), source.MarketSnapshot{Err: "down"}, "August 30, 2026")

	if section.State != StateSkipped {
		t.Fatalf("state = %v, want skipped", section.State)
	}
	if fake.lastUser != "" {
		t.Error("no model call should be made for a failed snapshot")
	}
}

func TestMarketAnalysisFailed(t *testing.T) {
	fake := &fakeCompleter{err: fmt.Errorf("rate limited")}
	g := testGenerator(fake)

	section := g.MarketAnalysis(context.Background(), marketFixture())
	if section.State != StateFailed {
		t.Fatalf("state = %v, want failed", section.State)
	}
	if !strings.Contains(section.Reason, "rate limited") {
		t.Errorf("reason = %q", section.Reason)
	}
}

func TestEconomicAnalysisUsesKeyIndicators(t *testing.T) {
	fake := &fakeCompleter{reply: "macro text"}
	g := testGenerator(fake)

	snap := source.EconomicSnapshot{Indicators: map[string]source.IndicatorMetrics{
		"CPI":            {Value: nullDec("310.2"), ChangePct: nullDec("0.3")},
		"Housing Starts": {Value: nullDec("1400")},
	}}

	section := g.EconomicAnalysis(context.Background(), snap)
	if section.State != StateOK {
		t.Fatalf("state = %v, want ok", section.State)
	}
	if !strings.Contains(fake.lastUser, "CPI: 310.20, up 0.30%") {
		t.Errorf("prompt missing CPI:\n%s", fake.lastUser)
	}
	if strings.Contains(fake.lastUser, "Housing Starts") {
		t.Error("non-key indicators should stay out of the prompt")
	}
}

func TestOutlookSkippedOnlyWhenBothCoreSourcesFail(t *testing.T) {
	fake := &fakeCompleter{reply: "outlook"}
	g := testGenerator(fake)

	failedMarket := source.MarketSnapshot{Err: "down"}
	failedEconomic := source.EconomicSnapshot{Err: "down"}

	section := g.Outlook(context.Background(), failedMarket, failedEconomic, source.NewsSnapshot{})
	if section.State != StateSkipped {
		t.Fatalf("state = %v, want skipped", section.State)
	}

	section = g.Outlook(context.Background(), marketFixture(), failedEconomic, source.NewsSnapshot{
		Headlines: []source.Headline{{Title: "Fed holds"}},
	})
	if section.State != StateOK {
		t.Fatalf("state = %v, want ok", section.State)
	}
	if !strings.Contains(fake.lastUser, "Fed holds") {
		t.Errorf("prompt missing headline:\n%s", fake.lastUser)
	}
}
