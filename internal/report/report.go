// Package report assembles fetched and generated sections into the final
// newsletter artifacts.
package report

import (
	"strings"
	"time"

	"finbrief/internal/narrative"
	"finbrief/internal/source"
)

// Newsletter is one fully assembled issue.
type Newsletter struct {
	Title    string
	Date     time.Time
	Markdown string
	HTML     string
	ChartPNG []byte
	Raw      RawData
}

// RawData keeps the snapshots behind an issue for audit.
type RawData struct {
	Market   source.MarketSnapshot
	Economic source.EconomicSnapshot
	Crypto   source.CryptoSnapshot
	News     source.NewsSnapshot
}

// AssembleInput carries every section of an issue.
type AssembleInput struct {
	Title string
	Date  time.Time

	Introduction     narrative.Section
	MarketAnalysis   narrative.Section
	EconomicAnalysis narrative.Section
	CryptoAnalysis   narrative.Section
	Outlook          narrative.Section

	MarketSummary   string
	EconomicSummary string
	CryptoSummary   string
	NewsSummary     string
}

const (
	failedPlaceholder  = "_This section could not be generated this week._"
	skippedPlaceholder = "_This section was skipped because its source data was unavailable._"
)

// sectionText resolves a narrative section to prose or a visible
// placeholder. The assembler switches on the tag; it never inspects the
// text itself.
func sectionText(s narrative.Section) string {
	switch s.State {
	case narrative.StateOK:
		return s.Text
	case narrative.StateSkipped:
		return skippedPlaceholder
	default:
		return failedPlaceholder
	}
}

// Assemble concatenates all sections in a fixed order. Pure; the order is a
// readability choice but must stay stable so issues are reproducible.
func Assemble(in AssembleInput) string {
	var b strings.Builder

	b.WriteString("# " + in.Title + "\n\n")
	b.WriteString("**" + in.Date.Format("January 2, 2006") + "**\n\n")
	b.WriteString(sectionText(in.Introduction) + "\n\n")

	b.WriteString("## Market Analysis\n\n")
	b.WriteString(sectionText(in.MarketAnalysis) + "\n\n")
	b.WriteString(in.MarketSummary + "\n")

	b.WriteString("## Economic Analysis\n\n")
	b.WriteString(sectionText(in.EconomicAnalysis) + "\n\n")
	b.WriteString(in.EconomicSummary + "\n")

	b.WriteString(in.CryptoSummary + "\n")
	b.WriteString("## Crypto Analysis\n\n")
	b.WriteString(sectionText(in.CryptoAnalysis) + "\n\n")

	b.WriteString(in.NewsSummary + "\n")

	b.WriteString("## Market Outlook\n\n")
	b.WriteString(sectionText(in.Outlook) + "\n\n")

	b.WriteString("---\n\n")
	b.WriteString("*This newsletter was automatically generated on " + in.Date.Format("2006-01-02") + ". " +
		"Nothing in it constitutes investment advice.*\n")

	return b.String()
}
