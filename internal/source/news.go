package source

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// News aggregates headlines from pluggable per-source extractors.
type News struct {
	extractors   []Extractor
	maxHeadlines int
	logger       zerolog.Logger
}

// NewNews constructs a news aggregator over the given extractors.
func NewNews(extractors []Extractor, maxHeadlines int, logger zerolog.Logger) *News {
	if maxHeadlines <= 0 {
		maxHeadlines = 10
	}
	return &News{
		extractors:   extractors,
		maxHeadlines: maxHeadlines,
		logger:       logger.With().Str("component", "news_source").Logger(),
	}
}

// FetchNews pulls headlines from every extractor, merges them, and keeps
// the most recent. A failing extractor is skipped with a warning.
func (n *News) FetchNews(ctx context.Context) NewsSnapshot {
	snap := NewsSnapshot{Headlines: []Headline{}}

	if len(n.extractors) == 0 {
		snap.Err = "no news sources configured"
		return snap
	}

	var merged []Headline
	failures := 0
	for _, extractor := range n.extractors {
		headlines, err := extractor.Extract(ctx, n.maxHeadlines)
		if err != nil {
			n.logger.Warn().Err(err).Str("source", extractor.Name()).Msg("skipping news source")
			failures++
			continue
		}
		merged = append(merged, headlines...)
	}

	if failures == len(n.extractors) {
		snap.Err = "all news sources failed"
		return snap
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].PublishedAt.After(merged[j].PublishedAt)
	})
	if len(merged) > n.maxHeadlines {
		merged = merged[:n.maxHeadlines]
	}
	snap.Headlines = merged

	n.logger.Info().Int("headlines", len(snap.Headlines)).Msg("news fetched")
	return snap
}

var relativeDateRe = regexp.MustCompile(`(\d+)\s*([hdwmy])`)

// parseRelativeDate turns stamps like "2h ago" or "3d ago" into absolute
// times relative to now. Unparseable input falls back to now.
func parseRelativeDate(text string, now time.Time) time.Time {
	match := relativeDateRe.FindStringSubmatch(strings.ToLower(text))
	if match == nil {
		return now
	}
	value, err := strconv.Atoi(match[1])
	if err != nil {
		return now
	}
	switch match[2] {
	case "h":
		return now.Add(-time.Duration(value) * time.Hour)
	case "d":
		return now.AddDate(0, 0, -value)
	case "w":
		return now.AddDate(0, 0, -7*value)
	case "m":
		return now.AddDate(0, -value, 0)
	case "y":
		return now.AddDate(-value, 0, 0)
	}
	return now
}

// FormatNewsReport renders a news snapshot as a self-contained markdown
// section. Pure, no side effects.
func FormatNewsReport(s NewsSnapshot) string {
	if s.Failed() {
		return "# Financial News Headlines\n\n_Error fetching news headlines: " + s.Err + "_\n"
	}
	if len(s.Headlines) == 0 {
		return "# Financial News Headlines\n\nNo recent headlines available.\n"
	}

	var b strings.Builder
	b.WriteString("# Financial News Headlines\n\n")
	for _, h := range s.Headlines {
		b.WriteString("## " + h.Title + "\n")
		if h.Summary != "" {
			b.WriteString(h.Summary + "\n")
		}
		b.WriteString("*Source: " + h.Source + " - " + h.PublishedAt.Format("2006-01-02 15:04") + "*\n")
		if h.URL != "" {
			b.WriteString("[Read more](" + h.URL + ")\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

var _ NewsProvider = (*News)(nil)
