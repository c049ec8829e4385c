package source

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

type fakeExtractor struct {
	name      string
	headlines []Headline
	err       error
}

func (f fakeExtractor) Name() string { return f.name }

func (f fakeExtractor) Extract(ctx context.Context, limit int) ([]Headline, error) {
	return f.headlines, f.err
}

func TestFetchNewsMergesAndSorts(t *testing.T) {
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	a := fakeExtractor{name: "a", headlines: []Headline{
		{Title: "old", PublishedAt: base.Add(-48 * time.Hour)},
		{Title: "newest", PublishedAt: base},
	}}
	b := fakeExtractor{name: "b", headlines: []Headline{
		{Title: "middle", PublishedAt: base.Add(-time.Hour)},
	}}

	n := NewNews([]Extractor{a, b}, 2, noopLogger())
	snap := n.FetchNews(context.Background())

	assert.Equal(t, snap.Failed(), false)
	assert.Equal(t, len(snap.Headlines), 2)
	assert.Equal(t, snap.Headlines[0].Title, "newest")
	assert.Equal(t, snap.Headlines[1].Title, "middle")
}

func TestFetchNewsSkipsFailingExtractor(t *testing.T) {
	good := fakeExtractor{name: "good", headlines: []Headline{{Title: "only"}}}
	bad := fakeExtractor{name: "bad", err: fmt.Errorf("boom")}

	n := NewNews([]Extractor{bad, good}, 5, noopLogger())
	snap := n.FetchNews(context.Background())

	assert.Equal(t, snap.Failed(), false)
	assert.Equal(t, len(snap.Headlines), 1)
}

func TestFetchNewsAllFail(t *testing.T) {
	bad := fakeExtractor{name: "bad", err: fmt.Errorf("boom")}
	n := NewNews([]Extractor{bad}, 5, noopLogger())
	snap := n.FetchNews(context.Background())
	assert.Equal(t, snap.Failed(), true)
}

func TestParseRelativeDate(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2h ago", now.Add(-2 * time.Hour)},
		{"3d ago", now.AddDate(0, 0, -3)},
		{"1w ago", now.AddDate(0, 0, -7)},
		{"2m ago", now.AddDate(0, -2, 0)},
		{"1y ago", now.AddDate(-1, 0, 0)},
		{"yesterday", now},
		{"", now},
	}
	for _, tc := range cases {
		assert.Equal(t, parseRelativeDate(tc.in, now), tc.want)
	}
}

func TestFormatNewsReport(t *testing.T) {
	snap := NewsSnapshot{Headlines: []Headline{
		{
			Title:       "Markets rally",
			Summary:     "Stocks rose broadly.",
			Source:      "Yahoo Finance",
			URL:         "https://example.com/story",
			PublishedAt: time.Date(2026, 8, 29, 9, 30, 0, 0, time.UTC),
		},
	}}

	out := FormatNewsReport(snap)
	for _, want := range []string{
		"# Financial News Headlines",
		"## Markets rally",
		"Stocks rose broadly.",
		"*Source: Yahoo Finance - 2026-08-29 09:30*",
		"[Read more](https://example.com/story)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}
