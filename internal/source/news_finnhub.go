package source

import (
	"context"
	"fmt"
	"net/http"
	"time"

	finnhub "github.com/Finnhub-Stock-API/finnhub-go/v2"
)

// FinnhubNews pulls general market news through the Finnhub SDK.
type FinnhubNews struct {
	client *finnhub.DefaultApiService
}

// NewFinnhubNews constructs a Finnhub news extractor.
func NewFinnhubNews(apiKey string, timeout time.Duration) *FinnhubNews {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	cfg := finnhub.NewConfiguration()
	cfg.AddDefaultHeader("X-Finnhub-Token", apiKey)
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return &FinnhubNews{client: finnhub.NewAPIClient(cfg).DefaultApi}
}

func (f *FinnhubNews) Name() string { return "Finnhub" }

// Extract fetches the general market news feed.
func (f *FinnhubNews) Extract(ctx context.Context, limit int) ([]Headline, error) {
	res, _, err := f.client.MarketNews(ctx).Category("general").Execute()
	if err != nil {
		return nil, fmt.Errorf("finnhub market news: %w", err)
	}

	headlines := make([]Headline, 0, limit)
	for _, item := range res {
		if len(headlines) >= limit {
			break
		}
		h := Headline{Source: f.Name()}
		if item.Headline != nil {
			h.Title = *item.Headline
		}
		if h.Title == "" {
			continue
		}
		if item.Summary != nil {
			h.Summary = *item.Summary
		}
		if item.Url != nil {
			h.URL = *item.Url
		}
		if item.Datetime != nil {
			h.PublishedAt = time.Unix(*item.Datetime, 0).UTC()
		}
		headlines = append(headlines, h)
	}
	return headlines, nil
}

var _ Extractor = (*FinnhubNews)(nil)
