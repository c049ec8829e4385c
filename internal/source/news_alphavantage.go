package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// AlphaVantageNews pulls the NEWS_SENTIMENT feed.
type AlphaVantageNews struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewAlphaVantageNews constructs an Alpha Vantage news extractor.
func NewAlphaVantageNews(apiKey, baseURL string, timeout time.Duration) *AlphaVantageNews {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://www.alphavantage.co/query"
	}
	return &AlphaVantageNews{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (a *AlphaVantageNews) Name() string { return "AlphaVantage" }

type avNewsResponse struct {
	Feed []struct {
		Title         string `json:"title"`
		Summary       string `json:"summary"`
		URL           string `json:"url"`
		TimePublished string `json:"time_published"`
	} `json:"feed"`
}

// Extract fetches the latest news-sentiment feed entries.
func (a *AlphaVantageNews) Extract(ctx context.Context, limit int) ([]Headline, error) {
	params := url.Values{}
	params.Set("function", "NEWS_SENTIMENT")
	params.Set("sort", "LATEST")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("apikey", a.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("alphavantage fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("alphavantage news error (%d)", resp.StatusCode)
	}

	var raw avNewsResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("alphavantage decode: %w", err)
	}

	headlines := make([]Headline, 0, len(raw.Feed))
	for _, item := range raw.Feed {
		if len(headlines) >= limit {
			break
		}
		publishedAt, err := time.Parse("20060102T150405", item.TimePublished)
		if err != nil {
			publishedAt = time.Time{}
		}
		headlines = append(headlines, Headline{
			Title:       item.Title,
			Summary:     item.Summary,
			URL:         item.URL,
			Source:      a.Name(),
			PublishedAt: publishedAt,
		})
	}
	return headlines, nil
}

var _ Extractor = (*AlphaVantageNews)(nil)
