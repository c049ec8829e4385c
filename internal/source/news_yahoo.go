package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// YahooNews scrapes headlines from the Yahoo Finance news page. This is
// fragile by nature: the extraction rule is "h3 with a link inside an
// article-ish container" and breaks whenever the page layout changes.
type YahooNews struct {
	pageURL   string
	userAgent string
	client    *http.Client
	now       func() time.Time
}

// NewYahooNews constructs a Yahoo Finance news extractor.
func NewYahooNews(pageURL, userAgent string, timeout time.Duration) *YahooNews {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if pageURL == "" {
		pageURL = "https://finance.yahoo.com/news/"
	}
	return &YahooNews{
		pageURL:   pageURL,
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
		now:       time.Now,
	}
}

func (y *YahooNews) Name() string { return "Yahoo Finance" }

// Extract fetches and parses the news landing page.
func (y *YahooNews) Extract(ctx context.Context, limit int) ([]Headline, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, y.pageURL, nil)
	if err != nil {
		return nil, err
	}
	if y.userAgent != "" {
		req.Header.Set("User-Agent", y.userAgent)
	}

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo news error (%d)", resp.StatusCode)
	}
	return y.parse(resp.Body, limit)
}

func (y *YahooNews) parse(r io.Reader, limit int) ([]Headline, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("yahoo parse: %w", err)
	}

	var headlines []Headline
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if len(headlines) >= limit {
			return
		}
		if n.Type == html.ElementNode && n.Data == "h3" {
			if h, ok := y.headlineFromNode(n); ok {
				headlines = append(headlines, h)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return headlines, nil
}

func (y *YahooNews) headlineFromNode(h3 *html.Node) (Headline, bool) {
	title := strings.TrimSpace(textContent(h3))
	if title == "" {
		return Headline{}, false
	}

	h := Headline{
		Title:       title,
		Source:      y.Name(),
		PublishedAt: y.now(),
	}
	if link := findElement(h3, "a"); link != nil {
		if href := attrValue(link, "href"); href != "" {
			if strings.HasPrefix(href, "/") {
				href = "https://finance.yahoo.com" + href
			}
			h.URL = href
		}
	}

	// Summary and timestamp live in sibling elements of the headline.
	if parent := h3.Parent; parent != nil {
		for c := parent.FirstChild; c != nil; c = c.NextSibling {
			if c == h3 || c.Type != html.ElementNode {
				continue
			}
			text := strings.TrimSpace(textContent(c))
			switch {
			case c.Data == "p" && h.Summary == "":
				h.Summary = text
			case relativeDateRe.MatchString(strings.ToLower(text)) && strings.Contains(strings.ToLower(text), "ago"):
				h.PublishedAt = parseRelativeDate(text, y.now())
			}
		}
	}
	return h, true
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textContent(c))
	}
	return b.String()
}

func findElement(n *html.Node, name string) *html.Node {
	if n.Type == html.ElementNode && n.Data == name {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, name); found != nil {
			return found
		}
	}
	return nil
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

var _ Extractor = (*YahooNews)(nil)
