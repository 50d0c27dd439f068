package news

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"courtwise/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/doyensec/safeurl"
	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
)

const (
	maxBodySize    = 5 << 20
	maxSummaryLen  = 300
	defaultTimeout = 20 * time.Second
	userAgent      = "CourtwiseNewsBot/1.0"
)

// Selectors tried, in order, to find news entries on a listing page.
var entrySelectors = []string{"article", ".news-item", ".story", "li.post"}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"02 Jan 2006",
	"02/01/2006",
}

// NewSafeHTTPClient returns a client that refuses private, loopback and
// link-local destinations, including after DNS resolution.
func NewSafeHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes("http", "https").
		SetAllowedPorts(80, 443).
		Build()
	return safeurl.Client(config).Client
}

// Scraper reads news listing pages and RSS/Atom feeds.
type Scraper struct {
	http  *http.Client
	feeds *gofeed.Parser
	text  *bluemonday.Policy
}

// NewScraper uses client for every fetch. A nil client gets the SSRF-safe default.
func NewScraper(client *http.Client) *Scraper {
	if client == nil {
		client = NewSafeHTTPClient(defaultTimeout)
	}
	return &Scraper{
		http:  client,
		feeds: gofeed.NewParser(),
		text:  bluemonday.StrictPolicy(),
	}
}

// ScrapePage extracts news entries from an HTML listing page.
func (s *Scraper) ScrapePage(ctx context.Context, pageURL string) ([]models.LegalNews, error) {
	body, base, err := s.fetch(ctx, pageURL, "text/html,application/xhtml+xml")
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", pageURL, err)
	}
	doc.Find("script, style, noscript").Remove()

	var entries *goquery.Selection
	for _, sel := range entrySelectors {
		if found := doc.Find(sel); found.Length() > 0 {
			entries = found
			break
		}
	}
	if entries == nil {
		return nil, nil
	}

	source := sourceName(base)
	seen := map[string]bool{}
	var items []models.LegalNews
	entries.Each(func(_ int, entry *goquery.Selection) {
		heading := entry.Find("h1, h2, h3, h4, .title").First()
		title := s.clean(heading.Text())

		anchor := heading.Find("a[href]").First()
		if anchor.Length() == 0 {
			anchor = entry.Find("a[href]").First()
		}
		href, _ := anchor.Attr("href")
		link := resolve(base, href)
		if title == "" {
			title = s.clean(anchor.Text())
		}
		if title == "" || link == "" || seen[link] {
			return
		}
		seen[link] = true

		item := models.LegalNews{
			Title:   title,
			Link:    link,
			Summary: truncate(s.clean(entry.Find("p, .summary, .excerpt").First().Text()), maxSummaryLen),
			Source:  source,
		}
		if src, ok := entry.Find("img[src]").First().Attr("src"); ok {
			item.ImageURL = resolve(base, src)
		}
		if t := entry.Find("time").First(); t.Length() > 0 {
			raw, ok := t.Attr("datetime")
			if !ok {
				raw = t.Text()
			}
			item.PublishedAt = parseDate(raw)
		}
		items = append(items, item)
	})
	return items, nil
}

// ReadFeed parses an RSS or Atom feed.
func (s *Scraper) ReadFeed(ctx context.Context, feedURL string) ([]models.LegalNews, error) {
	body, base, err := s.fetch(ctx, feedURL, "application/rss+xml, application/atom+xml, application/xml, text/xml, */*")
	if err != nil {
		return nil, err
	}
	feed, err := s.feeds.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", feedURL, err)
	}

	source := s.clean(feed.Title)
	if source == "" {
		source = sourceName(base)
	}
	items := make([]models.LegalNews, 0, len(feed.Items))
	for _, it := range feed.Items {
		title := s.clean(it.Title)
		link := resolve(base, strings.TrimSpace(it.Link))
		if title == "" || link == "" {
			continue
		}
		item := models.LegalNews{
			Title:   title,
			Link:    link,
			Summary: truncate(s.clean(it.Description), maxSummaryLen),
			Source:  source,
		}
		switch {
		case it.PublishedParsed != nil:
			t := it.PublishedParsed.UTC()
			item.PublishedAt = &t
		case it.UpdatedParsed != nil:
			t := it.UpdatedParsed.UTC()
			item.PublishedAt = &t
		}
		if it.Image != nil && it.Image.URL != "" {
			item.ImageURL = it.Image.URL
		} else {
			for _, enc := range it.Enclosures {
				if strings.HasPrefix(enc.Type, "image/") {
					item.ImageURL = enc.URL
					break
				}
			}
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *Scraper) fetch(ctx context.Context, rawURL, accept string) ([]byte, *url.URL, error) {
	base, err := url.Parse(rawURL)
	if err != nil || base.Host == "" {
		return nil, nil, fmt.Errorf("invalid news source %q", rawURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", accept)

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("fetching %s returned %d", rawURL, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", rawURL, err)
	}
	return body, base, nil
}

// clean reduces markup to plain single-spaced text.
func (s *Scraper) clean(raw string) string {
	return strings.Join(strings.Fields(html.UnescapeString(s.text.Sanitize(raw))), " ")
}

func resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") || strings.HasPrefix(strings.ToLower(ref), "javascript:") {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(u)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	abs.Fragment = ""
	return abs.String()
}

func sourceName(u *url.URL) string {
	if u == nil {
		return ""
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

func parseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max])) + "…"
}
