package cases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"courtwise/models"

	"github.com/microcosm-cc/bluemonday"
)

var ErrEmptyQuery = errors.New("search query is required")

// SearchClient proxies the external legal search API. The token stays on the server.
type SearchClient struct {
	endpoint string
	token    string
	http     *http.Client
	strip    *bluemonday.Policy
}

func NewSearchClient(endpoint, token string, client *http.Client) *SearchClient {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &SearchClient{
		endpoint: endpoint,
		token:    token,
		http:     client,
		strip:    bluemonday.StrictPolicy(),
	}
}

type searchResponse struct {
	Found string `json:"found"`
	Docs  []struct {
		TID       int64  `json:"tid"`
		Title     string `json:"title"`
		Headline  string `json:"headline"`
		DocSource string `json:"docsource"`
		DocSize   int    `json:"docsize"`
	} `json:"docs"`
	ErrMsg string `json:"errmsg"`
}

// Search runs query and returns one page (0 based) of hits.
func (c *SearchClient) Search(ctx context.Context, query string, page int) (*models.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if page < 0 {
		page = 0
	}

	form := url.Values{}
	form.Set("formInput", query)
	form.Set("pagenum", strconv.Itoa(page))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("legal search request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read legal search response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("legal search returned %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode legal search response: %w", err)
	}
	if parsed.ErrMsg != "" {
		return nil, fmt.Errorf("legal search error: %s", parsed.ErrMsg)
	}

	result := &models.SearchResult{Query: query, Page: page, Found: parsed.Found, Results: make([]models.SearchDoc, 0, len(parsed.Docs))}
	for _, d := range parsed.Docs {
		result.Results = append(result.Results, models.SearchDoc{
			DocID:    d.TID,
			Title:    c.clean(d.Title),
			Headline: c.clean(d.Headline),
			Source:   d.DocSource,
			Size:     d.DocSize,
		})
	}
	return result, nil
}

// clean drops the markup the API embeds in titles and headlines.
func (c *SearchClient) clean(s string) string {
	return strings.Join(strings.Fields(html.UnescapeString(c.strip.Sanitize(s))), " ")
}
