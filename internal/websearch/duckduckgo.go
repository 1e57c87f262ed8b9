package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Result is one web hit with enough text to feed a prompt.
type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// DuckDuckGoClient queries the DuckDuckGo instant answer API. No API
// key is needed, which keeps the default deployment self-contained.
type DuckDuckGoClient struct {
	baseURL    string
	maxResults int
	httpClient *http.Client
}

func NewDuckDuckGoClient(baseURL string, timeout time.Duration, maxResults int) *DuckDuckGoClient {
	if maxResults <= 0 {
		maxResults = 3
	}
	return &DuckDuckGoClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxResults: maxResults,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type ddgTopic struct {
	Text     string     `json:"Text"`
	FirstURL string     `json:"FirstURL"`
	Topics   []ddgTopic `json:"Topics"`
}

type ddgResponse struct {
	Heading       string     `json:"Heading"`
	AbstractText  string     `json:"AbstractText"`
	AbstractURL   string     `json:"AbstractURL"`
	Results       []ddgTopic `json:"Results"`
	RelatedTopics []ddgTopic `json:"RelatedTopics"`
}

// Search returns up to maxResults hits for the query. An empty result
// slice with nil error means the engine had nothing, which callers
// treat the same as a degraded source.
func (c *DuckDuckGoClient) Search(ctx context.Context, query string) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search query is empty")
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("no_html", "1")
	params.Set("no_redirect", "1")
	params.Set("skip_disambig", "1")

	reqURL := c.baseURL + "/?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build search request failed: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read search response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("search response status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed ddgResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse search json failed: %w", err)
	}
	return c.collect(parsed), nil
}

func (c *DuckDuckGoClient) collect(resp ddgResponse) []Result {
	var results []Result

	if resp.AbstractText != "" {
		results = append(results, Result{
			Title:   resp.Heading,
			Snippet: resp.AbstractText,
			URL:     resp.AbstractURL,
		})
	}
	results = appendTopics(results, resp.Results, c.maxResults)
	results = appendTopics(results, resp.RelatedTopics, c.maxResults)

	if len(results) > c.maxResults {
		results = results[:c.maxResults]
	}
	return results
}

// appendTopics flattens nested topic groups depth-first until limit.
func appendTopics(results []Result, topics []ddgTopic, limit int) []Result {
	for _, t := range topics {
		if len(results) >= limit {
			break
		}
		if len(t.Topics) > 0 {
			results = appendTopics(results, t.Topics, limit)
			continue
		}
		if t.Text == "" {
			continue
		}
		results = append(results, Result{
			Title:   topicTitle(t.Text),
			Snippet: t.Text,
			URL:     t.FirstURL,
		})
	}
	return results
}

// topicTitle takes the leading clause of a topic text as its title.
// The instant answer API folds title and description into one string
// separated by " - ".
func topicTitle(text string) string {
	if idx := strings.Index(text, " - "); idx > 0 {
		return text[:idx]
	}
	return text
}
