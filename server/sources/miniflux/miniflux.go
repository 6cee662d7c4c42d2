// Package miniflux implements the feed source against the Miniflux REST
// API.
package miniflux

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/usenexus/nexus/server/sources"
	"github.com/usenexus/nexus/store"
)

const requestTimeout = 30 * time.Second

// Client talks to a Miniflux instance.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewClient creates a Miniflux client.
func NewClient(apiKey, baseURL string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: requestTimeout},
	}
}

func (c *Client) Kind() store.SourceType {
	return store.SourceFeed
}

type category struct {
	Title string `json:"title"`
}

type feed struct {
	Title    string    `json:"title"`
	Category *category `json:"category"`
}

type entry struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Content     string `json:"content"`
	Author      string `json:"author"`
	PublishedAt string `json:"published_at"`
	Status      string `json:"status"`
	Starred     bool   `json:"starred"`
	Feed        *feed  `json:"feed"`
}

type entriesResponse struct {
	Entries []entry `json:"entries"`
}

func (c *Client) do(ctx context.Context, method, endpoint string, params url.Values, body any) ([]byte, error) {
	reqURL := fmt.Sprintf("%s/v1%s", c.baseURL, endpoint)
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal request body")
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("X-Auth-Token", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "miniflux request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, errors.Errorf("miniflux returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) getEntries(ctx context.Context, params url.Values) ([]entry, error) {
	buf, err := c.do(ctx, http.MethodGet, "/entries", params, nil)
	if err != nil {
		return nil, err
	}
	payload := &entriesResponse{}
	if err := json.Unmarshal(buf, payload); err != nil {
		return nil, errors.Wrap(err, "failed to decode miniflux response")
	}
	return payload.Entries, nil
}

// normalize converts a Miniflux entry into the shared item shape.
func normalize(e *entry) *store.Item {
	var feedTitle, categoryTitle string
	if e.Feed != nil {
		feedTitle = e.Feed.Title
		if e.Feed.Category != nil {
			categoryTitle = e.Feed.Category.Title
		}
	}

	summary := e.Author
	if summary == "" {
		summary = feedTitle
	}

	var tags []string
	if categoryTitle != "" {
		tags = []string{categoryTitle}
	}

	item := &store.Item{
		ID:      fmt.Sprintf("feed_%d", e.ID),
		Source:  store.SourceFeed,
		Title:   e.Title,
		URL:     e.URL,
		Content: e.Content,
		Summary: summary,
		Tags:    tags,
		Metadata: map[string]any{
			"entry_id":   e.ID,
			"status":     e.Status,
			"starred":    e.Starred,
			"feed_title": feedTitle,
			"author":     e.Author,
		},
	}
	if e.PublishedAt != "" {
		if ts, err := time.Parse(time.RFC3339, e.PublishedAt); err == nil {
			item.CreatedAt = &ts
		}
	}
	return item
}

func normalizeAll(entries []entry) []*store.Item {
	items := make([]*store.Item, 0, len(entries))
	for i := range entries {
		items = append(items, normalize(&entries[i]))
	}
	return items
}

// GetRecent returns the most recent entries.
func (c *Client) GetRecent(ctx context.Context, limit int) ([]*store.Item, error) {
	entries, err := c.getEntries(ctx, url.Values{
		"limit":     {strconv.Itoa(limit)},
		"order":     {"published_at"},
		"direction": {"desc"},
	})
	if err != nil {
		return nil, err
	}
	return normalizeAll(entries), nil
}

// GetUnread returns unread entries.
func (c *Client) GetUnread(ctx context.Context, limit int) ([]*store.Item, error) {
	entries, err := c.getEntries(ctx, url.Values{
		"limit":  {strconv.Itoa(limit)},
		"status": {"unread"},
	})
	if err != nil {
		return nil, err
	}
	return normalizeAll(entries), nil
}

// SearchByText runs Miniflux's own text search with rank-derived scores.
func (c *Client) SearchByText(ctx context.Context, query string, limit int) ([]sources.ScoredItem, error) {
	entries, err := c.getEntries(ctx, url.Values{
		"limit":  {strconv.Itoa(limit)},
		"search": {query},
	})
	if err != nil {
		return nil, err
	}

	results := make([]sources.ScoredItem, 0, len(entries))
	for i := range entries {
		results = append(results, sources.ScoredItem{
			Item:  normalize(&entries[i]),
			Score: sources.RankScore(i),
		})
	}
	return results, nil
}

// MarkRead marks the given entries as read.
func (c *Client) MarkRead(ctx context.Context, entryIDs []int64) error {
	_, err := c.do(ctx, http.MethodPut, "/entries", nil, map[string]any{
		"entry_ids": entryIDs,
		"status":    "read",
	})
	return err
}
