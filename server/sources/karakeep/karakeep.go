// Package karakeep implements the bookmark source against the Karakeep
// REST API.
package karakeep

import (
	"context"
	"encoding/json"
	"fmt"
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

// Client talks to a Karakeep instance.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewClient creates a Karakeep client.
func NewClient(apiKey, baseURL string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: requestTimeout},
	}
}

func (c *Client) Kind() store.SourceType {
	return store.SourceBookmark
}

type bookmarkTag struct {
	Name string `json:"name"`
}

type bookmark struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	URL         string        `json:"url"`
	Content     string        `json:"content"`
	Description string        `json:"description"`
	Tags        []bookmarkTag `json:"tags"`
	CreatedAt   string        `json:"createdAt"`
	ArchiveURL  string        `json:"archiveUrl"`
	Archived    bool          `json:"archived"`
	Favourited  bool          `json:"favourited"`
	FaviconURL  string        `json:"faviconUrl"`
}

type bookmarksResponse struct {
	Bookmarks []bookmark `json:"bookmarks"`
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) (*bookmarksResponse, error) {
	reqURL := fmt.Sprintf("%s/api/v1%s?%s", c.baseURL, endpoint, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "karakeep request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("karakeep returned status %d", resp.StatusCode)
	}

	payload := &bookmarksResponse{}
	if err := json.NewDecoder(resp.Body).Decode(payload); err != nil {
		return nil, errors.Wrap(err, "failed to decode karakeep response")
	}
	return payload, nil
}

// normalize converts a Karakeep bookmark into the shared item shape.
func normalize(bm *bookmark) *store.Item {
	tags := make([]string, 0, len(bm.Tags))
	for _, t := range bm.Tags {
		tags = append(tags, t.Name)
	}

	content := bm.Content
	if content == "" {
		content = bm.Description
	}

	item := &store.Item{
		ID:      "bk_" + bm.ID,
		Source:  store.SourceBookmark,
		Title:   bm.Title,
		URL:     bm.URL,
		Content: content,
		Summary: bm.Description,
		Tags:    tags,
		Metadata: map[string]any{
			"archive_url": bm.ArchiveURL,
			"archived":    bm.Archived,
			"favourited":  bm.Favourited,
			"favicon_url": bm.FaviconURL,
		},
	}
	if bm.CreatedAt != "" {
		if ts, err := time.Parse(time.RFC3339, bm.CreatedAt); err == nil {
			item.CreatedAt = &ts
		}
	}
	return item
}

// GetRecent returns the most recent bookmarks.
func (c *Client) GetRecent(ctx context.Context, limit int) ([]*store.Item, error) {
	params := url.Values{"limit": {strconv.Itoa(limit)}}
	resp, err := c.get(ctx, "/bookmarks", params)
	if err != nil {
		return nil, err
	}

	items := make([]*store.Item, 0, len(resp.Bookmarks))
	for i := range resp.Bookmarks {
		items = append(items, normalize(&resp.Bookmarks[i]))
	}
	return items, nil
}

// GetByTag returns bookmarks carrying the given tag.
func (c *Client) GetByTag(ctx context.Context, tag string, limit int) ([]*store.Item, error) {
	params := url.Values{
		"limit": {strconv.Itoa(limit)},
		"tag":   {tag},
	}
	resp, err := c.get(ctx, "/bookmarks", params)
	if err != nil {
		return nil, err
	}

	items := make([]*store.Item, 0, len(resp.Bookmarks))
	for i := range resp.Bookmarks {
		items = append(items, normalize(&resp.Bookmarks[i]))
	}
	return items, nil
}

// SearchByText runs Karakeep's own text search. The upstream returns
// bookmarks ranked by its relevance, mapped here to rank-derived scores.
func (c *Client) SearchByText(ctx context.Context, query string, limit int) ([]sources.ScoredItem, error) {
	params := url.Values{
		"limit": {strconv.Itoa(limit)},
		"q":     {query},
	}
	resp, err := c.get(ctx, "/bookmarks", params)
	if err != nil {
		return nil, err
	}

	results := make([]sources.ScoredItem, 0, len(resp.Bookmarks))
	for i := range resp.Bookmarks {
		results = append(results, sources.ScoredItem{
			Item:  normalize(&resp.Bookmarks[i]),
			Score: sources.RankScore(i),
		})
	}
	return results, nil
}
