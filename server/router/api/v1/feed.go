package v1

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/feeds"
	"github.com/labstack/echo/v4"
)

const maxFeedItems = 50

// recentFeed renders the merged recent timeline as an RSS feed so feed
// readers can subscribe to the aggregate.
func (s *APIV1Service) recentFeed(c echo.Context) error {
	limit := parseLimit(c, maxFeedItems)
	if limit > maxFeedItems {
		limit = maxFeedItems
	}

	items, err := s.Aggregator.GetRecent(c.Request().Context(), limit)
	if err != nil {
		return httpError(err)
	}

	baseURL := fmt.Sprintf("%s://%s", c.Scheme(), c.Request().Host)
	feed := &feeds.Feed{
		Title:       "Nexus",
		Link:        &feeds.Link{Href: baseURL},
		Description: "Recent items across bookmarks, feeds, and memories",
		Created:     time.Now(),
	}
	for _, item := range items {
		link := item.URL
		if link == "" {
			link = fmt.Sprintf("%s/api/v1/recent#%s", baseURL, item.ID)
		}
		feedItem := &feeds.Item{
			Id:          item.ID,
			Title:       item.Title,
			Link:        &feeds.Link{Href: link},
			Description: item.Summary,
			Created:     item.CreatedAtOrZero(),
		}
		if feedItem.Title == "" {
			feedItem.Title = item.ID
		}
		feed.Items = append(feed.Items, feedItem)
	}

	rss, err := feed.ToRss()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to render feed").SetInternal(err)
	}
	return c.Blob(http.StatusOK, "application/rss+xml", []byte(rss))
}
