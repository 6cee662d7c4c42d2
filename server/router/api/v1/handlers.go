package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/usenexus/nexus/plugin/filter"
	apperrors "github.com/usenexus/nexus/server/internal/errors"
	"github.com/usenexus/nexus/server/service/aggregator"
	"github.com/usenexus/nexus/server/service/memory"
	"github.com/usenexus/nexus/store"
)

func (s *APIV1Service) search(c echo.Context) error {
	query := &aggregator.Query{}
	if err := c.Bind(query); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body").SetInternal(err)
	}
	for _, src := range query.Sources {
		if !src.Valid() {
			return httpError(apperrors.InvalidArgument("unknown source: %s", src))
		}
	}

	results, err := s.Aggregator.Search(c.Request().Context(), query)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"results": results,
		"count":   len(results),
	})
}

func (s *APIV1Service) recent(c echo.Context) error {
	limit := parseLimit(c, 20)

	var itemFilter *filter.Filter
	if expr := c.QueryParam("filter"); expr != "" {
		compiled, err := filter.Compile(expr)
		if err != nil {
			return httpError(apperrors.InvalidArgument("invalid filter: %v", err))
		}
		itemFilter = compiled
	}

	items, err := s.Aggregator.GetRecent(c.Request().Context(), limit)
	if err != nil {
		return httpError(err)
	}
	if itemFilter != nil {
		items = itemFilter.Apply(items)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"items": items,
		"count": len(items),
	})
}

func (s *APIV1Service) bookmarks(c echo.Context) error {
	if s.Karakeep == nil {
		return httpError(apperrors.NotConfigured(string(store.SourceBookmark)))
	}
	limit := parseLimit(c, 20)

	var items []*store.Item
	var err error
	if tag := c.QueryParam("tag"); tag != "" {
		items, err = s.Karakeep.GetByTag(c.Request().Context(), tag, limit)
	} else {
		items, err = s.Karakeep.GetRecent(c.Request().Context(), limit)
	}
	if err != nil {
		return httpError(apperrors.UpstreamUnavailable(string(store.SourceBookmark), err))
	}
	return c.JSON(http.StatusOK, map[string]any{
		"items": items,
		"count": len(items),
	})
}

func (s *APIV1Service) unread(c echo.Context) error {
	if s.Miniflux == nil {
		return httpError(apperrors.NotConfigured(string(store.SourceFeed)))
	}
	limit := parseLimit(c, 20)

	items, err := s.Miniflux.GetUnread(c.Request().Context(), limit)
	if err != nil {
		return httpError(apperrors.UpstreamUnavailable(string(store.SourceFeed), err))
	}
	return c.JSON(http.StatusOK, map[string]any{
		"items": items,
		"count": len(items),
	})
}

type markReadRequest struct {
	EntryIDs []int64 `json:"entryIds"`
}

func (s *APIV1Service) markRead(c echo.Context) error {
	if s.Miniflux == nil {
		return httpError(apperrors.NotConfigured(string(store.SourceFeed)))
	}
	req := &markReadRequest{}
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body").SetInternal(err)
	}
	if len(req.EntryIDs) == 0 {
		return httpError(apperrors.InvalidArgument("entryIds is empty"))
	}

	if err := s.Miniflux.MarkRead(c.Request().Context(), req.EntryIDs); err != nil {
		return httpError(apperrors.UpstreamUnavailable(string(store.SourceFeed), err))
	}
	return c.JSON(http.StatusOK, map[string]any{
		"marked": len(req.EntryIDs),
	})
}

func (s *APIV1Service) remember(c echo.Context) error {
	entry := &memory.Entry{}
	if err := c.Bind(entry); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body").SetInternal(err)
	}

	item, err := s.Aggregator.Remember(c.Request().Context(), entry)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, item)
}
