// Package v1 exposes the aggregation core over a thin JSON REST surface.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/usenexus/nexus/internal/profile"
	apperrors "github.com/usenexus/nexus/server/internal/errors"
	"github.com/usenexus/nexus/server/service/aggregator"
	"github.com/usenexus/nexus/server/sources/karakeep"
	"github.com/usenexus/nexus/server/sources/miniflux"
)

const (
	maxLimit = 100
)

// APIV1Service wires the aggregator and the direct source endpoints.
type APIV1Service struct {
	Profile    *profile.Profile
	Aggregator *aggregator.Aggregator

	// Karakeep and Miniflux are nil when the source is not configured;
	// their direct endpoints then return 404.
	Karakeep *karakeep.Client
	Miniflux *miniflux.Client
}

// NewAPIV1Service creates the API service.
func NewAPIV1Service(profile *profile.Profile, agg *aggregator.Aggregator, kk *karakeep.Client, mf *miniflux.Client) *APIV1Service {
	return &APIV1Service{
		Profile:    profile,
		Aggregator: agg,
		Karakeep:   kk,
		Miniflux:   mf,
	}
}

// Register attaches all routes to the echo instance.
func (s *APIV1Service) Register(e *echo.Echo) {
	e.GET("/", s.root)

	g := e.Group("/api/v1")
	g.POST("/search", s.search)
	g.GET("/recent", s.recent)
	g.GET("/recent/feed", s.recentFeed)
	g.GET("/bookmarks", s.bookmarks)
	g.GET("/unread", s.unread)
	g.PUT("/entries/read", s.markRead)
	g.POST("/remember", s.remember)
}

func (s *APIV1Service) root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"name":    "nexus",
		"version": s.Profile.Version,
	})
}

// httpError maps the error taxonomy onto HTTP status codes.
func httpError(err error) error {
	switch apperrors.CodeOf(err) {
	case apperrors.ErrCodeInvalidArgument:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case apperrors.ErrCodeNotConfigured:
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case apperrors.ErrCodeUpstreamUnavailable, apperrors.ErrCodeTimeout:
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

// parseLimit reads a limit query parameter with bounds applied.
func parseLimit(c echo.Context, fallback int) int {
	limit := fallback
	if raw := c.QueryParam("limit"); raw != "" {
		if parsed, err := parsePositiveInt(raw); err == nil {
			limit = parsed
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit
}

func parsePositiveInt(raw string) (int, error) {
	n := 0
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, apperrors.InvalidArgument("not a positive integer: %s", raw)
		}
		n = n*10 + int(r-'0')
		if n > 1<<30 {
			break
		}
	}
	if n <= 0 {
		return 0, apperrors.InvalidArgument("not a positive integer: %s", raw)
	}
	return n, nil
}
