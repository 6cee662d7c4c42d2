// Package server hosts the HTTP surface of the aggregation service.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/usenexus/nexus/internal/profile"
	"github.com/usenexus/nexus/server/middleware"
	apiv1 "github.com/usenexus/nexus/server/router/api/v1"
	"github.com/usenexus/nexus/server/service/aggregator"
	"github.com/usenexus/nexus/server/sources/karakeep"
	"github.com/usenexus/nexus/server/sources/miniflux"
	"github.com/usenexus/nexus/store"
)

// Server owns the echo instance and its dependencies.
type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
}

// NewServer assembles the HTTP server around an already constructed
// aggregator and its optional source clients.
func NewServer(_ context.Context, profile *profile.Profile, store *store.Store, agg *aggregator.Aggregator, kk *karakeep.Client, mf *miniflux.Client) (*Server, error) {
	e := echo.New()
	e.Debug = profile.IsDev()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowCredentials: false,
	}))
	e.Use(echomiddleware.TimeoutWithConfig(echomiddleware.TimeoutConfig{
		Timeout: 30 * time.Second,
	}))
	e.Use(middleware.NewRateLimiter().Middleware())

	s := &Server{
		Profile:    profile,
		Store:      store,
		echoServer: e,
	}

	apiV1Service := apiv1.NewAPIV1Service(profile, agg, kk, mf)
	apiV1Service.Register(e)

	return s, nil
}

// Start begins serving and blocks until the listener fails or is shut
// down.
func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	slog.Info("server listening", "address", address, "version", s.Profile.Version)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.echoServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to shut down server gracefully", "error", err)
		}
	}()

	if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "failed to start server")
	}
	return nil
}

// Shutdown closes the listener and the backing store.
func (s *Server) Shutdown(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shut down server", "error", err)
	}
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close store", "error", err)
	}
	slog.Info("server shut down")
}
