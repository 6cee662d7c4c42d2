package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/usenexus/nexus/internal/profile"
	"github.com/usenexus/nexus/plugin/cache"
	"github.com/usenexus/nexus/server"
	"github.com/usenexus/nexus/server/ai"
	"github.com/usenexus/nexus/internal/observability"
	"github.com/usenexus/nexus/server/runner/embedding"
	"github.com/usenexus/nexus/server/service/aggregator"
	"github.com/usenexus/nexus/server/service/memory"
	"github.com/usenexus/nexus/server/sources"
	"github.com/usenexus/nexus/server/sources/karakeep"
	"github.com/usenexus/nexus/server/sources/miniflux"
	"github.com/usenexus/nexus/store"
	"github.com/usenexus/nexus/store/db"
)

const (
	greetingBanner = `nexus - one search surface for bookmarks, feeds, and memories`
)

var (
	version = "0.1.0"

	rootCmd = &cobra.Command{
		Use:   "nexus",
		Short: "An aggregation service unifying personal data sources",
		Run: func(_ *cobra.Command, _ []string) {
			instanceProfile := &profile.Profile{
				Mode:    viper.GetString("mode"),
				Addr:    viper.GetString("addr"),
				Port:    viper.GetInt("port"),
				Data:    viper.GetString("data"),
				Driver:  viper.GetString("driver"),
				DSN:     viper.GetString("dsn"),
				Version: version,
			}
			instanceProfile.FromEnv()
			if err := instanceProfile.Validate(); err != nil {
				fmt.Printf("invalid configuration: %+v\n", err)
				return
			}

			observability.SetupLogger(instanceProfile.IsDev())
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			dbDriver, err := db.NewDBDriver(instanceProfile)
			if err != nil {
				slog.Error("failed to create db driver", "error", err)
				return
			}
			storeInstance := store.New(dbDriver)

			embedderCache := cache.NewLRU(cache.DefaultConfig())
			defer embedderCache.Close()
			embedder := ai.NewCachedEmbedder(ai.NewOpenAIEmbedder(ai.Config{
				BaseURL:    instanceProfile.EmbeddingBaseURL,
				APIKey:     instanceProfile.EmbeddingAPIKey,
				Model:      instanceProfile.EmbeddingModel,
				Dimensions: instanceProfile.EmbeddingDimensions,
			}), embedderCache)

			memoryService := memory.NewService(storeInstance, embedder)

			var externalSources []sources.Source
			var karakeepClient *karakeep.Client
			var minifluxClient *miniflux.Client
			if instanceProfile.IsKarakeepEnabled() {
				karakeepClient = karakeep.NewClient(instanceProfile.KarakeepAPIKey, instanceProfile.KarakeepBaseURL)
				externalSources = append(externalSources, karakeepClient)
				slog.Info("karakeep source enabled", "base_url", instanceProfile.KarakeepBaseURL)
			}
			if instanceProfile.IsMinifluxEnabled() {
				minifluxClient = miniflux.NewClient(instanceProfile.MinifluxAPIKey, instanceProfile.MinifluxBaseURL)
				externalSources = append(externalSources, minifluxClient)
				slog.Info("miniflux source enabled", "base_url", instanceProfile.MinifluxBaseURL)
			}

			agg := aggregator.New(memoryService, externalSources...)

			s, err := server.NewServer(ctx, instanceProfile, storeInstance, agg, karakeepClient, minifluxClient)
			if err != nil {
				slog.Error("failed to create server", "error", err)
				return
			}

			embeddingRunner := embedding.NewRunner(memoryService)
			go embeddingRunner.Run(ctx)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			go func() {
				sig := <-sigCh
				slog.Info("received signal, shutting down", "signal", sig.String())
				s.Shutdown(ctx)
				cancel()
			}()

			fmt.Println(greetingBanner)
			if err := s.Start(ctx); err != nil {
				slog.Error("failed to start server", "error", err)
			}
		},
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("addr", "")
	viper.SetDefault("port", 8231)
	viper.SetDefault("data", "")
	viper.SetDefault("driver", "sqlite")

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 8231, "port of server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver")
	rootCmd.PersistentFlags().String("dsn", "", "database source name (aka. DSN)")

	if err := viper.BindPFlag("mode", rootCmd.PersistentFlags().Lookup("mode")); err != nil {
		panic(err)
	}
	if err := viper.BindPFlag("addr", rootCmd.PersistentFlags().Lookup("addr")); err != nil {
		panic(err)
	}
	if err := viper.BindPFlag("port", rootCmd.PersistentFlags().Lookup("port")); err != nil {
		panic(err)
	}
	if err := viper.BindPFlag("data", rootCmd.PersistentFlags().Lookup("data")); err != nil {
		panic(err)
	}
	if err := viper.BindPFlag("driver", rootCmd.PersistentFlags().Lookup("driver")); err != nil {
		panic(err)
	}
	if err := viper.BindPFlag("dsn", rootCmd.PersistentFlags().Lookup("dsn")); err != nil {
		panic(err)
	}

	viper.SetEnvPrefix("nexus")
	viper.AutomaticEnv()
}
