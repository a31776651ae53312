package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/justestif/go-weather-mood/internal/cache"
	"github.com/justestif/go-weather-mood/internal/catalog"
	"github.com/justestif/go-weather-mood/internal/config"
	"github.com/justestif/go-weather-mood/internal/explain"
	"github.com/justestif/go-weather-mood/internal/learning"
	"github.com/justestif/go-weather-mood/internal/logging"
	"github.com/justestif/go-weather-mood/internal/purge"
	"github.com/justestif/go-weather-mood/internal/recommend"
	"github.com/justestif/go-weather-mood/internal/supervisor"
	"github.com/justestif/go-weather-mood/internal/weather"
	"github.com/justestif/go-weather-mood/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, cfg *config.Config) error {
	store, err := openStorage(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer store.close()

	cacheOpts := []cache.Option{cache.WithTTL(cfg.Redis.TTL)}
	learningOpts := []learning.Option{learning.WithLogger(logging.Component("learning"))}
	catalogOpts := []catalog.Option{catalog.WithLogger(logging.Component("catalog"))}

	rdb := connectRedis(ctx, cfg.Redis.URL)
	if rdb != nil {
		defer rdb.Close()
		learningOpts = append(learningOpts, learning.WithCache(cache.NewBiasCache(rdb, cacheOpts...)))
		catalogOpts = append(catalogOpts, catalog.WithCache(cache.NewCatalogCache(rdb, cacheOpts...)))
	}

	if cfg.Spotify.Enabled() {
		api := catalog.NewSpotifyAPI(ctx, cfg.Spotify.ClientID, cfg.Spotify.ClientSecret, cfg.Spotify.Timeout)
		catalogOpts = append(catalogOpts, catalog.WithPrimary(catalog.NewSpotify(api,
			catalog.WithGenres(cfg.Spotify.Genres),
			catalog.WithEnrichConcurrency(cfg.Spotify.EnrichConcurrency),
			catalog.WithSpotifyLogger(logging.Component("spotify")),
		)))
	} else {
		logging.Warn().Msg("spotify credentials not set, using the built-in catalog")
	}

	static, err := catalog.NewStatic()
	if err != nil {
		return fmt.Errorf("building static catalog: %w", err)
	}
	tracks := catalog.NewService(static, catalogOpts...)

	feedback := learning.NewStore(store.repo, learningOpts...)

	weatherClient := weather.NewClient(cfg.Weather.APIKey,
		weather.WithBaseURL(cfg.Weather.BaseURL),
		weather.WithTimeout(cfg.Weather.Timeout),
		weather.WithLogger(logging.Component("weather")),
	)
	explainer := explain.NewClient(cfg.Explain.APIKey,
		explain.WithBaseURL(cfg.Explain.BaseURL),
		explain.WithModel(cfg.Explain.Model),
		explain.WithTimeout(cfg.Explain.Timeout),
		explain.WithLogger(logging.Component("explain")),
	)

	recOpts := []recommend.Option{recommend.WithLogger(logging.Component("recommend"))}
	if store.searches != nil {
		recOpts = append(recOpts, recommend.WithSearchLog(store.searches))
	}
	recommender := recommend.New(weatherClient, tracks, explainer, feedback, recOpts...)

	purger := purge.New(feedback, cfg.Learning.RetentionDays,
		purge.WithInterval(cfg.Learning.PurgeInterval),
		purge.WithLogger(logging.Component("purge")),
	)

	handlers := web.NewHandlers(recommender, feedback, explainer, web.Components{
		Storage: store.driver,
		Cache:   rdb != nil,
		Weather: cfg.Weather.APIKey != "",
		Spotify: tracks.HasPrimary(),
		AI:      explainer.Configured(),
	}, web.WithPurger(purger))
	server := web.NewServer(web.ServerConfig{
		Addr:            ":" + strconv.Itoa(cfg.Server.Port),
		FeedbackRate:    cfg.Server.FeedbackRate,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, handlers)

	tree := supervisor.NewTree(logging.Component("supervisor"), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddBackground(purger)
	tree.AddAPI(server)

	logging.Info().
		Str("storage", store.driver).
		Bool("cache", rdb != nil).
		Bool("spotify", tracks.HasPrimary()).
		Bool("ai", explainer.Configured()).
		Msg("weather-mood starting")

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("running services: %w", err)
	}
	return nil
}
