package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"bricksync/api"
	"bricksync/internal/config"
	"bricksync/internal/connectivity"
	"bricksync/internal/loader"
	"bricksync/internal/logging"
	"bricksync/internal/metrics"
	"bricksync/internal/mutation"
	"bricksync/internal/remote"
	"bricksync/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	debug := flag.Bool("debug", false, "enable development logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	logger, err := logging.New(*debug)
	if err != nil {
		panic(fmt.Errorf("error creating logger: %v", err))
	}
	defer logger.Sync()

	ctx := context.Background()
	store, closer, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to open storage", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	defer closer.Close()

	prefs := storage.NewPreferences(store)
	book := storage.NewLogbook(store, cfg.Logs.MaxEntries)

	var loaderOpts []loader.Option
	var mutationOpts []mutation.Option
	if cfg.Logs.Mode == config.LogsLocal {
		logger = logging.WithLogbook(logger, book)
		loaderOpts = append(loaderOpts, loader.WithLocalLogs(book))
		mutationOpts = append(mutationOpts, mutation.WithLocalLogs(book))
	}

	m := metrics.New()
	loaderOpts = append(loaderOpts, loader.WithMetrics(m))
	mutationOpts = append(mutationOpts, mutation.WithMetrics(m))

	state := connectivity.NewState(initialBaseURL(ctx, cfg, prefs, logger), deviceType(ctx, prefs, logger))
	client := remote.NewClient(cfg.Request.Timeout, logger)
	defer client.Close()

	prober := connectivity.NewHTTPProber(client, cfg.Probe.Timeout, m, logger)
	resolver := connectivity.NewResolver(state, prober, prefs, connectivity.Endpoints{
		Default:  cfg.API.DefaultURL,
		Loopback: cfg.API.LoopbackURL,
	}, logger)
	l := loader.New(resolver, client, storage.NewSnapshotStore(store), logger, loaderOpts...)
	mutations := mutation.New(resolver, client, l, logger, mutationOpts...)

	r := gin.Default()
	api.InitRoutes(r, api.Dependencies{
		Loader:         l,
		Mutations:      mutations,
		Resolver:       resolver,
		Preferences:    prefs,
		Screen:         api.NewScreen(),
		Metrics:        m,
		Logger:         logger,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	logger.Info("starting gateway",
		zap.Int("port", cfg.Server.Port),
		zap.String("base_url", state.BaseURL()),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("logs", cfg.Logs.Mode),
	)
	if err := r.Run(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil {
		panic(fmt.Errorf("error trying to start server: %v", err))
	}
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, io.Closer, error) {
	switch cfg.Storage.Driver {
	case config.DriverRedis:
		client, err := storage.OpenRedis(ctx, cfg.Storage.RedisAddr, cfg.Storage.RedisPassword, cfg.Storage.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		s := storage.NewRedisStorage(client, cfg.Storage.Prefix)
		return s, s, nil
	case config.DriverMemory:
		return storage.NewLocalStorage(), io.NopCloser(nil), nil
	default:
		s, err := storage.OpenSQLite(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	}
}

// initialBaseURL prefers an explicit configuration, then the last persisted
// URL, then the default.
func initialBaseURL(ctx context.Context, cfg *config.Config, prefs *storage.Preferences, logger *zap.Logger) string {
	if cfg.API.BaseURL != "" {
		return cfg.API.BaseURL
	}
	saved, err := prefs.BaseURL(ctx)
	if err != nil {
		logger.Warn("read saved base url", zap.Error(err))
	}
	if saved != "" {
		return saved
	}
	return cfg.InitialBaseURL()
}

func deviceType(ctx context.Context, prefs *storage.Preferences, logger *zap.Logger) string {
	t, err := prefs.DeviceType(ctx)
	if err != nil {
		logger.Warn("read device type", zap.Error(err))
	}
	return t
}
