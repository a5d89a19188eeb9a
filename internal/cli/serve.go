package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/gasket/pkg/api"
	"github.com/matzehuels/gasket/pkg/cache"
	"github.com/matzehuels/gasket/pkg/config"
	"github.com/matzehuels/gasket/pkg/observability"
	"github.com/matzehuels/gasket/pkg/pipeline"
	"github.com/matzehuels/gasket/pkg/store"
	"github.com/matzehuels/gasket/pkg/store/mongo"
	"github.com/matzehuels/gasket/pkg/store/sqlite"
)

// serveCommand creates the serve command, which runs the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		configPath  string
		addr        string
		printConfig bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket API",
		Long: `Run the gasket API server.

Settings come from the TOML file given by --config, then from GASKET_*
environment variables (GASKET_ADDR, GASKET_DATABASE_URL, GASKET_MONGO_URI,
GASKET_REDIS_ADDR, GASKET_ALLOWED_ORIGINS, GASKET_MAX_DEPTH_LIMIT,
GASKET_METRICS_ADDR).`,
		Example: `  gasket serve --config gasket.toml
  GASKET_REDIS_ADDR=localhost:6379 gasket serve --addr :9000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			if printConfig {
				return cfg.Write(cmd.OutOrStdout())
			}
			return serve(cmd.Context(), cfg, loggerFromContext(cmd.Context()), nil)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a TOML config file")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides the config)")
	cmd.Flags().BoolVar(&printConfig, "print-config", false, "print the effective config and exit")

	return cmd
}

// =============================================================================
// Server Lifecycle
// =============================================================================

// serve runs the API until ctx is cancelled. ready, when non-nil, receives
// the bound API address once the listener is open.
func serve(ctx context.Context, cfg *config.Config, logger *log.Logger, ready chan<- string) error {
	runner, reg, err := buildRunner(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer runner.Close()
	defer observability.Reset()

	opts := api.Options{
		Logger:         logger,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		DepthLimit:     cfg.Generation.MaxDepthLimit,
		Tolerance:      cfg.Generation.Tolerance,
		RequestTimeout: cfg.Server.RequestTimeout,
	}
	if reg != nil && cfg.Metrics.Addr == "" {
		opts.Gatherer = reg
	}

	servers := []*http.Server{{
		Addr:              cfg.Server.Addr,
		Handler:           api.New(runner, opts),
		ReadHeaderTimeout: 10 * time.Second,
	}}
	if reg != nil && cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		servers = append(servers, &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		})
	}

	listeners := make([]net.Listener, 0, len(servers))
	for _, srv := range servers {
		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			for _, open := range listeners {
				open.Close()
			}
			return fmt.Errorf("listen %s: %w", srv.Addr, err)
		}
		listeners = append(listeners, ln)
	}
	if ready != nil {
		ready <- listeners[0].Addr().String()
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, srv := range servers {
		ln := listeners[i]
		logger.Info("listening", "addr", ln.Addr().String(), "metrics_only", i > 0)
		g.Go(func() error {
			if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		var errs []error
		for _, srv := range servers {
			errs = append(errs, srv.Shutdown(shutdownCtx))
		}
		return stderrors.Join(errs...)
	})

	return g.Wait()
}

// buildRunner opens the configured store and cache and, when metrics are
// enabled, installs Prometheus hooks on a fresh registry.
func buildRunner(ctx context.Context, cfg *config.Config, logger *log.Logger) (*pipeline.Runner, *prometheus.Registry, error) {
	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, nil, err
	}
	c, err := openCache(ctx, cfg.Cache)
	if err != nil {
		if st != nil {
			st.Close()
		}
		return nil, nil, err
	}

	var keyer cache.Keyer = cache.NewDefaultKeyer()
	if cfg.Cache.Prefix != "" {
		keyer = cache.NewScopedKeyer(keyer, cfg.Cache.Prefix)
	}

	var reg *prometheus.Registry
	if cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		p := observability.NewPrometheus(reg)
		observability.SetGenerationHooks(p)
		observability.SetCacheHooks(p)
		observability.SetAPIHooks(p)
	}

	logger.Info("backends ready", "store", cfg.Store.Driver, "cache", cfg.Cache.Backend, "metrics", cfg.Metrics.Enabled)
	return pipeline.NewRunner(c, keyer, st, logger), reg, nil
}

func openStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case config.StoreSQLite:
		return sqlite.Open(cfg.Path)
	case config.StoreMongo:
		return mongo.Open(ctx, mongo.Config{URI: cfg.MongoURI, Database: cfg.MongoDatabase, Timeout: cfg.Timeout})
	case config.StoreNone:
		return nil, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

func openCache(ctx context.Context, cfg config.CacheConfig) (cache.Cache, error) {
	switch cfg.Backend {
	case config.CacheRedis:
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	case config.CacheMemory:
		return cache.NewMemoryCache(), nil
	case config.CacheFile:
		return cache.NewFileCache(cfg.Dir)
	case config.CacheNone:
		return cache.NewNullCache(), nil
	}
	return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
}
