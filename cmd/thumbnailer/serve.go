package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"desktop-thumbnailer/internal/handlers"
	"desktop-thumbnailer/internal/logging"
	"desktop-thumbnailer/internal/memory"
	"desktop-thumbnailer/internal/metrics"
	"desktop-thumbnailer/internal/middleware"
	"desktop-thumbnailer/internal/settings"
	"desktop-thumbnailer/internal/startup"
)

const (
	readTimeout     = 15 * time.Second
	writeTimeout    = 2 * time.Minute
	idleTimeout     = 60 * time.Second
	shutdownTimeout = 30 * time.Second
)

func newServeCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the thumbnail HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), opts.cfg)
		},
	}
	cmd.Flags().StringVar(&opts.listen, "listen", "", "Interface address to listen on (default 127.0.0.1)")
	return cmd
}

func serve(parent context.Context, cfg *startup.Config) error {
	startTime := time.Now()

	startup.LogConfig(cfg)
	memory.Configure(cfg.MemoryLimit, cfg.MemoryRatio)
	if err := startup.PrepareCacheDir(cfg); err != nil {
		return err
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	c, err := setup(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	startup.LogCodecs(c.factory.Codecs().Names(), c.vips)
	startup.LogScripts(c.factory.Scripts().Snapshot())

	if cfg.MetricsEnabled {
		metrics.SetAppInfo(startup.Version, startup.Commit, startup.GoVersion)
		metrics.InitializeMetrics()
	}

	monitor := memory.NewMonitor(memory.DefaultMonitorConfig())
	monitor.Start()
	defer monitor.Stop()

	h := handlers.New(c.factory, monitor)
	router := setupRouter(h, cfg)
	startup.LogHTTPRoutes(router, cfg.LogHealthChecks)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		c.factory.Run(gctx)
		return nil
	})

	if cfg.ThumbnailersFile != "" && cfg.WatchThumbnailers {
		watcher := settings.NewWatcher(c.store, cfg.ThumbnailersFile)
		g.Go(func() error { return watcher.Run(gctx) })
	}

	var collector *metrics.Collector
	if cfg.MetricsEnabled {
		collector = metrics.NewCollector(cacheStatsAdapter{paths: c.factory.Paths()}, cfg.MetricsInterval)
		collector.Start()
	}

	g.Go(func() error {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			startup.LogShutdownInitiated(sig.String())
		case <-gctx.Done():
			startup.LogShutdownInitiated("context cancellation")
		}

		if collector != nil {
			collector.Stop()
			startup.LogShutdownStepComplete("Metrics collector stopped")
		}

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Warn("Server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("HTTP server stopped")
		}

		cancel()
		return nil
	})

	startup.LogServerStarted(cfg.Addr(), cfg.MetricsEnabled, time.Since(startTime))

	err = g.Wait()
	startup.LogShutdownComplete()
	return err
}

func setupRouter(h *handlers.Handlers, cfg *startup.Config) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet)
	if cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/thumbnail", h.GetThumbnail).Methods(http.MethodGet)
	api.HandleFunc("/thumbnail/status", h.GetStatus).Methods(http.MethodGet)
	api.HandleFunc("/scripts", h.ListScripts).Methods(http.MethodGet)
	api.HandleFunc("/scripts/reload", h.ReloadScripts).Methods(http.MethodPost)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = cfg.LogHealthChecks
	r.Use(middleware.Logger(loggingConfig))
	if cfg.MetricsEnabled {
		r.Use(middleware.Metrics(middleware.DefaultMetricsConfig()))
	}
	return r
}
