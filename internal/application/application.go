package application

import (
	"errors"
	"net/http"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/greypolicy/internal/api"
	"github.com/eugenenazirov/greypolicy/internal/config"
	"github.com/eugenenazirov/greypolicy/internal/logging"
	"github.com/eugenenazirov/greypolicy/internal/metrics"
	"github.com/eugenenazirov/greypolicy/internal/policy"
	"github.com/eugenenazirov/greypolicy/internal/storage"
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	resolver *policy.Resolver
	metrics  *metrics.Metrics
	handler  *api.Handler
	router   http.Handler
	logger   *zap.Logger
	server   *http.Server
}

// New initializes the application with all dependencies from the provided configuration.
func New(cfg config.Config, logger *zap.Logger) (*App, error) {
	checkStore(cfg.ConfigPath, logger)

	m := metrics.New()
	resolver := policy.NewResolver(cfg, logging.NewLeveled(logger, cfg.DebugLevel), policy.WithMetrics(m))
	handler := api.NewHandler(resolver)
	apiRouter := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		api.WithMetrics(m),
	)

	return &App{
		resolver: resolver,
		metrics:  m,
		handler:  handler,
		router:   apiRouter,
		logger:   logger,
		server:   NewServer(cfg, apiRouter),
	}, nil
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// Resolver returns the policy resolver used by the API.
func (a *App) Resolver() *policy.Resolver {
	return a.resolver
}

// checkStore reports store locations that will make every resolution fall
// back to defaults or find no files. Neither stops the service.
func checkStore(location string, logger *zap.Logger) {
	root, err := storage.Root(location)
	if err != nil {
		logger.Warn("policy store location is not supported, resolutions will use defaults",
			zap.String("location", location),
			zap.Error(err),
		)
		return
	}

	info, err := os.Stat(root)
	switch {
	case err != nil:
		logger.Warn("policy store directory is not accessible, this is probably an install problem",
			zap.String("path", root),
			zap.Error(err),
		)
	case !info.IsDir():
		logger.Warn("policy store path is not a directory", zap.String("path", root))
	}
}
