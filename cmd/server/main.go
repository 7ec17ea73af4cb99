package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/greypolicy/internal/application"
	"github.com/eugenenazirov/greypolicy/internal/config"
	"github.com/eugenenazirov/greypolicy/internal/logging"
)

var signalNotify = signal.Notify

func main() {
	overrides, err := parseFlags(os.Args[1:])
	kingpin.FatalIfError(err, "invalid command line")

	cfg, err := config.Load(overrides)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger, err := logging.New(logging.Options{
		Stderr:    cfg.LogStderr,
		Syslog:    cfg.LogSyslog,
		SyslogTag: "greypolicy",
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	app, err := application.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}

	if err := app.Start(); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	shutdown(app.Server(), cfg.ShutdownGracePeriod, logger)
}

// parseFlags turns command-line arguments into configuration overrides.
func parseFlags(args []string) (*config.CLIOverrides, error) {
	kingpinApp := kingpin.New("greypolicy-server", "Greylisting policy lookup service - resolves per-message policy settings over HTTP")
	configFile := kingpinApp.Flag("config", "Path to the settings file (TOML or YAML)").Default(config.DefaultConfigFile).String()
	port := kingpinApp.Flag("port", "HTTP port exposed by the service").String()
	configPath := kingpinApp.Flag("config-path", "Policy store location (file:///absolute/dir)").String()
	debugLevel := kingpinApp.Flag("debug-level", "Diagnostic verbosity from 0 to 4").Default("-1").Int()
	rateLimitRPSFlag := kingpinApp.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	rateLimitBurstFlag := kingpinApp.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()
	syslogFlag := kingpinApp.Flag("syslog", "Also write logs to the mail syslog facility").Bool()

	if _, err := kingpinApp.Parse(args); err != nil {
		return nil, err
	}

	overrides := &config.CLIOverrides{
		ConfigFile: *configFile,
	}

	if *port != "" {
		overrides.Port = port
	}

	if *configPath != "" {
		overrides.ConfigPath = configPath
	}

	if *debugLevel >= 0 {
		overrides.DebugLevel = debugLevel
	}

	if *rateLimitRPSFlag >= 0 {
		overrides.RateLimitRPS = rateLimitRPSFlag
	}

	if *rateLimitBurstFlag >= 0 {
		overrides.RateLimitBurst = rateLimitBurstFlag
	}

	if *syslogFlag {
		overrides.LogSyslog = syslogFlag
	}

	return overrides, nil
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
