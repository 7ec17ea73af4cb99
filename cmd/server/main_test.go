package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/greypolicy/internal/config"
)

func TestParseFlagsDefaults(t *testing.T) {
	overrides, err := parseFlags(nil)
	if err != nil {
		t.Fatalf("parseFlags returned error: %v", err)
	}

	if overrides.ConfigFile != config.DefaultConfigFile {
		t.Fatalf("expected default settings file, got %s", overrides.ConfigFile)
	}
	if overrides.Port != nil || overrides.ConfigPath != nil || overrides.DebugLevel != nil ||
		overrides.RateLimitRPS != nil || overrides.RateLimitBurst != nil || overrides.LogSyslog != nil {
		t.Fatalf("expected no overrides, got %+v", overrides)
	}
}

func TestParseFlagsOverrides(t *testing.T) {
	overrides, err := parseFlags([]string{
		"--config", "/etc/greypolicy.yaml",
		"--port", "9000",
		"--config-path", "file:///srv/policy",
		"--debug-level", "0",
		"--rate-limit-rps", "0",
		"--syslog",
	})
	if err != nil {
		t.Fatalf("parseFlags returned error: %v", err)
	}

	if overrides.ConfigFile != "/etc/greypolicy.yaml" {
		t.Fatalf("unexpected settings file %s", overrides.ConfigFile)
	}
	if overrides.Port == nil || *overrides.Port != "9000" {
		t.Fatalf("expected port override")
	}
	if overrides.ConfigPath == nil || *overrides.ConfigPath != "file:///srv/policy" {
		t.Fatalf("expected config path override")
	}
	if overrides.DebugLevel == nil || *overrides.DebugLevel != 0 {
		t.Fatalf("expected explicit debug level 0 to be kept")
	}
	if overrides.RateLimitRPS == nil || *overrides.RateLimitRPS != 0 {
		t.Fatalf("expected rate limit override")
	}
	if overrides.RateLimitBurst != nil {
		t.Fatalf("expected burst to stay unset")
	}
	if overrides.LogSyslog == nil || !*overrides.LogSyslog {
		t.Fatalf("expected syslog override")
	}
}

func TestParseFlagsRejectsUnknownFlag(t *testing.T) {
	if _, err := parseFlags([]string{"--no-such-flag"}); err == nil {
		t.Fatalf("expected error for unknown flag")
	}
}

func TestShutdownOnTerminate(t *testing.T) {
	t.Cleanup(func() {
		signalNotify = signal.Notify
	})

	var registered []os.Signal
	signalNotify = func(ch chan<- os.Signal, sig ...os.Signal) {
		registered = sig
		go func() {
			ch <- syscall.SIGTERM
		}()
	}

	server := &http.Server{}
	stopped := make(chan struct{}, 1)
	server.RegisterOnShutdown(func() {
		stopped <- struct{}{}
	})

	shutdown(server, time.Millisecond, zaptest.NewLogger(t))

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatalf("expected the server to be shut down")
	}
	if len(registered) == 0 {
		t.Fatalf("expected termination signals to be registered")
	}
}
