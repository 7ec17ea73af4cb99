package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	logger, err := New(Options{Stderr: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if logger == nil {
		t.Fatalf("expected logger instance")
	}
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("expected debug records to pass the core")
	}
	_ = logger.Sync()
}

func TestLeveledGatesByVerbosity(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := NewLeveled(zap.New(core), 3)

	log.V(2).Info("two")
	log.V(3).Info("three")
	log.V(4).Info("four")
	log.Logger().Error("always")

	if got := logs.Len(); got != 3 {
		t.Fatalf("expected 3 records, got %d", got)
	}
	if logs.FilterMessage("four").Len() != 0 {
		t.Fatalf("verbosity 4 record should have been dropped")
	}
	if !log.Enabled(3) || log.Enabled(4) {
		t.Fatalf("unexpected Enabled result for level 3")
	}
}

func TestLeveledNilSafe(t *testing.T) {
	var log *Leveled
	log.V(0).Info("dropped")
	log.Logger().Error("dropped")
	if log.Level() != 0 || log.Enabled(0) {
		t.Fatalf("nil Leveled should be disabled")
	}
}

func TestNewLeveledClampsNegative(t *testing.T) {
	log := NewLeveled(nil, -3)
	if log.Level() != 0 {
		t.Fatalf("expected level clamped to 0, got %d", log.Level())
	}
}
