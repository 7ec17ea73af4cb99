package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects where log records are written. With neither destination
// enabled records go to stderr.
type Options struct {
	Stderr    bool
	Syslog    bool
	SyslogTag string
}

// New creates a production-ready structured logger configured for JSON output.
// Verbosity filtering happens in Leveled, so the logger itself accepts debug
// records.
func New(opts Options) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.StacktraceKey = "stacktrace"
	cfg.DisableStacktrace = false
	cfg.Sampling = nil

	var buildOpts []zap.Option
	if opts.Syslog {
		if !opts.Stderr {
			cfg.OutputPaths = nil
		}
		tag := opts.SyslogTag
		if tag == "" {
			tag = "greypolicy"
		}
		writer, err := newSyslogWriter(tag)
		if err != nil {
			return nil, fmt.Errorf("open syslog: %w", err)
		}
		syslogCore := zapcore.NewCore(
			zapcore.NewJSONEncoder(cfg.EncoderConfig),
			zapcore.AddSync(writer),
			cfg.Level,
		)
		buildOpts = append(buildOpts, zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, syslogCore)
		}))
	}

	logger, err := cfg.Build(buildOpts...)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
