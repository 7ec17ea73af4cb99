package logging

import "go.uber.org/zap"

// MaxVerbosity is the most detailed level; it traces every parsed entry.
const MaxVerbosity = 4

var nop = zap.NewNop()

// Leveled gates records by a numeric verbosity between 0 (errors only) and
// MaxVerbosity. It is safe for concurrent use.
type Leveled struct {
	logger *zap.Logger
	level  int
}

// NewLeveled wraps logger with the given verbosity threshold.
func NewLeveled(logger *zap.Logger, level int) *Leveled {
	if logger == nil {
		logger = nop
	}
	if level < 0 {
		level = 0
	}
	return &Leveled{logger: logger, level: level}
}

// V returns the underlying logger when level is enabled and a no-op logger
// otherwise.
func (l *Leveled) V(level int) *zap.Logger {
	if !l.Enabled(level) {
		return nop
	}
	return l.logger
}

// Enabled reports whether records at level would be written.
func (l *Leveled) Enabled(level int) bool {
	return l != nil && level <= l.level
}

// Logger returns the unfiltered logger, used for warnings and errors.
func (l *Leveled) Logger() *zap.Logger {
	if l == nil {
		return nop
	}
	return l.logger
}

// Level returns the configured verbosity.
func (l *Leveled) Level() int {
	if l == nil {
		return 0
	}
	return l.level
}
