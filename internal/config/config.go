package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the settings file read when none is given on the command line.
const DefaultConfigFile = "/var/local/lib/tumgreyspf/config/tumgreyspf.conf"

const (
	defaultPort           = "8080"
	defaultAllowTime      = 600
	defaultConfigPath     = "file:///var/local/lib/tumgreyspf/config"
	defaultGreylistDir    = "/var/local/lib/tumgreyspf/data"
	defaultBlackholeDir   = "/var/local/lib/tumgreyspf/blackhole"
	defaultSPFQueryPath   = "/usr/local/lib/tumgreyspf/spfquery"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
)

var (
	// ErrInvalidConfig wraps every failure to load or validate the settings.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config holds the process-wide settings. It is built once at startup and
// only read afterwards.
type Config struct {
	DebugLevel       int    `toml:"debugLevel" validate:"gte=0,lte=4"`
	DefaultSeedOnly  int    `toml:"defaultSeedOnly" validate:"oneof=0 1"`
	DefaultAllowTime int    `toml:"defaultAllowTime" validate:"gte=0"`
	ConfigPath       string `toml:"configPath" validate:"required"`
	GreylistDir      string `toml:"greylistDir" validate:"required"`
	BlackholeDir     string `toml:"blackholeDir" validate:"required"`
	SPFQueryPath     string `toml:"spfqueryPath" validate:"required"`
	IgnoreLastByte   int    `toml:"ignoreLastByte" validate:"oneof=0 1"`

	Port                 string        `toml:"port" validate:"required"`
	ShutdownGracePeriod  time.Duration `toml:"shutdownGracePeriod" validate:"gte=0"`
	ReadHeaderTimeout    time.Duration `toml:"readHeaderTimeout" validate:"gte=0"`
	WriteTimeout         time.Duration `toml:"writeTimeout" validate:"gte=0"`
	IdleTimeout          time.Duration `toml:"idleTimeout" validate:"gte=0"`
	EnableRequestLogging bool          `toml:"enableRequestLogging"`
	RateLimitRPS         float64       `toml:"rateLimitRPS" validate:"gte=0"`
	RateLimitBurst       int           `toml:"rateLimitBurst" validate:"gte=0"`
	LogStderr            bool          `toml:"logStderr"`
	LogSyslog            bool          `toml:"logSyslog"`
}

// fileConfig is the settings file layout. Pointers tell unset keys apart
// from explicit zero values.
type fileConfig struct {
	DebugLevel       *int    `toml:"debugLevel" yaml:"debugLevel"`
	DefaultSeedOnly  *int    `toml:"defaultSeedOnly" yaml:"defaultSeedOnly"`
	DefaultAllowTime *int    `toml:"defaultAllowTime" yaml:"defaultAllowTime"`
	ConfigPath       *string `toml:"configPath" yaml:"configPath"`
	GreylistDir      *string `toml:"greylistDir" yaml:"greylistDir"`
	BlackholeDir     *string `toml:"blackholeDir" yaml:"blackholeDir"`
	SPFQueryPath     *string `toml:"spfqueryPath" yaml:"spfqueryPath"`
	IgnoreLastByte   *int    `toml:"ignoreLastByte" yaml:"ignoreLastByte"`

	Port                 *string  `toml:"port" yaml:"port"`
	ShutdownGracePeriod  *string  `toml:"shutdownGracePeriod" yaml:"shutdownGracePeriod"`
	ReadHeaderTimeout    *string  `toml:"readHeaderTimeout" yaml:"readHeaderTimeout"`
	WriteTimeout         *string  `toml:"writeTimeout" yaml:"writeTimeout"`
	IdleTimeout          *string  `toml:"idleTimeout" yaml:"idleTimeout"`
	EnableRequestLogging *bool    `toml:"enableRequestLogging" yaml:"enableRequestLogging"`
	RateLimitRPS         *float64 `toml:"rateLimitRPS" yaml:"rateLimitRPS"`
	RateLimitBurst       *int     `toml:"rateLimitBurst" yaml:"rateLimitBurst"`
	LogStderr            *bool    `toml:"logStderr" yaml:"logStderr"`
	LogSyslog            *bool    `toml:"logSyslog" yaml:"logSyslog"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile     string
	Port           *string
	ConfigPath     *string
	DebugLevel     *int
	RateLimitRPS   *float64
	RateLimitBurst *int
	LogSyslog      *bool
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > Environment variables > settings file > Defaults.
// Every failure wraps ErrInvalidConfig; callers are expected to abort.
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := Defaults()

	if overrides != nil && overrides.ConfigFile != "" {
		fileCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("%w: load %q: %w", ErrInvalidConfig, overrides.ConfigFile, err)
		}
		if err := applyFileConfig(&cfg, fileCfg); err != nil {
			return Config{}, fmt.Errorf("%w: %q: %w", ErrInvalidConfig, overrides.ConfigFile, err)
		}
	}

	if err := applyEnvConfig(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: environment: %w", ErrInvalidConfig, err)
	}

	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return cfg, nil
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		DebugLevel:           0,
		DefaultSeedOnly:      0,
		DefaultAllowTime:     defaultAllowTime,
		ConfigPath:           defaultConfigPath,
		GreylistDir:          defaultGreylistDir,
		BlackholeDir:         defaultBlackholeDir,
		SPFQueryPath:         defaultSPFQueryPath,
		IgnoreLastByte:       0,
		Port:                 defaultPort,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
		LogStderr:            true,
		LogSyslog:            false,
	}
}

// loadFromFile decodes the settings file. YAML files are recognised by
// extension; everything else is read as flat TOML, which also accepts the
// historical "name = literal" settings files. A missing file yields an
// empty layer.
func loadFromFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &fileConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&fileCfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse YAML: %w", err)
		}
	default:
		dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
		if err := dec.Decode(&fileCfg); err != nil {
			var derr *toml.DecodeError
			if errors.As(err, &derr) {
				row, col := derr.Position()
				return nil, fmt.Errorf("parse settings at line %d, column %d: %w", row, col, err)
			}
			return nil, fmt.Errorf("parse settings: %w", err)
		}
	}

	return &fileCfg, nil
}

// applyFileConfig applies the settings file layer to the Config struct.
func applyFileConfig(cfg *Config, fileCfg *fileConfig) error {
	setInt(&cfg.DebugLevel, fileCfg.DebugLevel)
	setInt(&cfg.DefaultSeedOnly, fileCfg.DefaultSeedOnly)
	setInt(&cfg.DefaultAllowTime, fileCfg.DefaultAllowTime)
	setString(&cfg.ConfigPath, fileCfg.ConfigPath)
	setString(&cfg.GreylistDir, fileCfg.GreylistDir)
	setString(&cfg.BlackholeDir, fileCfg.BlackholeDir)
	setString(&cfg.SPFQueryPath, fileCfg.SPFQueryPath)
	setInt(&cfg.IgnoreLastByte, fileCfg.IgnoreLastByte)

	setString(&cfg.Port, fileCfg.Port)
	if fileCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *fileCfg.EnableRequestLogging
	}
	if fileCfg.RateLimitRPS != nil {
		cfg.RateLimitRPS = *fileCfg.RateLimitRPS
	}
	setInt(&cfg.RateLimitBurst, fileCfg.RateLimitBurst)
	if fileCfg.LogStderr != nil {
		cfg.LogStderr = *fileCfg.LogStderr
	}
	if fileCfg.LogSyslog != nil {
		cfg.LogSyslog = *fileCfg.LogSyslog
	}

	durations := []struct {
		name  string
		raw   *string
		value *time.Duration
	}{
		{"shutdownGracePeriod", fileCfg.ShutdownGracePeriod, &cfg.ShutdownGracePeriod},
		{"readHeaderTimeout", fileCfg.ReadHeaderTimeout, &cfg.ReadHeaderTimeout},
		{"writeTimeout", fileCfg.WriteTimeout, &cfg.WriteTimeout},
		{"idleTimeout", fileCfg.IdleTimeout, &cfg.IdleTimeout},
	}
	for _, d := range durations {
		if d.raw == nil {
			continue
		}
		parsed, err := time.ParseDuration(*d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.value = parsed
	}

	return nil
}

// applyEnvConfig applies environment variable configuration.
func applyEnvConfig(cfg *Config) error {
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		cfg.Port = port
	}

	if location := strings.TrimSpace(os.Getenv("GREYPOLICY_CONFIG_PATH")); location != "" {
		cfg.ConfigPath = location
	}

	if level := strings.TrimSpace(os.Getenv("GREYPOLICY_DEBUG_LEVEL")); level != "" {
		value, err := strconv.Atoi(level)
		if err != nil {
			return fmt.Errorf("GREYPOLICY_DEBUG_LEVEL: invalid integer %q", level)
		}
		cfg.DebugLevel = value
	}

	if rps := strings.TrimSpace(os.Getenv("RATE_LIMIT_RPS")); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.RateLimitRPS = value
		}
	}

	if burst := strings.TrimSpace(os.Getenv("RATE_LIMIT_BURST")); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.RateLimitBurst = value
		}
	}

	return nil
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	if overrides.Port != nil && *overrides.Port != "" {
		cfg.Port = *overrides.Port
	}

	if overrides.ConfigPath != nil && *overrides.ConfigPath != "" {
		cfg.ConfigPath = *overrides.ConfigPath
	}

	if overrides.DebugLevel != nil && *overrides.DebugLevel >= 0 {
		cfg.DebugLevel = *overrides.DebugLevel
	}

	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}

	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}

	if overrides.LogSyslog != nil {
		cfg.LogSyslog = *overrides.LogSyslog
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
