// Package config loads the process-wide settings from defaults, a
// declarative settings file (flat TOML or YAML), environment variables and
// CLI flags, with precedence: CLI flags > Environment variables > settings
// file > Defaults. Settings files are decoded into a fixed set of keys and
// never executed.
package config
