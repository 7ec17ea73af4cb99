// Package logging builds the zap logger used across the service and the
// verbosity gate that mirrors the numeric debug levels of the policy
// configuration.
package logging
