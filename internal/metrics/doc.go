// Package metrics defines the Prometheus collectors for policy resolution
// and the HTTP API.
package metrics
