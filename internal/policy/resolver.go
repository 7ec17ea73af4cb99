package policy

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eugenenazirov/greypolicy/internal/address"
	"github.com/eugenenazirov/greypolicy/internal/config"
	"github.com/eugenenazirov/greypolicy/internal/logging"
	"github.com/eugenenazirov/greypolicy/internal/metrics"
	"github.com/eugenenazirov/greypolicy/internal/storage"
)

// Lookup dimensions that may be listed in OTHERCONFIGS.
const (
	DimensionSender        = "envelope_sender"
	DimensionRecipient     = "envelope_recipient"
	DimensionClientAddress = "client_address"
)

const (
	defaultFile      = "__default__"
	dimensionDefault = "default"
)

// Attributes are the message properties policy files are keyed on. Empty
// fields are treated as absent.
type Attributes struct {
	Sender        string `json:"sender"`
	Recipient     string `json:"recipient"`
	ClientAddress string `json:"clientAddress"`
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithSchema replaces the default schema, primarily for tests.
func WithSchema(schema Schema) Option {
	return func(r *Resolver) {
		r.schema = schema
	}
}

// WithMetrics records resolution metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// Resolver computes the effective policy of a message from the directory
// store. It holds no per-message state and is safe for concurrent use.
type Resolver struct {
	cfg     config.Config
	log     *logging.Leveled
	schema  Schema
	metrics *metrics.Metrics
}

// NewResolver creates a Resolver bound to the global settings.
func NewResolver(cfg config.Config, log *logging.Leveled, opts ...Option) *Resolver {
	r := &Resolver{
		cfg:    cfg,
		log:    log,
		schema: DefaultSchema(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve computes the policy of a message from the configured store.
func (r *Resolver) Resolve(attrs Attributes) (Settings, error) {
	return r.ResolveAt(r.cfg.ConfigPath, attrs)
}

// ResolveAt computes the policy of a message from the store at location.
//
// When location is not a file:/// URI no lookups happen: the static
// Defaults are returned together with an error wrapping
// storage.ErrUnsupportedScheme. A value of the wrong type in any policy file
// aborts the resolution with a *CoercionError and nil settings.
func (r *Resolver) ResolveAt(location string, attrs Attributes) (Settings, error) {
	start := time.Now()
	settings, err := r.resolve(location, attrs)

	outcome := metrics.OutcomeOK
	switch {
	case errors.Is(err, storage.ErrUnsupportedScheme):
		outcome = metrics.OutcomeFallback
	case err != nil:
		outcome = metrics.OutcomeError
	}
	r.metrics.ObserveResolution(outcome, time.Since(start))

	return settings, err
}

func (r *Resolver) resolve(location string, attrs Attributes) (Settings, error) {
	store, err := storage.Open(location)
	if err != nil {
		r.log.Logger().Error("unknown policy store location, using defaults",
			zap.String("location", location),
			zap.Error(err),
		)
		return Defaults(r.cfg), err
	}

	log := logging.NewLeveled(r.log.Logger().With(zap.String("store", location)), r.log.Level())
	log.V(3).Info("starting policy lookup")

	c := &cascade{
		resolver: r,
		log:      log,
		store:    store,
		attrs:    attrs,
		settings: Settings{},
	}

	if _, err := fs.Stat(store, defaultFile); errors.Is(err, fs.ErrNotExist) {
		log.Logger().Warn("no default policy file found, this is probably an install problem",
			zap.String("path", defaultFile),
		)
	} else if err := c.merge(defaultFile, dimensionDefault); err != nil {
		return nil, err
	}

	processed := make(map[string]struct{})
	for {
		names := c.settings.OtherConfigs()
		if len(names) == 0 {
			break
		}
		log.V(3).Info("loading policy dimensions", zap.Strings("dimensions", names))

		progressed := false
		for _, name := range names {
			if _, done := processed[name]; done {
				continue
			}
			processed[name] = struct{}{}
			progressed = true

			log.V(3).Info("trying policy dimension", zap.String("dimension", name))
			if err := c.dimension(name); err != nil {
				return nil, err
			}
		}
		if !progressed {
			break
		}
	}

	return c.settings, nil
}

// cascade is the state of one resolution.
type cascade struct {
	resolver *Resolver
	log      *logging.Leveled
	store    storage.Store
	attrs    Attributes
	settings Settings
}

func (c *cascade) dimension(name string) error {
	switch name {
	case DimensionSender:
		return c.address(name, c.attrs.Sender)
	case DimensionRecipient:
		return c.address(name, c.attrs.Recipient)
	case DimensionClientAddress:
		return c.clientAddress()
	default:
		c.log.Logger().Error("unknown policy dimension", zap.String("dimension", name))
		return nil
	}
}

// address merges <dimension>/<domain>/__default__ and then
// <dimension>/<domain>/<local>.
func (c *cascade) address(dimension, addr string) error {
	if addr == "" {
		c.log.V(2).Info("message has no address for dimension", zap.String("dimension", dimension))
		return nil
	}

	local, domain, ok := strings.Cut(addr, "@")
	if !ok {
		c.log.V(2).Info("address has no domain, skipping",
			zap.String("dimension", dimension),
			zap.String("address", addr),
		)
		return nil
	}

	quotedDomain := address.Quote(domain)
	domainDefault, ok := storage.Join(dimension, quotedDomain, defaultFile)
	if !ok {
		c.log.V(2).Info("address has an empty domain, skipping",
			zap.String("dimension", dimension),
			zap.String("address", addr),
		)
		return nil
	}
	if err := c.merge(domainDefault, dimension); err != nil {
		return err
	}

	localPath, ok := storage.Join(dimension, quotedDomain, address.Quote(local))
	if !ok {
		c.log.V(3).Info("address has an empty local part", zap.String("address", addr))
		return nil
	}
	return c.merge(localPath, dimension)
}

// clientAddress merges __default__ at client_address and below it for every
// octet of the client address, then the file named by the full address.
func (c *cascade) clientAddress() error {
	ip := c.attrs.ClientAddress
	if ip == "" {
		c.log.V(2).Info("message has no client address")
		return nil
	}

	segments := append([]string{DimensionClientAddress}, strings.Split(ip, ".")...)
	leaf, ok := storage.Join(segments...)
	if !ok {
		c.log.V(2).Info("client address cannot name a policy path, skipping", zap.String("client_address", ip))
		return nil
	}

	for depth := 1; depth <= len(segments); depth++ {
		name, _ := storage.Join(append(segments[:depth:depth], defaultFile)...)
		if err := c.merge(name, DimensionClientAddress); err != nil {
			return err
		}
	}
	return c.merge(leaf, DimensionClientAddress)
}

func (c *cascade) merge(name, dimension string) error {
	c.log.V(3).Info("trying policy file", zap.String("path", name))

	merged, loaded, err := readFile(c.store, name, c.settings, c.resolver.schema, c.log)
	if err != nil {
		return fmt.Errorf("resolve %s policy: %w", dimension, err)
	}
	c.settings = merged
	if loaded {
		c.resolver.metrics.FileLoaded(dimension)
	}
	return nil
}
