package config

import (
	"time"

	"git.home.luguber.info/inful/pricewatch/internal/pricing"
)

// Default values applied to omitted fields.
const (
	DefaultDelay         = 300 * time.Millisecond
	DefaultSubject       = "pricing.calculate"
	DefaultListen        = ":8090"
	DefaultPricingURL    = "http://localhost:8090"
	DefaultTimeout       = 5 * time.Second
	DefaultJournalPath   = "pricewatch.db"
	DefaultCatalogPath   = "catalog.yaml"
	DefaultServiceLocale = "en-US"
)

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config)
	Domain() string
}

type coordinatorDefaults struct{}

func (coordinatorDefaults) Domain() string { return "coordinator" }

func (coordinatorDefaults) ApplyDefaults(cfg *Config) {
	c := &cfg.Coordinator
	if c.Mode == "" {
		c.Mode = ModeDebounced
	}
	if c.Delay == 0 {
		c.Delay = Duration(DefaultDelay)
	}
	if c.EmptyTotal == "" {
		c.EmptyTotal = pricing.EmptyTotal
	}
}

type pricingDefaults struct{}

func (pricingDefaults) Domain() string { return "pricing" }

func (pricingDefaults) ApplyDefaults(cfg *Config) {
	p := &cfg.Pricing
	if p.Transport == "" {
		p.Transport = TransportHTTP
	}
	if p.URL == "" {
		p.URL = DefaultPricingURL
	}
	if p.Subject == "" {
		p.Subject = DefaultSubject
	}
	if p.Timeout == 0 {
		p.Timeout = Duration(DefaultTimeout)
	}
	if p.Retry.Mode == "" {
		p.Retry.Mode = RetryBackoffExponential
	}
	if p.Retry.Initial == 0 {
		p.Retry.Initial = Duration(100 * time.Millisecond)
	}
	if p.Retry.Max == 0 {
		p.Retry.Max = Duration(2 * time.Second)
	}
}

type serverDefaults struct{}

func (serverDefaults) Domain() string { return "server" }

func (serverDefaults) ApplyDefaults(cfg *Config) {
	s := &cfg.Server
	if s.Listen == "" {
		s.Listen = DefaultListen
	}
	if s.Subject == "" {
		s.Subject = DefaultSubject
	}
	if s.Locale == "" {
		s.Locale = DefaultServiceLocale
	}
}

type storageDefaults struct{}

func (storageDefaults) Domain() string { return "storage" }

func (storageDefaults) ApplyDefaults(cfg *Config) {
	if cfg.Journal.Path == "" {
		cfg.Journal.Path = DefaultJournalPath
	}
	if cfg.Catalog.Path == "" {
		cfg.Catalog.Path = DefaultCatalogPath
	}
}

// appliers run in order; later domains may rely on earlier ones.
var appliers = []DefaultApplier{
	coordinatorDefaults{},
	pricingDefaults{},
	serverDefaults{},
	storageDefaults{},
}

// ApplyDefaults fills omitted fields of cfg.
func ApplyDefaults(cfg *Config) {
	for _, a := range appliers {
		a.ApplyDefaults(cfg)
	}
}
