package commands

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"git.home.luguber.info/inful/pricewatch/internal/catalog"
	"git.home.luguber.info/inful/pricewatch/internal/config"
	ferrors "git.home.luguber.info/inful/pricewatch/internal/foundation/errors"
	"git.home.luguber.info/inful/pricewatch/internal/metrics"
	"git.home.luguber.info/inful/pricewatch/internal/pricing"
)

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags - used by commands that need access to root config.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"pricewatch.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Init    InitCmd    `cmd:"" help:"Write an example configuration, catalog and selection"`
	Serve   ServeCmd   `cmd:"" help:"Run the reference pricing service (HTTP and optional NATS)"`
	Quote   QuoteCmd   `cmd:"" help:"Price one configuration snapshot and print the total"`
	Watch   WatchCmd   `cmd:"" help:"Keep a price up to date while a selection file changes"`
	Journal JournalCmd `cmd:"" help:"Show recorded pricing attempts"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

func (g *Global) logger() *slog.Logger {
	if g == nil || g.Logger == nil {
		return slog.Default()
	}
	return g.Logger
}

// newMetrics returns a registry and recorder when metrics are enabled, or a
// nil registry and a no-op recorder otherwise.
func newMetrics(cfg config.MetricsConfig) (*prometheus.Registry, metrics.Recorder) {
	if !cfg.Enabled {
		return nil, metrics.NoopRecorder{}
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, metrics.NewPrometheusRecorder(reg)
}

// resolveProduct picks the product to price: the explicit id wins, then the
// selection's product_id. The selection is updated to name the product.
func resolveProduct(cat *catalog.Catalog, productID string, sel *pricing.Configuration) (pricing.Product, error) {
	if productID == "" && sel != nil {
		productID = sel.ProductID
	}
	if productID == "" {
		return pricing.Product{}, ferrors.ValidationError("no product selected (set product_id in the selection or pass --product)").
			WithContext("products", cat.IDs()).
			Build()
	}
	product, err := cat.Product(productID)
	if err != nil {
		return pricing.Product{}, err
	}
	if sel != nil {
		sel.ProductID = product.ID
	}
	return product, nil
}

// loadCatalog reads the configured catalog. Relative paths are resolved
// against the configuration file's directory.
func loadCatalog(configPath string, cfg *config.Config) (*catalog.Catalog, error) {
	path := cfg.Catalog.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(filepath.Dir(configPath), path)
	}
	return catalog.Load(path)
}
