package commands

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/pricewatch/internal/config"
	ferrors "git.home.luguber.info/inful/pricewatch/internal/foundation/errors"
	"git.home.luguber.info/inful/pricewatch/internal/logfields"
	"git.home.luguber.info/inful/pricewatch/internal/pricing/natscalc"
	"git.home.luguber.info/inful/pricewatch/internal/pricingsvc"
)

const shutdownTimeout = 30 * time.Second

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Listen string `short:"l" help:"Override server.listen"`
}

func (s *ServeCmd) Run(g *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	if s.Listen != "" {
		cfg.Server.Listen = s.Listen
	}
	logger := g.logger()

	cat, err := loadCatalog(root.Config, cfg)
	if err != nil {
		return err
	}
	reg, rec := newMetrics(cfg.Metrics)

	engine, err := pricingsvc.NewEngine(cfg.Server.Locale)
	if err != nil {
		return err
	}
	svc, err := pricingsvc.NewService(engine, pricingsvc.Options{
		Catalog:   cat,
		JitterMin: cfg.Server.JitterMin.Std(),
		JitterMax: cfg.Server.JitterMax.Std(),
		Recorder:  rec,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ln, err := net.Listen("tcp", cfg.Server.Listen)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryNetwork, "failed to listen").
			WithContext("listen", cfg.Server.Listen).
			Build()
	}
	return RunServe(ctx, svc, ln, cfg.Server, reg, logger)
}

// RunServe serves svc on ln, and on NATS when configured, until ctx ends.
// A nil reg disables /metrics.
func RunServe(ctx context.Context, svc *pricingsvc.Service, ln net.Listener, cfg config.ServerConfig, reg *prometheus.Registry, logger *slog.Logger) error {
	var responder *pricingsvc.Responder
	if cfg.NATSURL != "" {
		conn, err := natscalc.Connect(cfg.NATSURL)
		if err != nil {
			_ = ln.Close()
			return err
		}
		defer conn.Close()
		responder = pricingsvc.NewResponder(svc, conn, cfg.Subject)
		logger.Info("NATS responder enabled", logfields.URL(cfg.NATSURL), logfields.Subject(cfg.Subject))
	}

	srv := &http.Server{
		Handler:           pricingsvc.NewRouter(svc, reg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("Pricing service listening", slog.String("listen", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return ferrors.WrapError(err, ferrors.CategoryNetwork, "pricing service stopped").Build()
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down pricing service")
		stopCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stop()
		return srv.Shutdown(stopCtx)
	})
	if responder != nil {
		group.Go(func() error { return responder.Run(gctx) })
	}

	return group.Wait()
}
