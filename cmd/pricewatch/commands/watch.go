package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/pricewatch/internal/catalog"
	"git.home.luguber.info/inful/pricewatch/internal/config"
	"git.home.luguber.info/inful/pricewatch/internal/events"
	ferrors "git.home.luguber.info/inful/pricewatch/internal/foundation/errors"
	"git.home.luguber.info/inful/pricewatch/internal/journal"
	"git.home.luguber.info/inful/pricewatch/internal/logfields"
	"git.home.luguber.info/inful/pricewatch/internal/pricing"
	"git.home.luguber.info/inful/pricewatch/internal/quote"
	"git.home.luguber.info/inful/pricewatch/internal/statusapi"
	"git.home.luguber.info/inful/pricewatch/internal/watch"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Selection string `short:"s" help:"Configuration snapshot file to watch" default:"selection.yaml"`
	Product   string `short:"p" help:"Product id (defaults to the selection's product_id)"`
	Immediate bool   `help:"Issue an attempt per change instead of debouncing"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	logger := g.logger()

	initial, err := catalog.LoadSelection(w.Selection)
	if err != nil && !ferrors.HasCategory(err, ferrors.CategoryNotFound) {
		return err
	}
	cat, err := loadCatalog(root.Config, cfg)
	if err != nil {
		return err
	}
	product, err := resolveProduct(cat, w.Product, initial)
	if err != nil {
		return err
	}

	reg, rec := newMetrics(cfg.Metrics)
	calc, release, err := newCalculator(cfg.Pricing, rec, logger)
	if err != nil {
		return err
	}
	defer release()

	bus := events.NewBus()
	defer bus.Close()

	opts := coordinatorOptions(cfg.Coordinator)
	if w.Immediate {
		opts.Mode = quote.ModeImmediate
	}
	opts.Logger = logger
	opts.Recorder = rec
	opts.Bus = bus
	coord, err := quote.New(calc, product, opts)
	if err != nil {
		return err
	}
	defer func() { _ = coord.Close() }()

	session := &WatchSession{
		Coordinator:     coord,
		Bus:             bus,
		SelectionPath:   w.Selection,
		Initial:         initial,
		RefreshInterval: cfg.Coordinator.RefreshInterval.Std(),
		Out:             os.Stdout,
		Logger:          logger,
	}

	if cfg.Journal.Enabled {
		store, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		session.Journal = store
	}
	if cfg.Status.Listen != "" {
		session.Status = statusapi.NewServer(cfg.Status.Listen, coord, statusapi.Options{
			Registry: reg,
			Journal:  session.Journal,
			Logger:   logger,
		})
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return session.Run(ctx)
}

// WatchSession connects a coordinator to its inputs (selection file,
// refresh schedule, status API) and outputs (terminal, journal).
type WatchSession struct {
	Coordinator   *quote.Coordinator
	Bus           *events.Bus
	SelectionPath string
	// Initial is applied once before watching starts. nil starts idle.
	Initial         *pricing.Configuration
	RefreshInterval time.Duration
	// Status and Journal are optional.
	Status  *statusapi.Server
	Journal *journal.Store
	Out     io.Writer
	Logger  *slog.Logger
}

// Run blocks until ctx ends or a component fails. The coordinator is closed,
// draining its queued lifecycle events, before the printer and journal stop.
func (s *WatchSession) Run(ctx context.Context) error {
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	if s.Out == nil {
		s.Out = io.Discard
	}

	// The terminal only needs the latest states; the journal sees every event.
	states, unsubscribe := events.Subscribe[quote.StateChanged](s.Bus, 64, events.DropOldest())
	defer unsubscribe()

	var recorder *journal.Recorder
	if s.Journal != nil {
		recorder = journal.NewRecorder(s.Journal, s.Bus, s.Logger)
	}

	watcher, err := watch.NewSelectionWatcher(s.SelectionPath, s.apply, watch.WatcherOptions{Logger: s.Logger})
	if err != nil {
		return err
	}

	var refresher *watch.Refresher
	if s.RefreshInterval > 0 {
		refresher, err = watch.NewRefresher(s.Coordinator, s.RefreshInterval, s.Logger)
		if err != nil {
			return err
		}
	}

	runCtx, stopRun := context.WithCancel(context.Background())
	defer stopRun()
	group, gctx := errgroup.WithContext(runCtx)

	group.Go(func() error { return watcher.Run(gctx) })
	group.Go(func() error {
		s.printStates(gctx, states)
		return nil
	})
	if recorder != nil {
		group.Go(func() error { return recorder.Run(gctx) })
	}
	if s.Status != nil {
		group.Go(s.Status.Start)
		group.Go(func() error {
			<-gctx.Done()
			stopCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
			defer stop()
			return s.Status.Shutdown(stopCtx)
		})
	}

	if s.Initial != nil {
		s.apply(s.Initial)
	}
	if refresher != nil {
		refresher.Start()
	}
	s.Logger.Info("Watching for configuration changes",
		logfields.SessionID(s.Coordinator.SessionID()),
		logfields.ProductID(s.Coordinator.Product().ID),
		slog.String("mode", string(s.Coordinator.Mode())))

	select {
	case <-ctx.Done():
		s.Logger.Info("Shutdown signal received, stopping watch")
	case <-gctx.Done():
	}

	if refresher != nil {
		if err := refresher.Stop(); err != nil {
			s.Logger.Warn("Failed to stop refresh scheduler", logfields.Error(err))
		}
	}
	_ = s.Coordinator.Close()
	stopRun()
	err = group.Wait()
	if dropped := s.Bus.Dropped(); dropped > 0 {
		s.Logger.Debug("Skipped state lines for a slow terminal", slog.Uint64("dropped", dropped))
	}
	return err
}

func (s *WatchSession) apply(cfg *pricing.Configuration) {
	if cfg != nil && cfg.ProductID == "" {
		cfg.ProductID = s.Coordinator.Product().ID
	}
	if err := s.Coordinator.OnConfigurationChange(cfg); err != nil {
		s.Logger.Debug("Configuration change not applied", logfields.Error(err))
	}
}

func (s *WatchSession) printStates(ctx context.Context, states <-chan quote.StateChanged) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-states:
			if !ok {
				return
			}
			_, _ = fmt.Fprintln(s.Out, stateLine(evt.State))
		}
	}
}

func stateLine(st quote.State) string {
	line := fmt.Sprintf("#%d %-16s total=%s", st.Revision, st.Status, st.FormattedTotal)
	if st.IsLoading {
		line += " (updating)"
	}
	if st.Error != nil {
		line += " error=" + st.Error.Message
	}
	return line
}
