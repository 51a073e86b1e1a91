package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/pricewatch/internal/catalog"
	"git.home.luguber.info/inful/pricewatch/internal/config"
	ferrors "git.home.luguber.info/inful/pricewatch/internal/foundation/errors"
	"git.home.luguber.info/inful/pricewatch/internal/metrics"
	"git.home.luguber.info/inful/pricewatch/internal/pricing"
	"git.home.luguber.info/inful/pricewatch/internal/quote"
)

// QuoteCmd implements the 'quote' command.
type QuoteCmd struct {
	Selection string        `short:"s" help:"Configuration snapshot file" default:"selection.yaml"`
	Product   string        `short:"p" help:"Product id (defaults to the selection's product_id)"`
	Timeout   time.Duration `help:"Give up waiting for the price after this long" default:"30s"`
	JSON      bool          `help:"Print the settled state as JSON"`
}

func (q *QuoteCmd) Run(g *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	logger := g.logger()

	sel, err := catalog.LoadSelection(q.Selection)
	if err != nil {
		return err
	}
	if sel == nil {
		return ferrors.ValidationError("selection is empty").WithContext("path", q.Selection).Build()
	}
	cat, err := loadCatalog(root.Config, cfg)
	if err != nil {
		return err
	}
	product, err := resolveProduct(cat, q.Product, sel)
	if err != nil {
		return err
	}

	calc, release, err := newCalculator(cfg.Pricing, metrics.NoopRecorder{}, logger)
	if err != nil {
		return err
	}
	defer release()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if q.Timeout > 0 {
		var stop context.CancelFunc
		ctx, stop = context.WithTimeout(ctx, q.Timeout)
		defer stop()
	}

	st, err := RunQuote(ctx, calc, product, *sel, cfg.Coordinator, logger)
	if err != nil {
		return err
	}
	if q.JSON {
		return printStateJSON(os.Stdout, st)
	}
	printState(os.Stdout, st)
	return nil
}

// RunQuote prices one snapshot with an immediate coordinator and returns
// the settled state. An authoritative failure is returned as the error.
func RunQuote(ctx context.Context, calc pricing.Calculator, product pricing.Product, sel pricing.Configuration, cc config.CoordinatorConfig, logger *slog.Logger) (quote.State, error) {
	opts := coordinatorOptions(cc)
	opts.Mode = quote.ModeImmediate
	opts.Logger = logger

	coord, err := quote.New(calc, product, opts)
	if err != nil {
		return quote.State{}, err
	}
	defer func() { _ = coord.Close() }()

	if err := coord.OnConfigurationChange(&sel); err != nil {
		return quote.State{}, err
	}
	st, err := coord.Wait(ctx, func(s quote.State) bool { return s.Status.Settled() })
	if err != nil {
		return st, ferrors.WrapError(err, ferrors.CategoryRuntime, "gave up waiting for the price").
			WithContext("status", string(st.Status)).
			Build()
	}
	if st.Error != nil {
		return st, st.Error
	}
	return st, nil
}

func printState(w io.Writer, st quote.State) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer func() { _ = tw.Flush() }()

	if st.Result != nil {
		for _, line := range st.Result.Lines {
			_, _ = fmt.Fprintf(tw, "%s\t%d\n", line.Label, line.Amount)
		}
		for _, adj := range st.Result.Adjustments {
			_, _ = fmt.Fprintf(tw, "%s\t%d\n", adj.Label, adj.Amount)
		}
		_, _ = fmt.Fprintf(tw, "Currency\t%s\n", st.Result.Currency)
	}
	_, _ = fmt.Fprintf(tw, "Total\t%s\n", st.FormattedTotal)
}

func printStateJSON(w io.Writer, st quote.State) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(st)
}
