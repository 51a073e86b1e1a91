package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/pricewatch/internal/config"
	ferrors "git.home.luguber.info/inful/pricewatch/internal/foundation/errors"
	"git.home.luguber.info/inful/pricewatch/internal/journal"
)

// JournalCmd implements the 'journal' command.
type JournalCmd struct {
	Session  string `help:"Only show attempts of this session"`
	Outcome  string `help:"Only show attempts with this outcome (committed, failed, discarded)"`
	Limit    int    `short:"n" help:"Maximum attempts to show" default:"50"`
	Sessions bool   `help:"Summarise sessions instead of listing attempts"`
}

func (j *JournalCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	if !cfg.Journal.Enabled {
		return ferrors.ConfigError("journal is disabled (set journal.enabled: true)").Build()
	}
	store, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	if j.Sessions {
		sessions, err := store.Sessions(ctx)
		if err != nil {
			return err
		}
		printSessions(os.Stdout, sessions)
		return nil
	}
	entries, err := store.List(ctx, journal.Query{SessionID: j.Session, Outcome: j.Outcome, Limit: j.Limit})
	if err != nil {
		return err
	}
	printEntries(os.Stdout, entries)
	return nil
}

func printEntries(w io.Writer, entries []journal.Entry) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer func() { _ = tw.Flush() }()

	_, _ = fmt.Fprintln(tw, "SESSION\tSEQ\tTRIGGER\tISSUED\tOUTCOME\tDURATION\tERROR")
	for _, e := range entries {
		outcome, duration := "in flight", "-"
		if e.Settled() {
			outcome, duration = e.Outcome, e.Duration.String()
		}
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			shortID(e.SessionID), e.Sequence, e.Trigger,
			e.IssuedAt.Format(time.RFC3339), outcome, duration, e.Error)
	}
}

func printSessions(w io.Writer, sessions []journal.Session) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	defer func() { _ = tw.Flush() }()

	_, _ = fmt.Fprintln(tw, "SESSION\tPRODUCT\tATTEMPTS\tCOMMITTED\tFAILED\tDISCARDED\tLAST SEEN")
	for _, s := range sessions {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			s.SessionID, s.ProductID, s.Attempts, s.Committed, s.Failed, s.Discarded,
			s.LastSeen.Format(time.RFC3339))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
