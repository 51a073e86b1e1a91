package errors

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// CLIErrorAdapter handles error presentation and exit code determination for the CLI.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
	out     io.Writer
}

// NewCLIErrorAdapter creates a new CLI error adapter.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{verbose: verbose, logger: logger, out: os.Stderr}
}

// ExitCodeFor determines the appropriate exit code for an error.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	classified, ok := AsClassified(err)
	if !ok {
		return 1
	}
	switch classified.Category() {
	case CategoryValidation:
		return 2 // Invalid usage
	case CategoryNotFound:
		return 4
	case CategoryConfig:
		return 7
	case CategoryNetwork:
		return 8 // Pricing service unreachable
	case CategoryPricing:
		return 9 // Pricing service rejected the request
	case CategoryInternal:
		return 10
	case CategoryJournal, CategoryFileSystem:
		return 11
	case CategoryRuntime:
		return 12
	default:
		return 1
	}
}

// FormatError formats an error for user-friendly display.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	classified, ok := AsClassified(err)
	if !ok {
		return fmt.Sprintf("Error: %v", err)
	}
	if a.verbose {
		return classified.Error()
	}
	if classified.Category() == CategoryInternal {
		return "Internal error occurred (use -v for details)"
	}
	return fmt.Sprintf("Error: %s", classified.Message())
}

// HandleError logs and prints err, then exits the process with the mapped code.
func (a *CLIErrorAdapter) HandleError(err error) {
	if err == nil {
		return
	}
	if a.shouldLog(err) {
		a.logError(err)
	}
	_, _ = fmt.Fprintln(a.out, a.FormatError(err))
	os.Exit(a.ExitCodeFor(err))
}

func (a *CLIErrorAdapter) shouldLog(err error) bool {
	if a.verbose {
		return true
	}
	if classified, ok := AsClassified(err); ok {
		return classified.IsFatal()
	}
	return true
}

func (a *CLIErrorAdapter) logError(err error) {
	classified, ok := AsClassified(err)
	if !ok {
		a.logger.Error("Unclassified error", "error", err)
		return
	}
	attrs := []slog.Attr{slog.String("category", string(classified.Category()))}
	if classified.CanRetry() {
		attrs = append(attrs, slog.Bool("retryable", true))
	}
	if classified.Cause() != nil {
		attrs = append(attrs, slog.String("cause", classified.Cause().Error()))
	}
	a.logger.LogAttrs(context.Background(), slogLevelFromSeverity(classified.Severity()), classified.Message(), attrs...)
}

func slogLevelFromSeverity(severity ErrorSeverity) slog.Level {
	switch severity {
	case SeverityInfo:
		return slog.LevelInfo
	case SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
