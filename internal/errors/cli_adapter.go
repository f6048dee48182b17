package errors

import (
	"fmt"
	"log/slog"
	"os"
)

// CLIErrorAdapter handles error presentation and exit code determination for CLI applications.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
}

// NewCLIErrorAdapter creates a new CLI error adapter.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{
		verbose: verbose,
		logger:  logger,
	}
}

// ExitCodeFor determines the appropriate exit code for an error.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}

	if ke, ok := err.(*KeeperError); ok {
		return a.exitCodeFromKeeper(ke)
	}

	return 1
}

// exitCodeFromKeeper maps KeeperError categories to exit codes.
func (a *CLIErrorAdapter) exitCodeFromKeeper(err *KeeperError) int {
	switch err.Category {
	case CategoryValidation:
		return 2 // Invalid usage
	case CategoryConfig:
		return 7 // Configuration error
	case CategoryNetwork, CategoryGit:
		return 8 // External system error
	case CategoryContent, CategoryLint, CategoryFileSystem:
		return 11 // Content error
	case CategoryIndex, CategoryServer:
		return 12 // Runtime error
	case CategoryInternal:
		return 10 // Internal error
	default:
		return 1 // General error
	}
}

// Report logs the error and prints a user-facing line to stderr.
func (a *CLIErrorAdapter) Report(err error) {
	if err == nil {
		return
	}

	if ke, ok := err.(*KeeperError); ok {
		if a.verbose && ke.Cause != nil {
			a.logger.Error(ke.Message, slog.String("category", string(ke.Category)), slog.Any("cause", ke.Cause))
		} else {
			a.logger.Error(ke.Message, slog.String("category", string(ke.Category)))
		}
		fmt.Fprintf(os.Stderr, "Error: %s\n", ke.Message)
		return
	}

	a.logger.Error(err.Error())
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}
