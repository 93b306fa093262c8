package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"

	"github.com/RichardKnop/litefile"
	"github.com/RichardKnop/litefile/internal/pkg/logging"
)

// CLI defines the command-line interface using Kong
var CLI struct {
	DatabaseFile string `arg:"" optional:"" help:"Database file or connection string, an in-memory database when omitted."`
	LogLevel     string `name:"log-level" env:"LOG_LEVEL" default:"warn" help:"Log level: debug, info, warn or error."`
	Validation   string `name:"validation" default:"strict" enum:"strict,lenient" help:"Header validation mode: strict or lenient."`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name(cliName),
		kong.Description("Inspect the structure of SQLite database files"),
		kong.UsageOnError(),
	)

	logger, err := logging.New(CLI.LogLevel)
	kctx.FatalIfErrorf(err)
	defer logger.Sync() // flushes buffer, if any

	validation, err := litefile.ParseValidationMode(CLI.Validation)
	kctx.FatalIfErrorf(err)

	interactive := isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	aShell := newShell(os.Stdout, logger, validation, interactive)

	if err := aShell.open(CLI.DatabaseFile); err != nil {
		kctx.FatalIfErrorf(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done := make(chan error, 1)
	go func() {
		done <- aShell.Run(ctx, os.Stdin)
	}()

	select {
	case err = <-done:
	case <-ctx.Done():
		// the shell goroutine may still be blocked on stdin, the open file is
		// released when the process exits
		logger.Debug("interrupted")
		return
	}

	if closeErr := aShell.Close(); closeErr != nil {
		logger.Warn("error closing database", zap.Error(closeErr))
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
