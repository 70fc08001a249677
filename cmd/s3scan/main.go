package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/3leaps/s3scan/internal/cmd"
	"github.com/3leaps/s3scan/internal/observability"
)

// Set via ldflags at build time.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, buildDate)

	// Config loading replaces this logger; until then failures still log.
	observability.InitCLILogger("s3scan", false)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.Execute(ctx)
	stop()

	if err != nil {
		code := cmd.ExitCode(err)
		observability.CLILogger.Debug("Command failed", zap.Int("exit_code", code), zap.Error(err))
		_ = observability.CLILogger.Sync()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(code)
	}
}
