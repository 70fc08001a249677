package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/s3scan/internal/observability"
	"github.com/3leaps/s3scan/pkg/manifest"
	"github.com/3leaps/s3scan/pkg/output"
	"github.com/3leaps/s3scan/pkg/preflight"
	"github.com/3leaps/s3scan/pkg/provider"
	"github.com/3leaps/s3scan/pkg/scan"
)

type checkOptions struct {
	manifestPath string
	output       string
	failFast     bool
	preflight    string
}

func newCheckCmd(root *rootOptions) *cobra.Command {
	opts := &checkOptions{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify locations against a check manifest",
		Long: `Verify that each location in a manifest is in its expected state.

Each check names a location and whether it must be empty or populated,
optionally with a key filter. Checks run in order; one JSONL check record
is written per check, followed by a summary record. The command fails
if any check fails.

Example manifest:
  version: "1"
  checks:
    - name: processing
      location: s3://etl-raw/processing/
      expect: empty
    - location: s3://etl-raw/in/
      expect: populated
      filter:
        include: ["**/*.csv"]

Examples:
  s3scan check --manifest gates.yaml
  s3scan check --manifest gates.yaml --fail-fast --output results.jsonl
  s3scan check --manifest gates.yaml --preflight read-safe

With --preflight read-safe, list permission is tested once per bucket
before any check runs and a preflight record is written first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.manifestPath, "manifest", "m", "", "Path to check manifest (required)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write results to file instead of stdout")
	cmd.Flags().BoolVar(&opts.failFast, "fail-fast", false, "Stop at the first failed check")
	cmd.Flags().StringVar(&opts.preflight, "preflight", string(preflight.ModePlanOnly), "Preflight mode (plan-only|read-safe)")
	_ = cmd.MarkFlagRequired("manifest")

	return cmd
}

func runCheck(cmd *cobra.Command, root *rootOptions, opts *checkOptions) (err error) {
	start := time.Now()

	mode, err := preflight.ParseMode(opts.preflight)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid --preflight", err)
	}

	m, err := manifest.Load(opts.manifestPath)
	if err != nil {
		observability.CLILogger.Error("Failed to load manifest",
			zap.String("path", opts.manifestPath),
			zap.Error(err))
		return manifestFailure(err)
	}

	observability.CLILogger.Debug("Loaded manifest",
		zap.String("path", opts.manifestPath),
		zap.Int("checks", len(m.Checks)))

	ctx, cancel := root.scanContext(cmd.Context())
	defer cancel()

	prov, closeProvider, err := root.openProvider(ctx)
	if err != nil {
		observability.CLILogger.Error("Failed to create provider", zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Failed to connect to storage provider", err)
	}
	defer closeProvider()
	scanner := root.newScanner(prov)

	w, cleanup, err := createWriter(cmd.OutOrStdout(), opts.output, uuid.New().String())
	if err != nil {
		return exitError(foundry.ExitFileWriteError, "Failed to create output", err)
	}
	defer func() {
		if cerr := cleanup(); cerr != nil {
			observability.CLILogger.Error("Failed to close output", zap.Error(cerr))
			if err == nil {
				err = writeFailure(cerr)
			}
		}
	}()

	// Records are written even after the scan context is done.
	writeCtx := context.WithoutCancel(cmd.Context())

	if mode != preflight.ModePlanOnly {
		if err := runPreflight(ctx, writeCtx, w, prov, mode, m); err != nil {
			return err
		}
	}

	var (
		ran, failed, errored int
		firstScanErr         error
	)
	for _, c := range m.Checks {
		// Validate already compiled every filter.
		kf, _ := c.Filter.KeyFilter()

		rec := &output.CheckRecord{
			Name:     c.Name,
			Location: c.Location,
			Expect:   string(c.Expect),
		}

		empty, scanErr := scanner.IsEmpty(ctx, c.Location, kf)
		ran++
		if scanErr != nil {
			errored++
			if firstScanErr == nil {
				firstScanErr = scanErr
			}
			rec.Error = scanErr.Error()
			observability.CLILogger.Warn("Check scan failed",
				zap.String("check", c.Name),
				zap.String("location", c.Location),
				zap.String("code", provider.ErrorCode(scanErr)),
				zap.Error(scanErr))
		} else {
			rec.Empty = &empty
			rec.Passed = c.Expect.Satisfied(empty)
			observability.CLILogger.Debug("Check evaluated",
				zap.String("check", c.Name),
				zap.Bool("empty", empty),
				zap.Bool("passed", rec.Passed))
		}
		if !rec.Passed {
			failed++
		}

		if err := w.WriteCheck(writeCtx, rec); err != nil {
			return writeFailure(err)
		}

		if ctx.Err() != nil {
			break
		}
		if opts.failFast && !rec.Passed {
			break
		}
	}

	duration := time.Since(start)
	err = w.WriteSummary(writeCtx, &output.SummaryRecord{
		Command:       "check",
		Locations:     ran,
		Failed:        failed,
		Duration:      duration,
		DurationHuman: duration.Round(time.Millisecond).String(),
	})
	if err != nil {
		return writeFailure(err)
	}

	observability.CLILogger.Info("Checks complete",
		zap.Int("checks", len(m.Checks)),
		zap.Int("ran", ran),
		zap.Int("failed", failed),
		zap.Duration("duration", duration))

	switch {
	case firstScanErr != nil:
		return scanFailure(fmt.Sprintf("%d of %d locations", errored, ran), firstScanErr)
	case failed > 0:
		return exitError(foundry.ExitInvalidArgument,
			fmt.Sprintf("%d of %d checks failed", failed, ran), ErrExpectationFailed)
	}
	return nil
}

// runPreflight tests list access for every manifest bucket and writes
// the preflight record.
func runPreflight(ctx, writeCtx context.Context, w output.Writer, prov provider.Provider, mode preflight.Mode, m *manifest.Manifest) error {
	locations := make([]scan.Location, 0, len(m.Checks))
	for _, c := range m.Checks {
		// Validate already parsed every location.
		loc, _ := scan.ParseLocation(c.Location)
		locations = append(locations, loc)
	}

	rec, err := preflight.ListAccess(ctx, prov, mode, locations)
	if werr := w.WritePreflight(writeCtx, rec); werr != nil {
		return writeFailure(werr)
	}
	if err != nil {
		observability.CLILogger.Error("Preflight failed",
			zap.String("mode", string(mode)),
			zap.String("code", provider.ErrorCode(err)),
			zap.Error(err))
		if errors.Is(err, context.Canceled) {
			return exitError(foundry.ExitSignalInt, "Preflight cancelled", err)
		}
		return exitError(foundry.ExitExternalServiceUnavailable, "Preflight failed", err)
	}

	observability.CLILogger.Debug("Preflight passed",
		zap.String("mode", string(mode)),
		zap.Int("buckets", len(rec.Results)))
	return nil
}

func manifestFailure(err error) error {
	var pathErr *fs.PathError
	switch {
	case errors.Is(err, manifest.ErrManifestNotFound):
		return exitError(foundry.ExitFileNotFound, "Manifest not found", err)
	case errors.As(err, &pathErr):
		return exitError(foundry.ExitFileReadError, "Failed to read manifest", err)
	default:
		return exitError(foundry.ExitInvalidArgument, "Invalid manifest", err)
	}
}

func writeFailure(err error) error {
	return exitError(foundry.ExitFileWriteError, "Failed to write results", err)
}
