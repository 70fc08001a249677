package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/s3scan/internal/observability"
	"github.com/3leaps/s3scan/pkg/output"
	"github.com/3leaps/s3scan/pkg/provider"
	"github.com/3leaps/s3scan/pkg/scan"
)

type listOptions struct {
	filter      filterFlags
	skipMarkers bool
	json        bool
	output      string
}

func newListCmd(root *rootOptions) *cobra.Command {
	opts := &listOptions{}

	cmd := &cobra.Command{
		Use:     "ls <uri>",
		Aliases: []string{"list"},
		Short:   "List matching keys under a location",
		Long: `List every key under a location that passes the filter, in listing order.

All keys are listed unless narrowed with --include, --exclude, --regex or
--skip-markers. Keys are printed one per line; --json emits JSONL key
records followed by a summary record.

Examples:
  s3scan ls s3://etl-raw/in/
  s3scan ls s3://etl-raw/in/ --include '**/*.parquet' --exclude '**/_tmp/**'
  s3scan ls s3://etl-raw/in/ --skip-markers --json --output keys.jsonl`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, root, opts, args[0])
		},
	}

	opts.filter.register(cmd.Flags())
	cmd.Flags().BoolVar(&opts.skipMarkers, "skip-markers", false, "Omit directory and $folder$ marker keys")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Emit JSONL key records and a summary")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write results to file instead of stdout")

	return cmd
}

func runList(cmd *cobra.Command, root *rootOptions, opts *listOptions, location string) error {
	start := time.Now()

	if _, err := scan.ParseLocation(location); err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid location", err)
	}

	kf, err := opts.filter.keyFilter(!opts.skipMarkers)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid filter", err)
	}

	ctx, cancel := root.scanContext(cmd.Context())
	defer cancel()

	scanner, closeProvider, err := root.openScanner(ctx)
	if err != nil {
		observability.CLILogger.Error("Failed to create provider", zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Failed to connect to storage provider", err)
	}
	defer closeProvider()

	keys, err := scanner.ListObjectNames(ctx, location, kf)
	if err != nil {
		observability.CLILogger.Error("Listing failed",
			zap.String("location", location),
			zap.Error(err))
		if opts.json {
			writeScanError(cmd, opts.output, location, err)
		}
		return scanFailure(location, err)
	}

	observability.CLILogger.Debug("Listing complete",
		zap.String("location", location),
		zap.Int("keys", len(keys)))

	if opts.json {
		err = writeKeyRecords(cmd, opts.output, location, keys, start)
	} else {
		err = writeKeyLines(cmd, opts.output, keys)
	}
	if err != nil {
		return exitError(foundry.ExitFileWriteError, "Failed to write results", err)
	}
	return nil
}

// writeScanError emits an error record for a failed scan. Write failures
// are logged; the scan error is what the command reports.
func writeScanError(cmd *cobra.Command, path, location string, scanErr error) {
	w, cleanup, err := createWriter(cmd.OutOrStdout(), path, uuid.New().String())
	if err == nil {
		err = w.WriteError(context.WithoutCancel(cmd.Context()), &output.ErrorRecord{
			Code:     provider.ErrorCode(scanErr),
			Message:  scanErr.Error(),
			Location: location,
		})
		closeOutput(cleanup, &err)
	}
	if err != nil {
		observability.CLILogger.Warn("Failed to write error record", zap.Error(err))
	}
}

func writeKeyLines(cmd *cobra.Command, path string, keys []string) (err error) {
	out, closeOut, err := openOutput(cmd.OutOrStdout(), path)
	if err != nil {
		return err
	}
	defer closeOutput(closeOut, &err)

	for _, key := range keys {
		if _, err := fmt.Fprintln(out, key); err != nil {
			return err
		}
	}
	return nil
}

func writeKeyRecords(cmd *cobra.Command, path, location string, keys []string, start time.Time) (err error) {
	ctx := cmd.Context()
	w, cleanup, err := createWriter(cmd.OutOrStdout(), path, uuid.New().String())
	if err != nil {
		return err
	}
	defer closeOutput(cleanup, &err)

	for _, key := range keys {
		if err := w.WriteKey(ctx, &output.KeyRecord{Location: location, Key: key}); err != nil {
			return err
		}
	}

	duration := time.Since(start)
	return w.WriteSummary(ctx, &output.SummaryRecord{
		Command:       "ls",
		Locations:     1,
		Keys:          len(keys),
		Duration:      duration,
		DurationHuman: duration.Round(time.Millisecond).String(),
	})
}
