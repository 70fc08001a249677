package cmd

import (
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/s3scan/internal/observability"
	"github.com/3leaps/s3scan/pkg/manifest"
	"github.com/3leaps/s3scan/pkg/output"
	"github.com/3leaps/s3scan/pkg/scan"
)

type emptyOptions struct {
	filter         filterFlags
	includeMarkers bool
	expect         string
	json           bool
}

func newEmptyCmd(root *rootOptions) *cobra.Command {
	opts := &emptyOptions{}

	cmd := &cobra.Command{
		Use:   "empty <uri>",
		Short: "Report whether a location holds no matching objects",
		Long: `Report whether a location holds no matching objects.

Listing stops at the first page containing a matching key. By default
directory markers ("key/") and folder markers ("key_$folder$") do not
count; pass --include-markers to count them.

Prints "true" or "false". With --expect the command fails when the
location is not in the expected state.

Examples:
  s3scan empty s3://etl-raw/processing/
  s3scan empty s3://etl-raw/in/ --expect populated
  s3scan empty s3://etl-raw/in/ --include '**/*.csv' --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEmpty(cmd, root, opts, args[0])
		},
	}

	opts.filter.register(cmd.Flags())
	cmd.Flags().BoolVar(&opts.includeMarkers, "include-markers", false, "Count directory and $folder$ marker keys")
	cmd.Flags().StringVar(&opts.expect, "expect", "", "Fail unless the location is empty|populated")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Emit a JSONL emptiness record")

	return cmd
}

func runEmpty(cmd *cobra.Command, root *rootOptions, opts *emptyOptions, location string) error {
	if _, err := scan.ParseLocation(location); err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid location", err)
	}

	expect := manifest.Expectation(opts.expect)
	if expect != "" && expect != manifest.ExpectEmpty && expect != manifest.ExpectPopulated {
		return exitError(foundry.ExitInvalidArgument, "Invalid --expect",
			fmt.Errorf("%w: %q (want %q or %q)", manifest.ErrInvalidExpectation, opts.expect, manifest.ExpectEmpty, manifest.ExpectPopulated))
	}

	kf, err := opts.filter.keyFilter(opts.includeMarkers)
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

	empty, err := scanner.IsEmpty(ctx, location, kf)
	if err != nil {
		observability.CLILogger.Error("Emptiness check failed",
			zap.String("location", location),
			zap.Error(err))
		if opts.json {
			writeScanError(cmd, "", location, err)
		}
		return scanFailure(location, err)
	}

	observability.CLILogger.Debug("Emptiness check complete",
		zap.String("location", location),
		zap.Bool("empty", empty))

	if opts.json {
		var w *output.JSONLWriter
		var cleanup func() error
		w, cleanup, err = createWriter(cmd.OutOrStdout(), "", uuid.New().String())
		if err == nil {
			err = w.WriteEmptiness(ctx, &output.EmptinessRecord{
				Location: location,
				Empty:    empty,
				Filter:   opts.filter.describe(opts.includeMarkers),
			})
			closeOutput(cleanup, &err)
		}
	} else {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), empty)
	}
	if err != nil {
		return exitError(foundry.ExitFileWriteError, "Failed to write result", err)
	}

	if expect != "" && !expect.Satisfied(empty) {
		return exitError(foundry.ExitInvalidArgument,
			fmt.Sprintf("%s is not %s", location, expect), ErrExpectationFailed)
	}
	return nil
}
