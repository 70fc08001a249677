// Package cmd implements the s3scan command line.
package cmd

import (
	"context"
	"errors"
	"io/fs"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/3leaps/s3scan/internal/config"
	"github.com/3leaps/s3scan/internal/observability"
)

const appName = "s3scan"

// versionInfo holds build metadata set via ldflags.
var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{
	Version:   "dev",
	Commit:    "unknown",
	BuildDate: "unknown",
}

// SetVersionInfo records build metadata for the version command.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// rootOptions is the state shared by every subcommand of one command tree.
type rootOptions struct {
	v          *viper.Viper
	cfg        *config.Config
	configPath string
	verbose    bool
}

// Execute runs the CLI with os.Args.
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{v: config.NewViper()}

	root := &cobra.Command{
		Use:   appName,
		Short: "Check whether S3 prefixes hold objects",
		Long: `s3scan inspects S3 prefixes page by page.

It answers two questions for ETL gating: is a location empty, and which
keys does it hold. Directory markers ("key/") and folder markers
("key_$folder$") are ignored by default when deciding emptiness.

Examples:
  s3scan empty s3://etl-raw/processing/
  s3scan ls s3://etl-raw/in/ --include '**/*.parquet'
  s3scan check --manifest gates.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.initialize()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to config file (YAML)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	flags.String("log-level", config.DefaultLogLevel, "Log level (debug, info, warn, error)")
	flags.String("region", "", "AWS region")
	flags.String("profile", "", "AWS shared config profile")
	flags.String("endpoint", "", "Custom S3 endpoint (MinIO, moto, ...)")
	flags.Int("page-size", config.DefaultPageSize, "Keys requested per listing call (1-1000)")
	flags.Float64("rps", 0, "Maximum listing requests per second (0 = unlimited)")
	flags.Duration("timeout", 0, "Abort scanning after this duration (0 = none)")

	bindings := map[string]string{
		"logging.level":          "log-level",
		"s3.region":              "region",
		"s3.profile":             "profile",
		"s3.endpoint":            "endpoint",
		"scan.page_size":         "page-size",
		"s3.requests_per_second": "rps",
		"scan.timeout":           "timeout",
	}
	for key, flag := range bindings {
		_ = opts.v.BindPFlag(key, flags.Lookup(flag))
	}

	root.AddCommand(
		newEmptyCmd(opts),
		newListCmd(opts),
		newCheckCmd(opts),
		newVersionCmd(),
	)
	return root
}

// initialize loads configuration and installs the CLI logger.
func (o *rootOptions) initialize() error {
	if o.configPath != "" {
		if err := config.ReadFile(o.v, o.configPath); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return exitError(foundry.ExitFileNotFound, "Config file not found", err)
			}
			return exitError(foundry.ExitFileReadError, "Failed to read config", err)
		}
	}

	cfg, err := config.Load(o.v)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}
	o.cfg = cfg

	err = observability.ConfigureCLILogger(appName, observability.LoggerConfig{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Verbose: o.verbose,
	})
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid logging configuration", err)
	}

	observability.CLILogger.Debug("Configuration loaded",
		zap.String("config_file", o.configPath),
		zap.Int("page_size", cfg.Scan.PageSize),
		zap.String("region", cfg.S3.Region),
		zap.String("endpoint", cfg.S3.Endpoint),
		zap.Float64("rps", cfg.S3.RequestsPerSecond),
		zap.Duration("timeout", cfg.Scan.Timeout))
	return nil
}
