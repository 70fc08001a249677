package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/3leaps/s3scan/internal/observability"
	"github.com/3leaps/s3scan/pkg/output"
	"github.com/3leaps/s3scan/pkg/provider"
	"github.com/3leaps/s3scan/pkg/provider/s3"
	"github.com/3leaps/s3scan/pkg/scan"
)

// newProvider constructs the storage provider. Tests replace it.
var newProvider = func(ctx context.Context, cfg s3.Config) (provider.Provider, error) {
	p, err := s3.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// providerConfig maps loaded configuration onto the S3 provider.
func (o *rootOptions) providerConfig() s3.Config {
	return s3.Config{
		Region:   o.cfg.S3.Region,
		Endpoint: o.cfg.S3.Endpoint,
		Profile:  o.cfg.S3.Profile,
		// S3-compatible services (moto, MinIO, etc.) require path-style URLs.
		ForcePathStyle:    o.cfg.S3.ForcePathStyle || o.cfg.S3.Endpoint != "",
		MaxKeys:           o.cfg.Scan.PageSize,
		RequestsPerSecond: o.cfg.S3.RequestsPerSecond,
	}
}

// openProvider builds the configured provider wrapped for debug logging.
// The returned cleanup closes it.
func (o *rootOptions) openProvider(ctx context.Context) (provider.Provider, func(), error) {
	p, err := newProvider(ctx, o.providerConfig())
	if err != nil {
		return nil, nil, err
	}
	lp := &loggingProvider{next: p, logger: observability.CLILogger}
	return lp, func() { _ = lp.Close() }, nil
}

// openScanner builds a scanner over openProvider.
func (o *rootOptions) openScanner(ctx context.Context) (*scan.Scanner, func(), error) {
	p, cleanup, err := o.openProvider(ctx)
	if err != nil {
		return nil, nil, err
	}
	return o.newScanner(p), cleanup, nil
}

func (o *rootOptions) newScanner(p provider.Provider) *scan.Scanner {
	return scan.New(p, scan.Options{PageSize: o.cfg.Scan.PageSize})
}

// scanContext applies the configured scan timeout, if any.
func (o *rootOptions) scanContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.cfg.Scan.Timeout > 0 {
		return context.WithTimeout(ctx, o.cfg.Scan.Timeout)
	}
	return context.WithCancel(ctx)
}

// loggingProvider logs every listing page at debug level.
// Errors pass through untouched.
type loggingProvider struct {
	next   provider.Provider
	logger *zap.Logger
}

func (p *loggingProvider) List(ctx context.Context, opts provider.ListOptions) (*provider.ListResult, error) {
	start := time.Now()
	res, err := p.next.List(ctx, opts)
	if err != nil {
		p.logger.Debug("List page failed",
			zap.String("bucket", opts.Bucket),
			zap.String("prefix", opts.Prefix),
			zap.Bool("continued", opts.ContinuationToken != ""),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return res, err
	}
	p.logger.Debug("List page",
		zap.String("bucket", opts.Bucket),
		zap.String("prefix", opts.Prefix),
		zap.Bool("continued", opts.ContinuationToken != ""),
		zap.Int("max_keys", opts.MaxKeys),
		zap.Int("objects", len(res.Objects)),
		zap.Bool("truncated", res.IsTruncated),
		zap.Duration("elapsed", time.Since(start)))
	return res, nil
}

func (p *loggingProvider) Close() error {
	return p.next.Close()
}

// createFile opens an output file. Tests replace it.
var createFile = func(path string) (io.WriteCloser, error) {
	return os.Create(path)
}

// createWriter opens the JSONL destination: stdout when path is empty,
// otherwise a new file. The returned cleanup reports a failed close, which
// for a file means buffered records may not have reached disk.
func createWriter(stdout io.Writer, path, runID string) (*output.JSONLWriter, func() error, error) {
	out, closeOut, err := openOutput(stdout, path)
	if err != nil {
		return nil, nil, err
	}
	w := output.NewJSONLWriter(out, runID, string(provider.ProviderS3))
	cleanup := func() error {
		_ = w.Close()
		return closeOut()
	}
	return w, cleanup, nil
}

// openOutput returns stdout or a newly created file for plain-text output.
func openOutput(stdout io.Writer, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return stdout, func() error { return nil }, nil
	}
	f, err := createFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file %s: %w", path, err)
	}
	return f, func() error {
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to close output file %s: %w", path, err)
		}
		return nil
	}, nil
}

// closeOutput runs cleanup and keeps its error when *err is still nil.
func closeOutput(cleanup func() error, err *error) {
	if cerr := cleanup(); cerr != nil && *err == nil {
		*err = cerr
	}
}
