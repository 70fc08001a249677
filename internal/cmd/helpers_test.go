package cmd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/3leaps/s3scan/pkg/output"
	"github.com/3leaps/s3scan/pkg/provider"
	"github.com/3leaps/s3scan/pkg/provider/s3"
)

// fakeProvider serves keys per bucket, filtered by prefix and paged by
// MaxKeys. Continuation tokens are key offsets.
type fakeProvider struct {
	buckets map[string][]string
	err     error

	calls  []provider.ListOptions
	closed bool
}

func (p *fakeProvider) List(ctx context.Context, opts provider.ListOptions) (*provider.ListResult, error) {
	p.calls = append(p.calls, opts)
	if p.err != nil {
		return nil, p.err
	}

	var keys []string
	for _, k := range p.buckets[opts.Bucket] {
		if strings.HasPrefix(k, opts.Prefix) {
			keys = append(keys, k)
		}
	}

	start := 0
	if opts.ContinuationToken != "" {
		n, err := strconv.Atoi(opts.ContinuationToken)
		if err != nil {
			return nil, err
		}
		start = n
	}
	end := min(start+opts.MaxKeys, len(keys))

	result := &provider.ListResult{}
	for _, k := range keys[start:end] {
		result.Objects = append(result.Objects, provider.ObjectSummary{Key: k})
	}
	if end < len(keys) {
		result.IsTruncated = true
		result.ContinuationToken = strconv.Itoa(end)
	}
	return result, nil
}

func (p *fakeProvider) Close() error {
	p.closed = true
	return nil
}

// useFakeProvider routes provider construction to fp for the duration of
// the test and returns the config the CLI built.
func useFakeProvider(t *testing.T, fp *fakeProvider) *s3.Config {
	t.Helper()
	got := &s3.Config{}
	orig := newProvider
	newProvider = func(ctx context.Context, cfg s3.Config) (provider.Provider, error) {
		*got = cfg
		return fp, nil
	}
	t.Cleanup(func() { newProvider = orig })
	return got
}

// runCLI executes a fresh command tree and returns its stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// decodeRecords splits JSONL output into envelopes.
func decodeRecords(t *testing.T, data string) []output.Record {
	t.Helper()
	var records []output.Record
	sc := bufio.NewScanner(strings.NewReader(data))
	for sc.Scan() {
		var rec output.Record
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		records = append(records, rec)
	}
	require.NoError(t, sc.Err())
	return records
}

func decodeData[T any](t *testing.T, rec output.Record) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Data, &v))
	return v
}
