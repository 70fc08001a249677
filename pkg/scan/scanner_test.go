package scan

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/s3scan/pkg/provider"
)

// pagingProvider serves a fixed key list in pages of perPage keys, using
// the page index as the continuation token.
type pagingProvider struct {
	keys    []string
	perPage int // zero means honour MaxKeys

	failOn int // 1-based call number that fails; zero disables
	err    error

	calls []provider.ListOptions
}

func (p *pagingProvider) List(ctx context.Context, opts provider.ListOptions) (*provider.ListResult, error) {
	p.calls = append(p.calls, opts)
	if p.failOn > 0 && len(p.calls) == p.failOn {
		return nil, p.err
	}

	size := p.perPage
	if size <= 0 {
		size = opts.MaxKeys
	}

	start := 0
	if opts.ContinuationToken != "" {
		page, err := strconv.Atoi(opts.ContinuationToken)
		if err != nil {
			return nil, fmt.Errorf("bad token %q", opts.ContinuationToken)
		}
		start = page * size
	}
	end := min(start+size, len(p.keys))

	result := &provider.ListResult{}
	for _, k := range p.keys[start:end] {
		result.Objects = append(result.Objects, provider.ObjectSummary{Key: k})
	}
	if end < len(p.keys) {
		result.IsTruncated = true
		result.ContinuationToken = strconv.Itoa(end / size)
	}
	return result, nil
}

func (p *pagingProvider) Close() error { return nil }

var _ provider.Provider = (*pagingProvider)(nil)

func TestNew_PageSize(t *testing.T) {
	assert.Equal(t, DefaultPageSize, New(&pagingProvider{}, Options{}).PageSize())
	assert.Equal(t, DefaultPageSize, New(&pagingProvider{}, Options{PageSize: -3}).PageSize())
	assert.Equal(t, 7, New(&pagingProvider{}, Options{PageSize: 7}).PageSize())
}

func TestIsEmpty(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		keys      []string
		filter    KeyFilter
		perPage   int
		wantEmpty bool
		wantCalls int
	}{
		{
			name:      "no objects",
			keys:      nil,
			wantEmpty: true,
			wantCalls: 1,
		},
		{
			name:      "only markers with default filter",
			keys:      []string{"run/", "run_$folder$", "run/sub/", "run/sub_$folder$"},
			perPage:   1,
			wantEmpty: true,
			wantCalls: 4,
		},
		{
			name:      "match on first page stops immediately",
			keys:      []string{"run/", "run/part-0", "run/part-1", "run/part-2"},
			perPage:   2,
			wantEmpty: false,
			wantCalls: 1,
		},
		{
			name:      "match on third page",
			keys:      []string{"a/", "b/", "c_$folder$", "d/", "e.txt", "f.txt"},
			perPage:   2,
			wantEmpty: false,
			wantCalls: 3,
		},
		{
			name:      "custom filter rejects everything",
			keys:      []string{"x.lzo", "y.lzo", "z.lzo"},
			filter:    HasSuffix(".gz"),
			perPage:   2,
			wantEmpty: true,
			wantCalls: 2,
		},
		{
			name:      "accept all counts markers",
			keys:      []string{"only/"},
			filter:    AcceptAll,
			wantEmpty: false,
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &pagingProvider{keys: tt.keys, perPage: tt.perPage}

			empty, err := New(p, Options{}).IsEmpty(ctx, "s3://bucket/run/", tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantEmpty, empty)
			assert.Len(t, p.calls, tt.wantCalls)
		})
	}
}

func TestIsEmpty_RequestShape(t *testing.T) {
	p := &pagingProvider{keys: []string{"a/", "b/", "c/"}, perPage: 1}

	_, err := New(p, Options{PageSize: 1}).IsEmpty(context.Background(), "s3://snowplow-etl/processing/", nil)
	require.NoError(t, err)

	require.Len(t, p.calls, 3)
	for i, call := range p.calls {
		assert.Equal(t, "snowplow-etl", call.Bucket)
		assert.Equal(t, "processing/", call.Prefix)
		assert.Equal(t, 1, call.MaxKeys)
		if i == 0 {
			assert.Empty(t, call.ContinuationToken, "first page must not send a token")
		} else {
			assert.Equal(t, strconv.Itoa(i), call.ContinuationToken)
		}
	}
}

func TestListObjectNames_ThreePagesOfTwo(t *testing.T) {
	keys := []string{"k1", "k2", "k3", "k4", "k5", "k6"}
	p := &pagingProvider{keys: keys, perPage: 2}

	names, err := New(p, Options{}).ListObjectNames(context.Background(), "s3://bucket/", AcceptAll)
	require.NoError(t, err)

	assert.Equal(t, keys, names)
	assert.Len(t, p.calls, 3)
}

func TestListObjectNames_PageSplitIndependent(t *testing.T) {
	keys := []string{
		"enriched/run=1/", "enriched/run=1/part-0.gz", "enriched/run=1/part-1.gz",
		"enriched/run=1_$folder$", "enriched/run=2/part-0.gz", "enriched/run=2/_SUCCESS",
	}
	f := And(DefaultKeyFilter, Not(HasSuffix("_SUCCESS")))
	want := []string{"enriched/run=1/part-0.gz", "enriched/run=1/part-1.gz", "enriched/run=2/part-0.gz"}

	for _, perPage := range []int{1, 2, 4, len(keys)} {
		t.Run(fmt.Sprintf("page size %d", perPage), func(t *testing.T) {
			p := &pagingProvider{keys: keys}

			names, err := New(p, Options{PageSize: perPage}).ListObjectNames(context.Background(), "s3://b/enriched/", f)
			require.NoError(t, err)
			assert.Equal(t, want, names)
		})
	}
}

func TestListObjectNames_NoMatches(t *testing.T) {
	p := &pagingProvider{keys: []string{"a/", "b/"}, perPage: 1}

	names, err := New(p, Options{}).ListObjectNames(context.Background(), "s3://b/", DefaultKeyFilter)
	require.NoError(t, err)
	assert.NotNil(t, names)
	assert.Empty(t, names)
}

func TestListObjectNames_NilFilterAcceptsAll(t *testing.T) {
	p := &pagingProvider{keys: []string{"a/", "a/b"}}

	names, err := ListObjectNames(context.Background(), p, "s3://b/a/", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/", "a/b"}, names)
}

func TestTruncatedWithoutToken_Stops(t *testing.T) {
	p := &stuckProvider{}

	empty, err := IsEmpty(context.Background(), p, "s3://b/p/", nil)
	require.NoError(t, err)
	assert.True(t, empty)
	assert.Equal(t, 1, p.calls)
}

// stuckProvider claims more data but never hands out a token.
type stuckProvider struct{ calls int }

func (p *stuckProvider) List(ctx context.Context, opts provider.ListOptions) (*provider.ListResult, error) {
	p.calls++
	return &provider.ListResult{Objects: []provider.ObjectSummary{{Key: "p/"}}, IsTruncated: true}, nil
}

func (p *stuckProvider) Close() error { return nil }

func TestErrorsPropagateUnwrapped(t *testing.T) {
	accessDenied := &provider.ProviderError{
		Op:       "List",
		Provider: provider.ProviderS3,
		Bucket:   "locked",
		Err:      provider.ErrAccessDenied,
	}
	ctx := context.Background()

	t.Run("IsEmpty first call", func(t *testing.T) {
		p := &pagingProvider{keys: []string{"a"}, failOn: 1, err: accessDenied}

		_, err := New(p, Options{}).IsEmpty(ctx, "s3://locked/x/", nil)
		assert.Same(t, accessDenied, err)
	})

	t.Run("ListObjectNames first call", func(t *testing.T) {
		p := &pagingProvider{keys: []string{"a"}, failOn: 1, err: accessDenied}

		names, err := New(p, Options{}).ListObjectNames(ctx, "s3://locked/x/", AcceptAll)
		assert.Same(t, accessDenied, err)
		assert.Nil(t, names)
	})

	t.Run("ListObjectNames discards partial results", func(t *testing.T) {
		boom := errors.New("connection reset")
		p := &pagingProvider{keys: []string{"a", "b", "c"}, perPage: 1, failOn: 3, err: boom}

		names, err := New(p, Options{}).ListObjectNames(ctx, "s3://b/", AcceptAll)
		assert.Equal(t, boom, err)
		assert.Nil(t, names)
	})
}

func TestInvalidLocation_NoListing(t *testing.T) {
	p := &pagingProvider{}
	ctx := context.Background()

	_, err := IsEmpty(ctx, p, "not-a-url", nil)
	assert.ErrorIs(t, err, ErrInvalidLocation)

	_, err = ListObjectNames(ctx, p, "not-a-url", nil)
	assert.ErrorIs(t, err, ErrInvalidLocation)

	assert.Empty(t, p.calls)
}
