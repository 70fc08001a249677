package preflight_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/s3scan/pkg/preflight"
	"github.com/3leaps/s3scan/pkg/provider"
	"github.com/3leaps/s3scan/pkg/scan"
)

// bucketProvider fails List for the buckets in deny.
type bucketProvider struct {
	deny  map[string]error
	calls []provider.ListOptions
}

func (p *bucketProvider) List(ctx context.Context, opts provider.ListOptions) (*provider.ListResult, error) {
	p.calls = append(p.calls, opts)
	if err := p.deny[opts.Bucket]; err != nil {
		return nil, err
	}
	return &provider.ListResult{}, nil
}

func (p *bucketProvider) Close() error { return nil }

func locations(t *testing.T, uris ...string) []scan.Location {
	t.Helper()
	var out []scan.Location
	for _, u := range uris {
		loc, err := scan.ParseLocation(u)
		require.NoError(t, err)
		out = append(out, loc)
	}
	return out
}

func TestParseMode(t *testing.T) {
	m, err := preflight.ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, preflight.ModePlanOnly, m)

	m, err = preflight.ParseMode("read-safe")
	require.NoError(t, err)
	assert.Equal(t, preflight.ModeReadSafe, m)

	_, err = preflight.ParseMode("write-test")
	assert.Error(t, err)
}

func TestListAccess_PlanOnly(t *testing.T) {
	p := &bucketProvider{}

	rec, err := preflight.ListAccess(context.Background(), p, preflight.ModePlanOnly, locations(t, "s3://a/x/"))
	require.NoError(t, err)
	assert.Equal(t, "plan-only", rec.Mode)
	assert.Empty(t, rec.Results)
	assert.Empty(t, p.calls)
}

func TestListAccess_OneListPerBucket(t *testing.T) {
	p := &bucketProvider{}

	rec, err := preflight.ListAccess(context.Background(), p, preflight.ModeReadSafe,
		locations(t, "s3://a/in/", "s3://b/out/", "s3://a/processing/"))
	require.NoError(t, err)

	require.Len(t, p.calls, 2)
	assert.Equal(t, provider.ListOptions{Bucket: "a", Prefix: "in/", MaxKeys: 1}, p.calls[0])
	assert.Equal(t, provider.ListOptions{Bucket: "b", Prefix: "out/", MaxKeys: 1}, p.calls[1])

	require.Len(t, rec.Results, 2)
	for _, r := range rec.Results {
		assert.Equal(t, preflight.CapSourceList, r.Capability)
		assert.True(t, r.Allowed)
		assert.Empty(t, r.ErrorCode)
	}
	assert.Equal(t, `List(prefix="in/",maxKeys=1)`, rec.Results[0].Method)
}

func TestListAccess_Denied(t *testing.T) {
	denied := &provider.ProviderError{Op: "List", Provider: provider.ProviderS3, Bucket: "a", Err: provider.ErrAccessDenied}
	p := &bucketProvider{deny: map[string]error{
		"a": denied,
		"c": errors.New("boom"),
	}}

	rec, err := preflight.ListAccess(context.Background(), p, preflight.ModeReadSafe,
		locations(t, "s3://a/", "s3://b/", "s3://c/"))
	require.Error(t, err)
	assert.Same(t, denied, err)

	require.Len(t, rec.Results, 3)
	assert.False(t, rec.Results[0].Allowed)
	assert.Equal(t, "ACCESS_DENIED", rec.Results[0].ErrorCode)
	assert.Equal(t, "a", rec.Results[0].Bucket)
	assert.True(t, rec.Results[1].Allowed)
	assert.False(t, rec.Results[2].Allowed)
	assert.Equal(t, "INTERNAL", rec.Results[2].ErrorCode)
	assert.Equal(t, "boom", rec.Results[2].Detail)
}
