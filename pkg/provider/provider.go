// Package provider is the storage seam under the scanner.
//
// The scanner needs one thing from storage: the next page of keys under a
// bucket and prefix. Everything else (credentials, endpoints, retries,
// throttling) belongs to the implementation.
package provider

import (
	"context"
	"time"
)

// Provider lists a bucket one page at a time.
//
// An empty ContinuationToken means "first page" and must not be sent to
// the backend as an empty token. Implementations may be shared between
// goroutines.
type Provider interface {
	List(ctx context.Context, opts ListOptions) (*ListResult, error)

	// Close releases SDK clients and limiters.
	Close() error
}

// ListOptions is one page request.
type ListOptions struct {
	// Bucket falls back to the provider's default bucket when empty.
	Bucket string

	// Prefix is matched byte for byte against keys. Empty means the bucket root.
	Prefix string

	// ContinuationToken is the token from the previous page, or empty.
	ContinuationToken string

	// MaxKeys caps the page. The backend may return fewer; 0 leaves it to the backend.
	MaxKeys int
}

// ListResult is one page of keys.
type ListResult struct {
	// Objects is in backend order, lexicographic by key for S3.
	Objects []ObjectSummary

	ContinuationToken string
	IsTruncated       bool
}

// HasMore reports whether the listing can continue. A truncated page that
// came back without a token ends the listing rather than restarting it.
func (r *ListResult) HasMore() bool {
	return r.IsTruncated && r.ContinuationToken != ""
}

// ObjectSummary is what a listing says about one key. Only Key drives
// emptiness and filtering; the rest is carried for debug output.
type ObjectSummary struct {
	Key          string
	Size         int64
	ETag         string // unquoted
	LastModified time.Time
}

// ProviderType names a storage backend in records and errors.
type ProviderType string

// ProviderS3 covers AWS S3 and S3-compatible endpoints.
const ProviderS3 ProviderType = "s3"
