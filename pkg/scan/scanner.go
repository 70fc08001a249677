// Package scan answers two questions about an object-storage prefix: does
// it hold any object whose key passes a filter, and which keys pass it.
//
// Both walk the listing page by page through a provider.Provider. Listing
// errors are returned exactly as the provider produced them; nothing is
// retried here.
package scan

import (
	"context"

	"github.com/3leaps/s3scan/pkg/provider"
)

// DefaultPageSize is the number of keys requested per listing call.
const DefaultPageSize = 50

// Options configures a Scanner.
type Options struct {
	// PageSize bounds each listing call. Zero or negative uses DefaultPageSize.
	PageSize int
}

// Scanner runs prefix scans against a provider.
//
// A Scanner holds no mutable state and is safe for concurrent use when its
// provider is.
type Scanner struct {
	provider provider.Provider
	pageSize int
}

// New creates a Scanner over p.
func New(p provider.Provider, opts Options) *Scanner {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Scanner{provider: p, pageSize: pageSize}
}

// PageSize returns the page size used for listing calls.
func (s *Scanner) PageSize() int {
	return s.pageSize
}

// IsEmpty reports whether no key under location passes f.
//
// A nil f means DefaultKeyFilter. Pages are requested only until the first
// one containing a passing key.
func (s *Scanner) IsEmpty(ctx context.Context, location string, f KeyFilter) (bool, error) {
	loc, err := ParseLocation(location)
	if err != nil {
		return false, err
	}
	if f == nil {
		f = DefaultKeyFilter
	}

	var token string
	for {
		page, err := s.listPage(ctx, loc.Bucket, loc.Prefix, token)
		if err != nil {
			return false, err
		}
		for _, obj := range page.Objects {
			if f(obj.Key) {
				return false, nil
			}
		}
		if !page.HasMore() {
			return true, nil
		}
		token = page.ContinuationToken
	}
}

// ListObjectNames returns every key under location that passes f, in
// listing order.
//
// A nil f means AcceptAll. On error no partial result is returned.
func (s *Scanner) ListObjectNames(ctx context.Context, location string, f KeyFilter) ([]string, error) {
	loc, err := ParseLocation(location)
	if err != nil {
		return nil, err
	}
	if f == nil {
		f = AcceptAll
	}

	names := []string{}
	var token string
	for {
		page, err := s.listPage(ctx, loc.Bucket, loc.Prefix, token)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Objects {
			if f(obj.Key) {
				names = append(names, obj.Key)
			}
		}
		if !page.HasMore() {
			return names, nil
		}
		token = page.ContinuationToken
	}
}

// listPage requests one page. An empty token is left out of the request.
func (s *Scanner) listPage(ctx context.Context, bucket, prefix, token string) (*provider.ListResult, error) {
	return s.provider.List(ctx, provider.ListOptions{
		Bucket:            bucket,
		Prefix:            prefix,
		ContinuationToken: token,
		MaxKeys:           s.pageSize,
	})
}

// IsEmpty runs Scanner.IsEmpty with default options.
func IsEmpty(ctx context.Context, p provider.Provider, location string, f KeyFilter) (bool, error) {
	return New(p, Options{}).IsEmpty(ctx, location, f)
}

// ListObjectNames runs Scanner.ListObjectNames with default options.
func ListObjectNames(ctx context.Context, p provider.Provider, location string, f KeyFilter) ([]string, error) {
	return New(p, Options{}).ListObjectNames(ctx, location, f)
}
