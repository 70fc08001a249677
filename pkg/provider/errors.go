package provider

import (
	"errors"
	"fmt"
)

// Listing failures, normalized across backends. Implementations wrap one of
// these in a *ProviderError so callers can classify with errors.Is.
var (
	ErrAccessDenied        = errors.New("access denied")
	ErrBucketNotFound      = errors.New("bucket not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrThrottled           = errors.New("request throttled")

	// ErrMissingBucket means neither the request nor the provider named a bucket.
	ErrMissingBucket = errors.New("bucket not specified")
)

// ProviderError ties a backend failure to the listing it interrupted.
type ProviderError struct {
	Op       string
	Provider ProviderType
	Bucket   string
	Prefix   string
	Err      error
}

func (e *ProviderError) Error() string {
	target := e.Bucket
	if e.Prefix != "" {
		target += "/" + e.Prefix
	}
	if target == "" {
		return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s %s: %v", e.Provider, e.Op, target, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Error codes carried in JSONL error records.
const (
	CodeAccessDenied    = "ACCESS_DENIED"
	CodeNotFound        = "NOT_FOUND"
	CodeThrottled       = "THROTTLED"
	CodeUnavailable     = "UNAVAILABLE"
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeInternal        = "INTERNAL"
)

// ErrorCode maps err onto a record code. Credential failures report as
// ACCESS_DENIED; anything unrecognized is INTERNAL.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAccessDenied), errors.Is(err, ErrInvalidCredentials):
		return CodeAccessDenied
	case errors.Is(err, ErrBucketNotFound):
		return CodeNotFound
	case errors.Is(err, ErrThrottled):
		return CodeThrottled
	case errors.Is(err, ErrProviderUnavailable):
		return CodeUnavailable
	case errors.Is(err, ErrMissingBucket):
		return CodeInvalidArgument
	default:
		return CodeInternal
	}
}
