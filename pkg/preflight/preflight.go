// Package preflight verifies that listing is permitted before a run of
// checks starts, so that permission problems surface as one explicit
// record instead of a string of failed checks.
package preflight

import (
	"context"
	"fmt"

	"github.com/3leaps/s3scan/pkg/output"
	"github.com/3leaps/s3scan/pkg/provider"
	"github.com/3leaps/s3scan/pkg/scan"
)

// Mode defines how aggressive preflight checks are.
type Mode string

const (
	// ModePlanOnly records the mode and performs no requests.
	ModePlanOnly Mode = "plan-only"

	// ModeReadSafe issues one single-key List per bucket.
	ModeReadSafe Mode = "read-safe"
)

// CapSourceList is the capability name for list permission in JSONL output.
const CapSourceList = "source.list"

// ParseMode validates a mode name. Empty selects ModePlanOnly.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModePlanOnly:
		return ModePlanOnly, nil
	case ModeReadSafe:
		return ModeReadSafe, nil
	default:
		return "", fmt.Errorf("unknown preflight mode %q (supported: %s, %s)", s, ModePlanOnly, ModeReadSafe)
	}
}

// ListAccess tests list permission once per distinct bucket, at the
// prefix of the first location naming that bucket.
//
// Every bucket is tested even after a failure so the record is complete;
// the first failure is returned.
func ListAccess(ctx context.Context, p provider.Provider, mode Mode, locations []scan.Location) (*output.PreflightRecord, error) {
	rec := &output.PreflightRecord{
		Mode:    string(mode),
		Results: []output.PreflightCheckResult{},
	}
	if mode == ModePlanOnly {
		return rec, nil
	}

	var firstErr error
	seen := make(map[string]bool)
	for _, loc := range locations {
		if seen[loc.Bucket] {
			continue
		}
		seen[loc.Bucket] = true

		result := output.PreflightCheckResult{
			Capability: CapSourceList,
			Bucket:     loc.Bucket,
			Method:     fmt.Sprintf("List(prefix=%q,maxKeys=1)", loc.Prefix),
			Allowed:    true,
		}

		_, err := p.List(ctx, provider.ListOptions{Bucket: loc.Bucket, Prefix: loc.Prefix, MaxKeys: 1})
		if err != nil {
			result.Allowed = false
			result.ErrorCode = provider.ErrorCode(err)
			result.Detail = err.Error()
			if firstErr == nil {
				firstErr = err
			}
		}
		rec.Results = append(rec.Results, result)

		if ctx.Err() != nil {
			break
		}
	}
	return rec, firstErr
}
