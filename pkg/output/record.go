// Package output provides JSONL output for scan results.
//
// Output is structured as typed record envelopes. Each line is a
// self-contained JSON object that can be parsed independently.
package output

import (
	"encoding/json"
	"errors"
	"time"
)

// Record type constants define the envelope types for JSONL output.
// These follow the pattern: s3scan.<type>.v<version>
const (
	// TypeKey identifies a matching object key from a listing.
	TypeKey = "s3scan.key.v1"

	// TypeEmptiness identifies the result of an emptiness check.
	TypeEmptiness = "s3scan.emptiness.v1"

	// TypeCheck identifies a manifest expectation result.
	TypeCheck = "s3scan.check.v1"

	// TypeError identifies error records.
	TypeError = "s3scan.error.v1"

	// TypeSummary identifies final summary records.
	TypeSummary = "s3scan.summary.v1"

	// TypePreflight identifies preflight permission check records.
	TypePreflight = "s3scan.preflight.v1"
)

// Record is the envelope for all JSONL output.
type Record struct {
	// Type identifies the record type (e.g., "s3scan.key.v1").
	Type string `json:"type"`

	// TS is the timestamp when the record was created (RFC3339Nano).
	TS time.Time `json:"ts"`

	// RunID correlates all records of one CLI invocation.
	RunID string `json:"run_id"`

	// Provider identifies the storage provider (e.g., "s3").
	Provider string `json:"provider"`

	// Data contains the type-specific payload as raw JSON.
	Data json.RawMessage `json:"data"`
}

// KeyRecord is the data payload for a listed key.
type KeyRecord struct {
	Location string `json:"location"`
	Key      string `json:"key"`
}

// EmptinessRecord is the data payload for an emptiness check.
type EmptinessRecord struct {
	Location string `json:"location"`
	Empty    bool   `json:"empty"`

	// Filter names the key filter applied (e.g., "default", "all").
	Filter string `json:"filter"`
}

// CheckRecord is the data payload for one manifest expectation.
type CheckRecord struct {
	Name     string `json:"name,omitempty"`
	Location string `json:"location"`

	// Expect is the expected state: "empty" or "populated".
	Expect string `json:"expect"`

	// Empty is the observed state. Nil when the scan failed.
	Empty *bool `json:"empty,omitempty"`

	Passed bool   `json:"passed"`
	Error  string `json:"error,omitempty"`
}

// PreflightRecord is the data payload for preflight permission checks.
//
// It is emitted before any check runs.
type PreflightRecord struct {
	Mode    string                 `json:"mode"`
	Results []PreflightCheckResult `json:"results"`
}

// PreflightCheckResult is a single capability check result.
type PreflightCheckResult struct {
	Capability string `json:"capability"`
	Bucket     string `json:"bucket"`
	Allowed    bool   `json:"allowed"`
	Method     string `json:"method,omitempty"`
	ErrorCode  string `json:"error_code,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

// ErrorRecord is the data payload for errors.
type ErrorRecord struct {
	// Code is a machine-readable error code.
	Code string `json:"code"`

	// Message is a human-readable error description.
	Message string `json:"message"`

	// Location is the scanned location, if applicable.
	Location string `json:"location,omitempty"`
}

// SummaryRecord is the data payload for final summaries.
type SummaryRecord struct {
	// Command is the CLI command that produced the run (e.g., "ls").
	Command string `json:"command"`

	// Locations is the number of locations scanned.
	Locations int `json:"locations"`

	// Keys is the number of keys emitted, for listings.
	Keys int `json:"keys,omitempty"`

	// Failed is the number of failed checks or scans.
	Failed int `json:"failed"`

	// Duration is the total run duration.
	Duration time.Duration `json:"duration_ns"`

	// DurationHuman is a human-readable duration string.
	DurationHuman string `json:"duration"`
}

// Writer errors.
var (
	// ErrWriterClosed is returned when writing to a closed writer.
	ErrWriterClosed = errors.New("writer is closed")
)

// WriteError wraps errors that occur during write operations.
type WriteError struct {
	Op  string // Operation that failed (e.g., "marshal_data", "write")
	Err error  // Underlying error
}

func (e *WriteError) Error() string {
	return "output: " + e.Op + ": " + e.Err.Error()
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
