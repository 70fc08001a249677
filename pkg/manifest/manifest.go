// Package manifest defines check manifests: a list of storage locations,
// each with the state it is expected to be in before a pipeline step runs.
//
// A typical ETL gate asserts that its staging locations are empty and its
// input location is populated:
//
//	version: "1"
//	checks:
//	  - name: raw input
//	    location: s3://etl-raw/in/
//	    expect: populated
//	  - name: processing
//	    location: s3://etl-raw/processing/
//	    expect: empty
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/3leaps/s3scan/pkg/match"
	"github.com/3leaps/s3scan/pkg/scan"
)

// SupportedVersion is the only manifest version understood.
const SupportedVersion = "1"

// Expectation is the state a location must be in for its check to pass.
type Expectation string

const (
	// ExpectEmpty requires no matching key under the location.
	ExpectEmpty Expectation = "empty"

	// ExpectPopulated requires at least one matching key.
	ExpectPopulated Expectation = "populated"
)

// Satisfied reports whether an observed emptiness meets the expectation.
func (e Expectation) Satisfied(empty bool) bool {
	if e == ExpectEmpty {
		return empty
	}
	return !empty
}

// Manifest is a set of location checks.
type Manifest struct {
	Version string  `json:"version" yaml:"version"`
	Checks  []Check `json:"checks" yaml:"checks"`
}

// Check is a single location expectation.
type Check struct {
	// Name labels the check in output. Defaults to the location.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	Location string      `json:"location" yaml:"location"`
	Expect   Expectation `json:"expect" yaml:"expect"`

	Filter Filter `json:"filter,omitempty" yaml:"filter,omitempty"`
}

// Filter narrows which keys count for a check.
type Filter struct {
	// Include and Exclude are glob patterns matched against full keys.
	Include []string `json:"include,omitempty" yaml:"include,omitempty"`
	Exclude []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`

	// KeyRegex is an additional regular expression keys must match.
	KeyRegex string `json:"key_regex,omitempty" yaml:"key_regex,omitempty"`

	// IncludeMarkers counts directory and $folder$ marker keys. Off by default.
	IncludeMarkers bool `json:"include_markers,omitempty" yaml:"include_markers,omitempty"`
}

// Semantic errors. Structural problems are reported by the schema as
// ValidationErrors.
var (
	ErrInvalidExpectation = errors.New("invalid expectation")
	ErrInvalidRegex       = errors.New("invalid key regex")
)

// CheckError reports a check whose location or filter does not compile.
type CheckError struct {
	Index int
	Field string
	Err   error
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("checks[%d].%s: %v", e.Index, e.Field, e.Err)
}

func (e *CheckError) Unwrap() error {
	return e.Err
}

// ApplyDefaults fills optional fields.
func (m *Manifest) ApplyDefaults() {
	if m.Version == "" {
		m.Version = SupportedVersion
	}
	for i := range m.Checks {
		if m.Checks[i].Name == "" {
			m.Checks[i].Name = m.Checks[i].Location
		}
	}
}

// Validate checks m against the schema, then checks that every location
// parses and every filter compiles. Call ApplyDefaults first for manifests
// built in code.
func (m *Manifest) Validate() error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to serialize manifest for validation: %w", err)
	}
	if err := ValidateRaw(data); err != nil {
		return err
	}
	return m.validateChecks()
}

// validateChecks runs the checks a schema cannot express.
func (m *Manifest) validateChecks() error {
	for i, c := range m.Checks {
		if _, err := scan.ParseLocation(c.Location); err != nil {
			return &CheckError{Index: i, Field: "location", Err: err}
		}
		if _, err := c.Filter.KeyFilter(); err != nil {
			return &CheckError{Index: i, Field: "filter", Err: err}
		}
	}
	return nil
}

// KeyFilter builds the scan filter described by f.
func (f Filter) KeyFilter() (scan.KeyFilter, error) {
	var filters []scan.KeyFilter
	if !f.IncludeMarkers {
		filters = append(filters, scan.DefaultKeyFilter)
	}

	if len(f.Include) > 0 || len(f.Exclude) > 0 {
		m, err := match.New(match.Config{Includes: f.Include, Excludes: f.Exclude})
		if err != nil {
			return nil, err
		}
		filters = append(filters, scan.Glob(m))
	}

	if f.KeyRegex != "" {
		re, err := regexp.Compile(f.KeyRegex)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRegex, err)
		}
		filters = append(filters, scan.MatchRegexp(re))
	}

	return scan.And(filters...), nil
}
