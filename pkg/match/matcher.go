// Package match provides glob matching over object keys.
//
// Patterns use doublestar syntax: "*" stays within a path segment, "**"
// crosses segments, and "{a,b}" / "[0-9]" behave as in shell globs. Keys are
// matched as opaque strings; no path cleaning is applied.
package match

import (
	"errors"

	"github.com/bmatcuk/doublestar/v4"
)

// Errors returned by Matcher construction.
var (
	// ErrInvalidPattern is returned when a pattern cannot be compiled.
	ErrInvalidPattern = errors.New("invalid glob pattern")
)

// PatternError wraps pattern-related errors with context.
type PatternError struct {
	Pattern string
	Err     error
}

func (e *PatternError) Error() string {
	return "pattern " + e.Pattern + ": " + e.Err.Error()
}

func (e *PatternError) Unwrap() error {
	return e.Err
}

// Config configures a Matcher.
type Config struct {
	// Includes are patterns a key must match (at least one).
	// Empty means every key is included.
	Includes []string

	// Excludes are patterns a key must not match (any).
	Excludes []string
}

// Matcher evaluates include/exclude patterns against object keys.
//
// The Matcher is safe for concurrent use after creation.
type Matcher struct {
	includes []string
	excludes []string
}

// New validates the configured patterns and returns a Matcher.
func New(cfg Config) (*Matcher, error) {
	includes, err := compile(cfg.Includes)
	if err != nil {
		return nil, err
	}
	excludes, err := compile(cfg.Excludes)
	if err != nil {
		return nil, err
	}
	return &Matcher{includes: includes, excludes: excludes}, nil
}

func compile(patterns []string) ([]string, error) {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p == "" || !doublestar.ValidatePattern(p) {
			return nil, &PatternError{Pattern: p, Err: ErrInvalidPattern}
		}
		out = append(out, p)
	}
	return out, nil
}

// Match returns true if key matches at least one include pattern (or there
// are none) and no exclude pattern.
func (m *Matcher) Match(key string) bool {
	if len(m.includes) > 0 && !anyMatch(m.includes, key) {
		return false
	}
	return !anyMatch(m.excludes, key)
}

// IsZero reports whether the matcher has no patterns and so accepts every key.
func (m *Matcher) IsZero() bool {
	return len(m.includes) == 0 && len(m.excludes) == 0
}

// IncludePatterns returns the include patterns.
func (m *Matcher) IncludePatterns() []string {
	return append([]string(nil), m.includes...)
}

// ExcludePatterns returns the exclude patterns.
func (m *Matcher) ExcludePatterns() []string {
	return append([]string(nil), m.excludes...)
}

func anyMatch(patterns []string, key string) bool {
	for _, p := range patterns {
		// Patterns were validated in New, so Match cannot fail here.
		if ok, _ := doublestar.Match(p, key); ok {
			return true
		}
	}
	return false
}
