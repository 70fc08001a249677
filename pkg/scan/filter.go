package scan

import (
	"regexp"
	"strings"

	"github.com/3leaps/s3scan/pkg/match"
)

// KeyFilter decides whether an object key takes part in a scan.
type KeyFilter func(key string) bool

// FolderMarkerSuffix is the suffix some Hadoop-era tools give the zero-byte
// object standing in for an empty directory.
const FolderMarkerSuffix = "$folder$"

// DefaultKeyFilter rejects directory markers (keys ending in "/") and folder
// markers (keys ending in "$folder$"), so a prefix holding only those counts
// as empty.
func DefaultKeyFilter(key string) bool {
	return !strings.HasSuffix(key, "/") && !strings.HasSuffix(key, FolderMarkerSuffix)
}

// AcceptAll accepts every key.
func AcceptAll(string) bool { return true }

// And accepts a key only when every filter does. And() accepts everything.
func And(filters ...KeyFilter) KeyFilter {
	return func(key string) bool {
		for _, f := range filters {
			if !f(key) {
				return false
			}
		}
		return true
	}
}

// Or accepts a key when any filter does. Or() accepts nothing.
func Or(filters ...KeyFilter) KeyFilter {
	return func(key string) bool {
		for _, f := range filters {
			if f(key) {
				return true
			}
		}
		return false
	}
}

// Not inverts f.
func Not(f KeyFilter) KeyFilter {
	return func(key string) bool { return !f(key) }
}

// HasSuffix accepts keys ending in any of the given suffixes.
func HasSuffix(suffixes ...string) KeyFilter {
	return func(key string) bool {
		for _, s := range suffixes {
			if strings.HasSuffix(key, s) {
				return true
			}
		}
		return false
	}
}

// MatchRegexp accepts keys matched by re.
func MatchRegexp(re *regexp.Regexp) KeyFilter {
	return re.MatchString
}

// Glob adapts a glob matcher into a KeyFilter.
func Glob(m *match.Matcher) KeyFilter {
	return m.Match
}
