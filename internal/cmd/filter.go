package cmd

import (
	"github.com/spf13/pflag"

	"github.com/3leaps/s3scan/pkg/manifest"
	"github.com/3leaps/s3scan/pkg/scan"
)

// filterFlags are the key filter flags shared by empty and ls.
type filterFlags struct {
	includes []string
	excludes []string
	regex    string
}

func (f *filterFlags) register(fs *pflag.FlagSet) {
	fs.StringArrayVar(&f.includes, "include", nil, "Glob a key must match (repeatable)")
	fs.StringArrayVar(&f.excludes, "exclude", nil, "Glob that rejects a key (repeatable)")
	fs.StringVar(&f.regex, "regex", "", "Regular expression a key must match")
}

func (f *filterFlags) manifestFilter(includeMarkers bool) manifest.Filter {
	return manifest.Filter{
		Include:        f.includes,
		Exclude:        f.excludes,
		KeyRegex:       f.regex,
		IncludeMarkers: includeMarkers,
	}
}

// keyFilter builds the scan filter for the flags.
func (f *filterFlags) keyFilter(includeMarkers bool) (scan.KeyFilter, error) {
	return f.manifestFilter(includeMarkers).KeyFilter()
}

// describe names the filter for output records.
func (f *filterFlags) describe(includeMarkers bool) string {
	custom := len(f.includes) > 0 || len(f.excludes) > 0 || f.regex != ""
	switch {
	case custom:
		return "custom"
	case includeMarkers:
		return "all"
	default:
		return "default"
	}
}
