package scan

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidLocation is the sentinel matched by every *InvalidLocationError.
var ErrInvalidLocation = errors.New("invalid location")

// InvalidLocationError reports a location URL that cannot be split into a
// bucket and a prefix.
type InvalidLocationError struct {
	Location string
	Reason   string
	Err      error
}

func (e *InvalidLocationError) Error() string {
	msg := fmt.Sprintf("invalid location %q: %s", e.Location, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is makes errors.Is(err, ErrInvalidLocation) true for every InvalidLocationError.
func (e *InvalidLocationError) Is(target error) bool {
	return target == ErrInvalidLocation
}

func (e *InvalidLocationError) Unwrap() error {
	return e.Err
}

// Location is a bucket plus a key prefix.
type Location struct {
	// Bucket is the container name taken from the URL host.
	Bucket string

	// Prefix is the URL path without its leading separator. Empty for the
	// bucket root.
	Prefix string
}

// String returns the location as an s3:// URL.
func (l Location) String() string {
	return "s3://" + l.Bucket + "/" + l.Prefix
}

// ParseLocation splits a storage URL into bucket and prefix.
//
// The scheme is not interpreted; only host and path are used. The path is
// taken verbatim, so percent signs stay part of the key:
//
//	s3://my-bucket/path/to/data/  → {my-bucket, path/to/data/}
//	s3://my-bucket/run%3D1/       → {my-bucket, run%3D1/}
//	s3n://my-bucket               → {my-bucket, ""}
//	not-a-url                     → InvalidLocationError (no host)
func ParseLocation(location string) (Location, error) {
	authority, prefix := splitAuthority(location)

	u, err := url.Parse(authority)
	if err != nil {
		return Location{}, &InvalidLocationError{Location: location, Reason: "cannot parse URL", Err: err}
	}
	if u.Host == "" {
		return Location{}, &InvalidLocationError{Location: location, Reason: "missing bucket (URL host)"}
	}
	return Location{Bucket: u.Host, Prefix: prefix}, nil
}

// splitAuthority cuts location at the first "/" after "scheme://". Object
// keys are not URL-encoded, so the remainder never goes through url.Parse.
func splitAuthority(location string) (authority, prefix string) {
	start := 0
	if i := strings.Index(location, "://"); i >= 0 {
		start = i + len("://")
	}
	if j := strings.IndexByte(location[start:], '/'); j >= 0 {
		return location[:start+j], location[start+j+1:]
	}
	return location, ""
}
