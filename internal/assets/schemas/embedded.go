// Package schemasassets embeds the JSON schemas s3scan validates against,
// so validation works regardless of the working directory.
package schemasassets

import _ "embed"

// CheckManifestSchema is the embedded check-manifest JSON schema.
//
//go:embed check-manifest.schema.json
var CheckManifestSchema []byte
