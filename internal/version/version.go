// Package version holds the release version reported by the CLI and the HTTP API.
package version

// Current is overridden at build time with -ldflags "-X .../internal/version.Current=x.y.z".
var Current = "0.3.0"
