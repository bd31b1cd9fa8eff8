// Package buildinfo carries the release identity stamped into the
// ledgerline binary at link time.
package buildinfo

// Stamped via -ldflags -X at release build; the zero values mark a
// local development build.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)
