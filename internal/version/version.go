// Package version carries the build version stamped in at link time.
package version

// Version is the gateway build version. Overridden via ldflags on
// release builds; "dev" otherwise.
var Version = "dev"
