// Package version carries the build metadata reported by the pulse server's
// /health endpoint and startup log.
package version

// Overridden at build time via -ldflags "-X ...".
var (
	// Version is the pulse release version.
	Version = "dev"
	// GitSHA is the git commit the binary was built from.
	GitSHA = "unknown"
	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)
