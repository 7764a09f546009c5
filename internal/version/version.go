// Package version provides version information for urbanmd.
package version

// Version is the version of urbanmd. This can be overridden at build time using ldflags.
var Version = "development"

// Commit is the git commit hash. This can be overridden at build time using ldflags.
var Commit = "unknown"

// String returns the full version string including the commit hash if available.
func String() string {
	if Commit != "unknown" && Commit != "" {
		return Version + "+" + Commit
	}
	return Version
}

// UserAgent returns the User-Agent header value sent to the backend.
func UserAgent() string {
	return "urbanmd-cli/" + String()
}
