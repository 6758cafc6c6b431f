package common

// Version is set at build time via -ldflags
var Version = "dev"

// Build is the git commit hash, set at build time via -ldflags
var Build = "unknown"

// GetVersion returns the version string including the build hash
func GetVersion() string {
	return Version + " (" + Build + ")"
}
