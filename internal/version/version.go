// Package version holds build metadata injected with
// -ldflags "-X sysscope/internal/version.Version=...".
package version

import "fmt"

var (
	// Version is a SemVer tag for releases, empty for dev builds.
	Version = ""
	// Commit is the short git SHA.
	Commit = ""
	// Date is the UTC build timestamp (RFC3339).
	Date = ""
)

// String returns Version, "dev-<sha>" for untagged builds, or "dev".
func String() string {
	if Version != "" {
		return Version
	}
	if Commit != "" {
		return "dev-" + Commit
	}
	return "dev"
}

// Long renders all metadata for the version command.
func Long() string {
	date := Date
	if date == "" {
		date = "unknown"
	}
	return fmt.Sprintf("sysscope %s (commit %s, built %s)", String(), orNone(Commit), date)
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
