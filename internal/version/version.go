// Package version reports the conncheck build, stamped via -ldflags -X.
package version

import "fmt"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String formats the build as "conncheck <version> (commit <sha>, built <date>)".
func String() string {
	return fmt.Sprintf("conncheck %s (commit %s, built %s)", Version, Commit, Date)
}
