// Package buildinfo exposes the identifiers stamped into the binary at
// build time, e.g.
//
//	go build -ldflags "-X ember/internal/buildinfo.Version=v0.3.0"
package buildinfo

var (
	// Version is the release tag.
	Version = "dev"
	// Commit is the short VCS revision of the build.
	Commit = ""
	// Date is the build timestamp.
	Date = ""
)

// Short returns the most specific identifier available, for the window
// title and tool banners.
func Short() string {
	switch {
	case Version != "" && Version != "dev":
		return Version
	case Commit != "":
		return Commit
	}
	return "dev"
}
