// Package buildinfo carries the version stamped in at link time.
package buildinfo

// Version is set at build time via -ldflags.
var Version = "dev"

// Commit is set at build time via -ldflags.
var Commit = "unknown"

// Date is set at build time via -ldflags.
var Date = "unknown"

// Short returns a compact build identifier for the window title and boot
// banner.
func Short() string {
	if Version != "" && Version != "dev" {
		return Version
	}
	if Commit != "" && Commit != "unknown" {
		if len(Commit) > 7 {
			return Commit[:7]
		}
		return Commit
	}
	return "dev"
}

// Banner returns the boot banner line.
func Banner() string {
	if Date != "" && Date != "unknown" {
		return "kthreads " + Short() + " (" + Date + ")"
	}
	return "kthreads " + Short()
}
