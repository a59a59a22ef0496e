package buildinfo

import "testing"

func TestShort(t *testing.T) {
	defer func(v, c, d string) { Version, Commit, Date = v, c, d }(Version, Commit, Date)

	Version, Commit, Date = "dev", "unknown", "unknown"
	if got := Short(); got != "dev" {
		t.Fatalf("Short()=%q, want dev", got)
	}
	Commit = "0123456789abcdef"
	if got := Short(); got != "0123456" {
		t.Fatalf("Short()=%q, want commit prefix", got)
	}
	Version = "v1.2.0"
	if got := Short(); got != "v1.2.0" {
		t.Fatalf("Short()=%q, want version", got)
	}
	Date = "2026-10-14"
	if got := Banner(); got != "kthreads v1.2.0 (2026-10-14)" {
		t.Fatalf("Banner()=%q", got)
	}
}
