package buildinfo

import "testing"

func TestCurrentReturnsInjectedMetadata(t *testing.T) {
	originalVersion, originalNumber := Version, BuildNumber
	originalCommit, originalDate := GitCommit, BuildDate
	Version = "1.2.3-test"
	BuildNumber = "147"
	GitCommit = "abcdef1"
	BuildDate = "2024-05-01T00:00:00Z"
	t.Cleanup(func() {
		Version = originalVersion
		BuildNumber = originalNumber
		GitCommit = originalCommit
		BuildDate = originalDate
	})

	info := Current()
	if info.Version != "1.2.3-test" {
		t.Fatalf("expected version \"1.2.3-test\", got %q", info.Version)
	}
	if info.BuildNumber != "147" {
		t.Fatalf("expected build number \"147\", got %q", info.BuildNumber)
	}
	if info.GitCommit != "abcdef1" {
		t.Fatalf("expected git commit \"abcdef1\", got %q", info.GitCommit)
	}

	want := "fwversion 1.2.3-test (b147 @abcdef1, built 2024-05-01T00:00:00Z)"
	if got := info.String(); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
