package version

import "testing"

func TestString(t *testing.T) {
	defer func(v, c string) { Version, Commit = v, c }(Version, Commit)

	Version, Commit = "", ""
	if got := String(); got != "dev" {
		t.Fatalf("expected dev, got %s", got)
	}
	Commit = "abc123"
	if got := String(); got != "dev-abc123" {
		t.Fatalf("expected dev-abc123, got %s", got)
	}
	Version = "v1.2.0"
	if got := String(); got != "v1.2.0" {
		t.Fatalf("expected v1.2.0, got %s", got)
	}
}

func TestLong(t *testing.T) {
	defer func(v, c, d string) { Version, Commit, Date = v, c, d }(Version, Commit, Date)
	Version, Commit, Date = "", "", ""
	if got := Long(); got != "sysscope dev (commit none, built unknown)" {
		t.Fatalf("unexpected long version %q", got)
	}
}
