package version

import (
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	orig, origCommit := Version, GitCommit
	defer func() { Version, GitCommit = orig, origCommit }()

	Version, GitCommit = "1.2.3", "abcdef0123"
	info := Get()
	if info.Version != "1.2.3" {
		t.Errorf("Version = %q", info.Version)
	}
	if info.GitCommit != "abcdef0" {
		t.Errorf("commit should be shortened, got %q", info.GitCommit)
	}
	if !strings.HasPrefix(info.Short(), "1.2.3-abcdef0") {
		t.Errorf("Short() = %q", info.Short())
	}
}

func TestUserAgent(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()
	Version = "2.0.0"

	ua := UserAgent()
	if !strings.HasPrefix(ua, "apikit/2.0.0 (go") {
		t.Errorf("UserAgent() = %q", ua)
	}
}
