package buildinfo

import (
	"strings"
	"testing"
)

func TestUserAgent(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()

	Version = "v1.4.0"
	if got := UserAgent(); !strings.HasPrefix(got, "feedload/v1.4.0 ") {
		t.Errorf("UserAgent() = %q, want prefix %q", got, "feedload/v1.4.0 ")
	}
}

func TestTemplate(t *testing.T) {
	if !strings.Contains(Template(), "{{.Name}} version "+Version) {
		t.Errorf("Template() = %q, missing name placeholder", Template())
	}
	if !strings.Contains(String(), "commit: "+Commit) {
		t.Errorf("String() = %q, missing commit", String())
	}
}
