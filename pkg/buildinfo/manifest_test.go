package buildinfo

import (
	"slices"
	"strings"
	"testing"
)

func TestPackageManifest(t *testing.T) {
	m := PackageManifest()

	if m.Name != "neptune_python_utils" {
		t.Errorf("Name = %q, want %q", m.Name, "neptune_python_utils")
	}
	if m.Version != "1.0" {
		t.Errorf("Version = %q, want %q", m.Version, "1.0")
	}
	if want := []string{"neptune_python_utils"}; !slices.Equal(m.Packages, want) {
		t.Errorf("Packages = %v, want %v", m.Packages, want)
	}
	want := []string{"gremlinpython", "requests", "backoff", "cchardet", "aiodns", "idna-ssl"}
	if !slices.Equal(m.Requires, want) {
		t.Errorf("Requires = %v, want %v", m.Requires, want)
	}
}

func TestPackageManifestIsCopy(t *testing.T) {
	m := PackageManifest()
	m.Requires[0] = "changed"
	m.Packages[0] = "changed"

	again := PackageManifest()
	if again.Requires[0] != "gremlinpython" || again.Packages[0] != "neptune_python_utils" {
		t.Error("PackageManifest should return an independent copy")
	}
}

func TestRequirements(t *testing.T) {
	reqs := Requirements()
	m := PackageManifest()
	if len(reqs) != len(m.Requires) {
		t.Fatalf("got %d requirements, want %d", len(reqs), len(m.Requires))
	}
	for i, r := range reqs {
		if r.Name != m.Requires[i] {
			t.Errorf("requirement %d = %q, want %q", i, r.Name, m.Requires[i])
		}
		if !strings.HasPrefix(r.Component, "pkg/") {
			t.Errorf("requirement %q has no component: %q", r.Name, r.Component)
		}
	}
}

func TestManifestString(t *testing.T) {
	s := PackageManifest().String()
	for _, line := range []string{
		"name: neptune_python_utils",
		"version: 1.0",
		"install_requires: gremlinpython, requests, backoff, cchardet, aiodns, idna-ssl",
	} {
		if !strings.Contains(s, line) {
			t.Errorf("String() missing %q:\n%s", line, s)
		}
	}
}

func TestUserAgent(t *testing.T) {
	if got := UserAgent(); got != "neptune-utils/"+Version {
		t.Errorf("UserAgent() = %q", got)
	}
}
