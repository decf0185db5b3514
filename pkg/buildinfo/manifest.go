package buildinfo

import (
	"fmt"
	"strings"
)

// Manifest describes the distributable package: its name, version, the
// packages it ships and the runtime requirements it declares.
type Manifest struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Packages    []string `json:"packages"`
	Requires    []string `json:"install_requires"`
}

// Requirement ties a declared runtime requirement to the concern it covers
// and the component of this module that covers it.
type Requirement struct {
	Name      string `json:"name"`
	Concern   string `json:"concern"`
	Component string `json:"component"`
}

var requirements = []Requirement{
	{Name: "gremlinpython", Concern: "Gremlin traversal client", Component: "pkg/gremlin"},
	{Name: "requests", Concern: "HTTP client", Component: "pkg/httputil"},
	{Name: "backoff", Concern: "retry with backoff", Component: "pkg/retry"},
	{Name: "cchardet", Concern: "response charset detection", Component: "pkg/httputil"},
	{Name: "aiodns", Concern: "DNS resolution", Component: "pkg/endpoints"},
	{Name: "idna-ssl", Concern: "IDNA host names", Component: "pkg/endpoints"},
}

// PackageManifest returns the package manifest. Every call returns a fresh
// copy, so callers may modify the result.
func PackageManifest() Manifest {
	req := make([]string, len(requirements))
	for i, r := range requirements {
		req[i] = r.Name
	}
	return Manifest{
		Name:        "neptune_python_utils",
		Version:     "1.0",
		Description: "Python 3 library that simplifies using Gremlin-Python to connect to Amazon Neptune",
		Packages:    []string{"neptune_python_utils"},
		Requires:    req,
	}
}

// Requirements returns the declared requirements in manifest order.
func Requirements() []Requirement {
	return append([]Requirement(nil), requirements...)
}

// String renders the manifest as "key: value" lines.
func (m Manifest) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "name: %s\n", m.Name)
	fmt.Fprintf(&b, "version: %s\n", m.Version)
	fmt.Fprintf(&b, "description: %s\n", m.Description)
	fmt.Fprintf(&b, "packages: %s\n", strings.Join(m.Packages, ", "))
	fmt.Fprintf(&b, "install_requires: %s\n", strings.Join(m.Requires, ", "))
	return b.String()
}
