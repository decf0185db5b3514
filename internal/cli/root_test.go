package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/neptune-utils/pkg/config"
	"github.com/matzehuels/neptune-utils/pkg/errors"
)

func newTestCLI(t *testing.T) (*CLI, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	c := New(&bytes.Buffer{}, log.InfoLevel)
	c.Out = &out
	return c, &out
}

func TestRootCommandFlagsOverrideConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	data := "[neptune]\nendpoint = \"from-file.example.com\"\nport = 8183\n\n[cache]\nbackend = \"none\"\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("NEPTUNE_CLUSTER_ENDPOINT", "")

	c, _ := newTestCLI(t)
	root := c.RootCommand()
	root.SetArgs([]string{"--config", path, "--endpoint", "from-flag.example.com", "version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	cfg := c.config()
	if cfg.Neptune.Endpoint != "from-flag.example.com" {
		t.Errorf("Endpoint = %q, want flag value", cfg.Neptune.Endpoint)
	}
	if cfg.Neptune.Port != 8183 {
		t.Errorf("Port = %d, want 8183 from file", cfg.Neptune.Port)
	}
}

func TestRootCommandMissingConfig(t *testing.T) {
	c, _ := newTestCLI(t)
	root := c.RootCommand()
	root.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.toml"), "version"})
	root.SetErr(&bytes.Buffer{})

	err := root.Execute()
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("Execute() error = %v, want FILE_NOT_FOUND", err)
	}
}

func TestEndpointRequired(t *testing.T) {
	c, _ := newTestCLI(t)
	c.cfg = config.Default()

	_, err := c.gremlinClient(t.Context())
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("gremlinClient() error = %v, want INVALID_CONFIG", err)
	}
}

func TestRetryPolicy(t *testing.T) {
	c, _ := newTestCLI(t)
	c.cfg = config.Default()
	c.cfg.Gremlin.MaxRetries = 0

	if got := c.retryPolicy().Attempts; got != 1 {
		t.Errorf("Attempts = %d, want 1", got)
	}
	if c.limiter() != nil {
		t.Error("limiter() should be nil without a rate limit")
	}

	c.cfg.Gremlin.RateLimit = 10
	if c.limiter() == nil {
		t.Error("limiter() should be set with a rate limit")
	}
}

func TestKeyerPrefix(t *testing.T) {
	c, _ := newTestCLI(t)
	c.cfg = config.Default()
	plain := c.keyer().StatusKey("db.example.com")

	c.cfg.Cache.Prefix = "prod:"
	scoped := c.keyer().StatusKey("db.example.com")
	if scoped != "prod:"+plain {
		t.Errorf("StatusKey() = %q, want %q", scoped, "prod:"+plain)
	}
}
