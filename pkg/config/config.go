// Package config loads neptune-utils settings from a TOML file and the
// environment.
//
// Values are resolved in this order, later sources winning: built-in
// defaults, the config file, environment variables, then command-line flags
// (applied by the CLI on the returned struct).
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	neperrors "github.com/matzehuels/neptune-utils/pkg/errors"
)

const appName = "neptune-utils"

// Cache backends.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheMongo = "mongo"
	CacheNone  = "none"
)

// Config is the complete set of settings.
type Config struct {
	Neptune Neptune `toml:"neptune"`
	Gremlin Gremlin `toml:"gremlin"`
	Loader  Loader  `toml:"loader"`
	Cache   Cache   `toml:"cache"`
	Server  Server  `toml:"server"`
}

// Neptune describes how to reach the cluster.
type Neptune struct {
	Endpoint         string `toml:"endpoint"`
	Port             int    `toml:"port"`
	Region           string `toml:"region"`
	IAM              bool   `toml:"iam"`
	RoleARN          string `toml:"role_arn"`
	ProxyDNS         string `toml:"proxy_dns"`
	ProxyPort        int    `toml:"proxy_port"`
	RemoveHostHeader bool   `toml:"remove_host_header"`
	// UseTLS is a pointer so an absent key keeps the default of true.
	UseTLS *bool `toml:"use_tls"`
}

// TLS reports whether connections use TLS.
func (n Neptune) TLS() bool {
	return n.UseTLS == nil || *n.UseTLS
}

// Gremlin tunes the WebSocket client and batch writer.
type Gremlin struct {
	PoolSize      int           `toml:"pool_size"`
	BatchSize     int           `toml:"batch_size"`
	MaxRetries    int           `toml:"max_retries"`
	RetryInterval time.Duration `toml:"retry_interval"`
	ReadTimeout   time.Duration `toml:"read_timeout"`
	MaxInFlight   int           `toml:"max_in_flight"`
	// RateLimit is the maximum number of batches submitted per second.
	// Zero disables limiting.
	RateLimit float64 `toml:"rate_limit"`
}

// Loader holds bulk loader defaults.
type Loader struct {
	IAMRoleARN   string        `toml:"iam_role_arn"`
	Format       string        `toml:"format"`
	Parallelism  string        `toml:"parallelism"`
	FailOnError  bool          `toml:"fail_on_error"`
	PollInterval time.Duration `toml:"poll_interval"`
}

// Cache selects and configures the metadata cache backend.
type Cache struct {
	Backend       string        `toml:"backend"`
	TTL           time.Duration `toml:"ttl"`
	Dir           string        `toml:"dir"`
	RedisAddr     string        `toml:"redis_addr"`
	MongoURI      string        `toml:"mongo_uri"`
	MongoDatabase string        `toml:"mongo_database"`
	// Prefix scopes every key, so clusters can share a Redis or MongoDB
	// backend.
	Prefix string `toml:"prefix"`
}

// Server configures the HTTP service.
type Server struct {
	Addr string `toml:"addr"`
}

// Default returns a Config populated with built-in defaults.
func Default() *Config {
	return &Config{
		Neptune: Neptune{
			Port:      8182,
			ProxyPort: 8182,
		},
		Gremlin: Gremlin{
			PoolSize:      4,
			BatchSize:     100,
			MaxRetries:    5,
			RetryInterval: 2 * time.Second,
			ReadTimeout:   60 * time.Second,
			MaxInFlight:   8,
		},
		Loader: Loader{
			Format:       "csv",
			Parallelism:  "MEDIUM",
			PollInterval: 2 * time.Second,
		},
		Cache: Cache{
			Backend:       CacheFile,
			TTL:           24 * time.Hour,
			MongoDatabase: "neptune_utils",
		},
		Server: Server{
			Addr: ":8080",
		},
	}
}

// DefaultPath returns the default config file location using the XDG
// standard (~/.config/neptune-utils/config.toml).
func DefaultPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

func configDir() (string, error) {
	if home := os.Getenv("XDG_CONFIG_HOME"); home != "" {
		return filepath.Join(home, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName), nil
}

// CacheDir returns the default file cache directory
// (~/.cache/neptune-utils/, honouring XDG_CACHE_HOME).
func CacheDir() (string, error) {
	if home := os.Getenv("XDG_CACHE_HOME"); home != "" {
		return filepath.Join(home, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// Load reads the config file at path on top of the defaults and then applies
// the environment. An empty path means the default location, which may be
// absent; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err == nil {
			path = p
		}
	}

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			switch {
			case errors.Is(err, fs.ErrNotExist) && !explicit:
			case errors.Is(err, fs.ErrNotExist):
				return nil, neperrors.Wrap(neperrors.ErrCodeFileNotFound, err, "config file not found: %s", path)
			default:
				return nil, neperrors.Wrap(neperrors.ErrCodeInvalidConfig, err, "parse %s", path)
			}
		}
	}

	cfg.ApplyEnv(os.LookupEnv)
	return cfg, nil
}

// Parse decodes TOML data on top of the defaults without consulting the
// environment.
func Parse(data string) (*Config, error) {
	cfg := Default()
	if _, err := toml.Decode(data, cfg); err != nil {
		return nil, neperrors.Wrap(neperrors.ErrCodeInvalidConfig, err, "parse config")
	}
	return cfg, nil
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overlays environment variables onto c. Unset variables leave the
// current value in place; malformed numbers are ignored.
func (c *Config) ApplyEnv(lookup LookupFunc) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				*dst = n
			}
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = Truthy(v)
		}
	}

	str("NEPTUNE_CLUSTER_ENDPOINT", &c.Neptune.Endpoint)
	num("NEPTUNE_CLUSTER_PORT", &c.Neptune.Port)
	str("AWS_REGION", &c.Neptune.Region)
	str("SERVICE_REGION", &c.Neptune.Region)
	flag("NEPTUNE_IAM", &c.Neptune.IAM)
	str("NEPTUNE_ROLE_ARN", &c.Neptune.RoleARN)
	str("NEPTUNE_PROXY_DNS", &c.Neptune.ProxyDNS)
	num("NEPTUNE_PROXY_PORT", &c.Neptune.ProxyPort)
	flag("NEPTUNE_REMOVE_HOST_HEADER", &c.Neptune.RemoveHostHeader)
	str("NEPTUNE_LOAD_IAM_ROLE_ARN", &c.Loader.IAMRoleARN)
	str("REDIS_ADDR", &c.Cache.RedisAddr)
	str("MONGO_URI", &c.Cache.MongoURI)
}

// Truthy interprets common spellings of a boolean flag.
func Truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	}
	return false
}

// Validate checks that the configuration is usable. The endpoint itself is
// only required by commands that talk to Neptune, see [Config.RequireEndpoint].
func (c *Config) Validate() error {
	if err := neperrors.ValidatePort(c.Neptune.Port); err != nil {
		return err
	}
	if c.Neptune.ProxyDNS != "" {
		if err := neperrors.ValidatePort(c.Neptune.ProxyPort); err != nil {
			return err
		}
	}
	if c.Neptune.IAM {
		if err := neperrors.ValidateRegion(c.Neptune.Region); err != nil {
			return err
		}
	}
	if c.Neptune.RoleARN != "" {
		if err := neperrors.ValidateRoleARN(c.Neptune.RoleARN); err != nil {
			return err
		}
	}
	if c.Gremlin.PoolSize < 1 {
		return neperrors.New(neperrors.ErrCodeInvalidConfig, "gremlin.pool_size must be at least 1")
	}
	if c.Gremlin.BatchSize < 1 {
		return neperrors.New(neperrors.ErrCodeInvalidConfig, "gremlin.batch_size must be at least 1")
	}
	if c.Gremlin.MaxRetries < 0 {
		return neperrors.New(neperrors.ErrCodeInvalidConfig, "gremlin.max_retries cannot be negative")
	}
	if c.Gremlin.MaxInFlight < 1 {
		return neperrors.New(neperrors.ErrCodeInvalidConfig, "gremlin.max_in_flight must be at least 1")
	}
	if c.Gremlin.RateLimit < 0 {
		return neperrors.New(neperrors.ErrCodeInvalidConfig, "gremlin.rate_limit cannot be negative")
	}
	switch c.Cache.Backend {
	case CacheFile, CacheNone:
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			return neperrors.New(neperrors.ErrCodeInvalidConfig, "cache.redis_addr is required for the redis backend")
		}
	case CacheMongo:
		if c.Cache.MongoURI == "" {
			return neperrors.New(neperrors.ErrCodeInvalidConfig, "cache.mongo_uri is required for the mongo backend")
		}
	default:
		return neperrors.New(neperrors.ErrCodeInvalidConfig, "unknown cache backend: %q", c.Cache.Backend)
	}
	return nil
}

// RequireEndpoint validates the Neptune endpoint.
func (c *Config) RequireEndpoint() error {
	if c.Neptune.Endpoint == "" {
		return neperrors.New(neperrors.ErrCodeInvalidConfig,
			"no Neptune endpoint configured (set --endpoint or NEPTUNE_CLUSTER_ENDPOINT)")
	}
	return neperrors.ValidateEndpoint(c.Neptune.Endpoint)
}
