// Package config loads the YAML configuration of a zaloga node.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/erazemk/zaloga/internal/kv"
)

// Remote kinds.
const (
	RemoteFile     = "file"
	RemoteMemory   = "memory"
	RemoteGitHub   = "github"
	RemoteRedis    = "redis"
	RemotePostgres = "postgres"
)

// Config is the full node configuration.
type Config struct {
	// Data is the local replica path.
	Data  string `yaml:"data"`
	Store string `yaml:"store"`
	// User is the user id edits are attributed to on this device.
	User   string `yaml:"user"`
	Log    string `yaml:"log"`
	Remote Remote `yaml:"remote"`
	Sync   Sync   `yaml:"sync"`
	HTTP   HTTP   `yaml:"http"`
}

// Remote selects where the shared document lives.
type Remote struct {
	Kind     string   `yaml:"kind"`
	Path     string   `yaml:"path"`
	GitHub   GitHub   `yaml:"github"`
	Redis    Redis    `yaml:"redis"`
	Postgres Postgres `yaml:"postgres"`
}

// GitHub locates the document in a repository. The token is read from
// the environment variable TokenEnv names.
type GitHub struct {
	Owner    string `yaml:"owner"`
	Repo     string `yaml:"repo"`
	Path     string `yaml:"path"`
	Branch   string `yaml:"branch"`
	BaseURL  string `yaml:"base_url"`
	TokenEnv string `yaml:"token_env"`
}

// Token returns the credential from the environment.
func (g GitHub) Token() string {
	return os.Getenv(g.TokenEnv)
}

type Redis struct {
	URL string `yaml:"url"`
	Key string `yaml:"key"`
}

type Postgres struct {
	DSN  string `yaml:"dsn"`
	Name string `yaml:"name"`
}

type Sync struct {
	Interval    time.Duration `yaml:"interval"`
	MaxAttempts int           `yaml:"max_attempts"`
}

type HTTP struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Data:  "zaloga.sqlite3",
		Store: kv.BackendSQLite,
		Remote: Remote{
			Kind: RemoteFile,
			Path: "data/sync-data.json",
			GitHub: GitHub{
				Path:     "sync-data.json",
				Branch:   "main",
				TokenEnv: "GITHUB_TOKEN",
			},
			Redis:    Redis{Key: "zaloga:document"},
			Postgres: Postgres{Name: "default"},
		},
		Sync: Sync{
			Interval:    30 * time.Second,
			MaxAttempts: 3,
		},
		HTTP: HTTP{Addr: ":8080"},
	}
}

// Load reads path over the defaults. An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first problem with c.
func (c Config) Validate() error {
	if c.Data == "" {
		return errors.New("data path is required")
	}
	switch c.Store {
	case kv.BackendSQLite, kv.BackendBolt:
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}

	r := c.Remote
	switch r.Kind {
	case RemoteMemory:
	case RemoteFile:
		if r.Path == "" {
			return errors.New("remote.path is required for the file remote")
		}
	case RemoteGitHub:
		if r.GitHub.Owner == "" || r.GitHub.Repo == "" || r.GitHub.Path == "" {
			return errors.New("remote.github needs owner, repo and path")
		}
		if r.GitHub.TokenEnv == "" {
			return errors.New("remote.github.token_env is required")
		}
	case RemoteRedis:
		if r.Redis.URL == "" || r.Redis.Key == "" {
			return errors.New("remote.redis needs url and key")
		}
	case RemotePostgres:
		if r.Postgres.DSN == "" || r.Postgres.Name == "" {
			return errors.New("remote.postgres needs dsn and name")
		}
	default:
		return fmt.Errorf("unknown remote kind %q", r.Kind)
	}

	if c.Sync.Interval <= 0 {
		return errors.New("sync.interval must be positive")
	}
	if c.Sync.MaxAttempts < 1 {
		return errors.New("sync.max_attempts must be at least 1")
	}
	return nil
}
