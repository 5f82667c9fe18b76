// Package config loads client configuration from YAML with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/vhmesh/internal/seal"
)

// Environments.
const (
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"
)

// DefaultPeer is used when peers are left unset.
const DefaultPeer = "http://localhost:7777/gun"

// Environment variables that override file values.
const (
	EnvVarRootSecret  = "VH_ROOT_SECRET"
	EnvVarRootSalt    = "VH_ROOT_SALT"
	EnvVarStoragePath = "VH_STORAGE_PATH"
	EnvVarPeers       = "VH_PEERS"
	EnvVarEnv         = "VH_ENV"
)

// Config is the client configuration.
type Config struct {
	Env   string   `yaml:"env"`
	Peers []string `yaml:"peers"`

	Storage StorageConfig `yaml:"storage"`

	// RequireSession gates the user/chat/outbox namespaces until a session
	// is marked ready.
	RequireSession bool `yaml:"require_session"`

	AckTimeout        time.Duration `yaml:"ack_timeout"`
	ReadTimeout       time.Duration `yaml:"read_timeout"`
	RemoteWaitTimeout time.Duration `yaml:"remote_wait_timeout"`
}

// StorageConfig configures the encrypted local store.
type StorageConfig struct {
	// Path of the SQLite file. Empty selects the memory backend.
	Path          string `yaml:"path"`
	RootSecret    string `yaml:"root_secret"`
	RootSalt      string `yaml:"root_salt"`
	KeyIterations int    `yaml:"key_iterations"`
}

// Default returns a development configuration.
func Default() Config {
	return Config{
		Env:               EnvDevelopment,
		Peers:             []string{DefaultPeer},
		RequireSession:    true,
		AckTimeout:        time.Second,
		ReadTimeout:       2 * time.Second,
		RemoteWaitTimeout: 500 * time.Millisecond,
		Storage: StorageConfig{
			KeyIterations: seal.DefaultIterations,
		},
	}
}

// Load reads path (when non-empty) over the defaults, then applies
// environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.ApplyEnv(os.LookupEnv)
	cfg.Peers = NormalizePeers(cfg.Peers)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the environment. lookup is os.LookupEnv
// outside tests.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvVarRootSecret); ok {
		c.Storage.RootSecret = v
	}
	if v, ok := lookup(EnvVarRootSalt); ok {
		c.Storage.RootSalt = v
	}
	if v, ok := lookup(EnvVarStoragePath); ok {
		c.Storage.Path = v
	}
	if v, ok := lookup(EnvVarPeers); ok {
		if peers := splitPeers(v); len(peers) > 0 {
			c.Peers = peers
		}
	}
	if v, ok := lookup(EnvVarEnv); ok && v != "" {
		c.Env = v
	}
}

// Validate reports configuration errors. Production refuses the
// development key material.
func (c Config) Validate() error {
	var errs []error
	switch c.Env {
	case EnvDevelopment, EnvTest, EnvProduction:
	default:
		errs = append(errs, fmt.Errorf("env: unknown environment %q", c.Env))
	}
	if c.AckTimeout < 0 || c.ReadTimeout < 0 || c.RemoteWaitTimeout < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	if c.Storage.KeyIterations < 0 {
		errs = append(errs, errors.New("storage.key_iterations: must not be negative"))
	}
	if c.Env == EnvProduction {
		if c.Storage.RootSecret == "" || c.Storage.RootSecret == seal.DevRootSecret {
			errs = append(errs, errors.New("storage.root_secret: production requires a real root secret"))
		}
		if c.Storage.RootSalt == "" || c.Storage.RootSalt == seal.DevRootSalt {
			errs = append(errs, errors.New("storage.root_salt: production requires a real root salt"))
		}
	}
	return errors.Join(errs...)
}

// KeySource builds the storage key source for this configuration.
func (c Config) KeySource() *seal.KeySource {
	if c.Storage.KeyIterations > 0 {
		return seal.NewKeySourceWithIterations(c.Storage.RootSecret, c.Storage.RootSalt, c.Storage.KeyIterations)
	}
	return seal.NewKeySource(c.Storage.RootSecret, c.Storage.RootSalt)
}

// splitPeers reads a comma separated peer list, skipping blank entries.
func splitPeers(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// NormalizePeers trims peers, drops blank entries and makes every peer end
// in "/gun". A nil list yields DefaultPeer; an explicitly empty list stays
// empty and runs the client without relays.
func NormalizePeers(peers []string) []string {
	if peers == nil {
		return []string{DefaultPeer}
	}
	out := make([]string, 0, len(peers))
	for _, p := range peers {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.HasSuffix(p, "/gun") {
			p = strings.TrimRight(p, "/") + "/gun"
		}
		out = append(out, p)
	}
	return out
}

// String renders the configuration as YAML with secrets redacted.
func (c Config) String() string {
	redacted := c
	if redacted.Storage.RootSecret != "" {
		redacted.Storage.RootSecret = "<redacted " + strconv.Itoa(len(c.Storage.RootSecret)) + " bytes>"
	}
	data, err := yaml.Marshal(redacted)
	if err != nil {
		return err.Error()
	}
	return string(data)
}
