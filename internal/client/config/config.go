package config

import "time"

// Config holds runtime settings for the vault CLI.
//
// Fields:
//   - ServerEndpointAddr: base URL of the backend HTTP API.
//   - DatabasePath: path of the local SQLite cache file.
//   - KeyringService: service name used in the OS secret store.
//   - OnlineCheckInterval: how often the client probes server reachability.
//   - AutoLockInterval: idle time after which the vault locks itself.
//
// Units: intervals are time.Duration values (e.g., 3*time.Second).
type Config struct {
	ServerEndpointAddr  string
	DatabasePath        string
	KeyringService      string
	OnlineCheckInterval time.Duration
	AutoLockInterval    time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "http://127.0.0.1:8080"
	c.DatabasePath = "cryptkeep.db"
	c.KeyringService = "cryptkeep"
	c.OnlineCheckInterval = 3 * time.Second
	c.AutoLockInterval = 5 * time.Minute
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
