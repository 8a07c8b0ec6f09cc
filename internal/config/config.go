// Package config handles TOML configuration loading and validation.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/asaskevich/govalidator"
	toml "github.com/pelletier/go-toml/v2"
)

// configSearchPaths lists paths checked in order when no explicit config is given.
var configSearchPaths = []string{
	"/etc/gh-proxy/config.toml",
	"configs/config.toml",
}

// CLI holds command-line arguments parsed by Kong.
type CLI struct {
	Config       string   `kong:"short='c',help='Path to TOML config file.',env='CONFIG_PATH'"`
	Host         string   `kong:"help='Listen host (overrides config).',env='HOST'"`
	Port         int      `kong:"short='p',help='Listen port (overrides config).',env='PORT'"`
	Prefix       string   `kong:"help='Path prefix the proxy is mounted under (overrides config).',env='PROXY_PREFIX'"`
	AllowList    []string `kong:"help='Allow-list substrings, comma separated (overrides config).',env='ALLOW_LIST'"`
	BranchMirror bool     `kong:"help='Redirect branch files to the CDN mirror (overrides config).',env='BRANCH_MIRROR'"`
	LogLevel     string   `kong:"help='Log level: debug|info|warn|error (overrides config).',env='LOG_LEVEL'"`
}

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Proxy    ProxyConfig    `toml:"proxy"`
	Mirror   MirrorConfig   `toml:"mirror"`
	Upstream UpstreamConfig `toml:"upstream"`
	Log      LogConfig      `toml:"log"`
	Metrics  MetricsConfig  `toml:"metrics"`

	filePath string // resolved config file path (unexported)
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"` // 0 means "use default" (8000); TOML cannot distinguish 0 from unset
	BodyMaxBytes int64  `toml:"body_max_bytes"`
}

// ProxyConfig controls how inbound paths are routed.
type ProxyConfig struct {
	Prefix       string   `toml:"prefix"`
	BranchMirror bool     `toml:"branch_mirror"`
	AllowList    []string `toml:"allow_list"`
}

// MirrorConfig holds the secondary hosts requests may be sent to.
type MirrorConfig struct {
	CDNBaseURL   string `toml:"cdn_base_url"`
	AssetBaseURL string `toml:"asset_base_url"`
}

// UpstreamConfig holds upstream connection settings.
type UpstreamConfig struct {
	TimeoutSeconds   int  `toml:"timeout_seconds"`
	IdleConnections  int  `toml:"idle_connections"`
	RelayErrorBodies bool `toml:"relay_error_bodies"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// reservedRoutes are served by the proxy itself and cannot be reused.
var reservedRoutes = []string{"/healthz", "/proxy/status"}

// Load reads the TOML config file and applies CLI overrides.
// When no explicit path is given (via --config or CONFIG_PATH), it searches
// /etc/gh-proxy/config.toml then configs/config.toml.
func Load(cli *CLI) (*Config, error) {
	path := cli.Config
	if path == "" {
		path = findConfig()
	}
	if path == "" {
		return nil, fmt.Errorf("config: no config file found (searched %v)", configSearchPaths)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.filePath = path
	cfg.applyCLI(cli)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}

	cfg.setDefaults()
	return &cfg, nil
}

// applyCLI overrides config values with non-zero CLI flags.
func (c *Config) applyCLI(cli *CLI) {
	if cli.Host != "" {
		c.Server.Host = cli.Host
	}
	if cli.Port != 0 {
		c.Server.Port = cli.Port
	}
	if cli.Prefix != "" {
		c.Proxy.Prefix = cli.Prefix
	}
	if len(cli.AllowList) > 0 {
		c.Proxy.AllowList = cli.AllowList
	}
	if cli.BranchMirror {
		c.Proxy.BranchMirror = true
	}
	if cli.LogLevel != "" {
		c.Log.Level = cli.LogLevel
	}
}

func (c *Config) validate() error {
	// Asset mirror: required, and every mirror must be an absolute http(s) URL.
	if c.Mirror.AssetBaseURL == "" {
		return fmt.Errorf("mirror.asset_base_url is required")
	}
	if err := validateBaseURL("mirror.asset_base_url", c.Mirror.AssetBaseURL); err != nil {
		return err
	}
	if c.Mirror.CDNBaseURL != "" {
		if err := validateBaseURL("mirror.cdn_base_url", c.Mirror.CDNBaseURL); err != nil {
			return err
		}
	}

	// Prefix must be bracketed by slashes: "/" or "/gh/".
	if p := c.Proxy.Prefix; p != "" {
		if !strings.HasPrefix(p, "/") || !strings.HasSuffix(p, "/") {
			return fmt.Errorf("proxy.prefix must start and end with '/'; got %q", p)
		}
		for _, reserved := range reservedRoutes {
			if strings.HasPrefix(reserved+"/", p) && p != "/" {
				return fmt.Errorf("proxy.prefix %q conflicts with reserved route %q", p, reserved)
			}
		}
	}

	// Numeric bounds.
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 0–65535; got %d", c.Server.Port)
	}
	if c.Server.BodyMaxBytes < 0 {
		return fmt.Errorf("server.body_max_bytes must be non-negative; got %d", c.Server.BodyMaxBytes)
	}
	if c.Upstream.TimeoutSeconds < 0 {
		return fmt.Errorf("upstream.timeout_seconds must be non-negative; got %d", c.Upstream.TimeoutSeconds)
	}
	if c.Upstream.IdleConnections < 0 {
		return fmt.Errorf("upstream.idle_connections must be non-negative; got %d", c.Upstream.IdleConnections)
	}

	// Log fields.
	level := strings.ToLower(c.Log.Level)
	switch level {
	case "debug", "info", "warn", "error", "":
		// valid
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error; got %q", c.Log.Level)
	}
	format := strings.ToLower(c.Log.Format)
	switch format {
	case "json", "text", "":
		// valid
	default:
		return fmt.Errorf("log.format must be one of: json, text; got %q", c.Log.Format)
	}

	// Metrics path validation (only when metrics are enabled).
	if c.Metrics.Enabled && c.Metrics.Path != "" {
		p := c.Metrics.Path
		if p[0] != '/' {
			return fmt.Errorf("metrics.path must start with '/'; got %q", p)
		}
		for _, reserved := range reservedRoutes {
			if p == reserved || strings.HasPrefix(p, reserved+"/") {
				return fmt.Errorf("metrics.path %q conflicts with reserved route %q", p, reserved)
			}
		}
	}

	return nil
}

func validateBaseURL(key, raw string) error {
	if !govalidator.IsRequestURL(raw) {
		return fmt.Errorf("%s is not a valid URL; got %q", key, raw)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", key, err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("%s must use http or https; got %q", key, raw)
	}
	return nil
}

// setDefaults fills zero-valued fields with sensible defaults.
// For integer fields (Port, BodyMaxBytes, etc.), zero means "unset" because TOML
// cannot distinguish between an explicit 0 and an omitted key. Setting port=0 in
// the config file therefore results in the default port (8000).
func (c *Config) setDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.Server.BodyMaxBytes == 0 {
		c.Server.BodyMaxBytes = 100 * 1024 * 1024 // 100 MB; release uploads go through the API host
	}
	if c.Proxy.Prefix == "" {
		c.Proxy.Prefix = "/"
	}
	if c.Mirror.CDNBaseURL == "" {
		c.Mirror.CDNBaseURL = "https://cdn.jsdelivr.net/gh"
	}
	if c.Upstream.TimeoutSeconds == 0 {
		c.Upstream.TimeoutSeconds = 300
	}
	if c.Upstream.IdleConnections == 0 {
		c.Upstream.IdleConnections = 100
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// findConfig returns the first config path that exists, or empty string.
func findConfig() string {
	return findConfigInPaths(configSearchPaths)
}

// findConfigInPaths returns the first path that exists on disk, or empty string.
func findConfigInPaths(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Addr returns the server listen address as host:port.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// WarnPermissions logs a warning if the config file is writable by group or others.
func (c *Config) WarnPermissions(logger *slog.Logger) {
	if c.filePath == "" {
		return
	}
	info, err := os.Stat(c.filePath)
	if err != nil {
		return
	}
	if perm := info.Mode().Perm(); perm&0o022 != 0 {
		logger.Warn("config file is writable by group/others; consider chmod 644",
			"path", c.filePath,
			"mode", fmt.Sprintf("%04o", perm),
		)
	}
}

// WarnEmptyAllowList logs a warning when the allow-list is empty, which makes
// every forwarded request fail with 403.
func (c *Config) WarnEmptyAllowList(logger *slog.Logger) {
	if len(c.Proxy.AllowList) == 0 {
		logger.Warn("proxy.allow_list is empty; all forwarded requests will be blocked")
	}
}
