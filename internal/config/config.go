// Package config handles SignalDock configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/signaldock/config.yaml, /config/config.yaml,
// /etc/signaldock/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "signaldock", "config.yaml"))
	}

	paths = append(paths, "/config/config.yaml") // Container convention
	paths = append(paths, "/etc/signaldock/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all SignalDock configuration.
type Config struct {
	Listen      ListenConfig      `yaml:"listen"`
	LogLevel    string            `yaml:"log_level"`
	Sources     SourcesConfig     `yaml:"sources"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	VaultGrid   VaultGridConfig   `yaml:"vaultgrid"`
	ShellExec   ShellExecConfig   `yaml:"shell_exec"`
	Workspace   WorkspaceConfig   `yaml:"workspace"`
	Permissions PermissionsConfig `yaml:"permissions"`
	DataDir     string            `yaml:"data_dir"`
}

// ListenConfig defines the WebSocket/HTTP server bind settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// SourcesConfig collects per-source tuning. A zero value for any field
// means "use the source's own built-in default"; see each source's
// ConfigSchema for documented defaults.
type SourcesConfig struct {
	CPU        CPUSourceConfig        `yaml:"cpu"`
	Battery    BatterySourceConfig    `yaml:"battery"`
	Network    NetworkSourceConfig    `yaml:"network"`
	Filesystem FilesystemSourceConfig `yaml:"filesystem"`
	Clipboard  ClipboardSourceConfig  `yaml:"clipboard"`
}

// CPUSourceConfig tunes the cpu/ram signal source.
type CPUSourceConfig struct {
	PollIntervalSec int     `yaml:"poll_interval_sec"`
	CPULowPercent   float64 `yaml:"cpu_low_percent"`
	CPUHighPercent  float64 `yaml:"cpu_high_percent"`
	RAMHighPercent  float64 `yaml:"ram_high_percent"`
}

// BatterySourceConfig tunes the battery signal source.
type BatterySourceConfig struct {
	PollIntervalSec int     `yaml:"poll_interval_sec"`
	LowPercent      float64 `yaml:"low_percent"`
	HighPercent     float64 `yaml:"high_percent"`
}

// NetworkSourceConfig tunes the network signal source.
type NetworkSourceConfig struct {
	PollIntervalSec int      `yaml:"poll_interval_sec"`
	ProbeHost       string   `yaml:"probe_host"`
	IgnoredIfaces   []string `yaml:"ignored_interfaces"`
}

// FilesystemSourceConfig tunes the filesystem signal source.
type FilesystemSourceConfig struct {
	Roots          []string `yaml:"roots"`
	IncludeGlobs   []string `yaml:"include_globs"`
	IgnoreGlobs    []string `yaml:"ignore_globs"`
	QueueBacklog   int      `yaml:"queue_backlog"`
}

// ClipboardSourceConfig tunes the (opt-in) clipboard signal source.
type ClipboardSourceConfig struct {
	Enabled         bool `yaml:"enabled"`
	PollIntervalSec int  `yaml:"poll_interval_sec"`
}

// MQTTConfig defines the broker connection used by the pulsemesh action.
type MQTTConfig struct {
	BrokerURL string `yaml:"broker_url"`
	ClientID  string `yaml:"client_id"`
	TopicRoot string `yaml:"topic_root"`
}

// VaultGridConfig defines the HTTP upload endpoint used by the vaultgrid
// action.
type VaultGridConfig struct {
	Endpoint   string `yaml:"endpoint"`
	AuthToken  string `yaml:"auth_token"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// WorkspaceConfig defines named path roots the file_ops action may touch.
// Paths outside every named root are rejected.
type WorkspaceConfig struct {
	Roots map[string]string `yaml:"roots"`
}

// ShellExecConfig defines shell execution capabilities for the shell action.
type ShellExecConfig struct {
	// Enabled allows shell command execution. Disabled by default for safety.
	Enabled bool `yaml:"enabled"`
	// WorkingDir sets the default working directory for commands.
	WorkingDir string `yaml:"working_dir"`
	// DeniedPatterns are command patterns to block (e.g., "rm -rf /").
	DeniedPatterns []string `yaml:"denied_patterns"`
	// AllowedPrefixes limits commands to those starting with these prefixes.
	// Empty means all commands are allowed (subject to denied patterns).
	AllowedPrefixes []string `yaml:"allowed_prefixes"`
	// DefaultTimeoutSec is the default timeout in seconds (default 30).
	DefaultTimeoutSec int `yaml:"default_timeout_sec"`
}

// PermissionsConfig is the in-process PermissionChecker implementation's
// backing store: one boolean flag per permission tag. Used when no
// external permission collaborator is configured.
type PermissionsConfig struct {
	ShellExecution  bool `yaml:"shell_execution"`
	FileOperations  bool `yaml:"file_operations"`
	ProcessControl  bool `yaml:"process_control"`
	NetworkControl  bool `yaml:"network_control"`
	ClipboardAccess bool `yaml:"clipboard_access"`
}

// Load reads configuration from a YAML file, expands environment
// variables, applies defaults for any unset fields, and validates
// the result. After Load returns successfully, all fields are usable
// without additional nil/empty checks.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${MQTT_BROKER_URL}). This is a
	// convenience for container deployments; the recommended approach is
	// to put values directly in the config file.
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// applyDefaults fills in zero-value fields with sensible defaults.
// Called automatically by Load. After this, callers can read any field
// without checking for empty strings or zero values.
func (c *Config) applyDefaults() {
	if c.Listen.Port == 0 {
		c.Listen.Port = 8787
	}
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.Sources.CPU.PollIntervalSec == 0 {
		c.Sources.CPU.PollIntervalSec = 5
	}
	if c.Sources.CPU.CPUHighPercent == 0 {
		c.Sources.CPU.CPUHighPercent = 85
	}
	if c.Sources.CPU.RAMHighPercent == 0 {
		c.Sources.CPU.RAMHighPercent = 90
	}
	if c.Sources.Battery.PollIntervalSec == 0 {
		c.Sources.Battery.PollIntervalSec = 30
	}
	if c.Sources.Battery.LowPercent == 0 {
		c.Sources.Battery.LowPercent = 20
	}
	if c.Sources.Battery.HighPercent == 0 {
		c.Sources.Battery.HighPercent = 95
	}
	if c.Sources.Network.PollIntervalSec == 0 {
		c.Sources.Network.PollIntervalSec = 10
	}
	if c.Sources.Network.ProbeHost == "" {
		c.Sources.Network.ProbeHost = "1.1.1.1:443"
	}
	if c.Sources.Filesystem.QueueBacklog == 0 {
		c.Sources.Filesystem.QueueBacklog = 256
	}
	if c.Sources.Clipboard.PollIntervalSec == 0 {
		c.Sources.Clipboard.PollIntervalSec = 2
	}
	if c.ShellExec.DefaultTimeoutSec == 0 {
		c.ShellExec.DefaultTimeoutSec = 30
	}
	if c.VaultGrid.TimeoutSec == 0 {
		c.VaultGrid.TimeoutSec = 30
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "signaldock"
	}
	if c.MQTT.TopicRoot == "" {
		c.MQTT.TopicRoot = "signaldock"
	}
}

// Validate checks that the configuration is internally consistent.
// It runs after applyDefaults, so it can assume defaults are populated.
// Returns an error describing the first problem found, or nil.
func (c *Config) Validate() error {
	if c.Listen.Port < 1 || c.Listen.Port > 65535 {
		return fmt.Errorf("listen.port %d out of range (1-65535)", c.Listen.Port)
	}
	if c.LogLevel != "" {
		if _, err := ParseLogLevel(c.LogLevel); err != nil {
			return err
		}
	}
	if c.Sources.CPU.CPULowPercent < 0 || c.Sources.CPU.CPUHighPercent > 100 {
		return fmt.Errorf("sources.cpu thresholds out of range (0-100)")
	}
	if c.Sources.CPU.CPULowPercent != 0 && c.Sources.CPU.CPULowPercent >= c.Sources.CPU.CPUHighPercent {
		return fmt.Errorf("sources.cpu.cpu_low_percent must be less than cpu_high_percent")
	}
	return nil
}

// Default returns a default configuration suitable for local development.
// All defaults are already applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}
