package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for droidpilot.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Devices    []string         `yaml:"devices"`
	ADB        ADBConfig        `yaml:"adb"`
	Automation AutomationConfig `yaml:"automation"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Database   DatabaseConfig   `yaml:"database"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	API        APIConfig        `yaml:"api"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// DeviceSpec is one parsed device list entry.
//
// The device list format is "address:port:displayName" with the display
// name optional (defaults to "address:port").
type DeviceSpec struct {
	Address string
	Port    int
	Name    string
}

// ID returns the device identifier used throughout the system ("address:port").
func (d DeviceSpec) ID() string {
	return fmt.Sprintf("%s:%d", d.Address, d.Port)
}

// ADBConfig contains adb binary and transport settings.
type ADBConfig struct {
	// Path is the adb executable (defaults to "adb" resolved via PATH).
	Path string `yaml:"path"`

	// CommandTimeout is the per-command timeout in seconds.
	CommandTimeout int `yaml:"command_timeout"`

	// ConnectOnStartup issues "adb connect" for every configured device at boot.
	ConnectOnStartup bool `yaml:"connect_on_startup"`
}

// AutomationConfig contains automation engine directories and defaults.
type AutomationConfig struct {
	// ConfigsDir holds the YAML automation configurations.
	ConfigsDir string `yaml:"configs_dir"`

	// TemplatesDir holds the PNG reference images used for matching.
	TemplatesDir string `yaml:"templates_dir"`

	// ScreenshotsDir is where operator-requested screenshots are written.
	ScreenshotsDir string `yaml:"screenshots_dir"`

	// DefaultConfig is the configuration started when no name is given.
	DefaultConfig string `yaml:"default_config"`

	// WatchConfigs reloads the configuration set when files change on disk.
	// The reload takes effect on the next run, never mid-run.
	WatchConfigs bool `yaml:"watch_configs"`
}

// SchedulerConfig contains the time-based trigger settings.
type SchedulerConfig struct {
	Enabled bool `yaml:"enabled"`

	// RunMinutes are the minutes-of-hour (0-59) at which a fleet-wide run starts.
	RunMinutes []int `yaml:"run_minutes"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings for run notifications.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings for run metrics.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// WebSocketConfig contains WebSocket event stream settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// minutesPerHour bounds scheduler run-minute values.
const minutesPerHour = 60

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: DROIDPILOT_SECTION_KEY
// For example: DROIDPILOT_DATABASE_PATH, DROIDPILOT_MQTT_HOST
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		ADB: ADBConfig{
			Path:             "adb",
			CommandTimeout:   30,
			ConnectOnStartup: true,
		},
		Automation: AutomationConfig{
			ConfigsDir:     "./configs/automations",
			TemplatesDir:   "./templates",
			ScreenshotsDir: "./screenshots",
			WatchConfigs:   true,
		},
		Scheduler: SchedulerConfig{
			Enabled:    false,
			RunMinutes: []int{5, 25, 45},
		},
		Database: DatabaseConfig{
			Path:        "./data/droidpilot.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "droidpilot",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8484,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: DROIDPILOT_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DROIDPILOT_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("DROIDPILOT_ADB_PATH"); v != "" {
		cfg.ADB.Path = v
	}
	if v := os.Getenv("DROIDPILOT_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("DROIDPILOT_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("DROIDPILOT_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("DROIDPILOT_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("DROIDPILOT_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if len(c.Devices) == 0 {
		errs = append(errs, "devices list is required")
	}
	if _, err := c.DeviceSpecs(); err != nil {
		errs = append(errs, err.Error())
	}

	if c.ADB.Path == "" {
		errs = append(errs, "adb.path is required")
	}
	if c.ADB.CommandTimeout <= 0 {
		errs = append(errs, "adb.command_timeout must be positive")
	}

	if c.Automation.ConfigsDir == "" {
		errs = append(errs, "automation.configs_dir is required")
	}
	if c.Automation.TemplatesDir == "" {
		errs = append(errs, "automation.templates_dir is required")
	}

	for _, m := range c.Scheduler.RunMinutes {
		if m < 0 || m >= minutesPerHour {
			errs = append(errs, fmt.Sprintf("scheduler.run_minutes entry %d must be in [0,59]", m))
			break
		}
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// DeviceSpecs parses the configured device list.
//
// Entries use the format "address:port" or "address:port:displayName".
// Order is preserved; duplicate IDs are rejected.
func (c *Config) DeviceSpecs() ([]DeviceSpec, error) {
	specs := make([]DeviceSpec, 0, len(c.Devices))
	seen := make(map[string]struct{}, len(c.Devices))

	for _, entry := range c.Devices {
		spec, err := ParseDeviceSpec(entry)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[spec.ID()]; dup {
			return nil, fmt.Errorf("duplicate device entry %q", spec.ID())
		}
		seen[spec.ID()] = struct{}{}
		specs = append(specs, spec)
	}

	return specs, nil
}

// ParseDeviceSpec parses a single "address:port[:displayName]" record.
func ParseDeviceSpec(entry string) (DeviceSpec, error) {
	parts := strings.SplitN(strings.TrimSpace(entry), ":", 3)
	if len(parts) < 2 {
		return DeviceSpec{}, fmt.Errorf("device entry %q: want address:port[:name]", entry)
	}

	port, err := strconv.Atoi(parts[1])
	if err != nil || port < 1 || port > 65535 {
		return DeviceSpec{}, fmt.Errorf("device entry %q: invalid port %q", entry, parts[1])
	}

	spec := DeviceSpec{
		Address: parts[0],
		Port:    port,
	}
	if spec.Address == "" {
		return DeviceSpec{}, fmt.Errorf("device entry %q: empty address", entry)
	}

	if len(parts) == 3 && strings.TrimSpace(parts[2]) != "" {
		spec.Name = strings.TrimSpace(parts[2])
	} else {
		spec.Name = spec.ID()
	}

	return spec, nil
}

// GetCommandTimeout returns the adb per-command timeout as a Duration.
func (c *Config) GetCommandTimeout() time.Duration {
	return time.Duration(c.ADB.CommandTimeout) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
