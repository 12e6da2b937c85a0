package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for tivod.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	Database  DatabaseConfig  `yaml:"database"`
	Account   AccountConfig   `yaml:"account"`
	Guide     GuideConfig     `yaml:"guide"`
	Scraper   ScraperConfig   `yaml:"scraper"`
	Cache     CacheConfig     `yaml:"cache"`
	Devices   []DeviceConfig  `yaml:"devices"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
}

// ServiceConfig contains instance-level identification.
type ServiceConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// AccountConfig contains the platform account used for channel and EPG
// lookups. The credentials are shared by every configured device.
type AccountConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// Region selects the regional channel numbering used by the scraper.
	// One of: Eng+Lon, Eng-Lon, NI, Scot, Wales.
	Region string `yaml:"region"`

	// FetchChannels enables the channel directory subsystem. When false,
	// devices report raw channel numbers only.
	FetchChannels bool `yaml:"fetch_channels"`

	// DropListingOnly excludes channels the account cannot tune (present
	// in the guide listing but absent from the regional table).
	DropListingOnly bool `yaml:"drop_listing_only"`
}

// GuideConfig contains the platform TV guide API endpoints and limits.
// The defaults match the production service; overriding them is mainly
// useful for tests.
type GuideConfig struct {
	BaseURL      string        `yaml:"base_url"`
	LoginURL     string        `yaml:"login_url"`
	ScheduleMax  int           `yaml:"schedule_max"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
}

// ScraperConfig contains the regional channel listing site settings.
type ScraperConfig struct {
	URL          string        `yaml:"url"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
}

// CacheConfig contains per-tier cache lifetimes.
type CacheConfig struct {
	AuthTTL     time.Duration `yaml:"auth_ttl"`
	ChannelsTTL time.Duration `yaml:"channels_ttl"`
	ListingsTTL time.Duration `yaml:"listings_ttl"`
}

// DeviceConfig describes one set-top box under control.
type DeviceConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	CommandTimeout time.Duration `yaml:"command_timeout"`

	// ScanInterval is the cadence of the status poll loop.
	ScanInterval time.Duration `yaml:"scan_interval"`

	// IdleTimeout is how long a device may sit without signal before it is
	// considered off. Zero means "no signal" maps straight to off.
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
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

// MQTTReconnectConfig contains MQTT reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains API security settings.
type SecurityConfig struct {
	JWT   JWTConfig       `yaml:"jwt"`
	Admin AdminUserConfig `yaml:"admin"`
}

// JWTConfig contains JWT token settings.
type JWTConfig struct {
	Secret         string `yaml:"secret"`
	AccessTokenTTL int    `yaml:"access_token_ttl"` // minutes
}

// AdminUserConfig contains the single API user.
// PasswordHash is an Argon2id PHC string.
type AdminUserConfig struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: TIVOD_SECTION_KEY
// For example: TIVOD_DATABASE_PATH, TIVOD_ACCOUNT_PASSWORD
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

// Default upstream endpoints. These match the production services.
const (
	defGuideBaseURL = "https://web-api-prod-obo.horizon.tv/oesp/v4/GB/eng/web"
	defGuideLogin   = "https://id.virginmedia.com/rest/v40/session/start?protocol=oidc&rememberMe=true"
	defScraperURL   = "https://www.tvchannellists.com/w/List_of_channels_on_Virgin_Media_(UK)_-_New_Packages"
)

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			ID:       "tivod-001",
			Name:     "tivod",
			Timezone: "Europe/London",
		},
		Database: DatabaseConfig{
			Path:        "./data/tivod.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Account: AccountConfig{
			Region:        "Eng-Lon",
			FetchChannels: true,
		},
		Guide: GuideConfig{
			BaseURL:      defGuideBaseURL,
			LoginURL:     defGuideLogin,
			ScheduleMax:  250,
			FetchTimeout: 30 * time.Second,
		},
		Scraper: ScraperConfig{
			URL:          defScraperURL,
			FetchTimeout: 30 * time.Second,
		},
		Cache: CacheConfig{
			AuthTTL:     24 * time.Hour,
			ChannelsTTL: 24 * time.Hour,
			ListingsTTL: 48 * time.Hour,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "tivod",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8090,
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
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL: 15,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: TIVOD_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("TIVOD_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// Account credentials (preferred over storing them in the file)
	if v := os.Getenv("TIVOD_ACCOUNT_USERNAME"); v != "" {
		cfg.Account.Username = v
	}
	if v := os.Getenv("TIVOD_ACCOUNT_PASSWORD"); v != "" {
		cfg.Account.Password = v
	}

	// MQTT
	if v := os.Getenv("TIVOD_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("TIVOD_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("TIVOD_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("TIVOD_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("TIVOD_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// InfluxDB
	if v := os.Getenv("TIVOD_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Security - JWT secret (IMPORTANT: always override in production)
	if v := os.Getenv("TIVOD_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
}

// knownRegions are the regional numbering variants the scraper understands.
var knownRegions = map[string]bool{
	"Eng+Lon": true,
	"Eng-Lon": true,
	"NI":      true,
	"Scot":    true,
	"Wales":   true,
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Service.ID == "" {
		errs = append(errs, "service.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}
	if c.Database.BusyTimeout < 0 {
		errs = append(errs, "database.busy_timeout must not be negative")
	}

	if c.Account.FetchChannels {
		if c.Account.Username == "" || c.Account.Password == "" {
			errs = append(errs, "account.username and account.password are required when account.fetch_channels is enabled")
		}
		if !knownRegions[c.Account.Region] {
			errs = append(errs, fmt.Sprintf("account.region %q is not a known region", c.Account.Region))
		}
	}

	if c.Guide.FetchTimeout <= 0 {
		errs = append(errs, "guide.fetch_timeout must be positive")
	}
	if c.Scraper.FetchTimeout <= 0 {
		errs = append(errs, "scraper.fetch_timeout must be positive")
	}

	if len(c.Devices) == 0 {
		errs = append(errs, "at least one device must be configured")
	}
	seen := make(map[string]bool, len(c.Devices))
	for i, d := range c.Devices {
		prefix := fmt.Sprintf("devices[%d]", i)
		if d.ID == "" {
			errs = append(errs, prefix+".id is required")
		} else if seen[d.ID] {
			errs = append(errs, fmt.Sprintf("%s.id %q is duplicated", prefix, d.ID))
		}
		seen[d.ID] = true
		if d.Host == "" {
			errs = append(errs, prefix+".host is required")
		}
		if d.ScanInterval < 0 || d.IdleTimeout < 0 {
			errs = append(errs, prefix+" intervals must not be negative")
		}
	}

	if c.API.Port <= 0 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if c.API.TLS.Enabled && (c.API.TLS.CertFile == "" || c.API.TLS.KeyFile == "") {
		errs = append(errs, "api.tls.cert_file and api.tls.key_file are required when TLS is enabled")
	}

	if c.MQTT.Enabled {
		if c.MQTT.Broker.Host == "" {
			errs = append(errs, "mqtt.broker.host is required when MQTT is enabled")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1 or 2")
		}
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" || c.InfluxDB.Token == "" {
			errs = append(errs, "influxdb.url and influxdb.token are required when InfluxDB is enabled")
		}
	}

	if c.Security.JWT.Secret == "" {
		errs = append(errs, "security.jwt.secret is required (set TIVOD_JWT_SECRET)")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Device returns the configuration for the device with the given ID.
func (c *Config) Device(id string) (DeviceConfig, bool) {
	for _, d := range c.Devices {
		if d.ID == id {
			return d, true
		}
	}
	return DeviceConfig{}, false
}

// Device entries may omit timing fields; these return the effective values.

// EffectiveScanInterval returns the poll cadence for a device.
func (d DeviceConfig) EffectiveScanInterval() time.Duration {
	if d.ScanInterval <= 0 {
		return 5 * time.Second
	}
	return d.ScanInterval
}

// EffectiveConnectTimeout returns the transport connect timeout.
func (d DeviceConfig) EffectiveConnectTimeout() time.Duration {
	if d.ConnectTimeout <= 0 {
		return time.Second
	}
	return d.ConnectTimeout
}

// EffectiveCommandTimeout returns the transport command timeout.
func (d DeviceConfig) EffectiveCommandTimeout() time.Duration {
	if d.CommandTimeout <= 0 {
		return time.Second
	}
	return d.CommandTimeout
}

// EffectivePort returns the remote-control port, defaulting to the TiVo
// remote protocol port.
func (d DeviceConfig) EffectivePort() int {
	if d.Port <= 0 {
		return 31339
	}
	return d.Port
}
