package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Note     NoteConfig     `mapstructure:"note"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Platform PlatformConfig `mapstructure:"platform"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// NoteConfig configures bank note token signing.
type NoteConfig struct {
	Secret string `mapstructure:"secret"` // process-wide HMAC secret
	Issuer string `mapstructure:"issuer"`
	// LockTTL bounds the redis fast-path redemption guard.
	LockTTL time.Duration `mapstructure:"lock_ttl"`
}

// AuditConfig controls the audit queue flush schedule.
type AuditConfig struct {
	FlushInterval time.Duration `mapstructure:"flush_interval"`
	BatchSize     int           `mapstructure:"batch_size"`
	// BacklogThreshold triggers an operator alert when the buffer still holds
	// more than this many events after a flush attempt. Zero means "use batch_size".
	BacklogThreshold int `mapstructure:"backlog_threshold"`
}

// AdminConfig gates the currency-administration API.
type AdminConfig struct {
	APIKeyHash string `mapstructure:"api_key_hash"` // argon2id encoded hash
}

// PlatformConfig points at the chat platform's REST API. An empty base URL
// disables member sync; an empty alert webhook routes alerts to the log only.
type PlatformConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	BotToken        string        `mapstructure:"bot_token"`
	AlertWebhookURL string        `mapstructure:"alert_webhook_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: GM (Guildmint).
// Nested keys use underscore: GM_DATABASE_HOST, GM_NOTE_SECRET, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "guildmint")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("note.secret", "")
	v.SetDefault("note.issuer", "guildmint")
	v.SetDefault("note.lock_ttl", "30s")
	v.SetDefault("audit.flush_interval", "5s")
	v.SetDefault("audit.batch_size", 100)
	v.SetDefault("audit.backlog_threshold", 0)
	v.SetDefault("admin.api_key_hash", "")
	v.SetDefault("platform.base_url", "")
	v.SetDefault("platform.bot_token", "")
	v.SetDefault("platform.alert_webhook_url", "")
	v.SetDefault("platform.timeout", "10s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: GM_DATABASE_HOST -> database.host
	v.SetEnvPrefix("GM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required, env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && path != "" {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks required configuration values.
func (c *Config) Validate() error {
	if c.Note.Secret == "" {
		return fmt.Errorf("note.secret is required (set GM_NOTE_SECRET)")
	}
	if c.Audit.BatchSize <= 0 {
		return fmt.Errorf("audit.batch_size must be positive")
	}
	if c.Audit.FlushInterval <= 0 {
		return fmt.Errorf("audit.flush_interval must be positive")
	}
	return nil
}
