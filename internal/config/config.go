package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/exrev201-arch/freshed-fulfillment/internal/domain"
	"github.com/exrev201-arch/freshed-fulfillment/internal/store/postgres"
)

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	// InMemory switches every repository onto the in-process store;
	// useful for demos and local development without Postgres.
	InMemory bool `mapstructure:"in_memory"`
}

type KafkaConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	Brokers     []string `mapstructure:"brokers"`
	EventsTopic string   `mapstructure:"events_topic"`
}

type GatewayConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	APIKey        string        `mapstructure:"api_key"`
	WebhookSecret string        `mapstructure:"webhook_secret"`
	Provider      string        `mapstructure:"provider"`
	Timeout       time.Duration `mapstructure:"timeout"`
	// DemoMode substitutes a deterministic in-process provider. It is
	// never inferred from missing credentials.
	DemoMode bool `mapstructure:"demo_mode"`
}

type ArchiveConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Region  string `mapstructure:"region"`
	Bucket  string `mapstructure:"bucket"`
	Prefix  string `mapstructure:"prefix"`
}

type OutboxConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
}

type Config struct {
	HTTPPort             string         `mapstructure:"http_port"`
	Database             DatabaseConfig `mapstructure:"database"`
	MigrationsPath       string         `mapstructure:"migrations_path"`
	Kafka                KafkaConfig    `mapstructure:"kafka"`
	Gateway              GatewayConfig  `mapstructure:"gateway"`
	Archive              ArchiveConfig  `mapstructure:"archive"`
	Outbox               OutboxConfig   `mapstructure:"outbox"`
	LocationHistoryLimit int            `mapstructure:"location_history_limit"`
}

// Load reads configuration from an optional file, with FULFILLMENT_*
// environment variables overriding (dots become underscores, e.g.
// FULFILLMENT_DATABASE_HOST).
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("FULFILLMENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	decoderOption := viper.DecoderConfigOption(func(dc *mapstructure.DecoderConfig) {
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			dc.DecodeHook,
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	})
	if err := v.Unmarshal(&cfg, decoderOption); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http_port", "8080")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.name", "fulfillment_db")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.in_memory", false)

	v.SetDefault("migrations_path", "migrations")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.events_topic", "fulfillment_status_events")

	v.SetDefault("gateway.base_url", "http://localhost:9000")
	v.SetDefault("gateway.provider", "zenopay")
	v.SetDefault("gateway.timeout", "30s")
	v.SetDefault("gateway.demo_mode", false)

	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.region", "eu-west-1")
	v.SetDefault("archive.prefix", "location-history")

	v.SetDefault("outbox.poll_interval", "1s")
	v.SetDefault("outbox.batch_size", 100)

	v.SetDefault("location_history_limit", domain.LocationHistoryLimit)
}

func (c *Config) DBConfig() postgres.DBConfig {
	return postgres.DBConfig{
		Host:     c.Database.Host,
		Port:     c.Database.Port,
		User:     c.Database.User,
		Password: c.Database.Password,
		DBName:   c.Database.Name,
		SSLMode:  c.Database.SSLMode,
	}
}

func (c *Config) MigrationConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User, c.Database.Password, c.Database.Host,
		c.Database.Port, c.Database.Name, c.Database.SSLMode)
}
