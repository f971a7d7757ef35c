package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Stage    StageConfig    `mapstructure:"stage"`
	Cache    CacheConfig    `mapstructure:"cache"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Review   ReviewConfig   `mapstructure:"review"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// StageConfig holds document stage configuration
type StageConfig struct {
	Dir string `mapstructure:"dir"`
}

// CacheConfig holds bronze snapshot cache configuration
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Addr    string        `mapstructure:"addr"`
	DB      int           `mapstructure:"db"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// OpenAIConfig holds completion service configuration
type OpenAIConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	Temperature float32       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// ReviewConfig holds reconciliation review configuration
type ReviewConfig struct {
	// AutomationIdentity is stamped on gold rows committed without human edits.
	AutomationIdentity string `mapstructure:"automation_identity"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	viper.SetDefault("database.path", "data/reconciler.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	viper.SetDefault("database.migrations_dir", "migrations")

	// Stage defaults
	viper.SetDefault("stage.dir", "data/stage")

	// Cache defaults. TTL mirrors the dashboard's five minute read window.
	viper.SetDefault("cache.enabled", false)
	viper.SetDefault("cache.addr", "localhost:6379")
	viper.SetDefault("cache.db", 0)
	viper.SetDefault("cache.ttl", 5*time.Minute)

	// OpenAI defaults
	viper.SetDefault("openai.model", "gpt-4o-mini")
	viper.SetDefault("openai.temperature", 0.3)
	viper.SetDefault("openai.max_tokens", 1000)
	viper.SetDefault("openai.timeout", 60*time.Second)

	// Review defaults
	viper.SetDefault("review.automation_identity", "Auto-reconciled")

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

func bindEnvVars() {
	// Sensitive credentials from environment
	viper.BindEnv("openai.api_key", "OPENAI_API_KEY")
	viper.BindEnv("cache.addr", "REDIS_ADDR")
	viper.BindEnv("database.path", "RECONCILER_DB_PATH")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Stage.Dir == "" {
		return fmt.Errorf("stage.dir is required")
	}
	if c.Cache.Enabled && c.Cache.Addr == "" {
		return fmt.Errorf("cache.addr is required when cache is enabled")
	}
	if c.Review.AutomationIdentity == "" {
		return fmt.Errorf("review.automation_identity is required")
	}
	return nil
}
