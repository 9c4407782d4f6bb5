package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Digital-Creators-Team/round-engine/logging"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Environment      string                 `mapstructure:"environment"`
	Clocks           ClocksConfig           `mapstructure:"clocks"`
	Crash            CrashConfig            `mapstructure:"crash"`
	Engine           EngineConfig           `mapstructure:"engine"`
	Redis            RedisConfig            `mapstructure:"redis"`
	Kafka            KafkaConfig            `mapstructure:"kafka"`
	Logging          logging.Config         `mapstructure:"logging"`
	ExternalServices ExternalServicesConfig `mapstructure:"external_services"`
}

// ClocksConfig lists the fixed betting intervals per interval-based game family.
// Values are seconds; one period clock is started per (family, interval) pair.
type ClocksConfig struct {
	NumberColorSize []int64 `mapstructure:"number_color_size"`
	TripleDiceSum   []int64 `mapstructure:"triple_dice_sum"`
	FiveDigit       []int64 `mapstructure:"five_digit"`
}

// CrashConfig holds the continuous-multiplier game configuration.
// Enabled defaults to true through viper, so an explicit `enabled: false`
// is the only way to run without the continuous game.
type CrashConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	BettingWindow time.Duration `mapstructure:"betting_window"`
	GrowthRate    float64       `mapstructure:"growth_rate"`
}

// EngineConfig holds engine-wide settings
type EngineConfig struct {
	// LockAhead is how long before closesAt new wagers stop being accepted
	LockAhead time.Duration `mapstructure:"lock_ahead"`
	// IdentityCheckThreshold: stakes at or above this consult the identity provider
	IdentityCheckThreshold float64 `mapstructure:"identity_check_threshold"`
	// ArchiveSize bounds the in-memory result ring per clock
	ArchiveSize int `mapstructure:"archive_size"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr         string `mapstructure:"addr"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Brokers      []string `mapstructure:"brokers"`
	ResultsTopic string   `mapstructure:"results_topic"`
}

// ExternalServicesConfig holds external service configurations
type ExternalServicesConfig struct {
	WalletService   ServiceConfig `mapstructure:"wallet_service"`
	IdentityService ServiceConfig `mapstructure:"identity_service"`
}

// ServiceConfig holds external service configuration
type ServiceConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Load loads configuration from YAML file using Viper
func Load(filename string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(filename)
	v.SetConfigType("yaml")

	// Enable environment variable substitution
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetDefault("crash.enabled", true)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.setDefaults()

	return &config, nil
}

// LoadByEnv loads configuration based on environment using Viper
func LoadByEnv(configDir string) (*Config, error) {
	v := viper.New()

	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	env := viper.GetString("ENV")
	if env == "" {
		env = viper.GetString("APP_ENV")
	}
	if env == "" {
		env = "development"
	}

	v.SetConfigName(fmt.Sprintf("config-%s", env))
	v.SetConfigType("yaml")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetDefault("crash.enabled", true)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.setDefaults()

	return &config, nil
}

// setDefaults sets default values for missing configuration
func (c *Config) setDefaults() {
	if len(c.Clocks.NumberColorSize) == 0 {
		c.Clocks.NumberColorSize = []int64{30, 60, 180, 300, 600}
	}
	if len(c.Clocks.TripleDiceSum) == 0 {
		c.Clocks.TripleDiceSum = []int64{60, 180, 300, 600}
	}
	if len(c.Clocks.FiveDigit) == 0 {
		c.Clocks.FiveDigit = []int64{60, 180, 300, 600}
	}
	if c.Crash.BettingWindow == 0 {
		c.Crash.BettingWindow = 5 * time.Second
	}
	if c.Crash.GrowthRate == 0 {
		c.Crash.GrowthRate = 0.06
	}
	if c.Engine.ArchiveSize == 0 {
		c.Engine.ArchiveSize = 100
	}
	if c.Engine.IdentityCheckThreshold == 0 {
		c.Engine.IdentityCheckThreshold = 10000
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 10
	}
	if c.Redis.MinIdleConns == 0 {
		c.Redis.MinIdleConns = 5
	}
	if c.Kafka.ResultsTopic == "" {
		c.Kafka.ResultsTopic = "round-results"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
	if c.ExternalServices.WalletService.Timeout == 0 {
		c.ExternalServices.WalletService.Timeout = 10 * time.Second
	}
	if c.ExternalServices.IdentityService.Timeout == 0 {
		c.ExternalServices.IdentityService.Timeout = 10 * time.Second
	}
}

// GetAddr returns Redis address
func (c *RedisConfig) GetAddr() string {
	return c.Addr
}

// IsDevelopment returns true if environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// IsProduction returns true if environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}
