/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the back-office service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort               string `mapstructure:"SERVER_PORT"`
	DatabaseURL              string `mapstructure:"DATABASE_URL"`
	RedisURL                 string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix     string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL              string `mapstructure:"RABBITMQ_URL"`
	EventExchange            string `mapstructure:"BACKOFFICE_EVENT_EXCHANGE"`
	AuthJWTSecret            string `mapstructure:"AUTH_JWT_SECRET"`
	InternalAPIKey           string `mapstructure:"INTERNAL_API_KEY"`
	CORSAllowedOrigins       string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	DefaultDailyRate         int64  `mapstructure:"DEFAULT_DAILY_RATE"`
	RateDriftTolerance       int64  `mapstructure:"RATE_DRIFT_TOLERANCE"`
	DriftScanSchedule        string `mapstructure:"DRIFT_SCAN_SCHEDULE"`
	DriftScanWindowDays      int    `mapstructure:"DRIFT_SCAN_WINDOW_DAYS"`
	RepairRateLimitPerMinute int    `mapstructure:"REPAIR_RATE_LIMIT_PER_MINUTE"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("BACKOFFICE_EVENT_EXCHANGE", "backoffice.events")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "backoffice:rate_limit")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	viper.SetDefault("DEFAULT_DAILY_RATE", 30000)
	viper.SetDefault("RATE_DRIFT_TOLERANCE", 1)
	viper.SetDefault("DRIFT_SCAN_SCHEDULE", "0 3 * * *")
	viper.SetDefault("DRIFT_SCAN_WINDOW_DAYS", 30)
	viper.SetDefault("REPAIR_RATE_LIMIT_PER_MINUTE", 30)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("BACKOFFICE_EVENT_EXCHANGE")
	_ = viper.BindEnv("AUTH_JWT_SECRET")
	_ = viper.BindEnv("INTERNAL_API_KEY", "INTERNAL_API_KEY", "BACKOFFICE_INTERNAL_API_KEY")
	_ = viper.BindEnv("CORS_ALLOWED_ORIGINS")
	_ = viper.BindEnv("DEFAULT_DAILY_RATE")
	_ = viper.BindEnv("RATE_DRIFT_TOLERANCE")
	_ = viper.BindEnv("DRIFT_SCAN_SCHEDULE")
	_ = viper.BindEnv("DRIFT_SCAN_WINDOW_DAYS")
	_ = viper.BindEnv("REPAIR_RATE_LIMIT_PER_MINUTE")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	// PORT (platform convention) takes precedence over SERVER_PORT when set.
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.DatabaseURL = strings.TrimSpace(config.DatabaseURL)
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.InternalAPIKey = strings.TrimSpace(config.InternalAPIKey)
	if config.InternalAPIKey == "" {
		config.InternalAPIKey = strings.TrimSpace(os.Getenv("BACKOFFICE_INTERNAL_API_KEY"))
	}
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "backoffice:rate_limit"
	}

	if config.DefaultDailyRate < 0 {
		log.Printf("level=warn component=config msg=\"negative default daily rate configured; coercing to zero\" daily_rate=%d", config.DefaultDailyRate)
		config.DefaultDailyRate = 0
	}
	if config.RateDriftTolerance < 0 {
		log.Printf("level=warn component=config msg=\"negative drift tolerance configured; using 1\" tolerance=%d", config.RateDriftTolerance)
		config.RateDriftTolerance = 1
	}
	if config.DriftScanWindowDays <= 0 {
		config.DriftScanWindowDays = 30
	}
	if config.RepairRateLimitPerMinute < 0 {
		config.RepairRateLimitPerMinute = 0
	}
	if strings.TrimSpace(config.DriftScanSchedule) == "" {
		config.DriftScanSchedule = "0 3 * * *"
	}

	return
}
