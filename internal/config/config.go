package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	S3       S3Config       `mapstructure:"s3"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type DatabaseConfig struct {
	URI  string `mapstructure:"uri"`
	Name string `mapstructure:"name"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// JWTConfig defines JWT specific configuration.
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// CacheConfig controls the program/template cache layer.
type CacheConfig struct {
	// ProgramTTL is how long a cached program document stays fresh.
	ProgramTTL time.Duration `mapstructure:"program_ttl"`
	// Dir is where the cache snapshot files live.
	Dir string `mapstructure:"dir"`
}

// ScheduleConfig controls plan calendar alignment and the promotion sweep.
type ScheduleConfig struct {
	// AnchorWeekday is the weekday a plan's Day 1 must start on when the
	// client begins at the top of the program. 0 = Sunday ... 6 = Saturday.
	AnchorWeekday int `mapstructure:"anchor_weekday"`
	// PromotionSweep is a cron spec for the eager next-plan promotion sweep.
	PromotionSweep string `mapstructure:"promotion_sweep"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Environment variable handling: server.address -> SERVER_ADDRESS etc.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("database.uri", "mongodb://localhost:27017")
	viper.SetDefault("database.name", "fitcoach_default")
	viper.SetDefault("s3.use_ssl", true)
	viper.SetDefault("jwt.expiration", "1h")
	viper.SetDefault("cache.program_ttl", "5m")
	viper.SetDefault("cache.dir", "./cache")
	viper.SetDefault("schedule.anchor_weekday", 0) // Sunday
	viper.SetDefault("schedule.promotion_sweep", "@hourly")

	err = viper.ReadInConfig()
	// Config file not found is fine; we might run on env vars alone.
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		err = nil
	} else if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	return config, nil
}
