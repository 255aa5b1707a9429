// internal/config/config.go
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Env        string `mapstructure:"APP_ENV"`
	ServerPort string `mapstructure:"SERVER_PORT"`

	DBHost     string `mapstructure:"DATABASE_HOST"`
	DBPort     string `mapstructure:"DATABASE_PORT"`
	DBUser     string `mapstructure:"DATABASE_USER"`
	DBPassword string `mapstructure:"DATABASE_PASSWORD"`
	DBName     string `mapstructure:"DATABASE_NAME"`
	DBSSLMode  string `mapstructure:"DATABASE_SSL_MODE"`

	RedisHost     string `mapstructure:"REDIS_HOST"`
	RedisPort     string `mapstructure:"REDIS_PORT"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	RabbitMQURL string `mapstructure:"RABBITMQ_URL"`

	InternalAPISecret string `mapstructure:"INTERNAL_API_SECRET"`
	CORSOrigins       string `mapstructure:"CORS_ORIGINS"`

	// JobsCron is empty when the server should not schedule maintenance jobs.
	JobsCron      string `mapstructure:"JOBS_CRON"`
	JobsTieBreak  string `mapstructure:"JOBS_TIE_BREAK"`
	JobsBatchSize int    `mapstructure:"JOBS_BATCH_SIZE"`

	ActivationRetries int `mapstructure:"ACTIVATION_RETRIES"`

	RollbarToken string `mapstructure:"ROLLBAR_TOKEN"`
	Build        string `mapstructure:"BUILD"`
}

var defaults = map[string]interface{}{
	"APP_ENV":             "DEV",
	"SERVER_PORT":         "8081",
	"DATABASE_HOST":       "",
	"DATABASE_PORT":       "5432",
	"DATABASE_USER":       "postgres",
	"DATABASE_PASSWORD":   "",
	"DATABASE_NAME":       "courses",
	"DATABASE_SSL_MODE":   "disable",
	"REDIS_HOST":          "",
	"REDIS_PORT":          "6379",
	"REDIS_PASSWORD":      "",
	"REDIS_DB":            0,
	"RABBITMQ_URL":        "",
	"INTERNAL_API_SECRET": "",
	"CORS_ORIGINS":        "",
	"JOBS_CRON":           "",
	"JOBS_TIE_BREAK":      "skip",
	"JOBS_BATCH_SIZE":     500,
	"ACTIVATION_RETRIES":  3,
	"ROLLBAR_TOKEN":       "",
	"BUILD":               "dev",
}

// Load reads .env (if present), an optional app.env file from path and the
// process environment, in increasing order of precedence.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
		_ = v.BindEnv(key)
	}

	var cfg Config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// DSN builds the postgres connection string.
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode)
}

func (c Config) RedisAddr() string {
	if c.RedisHost == "" {
		return ""
	}
	return c.RedisHost + ":" + c.RedisPort
}

// AllowedOrigins splits CORS_ORIGINS on commas.
func (c Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
