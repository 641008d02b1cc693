package config

import (
	"errors"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Shortener ShortenerConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Port    string
	BaseURL string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	Host string
	Port string
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type ShortenerConfig struct {
	CodeLength   int
	MaxAttempts  int           // bound on random-code collision retries
	CacheTTL     time.Duration // staleness window of the resolution cache
	TrackTimeout time.Duration // budget for best-effort click recording
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Env-only deployments have no .env file.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, err
		}
	}

	setDefaults()

	var cfg Config
	cfg.App.Port = viper.GetString("APP_PORT")
	cfg.App.BaseURL = viper.GetString("BASE_URL")
	cfg.DB.Host = viper.GetString("DB_HOST")
	cfg.DB.Port = viper.GetString("DB_PORT")
	cfg.DB.User = viper.GetString("DB_USER")
	cfg.DB.Password = viper.GetString("DB_PASSWORD")
	cfg.DB.Name = viper.GetString("DB_NAME")
	cfg.Redis.Host = viper.GetString("REDIS_HOST")
	cfg.Redis.Port = viper.GetString("REDIS_PORT")

	cfg.Auth.JWTSecret = viper.GetString("JWT_SECRET")
	cfg.Auth.TokenTTL = time.Duration(viper.GetInt("JWT_TTL_MINUTES")) * time.Minute

	cfg.Shortener.CodeLength = viper.GetInt("CODE_LENGTH")
	cfg.Shortener.MaxAttempts = viper.GetInt("MAX_GENERATION_ATTEMPTS")
	cfg.Shortener.CacheTTL = time.Duration(viper.GetInt("CACHE_TTL_SECONDS")) * time.Second
	cfg.Shortener.TrackTimeout = time.Duration(viper.GetInt("TRACK_TIMEOUT_SECONDS")) * time.Second

	cfg.RateLimit.RequestsPerSecond = viper.GetFloat64("RATE_LIMIT_RPS")
	cfg.RateLimit.BurstSize = viper.GetInt("RATE_LIMIT_BURST")

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("BASE_URL", "http://localhost:8080")
	viper.SetDefault("JWT_TTL_MINUTES", 30)
	viper.SetDefault("CODE_LENGTH", 6)
	viper.SetDefault("MAX_GENERATION_ATTEMPTS", 10)
	viper.SetDefault("CACHE_TTL_SECONDS", 3600)
	viper.SetDefault("TRACK_TIMEOUT_SECONDS", 2)
	viper.SetDefault("RATE_LIMIT_RPS", 10)
	viper.SetDefault("RATE_LIMIT_BURST", 20)
}
