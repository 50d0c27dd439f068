package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`
	CORSOrigins       string `mapstructure:"CORS_ALLOWED_ORIGINS"`

	// MongoDB.
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DatabaseName string `mapstructure:"DATABASE_NAME"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisAuthDB   int    `mapstructure:"REDIS_AUTH_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// Session keys handed to browser clients.
	JWTSecret       string        `mapstructure:"JWT_SECRET"`
	SessionTokenTTL time.Duration `mapstructure:"SESSION_TOKEN_TTL"`
	SessionIdleTTL  time.Duration `mapstructure:"SESSION_IDLE_TTL"`

	// Firebase identity provider.
	FirebaseCredentialsFile string `mapstructure:"FIREBASE_CREDENTIALS_FILE"`
	FirebaseWebAPIKey       string `mapstructure:"FIREBASE_WEB_API_KEY"`

	// Stripe.
	StripeKey             string `mapstructure:"STRIPE_KEY"`
	StripePriceID         string `mapstructure:"STRIPE_PRICE_ID"`
	StripeSuccessURL      string `mapstructure:"STRIPE_SUCCESS_URL"`
	StripeCancelURL       string `mapstructure:"STRIPE_CANCEL_URL"`
	StripePortalReturnURL string `mapstructure:"STRIPE_PORTAL_RETURN_URL"`

	// Quota. FreeDailyAllowance is the only allowance value; the plan
	// description shown to users is derived from it.
	FreeDailyAllowance   int  `mapstructure:"FREE_DAILY_ALLOWANCE"`
	QuotaAtomicIncrement bool `mapstructure:"QUOTA_ATOMIC_INCREMENT"`

	// External legal search API.
	LegalSearchURL   string `mapstructure:"LEGAL_SEARCH_URL"`
	LegalSearchToken string `mapstructure:"LEGAL_SEARCH_TOKEN"`

	// News aggregation.
	NewsSources     string `mapstructure:"NEWS_SOURCES"`
	NewsFeeds       string `mapstructure:"NEWS_FEEDS"`
	NewsRefreshSpec string `mapstructure:"NEWS_REFRESH_SPEC"`

	// Cloudinary avatar storage.
	CloudinaryCloudName string `mapstructure:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `mapstructure:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `mapstructure:"CLOUDINARY_API_SECRET"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 200)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "courtwise")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_AUTH_DB", 1)
	viper.SetDefault("REDIS_QUEUE_DB", 2)
	viper.SetDefault("JWT_SECRET", "")
	viper.SetDefault("SESSION_TOKEN_TTL", "720h")
	viper.SetDefault("SESSION_IDLE_TTL", "30m")
	viper.SetDefault("FIREBASE_CREDENTIALS_FILE", "config/firebase-service-account.json")
	viper.SetDefault("FIREBASE_WEB_API_KEY", "")
	viper.SetDefault("STRIPE_KEY", "")
	viper.SetDefault("STRIPE_PRICE_ID", "")
	viper.SetDefault("STRIPE_SUCCESS_URL", "http://localhost:3000/subscription?status=success")
	viper.SetDefault("STRIPE_CANCEL_URL", "http://localhost:3000/subscription?status=cancelled")
	viper.SetDefault("STRIPE_PORTAL_RETURN_URL", "http://localhost:3000/profile")
	viper.SetDefault("FREE_DAILY_ALLOWANCE", 1)
	viper.SetDefault("QUOTA_ATOMIC_INCREMENT", false)
	viper.SetDefault("LEGAL_SEARCH_URL", "https://api.indiankanoon.org/search/")
	viper.SetDefault("LEGAL_SEARCH_TOKEN", "")
	viper.SetDefault("NEWS_SOURCES", "")
	viper.SetDefault("NEWS_FEEDS", "")
	viper.SetDefault("NEWS_REFRESH_SPEC", "@every 1h")
	viper.SetDefault("CLOUDINARY_CLOUD_NAME", "")
	viper.SetDefault("CLOUDINARY_API_KEY", "")
	viper.SetDefault("CLOUDINARY_API_SECRET", "")

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if AppConfig.FreeDailyAllowance < 0 {
		AppConfig.FreeDailyAllowance = 0
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}

// SplitList turns a comma separated config value into its trimmed, non-empty parts.
func SplitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
