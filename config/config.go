package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	DatabaseName      string `mapstructure:"DATABASE_NAME"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Redis configuration.
	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	RedisPassword  string `mapstructure:"REDIS_PASSWORD"`
	RedisSessionDB int    `mapstructure:"REDIS_SESSION_DB"`
	RedisCacheDB   int    `mapstructure:"REDIS_CACHE_DB"`
	RedisEventDB   int    `mapstructure:"REDIS_EVENT_DB"`
	RedisWorkerDB  int    `mapstructure:"REDIS_WORKER_DB"`

	// Google API keys.
	GeminiAPIKey             string `mapstructure:"GEMINI_API_KEY"`
	GoogleAPIKey             string `mapstructure:"GOOGLE_API_KEY"`
	GoogleServiceAccountFile string `mapstructure:"GOOGLE_SERVICE_ACCOUNT_FILE"`

	// Synthesized audio output.
	AudioDir string `mapstructure:"AUDIO_DIR"`

	// Conversation tuning.
	ConfidenceFloor     float64 `mapstructure:"CONFIDENCE_FLOOR"`
	MaxSilenceTimeouts  int     `mapstructure:"MAX_SILENCE_TIMEOUTS"`
	MaxPipelineFailures int     `mapstructure:"MAX_PIPELINE_FAILURES"`
	MaxTurns            int     `mapstructure:"MAX_TURNS"`
	HistoryWindow       int     `mapstructure:"HISTORY_WINDOW"`
	SessionTTLMinutes   int     `mapstructure:"SESSION_TTL_MINUTES"`
	SessionCapMinutes   int     `mapstructure:"SESSION_CAP_MINUTES"`
	LockTimeoutSeconds  int     `mapstructure:"LOCK_TIMEOUT_SECONDS"`

	// Cache TTLs.
	AudioCacheTTLHours int `mapstructure:"AUDIO_CACHE_TTL_HOURS"`
	FAQCacheTTLMinutes int `mapstructure:"FAQ_CACHE_TTL_MINUTES"`

	// Cost unit rates.
	TelephonyRatePerMin    float64 `mapstructure:"TELEPHONY_RATE_PER_MIN"`
	RecognitionRatePerMin  float64 `mapstructure:"RECOGNITION_RATE_PER_MIN"`
	SynthesisRatePer1KChar float64 `mapstructure:"SYNTHESIS_RATE_PER_1K_CHAR"`
	CheapRatePer1KTokens   float64 `mapstructure:"CHEAP_RATE_PER_1K_TOKENS"`
	CapableRatePer1KTokens float64 `mapstructure:"CAPABLE_RATE_PER_1K_TOKENS"`
	CurrencyMultiplier     float64 `mapstructure:"CURRENCY_MULTIPLIER"`

	// Reservations.
	DefaultSlotCapacity int `mapstructure:"RESERVATION_DEFAULT_SLOT_CAPACITY"`
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
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 300)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_SESSION_DB", 0)
	viper.SetDefault("REDIS_CACHE_DB", 1)
	viper.SetDefault("REDIS_EVENT_DB", 2)
	viper.SetDefault("REDIS_WORKER_DB", 3)
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "voicedesk")
	viper.SetDefault("GEMINI_API_KEY", "")
	viper.SetDefault("GOOGLE_API_KEY", "")
	viper.SetDefault("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	viper.SetDefault("AUDIO_DIR", "./audio")
	viper.SetDefault("CONFIDENCE_FLOOR", 0.45)
	viper.SetDefault("MAX_SILENCE_TIMEOUTS", 2)
	viper.SetDefault("MAX_PIPELINE_FAILURES", 2)
	viper.SetDefault("MAX_TURNS", 20)
	viper.SetDefault("HISTORY_WINDOW", 10)
	viper.SetDefault("SESSION_TTL_MINUTES", 30)
	viper.SetDefault("SESSION_CAP_MINUTES", 15)
	viper.SetDefault("LOCK_TIMEOUT_SECONDS", 15)
	viper.SetDefault("AUDIO_CACHE_TTL_HOURS", 12)
	viper.SetDefault("FAQ_CACHE_TTL_MINUTES", 60)
	viper.SetDefault("TELEPHONY_RATE_PER_MIN", 0.014)
	viper.SetDefault("RECOGNITION_RATE_PER_MIN", 0.024)
	viper.SetDefault("SYNTHESIS_RATE_PER_1K_CHAR", 0.016)
	viper.SetDefault("CHEAP_RATE_PER_1K_TOKENS", 0.00075)
	viper.SetDefault("CAPABLE_RATE_PER_1K_TOKENS", 0.00525)
	viper.SetDefault("CURRENCY_MULTIPLIER", 1.0)
	viper.SetDefault("RESERVATION_DEFAULT_SLOT_CAPACITY", 50)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
