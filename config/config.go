package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort string `mapstructure:"APP_PORT"`
	BaseURL string `mapstructure:"BASE_URL"`
	Env     string `mapstructure:"ENV"`

	// Storage configuration. Driver is one of "file", "memory", "postgres".
	StoreDriver string `mapstructure:"STORE_DRIVER"`
	DataDir     string `mapstructure:"DATA_DIR"`

	// Postgres configuration (used when STORE_DRIVER=postgres).
	DBHost string `mapstructure:"DB_HOST"`
	DBPort string `mapstructure:"DB_PORT"`
	DBUser string `mapstructure:"DB_USER"`
	DBPass string `mapstructure:"DB_PASS"`
	DBName string `mapstructure:"DB_NAME"`

	// Twilio WhatsApp transport.
	TwilioAccountSID   string `mapstructure:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken    string `mapstructure:"TWILIO_AUTH_TOKEN"`
	TwilioWhatsAppFrom string `mapstructure:"TWILIO_WHATSAPP_FROM"`

	// Stripe payment links.
	StripeSecretKey     string `mapstructure:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `mapstructure:"STRIPE_WEBHOOK_SECRET"`

	// Gemini dialogue agent.
	GeminiAPIKey string `mapstructure:"GEMINI_API_KEY"`

	// Google Cloud service account for speech-to-text.
	GoogleCredentialsFile string `mapstructure:"GOOGLE_CREDENTIALS_FILE"`

	// Appointment pricing.
	BookingPrice    int64  `mapstructure:"BOOKING_PRICE"`
	BookingCurrency string `mapstructure:"BOOKING_CURRENCY"`

	DisableWebhookValidation bool `mapstructure:"DISABLE_WEBHOOK_VALIDATION"`
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
	viper.SetDefault("BASE_URL", "http://localhost:8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("STORE_DRIVER", "file")
	viper.SetDefault("DATA_DIR", "data")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASS", "")
	viper.SetDefault("DB_NAME", "bookline")
	viper.SetDefault("BOOKING_PRICE", 50)
	viper.SetDefault("BOOKING_CURRENCY", "usd")
	viper.SetDefault("DISABLE_WEBHOOK_VALIDATION", false)

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
