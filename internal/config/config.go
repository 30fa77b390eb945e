package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultModelForeignKey = "user_id"
	DefaultSignatureTable  = "subscriptions"
	DefaultIuguBaseURL     = "https://api.iugu.com/v1"
	defaultConfigFile      = "config.yaml"
)

type Config struct {
	// Server configuration
	Port string
	Mode string

	// Database configuration
	DatabaseURL string

	// Redis configuration
	RedisURL              string
	WebhookLockTTLSeconds int

	// Brevo email configuration
	BrevoAPIKey    string
	BrevoFromEmail string
	BrevoFromName  string

	// Admin routes
	AdminAPIKey string

	// Where downloaded invoices are written, empty keeps them in memory only
	InvoiceStoragePath string

	// App backend notified of webhook-driven subscription changes
	CallbackURL    string
	CallbackSecret string

	Iugu IuguConfig
}

// IuguConfig mirrors the services.iugu block of the config file.
type IuguConfig struct {
	APIKey          string
	AccountID       string
	BaseURL         string
	ModelForeignKey string
	SignatureTable  string
	WebhookToken    string
}

// fileConfig is the on-disk YAML layout.
type fileConfig struct {
	Services struct {
		Iugu struct {
			Key             string `yaml:"key"`
			AccountID       string `yaml:"account_id"`
			BaseURL         string `yaml:"base_url"`
			ModelForeignKey string `yaml:"model_foreign_key"`
			SignatureTable  string `yaml:"signature_table"`
			WebhookToken    string `yaml:"webhook_token"`
		} `yaml:"iugu"`
	} `yaml:"services"`
}

var AppConfig *Config

func InitConfig() error {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		// Ignore error if .env file doesn't exist
	}

	cfg, err := Load(os.Getenv("GUPAYMENT_CONFIG"))
	if err != nil {
		return err
	}
	AppConfig = cfg
	return nil
}

// Load builds a Config from the environment layered over the YAML file at
// path. An empty path falls back to config.yaml in the working directory when
// it exists.
func Load(path string) (*Config, error) {
	file, err := readFileConfig(path)
	if err != nil {
		return nil, err
	}
	iugu := file.Services.Iugu

	return &Config{
		Port:                  getEnv("PORT", "8080"),
		Mode:                  getEnv("GIN_MODE", "debug"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		RedisURL:              getEnv("REDIS_URL", ""),
		WebhookLockTTLSeconds: getEnvInt("WEBHOOK_LOCK_TTL_SECONDS", 30),
		BrevoAPIKey:           getEnv("BREVO_API_KEY", ""),
		BrevoFromEmail:        getEnv("BREVO_FROM_EMAIL", ""),
		BrevoFromName:         getEnv("BREVO_FROM_NAME", "Billing"),
		AdminAPIKey:           getEnv("ADMIN_API_KEY", ""),
		InvoiceStoragePath:    getEnv("INVOICE_STORAGE_PATH", ""),
		CallbackURL:           getEnv("SUBSCRIPTION_CALLBACK_URL", ""),
		CallbackSecret:        getEnv("SUBSCRIPTION_CALLBACK_SECRET", ""),
		Iugu: IuguConfig{
			APIKey:          getEnv("IUGU_APIKEY", iugu.Key),
			AccountID:       getEnv("IUGU_ACCOUNT_ID", iugu.AccountID),
			BaseURL:         getEnv("IUGU_BASE_URL", orDefault(iugu.BaseURL, DefaultIuguBaseURL)),
			ModelForeignKey: getEnv("IUGU_MODEL_FOREIGN_KEY", orDefault(iugu.ModelForeignKey, DefaultModelForeignKey)),
			SignatureTable:  getEnv("GUPAYMENT_SIGNATURE_TABLE", orDefault(iugu.SignatureTable, DefaultSignatureTable)),
			WebhookToken:    getEnv("IUGU_WEBHOOK_TOKEN", iugu.WebhookToken),
		},
	}, nil
}

// ResolveAPIKey returns override when set, otherwise the configured key.
func (c IuguConfig) ResolveAPIKey(override string) string {
	if override != "" {
		return override
	}
	return c.APIKey
}

func readFileConfig(path string) (fileConfig, error) {
	var fc fileConfig
	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return fc, nil
		}
		return fc, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return fc, nil
}

func orDefault(value, defaultValue string) string {
	if value != "" {
		return value
	}
	return defaultValue
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
