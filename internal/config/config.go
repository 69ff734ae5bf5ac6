package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds every setting the service reads at startup.
type Config struct {
	AppPort   string
	LogLevel  string
	LogFormat string

	DatabaseDriver string // "postgres" or "sqlite"
	DatabaseDSN    string

	JWTSecret   string
	RabbitMQURL string
	RedisURL    string

	ShippingFlatRate decimal.Decimal
	Currency         string

	ReadTimeout    time.Duration
	ReadRetryDelay time.Duration

	PayPal PayPalConfig
}

// PayPalConfig holds the REST credentials and redirect URLs for checkout.
type PayPalConfig struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	ReturnURL    string
	CancelURL    string
	BrandName    string
}

// Enabled reports whether PayPal credentials were supplied.
func (p PayPalConfig) Enabled() bool {
	return p.ClientID != "" && p.ClientSecret != ""
}

// Load reads configuration from the environment on top of the defaults below.
func Load() (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()
	return FromViper(v)
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("DATABASE_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "file:tienda.db?_foreign_keys=on")
	v.SetDefault("JWT_SECRET", "change-me")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("SHIPPING_FLAT_RATE", "150")
	v.SetDefault("CURRENCY", "MXN")
	v.SetDefault("READ_TIMEOUT", "10s")
	v.SetDefault("READ_RETRY_DELAY", "3s")
	v.SetDefault("PAYPAL_BASE_URL", "https://api-m.sandbox.paypal.com")
	v.SetDefault("PAYPAL_RETURN_URL", "http://localhost:3000/checkout/paypal/return")
	v.SetDefault("PAYPAL_CANCEL_URL", "http://localhost:3000/checkout/paypal/cancel")
	v.SetDefault("PAYPAL_BRAND_NAME", "Tienda")
}

// FromViper builds a Config out of an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(v.GetString("SHIPPING_FLAT_RATE")))
	if err != nil {
		return nil, fmt.Errorf("invalid SHIPPING_FLAT_RATE: %w", err)
	}
	if rate.IsNegative() {
		return nil, fmt.Errorf("SHIPPING_FLAT_RATE must not be negative")
	}

	driver := strings.ToLower(v.GetString("DATABASE_DRIVER"))
	if driver != "postgres" && driver != "sqlite" {
		return nil, fmt.Errorf("unsupported DATABASE_DRIVER %q", driver)
	}

	return &Config{
		AppPort:          v.GetString("APP_PORT"),
		LogLevel:         v.GetString("LOG_LEVEL"),
		LogFormat:        v.GetString("LOG_FORMAT"),
		DatabaseDriver:   driver,
		DatabaseDSN:      v.GetString("DATABASE_DSN"),
		JWTSecret:        v.GetString("JWT_SECRET"),
		RabbitMQURL:      v.GetString("RABBITMQ_URL"),
		RedisURL:         v.GetString("REDIS_URL"),
		ShippingFlatRate: rate,
		Currency:         strings.ToUpper(v.GetString("CURRENCY")),
		ReadTimeout:      v.GetDuration("READ_TIMEOUT"),
		ReadRetryDelay:   v.GetDuration("READ_RETRY_DELAY"),
		PayPal: PayPalConfig{
			ClientID:     v.GetString("PAYPAL_CLIENT_ID"),
			ClientSecret: v.GetString("PAYPAL_CLIENT_SECRET"),
			BaseURL:      strings.TrimRight(v.GetString("PAYPAL_BASE_URL"), "/"),
			ReturnURL:    v.GetString("PAYPAL_RETURN_URL"),
			CancelURL:    v.GetString("PAYPAL_CANCEL_URL"),
			BrandName:    v.GetString("PAYPAL_BRAND_NAME"),
		},
	}, nil
}
