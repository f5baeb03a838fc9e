package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix                 = "APPPLAYBOOK"
	defaultHTTPAddress        = "0.0.0.0:8080"
	defaultLogLevel           = "info"
	defaultStorageDirectory   = "uploads"
	defaultStoragePublicBase  = "/uploads"
	defaultAuthAudience       = "authenticated"
	defaultAuthCookieName     = "sb-access-token"
	defaultLifetimePriceCents = 2000
	defaultMonthlyPriceCents  = 1400
)

// AppConfig captures runtime configuration for the API server.
//
// DatabasePath may be empty: catalog reads degrade to empty results
// instead of failing, so environments without a datastore still serve.
type AppConfig struct {
	HTTPAddress         string
	DatabasePath        string
	LogLevel            string
	AuthJWKSURL         string
	AuthIssuer          string
	AuthAudience        string
	AuthCookieName      string
	StorageDirectory    string
	StoragePublicBase   string
	AppBaseURL          string
	StripeSecretKey     string
	StripeWebhookSecret string
	LifetimePriceCents  int64
	MonthlyPriceCents   int64
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("log.level", defaultLogLevel)
	configViper.SetDefault("auth.audience", defaultAuthAudience)
	configViper.SetDefault("auth.cookie_name", defaultAuthCookieName)
	configViper.SetDefault("storage.directory", defaultStorageDirectory)
	configViper.SetDefault("storage.public_base_url", defaultStoragePublicBase)
	configViper.SetDefault("billing.lifetime_price_cents", defaultLifetimePriceCents)
	configViper.SetDefault("billing.monthly_price_cents", defaultMonthlyPriceCents)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:         configViper.GetString("http.address"),
		DatabasePath:        configViper.GetString("database.path"),
		LogLevel:            configViper.GetString("log.level"),
		AuthJWKSURL:         configViper.GetString("auth.jwks_url"),
		AuthIssuer:          configViper.GetString("auth.issuer"),
		AuthAudience:        configViper.GetString("auth.audience"),
		AuthCookieName:      configViper.GetString("auth.cookie_name"),
		StorageDirectory:    configViper.GetString("storage.directory"),
		StoragePublicBase:   configViper.GetString("storage.public_base_url"),
		AppBaseURL:          configViper.GetString("app.base_url"),
		StripeSecretKey:     configViper.GetString("stripe.secret_key"),
		StripeWebhookSecret: configViper.GetString("stripe.webhook_secret"),
		LifetimePriceCents:  configViper.GetInt64("billing.lifetime_price_cents"),
		MonthlyPriceCents:   configViper.GetInt64("billing.monthly_price_cents"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	if strings.TrimSpace(c.AuthJWKSURL) == "" {
		return fmt.Errorf("auth.jwks_url is required")
	}
	if strings.TrimSpace(c.AuthIssuer) == "" {
		return fmt.Errorf("auth.issuer is required")
	}
	if strings.TrimSpace(c.AppBaseURL) == "" {
		return fmt.Errorf("app.base_url is required")
	}
	if strings.TrimSpace(c.StripeSecretKey) == "" {
		return fmt.Errorf("stripe.secret_key is required")
	}
	if strings.TrimSpace(c.StripeWebhookSecret) == "" {
		return fmt.Errorf("stripe.webhook_secret is required")
	}
	if c.LifetimePriceCents <= 0 || c.MonthlyPriceCents <= 0 {
		return fmt.Errorf("billing prices must be positive")
	}
	return nil
}
