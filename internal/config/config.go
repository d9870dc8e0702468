package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	pkgconfig "github.com/tasyapp/billing/pkg/config"
	"github.com/tasyapp/billing/pkg/logger"
)

const serviceName = "billing"

type Config struct {
	Service  ServiceConfig  `mapstructure:"service"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      logger.Config  `mapstructure:"log"`
	Stripe   StripeConfig   `mapstructure:"stripe" validate:"required"`
	Billing  BillingConfig  `mapstructure:"billing" validate:"required"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
}

// LoadConfig reads configs/<APP_ENV>/billing.yaml (or $CONFIG_PATH), overlays
// BILLING_* environment variables and validates the result.
func LoadConfig() (*Config, error) {
	src, err := pkgconfig.Load(serviceName, pkgconfig.Options{
		Defaults: defaults(),
		BindEnv: map[string][]string{
			"stripe.secret_key":           {"STRIPE_SECRET_KEY"},
			"stripe.webhook_secret_viral": {"STRIPE_WEBHOOK_SECRET_VIRAL"},
			"stripe.webhook_secret":       {"STRIPE_WEBHOOK_SECRET"},
			"auth.jwt_secret":             {"SUPABASE_JWT_SECRET"},
			"database.password":           {"DATABASE_PASSWORD"},
			"redis.addr":                  {"REDIS_ADDR"},
		},
	})
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := src.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct tags and the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	seen := make(map[string]struct{}, len(c.Billing.Prices))
	for _, p := range c.Billing.Prices {
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("invalid config: duplicate price id %q", p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return nil
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"service.name":                serviceName,
		"service.environment":         "development",
		"server.http.host":            "0.0.0.0",
		"server.http.port":            8080,
		"server.grpc.host":            "0.0.0.0",
		"server.grpc.port":            9090,
		"server.grpc.enabled":         true,
		"database.host":               "localhost",
		"database.port":               5432,
		"database.name":               "postgres",
		"database.user":               "postgres",
		"database.password":           "",
		"database.auto_migrate":       false,
		"database.sslmode":            "disable",
		"database.max_open_conns":     10,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  "30m",
		"database.conn_max_idle_time": "5m",
		"database.slow_query":         "200ms",
		"log.level":                   "info",
		"log.format":                  "json",
		"log.output":                  "stdout",
		"billing.product":             "tasy-viral",
		"billing.audit_timeout":       "2s",
		"billing.caps.starter":        240,
		"billing.caps.pro":            720,
		"billing.caps.business":       1999,
		"redis.addr":                  "",
		"redis.password":              "",
		"redis.db":                    0,
		"redis.channel_prefix":        "tasy:billing",
		"stripe.webhook_secret_viral": "",
		"stripe.webhook_secret":       "",
		"stripe.secret_key":           "",
		"auth.jwt_secret":             "",
	}
}
