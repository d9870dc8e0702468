package config

import (
	"time"

	"github.com/tasyapp/billing/internal/domain/entity"
)

type ServiceConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment" validate:"omitempty,oneof=development staging production test"`
	Version     string `mapstructure:"version"`
}

func (c ServiceConfig) IsProduction() bool {
	return c.Environment == "production"
}

// StripeConfig holds provider credentials.
//
// WebhookSecretViral is the endpoint secret for the tasy-viral endpoint;
// WebhookSecret is the shared secret used when the product one is unset or
// does not match.
type StripeConfig struct {
	SecretKey          string `mapstructure:"secret_key"`
	WebhookSecretViral string `mapstructure:"webhook_secret_viral"`
	WebhookSecret      string `mapstructure:"webhook_secret"`
}

// WebhookSecrets returns the configured signing secrets in the order they
// should be tried. Empty entries are skipped.
func (c StripeConfig) WebhookSecrets() []string {
	secrets := make([]string, 0, 2)
	for _, s := range []string{c.WebhookSecretViral, c.WebhookSecret} {
		if s != "" {
			secrets = append(secrets, s)
		}
	}
	return secrets
}

// PriceConfig maps one Stripe price id to a plan and billing interval.
type PriceConfig struct {
	ID       string `mapstructure:"id" validate:"required"`
	Plan     string `mapstructure:"plan" validate:"required,oneof=starter pro business"`
	Interval string `mapstructure:"interval" validate:"required,oneof=monthly yearly"`
}

type BillingConfig struct {
	// Product is the metadata marker subscriptions must carry to be handled
	Product string        `mapstructure:"product" validate:"required"`
	Prices  []PriceConfig `mapstructure:"prices" validate:"dive"`
	// Caps is the monthly credit cap per plan
	Caps         map[string]int `mapstructure:"caps" validate:"dive,min=0"`
	AuditTimeout time.Duration  `mapstructure:"audit_timeout"`
}

type RedisConfig struct {
	Addr          string `mapstructure:"addr"`
	Password      string `mapstructure:"password"`
	DB            int    `mapstructure:"db"`
	ChannelPrefix string `mapstructure:"channel_prefix"`
}

// Enabled reports whether event publication should be wired.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

type AuthConfig struct {
	// JWTSecret is the Supabase JWT secret for the account API
	JWTSecret string `mapstructure:"jwt_secret"`
}

// PriceTable builds the price lookup used by the reconciler.
func (c BillingConfig) PriceTable() *entity.PriceTable {
	prices := make([]entity.Price, 0, len(c.Prices))
	for _, p := range c.Prices {
		prices = append(prices, entity.Price{
			ID:       p.ID,
			Plan:     entity.Plan(p.Plan),
			Interval: entity.Interval(p.Interval),
		})
	}
	return entity.NewPriceTable(prices)
}

// CreditCaps overlays configured caps on the defaults.
func (c BillingConfig) CreditCaps() entity.CreditCaps {
	caps := entity.DefaultCreditCaps()
	for plan, limit := range c.Caps {
		caps[entity.Plan(plan)] = limit
	}
	return caps
}
