package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/mandir-kart/internal/pricing"
)

// Config holds the complete checkout engine configuration, loadable from
// environment variables (MANDIR_ prefix), flags, or YAML config files.
type Config struct {
	Backend BackendConfig
	Pricing PricingConfig
	Gateway GatewayConfig
	Store   StoreConfig
}

// BackendConfig points at the remote storefront API.
type BackendConfig struct {
	URL     string        `usage:"Storefront API base URL (MANDIR_BACKEND_URL or BACKEND_URL)" flag:"backend-url"`
	Timeout time.Duration `default:"30s" usage:"Per-request timeout" flag:"backend-timeout"`
}

// PricingConfig carries the deployment's pricing policy as decimal strings.
type PricingConfig struct {
	FreeShippingThreshold string `default:"2000" usage:"Subtotal at which shipping becomes free" flag:"free-shipping-threshold"`
	FlatShippingFee       string `default:"100"  usage:"Shipping fee below the threshold" flag:"flat-shipping-fee"`
	PrepaidDiscountRate   string `default:"0.05" usage:"Prepaid discount as a fraction of the subtotal" flag:"prepaid-discount-rate"`
	CODSurcharge          string `default:"50"   usage:"Cash-on-delivery surcharge" flag:"cod-surcharge"`
}

// GatewayConfig controls the payment gateway handoff.
type GatewayConfig struct {
	KeyID             string        `usage:"Gateway publishable key id" flag:"gateway-key-id"`
	Currency          string        `default:"INR" usage:"ISO currency code sent to the gateway"`
	Timeout           time.Duration `default:"15m" usage:"Bounded wait for a gateway result" flag:"gateway-timeout"`
	RedirectCountdown time.Duration `default:"5s"  usage:"Post-success window before automatic redirect" flag:"redirect-countdown"`
}

// StoreConfig controls persisted client-side state.
type StoreConfig struct {
	Dir          string        `default:"data" usage:"Directory for persisted cart state" flag:"store-dir"`
	PollInterval time.Duration `default:"1s"   usage:"Cross-tab change poll interval" flag:"store-poll-interval"`
}

// Policy converts the string knobs into a pricing.Policy.
func (c PricingConfig) Policy() (pricing.Policy, error) {
	threshold, err := decimal.NewFromString(c.FreeShippingThreshold)
	if err != nil {
		return pricing.Policy{}, errors.Wrap(err, "free shipping threshold")
	}
	fee, err := decimal.NewFromString(c.FlatShippingFee)
	if err != nil {
		return pricing.Policy{}, errors.Wrap(err, "flat shipping fee")
	}
	rate, err := decimal.NewFromString(c.PrepaidDiscountRate)
	if err != nil {
		return pricing.Policy{}, errors.Wrap(err, "prepaid discount rate")
	}
	surcharge, err := decimal.NewFromString(c.CODSurcharge)
	if err != nil {
		return pricing.Policy{}, errors.Wrap(err, "cod surcharge")
	}
	return pricing.Policy{
		FreeShippingThreshold: threshold,
		FlatShippingFee:       fee,
		PrepaidDiscountRate:   rate,
		CODSurcharge:          surcharge,
	}, nil
}

// LoadConfig loads configuration from environment variables and YAML config
// files, and applies platform defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "MANDIR",
		Files:     []string{"config.yaml", "/etc/mandir/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.Backend.URL == "" {
		return nil, errors.New("backend URL is required: set MANDIR_BACKEND_URL or BACKEND_URL")
	}
	if _, err := cfg.Pricing.Policy(); err != nil {
		return nil, errors.Wrap(err, "pricing policy")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps unprefixed environment variables to the
// MANDIR_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.Backend.URL == "" {
		if v := os.Getenv("BACKEND_URL"); v != "" {
			c.Backend.URL = v
		}
	}
}
