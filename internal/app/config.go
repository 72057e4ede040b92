package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/sneha1789/timeless-tribe-checkout/internal/domain/pricing"
)

// Config holds the complete application configuration, loadable from
// environment variables (TRIBE_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `env:"DATABASE_URL" usage:"PostgreSQL connection URL (TRIBE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	JWTSecret   string `env:"JWT_SECRET" usage:"HS256 secret for bearer tokens (TRIBE_JWT_SECRET)" flag:"jwt-secret"`
	JWTTTL      time.Duration `env:"JWT_TTL" default:"24h" usage:"Bearer token lifetime" flag:"jwt-ttl"`
	Checkout    CheckoutConfig
	ESewa       ESewaConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// CheckoutConfig controls pricing policy and draft expiry.
type CheckoutConfig struct {
	FreeShippingThreshold int           `env:"FREE_SHIPPING_THRESHOLD" default:"2000" usage:"Discounted subtotal at which shipping is free" flag:"free-shipping-threshold"`
	ShippingFee           int           `env:"SHIPPING_FEE" default:"150"  usage:"Flat shipping fee below the threshold" flag:"shipping-fee"`
	DraftTTL              time.Duration `env:"DRAFT_TTL" default:"45m"  usage:"Age after which unpaid drafts are expired" flag:"draft-ttl"`
	SweepInterval         time.Duration `env:"SWEEP_INTERVAL" default:"5m"   usage:"How often the draft expiry sweeper runs" flag:"sweep-interval"`
	SweepLimit            int           `env:"SWEEP_LIMIT" default:"100"  usage:"Max drafts expired per sweep" flag:"sweep-limit"`
}

// PricingOptions converts the configured policy into pricing engine options.
func (c CheckoutConfig) PricingOptions() pricing.Options {
	return pricing.Options{
		FreeShippingThreshold: decimal.NewFromInt(int64(c.FreeShippingThreshold)),
		ShippingFee:           decimal.NewFromInt(int64(c.ShippingFee)),
	}
}

// ESewaConfig holds gateway merchant credentials and return URLs. Defaults
// point at the eSewa sandbox.
type ESewaConfig struct {
	FormURL     string `env:"FORM_URL" default:"https://rc-epay.esewa.com.np/api/epay/main/v2/form" usage:"Gateway form endpoint" flag:"esewa-form-url"`
	ProductCode string `env:"PRODUCT_CODE" default:"EPAYTEST" usage:"Merchant product code" flag:"esewa-product-code"`
	SecretKey   string `env:"SECRET_KEY" default:"8gBm/:&EnhH.1/q" usage:"Merchant signing secret" flag:"esewa-secret-key"`
	SuccessURL  string `env:"SUCCESS_URL" usage:"Browser return URL after successful payment" flag:"esewa-success-url"`
	FailureURL  string `env:"FAILURE_URL" usage:"Browser return URL after failed payment" flag:"esewa-failure-url"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "TRIBE",
		Files:     []string{"config.yaml", "/etc/tribe/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set TRIBE_DATABASE_URL or DATABASE_URL")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT secret is required: set TRIBE_JWT_SECRET")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's TRIBE_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
