package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Config holds the complete application configuration, loadable from
// environment variables (NEKI_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (NEKI_DATABASE_URL or DATABASE_URL)" flag:"database-url"`

	Shipping ShippingConfig
	Payment  PaymentConfig
	CORS     CORSConfig
	Graceful GracefulConfig
}

// ShippingConfig parameterizes the reference shipping-fee policy.
// Amounts are decimal strings in the store currency.
type ShippingConfig struct {
	FreeThreshold string `default:"500000" usage:"order amount at which shipping is free" flag:"free-threshold"`
	FlatFee       string `default:"30000"  usage:"flat shipping fee below the threshold" flag:"flat-fee"`
}

// FreeThresholdAmount parses the configured threshold.
func (c ShippingConfig) FreeThresholdAmount() (decimal.Decimal, error) {
	return decimal.NewFromString(c.FreeThreshold)
}

// FlatFeeAmount parses the configured flat fee.
func (c ShippingConfig) FlatFeeAmount() (decimal.Decimal, error) {
	return decimal.NewFromString(c.FlatFee)
}

// PaymentConfig controls the payment boundary.
type PaymentConfig struct {
	GatewayURL string `default:"" usage:"payment provider base URL" flag:"gateway-url"`
	// GatewayMethodIDs lists payment method ids that require a hosted
	// checkout link; other methods are cash on delivery.
	GatewayMethodIDs []int64 `usage:"payment method ids served by the gateway" flag:"gateway-methods"`
	// CodeFilterPath optionally points at a bloom filter sidecar produced
	// by the discount-ingest tool.
	CodeFilterPath string `default:"" usage:"path to discount code bloom filter" flag:"code-filter"`
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
		EnvPrefix: "NEKI",
		Files:     []string{"config.yaml", "/etc/neki/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set NEKI_DATABASE_URL or DATABASE_URL")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables that
// use standard names like DATABASE_URL and PORT to the application's
// NEKI_-prefixed configuration.
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
