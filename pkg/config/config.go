package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/pricing"
)

type Config struct {
	App                AppConfig
	DB                 DBConfig
	Redis              RedisConfig
	JWT                JWTConfig
	FeatureFlags       FeatureFlagsConfig
	Pricing            PricingConfig
	FavoritesRateLimit FavoritesRateLimitConfig
	Checkout           CheckoutConfig
	Catalog            CatalogConfig
	Stripe             StripeConfig
	PubSub             PubSubConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if _, err := cfg.Pricing.Rules(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	// CORSOrigins lists browser origins allowed to call the API.
	CORSOrigins []string `envconfig:"STOREFRONT_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"STOREFRONT_DB_DSN"`
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"STOREFRONT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"STOREFRONT_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"STOREFRONT_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"STOREFRONT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
}

// PricingConfig carries the storefront's totals constants as decimal strings.
type PricingConfig struct {
	FreeShippingThreshold string `envconfig:"STOREFRONT_PRICING_FREE_SHIPPING_THRESHOLD" default:"2000"`
	FlatShippingFee       string `envconfig:"STOREFRONT_PRICING_FLAT_SHIPPING_FEE" default:"50"`
	TaxRate               string `envconfig:"STOREFRONT_PRICING_TAX_RATE" default:"0.18"`
}

// Rules parses the configured constants into pricing rules.
func (p PricingConfig) Rules() (pricing.Rules, error) {
	threshold, err := decimal.NewFromString(strings.TrimSpace(p.FreeShippingThreshold))
	if err != nil {
		return pricing.Rules{}, fmt.Errorf("parsing %s: %w", EnvPricingThreshold, err)
	}
	fee, err := decimal.NewFromString(strings.TrimSpace(p.FlatShippingFee))
	if err != nil {
		return pricing.Rules{}, fmt.Errorf("parsing %s: %w", EnvPricingFlatFee, err)
	}
	rate, err := decimal.NewFromString(strings.TrimSpace(p.TaxRate))
	if err != nil {
		return pricing.Rules{}, fmt.Errorf("parsing %s: %w", EnvPricingTaxRate, err)
	}
	rules := pricing.Rules{
		FreeShippingThreshold: threshold,
		FlatShippingFee:       fee,
		TaxRate:               rate,
	}
	if err := rules.Validate(); err != nil {
		return pricing.Rules{}, err
	}
	return rules, nil
}

type FavoritesRateLimitConfig struct {
	Window time.Duration `envconfig:"STOREFRONT_FAVORITES_RATE_LIMIT_WINDOW" default:"1m"`
	Limit  int           `envconfig:"STOREFRONT_FAVORITES_RATE_LIMIT" default:"10"`
}

type CheckoutConfig struct {
	// PublicOrigin is used for payment redirects when the request carries no Origin header.
	PublicOrigin   string        `envconfig:"STOREFRONT_PUBLIC_ORIGIN" default:"http://localhost:3000"`
	IdempotencyTTL time.Duration `envconfig:"STOREFRONT_CHECKOUT_IDEMPOTENCY_TTL" default:"168h"`
}

type CatalogConfig struct {
	CacheTTL time.Duration `envconfig:"STOREFRONT_CATALOG_CACHE_TTL" default:"5m"`
}

type StripeConfig struct {
	APIKey             string        `envconfig:"STOREFRONT_STRIPE_API_KEY"`
	Env                string        `envconfig:"STOREFRONT_STRIPE_ENV" default:"test"`
	Currency           string        `envconfig:"STOREFRONT_STRIPE_CURRENCY" default:"try"`
	BreakerMaxFailures uint32        `envconfig:"STOREFRONT_STRIPE_BREAKER_MAX_FAILURES" default:"5"`
	BreakerOpenTimeout time.Duration `envconfig:"STOREFRONT_STRIPE_BREAKER_OPEN_TIMEOUT" default:"30s"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// PubSubConfig enables order event publication when both values are set.
type PubSubConfig struct {
	ProjectID   string `envconfig:"STOREFRONT_GCP_PROJECT_ID"`
	OrdersTopic string `envconfig:"STOREFRONT_PUBSUB_ORDERS_TOPIC"`
}

func (p PubSubConfig) Enabled() bool {
	return strings.TrimSpace(p.ProjectID) != "" && strings.TrimSpace(p.OrdersTopic) != ""
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if useSQLite {
		db.Driver = DBDriverSQLite
	}
	switch strings.ToLower(strings.TrimSpace(db.Driver)) {
	case DBDriverSQLite:
		db.Driver = DBDriverSQLite
		if db.DSN == "" {
			db.DSN = defaultSQLiteDSN
		}
		return nil
	case "", DBDriverPostgres:
		db.Driver = DBDriverPostgres
		if db.DSN == "" {
			return fmt.Errorf("%s is required for the %s driver", EnvDBDSN, DBDriverPostgres)
		}
		return nil
	default:
		return fmt.Errorf("unsupported %s %q", EnvDBDriver, db.Driver)
	}
}
