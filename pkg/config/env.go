package config

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	defaultSQLiteDSN = "file:storefront.db?_foreign_keys=on"
)

const (
	EnvAppEnv           = "STOREFRONT_APP_ENV"
	EnvPort             = "STOREFRONT_APP_PORT"
	EnvDBDSN            = "STOREFRONT_DB_DSN"
	EnvDBDriver         = "STOREFRONT_DB_DRIVER"
	EnvUseSQLite        = "STOREFRONT_USE_SQLITE"
	EnvRedisURL         = "STOREFRONT_REDIS_URL"
	EnvJWTSecret        = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer        = "STOREFRONT_JWT_ISSUER"
	EnvPricingThreshold = "STOREFRONT_PRICING_FREE_SHIPPING_THRESHOLD"
	EnvPricingFlatFee   = "STOREFRONT_PRICING_FLAT_SHIPPING_FEE"
	EnvPricingTaxRate   = "STOREFRONT_PRICING_TAX_RATE"
	EnvFavoritesLimit   = "STOREFRONT_FAVORITES_RATE_LIMIT"
	EnvStripeAPIKey     = "STOREFRONT_STRIPE_API_KEY"
	EnvPubSubProject    = "STOREFRONT_GCP_PROJECT_ID"
	EnvPubSubOrders     = "STOREFRONT_PUBSUB_ORDERS_TOPIC"
)
