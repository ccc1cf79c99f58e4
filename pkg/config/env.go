package config

// EnvPrefix namespaces envconfig keys; the tags below are already fully qualified
// and envconfig falls back to them when the prefixed key is absent.
const EnvPrefix = "RESALE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv            = "RESALE_APP_ENV"
	EnvPort              = "RESALE_APP_PORT"
	EnvDBDSN             = "RESALE_DB_DSN"
	EnvDBHost            = "RESALE_DB_HOST"
	EnvDBUser            = "RESALE_DB_USER"
	EnvDBName            = "RESALE_DB_NAME"
	EnvRedisURL          = "RESALE_REDIS_URL"
	EnvJWTSecret         = "RESALE_JWT_SECRET"
	EnvJWTIssuer         = "RESALE_JWT_ISSUER"
	EnvCheckoutBaseURL   = "RESALE_CHECKOUT_BASE_URL"
	EnvSweeperGrace      = "RESALE_SWEEPER_GRACE_PERIOD"
	EnvNotifyDriver      = "RESALE_NOTIFY_DRIVER"
	EnvCORSAllowedOrigin = "RESALE_CORS_ALLOWED_ORIGINS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
