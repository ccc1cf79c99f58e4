package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	CORS         CORSConfig
	RateLimit    RateLimitConfig
	Stripe       StripeConfig
	Checkout     CheckoutConfig
	Sweeper      SweeperConfig
	Notify       NotifyConfig
	Sendgrid     SendgridConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"RESALE_APP_ENV" required:"true"`
	Port         string `envconfig:"RESALE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"RESALE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RESALE_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"RESALE_LOG_FORMAT" default:"json"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"RESALE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"RESALE_DB_DSN"`
	Driver string `envconfig:"RESALE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"RESALE_DB_HOST"`
	LegacyPort     int    `envconfig:"RESALE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"RESALE_DB_USER"`
	LegacyPassword string `envconfig:"RESALE_DB_PASSWORD"`
	LegacyName     string `envconfig:"RESALE_DB_NAME"`
	LegacySSLMode  string `envconfig:"RESALE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RESALE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RESALE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RESALE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RESALE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"RESALE_DB_SLOW_QUERY" default:"200ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"RESALE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"RESALE_REDIS_ADDR"`
	Password     string        `envconfig:"RESALE_REDIS_PASSWORD"`
	DB           int           `envconfig:"RESALE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RESALE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RESALE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RESALE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RESALE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RESALE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"RESALE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"RESALE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"RESALE_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"RESALE_AUTO_MIGRATE" default:"false"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"RESALE_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

// RateLimitConfig throttles the anonymous order tracking lookup per client IP.
type RateLimitConfig struct {
	TrackWindow time.Duration `envconfig:"RESALE_RATE_LIMIT_TRACK_WINDOW" default:"1m"`
	TrackLimit  int           `envconfig:"RESALE_RATE_LIMIT_TRACK_LIMIT" default:"30"`
}

type StripeConfig struct {
	APIKey  string        `envconfig:"RESALE_STRIPE_API_KEY"`
	Secret  string        `envconfig:"RESALE_STRIPE_WEBHOOK_SECRET"`
	Env     string        `envconfig:"RESALE_STRIPE_ENV" default:"test"`
	Timeout time.Duration `envconfig:"RESALE_STRIPE_TIMEOUT" default:"5s"`
	// EventTTL bounds how long processed webhook event ids are remembered.
	EventTTL time.Duration `envconfig:"RESALE_STRIPE_EVENT_TTL" default:"72h"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type CheckoutConfig struct {
	// BaseURL is the storefront origin used to build processor redirect targets.
	BaseURL  string `envconfig:"RESALE_CHECKOUT_BASE_URL"`
	Currency string `envconfig:"RESALE_CHECKOUT_CURRENCY" default:"usd"`
}

type SweeperConfig struct {
	GracePeriod time.Duration `envconfig:"RESALE_SWEEPER_GRACE_PERIOD" default:"5m"`
	Interval    time.Duration `envconfig:"RESALE_SWEEPER_INTERVAL" default:"1m"`
	LockTTL     time.Duration `envconfig:"RESALE_SWEEPER_LOCK_TTL" default:"5m"`
	BatchSize   int           `envconfig:"RESALE_SWEEPER_BATCH_SIZE" default:"100"`
}

type NotifyConfig struct {
	Driver  string        `envconfig:"RESALE_NOTIFY_DRIVER" default:"log"`
	Timeout time.Duration `envconfig:"RESALE_NOTIFY_TIMEOUT" default:"5s"`
}

type SendgridConfig struct {
	APIKey      string `envconfig:"RESALE_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"RESALE_SENDGRID_FROM_EMAIL"`
	FromName    string `envconfig:"RESALE_SENDGRID_FROM_NAME" default:"Resale Market"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"RESALE_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	NotificationTopic string `envconfig:"RESALE_PUBSUB_NOTIFICATION_TOPIC" default:"resale-notifications"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
