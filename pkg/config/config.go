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
	Delivery     DeliveryConfig
	Settings     SettingsConfig
	Eventing     EventingConfig
	GCS          GCSConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Payment      PaymentConfig
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
	Env          string `envconfig:"NEARBASKET_APP_ENV" required:"true"`
	Port         string `envconfig:"NEARBASKET_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"NEARBASKET_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"NEARBASKET_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"NEARBASKET_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"NEARBASKET_DB_DSN"`
	Driver string `envconfig:"NEARBASKET_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"NEARBASKET_DB_HOST"`
	LegacyPort     int    `envconfig:"NEARBASKET_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"NEARBASKET_DB_USER"`
	LegacyPassword string `envconfig:"NEARBASKET_DB_PASSWORD"`
	LegacyName     string `envconfig:"NEARBASKET_DB_NAME"`
	LegacySSLMode  string `envconfig:"NEARBASKET_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"NEARBASKET_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"NEARBASKET_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"NEARBASKET_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"NEARBASKET_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"NEARBASKET_REDIS_URL" required:"true"`
	Address      string        `envconfig:"NEARBASKET_REDIS_ADDR"`
	Password     string        `envconfig:"NEARBASKET_REDIS_PASSWORD"`
	DB           int           `envconfig:"NEARBASKET_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"NEARBASKET_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"NEARBASKET_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"NEARBASKET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"NEARBASKET_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"NEARBASKET_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"NEARBASKET_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"NEARBASKET_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"NEARBASKET_JWT_EXPIRATION_MINUTES" required:"true"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"NEARBASKET_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"NEARBASKET_AUTO_MIGRATE" default:"false"`
}

// DeliveryConfig carries platform-wide fulfillment knobs that are not
// tariff-specific. Per-zone tariffs always win over these.
type DeliveryConfig struct {
	DefaultPrepBufferMinutes int           `envconfig:"NEARBASKET_DELIVERY_PREP_BUFFER_MINUTES" default:"10"`
	OTPLength                int           `envconfig:"NEARBASKET_DELIVERY_OTP_LENGTH" default:"4"`
	ReturnWindow             time.Duration `envconfig:"NEARBASKET_DELIVERY_RETURN_WINDOW" default:"168h"`
	CashbackHoldPeriod       time.Duration `envconfig:"NEARBASKET_DELIVERY_CASHBACK_HOLD_PERIOD" default:"168h"`
}

type SettingsConfig struct {
	CacheTTL time.Duration `envconfig:"NEARBASKET_SETTINGS_CACHE_TTL" default:"5m"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"NEARBASKET_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCSConfig struct {
	BucketName string        `envconfig:"NEARBASKET_GCS_BUCKET"`
	ReadURLTTL time.Duration `envconfig:"NEARBASKET_GCS_READ_URL_TTL" default:"15m"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"NEARBASKET_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"NEARBASKET_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"NEARBASKET_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic              string `envconfig:"NEARBASKET_PUBSUB_ORDERS_TOPIC" required:"true"`
	OrdersSubscription       string `envconfig:"NEARBASKET_PUBSUB_ORDERS_SUBSCRIPTION" required:"true"`
	NotificationTopic        string `envconfig:"NEARBASKET_PUBSUB_NOTIFICATION_TOPIC" default:"nb-notification-events"`
	NotificationSubscription string `envconfig:"NEARBASKET_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"NEARBASKET_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"NEARBASKET_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"NEARBASKET_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

// PaymentConfig points at the external gateway used for online captures
// and refunds.
type PaymentConfig struct {
	GatewayBaseURL string        `envconfig:"NEARBASKET_PAYMENT_GATEWAY_URL"`
	GatewayAPIKey  string        `envconfig:"NEARBASKET_PAYMENT_GATEWAY_API_KEY"`
	RequestTimeout time.Duration `envconfig:"NEARBASKET_PAYMENT_REQUEST_TIMEOUT" default:"10s"`
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
