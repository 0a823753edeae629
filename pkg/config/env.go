package config

// EnvPrefix namespaces every environment variable the service reads.
const EnvPrefix = "NEARBASKET"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "NEARBASKET_APP_ENV"
	EnvPort     = "NEARBASKET_APP_PORT"
	EnvLogLevel = "NEARBASKET_LOG_LEVEL"

	EnvDBDSN    = "NEARBASKET_DB_DSN"
	EnvDBDriver = "NEARBASKET_DB_DRIVER"
	EnvDBHost   = "NEARBASKET_DB_HOST"
	EnvDBPort   = "NEARBASKET_DB_PORT"
	EnvDBUser   = "NEARBASKET_DB_USER"
	EnvDBPass   = "NEARBASKET_DB_PASSWORD"
	EnvDBName   = "NEARBASKET_DB_NAME"

	EnvRedisURL = "NEARBASKET_REDIS_URL"

	EnvJWTSecret  = "NEARBASKET_JWT_SECRET"
	EnvJWTIssuer  = "NEARBASKET_JWT_ISSUER"
	EnvJWTExpMins = "NEARBASKET_JWT_EXPIRATION_MINUTES"

	EnvGCPProjectID = "NEARBASKET_GCP_PROJECT_ID"

	EnvPubSubOrdersTopic       = "NEARBASKET_PUBSUB_ORDERS_TOPIC"
	EnvPubSubOrdersSub         = "NEARBASKET_PUBSUB_ORDERS_SUBSCRIPTION"
	EnvPubSubNotificationTopic = "NEARBASKET_PUBSUB_NOTIFICATION_TOPIC"
	EnvPubSubNotificationSub   = "NEARBASKET_PUBSUB_NOTIFICATION_SUBSCRIPTION"
)

// legacyDBEnvVars are the discrete connection variables accepted when
// no DSN is provided.
var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
