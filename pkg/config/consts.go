package config

const (
	EnvPrefix = "FPT"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv     = "FPT_APP_ENV"
	EnvPort       = "FPT_APP_PORT"
	EnvDBDSN      = "FPT_DB_DSN"
	EnvDBHost     = "FPT_DB_HOST"
	EnvDBUser     = "FPT_DB_USER"
	EnvDBName     = "FPT_DB_NAME"
	EnvRedisURL   = "FPT_REDIS_URL"
	EnvJWTSecret  = "FPT_JWT_SECRET"
	EnvJWTIssuer  = "FPT_JWT_ISSUER"
	EnvJWTExpMins = "FPT_JWT_EXPIRATION_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
