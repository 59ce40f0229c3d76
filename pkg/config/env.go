package config

const (
	EnvPrefix = "SHOPSENSE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "SHOPSENSE_APP_ENV"
	EnvPort     = "SHOPSENSE_APP_PORT"
	EnvLogLevel = "SHOPSENSE_LOG_LEVEL"

	EnvDBDSN    = "SHOPSENSE_DB_DSN"
	EnvDBDriver = "SHOPSENSE_DB_DRIVER"
	EnvDBHost   = "SHOPSENSE_DB_HOST"
	EnvDBUser   = "SHOPSENSE_DB_USER"
	EnvDBName   = "SHOPSENSE_DB_NAME"

	EnvRedisURL = "SHOPSENSE_REDIS_URL"
	EnvMongoURI = "SHOPSENSE_MONGO_URI"

	EnvJWTSecret              = "SHOPSENSE_JWT_SECRET"
	EnvJWTIssuer              = "SHOPSENSE_JWT_ISSUER"
	EnvJWTExpMins             = "SHOPSENSE_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "SHOPSENSE_REFRESH_TOKEN_TTL_MINUTES"

	EnvRecommenderURL = "SHOPSENSE_RECOMMENDER_URL"
	EnvLLMAPIKey      = "SHOPSENSE_LLM_API_KEY"
	EnvUseSQLite      = "SHOPSENSE_USE_SQLITE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
