package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	Mongo         MongoConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	CORS          CORSConfig
	Recommender   RecommenderConfig
	LLM           LLMConfig
	Events        EventsConfig
	Explain       ExplainConfig
	Checkout      CheckoutConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DriverSQLite
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SHOPSENSE_APP_ENV" required:"true"`
	Port         string `envconfig:"SHOPSENSE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SHOPSENSE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SHOPSENSE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultSQLiteDSN = "file:shopsense.db?cache=shared&_busy_timeout=5000"
)

type DBConfig struct {
	DSN    string `envconfig:"SHOPSENSE_DB_DSN"`
	Driver string `envconfig:"SHOPSENSE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SHOPSENSE_DB_HOST"`
	LegacyPort     int    `envconfig:"SHOPSENSE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SHOPSENSE_DB_USER"`
	LegacyPassword string `envconfig:"SHOPSENSE_DB_PASSWORD"`
	LegacyName     string `envconfig:"SHOPSENSE_DB_NAME"`
	LegacySSLMode  string `envconfig:"SHOPSENSE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SHOPSENSE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SHOPSENSE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SHOPSENSE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SHOPSENSE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the configured driver targets sqlite.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DriverSQLite)
}

// RedisConfig is optional; an empty URL and address leaves caching,
// rate limiting and refresh sessions unconfigured.
type RedisConfig struct {
	URL          string        `envconfig:"SHOPSENSE_REDIS_URL"`
	Address      string        `envconfig:"SHOPSENSE_REDIS_ADDR"`
	Password     string        `envconfig:"SHOPSENSE_REDIS_PASSWORD"`
	DB           int           `envconfig:"SHOPSENSE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SHOPSENSE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SHOPSENSE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SHOPSENSE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SHOPSENSE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SHOPSENSE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

// MongoConfig is optional; without a URI the event log lives in SQL.
type MongoConfig struct {
	URI            string        `envconfig:"SHOPSENSE_MONGO_URI"`
	Database       string        `envconfig:"SHOPSENSE_MONGO_DATABASE" default:"shopsense"`
	MaxPoolSize    uint64        `envconfig:"SHOPSENSE_MONGO_MAX_POOL_SIZE" default:"50"`
	ConnectTimeout time.Duration `envconfig:"SHOPSENSE_MONGO_CONNECT_TIMEOUT" default:"10s"`
}

// Enabled reports whether a Mongo URI was configured.
func (m MongoConfig) Enabled() bool {
	return strings.TrimSpace(m.URI) != ""
}

type JWTConfig struct {
	Secret                 string `envconfig:"SHOPSENSE_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"SHOPSENSE_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"SHOPSENSE_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"SHOPSENSE_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"SHOPSENSE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"SHOPSENSE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"SHOPSENSE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"SHOPSENSE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"SHOPSENSE_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow      time.Duration `envconfig:"SHOPSENSE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit  int           `envconfig:"SHOPSENSE_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit     int           `envconfig:"SHOPSENSE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	SignupWindow     time.Duration `envconfig:"SHOPSENSE_AUTH_RATE_LIMIT_SIGNUP_WINDOW" default:"5m"`
	SignupEmailLimit int           `envconfig:"SHOPSENSE_AUTH_RATE_LIMIT_SIGNUP_EMAIL_LIMIT" default:"3"`
	SignupIPLimit    int           `envconfig:"SHOPSENSE_AUTH_RATE_LIMIT_SIGNUP_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"SHOPSENSE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"SHOPSENSE_AUTO_MIGRATE" default:"false"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"SHOPSENSE_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
}

type RecommenderConfig struct {
	BaseURL          string        `envconfig:"SHOPSENSE_RECOMMENDER_URL" default:"http://localhost:8000"`
	Timeout          time.Duration `envconfig:"SHOPSENSE_RECOMMENDER_TIMEOUT" default:"3s"`
	BreakerFailures  uint32        `envconfig:"SHOPSENSE_RECOMMENDER_BREAKER_FAILURES" default:"5"`
	BreakerOpenFor   time.Duration `envconfig:"SHOPSENSE_RECOMMENDER_BREAKER_OPEN_FOR" default:"30s"`
	RecentEventLimit int           `envconfig:"SHOPSENSE_RECOMMENDER_RECENT_EVENTS" default:"10"`
}

// LLMConfig is optional; without an API key explanations skip straight to the
// recommender and template tiers.
type LLMConfig struct {
	APIKey      string        `envconfig:"SHOPSENSE_LLM_API_KEY"`
	Model       string        `envconfig:"SHOPSENSE_LLM_MODEL" default:"gemini-2.0-flash"`
	Timeout     time.Duration `envconfig:"SHOPSENSE_LLM_TIMEOUT" default:"8s"`
	Temperature float32       `envconfig:"SHOPSENSE_LLM_TEMPERATURE" default:"0.4"`
}

// Enabled reports whether an LLM API key was configured.
func (l LLMConfig) Enabled() bool {
	return strings.TrimSpace(l.APIKey) != ""
}

type EventsConfig struct {
	GuestSessionTTL time.Duration `envconfig:"SHOPSENSE_GUEST_SESSION_TTL" default:"24h"`
	BufferSize      int           `envconfig:"SHOPSENSE_EVENTS_BUFFER_SIZE" default:"20"`
}

type ExplainConfig struct {
	CacheTTL      time.Duration `envconfig:"SHOPSENSE_EXPLAIN_CACHE_TTL" default:"12h"`
	BasicCacheTTL time.Duration `envconfig:"SHOPSENSE_EXPLAIN_BASIC_CACHE_TTL" default:"1h"`
}

type CheckoutConfig struct {
	IdempotencyTTL time.Duration `envconfig:"SHOPSENSE_CHECKOUT_IDEMPOTENCY_TTL" default:"24h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = defaultSQLiteDSN
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
