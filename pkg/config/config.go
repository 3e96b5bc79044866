package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Ledger       LedgerConfig
	BalanceCache BalanceCacheConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if _, err := cfg.Ledger.WelcomeBonusAmount(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FPT_APP_ENV" required:"true"`
	Port         string `envconfig:"FPT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FPT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FPT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"FPT_DB_DSN"`
	Driver string `envconfig:"FPT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FPT_DB_HOST"`
	LegacyPort     int    `envconfig:"FPT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FPT_DB_USER"`
	LegacyPassword string `envconfig:"FPT_DB_PASSWORD"`
	LegacyName     string `envconfig:"FPT_DB_NAME"`
	LegacySSLMode  string `envconfig:"FPT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FPT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FPT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FPT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FPT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FPT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FPT_REDIS_ADDR"`
	Password     string        `envconfig:"FPT_REDIS_PASSWORD"`
	DB           int           `envconfig:"FPT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FPT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FPT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FPT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FPT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FPT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"FPT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"FPT_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"FPT_JWT_EXPIRATION_MINUTES" default:"60"`
}

type LedgerConfig struct {
	// WelcomeBonus is the FPT grant credited when an account is created.
	WelcomeBonus string `envconfig:"FPT_LEDGER_WELCOME_BONUS" default:"10.00"`
	// MaxScale bounds the number of decimal places accepted on amounts.
	MaxScale int32 `envconfig:"FPT_LEDGER_MAX_SCALE" default:"2"`
}

// WelcomeBonusAmount parses the configured welcome bonus into a decimal.
func (l LedgerConfig) WelcomeBonusAmount() (decimal.Decimal, error) {
	value := strings.TrimSpace(l.WelcomeBonus)
	if value == "" {
		return decimal.Zero, nil
	}
	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid welcome bonus %q: %w", l.WelcomeBonus, err)
	}
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("welcome bonus must not be negative")
	}
	return amount, nil
}

type BalanceCacheConfig struct {
	TTL time.Duration `envconfig:"FPT_BALANCE_CACHE_TTL" default:"30s"`
}

type RateLimitConfig struct {
	Window time.Duration `envconfig:"FPT_RATE_LIMIT_WINDOW" default:"1m"`
	Limit  int           `envconfig:"FPT_RATE_LIMIT_PER_ACCOUNT" default:"120"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"FPT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"FPT_AUTO_MIGRATE" default:"false"`
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
