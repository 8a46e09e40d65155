package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "wishwell"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv = "WISHWELL_APP_ENV"
	EnvDBDSN  = "WISHWELL_DB_DSN"
	EnvDBHost = "WISHWELL_DB_HOST"
	EnvDBUser = "WISHWELL_DB_USER"
	EnvDBName = "WISHWELL_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	Ledger        LedgerConfig
	Realtime      RealtimeConfig
	FeatureFlags  FeatureFlagsConfig
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
	Env          string `envconfig:"WISHWELL_APP_ENV" required:"true"`
	Port         string `envconfig:"WISHWELL_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"WISHWELL_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"WISHWELL_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"WISHWELL_DB_DSN"`
	Driver string `envconfig:"WISHWELL_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"WISHWELL_DB_HOST"`
	LegacyPort     int    `envconfig:"WISHWELL_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"WISHWELL_DB_USER"`
	LegacyPassword string `envconfig:"WISHWELL_DB_PASSWORD"`
	LegacyName     string `envconfig:"WISHWELL_DB_NAME"`
	LegacySSLMode  string `envconfig:"WISHWELL_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"WISHWELL_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"WISHWELL_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"WISHWELL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"WISHWELL_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"WISHWELL_REDIS_URL" required:"true"`
	Address      string        `envconfig:"WISHWELL_REDIS_ADDR"`
	Password     string        `envconfig:"WISHWELL_REDIS_PASSWORD"`
	DB           int           `envconfig:"WISHWELL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"WISHWELL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"WISHWELL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"WISHWELL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"WISHWELL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"WISHWELL_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"WISHWELL_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"WISHWELL_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"WISHWELL_JWT_EXPIRATION_MINUTES" default:"60"`
	SessionTTLMinutes int    `envconfig:"WISHWELL_SESSION_TTL_MINUTES" default:"43200"`
}

// SessionTTL returns the redis session TTL configured in minutes.
func (j JWTConfig) SessionTTL() time.Duration {
	if j.SessionTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.SessionTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"WISHWELL_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"WISHWELL_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"WISHWELL_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"WISHWELL_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"WISHWELL_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"WISHWELL_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"WISHWELL_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"WISHWELL_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"WISHWELL_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"WISHWELL_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"WISHWELL_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

// LedgerConfig tunes the per-item critical section around funding mutations.
type LedgerConfig struct {
	LockMode        string        `envconfig:"WISHWELL_LEDGER_LOCK_MODE" default:"local"`
	LockWaitTimeout time.Duration `envconfig:"WISHWELL_LEDGER_LOCK_WAIT_TIMEOUT" default:"3s"`
	LockTTL         time.Duration `envconfig:"WISHWELL_LEDGER_LOCK_TTL" default:"10s"`
}

// RealtimeConfig tunes the SSE hub and the cross-instance event bus.
type RealtimeConfig struct {
	ClientBuffer      int           `envconfig:"WISHWELL_REALTIME_CLIENT_BUFFER" default:"16"`
	HeartbeatInterval time.Duration `envconfig:"WISHWELL_REALTIME_HEARTBEAT_INTERVAL" default:"25s"`
	RedisChannel      string        `envconfig:"WISHWELL_REALTIME_REDIS_CHANNEL" default:"ww:funding-events"`
	UseRedisBus       bool          `envconfig:"WISHWELL_REALTIME_USE_REDIS_BUS" default:"false"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"WISHWELL_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"WISHWELL_AUTO_MIGRATE" default:"false"`
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
