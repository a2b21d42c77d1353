package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment variable the service reads.
const EnvPrefix = "MODAKART"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	Gateway      GatewayConfig
	OTP          OTPConfig
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
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MODAKART_APP_ENV" required:"true"`
	Port         string `envconfig:"MODAKART_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MODAKART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MODAKART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"MODAKART_DB_DSN"`
	Driver string `envconfig:"MODAKART_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"MODAKART_DB_HOST"`
	Port     int    `envconfig:"MODAKART_DB_PORT" default:"5432"`
	User     string `envconfig:"MODAKART_DB_USER"`
	Password string `envconfig:"MODAKART_DB_PASSWORD"`
	Name     string `envconfig:"MODAKART_DB_NAME"`
	SSLMode  string `envconfig:"MODAKART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MODAKART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MODAKART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MODAKART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MODAKART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MODAKART_REDIS_URL" required:"true"`
	Password     string        `envconfig:"MODAKART_REDIS_PASSWORD"`
	DB           int           `envconfig:"MODAKART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MODAKART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MODAKART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MODAKART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MODAKART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MODAKART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"MODAKART_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MODAKART_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"MODAKART_JWT_EXPIRATION_MINUTES" default:"60"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"MODAKART_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"MODAKART_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"MODAKART_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"MODAKART_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"MODAKART_ARGON_KEY_LEN" default:"32"`
}

// GatewayConfig points at the external payment gateway.
type GatewayConfig struct {
	BaseURL  string        `envconfig:"MODAKART_GATEWAY_BASE_URL"`
	KeyID    string        `envconfig:"MODAKART_GATEWAY_KEY_ID"`
	Secret   string        `envconfig:"MODAKART_GATEWAY_SECRET"`
	Currency string        `envconfig:"MODAKART_GATEWAY_CURRENCY" default:"INR"`
	Timeout  time.Duration `envconfig:"MODAKART_GATEWAY_TIMEOUT" default:"10s"`
}

type OTPConfig struct {
	TTL    time.Duration `envconfig:"MODAKART_OTP_TTL" default:"5m"`
	Digits int           `envconfig:"MODAKART_OTP_DIGITS" default:"6"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"MODAKART_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"MODAKART_AUTO_MIGRATE" default:"false"`

	// DeferStockCommit delays stock decrement until payment confirmation
	// for every payment method. Off keeps the immediate commit for
	// cash-on-delivery and wallet orders.
	DeferStockCommit bool `envconfig:"MODAKART_DEFER_STOCK_COMMIT" default:"false"`

	// EnforceGatewaySignature rejects first-time gateway confirmations
	// whose HMAC signature does not match.
	EnforceGatewaySignature bool `envconfig:"MODAKART_ENFORCE_GATEWAY_SIGNATURE" default:"true"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		"MODAKART_DB_HOST": db.Host,
		"MODAKART_DB_USER": db.User,
		"MODAKART_DB_NAME": db.Name,
	}
	for _, key := range []string{"MODAKART_DB_HOST", "MODAKART_DB_USER", "MODAKART_DB_NAME"} {
		if values[key] == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either MODAKART_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
