package config // package config loads application configuration from environment variables

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable; envconfig enforces the required ones and applies
// defaults for the rest.
type Config struct {
	Env       string `envconfig:"APP_ENV" default:"dev"`     // application environment (dev/test/prod)
	Port      string `envconfig:"APP_PORT" required:"true"`  // HTTP port to listen on
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`  // zerolog level name
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"` // json or console

	DBUser string `envconfig:"DB_USER" required:"true"` // database username
	DBPass string `envconfig:"DB_PASS"`                 // database password (optional)
	DBHost string `envconfig:"DB_HOST" required:"true"` // database host address
	DBPort string `envconfig:"DB_PORT" required:"true"` // database port number
	DBName string `envconfig:"DB_NAME" required:"true"` // database name

	SessionSecret string        `envconfig:"SESSION_SECRET" required:"true"` // HMAC key for the sid cookie
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"720h"`      // session lifetime (30 days)
	CookieSecure  bool          `envconfig:"SESSION_COOKIE_SECURE" default:"false"`
	BcryptCost    int           `envconfig:"BCRYPT_COST" default:"10"` // bcrypt cost for password hashing

	AssetMaxBytes int64 `envconfig:"ASSET_MAX_BYTES" default:"20971520"` // largest accepted payload
	AssetPageSize int   `envconfig:"ASSET_PAGE_SIZE" default:"60"`       // GET /assets page size

	ImageAPIKey     string        `envconfig:"OPENAI_API_KEY"` // empty disables generation
	ImageAPIBaseURL string        `envconfig:"IMAGE_API_BASE_URL" default:"https://api.openai.com"`
	ImageAPITimeout time.Duration `envconfig:"IMAGE_API_TIMEOUT" default:"60s"`
}

// Load reads an optional .env file and then the process environment into a
// Config.  Missing required variables are reported as an error.
func Load() (Config, error) {
	_ = godotenv.Load() // .env is optional outside of local development

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if cfg.AssetPageSize < 1 {
		cfg.AssetPageSize = 60
	}
	if cfg.BcryptCost < 4 {
		cfg.BcryptCost = 10
	}
	return cfg, nil
}

// DSN builds the go-sql-driver/mysql connection string.
// parseTime=true maps DATETIME/DATE to time.Time, loc=UTC keeps them consistent.
func (c Config) DSN() string {
	auth := c.DBUser
	if c.DBPass != "" {
		auth = fmt.Sprintf("%s:%s", c.DBUser, c.DBPass)
	}
	return fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, c.DBHost, c.DBPort, c.DBName)
}

// MigrateURL is the same DSN in the form golang-migrate's mysql driver expects.
func (c Config) MigrateURL() string {
	return "mysql://" + c.DSN() + "&multiStatements=true"
}
