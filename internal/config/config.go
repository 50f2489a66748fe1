package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

/*
Config holds all configuration required by the API process and the
worker CLIs. All values MUST come from environment variables.
No business logic should depend on raw env vars.
*/
type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Anomaly  AnomalyConfig
	Alloc    AllocationConfig
	Recon    ReconciliationConfig
}

/* ===================== APP ===================== */

type AppConfig struct {
	Env  string
	Host string // API_HOST: bind address, "" = all interfaces
	Port int

	// LogLevel is read from LOG_LEVEL (debug, info, warn, error). Empty
	// falls back to the Env-based default logger.New already applies.
	LogLevel string

	Maintenance   bool // UI read-only / banner
	EmergencyStop bool // HARD STOP all calls
}

/* ===================== DATABASE ===================== */

type DBConfig struct {
	// URI is DB_URI, a complete Postgres connection string. When set it
	// is used verbatim by PostgresDSN and the Host/Port/User/Password/
	// Name/SSLMode fields below are ignored.
	URI string

	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string // disable, require, verify-ca, verify-full
}

/* ===================== REDIS ===================== */

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	UseTLS   bool
}

/* ===================== AUTH ===================== */

type AuthConfig struct {
	JWTSecret        string
	JWTIssuer        string
	JWTAudience      string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

/* ===================== ANOMALY DETECTION ===================== */

type AnomalyConfig struct {
	Enabled            bool
	HourlyThreshold    string // decimal string, parsed by the anomaly package
	DailyThreshold     string
	NotificationWebhook string
}

/* ===================== MONTHLY ALLOCATION ===================== */

type AllocationConfig struct {
	Enabled     bool
	CreditPrice string // decimal string: currency units charged per credit
	// RunDay is accepted and validated for compatibility with
	// MONTHLY_ALLOCATION_RUN_DAY, but the allocator's actual gate is the
	// fixed first-three-days-of-month window (worker.Gated), not this
	// value: a single configurable day has no resilience against a
	// process being down during the scheduled hour.
	RunDay int
}

/* ===================== RECONCILIATION ===================== */

type ReconciliationConfig struct {
	Enabled          bool
	IntervalSeconds  int
}

/* ===================== LOAD ===================== */

func Load() (Config, error) {
	var parseErrs []error
	var err error

	c := Config{}

	/* ---- APP ---- */
	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	c.App.Host = strings.TrimSpace(os.Getenv("API_HOST"))
	c.App.Port, err = firstInt("API_PORT", "APP_PORT")
	parseErrs = append(parseErrs, err)

	c.App.LogLevel = strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))

	c.App.Maintenance = strings.ToLower(os.Getenv("APP_MAINTENANCE")) == "true"
	c.App.EmergencyStop = strings.ToLower(os.Getenv("APP_EMERGENCY_STOP")) == "true"

	/* ---- DB ---- */
	c.DB.URI = strings.TrimSpace(os.Getenv("DB_URI"))
	if c.DB.URI == "" {
		c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
		c.DB.Port, err = mustInt("DB_PORT")
		parseErrs = append(parseErrs, err)

		c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
		c.DB.Password = os.Getenv("DB_PASSWORD")
		c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
		c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))
	}

	/* ---- REDIS ---- */
	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	c.Redis.Port, err = mustInt("REDIS_PORT")
	parseErrs = append(parseErrs, err)

	c.Redis.Password = os.Getenv("REDIS_PASSWORD")
	c.Redis.UseTLS = strings.ToLower(os.Getenv("REDIS_TLS")) == "true"

	/* ---- AUTH ---- */
	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))

	c.Auth.AccessTokenTTL, err = mustDuration("JWT_ACCESS_TTL")
	parseErrs = append(parseErrs, err)

	c.Auth.RefreshTokenTTL, err = mustDuration("JWT_REFRESH_TTL")
	parseErrs = append(parseErrs, err)

	/* ---- ANOMALY DETECTION ---- */
	c.Anomaly.Enabled = strings.ToLower(os.Getenv("ANOMALY_DETECTION_ENABLED")) == "true"
	c.Anomaly.HourlyThreshold = strings.TrimSpace(os.Getenv("ANOMALY_HOURLY_THRESHOLD"))
	c.Anomaly.DailyThreshold = strings.TrimSpace(os.Getenv("ANOMALY_DAILY_THRESHOLD"))
	c.Anomaly.NotificationWebhook = strings.TrimSpace(os.Getenv("ANOMALY_NOTIFICATION_WEBHOOK"))

	/* ---- MONTHLY ALLOCATION ---- */
	c.Alloc.Enabled = strings.ToLower(os.Getenv("MONTHLY_ALLOCATION_ENABLED")) == "true"
	c.Alloc.CreditPrice = strings.TrimSpace(os.Getenv("MONTHLY_ALLOCATION_CREDIT_PRICE"))
	if v := strings.TrimSpace(os.Getenv("MONTHLY_ALLOCATION_RUN_DAY")); v != "" {
		c.Alloc.RunDay, err = strconv.Atoi(v)
		parseErrs = append(parseErrs, err)
	}

	/* ---- RECONCILIATION ---- */
	c.Recon.Enabled = strings.ToLower(os.Getenv("RECONCILIATION_ENABLED")) == "true"
	if v := strings.TrimSpace(os.Getenv("RECONCILIATION_INTERVAL_SECONDS")); v != "" {
		c.Recon.IntervalSeconds, err = strconv.Atoi(v)
		parseErrs = append(parseErrs, err)
	}

	/* ---- APPLY DEFAULTS (NO SIDE EFFECTS IN VALIDATE) ---- */
	if c.Auth.AccessTokenTTL == 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTokenTTL == 0 {
		c.Auth.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if c.DB.SSLMode == "" && !c.IsProduction() {
		c.DB.SSLMode = "disable"
	}
	if c.Alloc.RunDay == 0 {
		c.Alloc.RunDay = 1
	}
	if c.Recon.IntervalSeconds == 0 {
		c.Recon.IntervalSeconds = 3600
	}

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}

	return c, nil
}

/* ===================== VALIDATION ===================== */

func (c Config) Validate() error {
	var errs []error

	/* ---- APP ---- */
	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	}
	if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be local, dev, staging, or production"))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("API_PORT must be valid"))
	}

	/* ---- DB ---- */
	if c.DB.URI == "" {
		if c.DB.Host == "" {
			errs = append(errs, errors.New("DB_HOST is required (or set DB_URI)"))
		}
		if c.DB.Port <= 0 {
			errs = append(errs, errors.New("DB_PORT is required (or set DB_URI)"))
		}
		if c.DB.User == "" {
			errs = append(errs, errors.New("DB_USER is required (or set DB_URI)"))
		}
		if c.DB.Name == "" {
			errs = append(errs, errors.New("DB_NAME is required (or set DB_URI)"))
		}
		if c.IsProduction() && c.DB.SSLMode == "" {
			errs = append(errs, errors.New("DB_SSLMODE required in production"))
		}
		if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
			errs = append(errs, fmt.Errorf("invalid DB_SSLMODE"))
		}
	}
	if c.App.LogLevel != "" && !isValidLogLevel(c.App.LogLevel) {
		errs = append(errs, fmt.Errorf("LOG_LEVEL must be debug, info, warn, or error"))
	}

	/* ---- REDIS ---- */
	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 {
		errs = append(errs, errors.New("REDIS_PORT is required"))
	}

	/* ---- AUTH ---- */
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE required in production"))
		}
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}

	/* ---- ANOMALY DETECTION ---- */
	if c.Anomaly.Enabled && c.Anomaly.HourlyThreshold == "" && c.Anomaly.DailyThreshold == "" {
		errs = append(errs, errors.New(
			"ANOMALY_HOURLY_THRESHOLD or ANOMALY_DAILY_THRESHOLD is required when ANOMALY_DETECTION_ENABLED=true",
		))
	}

	/* ---- MONTHLY ALLOCATION ---- */
	if c.Alloc.Enabled && c.Alloc.CreditPrice == "" {
		errs = append(errs, errors.New(
			"MONTHLY_ALLOCATION_CREDIT_PRICE is required when MONTHLY_ALLOCATION_ENABLED=true",
		))
	}
	if c.Alloc.RunDay < 0 || c.Alloc.RunDay > 28 {
		errs = append(errs, errors.New("MONTHLY_ALLOCATION_RUN_DAY must be between 1 and 28"))
	}

	return joinErrors(errs)
}

/* ===================== HELPERS ===================== */

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.App.Host, c.App.Port)
}

// PostgresDSN returns DB_URI verbatim when set, otherwise builds a DSN
// from the decomposed DB_HOST/DB_PORT/DB_USER/DB_PASSWORD/DB_NAME/
// DB_SSLMODE fields.
func (c Config) PostgresDSN() string {
	if c.DB.URI != "" {
		return c.DB.URI
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	return strconv.Atoi(v)
}

// firstInt reads the first of keys that is set, in order, falling back to
// the next key if the preceding ones are unset. Used so a spec-named env
// var (API_PORT) takes precedence over a legacy alias (APP_PORT) without
// requiring both to be set.
func firstInt(keys ...string) (int, error) {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return strconv.Atoi(v)
		}
	}
	return 0, fmt.Errorf("%s is required", keys[0])
}

func mustDuration(key string) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be valid duration like 15m", key)
	}
	return d, nil
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidLogLevel(v string) bool {
	switch v {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	var nonNil []error
	for _, e := range errs {
		if e != nil {
			nonNil = append(nonNil, e)
		}
	}
	if len(nonNil) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range nonNil {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
