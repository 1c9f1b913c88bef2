package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the API process.
// All values must come from env (or env-file loaded by the process runner).
// No business logic should depend on raw environment variables.
type Config struct {
	App    AppConfig
	DB     DBConfig
	Redis  RedisConfig
	Auth   AuthConfig
	Alerts AlertConfig
	Notify NotifyConfig
}

type AppConfig struct {
	Env  string
	Port int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// SSLMode is kept explicit so production deployments must opt in.
	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	Host string
	Port int
}

type AuthConfig struct {
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// AlertConfig carries the named tunables of the alert core: escalation
// deadlines and cap, assignment scoring weights, and the zone search radius.
// The three weights are expected to sum to 1.0.
type AlertConfig struct {
	MaxEscalations       int
	NoAckDeadline        time.Duration
	NoResolutionDeadline time.Duration

	WeightProximity float64
	WeightWorkload  float64
	WeightSkill     float64

	SearchRadius         int
	CriticalMaxAssignees int
}

type NotifyConfig struct {
	MaxRetries int

	// Burst guard: at most BurstLimit queued notifications per staff member
	// within BurstWindow. Zero disables the guard.
	BurstLimit  int
	BurstWindow time.Duration
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	// Duration env vars are optional; defaults applied in Validate() based on env.
	c.Auth.AccessTokenTTL = optDuration("JWT_ACCESS_TTL")
	c.Auth.RefreshTokenTTL = optDuration("JWT_REFRESH_TTL")

	// Alert tunables are all optional; Validate() applies defaults.
	c.Alerts.MaxEscalations = optInt("ALERT_MAX_ESCALATIONS")
	c.Alerts.NoAckDeadline = optDuration("ALERT_NO_ACK_DEADLINE")
	c.Alerts.NoResolutionDeadline = optDuration("ALERT_NO_RESOLUTION_DEADLINE")
	c.Alerts.WeightProximity = optFloat("ALERT_WEIGHT_PROXIMITY")
	c.Alerts.WeightWorkload = optFloat("ALERT_WEIGHT_WORKLOAD")
	c.Alerts.WeightSkill = optFloat("ALERT_WEIGHT_SKILL")
	c.Alerts.SearchRadius = optInt("ALERT_SEARCH_RADIUS")
	c.Alerts.CriticalMaxAssignees = optInt("ALERT_CRITICAL_MAX_ASSIGNEES")

	c.Notify.MaxRetries = optInt("NOTIFY_MAX_RETRIES")
	c.Notify.BurstLimit = optInt("NOTIFY_BURST_LIMIT")
	c.Notify.BurstWindow = optDuration("NOTIFY_BURST_WINDOW")

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if strings.TrimSpace(c.DB.SSLMode) == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			// Local-friendly default; production must be explicit.
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}

	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}

	// Alert defaults. The weights must form a convex combination so the
	// composite assignment score stays in [0,1].
	if c.Alerts.MaxEscalations <= 0 {
		c.Alerts.MaxEscalations = 3
	}
	if c.Alerts.NoAckDeadline <= 0 {
		c.Alerts.NoAckDeadline = 10 * time.Minute
	}
	if c.Alerts.NoResolutionDeadline <= 0 {
		c.Alerts.NoResolutionDeadline = 30 * time.Minute
	}
	if c.Alerts.WeightProximity == 0 && c.Alerts.WeightWorkload == 0 && c.Alerts.WeightSkill == 0 {
		c.Alerts.WeightProximity = 0.5
		c.Alerts.WeightWorkload = 0.3
		c.Alerts.WeightSkill = 0.2
	}
	if c.Alerts.WeightProximity < 0 || c.Alerts.WeightWorkload < 0 || c.Alerts.WeightSkill < 0 {
		errs = append(errs, errors.New("ALERT_WEIGHT_* values must be non-negative"))
	}
	sum := c.Alerts.WeightProximity + c.Alerts.WeightWorkload + c.Alerts.WeightSkill
	if math.Abs(sum-1.0) > 0.01 {
		errs = append(errs, fmt.Errorf("ALERT_WEIGHT_* values must sum to 1.0, got %.3f", sum))
	}
	if c.Alerts.SearchRadius <= 0 {
		c.Alerts.SearchRadius = 3
	}
	if c.Alerts.CriticalMaxAssignees <= 0 {
		c.Alerts.CriticalMaxAssignees = 3
	}

	if c.Notify.MaxRetries <= 0 {
		c.Notify.MaxRetries = 3
	}
	if c.Notify.BurstLimit < 0 {
		errs = append(errs, errors.New("NOTIFY_BURST_LIMIT must be >= 0"))
	}
	if c.Notify.BurstLimit > 0 && c.Notify.BurstWindow <= 0 {
		c.Notify.BurstWindow = time.Minute
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
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
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optInt(key string) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func optFloat(key string) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}

func optDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
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
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
