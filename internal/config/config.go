package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the API process.
// All values come from env (optionally pre-loaded from a .env file by the
// process entrypoint). No business logic reads raw environment variables.
type Config struct {
	App        AppConfig
	DB         DBConfig
	Redis      RedisConfig
	Auth       AuthConfig
	Agenda     AgendaConfig
	Dedup      DedupConfig
	WhatsApp   WhatsAppConfig
	Estimation EstimationConfig
	Reply      ReplyConfig
	MinIO      MinIOConfig
	Manual     ManualConfig
}

type AppConfig struct {
	Env      string
	Port     int
	Timezone string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

// RedisConfig is optional. An empty host keeps dedup in process memory.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Owner login. PasswordHash is a bcrypt hash.
	OwnerUsername     string
	OwnerPasswordHash string
	ShopID            string
}

type AgendaConfig struct {
	WeeklyLimit     int
	LookaheadDays   int
	DefaultCapacity int
	GenerateDays    int
	// GenerateSchedule is a cron spec for extending the slot horizon.
	GenerateSchedule string
}

type DedupConfig struct {
	IDWindow      time.Duration
	HashWindow    time.Duration
	SweepSchedule string
}

type WhatsAppConfig struct {
	BaseURL string
	Session string
	Token   string
}

type EstimationConfig struct {
	BaseURL string
	TopK    int
	Timeout time.Duration
}

// ReplyConfig enables LLM phrasing when APIKey is set; templates otherwise.
type ReplyConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
	ShopContext string
}

// MinIOConfig is optional. An empty endpoint keeps photos in memory.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type ManualConfig struct {
	DefaultMinutes int
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
	c.App.Timezone = strings.TrimSpace(os.Getenv("APP_TIMEZONE"))

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
	c.Redis.Password = os.Getenv("REDIS_PASSWORD")
	c.Redis.Port, parseErrs = optInt(parseErrs, "REDIS_PORT")
	c.Redis.DB, parseErrs = optInt(parseErrs, "REDIS_DB")

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	// Duration env vars are optional; defaults applied in Validate() based on env.
	c.Auth.AccessTokenTTL = mustDuration("JWT_ACCESS_TTL")
	c.Auth.RefreshTokenTTL = mustDuration("JWT_REFRESH_TTL")
	c.Auth.OwnerUsername = strings.TrimSpace(os.Getenv("OWNER_USERNAME"))
	c.Auth.OwnerPasswordHash = strings.TrimSpace(os.Getenv("OWNER_PASSWORD_HASH"))
	c.Auth.ShopID = strings.TrimSpace(os.Getenv("SHOP_ID"))

	c.Agenda.WeeklyLimit, parseErrs = optInt(parseErrs, "AGENDA_WEEKLY_LIMIT")
	c.Agenda.LookaheadDays, parseErrs = optInt(parseErrs, "AGENDA_LOOKAHEAD_DAYS")
	c.Agenda.DefaultCapacity, parseErrs = optInt(parseErrs, "AGENDA_DEFAULT_CAPACITY")
	c.Agenda.GenerateDays, parseErrs = optInt(parseErrs, "AGENDA_GENERATE_DAYS")
	c.Agenda.GenerateSchedule = strings.TrimSpace(os.Getenv("AGENDA_GENERATE_CRON"))

	c.Dedup.IDWindow = mustDuration("DEDUP_ID_TTL")
	c.Dedup.HashWindow = mustDuration("DEDUP_HASH_TTL")
	c.Dedup.SweepSchedule = strings.TrimSpace(os.Getenv("DEDUP_SWEEP_CRON"))

	c.WhatsApp.BaseURL = strings.TrimSpace(os.Getenv("WPP_API_URL"))
	c.WhatsApp.Session = strings.TrimSpace(os.Getenv("WPP_SESSION"))
	c.WhatsApp.Token = os.Getenv("WPP_TOKEN")

	c.Estimation.BaseURL = strings.TrimSpace(os.Getenv("EMBED_SERVICE_URL"))
	c.Estimation.TopK, parseErrs = optInt(parseErrs, "ESTIMATION_TOP_K")
	c.Estimation.Timeout = mustDuration("ESTIMATION_TIMEOUT")

	c.Reply.APIKey = os.Getenv("OPENAI_API_KEY")
	c.Reply.BaseURL = strings.TrimSpace(os.Getenv("OPENAI_BASE_URL"))
	c.Reply.Model = strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	c.Reply.Temperature, parseErrs = optFloat(parseErrs, "OPENAI_TEMPERATURE")
	c.Reply.Timeout = mustDuration("OPENAI_TIMEOUT")
	c.Reply.ShopContext = strings.TrimSpace(os.Getenv("SHOP_CONTEXT"))

	c.MinIO.Endpoint = strings.TrimSpace(os.Getenv("MINIO_ENDPOINT"))
	c.MinIO.AccessKey = strings.TrimSpace(os.Getenv("MINIO_ACCESS_KEY"))
	c.MinIO.SecretKey = os.Getenv("MINIO_SECRET_KEY")
	c.MinIO.Bucket = strings.TrimSpace(os.Getenv("MINIO_BUCKET"))
	c.MinIO.UseSSL, parseErrs = optBool(parseErrs, "MINIO_USE_SSL")

	c.Manual.DefaultMinutes, parseErrs = optInt(parseErrs, "MANUAL_DEFAULT_MINUTES")

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks required values and fills in defaults.
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
	if c.App.Timezone == "" {
		c.App.Timezone = "America/Sao_Paulo"
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("APP_TIMEZONE is not a known zone: %q", c.App.Timezone))
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
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host != "" {
		if c.Redis.Port == 0 {
			c.Redis.Port = 6379
		}
		if c.Redis.Port < 0 || c.Redis.Port > 65535 {
			errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
		}
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
	if c.Auth.OwnerUsername == "" {
		c.Auth.OwnerUsername = "owner"
	}
	if c.Auth.OwnerPasswordHash == "" {
		errs = append(errs, errors.New("OWNER_PASSWORD_HASH is required"))
	} else if !strings.HasPrefix(c.Auth.OwnerPasswordHash, "$2") {
		errs = append(errs, errors.New("OWNER_PASSWORD_HASH must be a bcrypt hash"))
	}
	if c.Auth.ShopID == "" {
		c.Auth.ShopID = "default"
	}

	if c.Agenda.WeeklyLimit == 0 {
		c.Agenda.WeeklyLimit = 5
	}
	if c.Agenda.LookaheadDays == 0 {
		c.Agenda.LookaheadDays = 30
	}
	if c.Agenda.DefaultCapacity == 0 {
		c.Agenda.DefaultCapacity = 3
	}
	if c.Agenda.GenerateDays == 0 {
		c.Agenda.GenerateDays = 30
	}
	if c.Agenda.WeeklyLimit < 0 || c.Agenda.LookaheadDays < 0 || c.Agenda.DefaultCapacity < 0 || c.Agenda.GenerateDays < 0 {
		errs = append(errs, errors.New("AGENDA_* values must be positive"))
	}
	if c.Agenda.GenerateSchedule == "" {
		c.Agenda.GenerateSchedule = "0 3 * * *"
	}

	if c.Dedup.IDWindow <= 0 {
		c.Dedup.IDWindow = 120 * time.Second
	}
	if c.Dedup.HashWindow <= 0 {
		c.Dedup.HashWindow = 30 * time.Second
	}
	if c.Dedup.SweepSchedule == "" {
		c.Dedup.SweepSchedule = "@every 1m"
	}

	if c.WhatsApp.BaseURL != "" {
		if _, err := url.ParseRequestURI(c.WhatsApp.BaseURL); err != nil {
			errs = append(errs, fmt.Errorf("WPP_API_URL is not a valid url: %q", c.WhatsApp.BaseURL))
		}
		if c.WhatsApp.Session == "" {
			errs = append(errs, errors.New("WPP_SESSION is required when WPP_API_URL is set"))
		}
	} else if c.IsProduction() {
		errs = append(errs, errors.New("WPP_API_URL is required in production"))
	}

	if c.Estimation.BaseURL == "" {
		c.Estimation.BaseURL = "http://localhost:8001"
	}
	if c.Estimation.TopK <= 0 {
		c.Estimation.TopK = 5
	}
	if c.Estimation.Timeout <= 0 {
		c.Estimation.Timeout = 30 * time.Second
	}

	if c.Reply.Model == "" {
		c.Reply.Model = "gpt-4o-mini"
	}
	if c.Reply.Temperature <= 0 {
		c.Reply.Temperature = 0.6
	}
	if c.Reply.Timeout <= 0 {
		c.Reply.Timeout = 15 * time.Second
	}

	if c.MinIO.Endpoint != "" {
		if c.MinIO.AccessKey == "" || c.MinIO.SecretKey == "" {
			errs = append(errs, errors.New("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required when MINIO_ENDPOINT is set"))
		}
		if c.MinIO.Bucket == "" {
			c.MinIO.Bucket = "attendant-images"
		}
	}

	if c.Manual.DefaultMinutes <= 0 {
		c.Manual.DefaultMinutes = 120
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

// Location is the shop's timezone. Validate guarantees it loads.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
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

// MigrateDSN is the URL form the migration driver expects.
func (c Config) MigrateDSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DB.User, c.DB.Password),
		Host:     fmt.Sprintf("%s:%d", c.DB.Host, c.DB.Port),
		Path:     "/" + c.DB.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.DB.SSLMode),
	}
	return u.String()
}

func (c Config) RedisEnabled() bool {
	return c.Redis.Host != ""
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func (c Config) MinIOEnabled() bool {
	return c.MinIO.Endpoint != ""
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

// optInt reads an optional integer; absent means zero (default later).
func optInt(errs []error, key string) (int, []error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, errs
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, append(errs, fmt.Errorf("%s must be an integer, got %q", key, v))
	}
	return n, errs
}

func optFloat(errs []error, key string) (float64, []error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, errs
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, append(errs, fmt.Errorf("%s must be a number, got %q", key, v))
	}
	return f, errs
}

func optBool(errs []error, key string) (bool, []error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return false, errs
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, append(errs, fmt.Errorf("%s must be a boolean, got %q", key, v))
	}
	return b, errs
}

func mustDuration(key string) time.Duration {
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
