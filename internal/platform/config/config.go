package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	liststrings "huanbo/pkg/platform/strings"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// Config is the full process configuration, built once in main.
type Config struct {
	Server    Server
	Storage   Storage
	Mail      Mail
	Admin     Admin
	RateLimit RateLimit
	Redis     RedisConfig
}

// Server captures HTTP server level configuration.
type Server struct {
	Port           int    `validate:"min=1,max=65535"`
	Environment    string `validate:"oneof=development production test"`
	StaticDir      string `validate:"required"`
	AllowedOrigins []string
	BodyLimitBytes int64 `validate:"gt=0"`
	// TrustedProxies lists the reverse proxies (IPs or CIDRs) whose
	// X-Forwarded-For entries are believed. Empty means the socket peer is
	// always the client.
	TrustedProxies []string `validate:"dive,cidr|ip"`
}

// Storage selects and locates the submission store.
type Storage struct {
	Backend string `validate:"oneof=file badger"`
	DataDir string `validate:"required"`
}

// Mail configures the SMTP transport and the notification dispatcher.
type Mail struct {
	Host          string `validate:"required,hostname|ip"`
	Port          int    `validate:"min=1,max=65535"`
	Username      string
	Password      string
	From          string `validate:"required,email"`
	CompanyEmail  string `validate:"required,email"`
	Timezone      string `validate:"required"`
	RatePerMinute int    `validate:"gt=0"`
	QueueSize     int    `validate:"gt=0"`
	SendTimeout   time.Duration
	DrainWindow   time.Duration
}

// Admin configures how the admin bearer token is verified.
type Admin struct {
	Mode      string `validate:"oneof=static jwt"`
	Token     string `validate:"required_if=Mode static"`
	JWTSecret string `validate:"required_if=Mode jwt"`
}

// RateLimit toggles per-IP throttling.
type RateLimit struct {
	Disabled bool
}

// RedisConfig holds Redis connection settings. An empty URL keeps rate limit
// state in process memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Addr returns the listen address for the HTTP server.
func (s Server) Addr() string {
	return ":" + strconv.Itoa(s.Port)
}

// IsDevelopment reports whether internal error detail may be shown to callers.
func (s Server) IsDevelopment() bool {
	return s.Environment == EnvDevelopment
}

// IsProduction reports whether the process runs in production.
func (s Server) IsProduction() bool {
	return s.Environment == EnvProduction
}

// DevAdminToken is the development fallback for ADMIN_TOKEN. Validate
// refuses it in production.
const DevAdminToken = "admin-secret-token"

var defaultOrigins = map[string][]string{
	EnvProduction:  {"https://www.huanbo-logistics.com", "https://huanbo-logistics.com"},
	EnvDevelopment: {"http://localhost:3000", "http://127.0.0.1:3000"},
	EnvTest:        {"http://localhost:3000", "http://127.0.0.1:3000"},
}

// Load reads an optional .env file and then builds the config from the
// environment. Variables already set in the environment win over .env.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	env := getString("APP_ENV", EnvDevelopment)

	origins := liststrings.SplitList(os.Getenv("ALLOWED_ORIGINS"))
	if len(origins) == 0 {
		origins = defaultOrigins[env]
	}

	smtpUser := getString("SMTP_USER", "info@huanbo-logistics.com")

	return Config{
		Server: Server{
			Port:           getInt("PORT", 3000),
			Environment:    env,
			StaticDir:      getString("STATIC_DIR", "public"),
			AllowedOrigins: origins,
			BodyLimitBytes: int64(getInt("BODY_LIMIT_BYTES", 10<<20)),
			TrustedProxies: liststrings.SplitList(os.Getenv("TRUSTED_PROXIES")),
		},
		Storage: Storage{
			Backend: getString("STORE_BACKEND", "file"),
			DataDir: getString("DATA_DIR", "data"),
		},
		Mail: Mail{
			Host:          getString("SMTP_HOST", "smtp.qq.com"),
			Port:          getInt("SMTP_PORT", 587),
			Username:      smtpUser,
			Password:      os.Getenv("SMTP_PASS"),
			From:          getString("MAIL_FROM", smtpUser),
			CompanyEmail:  getString("COMPANY_EMAIL", "info@huanbo-logistics.com"),
			Timezone:      getString("MAIL_TIMEZONE", "Asia/Shanghai"),
			RatePerMinute: getInt("MAIL_RATE_PER_MINUTE", 30),
			QueueSize:     getInt("NOTIFY_QUEUE_SIZE", 100),
			SendTimeout:   getDuration("MAIL_SEND_TIMEOUT", 15*time.Second),
			DrainWindow:   getDuration("NOTIFY_DRAIN_WINDOW", 30*time.Second),
		},
		Admin: Admin{
			Mode:      getString("ADMIN_AUTH", "static"),
			Token:     getString("ADMIN_TOKEN", DevAdminToken),
			JWTSecret: os.Getenv("ADMIN_JWT_SECRET"),
		},
		RateLimit: RateLimit{
			Disabled: os.Getenv("RATE_LIMIT_DISABLED") == "true",
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints declared in struct tags.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if _, err := time.LoadLocation(c.Mail.Timezone); err != nil {
		return fmt.Errorf("invalid configuration: MAIL_TIMEZONE: %w", err)
	}
	if c.Server.IsProduction() && c.Admin.Mode == "static" && c.Admin.Token == DevAdminToken {
		return errors.New("invalid configuration: ADMIN_TOKEN must be set in production")
	}
	return nil
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
