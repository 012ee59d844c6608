package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config is the full runtime configuration read from the environment.
type Config struct {
	AppEnv    string `env:"APP_ENV" envDefault:"development"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	BotToken     string `env:"BOT_TOKEN"`
	BotTokenFile string `env:"BOT_TOKEN_FILE,file"`
	AdminChatID  int64  `env:"ADMIN_CHAT_ID,required"`
	PollTimeout  int    `env:"POLL_TIMEOUT" envDefault:"60"`

	Database DatabaseConfig `envPrefix:"DB_"`
	Redis    RedisConfig    `envPrefix:"REDIS_"`
	WebApp   WebAppConfig   `envPrefix:"WEBAPP_"`

	PendingTTL  time.Duration `env:"PENDING_TTL" envDefault:"0s"`
	FireTimeout time.Duration `env:"FIRE_TIMEOUT" envDefault:"30s"`

	InactiveDays     int    `env:"INACTIVE_DAYS" envDefault:"7"`
	InactiveDigestAt string `env:"INACTIVE_DIGEST_AT"`
	Timezone         string `env:"TIMEZONE" envDefault:"Europe/Moscow"`

	ProjectsImagesDir string `env:"PROJECTS_IMAGES_DIR" envDefault:"projects_images"`

	HTTPListenAddr   string `env:"HTTP_LISTEN_ADDR" envDefault:":8080"`
	MetricsNamespace string `env:"METRICS_NAMESPACE" envDefault:"support_bot"`
	AdminAPIToken    string `env:"ADMIN_API_TOKEN"`
}

// DatabaseConfig holds connection parameters for either supported driver.
type DatabaseConfig struct {
	Driver  string `env:"DRIVER" envDefault:"postgres"`
	Host    string `env:"HOST" envDefault:"localhost"`
	Port    int    `env:"PORT" envDefault:"5432"`
	Name    string `env:"NAME"`
	User    string `env:"USER"`
	Pass    string `env:"PASS"`
	SSLMode string `env:"SSLMODE" envDefault:"disable"`
	Path    string `env:"PATH" envDefault:"data/bot.db"`
}

type RedisConfig struct {
	Addr     string `env:"ADDR"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
	TLS      bool   `env:"TLS" envDefault:"false"`
}

type WebAppConfig struct {
	CallbackURL string `env:"CALLBACK_URL" envDefault:"https://teplovodabot.github.io/bot_htmls/request-callback.html"`
	OrderURL    string `env:"ORDER_URL" envDefault:"https://teplovodabot.github.io/bot_htmls/make-order.html"`
}

// Load parses the environment into Config and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate normalises derived fields and rejects incomplete configurations.
func (c *Config) Validate() error {
	c.BotToken = strings.TrimSpace(c.BotToken)
	if c.BotToken == "" {
		c.BotToken = strings.TrimSpace(c.BotTokenFile)
	}
	if c.BotToken == "" {
		return errors.New("BOT_TOKEN or BOT_TOKEN_FILE is required")
	}

	driver, err := normaliseDriver(c.Database.Driver)
	if err != nil {
		return err
	}
	c.Database.Driver = driver
	switch driver {
	case DriverPostgres:
		if c.Database.Name == "" || c.Database.User == "" {
			return errors.New("DB_NAME and DB_USER are required for postgres")
		}
	case DriverSQLite:
		if strings.TrimSpace(c.Database.Path) == "" {
			return errors.New("DB_PATH is required for sqlite")
		}
	}

	if c.InactiveDays <= 0 {
		return fmt.Errorf("INACTIVE_DAYS must be positive, got %d", c.InactiveDays)
	}
	if c.PendingTTL < 0 {
		return errors.New("PENDING_TTL must not be negative")
	}
	if c.FireTimeout <= 0 {
		c.FireTimeout = 30 * time.Second
	}
	if c.InactiveDigestAt != "" {
		if _, _, err := ParseClock(c.InactiveDigestAt); err != nil {
			return fmt.Errorf("INACTIVE_DIGEST_AT: %w", err)
		}
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE: %w", err)
	}
	return nil
}

// Location returns the configured scheduler timezone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// URL builds a postgres connection string from the discrete DB_* values.
func (d DatabaseConfig) URL() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Pass),
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:   "/" + d.Name,
	}
	q := url.Values{}
	if d.SSLMode != "" {
		q.Set("sslmode", d.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// ParseClock parses an "HH:MM" wall-clock value.
func ParseClock(value string) (hour, minute uint, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", value)
	}
	return uint(t.Hour()), uint(t.Minute()), nil
}

func normaliseDriver(driver string) (string, error) {
	d := strings.ToLower(strings.TrimSpace(driver))
	switch {
	case d == "", d == "pgx", strings.HasPrefix(d, "postgres"):
		return DriverPostgres, nil
	case strings.HasPrefix(d, "sqlite"):
		return DriverSQLite, nil
	default:
		return "", fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}
}
