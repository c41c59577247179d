// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token    string  `yaml:"token"`
	Mode     string  `yaml:"mode"` // polling | disabled
	Username string  `yaml:"username"`
	Workers  int     `yaml:"workers"` // update handler workers
	Timeout  int     `yaml:"timeout"` // long polling timeout, seconds
	AdminIDs []int64 `yaml:"admin_ids"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type HTTPConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	APIKey          string        `yaml:"api_key"` // bearer token for the user and stats routes
}

type StorageConfig struct {
	Driver string `yaml:"driver"` // redis | postgres | memory
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type PrayerTimesConfig struct {
	Provider string        `yaml:"provider"` // aladhan | service
	BaseURL  string        `yaml:"base_url"`
	Method   int           `yaml:"method"` // aladhan calculation method
	Timeout  time.Duration `yaml:"timeout"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type SchedulerConfig struct {
	Spec        string        `yaml:"spec"`
	WindowWidth int           `yaml:"window_width"` // minutes
	Concurrency int           `yaml:"concurrency"`  // parallel users per tick
	Timezone    string        `yaml:"timezone"`     // IANA name, empty = process local
	RunOnStart  bool          `yaml:"run_on_start"`
	StopTimeout time.Duration `yaml:"stop_timeout"`
}

type AzanConfig struct {
	AudioURL string `yaml:"audio_url"`
	Workers  int    `yaml:"workers"`
}

type GeocodingConfig struct {
	Enabled   bool          `yaml:"enabled"`
	BaseURL   string        `yaml:"base_url"`
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
}

type Config struct {
	Bot         BotConfig         `yaml:"bot"`
	Log         LogConfig         `yaml:"log"`
	HTTP        HTTPConfig        `yaml:"http"`
	Storage     StorageConfig     `yaml:"storage"`
	Database    DatabaseConfig    `yaml:"database"`
	Redis       RedisConfig       `yaml:"redis"`
	PrayerTimes PrayerTimesConfig `yaml:"prayer_times"`
	Scheduler   SchedulerConfig   `yaml:"scheduler"`
	Azan        AzanConfig        `yaml:"azan"`
	Geocoding   GeocodingConfig   `yaml:"geocoding"`

	Runtime RuntimeConfig `yaml:"-"`
}

const (
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	ProviderAladhan = "aladhan"
	ProviderService = "service"
)

// LoadConfig reads the yaml file at path (optional when empty or missing),
// loads .env into the environment, applies env overrides and defaults.
func LoadConfig(path string, dev bool) (*Config, error) {
	// .env file is optional in production
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
			// env-only deployment
		default:
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Bot.Token, "BOT_TOKEN")
	setString(&cfg.Redis.URL, "REDIS_URL")
	setString(&cfg.Database.URL, "DATABASE_URL")
	setString(&cfg.Storage.Driver, "STORAGE_DRIVER")
	setString(&cfg.PrayerTimes.BaseURL, "PRAYER_TIMES_SERVICE_URL")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Scheduler.Timezone, "TZ_REMINDERS")
	setString(&cfg.Azan.AudioURL, "AZAN_AUDIO_URL")
	setString(&cfg.HTTP.APIKey, "ADMIN_API_KEY")
	if v := os.Getenv("HTTP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.Port = p
		}
	}
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Bot.Mode == "" {
		cfg.Bot.Mode = "polling"
	}
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Bot.Timeout <= 0 {
		cfg.Bot.Timeout = 60
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.ShutdownTimeout <= 0 {
		cfg.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = DriverRedis
	}
	cfg.Storage.Driver = strings.ToLower(cfg.Storage.Driver)
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	if cfg.PrayerTimes.Provider == "" {
		cfg.PrayerTimes.Provider = ProviderAladhan
	}
	if cfg.PrayerTimes.BaseURL == "" && cfg.PrayerTimes.Provider == ProviderAladhan {
		cfg.PrayerTimes.BaseURL = "https://api.aladhan.com/v1"
	}
	if cfg.PrayerTimes.Method == 0 {
		cfg.PrayerTimes.Method = 4 // Umm al-Qura
	}
	if cfg.PrayerTimes.Timeout <= 0 {
		cfg.PrayerTimes.Timeout = 10 * time.Second
	}
	if cfg.PrayerTimes.CacheTTL <= 0 {
		cfg.PrayerTimes.CacheTTL = 36 * time.Hour
	}

	if cfg.Scheduler.Spec == "" {
		cfg.Scheduler.Spec = "* * * * *"
	}
	if cfg.Scheduler.WindowWidth < 1 {
		cfg.Scheduler.WindowWidth = 1
	}
	if cfg.Scheduler.Concurrency <= 0 {
		cfg.Scheduler.Concurrency = 16
	}
	if cfg.Scheduler.StopTimeout <= 0 {
		cfg.Scheduler.StopTimeout = 30 * time.Second
	}
	if cfg.Geocoding.Timeout <= 0 {
		cfg.Geocoding.Timeout = 5 * time.Second
	}
	if cfg.Azan.Workers <= 0 {
		cfg.Azan.Workers = 4
	}
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case DriverRedis:
		if c.Redis.URL == "" {
			return errors.New("redis.url is required for the redis storage driver")
		}
	case DriverPostgres:
		if c.Database.URL == "" {
			return errors.New("database.url is required for the postgres storage driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	switch c.PrayerTimes.Provider {
	case ProviderAladhan:
	case ProviderService:
		if c.PrayerTimes.BaseURL == "" {
			return errors.New("prayer_times.base_url is required for the service provider")
		}
	default:
		return fmt.Errorf("unknown prayer_times.provider %q", c.PrayerTimes.Provider)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// RequireBot validates the settings only the long-running bot needs.
func (c *Config) RequireBot() error {
	if c.Bot.Mode != "disabled" && c.Bot.Token == "" {
		return errors.New("bot.token is required")
	}
	return nil
}

// Location resolves scheduler.timezone; empty means the process local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Scheduler.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return nil, fmt.Errorf("scheduler.timezone: %w", err)
	}
	return loc, nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
