package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/jeremytraini/auscal/internal/validation"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig     `yaml:"server"`
	Database    DatabaseConfig   `yaml:"database"`
	Logging     LoggingConfig    `yaml:"logging"`
	RateLimit   RateLimitConfig  `yaml:"rate_limit"`
	Enrichment  EnrichmentConfig `yaml:"enrichment"`
	Weather     WeatherConfig    `yaml:"weather"`
	Redis       RedisConfig      `yaml:"redis"`
	Tracing     TracingConfig    `yaml:"tracing"`
	Timezone    string           `yaml:"timezone"`
	Environment string           `yaml:"environment"`
}

type ServerConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	BaseURL string `yaml:"base_url"`
}

type DatabaseConfig struct {
	URL               string `yaml:"url"`
	MaxConnections    int    `yaml:"max_connections"`
	MigrationsOnStart bool   `yaml:"migrations_on_start"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type RateLimitConfig struct {
	PublicPerMinute   int      `yaml:"public_per_minute"`
	WritePerMinute    int      `yaml:"write_per_minute"`
	TrustedProxyCIDRs []string `yaml:"trusted_proxy_cidrs"`
}

// EnrichmentConfig points at the public providers used to decorate single
// event responses. Enabled=false turns all of them off.
type EnrichmentConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Timeout         time.Duration `yaml:"timeout"`
	NominatimURL    string        `yaml:"nominatim_url"`
	NominatimEmail  string        `yaml:"nominatim_email"`
	NominatimPerSec float64       `yaml:"nominatim_per_second"`
	WeatherURL      string        `yaml:"weather_url"`
	HolidaysURL     string        `yaml:"holidays_url"`
	CountryCode     string        `yaml:"country_code"`
	GazetteerPath   string        `yaml:"gazetteer_path"`
	HolidaySchedule string        `yaml:"holiday_schedule"`
	HTTPTimeout     time.Duration `yaml:"http_timeout"`
	MaxRetries      int           `yaml:"max_retries"`
}

type City struct {
	Name string  `yaml:"name"`
	Lat  float64 `yaml:"lat"`
	Lng  float64 `yaml:"lng"`
}

type WeatherConfig struct {
	Cities []City `yaml:"cities"`
}

// RedisConfig enables the shared response cache when Addr is set.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	ServiceName  string  `yaml:"service_name"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate"`
}

// DefaultCities are drawn on the weather map.
var DefaultCities = []City{
	{Name: "Sydney", Lat: -33.8688, Lng: 151.2093},
	{Name: "Melbourne", Lat: -37.8136, Lng: 144.9631},
	{Name: "Brisbane", Lat: -27.4698, Lng: 153.0251},
	{Name: "Perth", Lat: -31.9505, Lng: 115.8605},
	{Name: "Adelaide", Lat: -34.9285, Lng: 138.6007},
	{Name: "Hobart", Lat: -42.8821, Lng: 147.3272},
	{Name: "Darwin", Lat: -12.4634, Lng: 130.8456},
	{Name: "Alice Springs", Lat: -23.6980, Lng: 133.8807},
	{Name: "Broome", Lat: -17.9614, Lng: 122.2359},
	{Name: "Cairns", Lat: -16.9186, Lng: 145.7781},
}

func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8080,
			BaseURL: "http://localhost:8080",
		},
		Database: DatabaseConfig{
			MaxConnections: 25,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		RateLimit: RateLimitConfig{
			PublicPerMinute: 120,
			WritePerMinute:  30,
		},
		Enrichment: EnrichmentConfig{
			Enabled:         true,
			Timeout:         4 * time.Second,
			NominatimURL:    "https://nominatim.openstreetmap.org",
			NominatimPerSec: 1,
			WeatherURL:      "https://www.7timer.info",
			HolidaysURL:     "https://date.nager.at",
			CountryCode:     "AU",
			GazetteerPath:   "data/georef-australia-state-suburb.csv",
			HolidaySchedule: "0 3 * * *",
			HTTPTimeout:     3 * time.Second,
			MaxRetries:      2,
		},
		Weather: WeatherConfig{
			Cities: append([]City(nil), DefaultCities...),
		},
		Tracing: TracingConfig{
			Exporter:    "stdout",
			ServiceName: "auscal",
			SampleRate:  1.0,
		},
		Timezone:    "Australia/Sydney",
		Environment: "development",
	}
}

// Load reads configuration from the environment on top of the defaults.
func Load() (Config, error) {
	return LoadFile("")
}

// LoadFile layers defaults, then the YAML file at path (if any), then the
// environment.
func LoadFile(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Host = getEnv("SERVER_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvInt("SERVER_PORT", cfg.Server.Port)
	cfg.Server.BaseURL = getEnv("SERVER_BASE_URL", cfg.Server.BaseURL)

	cfg.Database.URL = getEnv("DATABASE_URL", cfg.Database.URL)
	cfg.Database.MaxConnections = getEnvInt("DATABASE_MAX_CONNECTIONS", cfg.Database.MaxConnections)
	cfg.Database.MigrationsOnStart = getEnvBool("DATABASE_MIGRATE_ON_START", cfg.Database.MigrationsOnStart)

	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("LOG_FORMAT", cfg.Logging.Format)

	cfg.RateLimit.PublicPerMinute = getEnvInt("RATE_LIMIT_PUBLIC", cfg.RateLimit.PublicPerMinute)
	cfg.RateLimit.WritePerMinute = getEnvInt("RATE_LIMIT_WRITE", cfg.RateLimit.WritePerMinute)
	cfg.RateLimit.TrustedProxyCIDRs = getEnvList("TRUSTED_PROXY_CIDRS", cfg.RateLimit.TrustedProxyCIDRs)

	cfg.Enrichment.Enabled = getEnvBool("ENRICHMENT_ENABLED", cfg.Enrichment.Enabled)
	cfg.Enrichment.Timeout = getEnvDuration("ENRICHMENT_TIMEOUT", cfg.Enrichment.Timeout)
	cfg.Enrichment.NominatimURL = getEnv("NOMINATIM_URL", cfg.Enrichment.NominatimURL)
	cfg.Enrichment.NominatimEmail = getEnv("NOMINATIM_EMAIL", cfg.Enrichment.NominatimEmail)
	cfg.Enrichment.NominatimPerSec = getEnvFloat("NOMINATIM_RATE_LIMIT", cfg.Enrichment.NominatimPerSec)
	cfg.Enrichment.WeatherURL = getEnv("WEATHER_API_URL", cfg.Enrichment.WeatherURL)
	cfg.Enrichment.HolidaysURL = getEnv("HOLIDAYS_API_URL", cfg.Enrichment.HolidaysURL)
	cfg.Enrichment.CountryCode = getEnv("HOLIDAYS_COUNTRY", cfg.Enrichment.CountryCode)
	cfg.Enrichment.GazetteerPath = getEnv("GAZETTEER_PATH", cfg.Enrichment.GazetteerPath)
	cfg.Enrichment.HolidaySchedule = getEnv("HOLIDAY_PREFETCH_SCHEDULE", cfg.Enrichment.HolidaySchedule)
	cfg.Enrichment.HTTPTimeout = getEnvDuration("ENRICHMENT_HTTP_TIMEOUT", cfg.Enrichment.HTTPTimeout)
	cfg.Enrichment.MaxRetries = getEnvInt("ENRICHMENT_MAX_RETRIES", cfg.Enrichment.MaxRetries)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvInt("REDIS_DB", cfg.Redis.DB)

	cfg.Tracing.Enabled = getEnvBool("TRACING_ENABLED", cfg.Tracing.Enabled)
	cfg.Tracing.Exporter = getEnv("TRACING_EXPORTER", cfg.Tracing.Exporter)
	cfg.Tracing.ServiceName = getEnv("OTEL_SERVICE_NAME", cfg.Tracing.ServiceName)
	cfg.Tracing.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Tracing.OTLPEndpoint)
	cfg.Tracing.SampleRate = getEnvFloat("TRACING_SAMPLE_RATE", cfg.Tracing.SampleRate)

	cfg.Timezone = getEnv("TIMEZONE", cfg.Timezone)
	cfg.Environment = getEnv("ENVIRONMENT", cfg.Environment)
}

func (c Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	if c.Enrichment.Timeout <= 0 {
		return fmt.Errorf("ENRICHMENT_TIMEOUT must be positive")
	}
	if len(c.Weather.Cities) == 0 {
		return fmt.Errorf("weather.cities must not be empty")
	}

	endpoints := []struct{ setting, url string }{
		{"SERVER_BASE_URL", c.Server.BaseURL},
		{"NOMINATIM_URL", c.Enrichment.NominatimURL},
		{"WEATHER_API_URL", c.Enrichment.WeatherURL},
		{"HOLIDAYS_API_URL", c.Enrichment.HolidaysURL},
	}
	for _, e := range endpoints {
		if err := validation.EndpointURL(e.setting, e.url); err != nil {
			return err
		}
	}
	if c.Enrichment.WeatherURL == "" {
		return fmt.Errorf("WEATHER_API_URL is required")
	}
	return nil
}

// Location resolves Timezone. Validate has already checked it loads.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
