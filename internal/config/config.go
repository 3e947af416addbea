package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dropDatabas3/meshconsole/internal/health"
)

// Config se construye una sola vez con Load y se pasa por puntero a cada
// consumidor. No se muta después de la inicialización.
type Config struct {
	App struct {
		// dev | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	API struct {
		BaseURL string        `yaml:"base_url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"api"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Session struct {
		PollInterval      time.Duration `yaml:"poll_interval"`
		CountdownInterval time.Duration `yaml:"countdown_interval"`
		WarningThreshold  time.Duration `yaml:"warning_threshold"`
		ExtensionLength   time.Duration `yaml:"extension_length"`
		PostLoginDeadline time.Duration `yaml:"post_login_deadline"`
		RedirectHoldDelay time.Duration `yaml:"redirect_hold_delay"`
	} `yaml:"session"`

	Store struct {
		Kind  string `yaml:"kind"` // memory | redis
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
		TTL time.Duration `yaml:"ttl"`
		// base64(32 bytes); vacío = sin sellado
		SealKey string `yaml:"seal_key"`
	} `yaml:"store"`

	Health struct {
		ErrorRate health.RatioThresholds `yaml:"error_rate"`
	} `yaml:"health"`
}

// Load lee el YAML (path vacío = solo defaults + env), aplica defaults,
// overrides de entorno y valida.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	c.applyDefaults()
	if err := c.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Default devuelve la configuración sin archivo ni entorno.
func Default() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = "http://localhost:20001"
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = 30 * time.Second
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Session.PollInterval == 0 {
		c.Session.PollInterval = 3 * time.Second
	}
	if c.Session.CountdownInterval == 0 {
		c.Session.CountdownInterval = time.Second
	}
	if c.Session.WarningThreshold == 0 {
		c.Session.WarningThreshold = 60 * time.Second
	}
	if c.Session.ExtensionLength == 0 {
		c.Session.ExtensionLength = 30 * time.Minute
	}
	if c.Session.PostLoginDeadline == 0 {
		c.Session.PostLoginDeadline = 3 * time.Second
	}
	if c.Session.RedirectHoldDelay == 0 {
		c.Session.RedirectHoldDelay = 3 * time.Second
	}
	if c.Store.Kind == "" {
		c.Store.Kind = "memory"
	}
	if c.Store.Redis.Addr == "" {
		c.Store.Redis.Addr = "localhost:6379"
	}
	if c.Store.Redis.Prefix == "" {
		c.Store.Redis.Prefix = "meshconsole"
	}
	if c.Store.TTL == 0 {
		c.Store.TTL = 24 * time.Hour
	}
	if c.Health.ErrorRate == (health.RatioThresholds{}) {
		c.Health.ErrorRate = health.DefaultErrorRateThresholds
	}
}

// Validate chequea rangos y formatos.
func (c *Config) Validate() error {
	var errs []error
	durations := map[string]time.Duration{
		"api.timeout":                 c.API.Timeout,
		"session.poll_interval":       c.Session.PollInterval,
		"session.countdown_interval":  c.Session.CountdownInterval,
		"session.warning_threshold":   c.Session.WarningThreshold,
		"session.extension_length":    c.Session.ExtensionLength,
		"session.post_login_deadline": c.Session.PostLoginDeadline,
		"session.redirect_hold_delay": c.Session.RedirectHoldDelay,
		"store.ttl":                   c.Store.TTL,
	}
	for name, d := range durations {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("config: %s must be positive", name))
		}
	}
	switch c.Store.Kind {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("config: unknown store.kind %q", c.Store.Kind))
	}
	if _, err := c.SealKey(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Health.ErrorRate.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("config: health.error_rate: %w", err))
	}
	return errors.Join(errs...)
}

// SealKey decodifica store.seal_key. Devuelve nil si no está configurada.
func (c *Config) SealKey() (*[32]byte, error) {
	s := strings.TrimSpace(c.Store.SealKey)
	if s == "" {
		return nil, nil
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("config: decode store.seal_key: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("config: store.seal_key must decode to 32 bytes, got %d", len(raw))
	}
	var key [32]byte
	copy(key[:], raw)
	return &key, nil
}

// ---- Helpers env ----

const envPrefix = "MESHCONSOLE_"

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(envPrefix + key)
	return v, v != ""
}

// applyEnvOverrides pisa el YAML con variables MESHCONSOLE_*.
func (c *Config) applyEnvOverrides() error {
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := getEnvStr("API_BASE_URL"); ok {
		c.API.BaseURL = v
	}
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("STORE_KIND"); ok {
		c.Store.Kind = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Store.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Store.Redis.Password = v
	}
	if v, ok := getEnvStr("REDIS_DB"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %sREDIS_DB: %w", envPrefix, err)
		}
		c.Store.Redis.DB = n
	}
	if v, ok := getEnvStr("STORE_SEAL_KEY"); ok {
		c.Store.SealKey = v
	}

	durs := []struct {
		key string
		dst *time.Duration
	}{
		{"API_TIMEOUT", &c.API.Timeout},
		{"SESSION_POLL_INTERVAL", &c.Session.PollInterval},
		{"SESSION_WARNING_THRESHOLD", &c.Session.WarningThreshold},
		{"SESSION_EXTENSION_LENGTH", &c.Session.ExtensionLength},
		{"SESSION_POST_LOGIN_DEADLINE", &c.Session.PostLoginDeadline},
	}
	for _, d := range durs {
		v, ok := getEnvStr(d.key)
		if !ok {
			continue
		}
		parsed, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %s%s: %w", envPrefix, d.key, err)
		}
		*d.dst = parsed
	}
	return nil
}
