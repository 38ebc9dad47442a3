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

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	WhatsApp WhatsAppConfig
	Webhook  WebhookConfig
	Session  SessionConfig
	Log      LogConfig
	Metrics  MetricsConfig
}

type ServerConfig struct {
	Address string
}

type DatabaseConfig struct {
	URL string
}

type RedisConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

// WhatsAppConfig holds the Cloud API credentials. APIDomain includes the
// Graph API version, e.g. https://graph.facebook.com/v24.0.
type WhatsAppConfig struct {
	APIDomain   string
	PhoneID     string
	AccessToken string
	SenderPhone string
	Timeout     time.Duration
}

type WebhookConfig struct {
	VerifyToken string
}

type SessionConfig struct {
	Secret       string
	TTL          time.Duration
	SecureCookie bool
}

type LogConfig struct {
	Level string
}

type MetricsConfig struct {
	RefreshInterval time.Duration
}

// LoadAll reads configuration from the environment, falling back to the YAML
// file named by CONFIG_FILE for anything unset. Every missing or invalid key
// is reported in the returned error.
func LoadAll() (*Config, error) {
	src, err := newSource(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return nil, err
	}

	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Address: src.get("SERVER_ADDRESS", ":8080"),
		},
		Log: LogConfig{
			Level: src.get("LOG_LEVEL", "info"),
		},
	}

	var v string
	v, err = src.require("DATABASE_URL")
	collect(err)
	cfg.Database.URL = v

	v, err = src.require("WHATSAPP_API_DOMAIN")
	collect(err)
	cfg.WhatsApp.APIDomain = strings.TrimRight(v, "/")

	v, err = src.require("WHATSAPP_PHONE_ID")
	collect(err)
	cfg.WhatsApp.PhoneID = v

	v, err = src.require("WHATSAPP_API_ACCESS_TOKEN")
	collect(err)
	cfg.WhatsApp.AccessToken = v

	v, err = src.require("WHATSAPP_SENDER_PHONE")
	collect(err)
	cfg.WhatsApp.SenderPhone = v

	v, err = src.require("VERIFICATION_TOKEN")
	collect(err)
	cfg.Webhook.VerifyToken = v

	v, err = src.require("SESSION_SECRET")
	collect(err)
	cfg.Session.Secret = v

	timeout, err := src.getInt("PROVIDER_TIMEOUT_SECONDS", 5)
	collect(err)
	cfg.WhatsApp.Timeout = time.Duration(timeout) * time.Second

	ttl, err := src.getInt("SESSION_TTL_MINUTES", 720)
	collect(err)
	cfg.Session.TTL = time.Duration(ttl) * time.Minute

	secure, err := src.getBool("SESSION_SECURE_COOKIE", false)
	collect(err)
	cfg.Session.SecureCookie = secure

	refresh, err := src.getInt("METRICS_REFRESH_SECONDS", 30)
	collect(err)
	cfg.Metrics.RefreshInterval = time.Duration(refresh) * time.Second

	redisCfg, err := loadRedisConfig(src)
	collect(err)
	cfg.Redis = redisCfg

	if len(errs) == 0 {
		errs = append(errs, validate(cfg)...)
	}

	if err := joinErrors(errs); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDatabase loads only what the admin tooling needs.
func LoadDatabase() (DatabaseConfig, error) {
	src, err := newSource(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return DatabaseConfig{}, err
	}
	u, err := src.require("DATABASE_URL")
	if err != nil {
		return DatabaseConfig{}, err
	}
	return DatabaseConfig{URL: u}, nil
}

func loadRedisConfig(src source) (RedisConfig, error) {
	addr := src.get("REDIS_ADDR", "")
	if addr == "" {
		return RedisConfig{Enabled: false}, nil
	}

	db, err := src.getInt("REDIS_DB", 0)
	if err != nil {
		return RedisConfig{}, err
	}
	ttl, err := src.getInt("REDIS_TTL_SECONDS", 86400)
	if err != nil {
		return RedisConfig{}, err
	}

	return RedisConfig{
		Enabled:  true,
		Address:  addr,
		Password: src.get("REDIS_PASSWORD", ""),
		DB:       db,
		TTL:      time.Duration(ttl) * time.Second,
	}, nil
}

func validate(cfg *Config) []error {
	var errs []error
	if u, err := url.Parse(cfg.WhatsApp.APIDomain); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("WHATSAPP_API_DOMAIN must be an http(s) URL, got %q", cfg.WhatsApp.APIDomain))
	}
	if cfg.WhatsApp.Timeout <= 0 {
		errs = append(errs, errors.New("PROVIDER_TIMEOUT_SECONDS must be > 0"))
	}
	if cfg.Session.TTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL_MINUTES must be > 0"))
	}
	if cfg.Metrics.RefreshInterval <= 0 {
		errs = append(errs, errors.New("METRICS_REFRESH_SECONDS must be > 0"))
	}
	if cfg.Redis.Enabled && cfg.Redis.TTL <= 0 {
		errs = append(errs, errors.New("REDIS_TTL_SECONDS must be > 0"))
	}
	return errs
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}

// source resolves a key from the environment first, then from file defaults.
type source struct {
	file map[string]string
}

func (s source) lookup(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return s.file[key]
}

func (s source) require(key string) (string, error) {
	v := s.lookup(key)
	if v == "" {
		return "", fmt.Errorf("missing required config: %s", key)
	}
	return v, nil
}

func (s source) get(key, def string) string {
	if v := s.lookup(key); v != "" {
		return v
	}
	return def
}

func (s source) getInt(key string, def int) (int, error) {
	v := s.lookup(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid int for %s: %q", key, v)
	}
	return i, nil
}

func (s source) getBool(key string, def bool) (bool, error) {
	v := s.lookup(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid bool for %s: %q", key, v)
	}
	return b, nil
}
