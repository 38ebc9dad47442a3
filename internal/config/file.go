package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// fileConfig is the optional YAML layout. Values here act as defaults for
// the matching environment keys.
type fileConfig struct {
	Server struct {
		Address string `yaml:"address"`
	} `yaml:"server"`

	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`

	WhatsApp struct {
		APIDomain      string `yaml:"api_domain"`
		PhoneID        string `yaml:"phone_id"`
		AccessToken    string `yaml:"access_token"`
		SenderPhone    string `yaml:"sender_phone"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"whatsapp"`

	Webhook struct {
		VerifyToken string `yaml:"verify_token"`
	} `yaml:"webhook"`

	Session struct {
		Secret       string `yaml:"secret"`
		TTLMinutes   int    `yaml:"ttl_minutes"`
		SecureCookie bool   `yaml:"secure_cookie"`
	} `yaml:"session"`

	Redis struct {
		Addr       string `yaml:"addr"`
		Password   string `yaml:"password"`
		DB         int    `yaml:"db"`
		TTLSeconds int    `yaml:"ttl_seconds"`
	} `yaml:"redis"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Metrics struct {
		RefreshSeconds int `yaml:"refresh_seconds"`
	} `yaml:"metrics"`
}

func newSource(path string) (source, error) {
	if path == "" {
		return source{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return source{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return source{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return source{file: fc.defaults()}, nil
}

func (fc fileConfig) defaults() map[string]string {
	m := map[string]string{
		"SERVER_ADDRESS":            fc.Server.Address,
		"DATABASE_URL":              fc.Database.URL,
		"WHATSAPP_API_DOMAIN":       fc.WhatsApp.APIDomain,
		"WHATSAPP_PHONE_ID":         fc.WhatsApp.PhoneID,
		"WHATSAPP_API_ACCESS_TOKEN": fc.WhatsApp.AccessToken,
		"WHATSAPP_SENDER_PHONE":     fc.WhatsApp.SenderPhone,
		"VERIFICATION_TOKEN":        fc.Webhook.VerifyToken,
		"SESSION_SECRET":            fc.Session.Secret,
		"REDIS_ADDR":                fc.Redis.Addr,
		"REDIS_PASSWORD":            fc.Redis.Password,
		"LOG_LEVEL":                 fc.Log.Level,
	}
	setInt := func(key string, v int) {
		if v != 0 {
			m[key] = strconv.Itoa(v)
		}
	}
	setInt("PROVIDER_TIMEOUT_SECONDS", fc.WhatsApp.TimeoutSeconds)
	setInt("SESSION_TTL_MINUTES", fc.Session.TTLMinutes)
	setInt("REDIS_DB", fc.Redis.DB)
	setInt("REDIS_TTL_SECONDS", fc.Redis.TTLSeconds)
	setInt("METRICS_REFRESH_SECONDS", fc.Metrics.RefreshSeconds)
	if fc.Session.SecureCookie {
		m["SESSION_SECURE_COOKIE"] = "true"
	}
	return m
}
