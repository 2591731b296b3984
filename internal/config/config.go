package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application's configuration.
type Config struct {
	Database struct {
		URL             string        `yaml:"url"`
		MigrationsPath  string        `yaml:"migrations_path"`
		MaxOpenConns    int           `yaml:"max_open_conns"`
		MaxIdleConns    int           `yaml:"max_idle_conns"`
		ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	} `yaml:"database"`
	Auth struct {
		// JWTSecret signs every access and refresh token. Changing it
		// invalidates all outstanding tokens.
		JWTSecret       string        `yaml:"jwt_secret"`
		AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
		RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"`
	} `yaml:"auth"`
	RateLimit struct {
		RedisURL      string        `yaml:"redis_url"`
		LoginAttempts int           `yaml:"login_attempts"`
		Window        time.Duration `yaml:"window"`
	} `yaml:"rate_limit"`
	Storage struct {
		Driver string `yaml:"driver"` // local or s3
		Local  struct {
			Dir string `yaml:"dir"`
		} `yaml:"local"`
		S3 struct {
			Endpoint  string `yaml:"endpoint"`
			Region    string `yaml:"region"`
			Bucket    string `yaml:"bucket"`
			AccessKey string `yaml:"access_key"`
			SecretKey string `yaml:"secret_key"`
		} `yaml:"s3"`
		MaxUploadBytes int64 `yaml:"max_upload_bytes"`
	} `yaml:"storage"`
	Evidence struct {
		MaxPerIncident int `yaml:"max_per_incident"`
	} `yaml:"evidence"`
	Encryption struct {
		// MasterKey is a base64 encoded 32 byte key. Empty disables
		// encryption of attacker contact fields.
		MasterKey string `yaml:"master_key"`
	} `yaml:"encryption"`
	Notifications struct {
		Enabled          bool   `yaml:"enabled"`
		TelegramBotToken string `yaml:"telegram_bot_token"`
		SupervisorChatID int64  `yaml:"supervisor_chat_id"`
		// SendTimeout bounds how long a request waits on Telegram.
		SendTimeout time.Duration `yaml:"send_timeout"`
	} `yaml:"notifications"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // console or json
	} `yaml:"log"`
	Server struct {
		Port            string        `yaml:"port"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
		// TrustedProxies lists the addresses or CIDRs allowed to set
		// X-Forwarded-For. Empty means the socket peer is the client.
		TrustedProxies []string `yaml:"trusted_proxies"`
	} `yaml:"server"`
}

// LoadConfig reads configuration from the specified YAML file and applies
// environment overrides on top of it.
func LoadConfig(configPath string) (*Config, error) {
	config := Default()

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	if err := config.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Default returns a Config populated with the values used when neither the
// file nor the environment sets them.
func Default() *Config {
	c := &Config{}
	c.Database.MigrationsPath = "migrations"
	c.Database.MaxOpenConns = 10
	c.Database.MaxIdleConns = 5
	c.Database.ConnMaxLifetime = 30 * time.Minute
	c.Auth.AccessTokenTTL = time.Minute
	c.Auth.RefreshTokenTTL = 7 * 24 * time.Hour
	c.RateLimit.LoginAttempts = 10
	c.RateLimit.Window = time.Minute
	c.Storage.Driver = "local"
	c.Storage.Local.Dir = "public/uploads"
	c.Storage.MaxUploadBytes = 10 << 20
	c.Evidence.MaxPerIncident = 5
	c.Notifications.SendTimeout = 5 * time.Second
	c.Log.Level = "info"
	c.Log.Format = "console"
	c.Server.Port = ":3000"
	c.Server.ShutdownTimeout = 10 * time.Second
	return c
}

type lookupFunc func(key string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	stringVars := map[string]*string{
		"DATABASE_URL":       &c.Database.URL,
		"JWT_SECRET":         &c.Auth.JWTSecret,
		"MASTER_KEY":         &c.Encryption.MasterKey,
		"REDIS_URL":          &c.RateLimit.RedisURL,
		"TELEGRAM_BOT_TOKEN": &c.Notifications.TelegramBotToken,
		"SERVER_PORT":        &c.Server.Port,
		"S3_ACCESS_KEY":      &c.Storage.S3.AccessKey,
		"S3_SECRET_KEY":      &c.Storage.S3.SecretKey,
	}
	for key, dst := range stringVars {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"JWT_ACCESS_TTL":  &c.Auth.AccessTokenTTL,
		"JWT_REFRESH_TTL": &c.Auth.RefreshTokenTTL,
	}
	for key, dst := range durations {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = d
	}

	if v, ok := lookup("SUPERVISOR_CHAT_ID"); ok && v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid SUPERVISOR_CHAT_ID: %w", err)
		}
		c.Notifications.SupervisorChatID = id
	}

	return nil
}

// Validate reports configuration that would make the server unsafe to start.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret (JWT_SECRET) must be set")
	}
	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	switch c.Storage.Driver {
	case "local", "s3":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Storage.Driver == "s3" && c.Storage.S3.Bucket == "" {
		return errors.New("storage.s3.bucket must be set when using the s3 driver")
	}
	if c.RateLimit.LoginAttempts <= 0 || c.RateLimit.Window <= 0 {
		return errors.New("rate_limit.login_attempts and rate_limit.window must be positive")
	}
	if c.Evidence.MaxPerIncident <= 0 {
		return errors.New("evidence.max_per_incident must be positive")
	}
	for _, proxy := range c.Server.TrustedProxies {
		if !validProxy(proxy) {
			return fmt.Errorf("invalid trusted proxy %q", proxy)
		}
	}
	return nil
}

func validProxy(proxy string) bool {
	if strings.Contains(proxy, "/") {
		_, _, err := net.ParseCIDR(proxy)
		return err == nil
	}
	return net.ParseIP(proxy) != nil
}
