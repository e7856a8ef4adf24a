// Package config provides configuration loading for the POS dashboard.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// It is loaded once at startup and passed by value; nothing mutates it afterwards.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Supabase SupabaseConfig `mapstructure:"supabase"`
	Session  SessionConfig  `mapstructure:"session"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Auth     AuthConfig     `mapstructure:"auth"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	Host           string        `mapstructure:"host"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	Environment    string        `mapstructure:"environment"` // dev, staging, prod
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
}

// SupabaseConfig holds the project URL and API keys.
// Missing values are reported by the client factories, not by Load.
type SupabaseConfig struct {
	URL            string        `mapstructure:"url"`
	AnonKey        string        `mapstructure:"anon_key"`
	ServiceRoleKey string        `mapstructure:"service_role_key"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// ProjectRef returns the project reference (the first label of the project host).
// It names the auth cookie, matching what the JavaScript clients use.
func (c SupabaseConfig) ProjectRef() string {
	u, err := url.Parse(c.URL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	host := u.Hostname()
	if i := strings.IndexByte(host, '.'); i > 0 {
		return host[:i]
	}
	return host
}

// SessionConfig holds the dashboard's own cookie settings (flash messages, OAuth verifier).
type SessionConfig struct {
	Secret       string `mapstructure:"secret"`
	SecureCookie bool   `mapstructure:"secure_cookie"`
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StorageConfig holds the S3-compatible Storage endpoint used for avatars.
type StorageConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Bucket          string `mapstructure:"bucket"`
}

// Enabled reports whether avatar uploads are configured.
func (c StorageConfig) Enabled() bool {
	return c.Endpoint != "" && c.AccessKeyID != "" && c.SecretAccessKey != "" && c.Bucket != ""
}

// AuthConfig holds authentication routing configuration.
type AuthConfig struct {
	LoginPath      string   `mapstructure:"login_path"`
	HomePath       string   `mapstructure:"home_path"`
	// PublicPaths pass the session guard without a user. An entry ending
	// in "/" matches every path below it.
	PublicPaths    []string `mapstructure:"public_paths"`
	OAuthProviders []string `mapstructure:"oauth_providers"`
	SiteURL        string   `mapstructure:"site_url"`
}

// Load reads configuration from files and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/pos-dashboard")

	v.SetEnvPrefix("POS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindEnv(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// bindEnv binds the unprefixed Supabase variables used by the hosting platform.
// The NEXT_PUBLIC_ names are accepted so an existing .env file keeps working.
func bindEnv(v *viper.Viper) {
	v.BindEnv("supabase.url", "SUPABASE_URL", "NEXT_PUBLIC_SUPABASE_URL")
	v.BindEnv("supabase.anon_key", "SUPABASE_ANON_KEY", "NEXT_PUBLIC_SUPABASE_ANON_KEY")
	v.BindEnv("supabase.service_role_key", "SUPABASE_SERVICE_ROLE_KEY")

	v.BindEnv("storage.endpoint", "POS_STORAGE_ENDPOINT")
	v.BindEnv("storage.access_key_id", "POS_STORAGE_ACCESS_KEY_ID")
	v.BindEnv("storage.secret_access_key", "POS_STORAGE_SECRET_ACCESS_KEY")
	v.BindEnv("session.secret", "POS_SESSION_SECRET")
}

// setDefaults configures default values for all settings.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.environment", "dev")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:*"})
	v.SetDefault("server.max_upload_bytes", 10<<20) // 10 MB, same as the server action body limit

	// Supabase defaults: keys stay empty until provided
	v.SetDefault("supabase.url", "")
	v.SetDefault("supabase.anon_key", "")
	v.SetDefault("supabase.service_role_key", "")
	v.SetDefault("supabase.timeout", "10s")

	v.SetDefault("session.secret", "")
	v.SetDefault("session.secure_cookie", false)

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.bucket", "avatars")

	v.SetDefault("auth.login_path", "/login")
	v.SetDefault("auth.home_path", "/")
	v.SetDefault("auth.public_paths", []string{"/auth/"})
	v.SetDefault("auth.oauth_providers", []string{})
	v.SetDefault("auth.site_url", "http://localhost:8080")
}
