package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/suenolabs/sueno-api/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Auth          AuthConfig
	Supabase      SupabaseConfig
	SMTP          SMTPConfig
	Captcha       CaptchaConfig
	Google        GoogleConfig
	Chatbot       ChatbotConfig
	Redis         RedisConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string

	// CORS allowed origins, comma separated. "*" allows any origin.
	AllowedOrigins []string
}

// AuthConfig holds token signing and password reset settings
type AuthConfig struct {
	// Secret signs access tokens (HMAC-SHA256). Required.
	Secret string

	TokenTTL     time.Duration
	ResetCodeTTL time.Duration
}

// SupabaseConfig points at the remote tabular store's REST endpoint
type SupabaseConfig struct {
	URL string
	Key string

	Timeout time.Duration
}

// SMTPConfig holds outbound mail settings. When Host is empty the
// application falls back to a no-op mailer that only logs.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// CaptchaConfig holds reCAPTCHA verification settings
type CaptchaConfig struct {
	// Secret is the server-side verification key. An empty secret
	// outside production skips remote verification.
	Secret      string
	Environment string
	Timeout     time.Duration
}

// GoogleConfig holds Google sign-in settings
type GoogleConfig struct {
	// ClientID is the expected audience of Google ID tokens. Empty
	// disables the Google login route.
	ClientID string
}

// ChatbotConfig holds generative-model proxy settings
type ChatbotConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// RedisConfig holds optional Redis settings. When URL is empty the
// application uses in-memory reset-code and rate-limit stores.
type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SUENO_HOST", "0.0.0.0"),
			Port:            getEnv("SUENO_PORT", "8080"),
			ReadTimeout:     getEnvDuration("SUENO_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("SUENO_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("SUENO_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SUENO_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("SUENO_HEALTH_PORT", "9090"),
			AllowedOrigins:  splitAndTrim(getEnv("SUENO_ALLOWED_ORIGINS", "*")),
		},
		Auth: AuthConfig{
			Secret:       getEnv("SUENO_AUTH_SECRET", ""),
			TokenTTL:     getEnvDuration("SUENO_TOKEN_TTL", 120*time.Minute),
			ResetCodeTTL: getEnvDuration("SUENO_RESET_CODE_TTL", 10*time.Minute),
		},
		Supabase: SupabaseConfig{
			URL:     getEnv("SUENO_SUPABASE_URL", ""),
			Key:     getEnv("SUENO_SUPABASE_KEY", ""),
			Timeout: getEnvDuration("SUENO_SUPABASE_TIMEOUT", 10*time.Second),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SUENO_SMTP_HOST", ""),
			Port:     getEnvInt("SUENO_SMTP_PORT", 587),
			Username: getEnv("SUENO_SMTP_USERNAME", ""),
			Password: getEnv("SUENO_SMTP_PASSWORD", ""),
			From:     getEnv("SUENO_SMTP_FROM", ""),
		},
		Captcha: CaptchaConfig{
			Secret:      getEnv("SUENO_RECAPTCHA_SECRET", ""),
			Environment: getEnv("SUENO_ENVIRONMENT", "development"),
			Timeout:     getEnvDuration("SUENO_RECAPTCHA_TIMEOUT", 5*time.Second),
		},
		Google: GoogleConfig{
			ClientID: getEnv("SUENO_GOOGLE_CLIENT_ID", ""),
		},
		Chatbot: ChatbotConfig{
			APIKey:  getEnv("SUENO_CHATBOT_API_KEY", ""),
			Model:   getEnv("SUENO_CHATBOT_MODEL", "gemini-2.0-flash"),
			BaseURL: getEnv("SUENO_CHATBOT_BASE_URL", "https://generativelanguage.googleapis.com"),
			Timeout: getEnvDuration("SUENO_CHATBOT_TIMEOUT", 30*time.Second),
		},
		Redis: RedisConfig{
			URL:      getEnv("SUENO_REDIS_URL", ""),
			Password: getEnv("SUENO_REDIS_PASSWORD", ""),
			DB:       getEnvInt("SUENO_REDIS_DB", 0),
		},
		Observability: ObservabilityConfig{
			LogLevel:       observability.ParseLogLevel(getEnv("SUENO_LOG_LEVEL", "info")),
			MetricsEnabled: getEnvBool("SUENO_METRICS_ENABLED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Auth.Secret == "" {
		return fmt.Errorf("auth secret is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}
	if c.Auth.ResetCodeTTL <= 0 {
		return fmt.Errorf("reset code TTL must be positive")
	}

	if c.Supabase.URL == "" {
		return fmt.Errorf("supabase URL is required")
	}
	if c.Supabase.Key == "" {
		return fmt.Errorf("supabase key is required")
	}

	if c.SMTP.Host != "" && c.SMTP.From == "" {
		return fmt.Errorf("SMTP from address is required when SMTP host is set")
	}

	return nil
}

// IsProduction reports whether the app runs in the production environment
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Captcha.Environment, "production")
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
