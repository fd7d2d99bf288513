package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGetEnv tests the getEnv helper function
func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{
			name:         "returns env value when set",
			key:          "TEST_VAR",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
		},
		{
			name:         "returns default when env not set",
			key:          "TEST_VAR_NOT_SET",
			defaultValue: "default",
			envValue:     "",
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			}

			assert.Equal(t, tt.want, getEnv(tt.key, tt.defaultValue))
		})
	}
}

// TestGetEnvDuration tests the getEnvDuration helper function
func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue time.Duration
		envValue     string
		want         time.Duration
	}{
		{
			name:         "returns parsed duration",
			key:          "TEST_DURATION",
			defaultValue: 10 * time.Second,
			envValue:     "30s",
			want:         30 * time.Second,
		},
		{
			name:         "returns default for invalid duration",
			key:          "TEST_DURATION",
			defaultValue: 10 * time.Second,
			envValue:     "invalid",
			want:         10 * time.Second,
		},
		{
			name:         "returns default when not set",
			key:          "TEST_DURATION_NOT_SET",
			defaultValue: 10 * time.Second,
			envValue:     "",
			want:         10 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			} else {
				os.Unsetenv(tt.key)
			}

			assert.Equal(t, tt.want, getEnvDuration(tt.key, tt.defaultValue))
		})
	}
}

// TestGetEnvInt tests the getEnvInt helper function
func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue int
		envValue     string
		want         int
	}{
		{
			name:         "returns parsed int",
			key:          "TEST_INT",
			defaultValue: 10,
			envValue:     "42",
			want:         42,
		},
		{
			name:         "returns default for invalid int",
			key:          "TEST_INT",
			defaultValue: 10,
			envValue:     "invalid",
			want:         10,
		},
		{
			name:         "returns default when not set",
			key:          "TEST_INT_NOT_SET",
			defaultValue: 10,
			envValue:     "",
			want:         10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			} else {
				os.Unsetenv(tt.key)
			}

			assert.Equal(t, tt.want, getEnvInt(tt.key, tt.defaultValue))
		})
	}
}

// TestSplitAndTrim tests the splitAndTrim helper function
func TestSplitAndTrim(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "single wildcard",
			input: "*",
			want:  []string{"*"},
		},
		{
			name:  "multiple origins with whitespace",
			input: "https://app.example.com, https://staging.example.com",
			want:  []string{"https://app.example.com", "https://staging.example.com"},
		},
		{
			name:  "drops empty segments",
			input: "https://app.example.com,,",
			want:  []string{"https://app.example.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitAndTrim(tt.input))
		})
	}
}

// TestConfigValidate tests the Config.Validate method
func TestConfigValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server: ServerConfig{
				Port:       "8080",
				HealthPort: "9090",
			},
			Auth: AuthConfig{
				Secret:       "test-secret",
				TokenTTL:     120 * time.Minute,
				ResetCodeTTL: 10 * time.Minute,
			},
			Supabase: SupabaseConfig{
				URL: "https://project.supabase.co",
				Key: "service-role-key",
			},
		}
	}

	t.Run("valid config", func(t *testing.T) {
		cfg := valid()
		assert.NoError(t, cfg.Validate())
	})

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing server port",
			mutate:  func(c *Config) { c.Server.Port = "" },
			wantErr: "server port is required",
		},
		{
			name:    "missing health port",
			mutate:  func(c *Config) { c.Server.HealthPort = "" },
			wantErr: "health port is required",
		},
		{
			name:    "same server and health port",
			mutate:  func(c *Config) { c.Server.HealthPort = "8080" },
			wantErr: "server port and health port must be different",
		},
		{
			name:    "missing auth secret",
			mutate:  func(c *Config) { c.Auth.Secret = "" },
			wantErr: "auth secret is required",
		},
		{
			name:    "non-positive token TTL",
			mutate:  func(c *Config) { c.Auth.TokenTTL = 0 },
			wantErr: "token TTL must be positive",
		},
		{
			name:    "non-positive reset code TTL",
			mutate:  func(c *Config) { c.Auth.ResetCodeTTL = 0 },
			wantErr: "reset code TTL must be positive",
		},
		{
			name:    "missing supabase URL",
			mutate:  func(c *Config) { c.Supabase.URL = "" },
			wantErr: "supabase URL is required",
		},
		{
			name:    "missing supabase key",
			mutate:  func(c *Config) { c.Supabase.Key = "" },
			wantErr: "supabase key is required",
		},
		{
			name: "smtp host without from address",
			mutate: func(c *Config) {
				c.SMTP.Host = "smtp.example.com"
				c.SMTP.From = ""
			},
			wantErr: "SMTP from address is required when SMTP host is set",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

// TestLoadConfig tests the LoadConfig function
func TestLoadConfig(t *testing.T) {
	envVars := []string{
		"SUENO_PORT",
		"SUENO_HEALTH_PORT",
		"SUENO_AUTH_SECRET",
		"SUENO_SUPABASE_URL",
		"SUENO_SUPABASE_KEY",
		"SUENO_TOKEN_TTL",
		"SUENO_ALLOWED_ORIGINS",
		"SUENO_ENVIRONMENT",
	}
	originalEnv := make(map[string]string)
	for _, k := range envVars {
		originalEnv[k] = os.Getenv(k)
	}
	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
	}{
		{
			name: "valid config",
			env: map[string]string{
				"SUENO_AUTH_SECRET":  "test-secret",
				"SUENO_SUPABASE_URL": "https://project.supabase.co",
				"SUENO_SUPABASE_KEY": "service-role-key",
			},
			wantErr: false,
		},
		{
			name: "missing supabase credentials",
			env: map[string]string{
				"SUENO_AUTH_SECRET": "test-secret",
			},
			wantErr: true,
		},
		{
			name: "missing auth secret",
			env: map[string]string{
				"SUENO_SUPABASE_URL": "https://project.supabase.co",
				"SUENO_SUPABASE_KEY": "service-role-key",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range envVars {
				os.Unsetenv(k)
			}
			for k, v := range tt.env {
				os.Setenv(k, v)
			}

			cfg, err := LoadConfig()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, cfg)

			assert.Equal(t, 120*time.Minute, cfg.Auth.TokenTTL)
			assert.Equal(t, 10*time.Minute, cfg.Auth.ResetCodeTTL)
			assert.False(t, cfg.IsProduction())
		})
	}
}
