package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the application configuration, loaded from yaml with env-var
// overrides for anything secret or deployment-specific.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	Auth     AuthConfig     `yaml:"auth"`
	Custody  CustodyConfig  `yaml:"custody"`
	Vault    VaultConfig    `yaml:"vault"`
	CORS     CORSConfig     `yaml:"cors"`
}

// ServerConfig server configuration
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig database configuration. An empty DSN selects the in-memory
// store (dev mode).
type DatabaseConfig struct {
	DSN    string `yaml:"dsn"`
	Driver string `yaml:"driver"`
}

// NATSConfig event sink configuration. An empty URL disables publishing.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Timeout int    `yaml:"timeout"` // seconds
}

// AuthConfig holds the JWT secret and the admin second factor.
type AuthConfig struct {
	JWTSecret         string `yaml:"jwtSecret"`
	TokenTTLHours     int    `yaml:"tokenTtlHours"`
	AdminPasswordHash string `yaml:"adminPasswordHash"` // bcrypt
	AdminTOTPSecret   string `yaml:"adminTotpSecret"`
}

// CustodyConfig points at the external custody service. An empty ServiceURL
// selects the no-op client (dev mode).
type CustodyConfig struct {
	ServiceURL string `yaml:"serviceUrl"`
	AuthToken  string `yaml:"authToken"`
	Timeout    int    `yaml:"timeout"` // seconds
}

// VaultConfig carries the ledger-wide distribution defaults.
type VaultConfig struct {
	// SystemFeeBps is the global system fee in basis points, overridable per
	// wallet at registration.
	SystemFeeBps int64 `yaml:"systemFeeBps"`
	// ReferralPercents is the default per-level referral schedule in basis
	// points of the system fee, level 1 first.
	ReferralPercents []int64 `yaml:"referralPercents"`
	// FeeRecipientWallet collects the retained fee as claimable rewards.
	FeeRecipientWallet string `yaml:"feeRecipientWallet"`
}

// CORSConfig CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowedOrigins"`
	AllowCredentials bool     `yaml:"allowCredentials"`
	MaxAge           int      `yaml:"maxAge"`
}

var AppConfig *Config

// LoadConfig loads the yaml config file and applies env overrides. With an
// empty path it prefers config.local.yaml over config.yaml when present.
func LoadConfig(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
		if _, err := os.Stat("config.local.yaml"); err == nil {
			configPath = "config.local.yaml"
			log.Printf("Using local configuration file: config.local.yaml")
		}
	}

	var config Config
	data, err := os.ReadFile(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		log.Printf("Config file %s not found, using defaults and environment", configPath)
	} else {
		if err := yaml.Unmarshal(data, &config); err != nil {
			return fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	overrideFromEnv(&config)
	applyDefaults(&config)

	AppConfig = &config
	return nil
}

func overrideFromEnv(config *Config) {
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		config.Database.DSN = dsn
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if natsURL := os.Getenv("NATS_URL"); natsURL != "" {
		config.NATS.URL = natsURL
	}
	if natsTimeout := os.Getenv("NATS_TIMEOUT"); natsTimeout != "" {
		if t, err := strconv.Atoi(natsTimeout); err == nil {
			config.NATS.Timeout = t
		}
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Auth.JWTSecret = secret
	}
	if hash := os.Getenv("ADMIN_PASSWORD_HASH"); hash != "" {
		config.Auth.AdminPasswordHash = hash
	}
	if totp := os.Getenv("ADMIN_TOTP_SECRET"); totp != "" {
		config.Auth.AdminTOTPSecret = totp
	}
	if url := os.Getenv("CUSTODY_SERVICE_URL"); url != "" {
		config.Custody.ServiceURL = url
	}
	if token := os.Getenv("CUSTODY_AUTH_TOKEN"); token != "" {
		config.Custody.AuthToken = token
	}
	if feeBps := os.Getenv("VAULT_SYSTEM_FEE_BPS"); feeBps != "" {
		if v, err := strconv.ParseInt(feeBps, 10, 64); err == nil {
			config.Vault.SystemFeeBps = v
		}
	}
	if recipient := os.Getenv("VAULT_FEE_RECIPIENT"); recipient != "" {
		config.Vault.FeeRecipientWallet = recipient
	}
	if percents := os.Getenv("VAULT_REFERRAL_PERCENTS"); percents != "" {
		parts := strings.Split(percents, ",")
		schedule := make([]int64, 0, len(parts))
		for _, p := range parts {
			v, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
			if err != nil {
				schedule = nil
				break
			}
			schedule = append(schedule, v)
		}
		if schedule != nil {
			config.Vault.ReferralPercents = schedule
		}
	}
	if corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); corsOrigins != "" {
		origins := strings.Split(corsOrigins, ",")
		config.CORS.AllowedOrigins = config.CORS.AllowedOrigins[:0]
		for _, origin := range origins {
			trimmed := strings.TrimSpace(origin)
			if trimmed != "" {
				config.CORS.AllowedOrigins = append(config.CORS.AllowedOrigins, trimmed)
			}
		}
	}
}

func applyDefaults(config *Config) {
	if config.Server.Host == "" {
		config.Server.Host = "0.0.0.0"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.NATS.Timeout == 0 {
		config.NATS.Timeout = 10
	}
	if config.Custody.Timeout == 0 {
		config.Custody.Timeout = 30
	}
	if config.Auth.TokenTTLHours == 0 {
		config.Auth.TokenTTLHours = 24
	}
}
