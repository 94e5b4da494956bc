// Package config provides runtime configuration for ProcSentry.
// It uses Viper to load settings from files and environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration for ProcSentry.
type Config struct {
	// ── Server ───────────────────────────────────────────────────────────────
	ServerHost string `mapstructure:"server_host"`
	ServerPort int    `mapstructure:"server_port"`
	DBPath     string `mapstructure:"db_path"`

	// ── Security ──────────────────────────────────────────────────────────────
	// JWTSecret: HS256 signing key for the operator API tokens.
	// Change this in production — default is a random-looking placeholder.
	JWTSecret string `mapstructure:"jwt_secret"`

	// JWTIssuer and TokenTTL shape the operator tokens minted by /api/login.
	JWTIssuer string        `mapstructure:"jwt_issuer"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`

	// IngestToken: pre-shared key for external collectors pushing snapshots.
	// Format on wire: "Authorization: Bearer <ingest_token>"
	IngestToken string `mapstructure:"ingest_token"`
	AdminUser   string `mapstructure:"admin_user"`
	AdminPass   string `mapstructure:"admin_pass"`

	// ── Monitoring session ────────────────────────────────────────────────────
	PollInterval int `mapstructure:"poll_interval_seconds"`
	// HistorySize sets both the rolling window capacity and the minimum
	// flattened corpus size required before training is allowed.
	HistorySize int `mapstructure:"history_size"`

	// ── Model training ────────────────────────────────────────────────────────
	TrainEpochs    int     `mapstructure:"train_epochs"`
	TrainBatchSize int     `mapstructure:"train_batch_size"`
	LearningRate   float64 `mapstructure:"learning_rate"`

	// ── Heuristic classifier ──────────────────────────────────────────────────
	SuspiciousPatterns []string `mapstructure:"suspicious_patterns"`

	// ── Logging ───────────────────────────────────────────────────────────────
	LogLevel string `mapstructure:"log_level"`
}

// Load reads config from file (./config.yaml or ~/.procsentry/config.yaml)
// and falls back to smart defaults. Environment variables with prefix SENTRY_
// override file values.
func Load() (*Config, error) {
	v := viper.New()

	// --- Smart Defaults ---
	v.SetDefault("server_host", "0.0.0.0")
	v.SetDefault("server_port", 7621)
	v.SetDefault("db_path", "procsentry.db")

	// Security defaults — MUST be overridden in production via config.yaml or env vars.
	v.SetDefault("jwt_secret", "PsN7$tQ2@kW9!vC4#xM6^bR1&dJ8*hL")
	v.SetDefault("jwt_issuer", "procsentry")
	v.SetDefault("token_ttl", "24h")
	v.SetDefault("ingest_token", "procsentry-ingest-key-123")
	v.SetDefault("admin_user", "admin")
	v.SetDefault("admin_pass", "admin")

	v.SetDefault("poll_interval_seconds", 30)
	v.SetDefault("history_size", 100)

	v.SetDefault("train_epochs", 50)
	v.SetDefault("train_batch_size", 32)
	v.SetDefault("learning_rate", 0.001)

	v.SetDefault("suspicious_patterns", []string{
		"nmap", "netcat", "hydra", "tcpdump", "aircrack-ng",
		"wireshark", "john", "hashcat", "strace", "lsof",
		"gdb", "radare2", "pkexec", "iotop",
	})

	v.SetDefault("log_level", "info")

	// --- Config file ---
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.procsentry")
	if err := v.ReadInConfig(); err != nil {
		// config file is optional; ignore "not found" errors
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// --- Environment Variables ---
	v.SetEnvPrefix("SENTRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return &cfg, nil
}
