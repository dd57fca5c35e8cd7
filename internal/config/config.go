package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`

	DatabaseURL     string `yaml:"database_url"`
	LeaderboardPath string `yaml:"leaderboard_path"`
	LeaderboardSeed int    `yaml:"leaderboard_seed"`

	NATSURL     string `yaml:"nats_url"`
	NATSSubject string `yaml:"nats_subject"`

	AllowedOrigins []string `yaml:"cors_origins"`

	CountdownMs int `yaml:"countdown_ms"`
	ReadyMs     int `yaml:"ready_ms"`
	SteadyMinMs int `yaml:"steady_min_ms"`
	SteadyMaxMs int `yaml:"steady_max_ms"`
	ResultMs    int `yaml:"result_ms"`
}

func Default() Config {
	return Config{
		Port:            "8080",
		LogLevel:        "info",
		LeaderboardPath: "data/leaderboard.json",
		LeaderboardSeed: 20,
		NATSSubject:     "quickdraw.results",
		AllowedOrigins:  []string{"*"},
		CountdownMs:     1000,
		ReadyMs:         1000,
		SteadyMinMs:     1000,
		SteadyMaxMs:     3000,
		ResultMs:        3000,
	}
}

// Load builds the config from defaults, the optional YAML file named by
// CONFIG_FILE, and finally environment variables.
func Load() (Config, error) {
	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.LeaderboardPath = getEnv("LEADERBOARD_PATH", cfg.LeaderboardPath)
	cfg.LeaderboardSeed = getEnvInt("LEADERBOARD_SEED", cfg.LeaderboardSeed)
	cfg.NATSURL = getEnv("NATS_URL", cfg.NATSURL)
	cfg.NATSSubject = getEnv("NATS_SUBJECT", cfg.NATSSubject)
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitList(v)
	}
	cfg.CountdownMs = getEnvInt("COUNTDOWN_MS", cfg.CountdownMs)
	cfg.ReadyMs = getEnvInt("READY_MS", cfg.ReadyMs)
	cfg.SteadyMinMs = getEnvInt("STEADY_MIN_MS", cfg.SteadyMinMs)
	cfg.SteadyMaxMs = getEnvInt("STEADY_MAX_MS", cfg.SteadyMaxMs)
	cfg.ResultMs = getEnvInt("RESULT_MS", cfg.ResultMs)

	if cfg.SteadyMaxMs <= cfg.SteadyMinMs {
		cfg.SteadyMaxMs = cfg.SteadyMinMs + 1
	}
	return cfg, nil
}

// LoadDotEnv loads environment variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

func (c Config) Countdown() time.Duration { return ms(c.CountdownMs) }
func (c Config) Ready() time.Duration     { return ms(c.ReadyMs) }
func (c Config) SteadyMin() time.Duration { return ms(c.SteadyMinMs) }
func (c Config) SteadyMax() time.Duration { return ms(c.SteadyMaxMs) }
func (c Config) Result() time.Duration    { return ms(c.ResultMs) }

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 {
			return i
		}
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
