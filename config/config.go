// Package config loads the JSON configuration file and applies environment overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Duration is a time.Duration written as a string ("45s") in JSON.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Config is the whole application configuration.
type Config struct {
	LLM         LLMConfig      `json:"llm"`
	Models      ModelsConfig   `json:"models"`
	CallTimeout Duration       `json:"call_timeout,omitempty"`
	Concurrency int            `json:"concurrency,omitempty"`
	Quality     QualityConfig  `json:"quality"`
	Progress    ProgressConfig `json:"progress"`
	History     HistoryConfig  `json:"history"`
	Publish     PublishConfig  `json:"publish"`
	Log         LogConfig      `json:"log"`
	ServerAddr  string         `json:"server_addr,omitempty"`
	CatalogPath string         `json:"catalog_path,omitempty"`
}

// LLMConfig selects the text-generation backend.
type LLMConfig struct {
	Provider  string `json:"provider,omitempty"`
	APIKey    string `json:"api_key,omitempty"`
	APIKeyEnv string `json:"api_key_env,omitempty"`
	BaseURL   string `json:"base_url,omitempty"`
}

// ModelsConfig lists model candidates per call site, cheapest first.
type ModelsConfig struct {
	Planning     []string `json:"planning,omitempty"`
	Drafting     []string `json:"drafting"`
	Critique     []string `json:"critique,omitempty"`
	Repair       []string `json:"repair,omitempty"`
	Conservative []string `json:"conservative,omitempty"`
}

// QualityConfig is the tunable scoring and repair policy.
type QualityConfig struct {
	PassThreshold int      `json:"pass_threshold"`
	HighPenalty   int      `json:"high_penalty"`
	MediumPenalty int      `json:"medium_penalty"`
	LowPenalty    int      `json:"low_penalty"`
	CleanBonus    int      `json:"clean_bonus"`
	RepairPasses  int      `json:"repair_passes"`
	CTAPatterns   []string `json:"cta_patterns,omitempty"`
}

// ProgressConfig picks the session progress backend: "memory" or "redis".
type ProgressConfig struct {
	Backend  string   `json:"backend,omitempty"`
	RedisURL string   `json:"redis_url,omitempty"`
	TTL      Duration `json:"ttl,omitempty"`
}

// HistoryConfig points at the SQLite history database. Empty disables history.
type HistoryConfig struct {
	Path string `json:"path,omitempty"`
}

// PublishConfig is the outbound webhook for finished sequences.
type PublishConfig struct {
	WebhookURL string   `json:"webhook_url,omitempty"`
	Secret     string   `json:"secret,omitempty"`
	Timeout    Duration `json:"timeout,omitempty"`
}

// LogConfig controls the logger.
type LogConfig struct {
	Level  string `json:"level,omitempty"`
	Format string `json:"format,omitempty"`
	File   string `json:"file,omitempty"`
}

// Default returns a configuration that runs against the mock backend.
func Default() Config {
	return Config{
		LLM: LLMConfig{Provider: "mock", APIKeyEnv: "OPENAI_API_KEY"},
		Models: ModelsConfig{
			Planning:     []string{"gpt-4o-mini", "gpt-4o"},
			Drafting:     []string{"gpt-4o-mini", "gpt-4o"},
			Critique:     []string{"gpt-4o-mini"},
			Repair:       []string{"gpt-4o"},
			Conservative: []string{"gpt-4-turbo"},
		},
		CallTimeout: Duration(45 * time.Second),
		Concurrency: 2,
		Quality: QualityConfig{
			PassThreshold: 70,
			HighPenalty:   25,
			MediumPenalty: 10,
			LowPenalty:    0,
			CleanBonus:    10,
			RepairPasses:  2,
		},
		Progress:   ProgressConfig{Backend: "memory", TTL: Duration(30 * time.Minute)},
		Publish:    PublishConfig{Timeout: Duration(30 * time.Second)},
		Log:        LogConfig{Level: "info", Format: "text"},
		ServerAddr: ":8080",
	}
}

// Load reads JSON config from disk on top of Default, then applies env overrides.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.LLM.Provider = getEnvWithDefault("OUTREACH_LLM_PROVIDER", cfg.LLM.Provider)
	cfg.LLM.BaseURL = getEnvWithDefault("OUTREACH_LLM_BASE_URL", cfg.LLM.BaseURL)
	if cfg.LLM.APIKey == "" && cfg.LLM.APIKeyEnv != "" {
		cfg.LLM.APIKey = os.Getenv(cfg.LLM.APIKeyEnv)
	}
	if url := os.Getenv("OUTREACH_REDIS_URL"); url != "" {
		cfg.Progress.Backend = "redis"
		cfg.Progress.RedisURL = url
	}
	cfg.ServerAddr = getEnvWithDefault("OUTREACH_SERVER_ADDR", cfg.ServerAddr)
	cfg.Log.Level = getEnvWithDefault("OUTREACH_LOG_LEVEL", cfg.Log.Level)
	if v := os.Getenv("OUTREACH_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Concurrency = n
		}
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	if len(c.Models.Drafting) == 0 {
		return errors.New("models.drafting needs at least one model")
	}
	if c.Concurrency < 1 {
		return errors.New("concurrency must be at least 1")
	}
	q := c.Quality
	if q.PassThreshold < 0 || q.PassThreshold > 100 {
		return fmt.Errorf("quality.pass_threshold %d out of range 0-100", q.PassThreshold)
	}
	if q.HighPenalty < q.MediumPenalty || q.MediumPenalty < q.LowPenalty || q.LowPenalty < 0 {
		return errors.New("quality penalties must satisfy high >= medium >= low >= 0")
	}
	if q.RepairPasses < 2 {
		return errors.New("quality.repair_passes must be at least 2")
	}
	switch c.Progress.Backend {
	case "", "memory":
	case "redis":
		if c.Progress.RedisURL == "" {
			return errors.New("progress.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("progress backend %q not supported", c.Progress.Backend)
	}
	return nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
