package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string `yaml:"port"`

	// GROBID
	GrobidURL                  string        `yaml:"grobid_api_url"`
	GrobidTimeout              time.Duration `yaml:"grobid_api_timeout"`
	GrobidConsolidateHeader    int           `yaml:"grobid_consolidate_header"`
	GrobidConsolidateCitations int           `yaml:"grobid_consolidate_citations"`
	GrobidMaxRetries           int           `yaml:"grobid_max_retries"`

	// Summarizer
	HuggingFaceToken   string        `yaml:"huggingface_api_token"`
	HuggingFaceModel   string        `yaml:"huggingface_model"`
	HuggingFaceURL     string        `yaml:"huggingface_api_url"`
	HuggingFaceTimeout time.Duration `yaml:"huggingface_api_timeout"`
	SummarizerRPS      float64       `yaml:"summarizer_rps"`
	SummarizerUseGPU   bool          `yaml:"summarizer_use_gpu"`

	// Upload limits
	MaxUploadBytes      int64 `yaml:"max_upload_bytes"`
	MaxConcurrentParses int   `yaml:"max_concurrent_parses"`

	// Enrichment
	CommonWordThreshold int `yaml:"common_word_threshold"`

	// TEI cache
	CachePath     string `yaml:"cache_path"`
	MongoURI      string `yaml:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database"`

	// Events
	MQTTBroker   string `yaml:"mqtt_broker"`
	MQTTTopic    string `yaml:"mqtt_topic"`
	MQTTClientID string `yaml:"mqtt_client_id"`

	// Auth
	APIKey string `yaml:"api_key"`

	FrontendDir string `yaml:"frontend_dir"`
	LogLevel    string `yaml:"log_level"`
}

func defaults() Config {
	return Config{
		Port:                "8000",
		GrobidTimeout:       15 * time.Second,
		GrobidMaxRetries:    2,
		HuggingFaceModel:    "facebook/bart-large-cnn",
		HuggingFaceURL:      "https://api-inference.huggingface.co/models",
		HuggingFaceTimeout:  60 * time.Second,
		SummarizerRPS:       1.0,
		MaxUploadBytes:      52428800, // 50MB
		MaxConcurrentParses: 4,
		CommonWordThreshold: 5,
		MongoDatabase:       "articles",
		MQTTTopic:           "articles/parsed",
		MQTTClientID:        "article-service",
		LogLevel:            "info",
	}
}

// Load reads defaults, then the YAML file named by CONFIG_FILE, then the
// environment. Later sources win.
func Load() (Config, error) {
	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return cfg, err
		}
	}

	cfg.Port = envOr("PORT", cfg.Port)

	cfg.GrobidURL = strings.TrimRight(envOr("GROBID_API_URL", cfg.GrobidURL), "/")
	cfg.GrobidTimeout = envDuration("GROBID_API_TIMEOUT", cfg.GrobidTimeout)
	cfg.GrobidConsolidateHeader = envInt("GROBID_CONSOLIDATE_HEADER", cfg.GrobidConsolidateHeader)
	cfg.GrobidConsolidateCitations = envInt("GROBID_CONSOLIDATE_CITATIONS", cfg.GrobidConsolidateCitations)
	cfg.GrobidMaxRetries = envInt("GROBID_MAX_RETRIES", cfg.GrobidMaxRetries)

	cfg.HuggingFaceToken = envOr("HUGGINGFACE_API_TOKEN", cfg.HuggingFaceToken)
	cfg.HuggingFaceModel = envOr("HUGGINGFACE_MODEL", cfg.HuggingFaceModel)
	cfg.HuggingFaceURL = envOr("HUGGINGFACE_API_URL", cfg.HuggingFaceURL)
	cfg.HuggingFaceTimeout = envDuration("HUGGINGFACE_API_TIMEOUT", cfg.HuggingFaceTimeout)
	cfg.SummarizerRPS = envFloat("SUMMARIZER_RPS", cfg.SummarizerRPS)
	cfg.SummarizerUseGPU = envBool("SUMMARIZER_USE_GPU", cfg.SummarizerUseGPU)

	cfg.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.MaxConcurrentParses = envInt("MAX_CONCURRENT_PARSES", cfg.MaxConcurrentParses)
	cfg.CommonWordThreshold = envInt("COMMON_WORD_THRESHOLD", cfg.CommonWordThreshold)

	cfg.CachePath = envOr("CACHE_PATH", cfg.CachePath)
	cfg.MongoURI = envOr("MONGO_URI", cfg.MongoURI)
	cfg.MongoDatabase = envOr("MONGO_DATABASE", cfg.MongoDatabase)

	cfg.MQTTBroker = envOr("MQTT_BROKER", cfg.MQTTBroker)
	cfg.MQTTTopic = envOr("MQTT_TOPIC", cfg.MQTTTopic)
	cfg.MQTTClientID = envOr("MQTT_CLIENT_ID", cfg.MQTTClientID)

	cfg.APIKey = envOr("API_KEY", cfg.APIKey)
	cfg.FrontendDir = envOr("FRONTEND_DIR", cfg.FrontendDir)
	cfg.LogLevel = envOr("LOG_LEVEL", cfg.LogLevel)

	d := defaults()
	if cfg.GrobidTimeout <= 0 {
		cfg.GrobidTimeout = d.GrobidTimeout
	}
	if cfg.GrobidMaxRetries < 0 {
		cfg.GrobidMaxRetries = 0
	}
	if cfg.HuggingFaceTimeout <= 0 {
		cfg.HuggingFaceTimeout = d.HuggingFaceTimeout
	}
	if cfg.SummarizerRPS <= 0 {
		cfg.SummarizerRPS = d.SummarizerRPS
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = d.MaxUploadBytes
	}
	if cfg.MaxConcurrentParses <= 0 {
		cfg.MaxConcurrentParses = d.MaxConcurrentParses
	}
	if cfg.CommonWordThreshold <= 0 {
		cfg.CommonWordThreshold = d.CommonWordThreshold
	}

	return cfg, nil
}

func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c Config) Validate() error {
	if c.GrobidURL == "" {
		return fmt.Errorf("GROBID_API_URL is required")
	}
	if c.GrobidConsolidateHeader < 0 || c.GrobidConsolidateHeader > 2 {
		return fmt.Errorf("GROBID_CONSOLIDATE_HEADER must be 0, 1 or 2, got %d", c.GrobidConsolidateHeader)
	}
	if c.GrobidConsolidateCitations < 0 || c.GrobidConsolidateCitations > 2 {
		return fmt.Errorf("GROBID_CONSOLIDATE_CITATIONS must be 0, 1 or 2, got %d", c.GrobidConsolidateCitations)
	}
	if c.CachePath != "" && c.MongoURI != "" {
		return fmt.Errorf("CACHE_PATH and MONGO_URI are mutually exclusive")
	}
	return nil
}

// Level maps LOG_LEVEL onto a slog level, defaulting to info.
func (c Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
