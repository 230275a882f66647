// Package config provides unified configuration loading for source ingestion.
// Supports YAML files, environment variables, and programmatic overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the ingestion pipeline.
type Config struct {
	LLM           LLMConfig           `yaml:"llm"`
	Images        ImagesConfig        `yaml:"images"`
	PDF           PDFConfig           `yaml:"pdf"`
	Transcript    TranscriptConfig    `yaml:"transcript"`
	Ingest        IngestConfig        `yaml:"ingest"`
	Cache         CacheConfig         `yaml:"cache"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// LLMConfig holds vision model settings.
type LLMConfig struct {
	Provider          string        `yaml:"provider" validate:"oneof=openrouter openai gemini"`
	APIKey            string        `yaml:"api_key"`
	Model             string        `yaml:"model"`
	BaseURL           string        `yaml:"base_url" validate:"omitempty,url"`
	Timeout           time.Duration `yaml:"timeout" validate:"gt=0"`
	MaxRetries        int           `yaml:"max_retries" validate:"gte=0,lte=10"`
	InitialBackoff    time.Duration `yaml:"initial_backoff" validate:"gte=0"`
	MaxBackoff        time.Duration `yaml:"max_backoff" validate:"gte=0"`
	RequestsPerSecond float64       `yaml:"requests_per_second" validate:"gte=0"`
	Temperature       float32       `yaml:"temperature" validate:"gte=0,lte=2"`
}

// ImagesConfig holds recompression bounds.
type ImagesConfig struct {
	UploadMaxWidth    int `yaml:"upload_max_width" validate:"gt=0"`
	UploadMaxHeight   int `yaml:"upload_max_height" validate:"gt=0"`
	EmbeddedMaxWidth  int `yaml:"embedded_max_width" validate:"gt=0"`
	EmbeddedMaxHeight int `yaml:"embedded_max_height" validate:"gt=0"`
	Quality           int `yaml:"quality" validate:"min=1,max=100"`
}

// PDFConfig holds PDF extraction settings.
type PDFConfig struct {
	MaxImagesPerDocument int     `yaml:"max_images_per_document" validate:"gte=0"`
	ScannedPageRender    bool    `yaml:"scanned_page_render"`
	RenderDPI            float64 `yaml:"render_dpi" validate:"gt=0"`
}

// TranscriptConfig holds transcript retrieval settings.
type TranscriptConfig struct {
	Locales    []string      `yaml:"locales" validate:"min=1,dive,required"`
	BaseURL    string        `yaml:"base_url" validate:"required,url"`
	Timeout    time.Duration `yaml:"timeout" validate:"gt=0"`
	MaxRetries int           `yaml:"max_retries" validate:"gte=0,lte=10"`
}

// IngestConfig holds coordinator settings.
type IngestConfig struct {
	TempDir       string `yaml:"temp_dir"`
	MaxConcurrent int    `yaml:"max_concurrent" validate:"min=1,max=64"`
}

// CacheConfig holds vision result cache settings.
type CacheConfig struct {
	Driver     string        `yaml:"driver" validate:"oneof=none memory redis"`
	TTL        time.Duration `yaml:"ttl" validate:"gte=0"`
	MaxEntries int           `yaml:"max_entries" validate:"gte=0"`
	Redis      RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
	Prefix   string `yaml:"prefix"`
}

// ObservabilityConfig holds logging and metrics settings.
type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level" validate:"oneof=trace debug info warn warning error fatal panic"`
	LogFormat   string `yaml:"log_format" validate:"oneof=json console"`
	ServiceName string `yaml:"service_name"`
	MetricsFile string `yaml:"metrics_file"`
}

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:          "openrouter",
			Timeout:           60 * time.Second,
			MaxRetries:        3,
			InitialBackoff:    1 * time.Second,
			MaxBackoff:        30 * time.Second,
			RequestsPerSecond: 0,
			Temperature:       0,
		},
		Images: ImagesConfig{
			UploadMaxWidth:    1024,
			UploadMaxHeight:   1024,
			EmbeddedMaxWidth:  720,
			EmbeddedMaxHeight: 720,
			Quality:           80,
		},
		PDF: PDFConfig{
			MaxImagesPerDocument: 100,
			ScannedPageRender:    false,
			RenderDPI:            150,
		},
		Transcript: TranscriptConfig{
			Locales:    []string{"en-US", "en-GB", "en-IN", "en"},
			BaseURL:    "https://www.youtube.com",
			Timeout:    20 * time.Second,
			MaxRetries: 2,
		},
		Ingest: IngestConfig{
			TempDir:       "",
			MaxConcurrent: 4,
		},
		Cache: CacheConfig{
			Driver:     "none",
			TTL:        24 * time.Hour,
			MaxEntries: 1000,
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				DB:       0,
				PoolSize: 10,
				Prefix:   "ingest:",
			},
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			LogFormat:   "console",
			ServiceName: "source-ingest",
		},
	}
}

var validate = validator.New()

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	if c.LLM.MaxBackoff < c.LLM.InitialBackoff {
		return fmt.Errorf("llm max_backoff (%s) must not be below initial_backoff (%s)", c.LLM.MaxBackoff, c.LLM.InitialBackoff)
	}

	if c.Cache.Driver == "redis" && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("redis cache requires cache.redis.addr")
	}

	return nil
}

// TempDir returns the directory uploads are staged in.
func (c *Config) TempDir() string {
	if c.Ingest.TempDir != "" {
		return c.Ingest.TempDir
	}
	return os.TempDir()
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = strings.ToLower(v)
	}

	// The provider-specific key wins over a key from the config file.
	switch cfg.LLM.Provider {
	case "gemini":
		if v := firstEnv("GEMINI_API_KEY", "GOOGLE_API_KEY"); v != "" {
			cfg.LLM.APIKey = v
		}
	case "openai":
		if v := os.Getenv("OPENAI_API_KEY"); v != "" {
			cfg.LLM.APIKey = v
		}
	default:
		if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
			cfg.LLM.APIKey = v
		}
	}

	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}

	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}

	if v := os.Getenv("LLM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.LLM.Timeout = d
		}
	}

	if v := os.Getenv("SOURCE_INGEST_MAX_IMAGES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PDF.MaxImagesPerDocument = n
		}
	}

	if v := os.Getenv("SOURCE_INGEST_TEMP_DIR"); v != "" {
		cfg.Ingest.TempDir = v
	}

	if v := os.Getenv("TRANSCRIPT_LOCALES"); v != "" {
		var locales []string
		for _, l := range strings.Split(v, ",") {
			if l = strings.TrimSpace(l); l != "" {
				locales = append(locales, l)
			}
		}
		if len(locales) > 0 {
			cfg.Transcript.Locales = locales
		}
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.Driver = "redis"
		// Parse redis://host:port format
		cfg.Cache.Redis.Addr = strings.TrimPrefix(v, "redis://")
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
