package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string        `toml:"environment"` // "development" or "production"
	Source      SourceConfig  `toml:"source"`
	Storage     StorageConfig `toml:"storage"`
	Worker      WorkerConfig  `toml:"worker"`
	Logging     LoggingConfig `toml:"logging"`
}

// SourceConfig contains peraturan.go.id access configuration
type SourceConfig struct {
	BaseURL          string        `toml:"base_url" validate:"required,url"`
	UserAgent        string        `toml:"user_agent"`
	AcceptLanguage   string        `toml:"accept_language"`
	RequestDelay     time.Duration `toml:"request_delay"`  // Minimum delay between requests
	PageDelay        time.Duration `toml:"page_delay"`     // Delay between listing pages
	DetailTimeout    time.Duration `toml:"detail_timeout"` // Detail page fetch timeout
	DownloadTimeout  time.Duration `toml:"download_timeout"`
	RateLimit        float64       `toml:"rate_limit"` // Requests per second ceiling
	AllowInsecureSSL bool          `toml:"allow_insecure_ssl"`
}

type StorageConfig struct {
	SQLite   SQLiteConfig   `toml:"sqlite"`
	PDFDir   string         `toml:"pdf_dir"` // Local directory for downloaded PDFs
	Supabase SupabaseConfig `toml:"supabase"`
}

// SQLiteConfig represents SQLite-specific configuration
type SQLiteConfig struct {
	Path          string `toml:"path" validate:"required"`
	CacheSizeKB   int    `toml:"cache_size_kb"`
	BusyTimeoutMS int    `toml:"busy_timeout_ms"`
}

// SupabaseConfig holds the object-storage credentials. The bucket stores
// uploaded PDFs only; the relational data lives in SQLite.
type SupabaseConfig struct {
	URL    string `toml:"url"`
	Key    string `toml:"key"`
	Bucket string `toml:"bucket"`
}

// WorkerConfig contains batch sizes and loop timing for the worker modes
type WorkerConfig struct {
	ProcessBatch      int           `toml:"process_batch"`
	ReprocessBatch    int           `toml:"reprocess_batch"`
	DiscoverBatch     int           `toml:"discover_batch"`
	MaxRuntime        time.Duration `toml:"max_runtime"`
	ContinuousRuntime time.Duration `toml:"continuous_runtime"`
	Sleep             time.Duration `toml:"sleep"`
	DiscoverInterval  int           `toml:"discover_interval"` // Discover every N batches in continuous mode
	Schedule          string        `toml:"schedule"`          // Optional cron spec gating continuous iterations
	ClaimTimeout      time.Duration `toml:"claim_timeout"`     // Stuck jobs older than this are reclaimed
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Format string   `toml:"format"` // "json" or "text"
	Output []string `toml:"output"` // "stdout", "file"
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Source: SourceConfig{
			BaseURL:         "https://peraturan.go.id",
			UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			AcceptLanguage:  "id-ID,id;q=0.9,en-US;q=0.8,en;q=0.7",
			RequestDelay:    500 * time.Millisecond,
			PageDelay:       1 * time.Second,
			DetailTimeout:   30 * time.Second,
			DownloadTimeout: 60 * time.Second,
			RateLimit:       2, // Per-host ceiling on top of the fixed delays
		},
		Storage: StorageConfig{
			SQLite: SQLiteConfig{
				Path:          "./data/pasal.db",
				CacheSizeKB:   64000,
				BusyTimeoutMS: 5000,
			},
			PDFDir: "./data/pdfs",
			Supabase: SupabaseConfig{
				Bucket: "regulation-pdfs",
			},
		},
		Worker: WorkerConfig{
			ProcessBatch:      20,
			ReprocessBatch:    50,
			DiscoverBatch:     100,
			MaxRuntime:        1500 * time.Second,
			ContinuousRuntime: 3600 * time.Second,
			Sleep:             10 * time.Second,
			DiscoverInterval:  5,
			ClaimTimeout:      15 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout", "file"},
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env. Later files override earlier
// files; environment variables override all files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("PASAL_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if url := os.Getenv("SUPABASE_URL"); url != "" {
		config.Storage.Supabase.URL = url
	}
	if key := os.Getenv("SUPABASE_KEY"); key != "" {
		config.Storage.Supabase.Key = key
	}
	if bucket := os.Getenv("SUPABASE_BUCKET"); bucket != "" {
		config.Storage.Supabase.Bucket = bucket
	}
	if insecure := os.Getenv("ALLOW_INSECURE_SSL"); insecure != "" {
		if v, err := strconv.ParseBool(insecure); err == nil {
			config.Source.AllowInsecureSSL = v
		}
	}

	if path := os.Getenv("PASAL_DB_PATH"); path != "" {
		config.Storage.SQLite.Path = path
	}
	if dir := os.Getenv("PASAL_PDF_DIR"); dir != "" {
		config.Storage.PDFDir = dir
	}
	if base := os.Getenv("PASAL_BASE_URL"); base != "" {
		config.Source.BaseURL = base
	}

	if level := os.Getenv("PASAL_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("PASAL_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
}

// IsProduction returns true when running with production settings
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}
