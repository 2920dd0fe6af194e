package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fintrack/internal/logger"
)

// Scan engines selectable through SCAN_ENGINE
const (
	EngineRemote     = "remote"
	EngineVision     = "vision"
	EngineDocumentAI = "documentai"
	EngineGemini     = "gemini"
)

type Config struct {
	// Finance API
	APIURL         string
	RequestTimeout time.Duration

	// Local state (session database)
	DataDir  string
	Timezone string

	// Scanning
	ScanEngine string

	// OpenAI (vision engine field completion)
	OpenAIAPIKey string
	OpenAIModel  string

	// Google Cloud
	GoogleCloudProject    string
	GoogleCloudLocation   string
	DocumentAIProcessorID string
	GeminiModel           string

	// Exports and archive
	GoogleSheetURL       string
	GoogleSheetWorksheet string
	BigQueryDataset      string
	BigQueryTable        string
	GCSReceiptBucket     string

	// Event publishing
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	config := &Config{
		APIURL:                strings.TrimRight(getEnv("FINTRACK_API_URL", "http://localhost:8080/api"), "/"),
		DataDir:               getEnv("FINTRACK_DATA_DIR", defaultDataDir()),
		Timezone:              getEnv("FINTRACK_TIMEZONE", "Local"),
		ScanEngine:            strings.ToLower(getEnv("SCAN_ENGINE", EngineRemote)),
		OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:           getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		GoogleCloudProject:    getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation:   getEnv("GOOGLE_CLOUD_LOCATION", "us"),
		DocumentAIProcessorID: getEnv("DOCUMENT_AI_PROCESSOR_ID", ""),
		GeminiModel:           getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GoogleSheetURL:        getEnv("GOOGLE_SHEET_URL", ""),
		GoogleSheetWorksheet:  getEnv("GOOGLE_SHEET_WORKSHEET", "Transactions"),
		BigQueryDataset:       getEnv("BIGQUERY_DATASET", "finance"),
		BigQueryTable:         getEnv("BIGQUERY_TABLE", "transactions"),
		GCSReceiptBucket:      getEnv("GCS_RECEIPT_BUCKET", ""),
		AMQPURL:               getEnv("AMQP_URL", ""),
		AMQPExchange:          getEnv("AMQP_EXCHANGE", "fintrack"),
		AMQPQueue:             getEnv("AMQP_QUEUE", "transactions.saved"),
		LogLevel:              getEnv("LOG_LEVEL", "warn"),
		LogFormat:             getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:         getEnv("LOG_TIME_FORMAT", time.RFC3339),
		LogOutput:             getEnv("LOG_OUTPUT", "stderr"),
	}

	timeout, err := time.ParseDuration(getEnv("FINTRACK_REQUEST_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("config validation failed: FINTRACK_REQUEST_TIMEOUT: %w", err)
	}
	config.RequestTimeout = timeout

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var problems []string

	if u, err := url.Parse(c.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, fmt.Sprintf("FINTRACK_API_URL must be an absolute URL, got %q", c.APIURL))
	}
	if c.RequestTimeout <= 0 {
		problems = append(problems, "FINTRACK_REQUEST_TIMEOUT must be positive")
	}
	if c.DataDir == "" {
		problems = append(problems, "FINTRACK_DATA_DIR is required")
	}
	if _, err := c.Location(); err != nil {
		problems = append(problems, fmt.Sprintf("FINTRACK_TIMEZONE: %v", err))
	}

	switch c.ScanEngine {
	case EngineRemote:
	case EngineVision:
		if c.OpenAIAPIKey == "" {
			problems = append(problems, "OPENAI_API_KEY is required for SCAN_ENGINE=vision")
		}
	case EngineDocumentAI:
		if c.GoogleCloudProject == "" {
			problems = append(problems, "GOOGLE_CLOUD_PROJECT is required for SCAN_ENGINE=documentai")
		}
		if c.DocumentAIProcessorID == "" {
			problems = append(problems, "DOCUMENT_AI_PROCESSOR_ID is required for SCAN_ENGINE=documentai")
		}
	case EngineGemini:
	default:
		problems = append(problems, fmt.Sprintf("SCAN_ENGINE must be one of remote, vision, documentai, gemini; got %q", c.ScanEngine))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

// Location resolves the configured timezone used for date-range presets.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// SessionDBPath is the sqlite file holding the persisted key-value slots.
func (c *Config) SessionDBPath() string {
	return filepath.Join(c.DataDir, "session.db")
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fintrack"
	}
	return filepath.Join(home, ".fintrack")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
