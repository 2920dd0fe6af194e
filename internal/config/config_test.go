package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("FINTRACK_API_URL", "")
	t.Setenv("FINTRACK_REQUEST_TIMEOUT", "")
	t.Setenv("SCAN_ENGINE", "")
	t.Setenv("FINTRACK_DATA_DIR", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIURL != "http://localhost:8080/api" {
		t.Errorf("APIURL = %q", cfg.APIURL)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("RequestTimeout = %v, want 30s", cfg.RequestTimeout)
	}
	if cfg.ScanEngine != EngineRemote {
		t.Errorf("ScanEngine = %q, want remote", cfg.ScanEngine)
	}
}

func TestLoad_TrimsTrailingSlash(t *testing.T) {
	t.Setenv("FINTRACK_API_URL", "https://finance.example.com/api/")
	t.Setenv("FINTRACK_DATA_DIR", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIURL != "https://finance.example.com/api" {
		t.Errorf("APIURL = %q", cfg.APIURL)
	}
}

func TestLoad_BadTimeout(t *testing.T) {
	t.Setenv("FINTRACK_REQUEST_TIMEOUT", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unparseable timeout")
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			APIURL:         "http://localhost:8080/api",
			RequestTimeout: time.Second,
			DataDir:        "/tmp/fintrack",
			Timezone:       "UTC",
			ScanEngine:     EngineRemote,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr []string
	}{
		{name: "valid remote", mutate: func(c *Config) {}},
		{
			name:    "relative url",
			mutate:  func(c *Config) { c.APIURL = "/api" },
			wantErr: []string{"FINTRACK_API_URL"},
		},
		{
			name:    "vision without openai key",
			mutate:  func(c *Config) { c.ScanEngine = EngineVision },
			wantErr: []string{"OPENAI_API_KEY"},
		},
		{
			name:    "documentai collects every problem",
			mutate:  func(c *Config) { c.ScanEngine = EngineDocumentAI },
			wantErr: []string{"GOOGLE_CLOUD_PROJECT", "DOCUMENT_AI_PROCESSOR_ID"},
		},
		{
			name:    "unknown engine",
			mutate:  func(c *Config) { c.ScanEngine = "tesseract" },
			wantErr: []string{"SCAN_ENGINE"},
		},
		{
			name:    "bad timezone",
			mutate:  func(c *Config) { c.Timezone = "Mars/Olympus" },
			wantErr: []string{"FINTRACK_TIMEZONE"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if len(tt.wantErr) == 0 {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %v", tt.wantErr)
			}
			for _, want := range tt.wantErr {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("error %q does not mention %s", err, want)
				}
			}
		})
	}
}

func TestGetLoggerConfig(t *testing.T) {
	cfg := Config{LogLevel: "debug", LogFormat: "json", LogTimeFormat: time.Kitchen, LogOutput: "stdout"}
	lc := cfg.GetLoggerConfig()
	if lc.Level != "debug" || lc.Format != "json" || lc.TimeFormat != time.Kitchen || lc.Output != "stdout" {
		t.Errorf("GetLoggerConfig() = %+v", lc)
	}
}
