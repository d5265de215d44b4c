package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/garnizeh/mockinterview/internal/config"
)

func validConfig() *config.Config {
	return &config.Config{
		Addr:          ":8080",
		JWTSecret:     "strongsecret",
		APITimeout:    5 * time.Second,
		DatabasePath:  "interview.db",
		TokenDuration: time.Hour,
		EngineConfig:  config.EngineConfig{Model: "m"},
	}
}

func TestValidate_InsecureJWT(t *testing.T) {
	cases := []struct {
		env     string
		wantErr bool
	}{
		{"production", true},
		{"", true},
		{"development", false},
	}
	for _, tc := range cases {
		t.Run("env="+tc.env, func(t *testing.T) {
			t.Setenv("INTERVIEW_ENV", tc.env)
			cfg := validConfig()
			cfg.JWTSecret = "supersecretkey"
			err := cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestValidate_MissingEngineModel(t *testing.T) {
	cfg := validConfig()
	cfg.EngineConfig.Model = " "
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected Validate to fail when engine.model is empty")
	}
}

func TestValidate_DefaultsPopulated(t *testing.T) {
	cfg := validConfig()
	cfg.Speech.Enabled = true
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed unexpectedly: %v", err)
	}
	if cfg.Ollama.BaseURL == "" || cfg.Ollama.Timeout <= 0 || cfg.Ollama.CircuitFailureThreshold == 0 {
		t.Fatalf("expected ollama defaults, got %+v", cfg.Ollama)
	}
	if cfg.Speech.BaseURL == "" || cfg.Speech.Timeout <= 0 {
		t.Fatalf("expected speech defaults, got %+v", cfg.Speech)
	}
	if cfg.EngineConfig.SchemaVersion != "v1" || cfg.AudioDir == "" {
		t.Fatalf("expected engine and audio defaults, got %+v", cfg)
	}
}

func TestValidate_Rejects(t *testing.T) {
	cases := map[string]func(c *config.Config){
		"bad ollama url":   func(c *config.Config) { c.Ollama.BaseURL = "localhost:11434" },
		"bad speech url":   func(c *config.Config) { c.Speech.Enabled = true; c.Speech.BaseURL = "ftp://voice" },
		"bad log level":    func(c *config.Config) { c.LogLevel = "loud" },
		"no database":      func(c *config.Config) { c.DatabasePath = "" },
		"plain password":   func(c *config.Config) { c.Operator = config.OperatorConfig{Username: "admin", PasswordHash: "hunter2"} },
		"negative windows": func(c *config.Config) { c.EngineConfig.Flow.TranscriptWindow = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	for _, k := range []string{"INTERVIEW_ADDR", "INTERVIEW_JWT_SECRET", "INTERVIEW_DATABASE_PATH", "INTERVIEW_MODEL"} {
		t.Setenv(k, "")
	}

	cfg, err := config.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig returned error for empty path: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("unexpected Addr: got %q", cfg.Addr)
	}
	if cfg.DatabasePath != "interview.db" {
		t.Fatalf("unexpected DatabasePath: got %q", cfg.DatabasePath)
	}
	if cfg.TokenDuration != time.Hour {
		t.Fatalf("unexpected TokenDuration: got %v", cfg.TokenDuration)
	}
	if cfg.EngineConfig.Flow.IntroSteps != 3 || cfg.EngineConfig.Flow.TranscriptWindow != 10 || cfg.EngineConfig.Flow.IntroContextAnswers != 2 {
		t.Fatalf("unexpected flow defaults: %+v", cfg.EngineConfig.Flow)
	}
	if !cfg.MigrateOnStart {
		t.Fatalf("expected migrate_on_start by default")
	}
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("INTERVIEW_ADDR", ":7070")
	t.Setenv("INTERVIEW_OLLAMA_URL", "http://ollama:11434")
	t.Setenv("INTERVIEW_SPEECH_ENABLED", "false")
	t.Setenv("INTERVIEW_API_TIMEOUT", "45s")

	cfg, err := config.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.Ollama.BaseURL != "http://ollama:11434" || cfg.Speech.Enabled || cfg.APITimeout != 45*time.Second {
		t.Fatalf("environment not applied: %+v", cfg)
	}
}

func TestLoadConfig_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`addr: ":9090"
jwt_secret: "filekey"
timeout: "30s"
database_path: "test.db"
token_duration: "2h"
engine:
  model: "qwen2.5"
  transcript_window: 6
ollama:
  base_url: "http://gpu:11434"
speech:
  enabled: false
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error for file: %v", err)
	}
	if cfg.Addr != ":9090" || cfg.JWTSecret != "filekey" || cfg.DatabasePath != "test.db" {
		t.Fatalf("unexpected top-level values: %+v", cfg)
	}
	if cfg.APITimeout != 30*time.Second || cfg.TokenDuration != 2*time.Hour {
		t.Fatalf("unexpected durations: %v %v", cfg.APITimeout, cfg.TokenDuration)
	}
	if cfg.EngineConfig.Model != "qwen2.5" || cfg.EngineConfig.Flow.TranscriptWindow != 6 || cfg.EngineConfig.Flow.IntroSteps != 3 {
		t.Fatalf("unexpected engine config: %+v", cfg.EngineConfig)
	}
	if cfg.Ollama.BaseURL != "http://gpu:11434" || cfg.Ollama.CircuitFailureThreshold != 5 {
		t.Fatalf("unexpected ollama config: %+v", cfg.Ollama)
	}
	if cfg.Speech.Enabled {
		t.Fatalf("expected speech disabled from file")
	}
}

func TestLoadConfig_BadPath(t *testing.T) {
	if _, err := config.LoadConfig("/path/that/does/not/exist.yaml"); err == nil {
		t.Fatalf("expected error for nonexistent path, got nil")
	}
}

func TestLoadConfig_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("::: not yaml :::"), 0o600); err != nil {
		t.Fatalf("failed to write bad yaml: %v", err)
	}
	if _, err := config.LoadConfig(path); err == nil {
		t.Fatalf("expected YAML decode error, got nil")
	}
}
