package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/garnizeh/mockinterview/internal/interview"
	"github.com/garnizeh/mockinterview/pkg/ollama"
	"github.com/garnizeh/mockinterview/pkg/speech"
)

// insecureJWTSecret is the built-in development secret.
const insecureJWTSecret = "supersecretkey"

type Config struct {
	Addr           string         `yaml:"addr"`
	JWTSecret      string         `yaml:"jwt_secret"`
	APITimeout     time.Duration  `yaml:"timeout"`
	DatabasePath   string         `yaml:"database_path"`
	MigrateOnStart bool           `yaml:"migrate_on_start"`
	AudioDir       string         `yaml:"audio_dir"`
	LogLevel       string         `yaml:"log_level"`
	LogFile        string         `yaml:"log_file"`
	TokenDuration  time.Duration  `yaml:"token_duration"`
	Operator       OperatorConfig `yaml:"operator"`
	EngineConfig   EngineConfig   `yaml:"engine"`
	Ollama         ollama.Config  `yaml:"ollama"`
	Speech         speech.Config  `yaml:"speech"`
}

// OperatorConfig holds the single operator account allowed to sign in.
type OperatorConfig struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"`
}

// EngineConfig tunes the model calls and the interview flow.
type EngineConfig struct {
	Model         string           `yaml:"model"`
	Timeout       time.Duration    `yaml:"timeout"`
	SchemaVersion string           `yaml:"schema_version"`
	Flow          interview.Config `yaml:",inline"`
}

// LoadConfig builds the configuration from defaults, an optional .env file,
// INTERVIEW_* environment variables and finally the YAML file at path.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Addr:           getEnv("INTERVIEW_ADDR", ":8080"),
		JWTSecret:      getEnv("INTERVIEW_JWT_SECRET", insecureJWTSecret),
		APITimeout:     getDuration("INTERVIEW_API_TIMEOUT", 150*time.Second),
		DatabasePath:   getEnv("INTERVIEW_DATABASE_PATH", "interview.db"),
		MigrateOnStart: getBool("INTERVIEW_MIGRATE_ON_START", true),
		AudioDir:       getEnv("INTERVIEW_AUDIO_DIR", "audio"),
		LogLevel:       getEnv("INTERVIEW_LOG_LEVEL", "info"),
		LogFile:        getEnv("INTERVIEW_LOG_FILE", ""),
		TokenDuration:  getDuration("INTERVIEW_TOKEN_DURATION", time.Hour),
		Operator: OperatorConfig{
			Username:     getEnv("INTERVIEW_OPERATOR_USER", ""),
			PasswordHash: getEnv("INTERVIEW_OPERATOR_PASSWORD_HASH", ""),
		},
		EngineConfig: EngineConfig{
			Model:         getEnv("INTERVIEW_MODEL", "llama3.2"),
			Timeout:       getDuration("INTERVIEW_ENGINE_TIMEOUT", 120*time.Second),
			SchemaVersion: getEnv("INTERVIEW_SCHEMA_VERSION", "v1"),
			Flow:          interview.DefaultConfig(),
		},
		Ollama: ollama.DefaultConfig(),
		Speech: speech.DefaultConfig(),
	}
	cfg.Ollama.BaseURL = getEnv("INTERVIEW_OLLAMA_URL", cfg.Ollama.BaseURL)
	cfg.Speech.BaseURL = getEnv("INTERVIEW_SPEECH_URL", cfg.Speech.BaseURL)
	cfg.Speech.Enabled = getBool("INTERVIEW_SPEECH_ENABLED", cfg.Speech.Enabled)

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	}

	return cfg, nil
}

// IsDevelopment reports whether INTERVIEW_ENV is set to development.
func IsDevelopment() bool {
	return strings.EqualFold(os.Getenv("INTERVIEW_ENV"), "development")
}

// Validate fills zero values with defaults and rejects unsafe or unusable settings.
func (c *Config) Validate() error {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.APITimeout <= 0 {
		c.APITimeout = 150 * time.Second
	}
	if c.TokenDuration <= 0 {
		c.TokenDuration = time.Hour
	}
	if c.DatabasePath == "" {
		return errors.New("database_path is required")
	}
	if c.AudioDir == "" {
		c.AudioDir = "audio"
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}

	if c.JWTSecret == "" {
		return errors.New("jwt_secret is required")
	}
	if c.JWTSecret == insecureJWTSecret && !IsDevelopment() {
		return errors.New("jwt_secret uses the insecure default; set INTERVIEW_JWT_SECRET or INTERVIEW_ENV=development")
	}

	if c.Operator.Username != "" {
		if _, err := bcrypt.Cost([]byte(c.Operator.PasswordHash)); err != nil {
			return fmt.Errorf("operator.password_hash must be a bcrypt hash: %w", err)
		}
	}

	if strings.TrimSpace(c.EngineConfig.Model) == "" {
		return errors.New("engine.model is required")
	}
	if c.EngineConfig.Timeout <= 0 {
		c.EngineConfig.Timeout = 120 * time.Second
	}
	if c.EngineConfig.SchemaVersion == "" {
		c.EngineConfig.SchemaVersion = "v1"
	}
	if c.EngineConfig.Flow.IntroSteps < 0 || c.EngineConfig.Flow.TranscriptWindow < 0 || c.EngineConfig.Flow.IntroContextAnswers < 0 {
		return errors.New("engine flow settings must not be negative")
	}

	def := ollama.DefaultConfig()
	if c.Ollama.BaseURL == "" {
		c.Ollama.BaseURL = def.BaseURL
	}
	if c.Ollama.Timeout <= 0 {
		c.Ollama.Timeout = def.Timeout
	}
	if c.Ollama.CircuitFailureThreshold <= 0 {
		c.Ollama.CircuitFailureThreshold = def.CircuitFailureThreshold
	}
	if c.Ollama.CircuitReset <= 0 {
		c.Ollama.CircuitReset = def.CircuitReset
	}
	if err := checkURL("ollama.base_url", c.Ollama.BaseURL); err != nil {
		return err
	}

	if c.Speech.Enabled {
		sdef := speech.DefaultConfig()
		if c.Speech.BaseURL == "" {
			c.Speech.BaseURL = sdef.BaseURL
		}
		if c.Speech.Timeout <= 0 {
			c.Speech.Timeout = sdef.Timeout
		}
		if err := checkURL("speech.base_url", c.Speech.BaseURL); err != nil {
			return err
		}
	}

	return nil
}

func checkURL(field, raw string) error {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s: unsupported scheme %q", field, u.Scheme)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}

func getBool(key string, def bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func getDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
