// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration. It is loaded once at
// process start and passed into constructors; no component reads ambient
// global state.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Ollama OllamaConfig `yaml:"ollama" mapstructure:"ollama"`
	Enrich EnrichConfig `yaml:"enrich" mapstructure:"enrich"`
	Parse  ParseConfig  `yaml:"parse" mapstructure:"parse"`
	Load   LoadConfig   `yaml:"load" mapstructure:"load"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the Postgres backend.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// OllamaConfig configures the local inference endpoint.
type OllamaConfig struct {
	BaseURL        string  `yaml:"base_url" mapstructure:"base_url"`
	Model          string  `yaml:"model" mapstructure:"model"`
	TimeoutSecs    int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries     int     `yaml:"max_retries" mapstructure:"max_retries"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
}

// EnrichConfig configures the enrichment lane.
type EnrichConfig struct {
	PromptVersion string `yaml:"prompt_version" mapstructure:"prompt_version"`
	PromptPath    string `yaml:"prompt_path" mapstructure:"prompt_path"`
	MaxAttempts   int    `yaml:"max_attempts" mapstructure:"max_attempts"`
	TriggeredBy   string `yaml:"triggered_by" mapstructure:"triggered_by"`
}

// ParseConfig configures the PDF parse lane.
type ParseConfig struct {
	InputDir      string `yaml:"input_dir" mapstructure:"input_dir"`
	OCRProvider   string `yaml:"ocr_provider" mapstructure:"ocr_provider"`
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	MistralKey    string `yaml:"mistral_api_key" mapstructure:"mistral_api_key"`
	MistralModel  string `yaml:"mistral_ocr_model" mapstructure:"mistral_ocr_model"`
}

// LoadConfig configures the CSV load lane.
type LoadConfig struct {
	InputDir string `yaml:"input_dir" mapstructure:"input_dir"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from config.yaml (optional) and environment
// variables prefixed with PHDETL_.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PHDETL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	// Env-only keys need a registered default for AutomaticEnv to reach
	// them during Unmarshal.
	v.SetDefault("store.database_url", "")
	v.SetDefault("enrich.prompt_path", "")
	v.SetDefault("parse.mistral_api_key", "")
	v.SetDefault("ollama.base_url", "http://localhost:11434")
	v.SetDefault("ollama.model", "llama3.1:8b-instruct-q4_0")
	v.SetDefault("ollama.timeout_secs", 240)
	v.SetDefault("ollama.max_retries", 2)
	v.SetDefault("ollama.requests_per_sec", 0)
	v.SetDefault("enrich.prompt_version", "phd_status_v1")
	v.SetDefault("enrich.max_attempts", 3)
	v.SetDefault("enrich.triggered_by", "manual")
	v.SetDefault("parse.input_dir", "data/input/PhDStudentiLinkedIn")
	v.SetDefault("parse.ocr_provider", "local")
	v.SetDefault("parse.pdftotext_path", "pdftotext")
	v.SetDefault("parse.mistral_ocr_model", "pixtral-large-latest")
	v.SetDefault("load.input_dir", "data/input")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
