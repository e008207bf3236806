package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "http://localhost:11434", cfg.Ollama.BaseURL)
	assert.Equal(t, "llama3.1:8b-instruct-q4_0", cfg.Ollama.Model)
	assert.Equal(t, 240, cfg.Ollama.TimeoutSecs)
	assert.Equal(t, 2, cfg.Ollama.MaxRetries)
	assert.Equal(t, "phd_status_v1", cfg.Enrich.PromptVersion)
	assert.Equal(t, 3, cfg.Enrich.MaxAttempts)
	assert.Equal(t, "manual", cfg.Enrich.TriggeredBy)
	assert.Equal(t, "data/input/PhDStudentiLinkedIn", cfg.Parse.InputDir)
	assert.Equal(t, "local", cfg.Parse.OCRProvider)
	assert.Equal(t, "pdftotext", cfg.Parse.PdfToTextPath)
	assert.Equal(t, "data/input", cfg.Load.InputDir)
	assert.Empty(t, cfg.Store.DatabaseURL)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("PHDETL_STORE_DATABASE_URL", "postgres://etl:secret@db:5432/phd")
	t.Setenv("PHDETL_OLLAMA_MODEL", "llama3.2:3b")
	t.Setenv("PHDETL_ENRICH_MAX_ATTEMPTS", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://etl:secret@db:5432/phd", cfg.Store.DatabaseURL)
	assert.Equal(t, "llama3.2:3b", cfg.Ollama.Model)
	assert.Equal(t, 5, cfg.Enrich.MaxAttempts)
}

func TestInitLogger_JSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "json"})
	assert.NoError(t, err)
}

func TestInitLogger_Console(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "console"})
	assert.NoError(t, err)
}

func TestInitLogger_BadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "shouting", Format: "json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse log level")
}
