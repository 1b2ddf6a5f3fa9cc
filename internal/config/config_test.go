package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad(t *testing.T) {
	// Save current env and restore later
	origHost := os.Getenv("DB_HOST")
	defer os.Setenv("DB_HOST", origHost)

	os.Setenv("DB_HOST", "test-host")
	os.Setenv("DB_MAX_OPEN_CONNS", "20")
	os.Setenv("MINIO_USE_SSL", "true")
	os.Setenv("OPENAI_TRANSCRIBE_MODEL", "whisper-1")
	os.Setenv("UPLOAD_MAX_FILE_SIZE", "1048576")
	defer func() {
		os.Unsetenv("DB_MAX_OPEN_CONNS")
		os.Unsetenv("MINIO_USE_SSL")
		os.Unsetenv("OPENAI_TRANSCRIBE_MODEL")
		os.Unsetenv("UPLOAD_MAX_FILE_SIZE")
	}()

	cfg := Load()

	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 20, cfg.Database.MaxOpenConns)
	assert.True(t, cfg.MinIO.UseSSL)
	assert.Equal(t, "whisper-1", cfg.OpenAI.TranscribeModel)
	assert.Equal(t, int64(1048576), cfg.Upload.MaxFileSize)
}

func TestLoadDefaults(t *testing.T) {
	os.Unsetenv("UPLOAD_MAX_FILE_SIZE")
	os.Unsetenv("OPENAI_BASE_URL")

	cfg := Load()

	assert.Equal(t, int64(100*1024*1024), cfg.Upload.MaxFileSize)
	assert.Equal(t, "https://api.openai.com/v1", cfg.OpenAI.BaseURL)
	assert.Equal(t, "gpt-4o-2024-08-06", cfg.OpenAI.SummaryModel)
}

func TestGetEnv(t *testing.T) {
	key := "TEST_ENV_VAR"
	os.Setenv(key, "value")
	defer os.Unsetenv(key)

	assert.Equal(t, "value", getEnv(key, "default"))
	assert.Equal(t, "default", getEnv("NON_EXISTENT", "default"))
}

func TestGetEnvBool(t *testing.T) {
	key := "TEST_BOOL_VAR"

	os.Setenv(key, "true")
	assert.True(t, getEnvBool(key, false))

	os.Setenv(key, "false")
	assert.False(t, getEnvBool(key, true))

	os.Setenv(key, "invalid")
	assert.True(t, getEnvBool(key, true))

	os.Unsetenv(key)
	assert.True(t, getEnvBool(key, true))
}

func TestGetEnvInt(t *testing.T) {
	key := "TEST_INT_VAR"

	os.Setenv(key, "123")
	assert.Equal(t, 123, getEnvInt(key, 0))

	os.Setenv(key, "invalid")
	assert.Equal(t, 10, getEnvInt(key, 10))

	os.Unsetenv(key)
	assert.Equal(t, 10, getEnvInt(key, 10))
}

func TestGetEnvInt64(t *testing.T) {
	key := "TEST_INT64_VAR"

	os.Setenv(key, "104857600")
	assert.Equal(t, int64(104857600), getEnvInt64(key, 0))

	os.Setenv(key, "invalid")
	assert.Equal(t, int64(7), getEnvInt64(key, 7))

	os.Unsetenv(key)
	assert.Equal(t, int64(7), getEnvInt64(key, 7))
}
