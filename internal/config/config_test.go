package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  host: "0.0.0.0"
  cors_origins: ["https://cards.example.com"]

storage:
  type: "sqlite"
  sqlite_path: "/var/lib/cards.db"

archive:
  type: "s3"
  s3_bucket: "card-artifacts"
  endpoint: "http://minio:9000"
  exports: true

ocr:
  engine: "tesseract"
  languages: ["eng", "hin"]

cards:
  reject_empty: false
  max_field_length: 120
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, []string{"https://cards.example.com"}, cfg.Server.CORSOrigins)

	assert.Equal(t, "sqlite", cfg.Storage.Type)
	assert.Equal(t, "/var/lib/cards.db", cfg.Storage.SQLitePath)

	assert.Equal(t, "s3", cfg.Archive.Type)
	assert.Equal(t, "card-artifacts", cfg.Archive.S3Bucket)
	assert.Equal(t, "http://minio:9000", cfg.Archive.Endpoint)
	assert.True(t, cfg.Archive.Exports)
	assert.False(t, cfg.Archive.Uploads)

	assert.Equal(t, "tesseract", cfg.OCR.Engine)
	assert.Equal(t, []string{"eng", "hin"}, cfg.OCR.Languages)

	assert.False(t, cfg.Cards.RejectEmptySubmissions())
	assert.Equal(t, 120, cfg.Cards.MaxFieldLength)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: 0\n"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "memory", cfg.Storage.Type)
	assert.Equal(t, "none", cfg.Archive.Type)
	assert.Equal(t, "http", cfg.OCR.Engine)
	assert.Equal(t, int64(10<<20), cfg.OCR.MaxUploadBytes())
	assert.Equal(t, 30*time.Second, cfg.Locks.TTL())
	assert.Equal(t, 5*time.Second, cfg.Locks.Wait())
	assert.True(t, cfg.Cards.RejectEmptySubmissions())
	assert.True(t, cfg.Logging.Redact())
	assert.Equal(t, 256, cfg.Cards.MaxFieldLength)
}

func TestDefaultMatchesEmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}\n"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFromEnv(t *testing.T) {
	path := writeConfig(t, `
ocr:
  url: "http://file-ocr/ocr"
`)

	t.Setenv("OCR_URL", "http://env-ocr/ocr")
	t.Setenv("DATABASE_URL", "postgres://cards@db/cards?sslmode=disable")
	t.Setenv("REDIS_URL", "redis://cache:6379/0")
	t.Setenv("CARDS_REJECT_EMPTY", "false")
	t.Setenv("GOOGLE_CLIENT_ID", "client-id")

	cfg, err := LoadFromEnv(path)
	require.NoError(t, err)

	assert.Equal(t, "http://env-ocr/ocr", cfg.OCR.URL)
	assert.Equal(t, "postgres://cards@db/cards?sslmode=disable", cfg.Database.URL)
	assert.Equal(t, "postgres", cfg.Storage.Type)
	assert.Equal(t, "redis://cache:6379/0", cfg.Redis.URL)
	assert.False(t, cfg.Cards.RejectEmptySubmissions())
	assert.Equal(t, "client-id", cfg.Auth.GoogleClientID)
}

func TestLoadFromEnv_ExplicitStorageWins(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://x")
	t.Setenv("STORAGE_TYPE", "sqlite")

	cfg, err := LoadFromEnv(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Storage.Type)
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "server: [unclosed"))
	assert.Error(t, err)
}
