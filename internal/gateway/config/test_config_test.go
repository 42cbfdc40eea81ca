package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "APP_ENV", "GEMINI_API_KEY", "API_KEY", "GOOGLE_API_KEY", "LLM_FAST_MODEL", "LLM_STRONG_MODEL",
		"LLM_RPS", "LLM_BURST", "LLM_MAX_ATTEMPTS", "LLM_FAKE", "LLM_USAGE_LEDGER", "PIPELINE_MAX_EDIT_CYCLES",
		"PIPELINE_CONCURRENCY", "SPECIALISTS_FILE", "SNAPSHOT_BACKEND", "SNAPSHOT_DIR", "SNAPSHOT_CACHE_ENTRIES",
		"DATABASE_URL", "ARTIFACT_S3_ENDPOINT", "ARTIFACT_S3_REGION", "ARTIFACT_S3_ACCESS_KEY", "ARTIFACT_S3_SECRET_KEY",
		"ARTIFACT_S3_BUCKET", "ARTIFACT_S3_USE_SSL", "ARTIFACT_MINIO_ENDPOINT", "MINIO_ROOT_USER", "MINIO_ROOT_PASSWORD",
		"NATS_URL", "NATS_SUBJECT", "RUN_TRACE_DIR", "LLM_PROVIDER", "GROQ_API_KEY", "CORS_ALLOWED_ORIGINS",
	} {
		t.Setenv(k, "")
	}
	t.Chdir(t.TempDir())
}

func TestLoadDefaultsWithFakeLLM(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_FAKE", "true")
	t.Setenv("PORT", "9090")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.Port)
	require.True(t, cfg.LLM.Fake)
	require.Equal(t, "gemini-2.5-flash", cfg.LLM.FastModel)
	require.Equal(t, "gemini-2.5-pro", cfg.LLM.StrongModel)
	require.Equal(t, 3, cfg.Pipeline.MaxEditCycles)
	require.Equal(t, "file", cfg.Snapshot.Backend)
}

func TestLoadRequiresAPIKey(t *testing.T) {
	clearEnv(t)
	_, err := Load("")
	require.ErrorContains(t, err, "GEMINI_API_KEY")

	t.Setenv("API_KEY", "k")
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "k", cfg.LLM.APIKey)
}

func TestTOMLThenEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "gateway.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
port = ":7000"
[llm]
fake = true
fast_model = "flash-from-file"
[pipeline]
max_edit_cycles = 5
concurrency = 2
[snapshot]
backend = "memory"
`), 0o644))
	t.Setenv("PIPELINE_CONCURRENCY", "4")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":7000", cfg.Port)
	require.Equal(t, "flash-from-file", cfg.LLM.FastModel)
	require.Equal(t, 5, cfg.Pipeline.MaxEditCycles)
	require.Equal(t, 4, cfg.Pipeline.Concurrency)
	require.Equal(t, "memory", cfg.Snapshot.Backend)
}

func TestSnapshotBackendValidation(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_FAKE", "1")
	t.Setenv("APP_ENV", "production")

	t.Setenv("SNAPSHOT_BACKEND", "postgres")
	_, err := Load("")
	require.ErrorContains(t, err, "DATABASE_URL")

	t.Setenv("SNAPSHOT_BACKEND", "s3")
	_, err = Load("")
	require.Error(t, err)

	t.Setenv("SNAPSHOT_BACKEND", "floppy")
	_, err = Load("")
	require.ErrorContains(t, err, "unknown snapshot backend")

	t.Setenv("APP_ENV", "local")
	t.Setenv("SNAPSHOT_BACKEND", "s3")
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "minio:9000", cfg.Snapshot.S3.Endpoint)
}

func TestBadNumberIsReported(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_FAKE", "true")
	t.Setenv("LLM_BURST", "lots")
	_, err := Load("")
	require.ErrorContains(t, err, "LLM_BURST")
}

func TestGroqProvider(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_PROVIDER", "Groq")
	_, err := Load("")
	require.ErrorContains(t, err, "GROQ_API_KEY")

	t.Setenv("GROQ_API_KEY", "g")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com,https://b.example.com")
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "groq", cfg.LLM.Provider)
	require.Equal(t, "llama-3.1-8b-instant", cfg.LLM.FastModel)
	require.Equal(t, "llama-3.3-70b-versatile", cfg.LLM.StrongModel)
	require.Len(t, cfg.AllowedOrigins, 2)

	t.Setenv("LLM_PROVIDER", "openai")
	_, err = Load("")
	require.ErrorContains(t, err, "unknown llm provider")
}
