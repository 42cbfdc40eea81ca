package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type Config struct {
	Port     string         `toml:"port"`
	Env      string         `toml:"env"`
	LLM      LLMConfig      `toml:"llm"`
	Pipeline PipelineConfig `toml:"pipeline"`
	Snapshot SnapshotConfig `toml:"snapshot"`
	NATS     NATSConfig     `toml:"nats"`
	Trace    TraceConfig    `toml:"trace"`

	// AllowedOrigins restricts CORS; empty allows any origin.
	AllowedOrigins []string `toml:"allowed_origins"`
}

type LLMConfig struct {
	Provider    string  `toml:"provider"` // gemini | groq
	APIKey      string  `toml:"api_key"`
	GroqAPIKey  string  `toml:"groq_api_key"`
	FastModel   string  `toml:"fast_model"`
	StrongModel string  `toml:"strong_model"`
	RPS         float64 `toml:"rps"`
	Burst       int     `toml:"burst"`
	MaxAttempts int     `toml:"max_attempts"`
	UsageLedger string  `toml:"usage_ledger"`
	// Fake serves canned model responses for demos and local runs.
	Fake bool `toml:"fake"`
}

type PipelineConfig struct {
	MaxEditCycles   int    `toml:"max_edit_cycles"`
	Concurrency     int    `toml:"concurrency"`
	SpecialistsFile string `toml:"specialists_file"`
}

type SnapshotConfig struct {
	Backend      string   `toml:"backend"` // memory | file | postgres | s3
	Dir          string   `toml:"dir"`
	DatabaseURL  string   `toml:"database_url"`
	CacheEntries int      `toml:"cache_entries"`
	S3           S3Config `toml:"s3"`
}

type S3Config struct {
	Endpoint  string `toml:"endpoint"`
	Region    string `toml:"region"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Bucket    string `toml:"bucket"`
	UseSSL    bool   `toml:"use_ssl"`
}

func (c S3Config) Complete() bool {
	return strings.TrimSpace(c.Endpoint) != "" &&
		strings.TrimSpace(c.AccessKey) != "" &&
		strings.TrimSpace(c.SecretKey) != "" &&
		strings.TrimSpace(c.Bucket) != ""
}

type NATSConfig struct {
	URL     string `toml:"url"`
	Subject string `toml:"subject"`
}

type TraceConfig struct {
	Dir string `toml:"dir"`
}

const (
	groqFastModel   = "llama-3.1-8b-instant"
	groqStrongModel = "llama-3.3-70b-versatile"
)

func Default() *Config {
	return &Config{
		Port: ":8081",
		Env:  "local",
		LLM: LLMConfig{
			Provider:    "gemini",
			FastModel:   "gemini-2.5-flash",
			StrongModel: "gemini-2.5-pro",
			RPS:         2,
			Burst:       4,
			MaxAttempts: 3,
		},
		Pipeline: PipelineConfig{MaxEditCycles: 3},
		Snapshot: SnapshotConfig{
			Backend:      "file",
			Dir:          "tmp/snapshots",
			CacheEntries: 256,
			S3:           S3Config{Region: "us-east-1", Bucket: "crypto-reports"},
		},
		NATS:  NATSConfig{Subject: "crypto.reports"},
		Trace: TraceConfig{Dir: "tmp/run_logs"},
	}
}

// Load builds the config from defaults, then the optional TOML file at path,
// then .env and the process environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path = strings.TrimSpace(path); path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	_ = godotenv.Load()
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if strings.EqualFold(cfg.Env, "local") {
		applyLocalDefaults(cfg)
	}
	return cfg, cfg.validate()
}

func applyEnv(cfg *Config) error {
	if envPort := strings.TrimSpace(os.Getenv("PORT")); envPort != "" {
		cfg.Port = envPort
	}
	if !strings.HasPrefix(cfg.Port, ":") && !strings.Contains(cfg.Port, ":") {
		cfg.Port = ":" + cfg.Port
	}
	cfg.Env = firstNonEmpty(strings.TrimSpace(os.Getenv("APP_ENV")), cfg.Env)
	if raw := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS")); raw != "" {
		cfg.AllowedOrigins = strings.Split(raw, ",")
	}

	cfg.LLM.APIKey = firstNonEmpty(
		strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		strings.TrimSpace(os.Getenv("API_KEY")),
		strings.TrimSpace(os.Getenv("GOOGLE_API_KEY")),
		cfg.LLM.APIKey,
	)
	cfg.LLM.Provider = strings.ToLower(firstNonEmpty(strings.TrimSpace(os.Getenv("LLM_PROVIDER")), cfg.LLM.Provider))
	cfg.LLM.GroqAPIKey = firstNonEmpty(strings.TrimSpace(os.Getenv("GROQ_API_KEY")), cfg.LLM.GroqAPIKey)
	if cfg.LLM.Provider == "groq" {
		if strings.HasPrefix(cfg.LLM.FastModel, "gemini") {
			cfg.LLM.FastModel = groqFastModel
		}
		if strings.HasPrefix(cfg.LLM.StrongModel, "gemini") {
			cfg.LLM.StrongModel = groqStrongModel
		}
	}
	cfg.LLM.FastModel = firstNonEmpty(strings.TrimSpace(os.Getenv("LLM_FAST_MODEL")), cfg.LLM.FastModel)
	cfg.LLM.StrongModel = firstNonEmpty(strings.TrimSpace(os.Getenv("LLM_STRONG_MODEL")), cfg.LLM.StrongModel)
	cfg.LLM.UsageLedger = firstNonEmpty(strings.TrimSpace(os.Getenv("LLM_USAGE_LEDGER")), cfg.LLM.UsageLedger)

	var err error
	if cfg.LLM.RPS, err = envFloat("LLM_RPS", cfg.LLM.RPS); err != nil {
		return err
	}
	if cfg.LLM.Burst, err = envInt("LLM_BURST", cfg.LLM.Burst); err != nil {
		return err
	}
	if cfg.LLM.MaxAttempts, err = envInt("LLM_MAX_ATTEMPTS", cfg.LLM.MaxAttempts); err != nil {
		return err
	}
	if cfg.LLM.Fake, err = envBool("LLM_FAKE", cfg.LLM.Fake); err != nil {
		return err
	}
	if cfg.Pipeline.MaxEditCycles, err = envInt("PIPELINE_MAX_EDIT_CYCLES", cfg.Pipeline.MaxEditCycles); err != nil {
		return err
	}
	if cfg.Pipeline.Concurrency, err = envInt("PIPELINE_CONCURRENCY", cfg.Pipeline.Concurrency); err != nil {
		return err
	}
	cfg.Pipeline.SpecialistsFile = firstNonEmpty(strings.TrimSpace(os.Getenv("SPECIALISTS_FILE")), cfg.Pipeline.SpecialistsFile)

	cfg.Snapshot.Backend = strings.ToLower(firstNonEmpty(strings.TrimSpace(os.Getenv("SNAPSHOT_BACKEND")), cfg.Snapshot.Backend))
	cfg.Snapshot.Dir = firstNonEmpty(strings.TrimSpace(os.Getenv("SNAPSHOT_DIR")), cfg.Snapshot.Dir)
	cfg.Snapshot.DatabaseURL = firstNonEmpty(strings.TrimSpace(os.Getenv("DATABASE_URL")), cfg.Snapshot.DatabaseURL)
	if cfg.Snapshot.CacheEntries, err = envInt("SNAPSHOT_CACHE_ENTRIES", cfg.Snapshot.CacheEntries); err != nil {
		return err
	}

	s3 := &cfg.Snapshot.S3
	s3.Endpoint = firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_ENDPOINT")), s3.Endpoint)
	s3.Region = firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_REGION")), s3.Region)
	s3.AccessKey = firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER")), s3.AccessKey)
	s3.SecretKey = firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD")), s3.SecretKey)
	s3.Bucket = firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_BUCKET")), s3.Bucket)
	if s3.UseSSL, err = envBool("ARTIFACT_S3_USE_SSL", s3.UseSSL); err != nil {
		return err
	}

	cfg.NATS.URL = firstNonEmpty(strings.TrimSpace(os.Getenv("NATS_URL")), cfg.NATS.URL)
	cfg.NATS.Subject = firstNonEmpty(strings.TrimSpace(os.Getenv("NATS_SUBJECT")), cfg.NATS.Subject)
	cfg.Trace.Dir = firstNonEmpty(strings.TrimSpace(os.Getenv("RUN_TRACE_DIR")), cfg.Trace.Dir)
	return nil
}

func (c *Config) validate() error {
	switch c.Snapshot.Backend {
	case "memory", "file":
	case "postgres":
		if strings.TrimSpace(c.Snapshot.DatabaseURL) == "" {
			return fmt.Errorf("snapshot backend postgres requires DATABASE_URL")
		}
	case "s3":
		if !c.Snapshot.S3.Complete() {
			return fmt.Errorf("snapshot backend s3 requires endpoint, credentials and bucket")
		}
	default:
		return fmt.Errorf("unknown snapshot backend %q", c.Snapshot.Backend)
	}
	if c.Pipeline.Concurrency < 0 {
		return fmt.Errorf("pipeline concurrency must be >= 0, got %d", c.Pipeline.Concurrency)
	}
	if c.LLM.Fake {
		return nil
	}
	switch c.LLM.Provider {
	case "gemini":
		if strings.TrimSpace(c.LLM.APIKey) == "" {
			return fmt.Errorf("GEMINI_API_KEY is required unless LLM_FAKE is set")
		}
	case "groq":
		if strings.TrimSpace(c.LLM.GroqAPIKey) == "" {
			return fmt.Errorf("GROQ_API_KEY is required for the groq provider")
		}
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	return nil
}

func envInt(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func envFloat(key string, def float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func envBool(key string, def bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
