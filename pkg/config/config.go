package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.yaml.in/yaml/v4"
)

type Config struct {
	Port          string `yaml:"port"`
	DatabaseURL   string `yaml:"database_url"`
	StorageDriver string `yaml:"storage_driver"`
	JWTSecret     string `yaml:"jwt_secret"`
	JWTIssuer     string `yaml:"jwt_issuer"`
	JWTTTLMinutes int    `yaml:"jwt_ttl_minutes"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	OpenRouterAPIKey   string `yaml:"openrouter_api_key"`
	OpenRouterBase     string `yaml:"openrouter_base"`
	OpenRouterModel    string `yaml:"openrouter_model"`
	OpenRouterAppTitle string `yaml:"openrouter_app_title"`
	OpenRouterReferer  string `yaml:"openrouter_referer"`

	Blob  BlobConfig  `yaml:"blob"`
	Redis RedisConfig `yaml:"redis"`

	Pipeline PipelineConfig `yaml:"pipeline"`

	SignupCredits int `yaml:"signup_credits"`
	CreditsPerCV  int `yaml:"credits_per_cv"`

	// Pricing maps model name to USD per 1M input/output tokens.
	Pricing map[string]Price `yaml:"pricing"`
	// Weights are the default scoring weights for new batches.
	Weights Weights `yaml:"weights"`
}

type BlobConfig struct {
	Driver        string        `yaml:"driver"`
	LocalDir      string        `yaml:"local_dir"`
	PublicBaseURL string        `yaml:"public_base_url"`
	URLTTL        time.Duration `yaml:"url_ttl"`
	Timeout       time.Duration `yaml:"timeout"`
	// FetchTimeout bounds the worker's full object download.
	FetchTimeout time.Duration `yaml:"fetch_timeout"`

	MinioEndpoint  string `yaml:"minio_endpoint"`
	MinioAccessKey string `yaml:"minio_access_key"`
	MinioSecretKey string `yaml:"minio_secret_key"`
	MinioBucket    string `yaml:"minio_bucket"`
	MinioUseSSL    bool   `yaml:"minio_use_ssl"`
	MinioRegion    string `yaml:"minio_region"`
}

type RedisConfig struct {
	URL string `yaml:"url"`
}

type PipelineConfig struct {
	WorkerCount     int           `yaml:"worker_count"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	TaskLease       time.Duration `yaml:"task_lease"`
	MaxRetries      int           `yaml:"max_retries"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
	MinTextChars    int           `yaml:"min_text_chars"`
	RequestedTTL    time.Duration `yaml:"requested_ttl"`
	JanitorInterval time.Duration `yaml:"janitor_interval"`
}

type Price struct {
	Input  float64 `yaml:"input"`
	Output float64 `yaml:"output"`
}

type Weights struct {
	Skills         int `yaml:"skills"`
	Experience     int `yaml:"experience"`
	Qualifications int `yaml:"qualifications"`
	Projects       int `yaml:"projects"`
}

func defaults() Config {
	return Config{
		Port:          "8080",
		StorageDriver: "postgres",
		JWTSecret:     "dev-secret-change",
		JWTIssuer:     "cvflow",
		JWTTTLMinutes: 60,
		LogLevel:      "info",
		LogFormat:     "json",
		Blob: BlobConfig{
			Driver:        "local",
			LocalDir:      "uploads",
			PublicBaseURL: "http://localhost:8080",
			URLTTL:        time.Hour,
			Timeout:       5 * time.Second,
			FetchTimeout:  2 * time.Minute,
			MinioEndpoint: "localhost:9000",
			MinioBucket:   "cvflow-uploads",
		},
		Pipeline: PipelineConfig{
			WorkerCount:     2,
			PollInterval:    2 * time.Second,
			TaskLease:       5 * time.Minute,
			MaxRetries:      3,
			MaxUploadBytes:  10 << 20,
			MinTextChars:    50,
			RequestedTTL:    24 * time.Hour,
			JanitorInterval: time.Minute,
		},
		SignupCredits: 100,
		CreditsPerCV:  1,
		Weights:       Weights{Skills: 50, Experience: 30, Qualifications: 10, Projects: 10},
	}
}

// Load reads environment variables, optionally from a .env file if present.
// CONFIG_FILE may point to a YAML file that is applied before the environment.
func Load() Config {
	// Try to load .env if it exists; ignore error if file not found
	_ = godotenv.Load()

	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
		}
	}
	applyEnv(&cfg)
	return cfg
}

func (c Config) JWTTTL() time.Duration {
	return time.Duration(c.JWTTTLMinutes) * time.Minute
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.StorageDriver = strings.ToLower(getEnv("STORAGE_DRIVER", cfg.StorageDriver))
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.JWTIssuer = getEnv("JWT_ISSUER", cfg.JWTIssuer)
	cfg.JWTTTLMinutes = getEnvInt("JWT_TTL_MINUTES", cfg.JWTTTLMinutes)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnv("LOG_FORMAT", cfg.LogFormat)

	cfg.OpenRouterAPIKey = getEnv("OPENROUTER_API_KEY", cfg.OpenRouterAPIKey)
	cfg.OpenRouterBase = getEnv("OPENROUTER_BASE", cfg.OpenRouterBase)
	cfg.OpenRouterModel = getEnv("OPENROUTER_MODEL", cfg.OpenRouterModel)
	cfg.OpenRouterAppTitle = getEnv("OPENROUTER_APP_TITLE", cfg.OpenRouterAppTitle)
	cfg.OpenRouterReferer = getEnv("OPENROUTER_REFERER", cfg.OpenRouterReferer)

	b := &cfg.Blob
	b.Driver = strings.ToLower(getEnv("BLOB_DRIVER", b.Driver))
	b.LocalDir = getEnv("BLOB_LOCAL_DIR", b.LocalDir)
	b.PublicBaseURL = strings.TrimRight(getEnv("PUBLIC_BASE_URL", b.PublicBaseURL), "/")
	b.URLTTL = getEnvDuration("BLOB_URL_TTL", b.URLTTL)
	b.Timeout = getEnvDuration("BLOB_TIMEOUT", b.Timeout)
	b.FetchTimeout = getEnvDuration("BLOB_FETCH_TIMEOUT", b.FetchTimeout)
	b.MinioEndpoint = getEnv("MINIO_ENDPOINT", b.MinioEndpoint)
	b.MinioAccessKey = getEnv("MINIO_ACCESS_KEY", b.MinioAccessKey)
	b.MinioSecretKey = getEnv("MINIO_SECRET_KEY", b.MinioSecretKey)
	b.MinioBucket = getEnv("MINIO_BUCKET", b.MinioBucket)
	b.MinioUseSSL = getEnvBool("MINIO_USE_SSL", b.MinioUseSSL)
	b.MinioRegion = getEnv("MINIO_REGION", b.MinioRegion)

	cfg.Redis.URL = getEnv("REDIS_URL", cfg.Redis.URL)

	p := &cfg.Pipeline
	p.WorkerCount = getEnvInt("WORKER_COUNT", p.WorkerCount)
	p.PollInterval = getEnvDuration("WORKER_POLL_INTERVAL", p.PollInterval)
	p.TaskLease = getEnvDuration("TASK_LEASE", p.TaskLease)
	p.MaxRetries = getEnvInt("TASK_MAX_RETRIES", p.MaxRetries)
	p.MaxUploadBytes = int64(getEnvInt("MAX_UPLOAD_BYTES", int(p.MaxUploadBytes)))
	p.MinTextChars = getEnvInt("MIN_TEXT_CHARS", p.MinTextChars)
	p.RequestedTTL = getEnvDuration("REQUESTED_TTL", p.RequestedTTL)
	p.JanitorInterval = getEnvDuration("JANITOR_INTERVAL", p.JanitorInterval)

	cfg.SignupCredits = getEnvInt("SIGNUP_CREDITS", cfg.SignupCredits)
	cfg.CreditsPerCV = getEnvInt("CREDITS_PER_CV", cfg.CreditsPerCV)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}
