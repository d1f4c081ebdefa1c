package common

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ict-ryuma/document-ocr/constants"
)

// Config holds all application configuration
type Config struct {
	Env          string
	Database     DatabaseConfig
	Server       ServerConfig
	Vision       VisionConfig
	Document     DocumentConfig
	Render       RenderConfig
	Orchestrator OrchestratorConfig
	Normalizer   NormalizerConfig
	Queue        QueueConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string // "postgres" | "sqlite"
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string
}

// VisionConfig holds the Azure OpenAI deployment used for vision and completion.
type VisionConfig struct {
	APIKey     string
	Endpoint   string
	Deployment string
	APIVersion string
	Timeout    time.Duration
}

// DocumentConfig holds Document AI settings.
type DocumentConfig struct {
	ProjectID       string
	ProcessorID     string
	Location        string
	CredentialsFile string
	Timeout         time.Duration
	Enhance         bool
}

// RenderConfig holds first-page rasterization settings.
type RenderConfig struct {
	MaxDimension     int
	DPI              int
	Quality          int
	Timeout          time.Duration
	PDFRenderer      string
	HeicConverter    string
	ArtifactCacheDir string
}

// OrchestratorConfig selects the extraction strategy.
type OrchestratorConfig struct {
	Strategy   string
	AllowDummy bool
}

// NormalizerConfig points at an optional rule table override.
type NormalizerConfig struct {
	RulesFile string
}

// QueueConfig sizes the batch import worker pool.
type QueueConfig struct {
	Workers    int
	Size       int
	JobTimeout time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	env := strings.ToLower(getEnv("APP_ENV", constants.EnvDevelopment))
	return &Config{
		Env: env,
		Database: DatabaseConfig{
			Driver:           strings.ToLower(getEnv("DB_DRIVER", "postgres")),
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			GRPCAddr: getEnv("GRPC_ADDR", ":8080"),
		},
		Vision: VisionConfig{
			APIKey:     getEnv("AZURE_OPENAI_API_KEY", ""),
			Endpoint:   getEnv("AZURE_OPENAI_ENDPOINT", ""),
			Deployment: getEnv("AZURE_DEPLOYMENT_NAME", "gpt-4o"),
			APIVersion: getEnv("AZURE_API_VERSION", "2024-12-01-preview"),
			Timeout:    getEnvAsDuration("VISION_TIMEOUT", 60*time.Second),
		},
		Document: DocumentConfig{
			ProjectID:       getEnv("GCP_PROJECT_ID", ""),
			ProcessorID:     getEnv("DOCUMENT_AI_PROCESSOR_ID", ""),
			Location:        getEnv("DOCUMENT_AI_LOCATION", "us"),
			CredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
			Timeout:         getEnvAsDuration("DOCUMENT_AI_TIMEOUT", 120*time.Second),
			Enhance:         getEnvAsBool("DOCUMENT_AI_ENHANCE", true),
		},
		Render: RenderConfig{
			MaxDimension:     getEnvAsInt("RENDER_MAX_DIMENSION", 2048),
			DPI:              getEnvAsInt("RENDER_DPI", 200),
			Quality:          getEnvAsInt("RENDER_QUALITY", 95),
			Timeout:          getEnvAsDuration("RENDER_TIMEOUT", 30*time.Second),
			PDFRenderer:      getEnv("PDF_RENDERER", "pdftoppm"),
			HeicConverter:    getEnv("HEIC_CONVERTER", "magick"),
			ArtifactCacheDir: getEnv("ARTIFACT_CACHE_DIR", "./tmp"),
		},
		Orchestrator: OrchestratorConfig{
			Strategy:   strings.ToLower(getEnv("OCR_STRATEGY", constants.StrategyFallback)),
			AllowDummy: env != constants.EnvProduction,
		},
		Normalizer: NormalizerConfig{
			RulesFile: getEnv("NORMALIZER_RULES_FILE", ""),
		},
		Queue: QueueConfig{
			Workers:    getEnvAsInt("QUEUE_WORKERS", 4),
			Size:       getEnvAsInt("QUEUE_SIZE", 256),
			JobTimeout: getEnvAsDuration("QUEUE_JOB_TIMEOUT", 5*time.Minute),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate checks the settings the server depends on. Backend credentials are
// not required here; adapters report themselves unavailable instead.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return NewAppError("CONFIG_ERROR", "DB_DRIVER must be postgres or sqlite", ErrInvalidInput)
	}
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Server.GRPCAddr == "" {
		return NewAppError("CONFIG_ERROR", "GRPC_ADDR is required", ErrInvalidInput)
	}
	return c.ValidateExtraction()
}

// ValidateExtraction checks only what a database-less extraction run needs.
func (c *Config) ValidateExtraction() error {
	switch c.Orchestrator.Strategy {
	case constants.StrategyFallback, constants.StrategyHybrid:
	default:
		return NewAppError("CONFIG_ERROR", "OCR_STRATEGY must be fallback or hybrid", ErrInvalidInput)
	}
	if c.Render.MaxDimension <= 0 || c.Render.DPI <= 0 {
		return NewAppError("CONFIG_ERROR", "RENDER_MAX_DIMENSION and RENDER_DPI must be positive", ErrInvalidInput)
	}
	if c.Render.Quality < 1 || c.Render.Quality > 100 {
		return NewAppError("CONFIG_ERROR", "RENDER_QUALITY must be between 1 and 100", ErrInvalidInput)
	}
	return nil
}
