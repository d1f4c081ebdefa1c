package openai

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/ict-ryuma/document-ocr/internal/llm"
)

// Config for the Azure OpenAI deployment.
type Config struct {
	APIKey     string
	Endpoint   string // https://<resource>.openai.azure.com
	Deployment string // e.g., "gpt-4o"
	APIVersion string // e.g., "2024-12-01-preview"
	Timeout    time.Duration
}

// Configured reports whether credentials and a deployment are present.
func (c Config) Configured() bool {
	return strings.TrimSpace(c.APIKey) != "" &&
		strings.TrimSpace(c.Endpoint) != "" &&
		strings.TrimSpace(c.Deployment) != ""
}

type Client struct {
	cfg Config
	api llm.ChatCompleter
	log *slog.Logger
}

// NewClient builds a go-openai client pointed at an Azure deployment.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	cfg = withDefaults(cfg)
	ac := goopenai.DefaultAzureConfig(cfg.APIKey, strings.TrimRight(cfg.Endpoint, "/"))
	ac.APIVersion = cfg.APIVersion
	deployment := cfg.Deployment
	ac.AzureModelMapperFunc = func(string) string { return deployment }
	ac.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return NewClientWithAPI(cfg, goopenai.NewClientWithConfig(ac), logger)
}

// NewClientWithAPI wires an arbitrary ChatCompleter, e.g. a test fake.
func NewClientWithAPI(cfg Config, api llm.ChatCompleter, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{cfg: withDefaults(cfg), api: api, log: logger}
}

// Available reports whether the client can be called.
func (c *Client) Available() bool {
	return c != nil && c.api != nil && c.cfg.Configured()
}

func withDefaults(cfg Config) Config {
	if cfg.Deployment == "" {
		cfg.Deployment = "gpt-4o"
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2024-12-01-preview"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return cfg
}
