package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ict-ryuma/document-ocr/internal/common"
	"github.com/ict-ryuma/document-ocr/internal/estimates"
	"github.com/ict-ryuma/document-ocr/internal/export"
	"github.com/ict-ryuma/document-ocr/internal/extract"
	"github.com/ict-ryuma/document-ocr/internal/llm/openai"
	"github.com/ict-ryuma/document-ocr/internal/normalize"
	"github.com/ict-ryuma/document-ocr/internal/orchestrator"
	"github.com/ict-ryuma/document-ocr/internal/render"
	"github.com/ict-ryuma/document-ocr/internal/repository"
)

// App holds the wired components shared by the binaries.
type App struct {
	Config       *common.Config
	DB           *repository.DB
	Orchestrator *orchestrator.Orchestrator
	Estimates    *estimates.Service
	Exporter     *export.Service
	logger       *slog.Logger
}

// NewLogger builds the text logger the binaries install as default.
func NewLogger(level string) *slog.Logger {
	var lv slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lv = slog.LevelDebug
	case "warn", "warning":
		lv = slog.LevelWarn
	case "error":
		lv = slog.LevelError
	default:
		lv = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lv}))
}

// NewOrchestrator wires the extraction adapters described by cfg. Backends
// without credentials are still registered and report themselves unavailable.
func NewOrchestrator(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*orchestrator.Orchestrator, error) {
	if logger == nil {
		logger = slog.Default()
	}

	llmClient := openai.NewClient(openai.Config{
		APIKey:     cfg.Vision.APIKey,
		Endpoint:   cfg.Vision.Endpoint,
		Deployment: cfg.Vision.Deployment,
		APIVersion: cfg.Vision.APIVersion,
		Timeout:    cfg.Vision.Timeout,
	}, logger)

	renderer := render.NewRenderer(render.Config{
		Options: render.Options{
			MaxDimension: cfg.Render.MaxDimension,
			DPI:          cfg.Render.DPI,
			Quality:      cfg.Render.Quality,
		},
		PDFRenderer:      cfg.Render.PDFRenderer,
		HeicConverter:    cfg.Render.HeicConverter,
		Timeout:          cfg.Render.Timeout,
		ArtifactCacheDir: cfg.Render.ArtifactCacheDir,
	}, nil, logger)
	vision := extract.NewVisionAdapter(llmClient, renderer, cfg.Vision.Timeout, logger)

	docCfg := extract.DocAIConfig{
		ProjectID:       cfg.Document.ProjectID,
		ProcessorID:     cfg.Document.ProcessorID,
		Location:        cfg.Document.Location,
		CredentialsFile: cfg.Document.CredentialsFile,
	}
	var processor extract.DocumentProcessor
	if docCfg.Configured() {
		client, err := extract.NewDocAIClient(ctx, docCfg, logger)
		if err != nil {
			logger.Warn("app.document.disabled", "error", err)
		} else {
			processor = client
		}
	}
	var enhancer *extract.CompletionEnhancer
	if cfg.Document.Enhance {
		enhancer = extract.NewCompletionEnhancer(llmClient, logger)
	}
	document := extract.NewDocumentAdapter(docCfg, processor, enhancer, cfg.Document.Timeout, logger)

	opts := []orchestrator.Option{}
	if path := strings.TrimSpace(cfg.Normalizer.RulesFile); path != "" {
		classifier, err := normalize.LoadRules(path)
		if err != nil {
			return nil, fmt.Errorf("load normalizer rules: %w", err)
		}
		opts = append(opts, orchestrator.WithClassifier(classifier))
	}

	o := orchestrator.New(orchestrator.Config{
		Strategy:   cfg.Orchestrator.Strategy,
		AllowDummy: cfg.Orchestrator.AllowDummy,
	}, []extract.Adapter{vision, document}, logger, opts...)

	for _, st := range o.Adapters() {
		logger.Info("app.adapter", "name", st.Name, "available", st.Available)
	}
	return o, nil
}

// New opens the database, applies migrations and wires every service.
func New(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := repository.Open(ctx, repository.Config{
		Driver:           cfg.Database.Driver,
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	orch, err := NewOrchestrator(ctx, cfg, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	svc := estimates.NewService(orch, repository.NewEstimateRepository(db, logger), logger)

	return &App{
		Config:       cfg,
		DB:           db,
		Orchestrator: orch,
		Estimates:    svc,
		Exporter:     export.NewService(svc, logger),
		logger:       logger,
	}, nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.DB.Close()
}
