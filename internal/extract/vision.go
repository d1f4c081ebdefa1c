package extract

import (
	"context"
	"log/slog"
	"time"

	"github.com/ict-ryuma/document-ocr/internal/entity"
	"github.com/ict-ryuma/document-ocr/internal/llm"
)

// VisionClient is the chat-completion call used by the vision adapter.
type VisionClient interface {
	Available() bool
	ExtractFromImage(ctx context.Context, dataURL string) (llm.EstimateFields, []byte, error)
}

// PageRenderer turns a document into bounded JPEG bytes of its first page.
type PageRenderer interface {
	Render(ctx context.Context, path string) ([]byte, error)
}

// VisionAdapter sends the rendered first page to a vision model.
type VisionAdapter struct {
	base
	client   VisionClient
	renderer PageRenderer
	timeout  time.Duration
}

func NewVisionAdapter(client VisionClient, renderer PageRenderer, timeout time.Duration, logger *slog.Logger) *VisionAdapter {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &VisionAdapter{
		base:     newBase(NameVision, logger),
		client:   client,
		renderer: renderer,
		timeout:  timeout,
	}
}

func (a *VisionAdapter) Available() bool {
	return a.client != nil && a.client.Available() && a.renderer != nil
}

func (a *VisionAdapter) Extract(ctx context.Context, path string) (entity.RawExtraction, error) {
	start := a.start(path)
	if !a.Available() {
		return entity.RawExtraction{}, a.fail(ctx, path, start, "", NewConfigurationError(a.name, "Azure OpenAI is not configured"))
	}
	if err := a.validateFile(path); err != nil {
		return entity.RawExtraction{}, a.fail(ctx, path, start, "", err)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	page, err := a.renderer.Render(ctx, path)
	if err != nil {
		return entity.RawExtraction{}, a.fail(ctx, path, start, "render first page", err)
	}

	fields, _, err := a.client.ExtractFromImage(ctx, llm.DataURL(page, "image/jpeg"))
	if err != nil {
		return entity.RawExtraction{}, a.fail(ctx, path, start, "vision request", err)
	}

	raw := rawFromFields(fields)
	raw.Method = a.name
	a.ok(path, start, raw)
	return raw, nil
}
