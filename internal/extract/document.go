package extract

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ict-ryuma/document-ocr/constants"
	"github.com/ict-ryuma/document-ocr/internal/entity"
)

// DocumentProcessor runs a document through Document AI.
type DocumentProcessor interface {
	Process(ctx context.Context, content []byte, mimeType string) (Document, error)
}

// DocumentAdapter parses tables (then plain text) from Document AI output,
// optionally followed by the completion pass.
type DocumentAdapter struct {
	base
	cfg       DocAIConfig
	processor DocumentProcessor
	enhancer  *CompletionEnhancer
	timeout   time.Duration
}

// NewDocumentAdapter wires a processor; enhancer may be nil to skip completion.
func NewDocumentAdapter(cfg DocAIConfig, processor DocumentProcessor, enhancer *CompletionEnhancer, timeout time.Duration, logger *slog.Logger) *DocumentAdapter {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &DocumentAdapter{
		base:      newBase(NameDocument, logger),
		cfg:       cfg,
		processor: processor,
		enhancer:  enhancer,
		timeout:   timeout,
	}
}

func (a *DocumentAdapter) Available() bool {
	return a.processor != nil && a.cfg.Configured()
}

func (a *DocumentAdapter) Extract(ctx context.Context, path string) (entity.RawExtraction, error) {
	start := a.start(path)
	if !a.Available() {
		return entity.RawExtraction{}, a.fail(ctx, path, start, "", NewConfigurationError(a.name, "Document AI is not configured"))
	}
	if err := a.validateFile(path); err != nil {
		return entity.RawExtraction{}, a.fail(ctx, path, start, "", err)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	content, err := os.ReadFile(path)
	if err != nil {
		return entity.RawExtraction{}, a.fail(ctx, path, start, "read file", err)
	}
	doc, err := a.processor.Process(ctx, content, constants.MimeTypeForExt(filepath.Ext(path)))
	if err != nil {
		return entity.RawExtraction{}, a.fail(ctx, path, start, "Document AI request", err)
	}

	raw := a.fromDocument(doc)
	if a.enhancer != nil {
		var enhanced bool
		raw, enhanced = a.enhancer.Enhance(ctx, raw)
		if enhanced {
			raw.Method = a.name + " → completion"
		}
	}
	a.ok(path, start, raw)
	return raw, nil
}

func (a *DocumentAdapter) fromDocument(doc Document) entity.RawExtraction {
	h := documentHeader(doc)
	raw := entity.RawExtraction{
		VendorName:    h.vendor,
		VendorAddress: h.address,
		EstimateDate:  h.date,
		Method:        a.name,
	}

	raw.Items = parseTables(doc)
	if len(raw.Items) == 0 {
		raw.Items = ParseTextItems(doc.Text)
		if len(raw.Items) > 0 {
			a.logger.Debug("extract.document.text_fallback", "items", len(raw.Items))
		}
	}
	if len(raw.Items) == 0 {
		raw.Warnings = append(raw.Warnings, "no line items found")
	}
	return raw
}
