package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/ict-ryuma/document-ocr/internal/entity"
)

// base carries the logging and error plumbing shared by adapters.
type base struct {
	name   string
	logger *slog.Logger
}

func newBase(name string, logger *slog.Logger) base {
	if logger == nil {
		logger = slog.Default()
	}
	return base{name: name, logger: logger}
}

func (b base) Name() string { return b.name }

// validateFile requires an existing, readable regular file.
func (b base) validateFile(path string) error {
	if path == "" {
		return NewExtractionError(b.name, "file path is empty", nil)
	}
	st, err := os.Stat(path)
	if err != nil {
		return NewExtractionError(b.name, "file not found: "+path, err)
	}
	if !st.Mode().IsRegular() {
		return NewExtractionError(b.name, "not a regular file: "+path, nil)
	}
	f, err := os.Open(path)
	if err != nil {
		return NewExtractionError(b.name, "file not readable: "+path, err)
	}
	_ = f.Close()
	return nil
}

func (b base) start(path string) time.Time {
	b.logger.Info(fmt.Sprintf("extract.%s.start", b.name), "file", filepath.Base(path))
	return time.Now()
}

func (b base) ok(path string, start time.Time, raw entity.RawExtraction) {
	b.logger.Info(fmt.Sprintf("extract.%s.ok", b.name),
		"file", filepath.Base(path),
		"items", len(raw.Items),
		"warnings", len(raw.Warnings),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
}

// fail logs err and returns it as an *AdapterError, classifying deadlines as Timeout.
func (b base) fail(ctx context.Context, path string, start time.Time, msg string, err error) error {
	ae := b.classify(ctx, msg, err)
	b.logger.Error(fmt.Sprintf("extract.%s.failed", b.name),
		"file", filepath.Base(path),
		"kind", ae.Kind,
		"error", ae,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return ae
}

func (b base) classify(ctx context.Context, msg string, err error) *AdapterError {
	var ae *AdapterError
	if errors.As(err, &ae) {
		return ae
	}
	if isDeadline(err) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return NewTimeoutError(b.name, err)
	}
	return NewExtractionError(b.name, msg, err)
}

func isDeadline(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
