package render

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/ict-ryuma/document-ocr/constants"
)

// Options bound the rendered page.
type Options struct {
	MaxDimension int // longest edge in pixels
	DPI          int // PDF rasterization density
	Quality      int // JPEG quality 1..100
}

// Config for the Renderer.
type Config struct {
	Options
	PDFRenderer      string        // default "pdftoppm"
	HeicConverter    string        // "magick" | "heif-convert" | "sips"
	Timeout          time.Duration // per render call
	ArtifactCacheDir string        // HEIC conversions are cached here by content hash
}

// Renderer produces a bounded JPEG of a document's first page.
type Renderer struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

// NewRenderer fills defaults; a nil runner uses os/exec.
func NewRenderer(cfg Config, runner Runner, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	if cfg.PDFRenderer == "" {
		cfg.PDFRenderer = "pdftoppm"
	}
	if cfg.HeicConverter == "" {
		cfg.HeicConverter = "magick"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.Options = cfg.Options.withDefaults()
	return &Renderer{cfg: cfg, runner: runner, logger: logger}
}

func (o Options) withDefaults() Options {
	if o.MaxDimension <= 0 {
		o.MaxDimension = 2048
	}
	if o.DPI <= 0 {
		o.DPI = 200
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = 95
	}
	return o
}

// Render renders the first page of path with the configured options.
func (r *Renderer) Render(ctx context.Context, path string) ([]byte, error) {
	return r.RenderFirstPage(ctx, path, r.cfg.Options)
}

// RenderFirstPage rasterizes the first page of a PDF, or loads an image,
// scales it so neither edge exceeds opts.MaxDimension, and returns JPEG bytes.
func (r *Renderer) RenderFirstPage(ctx context.Context, path string, opts Options) ([]byte, error) {
	opts = opts.withDefaults()
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	src, cleanup, err := r.rasterize(ctx, path, opts)
	if cleanup != nil {
		defer cleanup()
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("render %s: %w", filepath.Base(path), ctxErr)
		}
		return nil, err
	}

	f, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("open rendered page: %w", err)
	}
	img, format, err := image.Decode(f)
	_ = f.Close()
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(src), err)
	}

	scaled := Fit(img, opts.MaxDimension)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: opts.Quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}

	b := scaled.Bounds()
	r.logger.Info("render.page.ok",
		"file", filepath.Base(path),
		"source_format", format,
		"width", b.Dx(),
		"height", b.Dy(),
		"bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// rasterize returns the path of a decodable image for the first page.
func (r *Renderer) rasterize(ctx context.Context, path string, opts Options) (string, func(), error) {
	switch ext := constants.NormalizeExt(filepath.Ext(path)); ext {
	case "pdf":
		return r.pdfFirstPage(ctx, path, opts.DPI)
	case "heic", "heif":
		return r.heicToPNG(ctx, path)
	default:
		if _, ok := constants.ImageMimeTypes[ext]; ok {
			return path, nil, nil
		}
		return "", nil, fmt.Errorf("unsupported file type %q", ext)
	}
}

func (r *Renderer) pdfFirstPage(ctx context.Context, path string, dpi int) (string, func(), error) {
	tmpDir, err := os.MkdirTemp("", "estimate-page-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.RemoveAll(tmpDir) }

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r <dpi> -f 1 -l 1 -singlefile -png <in.pdf> <tmp/page>  => <tmp/page>.png
	if _, _, err := r.runner.Run(ctx, r.cfg.PDFRenderer, r.logger,
		"-r", strconv.Itoa(dpi), "-f", "1", "-l", "1", "-singlefile", "-png", path, prefix); err != nil {
		return "", cleanup, fmt.Errorf("rasterize first page: %w", err)
	}
	out := prefix + ".png"
	if _, err := os.Stat(out); err != nil {
		return "", cleanup, fmt.Errorf("%s produced no image: %w", r.cfg.PDFRenderer, err)
	}
	return out, cleanup, nil
}

func (r *Renderer) heicToPNG(ctx context.Context, path string) (string, func(), error) {
	var cached string
	if r.cfg.ArtifactCacheDir != "" {
		sum, err := fileSHA256(path)
		if err != nil {
			return "", nil, err
		}
		cached = filepath.Join(r.cfg.ArtifactCacheDir, sum+".png")
		if st, err := os.Stat(cached); err == nil && !st.IsDir() {
			r.logger.Debug("render.heic.cache_hit", "cache", cached)
			return cached, nil, nil
		}
		if err := os.MkdirAll(r.cfg.ArtifactCacheDir, 0o755); err != nil {
			return "", nil, err
		}
	}

	tmpDir, err := os.MkdirTemp("", "estimate-heic-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.RemoveAll(tmpDir) }
	out := filepath.Join(tmpDir, "page.png")

	var args []string
	switch r.cfg.HeicConverter {
	case "magick", "heif-convert":
		args = []string{path, out}
	case "sips":
		args = []string{"-s", "format", "png", path, "--out", out}
	default:
		return "", cleanup, fmt.Errorf("HEIC not supported: set HEIC_CONVERTER to one of: heif-convert | magick | sips")
	}
	if _, _, err := r.runner.Run(ctx, r.cfg.HeicConverter, r.logger, args...); err != nil {
		return "", cleanup, fmt.Errorf("convert HEIC: %w", err)
	}
	if _, err := os.Stat(out); err != nil {
		return "", cleanup, fmt.Errorf("HEIC conversion produced no output: %w", err)
	}

	if cached == "" {
		return out, cleanup, nil
	}
	if err := copyFile(out, cached); err != nil {
		r.logger.Warn("render.heic.cache_write_failed", "cache", cached, "error", err)
		return out, cleanup, nil
	}
	cleanup()
	return cached, nil, nil
}

// Fit scales img down so its longest edge is at most maxDim, keeping the
// aspect ratio. Smaller images are returned unchanged.
func Fit(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return img
	}
	nw, nh := maxDim, maxDim
	if w >= h {
		nh = max(1, h*maxDim/w)
	} else {
		nw = max(1, w*maxDim/h)
	}
	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

func fileSHA256(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

func copyFile(from, to string) error {
	b, err := os.ReadFile(from)
	if err != nil {
		return err
	}
	tmp := to + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, to); err != nil {
		return errors.Join(err, os.Remove(tmp))
	}
	return nil
}
