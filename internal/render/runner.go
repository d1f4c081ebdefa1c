package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// maxStderr caps how much converter diagnostics are kept per run.
const maxStderr = 64 << 10

// ErrToolMissing reports that a converter binary is not on PATH.
var ErrToolMissing = errors.New("converter not installed")

// ToolError is a converter that ran and exited non-zero.
type ToolError struct {
	Tool     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", e.Tool, e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + truncate(s, 512)
	}
	return msg
}

func (e *ToolError) Unwrap() error { return e.Err }

// Runner lets us stub the converters in tests.
type Runner interface {
	Run(ctx context.Context, name string, logger *slog.Logger, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner runs pdftoppm, magick and friends with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, logger *slog.Logger, args ...string) ([]byte, []byte, error) {
	bin, err := exec.LookPath(name)
	if err != nil {
		logger.Error("render.tool.missing", "tool", name, "error", err)
		return nil, nil, fmt.Errorf("%w: %s", ErrToolMissing, name)
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, bin, args...)
	var out bytes.Buffer
	errb := &cappedBuffer{max: maxStderr}
	cmd.Stdout = &out
	cmd.Stderr = errb

	err = cmd.Run()
	elapsed := time.Since(start).Milliseconds()

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		logger.Debug("render.tool.ok", "tool", name, "args", strings.Join(args, " "), "elapsed_ms", elapsed)
	case ctx.Err() != nil:
		logger.Warn("render.tool.canceled", "tool", name, "elapsed_ms", elapsed, "error", ctx.Err())
		err = fmt.Errorf("%s: %w", name, ctx.Err())
	case errors.As(err, &exitErr):
		err = &ToolError{Tool: name, ExitCode: exitErr.ExitCode(), Stderr: errb.String(), Err: err}
		logger.Error("render.tool.failed",
			"tool", name,
			"args", strings.Join(args, " "),
			"exit_code", exitErr.ExitCode(),
			"stderr", truncate(errb.String(), 8<<10),
			"elapsed_ms", elapsed,
		)
	default:
		logger.Error("render.tool.failed", "tool", name, "elapsed_ms", elapsed, "error", err)
	}
	return out.Bytes(), errb.Bytes(), err
}

// cappedBuffer keeps the first max bytes and silently drops the rest, so a
// chatty converter cannot grow memory without bound.
type cappedBuffer struct {
	bytes.Buffer
	max       int
	truncated bool
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if room := b.max - b.Len(); room < len(p) {
		b.truncated = true
		if room > 0 {
			b.Buffer.Write(p[:room])
		}
		return len(p), nil
	}
	return b.Buffer.Write(p)
}

func (b *cappedBuffer) String() string {
	if b.truncated {
		return b.Buffer.String() + "...(truncated)"
	}
	return b.Buffer.String()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
