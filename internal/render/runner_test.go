package render

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRunner(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	ctx := context.Background()
	logger := slog.Default()

	t.Run("missing tool", func(t *testing.T) {
		_, _, err := ExecRunner{}.Run(ctx, "pdftoppm-not-installed-here", logger)
		assert.ErrorIs(t, err, ErrToolMissing)
	})

	t.Run("non-zero exit", func(t *testing.T) {
		_, stderr, err := ExecRunner{}.Run(ctx, "sh", logger, "-c", "echo 'Syntax Error: broken xref' >&2; exit 3")
		var te *ToolError
		require.True(t, errors.As(err, &te))
		assert.Equal(t, "sh", te.Tool)
		assert.Equal(t, 3, te.ExitCode)
		assert.Contains(t, te.Error(), "broken xref")
		assert.Contains(t, string(stderr), "broken xref")
	})

	t.Run("ok", func(t *testing.T) {
		out, _, err := ExecRunner{}.Run(ctx, "sh", logger, "-c", "printf page")
		require.NoError(t, err)
		assert.Equal(t, "page", string(out))
	})

	t.Run("canceled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, _, err := ExecRunner{}.Run(cctx, "sh", logger, "-c", "sleep 5")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestCappedBuffer(t *testing.T) {
	b := &cappedBuffer{max: 8}
	n, err := b.Write([]byte(strings.Repeat("x", 5)))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	n, err = b.Write([]byte(strings.Repeat("y", 10)))
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, 8, b.Len())
	assert.Equal(t, "xxxxxyyy...(truncated)", b.String())
}
