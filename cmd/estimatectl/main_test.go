package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ict-ryuma/document-ocr/constants"
	"github.com/ict-ryuma/document-ocr/internal/entity"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_URL", filepath.Join(t.TempDir(), "cli.db"))
	t.Setenv("APP_ENV", constants.EnvTest)
	t.Setenv("OCR_STRATEGY", constants.StrategyFallback)
	t.Setenv("AZURE_OPENAI_API_KEY", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	t.Setenv("NORMALIZER_RULES_FILE", "")
	t.Setenv("LOG_LEVEL", "error")

	dir := t.TempDir()
	for _, name := range []string{"a.pdf", "b.JPG", "notes.txt", ".hidden.png"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "c.heic"), []byte("x"), 0o600))
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestImportRecommendExport(t *testing.T) {
	dir := setupEnv(t)

	out, err := run(t, "import", "--dir", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "imported 2/2 files")

	out, err = run(t, "recommend", "wiper_blade", "--json")
	require.NoError(t, err, out)
	var rec entity.Recommendation
	require.NoError(t, json.Unmarshal([]byte(out), &rec))
	assert.Equal(t, entity.VendorTotal{EstimateID: 1, Vendor: constants.DefaultVendorName, Total: 6000}, rec.SingleVendorBest)
	assert.Equal(t, int64(6000), rec.SplitTheoreticalBest.Total)
	assert.Len(t, rec.TotalsPerVendor, 2)

	out, err = run(t, "recommend", "wiper_blade")
	require.NoError(t, err)
	assert.Contains(t, out, "¥6,000")

	out, err = run(t, "search", "工賃", "--json")
	require.NoError(t, err)
	var items []entity.CategoryItem
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 4)
	assert.Equal(t, int64(1500), items[0].AmountExclTax)

	xlsx := filepath.Join(t.TempDir(), "out", "estimates.xlsx")
	out, err = run(t, "export", "-o", xlsx)
	require.NoError(t, err, out)
	st, err := os.Stat(xlsx)
	require.NoError(t, err)
	assert.Positive(t, st.Size())

	_, err = run(t, "recommend", "battery")
	assert.ErrorContains(t, err, "no items found for battery")
}

func TestImport_NothingToDo(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "import")
	assert.ErrorContains(t, err, "nothing to import")
}

func TestImport_FailureIsReported(t *testing.T) {
	dir := setupEnv(t)
	out, err := run(t, "import", filepath.Join(dir, "a.pdf"), filepath.Join(dir, "missing.pdf"))
	assert.ErrorContains(t, err, "1 of 2 imports failed")
	assert.Contains(t, out, "FAIL  "+filepath.Join(dir, "missing.pdf"))
}

func TestMigrateAndAdapters(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema at version 2")

	out, err = run(t, "adapters")
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "vision"`)
	assert.Contains(t, out, `"available": false`)
}

func TestExtractDoesNotNeedDatabase(t *testing.T) {
	dir := setupEnv(t)
	t.Setenv("DB_URL", "")

	out, err := run(t, "extract", filepath.Join(dir, "a.pdf"), "--vendor", "C整備")
	require.NoError(t, err, out)
	var res entity.ExtractionResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "C整備", res.VendorName)
	assert.Equal(t, "dummy", res.Method)
	assert.Len(t, res.Items, 5)
}

func TestYen(t *testing.T) {
	assert.Equal(t, "¥0", yen(0))
	assert.Equal(t, "¥999", yen(999))
	assert.Equal(t, "¥1,000", yen(1000))
	assert.Equal(t, "¥1,234,567", yen(1234567))
	assert.Equal(t, "¥-1,500", yen(-1500))
}
