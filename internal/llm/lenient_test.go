package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripCodeFence("```\n{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, StripCodeFence(`  {"a":1} `))
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"3800", 3800, true},
		{"¥3,800", 3800, true},
		{"￥ 12,000円", 12000, true},
		{"4200.0", 4200, true},
		{"", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseAmount(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestNormalizeEstimateJSON(t *testing.T) {
	raw := []byte(`{
		"vendor": "株式会社 サンプル",
		"total_amount_excl_tax": "15,100",
		"total_amount_incl_tax": null,
		"items": [
			{"name": "ワイパーブレード", "amount": "¥3,800", "qty": "1", "cost_type": "Parts"},
			{"item_name_raw": "工賃", "amount_excl_tax": 2200.0, "cost_type": "misc", "confidence": "HIGH"},
			"garbage"
		],
		"warnings": ["合計不一致", ""]
	}`)

	out, touched, err := NormalizeEstimateJSON(raw)
	require.NoError(t, err)
	assert.NotEmpty(t, touched)

	var doc EstimateFields
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.Equal(t, "株式会社 サンプル", doc.VendorName)
	require.NotNil(t, doc.TotalAmountExclTax)
	assert.Equal(t, int64(15100), *doc.TotalAmountExclTax)
	assert.Nil(t, doc.TotalAmountInclTax)
	require.Len(t, doc.Items, 2)
	assert.Equal(t, "ワイパーブレード", doc.Items[0].ItemNameRaw)
	assert.Equal(t, int64(3800), doc.Items[0].AmountExclTax)
	assert.Equal(t, 1, doc.Items[0].Quantity)
	assert.Equal(t, "parts", doc.Items[0].CostType)
	assert.Equal(t, int64(2200), doc.Items[1].AmountExclTax)
	assert.Empty(t, doc.Items[1].CostType)
	assert.Equal(t, "high", doc.Items[1].Confidence)
	assert.Equal(t, []string{"合計不一致"}, doc.ValidationWarnings)

	require.NoError(t, ValidateJSONAgainstSchema(BuildEstimateJSONSchema(), out))
}

func TestDecodeEstimate(t *testing.T) {
	t.Run("strict document passes untouched", func(t *testing.T) {
		content := "```json\n" + `{"vendor_name":"A整備","estimate_date":"令和7年7月21日","total_amount_excl_tax":6000,"items":[{"item_name_raw":"ワイパー","quantity":1,"amount_excl_tax":3800,"cost_type":"parts"}]}` + "\n```"
		got, _, touched, err := DecodeEstimate(content, BuildEstimateJSONSchema())
		require.NoError(t, err)
		assert.Empty(t, touched)
		assert.Equal(t, "A整備", got.VendorName)
		assert.Equal(t, "令和7年7月21日", got.EstimateDate)
		require.Len(t, got.Items, 1)
	})

	t.Run("lenient repair", func(t *testing.T) {
		content := `{"vendor_name":"B","items":[{"item_name_raw":"オイル","amount_excl_tax":"4,800"}]}`
		got, _, touched, err := DecodeEstimate(content, BuildEstimateJSONSchema())
		require.NoError(t, err)
		assert.NotEmpty(t, touched)
		assert.Equal(t, int64(4800), got.Items[0].AmountExclTax)
	})

	t.Run("empty", func(t *testing.T) {
		_, _, _, err := DecodeEstimate("  ", BuildEstimateJSONSchema())
		assert.Error(t, err)
	})

	t.Run("not json", func(t *testing.T) {
		_, _, _, err := DecodeEstimate("I cannot read this image.", BuildEstimateJSONSchema())
		assert.Error(t, err)
	})

	t.Run("missing items", func(t *testing.T) {
		_, _, _, err := DecodeEstimate(`{"vendor_name":"C"}`, BuildEstimateJSONSchema())
		require.NoError(t, err)
	})
}
