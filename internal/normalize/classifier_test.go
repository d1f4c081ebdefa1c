package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ict-ryuma/document-ocr/constants"
	"github.com/ict-ryuma/document-ocr/internal/entity"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"ワイパーブレード", "wiper_blade"},
		{"ワイパー", "wiper_blade"},
		{"  Wiper Blade 600mm ", "wiper_blade"},
		{"エンジンオイル 5W-30", "engine_oil"},
		{"ＯＩＬ", "engine_oil"},
		{"エアクリーナー", "air_filter"},
		// engine_oil precedes oil_filter, so the generic "オイル" keyword wins.
		{"オイルフィルター", "engine_oil"},
		{"ブレーキパッド フロント", "brake_pad"},
		{"スタッドレスタイヤ", "tire"},
		{"バッテリー交換", "battery"},
		{"ボルト 3個", "ボルト_3個"},
		{"Spark Plug (NGK)", "spark_plug_ngk"},
		{"!!!", "unknown"},
		{"", "unknown"},
		{"   ", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Canonicalize(tt.input))
		})
	}
}

func TestClassifyCostType(t *testing.T) {
	tests := []struct {
		input string
		want  constants.CostType
	}{
		{"オイル交換工賃", constants.CostTypeLabor},
		{"点検作業", constants.CostTypeLabor},
		{"Installation fee", constants.CostTypeLabor},
		{"代行手数料", constants.CostTypeLabor},
		{"ワイパーブレード", constants.CostTypeParts},
		{"エンジンオイル", constants.CostTypeParts},
		{"", constants.CostTypeParts},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ClassifyCostType(tt.input)
			assert.Equal(t, tt.want, got)
			for i := 0; i < 5; i++ {
				assert.Equal(t, got, ClassifyCostType(tt.input))
			}
		})
	}
}

func TestClassifier_Classify(t *testing.T) {
	c := NewClassifier(nil, nil)

	t.Run("hint kept when valid", func(t *testing.T) {
		got := c.Classify(entity.RawLineItem{RawName: "重量税", AmountExclTax: 8200, Quantity: 1, CostTypeHint: constants.CostTypeStatutoryFees})
		assert.Equal(t, constants.CostTypeStatutoryFees, got.CostType)
		assert.Equal(t, "重量税", got.CanonicalName)
	})

	t.Run("invalid hint falls back to keywords", func(t *testing.T) {
		got := c.Classify(entity.RawLineItem{RawName: "ワイパー交換工賃", AmountExclTax: 2200, CostTypeHint: "misc"})
		assert.Equal(t, constants.CostTypeLabor, got.CostType)
		assert.Equal(t, "wiper_blade", got.CanonicalName)
		assert.Equal(t, 1, got.Quantity)
	})

	t.Run("corrected name preferred", func(t *testing.T) {
		got := c.Classify(entity.RawLineItem{RawName: "E/G OlL", CorrectedName: "エンジンオイル", AmountExclTax: 4800, Quantity: 1})
		assert.Equal(t, "engine_oil", got.CanonicalName)
		assert.Equal(t, "E/G OlL", got.RawName)
	})

	t.Run("cost type always in taxonomy", func(t *testing.T) {
		items := []entity.RawLineItem{
			{RawName: "ワイパー"}, {RawName: "工賃"}, {RawName: "x", CostTypeHint: "bogus"},
			{RawName: "印紙代", CostTypeHint: constants.CostTypeOther},
		}
		for _, it := range c.ClassifyAll(items) {
			assert.True(t, it.CostType.Valid(), "%q got %q", it.RawName, it.CostType)
			assert.NotEmpty(t, it.CanonicalName)
		}
	})
}

func TestParseRules(t *testing.T) {
	data := []byte(`
rules:
  - category: spark_plug
    keywords: [プラグ, plug]
  - category: wiper_blade
    keywords: [ワイパー]
labor_keywords: [工賃]
`)
	c, err := ParseRules(data)
	require.NoError(t, err)

	rules := c.Rules()
	require.Len(t, rules, 2)
	assert.Equal(t, "spark_plug", rules[0].Category)
	assert.Equal(t, "spark_plug", c.Canonicalize("イリジウムプラグ"))
	assert.Equal(t, "engine_oil_5w30", c.Canonicalize("engine oil 5w-30"))
	assert.Equal(t, constants.CostTypeParts, c.ClassifyCostType("点検作業"))

	_, err = ParseRules([]byte(`rules: []`))
	assert.Error(t, err)
	_, err = ParseRules([]byte("rules:\n  - category: tire\n"))
	assert.Error(t, err)
}

func TestExtractQuantity(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{"ボルト 3個", 3},
		{"タイヤ x4", 4},
		{"タイヤ ×2", 2},
		{"ワイパー 2本", 2},
		{"数量: 5", 5},
		{"数量５", 5},
		{"エンジンオイル", 1},
		{"", 1},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractQuantity(tt.input))
		})
	}

	n, ok := FindQuantity("タイヤ 4本")
	assert.True(t, ok)
	assert.Equal(t, 4, n)
	n, ok = FindQuantity("エンジンオイル")
	assert.False(t, ok)
	assert.Zero(t, n)
}

func TestText(t *testing.T) {
	in := "株式会社\tサンプル  自動車\r\n\r\n\r\n\r\n-----\nワイパー　３，８００  \n"
	assert.Equal(t, "株式会社 サンプル 自動車\n\nワイパー 3,800", Text(in))
}
