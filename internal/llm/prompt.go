package llm

import (
	"encoding/json"
	"strings"
)

// VisionSystemPrompt instructs the model how to read a Japanese vehicle
// maintenance estimate image.
func VisionSystemPrompt() string {
	parts := []string{
		"あなたは自動車整備見積書の読み取り担当です。画像に印字された内容だけを根拠に、指定のJSONのみを返してください。",
		"税込合計 (total_amount_incl_tax): 「御見積金額」「合計金額」「税込合計」ラベルの横または直下の数値をそのまま抜き出す。計算で求めない。",
		"税抜合計 (total_amount_excl_tax): 「税抜合計」「小計」「Subtotal」ラベルの数値。見つからない場合のみ null。",
		"業者名 (vendor_name): 用紙上部のロゴや最も大きな社名。「株式会社」等の法人格も含めて印字通りに。",
		"明細 (items): 表の行に加え「諸費用」「法定費用」欄も明細に含める。品名は型番・記号を含めて印字通り。金額が空欄の行は除外。",
		"cost_type: 「自賠責」「重量税」「印紙」「法定」「検査登録」「リサイクル」は statutory_fees、「工賃」「作業」「技術料」「整備」「点検」は labor、部品は parts、それ以外は other。",
		"日付 (estimate_date): 印字通りの表記で返す。和暦でもよい。",
		"金額は円単位の整数で、カンマや記号を含めない。",
		"説明文やマークダウンは出力しない。",
	}
	return strings.Join(parts, "\n")
}

// VisionUserPrompt carries the JSON template for the vision call.
func VisionUserPrompt() string {
	return `この見積書画像を解析し、次のJSON形式で出力してください。

{
  "vendor_name": "会社名",
  "vendor_address": "住所",
  "estimate_date": "見積日",
  "total_amount_incl_tax": 数値,
  "total_amount_excl_tax": 数値 または null,
  "items": [
    {"item_name_raw": "品名", "quantity": 数値, "amount_excl_tax": 数値, "cost_type": "parts|labor|statutory_fees|other"}
  ]
}

JSONのみを出力してください。`
}

// CompletionSystemPrompt instructs the semantic-completion pass that repairs
// structured OCR output.
func CompletionSystemPrompt() string {
	parts := []string{
		"あなたは自動車整備見積書データの補正担当です。OCRで抽出されたJSONを受け取り、補正したJSONのみを返してください。",
		"品名: OCRの誤認識を直し (例: 「ワイパ一」→「ワイパー」)、略称を正式名称にし、型番を除いた品名を item_name_corrected に入れる。item_name_raw は入力のまま残す。",
		"金額: 明らかな桁ずれやカンマの誤認識を修正する。",
		"数量: 0 または欠けている場合は品名と金額から推定し、判断できなければ1とする。",
		"整合性: 明細合計と記載合計の差、10%の消費税計算の不一致があれば validation_warnings に記述する。",
		"items は入力と同じ順序・同じ件数で返す。各明細に confidence (high|medium|low) を付ける。",
	}
	return strings.Join(parts, "\n")
}

// CompletionUserPrompt embeds the raw extraction as JSON.
func CompletionUserPrompt(raw EstimateFields) string {
	return "以下の抽出結果を補正してください。\n\n```json\n" + mustJSON(raw) + "\n```\n\n" +
		`出力形式: {"vendor_name": "", "vendor_address": "", "items": [{"item_name_raw": "", "item_name_corrected": "", "amount_excl_tax": 0, "quantity": 1, "confidence": "high", "correction_notes": ""}], "total_amount_excl_tax": 0, "total_amount_incl_tax": 0, "validation_warnings": [], "processing_notes": ""}`
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
