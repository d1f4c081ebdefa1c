package llm

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/ict-ryuma/document-ocr/constants"
)

var (
	reFence     = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")
	reAmountRaw = regexp.MustCompile(`[¥￥円,，\s]`)
)

// StripCodeFence removes a surrounding ```json fence from model output.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if m := reFence.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}

// NormalizeEstimateJSON makes model output schema-friendly:
//   - renames known synonyms to the schema keys
//   - coerces money and quantity fields to integers ("3,800", "¥3800", 3800.0)
//   - drops null or unparseable totals and cost types outside the taxonomy
//
// It returns the rewritten document and the list of keys that were touched.
func NormalizeEstimateJSON(raw []byte) ([]byte, []string, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("lenient: decode: %w", err)
	}

	touched := make([]string, 0, 8)
	rename := func(obj map[string]any, from, to string) {
		if v, ok := obj[from]; ok {
			if _, exists := obj[to]; !exists {
				obj[to] = v
			}
			delete(obj, from)
			touched = append(touched, from+"->"+to)
		}
	}

	rename(m, "vendor", "vendor_name")
	rename(m, "total_excl_tax", "total_amount_excl_tax")
	rename(m, "total_incl_tax", "total_amount_incl_tax")
	rename(m, "warnings", "validation_warnings")

	for _, k := range []string{"total_amount_excl_tax", "total_amount_incl_tax"} {
		v, ok := m[k]
		if !ok {
			continue
		}
		if n, ok := coerceInt(v); ok && n >= 0 {
			m[k] = n
			continue
		}
		delete(m, k)
		touched = append(touched, k)
	}
	for _, k := range []string{"vendor_name", "vendor_address", "estimate_date", "processing_notes"} {
		if v, ok := m[k]; ok {
			if _, isStr := v.(string); !isStr {
				delete(m, k)
				touched = append(touched, k)
			}
		}
	}

	rawItems, _ := m["items"].([]any)
	items := make([]any, 0, len(rawItems))
	for i, ri := range rawItems {
		it, ok := ri.(map[string]any)
		if !ok {
			touched = append(touched, fmt.Sprintf("items[%d]", i))
			continue
		}
		rename(it, "name", "item_name_raw")
		rename(it, "item_name", "item_name_raw")
		rename(it, "amount", "amount_excl_tax")
		rename(it, "price", "amount_excl_tax")
		rename(it, "qty", "quantity")

		if _, isStr := it["item_name_raw"].(string); !isStr {
			it["item_name_raw"] = ""
		}
		if n, ok := coerceInt(it["amount_excl_tax"]); ok {
			it["amount_excl_tax"] = n
		} else {
			it["amount_excl_tax"] = int64(0)
			touched = append(touched, fmt.Sprintf("items[%d].amount_excl_tax", i))
		}
		if q, ok := it["quantity"]; ok {
			if n, ok := coerceInt(q); ok && n > 0 {
				it["quantity"] = n
			} else {
				delete(it, "quantity")
			}
		}
		if ct, ok := it["cost_type"]; ok {
			s, _ := ct.(string)
			if parsed, ok := constants.ParseCostType(s); ok {
				it["cost_type"] = string(parsed)
			} else {
				delete(it, "cost_type")
				touched = append(touched, fmt.Sprintf("items[%d].cost_type", i))
			}
		}
		if c, ok := it["confidence"].(string); ok {
			c = strings.ToLower(strings.TrimSpace(c))
			switch c {
			case "high", "medium", "low":
				it["confidence"] = c
			default:
				delete(it, "confidence")
			}
		}
		items = append(items, it)
	}
	m["items"] = items

	if ws, ok := m["validation_warnings"].([]any); ok {
		out := make([]any, 0, len(ws))
		for _, w := range ws {
			if s, ok := w.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
		}
		m["validation_warnings"] = out
	} else if _, present := m["validation_warnings"]; present {
		delete(m, "validation_warnings")
	}

	b, err := json.Marshal(m)
	if err != nil {
		return nil, nil, err
	}
	return b, touched, nil
}

// ParseAmount reads an integer yen amount from strings like "¥3,800" or "3800円".
func ParseAmount(s string) (int64, bool) {
	s = reAmountRaw.ReplaceAllString(strings.TrimSpace(s), "")
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return int64(f), true
	}
	return 0, false
}

func coerceInt(v any) (int64, bool) {
	switch t := v.(type) {
	case float64:
		return int64(t), true
	case string:
		return ParseAmount(t)
	default:
		return 0, false
	}
}
