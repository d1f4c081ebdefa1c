package normalize

import (
	"regexp"
	"strings"

	"github.com/ict-ryuma/document-ocr/constants"
	"github.com/ict-ryuma/document-ocr/internal/entity"
)

// Rule maps a canonical category to the keywords that select it.
type Rule struct {
	Category string   `yaml:"category"`
	Keywords []string `yaml:"keywords"`
}

// DefaultRules is evaluated top to bottom; the first rule with a matching
// keyword wins, so specific rules must stay ahead of generic ones.
var DefaultRules = []Rule{
	{Category: string(constants.WiperBlade), Keywords: []string{"ワイパー", "wiper", "ブレード", "blade", "ワイパーブレード"}},
	{Category: string(constants.EngineOil), Keywords: []string{"エンジンオイル", "オイル", "oil", "エンジン油"}},
	{Category: string(constants.AirFilter), Keywords: []string{"エアフィルター", "エアクリーナー"}},
	{Category: string(constants.OilFilter), Keywords: []string{"オイルフィルター", "オイルエレメント"}},
	{Category: string(constants.BrakePad), Keywords: []string{"ブレーキパッド", "ブレーキ", "brake"}},
	{Category: string(constants.Tire), Keywords: []string{"タイヤ", "tire", "tyre"}},
	{Category: string(constants.Battery), Keywords: []string{"バッテリー", "battery", "蓄電池"}},
}

// DefaultLaborKeywords mark an item as labor.
var DefaultLaborKeywords = []string{
	"工賃", "labor", "labour", "installation", "service",
	"取付", "取り付け", "交換工賃", "作業", "手数料", "技術料",
}

var (
	reNonWord    = regexp.MustCompile(`[^\p{L}\p{M}\p{N}_\s]`)
	reWhitespace = regexp.MustCompile(`\s+`)
)

// Classifier assigns canonical names and cost types from ordered keyword tables.
// It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	rules []Rule
	labor []string
}

// NewClassifier copies rules and labor keywords, lower-casing keywords once.
// Nil arguments select the defaults.
func NewClassifier(rules []Rule, labor []string) *Classifier {
	if rules == nil {
		rules = DefaultRules
	}
	if labor == nil {
		labor = DefaultLaborKeywords
	}
	c := &Classifier{
		rules: make([]Rule, 0, len(rules)),
		labor: lowerAll(labor),
	}
	for _, r := range rules {
		c.rules = append(c.rules, Rule{Category: r.Category, Keywords: lowerAll(r.Keywords)})
	}
	return c
}

// Rules returns a copy of the rule table in evaluation order.
func (c *Classifier) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Canonicalize returns the first matching rule category for raw, or a slug of
// raw when no rule matches, or "unknown" when the slug is empty.
func (c *Classifier) Canonicalize(raw string) string {
	name := strings.ToLower(strings.TrimSpace(Fold(raw)))
	if name == "" {
		return string(constants.Unknown)
	}
	for _, r := range c.rules {
		for _, kw := range r.Keywords {
			if kw != "" && strings.Contains(name, kw) {
				return r.Category
			}
		}
	}
	slug := reNonWord.ReplaceAllString(name, "")
	slug = reWhitespace.ReplaceAllString(strings.TrimSpace(slug), "_")
	if slug == "" {
		return string(constants.Unknown)
	}
	return slug
}

// ClassifyCostType returns labor when raw contains a labor keyword, else parts.
func (c *Classifier) ClassifyCostType(raw string) constants.CostType {
	name := strings.ToLower(strings.TrimSpace(Fold(raw)))
	if name == "" {
		return constants.CostTypeParts
	}
	for _, kw := range c.labor {
		if kw != "" && strings.Contains(name, kw) {
			return constants.CostTypeLabor
		}
	}
	return constants.CostTypeParts
}

// Classify turns a raw item into a normalized one. A valid adapter-supplied
// cost type is kept; otherwise the keyword classifier decides.
func (c *Classifier) Classify(item entity.RawLineItem) entity.NormalizedLineItem {
	name := item.DisplayName()
	costType := item.CostTypeHint
	if !costType.Valid() {
		costType = c.ClassifyCostType(name)
	}
	if item.Quantity < 1 {
		item.Quantity = 1
	}
	return entity.NormalizedLineItem{
		RawLineItem:   item,
		CanonicalName: c.Canonicalize(name),
		CostType:      costType,
	}
}

// ClassifyAll classifies items in order.
func (c *Classifier) ClassifyAll(items []entity.RawLineItem) []entity.NormalizedLineItem {
	out := make([]entity.NormalizedLineItem, 0, len(items))
	for _, it := range items {
		out = append(out, c.Classify(it))
	}
	return out
}

var defaultClassifier = NewClassifier(nil, nil)

// Canonicalize uses the default rule table.
func Canonicalize(raw string) string { return defaultClassifier.Canonicalize(raw) }

// ClassifyCostType uses the default labor keywords.
func ClassifyCostType(raw string) constants.CostType { return defaultClassifier.ClassifyCostType(raw) }

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.ToLower(strings.TrimSpace(Fold(s))))
	}
	return out
}
