package extract

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ict-ryuma/document-ocr/internal/entity"
	"github.com/ict-ryuma/document-ocr/internal/normalize"
)

// FallbackItemName is used when only a lump-sum amount could be found.
const FallbackItemName = "見積明細一式"

const (
	minTextAmount = 100
	maxTextAmount = 999_999
)

var (
	reCommaSpace = regexp.MustCompile(`(\d),\s+(\d)`)
	rePhone      = regexp.MustCompile(`\d{2,4}[-\s]\d{2,4}[-\s]\d{4}`)
	rePostal     = regexp.MustCompile(`〒\s*\d{3}[-\s]\d{4}`)
	reURLEmail   = regexp.MustCompile(`(?i)(https?://|www\.|@[\w.-]+\.(com|jp|net|org))`)
	reNameTail   = regexp.MustCompile(`[+\-\s:：]+$`)

	pricePatterns = []struct {
		re   *regexp.Regexp
		bare bool // must not touch a digit or hyphen (ids, phone numbers)
	}{
		{re: regexp.MustCompile(`[¥￥$]\s*([0-9,]+)`)},
		{re: regexp.MustCompile(`([0-9,]+)\s*円`)},
		{re: regexp.MustCompile(`([0-9]{1,3}(?:,[0-9]{3})+)`), bare: true},
		{re: regexp.MustCompile(`([0-9]{4,})`), bare: true},
	}

	textSkipKeywords = []string{
		"合計", "小計", "総額", "Total", "Subtotal", "Sum",
		"消費税", "税込", "税抜", "課税", "Tax", "VAT",
		"TEL", "Tel", "FAX", "Fax", "Phone", "E-mail", "Email",
		"No.", "番号",
		"品名", "金額", "単価", "Item", "Amount", "Price", "Qty", "Quantity",
	}
)

type priceMatch struct {
	start, end int // full match span in the line
	amount     int64
}

// ParseTextItems scrapes line items from plain OCR text. Header, contact and
// total lines are skipped; a line that is the sum of the others is dropped.
// When nothing survives, the largest amount seen becomes one lump-sum item.
func ParseTextItems(text string) []entity.RawLineItem {
	var (
		items   []entity.RawLineItem
		largest int64
	)

	for _, line := range strings.Split(text, "\n") {
		cleaned := strings.TrimSpace(reCommaSpace.ReplaceAllString(normalize.Fold(line), "$1,$2"))
		if utf8.RuneCountInString(cleaned) < 3 {
			continue
		}
		if rePhone.MatchString(cleaned) || rePostal.MatchString(cleaned) || reURLEmail.MatchString(cleaned) || reDateInText.MatchString(cleaned) {
			continue
		}

		matches := findPrices(cleaned)
		for _, m := range matches {
			if m.amount <= maxTextAmount && m.amount > largest {
				largest = m.amount
			}
		}
		if containsAny(cleaned, textSkipKeywords) {
			continue
		}

		prevEnd := 0
		for _, m := range matches {
			name := strings.TrimSpace(cleaned[prevEnd:m.start])
			prevEnd = m.end
			name = strings.TrimSpace(reNameTail.ReplaceAllString(name, ""))
			if m.amount < minTextAmount || m.amount > maxTextAmount {
				continue
			}
			if utf8.RuneCountInString(name) < 2 {
				continue
			}
			// Quantity stays 0 when the line has no count so completion can infer it.
			qty, _ := normalize.FindQuantity(cleaned)
			items = append(items, entity.RawLineItem{
				RawName:       name,
				AmountExclTax: m.amount,
				Quantity:      qty,
			})
		}
	}

	items = dropTotalLines(items)
	items = mergeDuplicates(items)

	if len(items) == 0 && largest >= minTextAmount {
		items = []entity.RawLineItem{{RawName: FallbackItemName, AmountExclTax: largest, Quantity: 1}}
	}
	return items
}

// findPrices returns non-overlapping price matches ordered by position.
func findPrices(line string) []priceMatch {
	var all []priceMatch
	for _, p := range pricePatterns {
		for _, idx := range p.re.FindAllStringSubmatchIndex(line, -1) {
			start, end := idx[0], idx[1]
			if p.bare && (touchesIDChar(line, start-1) || touchesIDChar(line, end)) {
				continue
			}
			digits := strings.ReplaceAll(line[idx[2]:idx[3]], ",", "")
			v, err := strconv.ParseInt(digits, 10, 64)
			if err != nil {
				continue
			}
			all = append(all, priceMatch{start: start, end: end, amount: v})
		}
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].start != all[j].start {
			return all[i].start < all[j].start
		}
		return all[i].end > all[j].end
	})

	out := all[:0]
	lastEnd := -1
	for _, m := range all {
		if m.start < lastEnd {
			continue
		}
		out = append(out, m)
		lastEnd = m.end
	}
	return out
}

func touchesIDChar(line string, i int) bool {
	if i < 0 || i >= len(line) {
		return false
	}
	c := line[i]
	return c == '-' || (c >= '0' && c <= '9')
}

// dropTotalLines removes items whose amount is within 5% of the sum of the
// rest. It only applies to three or more items.
func dropTotalLines(items []entity.RawLineItem) []entity.RawLineItem {
	if len(items) < 3 {
		return items
	}
	var sum int64
	for _, it := range items {
		sum += it.AmountExclTax
	}
	kept := make([]entity.RawLineItem, 0, len(items))
	for _, it := range items {
		others := sum - it.AmountExclTax
		diff := it.AmountExclTax - others
		if diff < 0 {
			diff = -diff
		}
		if diff*100 <= others*5 {
			continue
		}
		kept = append(kept, it)
	}
	return kept
}

// mergeDuplicates folds repeated (name, amount) rows by summing quantities.
func mergeDuplicates(items []entity.RawLineItem) []entity.RawLineItem {
	type key struct {
		name   string
		amount int64
	}
	idx := make(map[key]int, len(items))
	out := make([]entity.RawLineItem, 0, len(items))
	for _, it := range items {
		k := key{it.RawName, it.AmountExclTax}
		if i, ok := idx[k]; ok {
			out[i].Quantity = max(out[i].Quantity, 1) + max(it.Quantity, 1)
			continue
		}
		idx[k] = len(out)
		out = append(out, it)
	}
	return out
}

func containsAny(s string, kws []string) bool {
	for _, kw := range kws {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
