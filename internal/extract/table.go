package extract

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ict-ryuma/document-ocr/internal/entity"
	"github.com/ict-ryuma/document-ocr/internal/normalize"
)

const maxLineAmount = 1_000_000

var (
	rePriceCell  = regexp.MustCompile(`^[¥￥]?\s*([0-9][0-9,]*)\s*円?$`)
	reQtyCell    = regexp.MustCompile(`^(?:[x×]\s*(\d+)\s*[個本枚]?|(\d+)\s*[個本枚])$`)
	reNumberOnly = regexp.MustCompile(`^[\d,¥￥\s]+$`)
)

// tableRows resolves every body row of every table into cell strings.
func tableRows(doc Document) [][]string {
	var rows [][]string
	for _, page := range doc.Pages {
		for _, table := range page.Tables {
			for _, row := range table.BodyRows {
				cells := make([]string, 0, len(row.Cells))
				for _, cell := range row.Cells {
					cells = append(cells, doc.Resolve(cell.Layout))
				}
				rows = append(rows, cells)
			}
		}
	}
	return rows
}

func parseTables(doc Document) []entity.RawLineItem {
	var items []entity.RawLineItem
	for _, row := range tableRows(doc) {
		if it, ok := parseTableRow(row); ok {
			items = append(items, it)
		}
	}
	return items
}

// parseTableRow reads one row: the name is the first non-numeric cell longer
// than two characters, the amount is the last price cell under 1,000,000.
func parseTableRow(cells []string) (entity.RawLineItem, bool) {
	if len(cells) < 2 {
		return entity.RawLineItem{}, false
	}

	var (
		name   string
		prices []int64
		qty    int
	)
	for _, c := range cells {
		c = strings.TrimSpace(normalize.Fold(c))
		if c == "" {
			continue
		}
		if m := reQtyCell.FindStringSubmatch(c); m != nil {
			digits := m[1]
			if digits == "" {
				digits = m[2]
			}
			if n, err := strconv.Atoi(digits); err == nil && n > 0 {
				qty = n
			}
			continue
		}
		if m := rePriceCell.FindStringSubmatch(c); m != nil {
			if v, err := strconv.ParseInt(strings.ReplaceAll(m[1], ",", ""), 10, 64); err == nil {
				prices = append(prices, v)
			}
			continue
		}
		if name == "" && utf8.RuneCountInString(c) > 2 && !reNumberOnly.MatchString(c) {
			name = c
		}
	}

	amountIdx := -1
	for i := len(prices) - 1; i >= 0; i-- {
		if prices[i] > 0 && prices[i] < maxLineAmount {
			amountIdx = i
			break
		}
	}
	if name == "" || amountIdx < 0 {
		return entity.RawLineItem{}, false
	}

	// 品名 | 数量 | 単価 | 金額: an unmarked leading count.
	if qty == 0 && amountIdx >= 2 && prices[0] >= 1 && prices[0] < 1000 {
		qty = int(prices[0])
	}
	return entity.RawLineItem{
		RawName:       name,
		AmountExclTax: prices[amountIdx],
		Quantity:      qty,
	}, true
}
