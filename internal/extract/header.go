package extract

import (
	"regexp"
	"strings"

	"github.com/ict-ryuma/document-ocr/internal/normalize"
)

var (
	vendorFieldKeys  = []string{"会社名", "業者名", "店舗名", "Company", "Vendor"}
	dateFieldKeys    = []string{"見積日", "日付", "作成日", "Date"}
	addressFieldKeys = []string{"住所", "所在地", "Address"}
	corporateMarkers = []string{"株式会社", "有限会社", "合同会社", "(株)", "(有)"}

	reDateInText   = regexp.MustCompile(`(?:令和|平成)\s*(?:\d{1,2}|元)\s*年\s*\d{1,2}\s*月\s*\d{1,2}\s*日|\d{4}\s*年\s*\d{1,2}\s*月\s*\d{1,2}\s*日|\d{4}[/.-]\d{1,2}[/.-]\d{1,2}`)
	rePostalPrefix = regexp.MustCompile(`^〒\s*\d{3}[-\s]?\d{4}\s*`)
)

const (
	vendorScanLines = 10
	dateScanLines   = 20
)

type header struct {
	vendor, address, date string
}

// documentHeader reads vendor, address and date from form fields, then
// from the top lines of the text. The date is left raw.
func documentHeader(doc Document) header {
	fields := formFields(doc)
	h := header{
		vendor:  lookupField(fields, vendorFieldKeys),
		address: lookupField(fields, addressFieldKeys),
		date:    lookupField(fields, dateFieldKeys),
	}
	if h.date != "" {
		if m := reDateInText.FindString(normalize.Fold(h.date)); m != "" {
			h.date = m
		}
	}

	lines := strings.Split(doc.Text, "\n")
	for i, line := range lines {
		line = strings.TrimSpace(normalize.Fold(line))
		if line == "" {
			continue
		}
		if h.vendor == "" && i < vendorScanLines && containsAny(line, corporateMarkers) {
			h.vendor = line
		}
		if h.address == "" && rePostalPrefix.MatchString(line) {
			h.address = strings.TrimSpace(rePostalPrefix.ReplaceAllString(line, ""))
		}
		if h.date == "" && i < dateScanLines {
			h.date = reDateInText.FindString(line)
		}
	}
	return h
}

type field struct{ name, value string }

func formFields(doc Document) []field {
	var out []field
	for _, p := range doc.Pages {
		for _, ff := range p.FormFields {
			name := strings.TrimRight(doc.Resolve(ff.FieldName), ":： ")
			value := doc.Resolve(ff.FieldValue)
			if name != "" && value != "" {
				out = append(out, field{name: normalize.Fold(name), value: value})
			}
		}
	}
	return out
}

func lookupField(fields []field, keys []string) string {
	for _, k := range keys {
		for _, f := range fields {
			if strings.Contains(f.name, k) {
				return strings.TrimSpace(f.value)
			}
		}
	}
	return ""
}
