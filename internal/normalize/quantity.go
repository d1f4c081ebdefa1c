package normalize

import (
	"regexp"
	"strconv"
)

var quantityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)[x×](\d+)`),
	regexp.MustCompile(`(\d+)[個本枚台式]`),
	regexp.MustCompile(`数量[:\s]*(\d+)`),
}

// FindQuantity reads a unit count such as "x2", "3本" or "数量:4" from text.
// It reports false when the text carries no explicit count.
func FindQuantity(text string) (int, bool) {
	if text == "" {
		return 0, false
	}
	text = Fold(text)
	for _, re := range quantityPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
			return n, true
		}
	}
	return 0, false
}

// ExtractQuantity is FindQuantity defaulting to 1.
func ExtractQuantity(text string) int {
	if n, ok := FindQuantity(text); ok {
		return n
	}
	return 1
}
