package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const isoDate = "2006-01-02"

// eraBase is the western year of era year zero, keyed by lowercased era name.
var eraBase = map[string]int{
	"令和":     2018,
	"reiwa":  2018,
	"r":      2018,
	"平成":     1988,
	"heisei": 1988,
	"h":      1988,
	"昭和":     1925,
	"showa":  1925,
	"s":      1925,
}

var (
	reISO      = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})(?:[T ].*)?$`)
	reEraKanji = regexp.MustCompile(`(令和|平成|昭和|(?i:reiwa|heisei|showa))\s*(\d{1,2}|元)\s*年\s*(\d{1,2})\s*月\s*(\d{1,2})\s*日`)
	reEraAbbr  = regexp.MustCompile(`(?:^|[^A-Za-z])([RHS])\s*(\d{1,2})[./](\d{1,2})[./](\d{1,2})(?:$|\D)`)
	reYMDKanji = regexp.MustCompile(`(\d{4})\s*年\s*(\d{1,2})\s*月\s*(\d{1,2})\s*日`)
	reYMDSlash = regexp.MustCompile(`(\d{4})[/\-.](\d{1,2})[/\-.](\d{1,2})`)
)

// Date converts an estimate date to YYYY-MM-DD using today's date as the fallback.
func Date(raw string) (string, bool) {
	return DateOn(raw, time.Now())
}

// DateOn converts ISO, Reiwa, Heisei, Showa and western Japanese date forms
// to YYYY-MM-DD. Era names may be kanji, romanized or a one-letter
// abbreviation. When raw cannot be resolved it returns today's date and false;
// logging the fallback is left to the caller.
func DateOn(raw string, today time.Time) (string, bool) {
	s := strings.TrimSpace(Fold(raw))
	if s != "" {
		if out, ok := parseDate(s); ok {
			return out, true
		}
	}
	return today.Format(isoDate), false
}

func parseDate(s string) (string, bool) {
	if m := reISO.FindStringSubmatch(s); m != nil {
		return ymd(m[1], m[2], m[3])
	}
	if m := reEraKanji.FindStringSubmatch(s); m != nil {
		return eraYMD(m[1], m[2], m[3], m[4])
	}
	if m := reEraAbbr.FindStringSubmatch(s); m != nil {
		return eraYMD(m[1], m[2], m[3], m[4])
	}
	if m := reYMDKanji.FindStringSubmatch(s); m != nil {
		return ymd(m[1], m[2], m[3])
	}
	if m := reYMDSlash.FindStringSubmatch(s); m != nil {
		return ymd(m[1], m[2], m[3])
	}
	return "", false
}

func eraYMD(era, year, month, day string) (string, bool) {
	n := 1
	if year != "元" {
		v, err := strconv.Atoi(year)
		if err != nil || v < 1 {
			return "", false
		}
		n = v
	}
	base, ok := eraBase[strings.ToLower(era)]
	if !ok {
		return "", false
	}
	return ymd(strconv.Itoa(base+n), month, day)
}

func ymd(year, month, day string) (string, bool) {
	y, err1 := strconv.Atoi(year)
	m, err2 := strconv.Atoi(month)
	d, err3 := strconv.Atoi(day)
	if err1 != nil || err2 != nil || err3 != nil {
		return "", false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return "", false
	}
	return t.Format(isoDate), true
}
