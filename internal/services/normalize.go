package services

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"github.com/shopspring/decimal"
)

// normalizeValue lowercases, drops punctuation and symbols, and collapses whitespace,
// so "ACME INC." and "Acme Inc" compare equal. A '.' between two digits is kept so
// "$1.5M" and "$15M" stay distinct; ',' between digits is a thousands separator.
func normalizeValue(value string) string {
	runes := []rune(strings.ToLower(value))
	var b strings.Builder
	b.Grow(len(value))
	for i, r := range runes {
		if r == '.' && i > 0 && i+1 < len(runes) && unicode.IsDigit(runes[i-1]) && unicode.IsDigit(runes[i+1]) {
			b.WriteRune(r)
			continue
		}
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// similarity is 1 - levenshtein/maxLen over normalized values, in [0,1].
func similarity(a, b string) float64 {
	a, b = normalizeValue(a), normalizeValue(b)
	if a == b {
		return 1
	}
	maxLen := len([]rune(a))
	if n := len([]rune(b)); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(maxLen)
}

var amountRe = regexp.MustCompile(`(\()?(-)?\$?\s?(\d[\d,]*(?:\.\d+)?)\s?([kKmM])?\b(\))?`)

// parseAmount reads the first numeric token of s. "$1.2M", "(500)" and "250k" are accepted.
func parseAmount(s string) (decimal.Decimal, bool) {
	m := amountRe.FindStringSubmatch(s)
	if m == nil {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(m[3], ",", ""))
	if err != nil {
		return decimal.Zero, false
	}
	switch strings.ToLower(m[4]) {
	case "k":
		d = d.Mul(decimal.NewFromInt(1000))
	case "m":
		d = d.Mul(decimal.NewFromInt(1000000))
	}
	if m[2] == "-" || (m[1] == "(" && m[5] == ")") {
		d = d.Neg()
	}
	return d, true
}

func parseAmountFloat(s string) (float64, bool) {
	d, ok := parseAmount(s)
	if !ok {
		return 0, false
	}
	return d.InexactFloat64(), true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[:limit]
}
