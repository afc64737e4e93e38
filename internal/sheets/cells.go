package sheets

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// digitsAndDots drops currency symbols, thousands separators and units, and
// keeps the leading number when stray dots follow it ("1.2.3" reads as 1.2).
func digitsAndDots(s string) string {
	clean := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, s)
	if first := strings.IndexByte(clean, '.'); first >= 0 {
		if second := strings.IndexByte(clean[first+1:], '.'); second >= 0 {
			clean = clean[:first+1+second]
		}
	}
	if clean == "." {
		return ""
	}
	return clean
}

// ParseAmount reads a money cell such as "₹1,299.00". ok is false when
// nothing numeric is left.
func ParseAmount(s string) (amount decimal.Decimal, ok bool) {
	clean := digitsAndDots(s)
	if clean == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func FloatOr(s string, def float64) float64 {
	clean := digitsAndDots(s)
	if clean == "" {
		return def
	}
	f, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return def
	}
	return f
}

func IntOr(s string, def int) int {
	clean := digitsAndDots(s)
	if whole, _, found := strings.Cut(clean, "."); found {
		clean = whole
	}
	if clean == "" {
		return def
	}
	n, err := strconv.Atoi(clean)
	if err != nil {
		return def
	}
	return n
}

// SplitList splits a pipe-delimited cell, dropping empty parts.
func SplitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, "|") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Slug lowercases s and joins whitespace-separated words with "-".
func Slug(s string) string {
	return strings.Join(strings.FieldsFunc(strings.ToLower(s), unicode.IsSpace), "-")
}

// IsNo reports whether a yes/no cell says no. Anything else, blank included,
// counts as yes.
func IsNo(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "false", "no":
		return true
	}
	return false
}

func Or(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}
