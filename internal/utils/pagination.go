// Package utils provides small helpers shared by the transport and service
// layers. They carry no complaint semantics.
package utils

import (
	"strconv"
	"strings"
)

// AtoiDefault parses s as a base-10 int, or returns def when s is empty or
// not a number. Surrounding spaces are ignored and Arabic-Indic digits
// (as typed on Arabic keyboards) are read like ASCII ones.
//
//	utils.AtoiDefault("42", 0) // 42
//	utils.AtoiDefault("٤٢", 0) // 42
//	utils.AtoiDefault("x", 5)  // 5
func AtoiDefault(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(ASCIIDigits(s)); err == nil {
		return n
	}
	return def
}

// ASCIIDigits rewrites Arabic-Indic (U+0660..U+0669) and Extended
// Arabic-Indic (U+06F0..U+06F9) digits to 0-9. Other runes pass through.
func ASCIIDigits(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '٠' && r <= '٩':
			return '0' + (r - '٠')
		case r >= '۰' && r <= '۹':
			return '0' + (r - '۰')
		}
		return r
	}, s)
}

// Page bounds for list endpoints.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ClampPage parses raw page and page_size values and forces them into
// [1, ∞) and [1, MaxPageSize].
func ClampPage(rawPage, rawSize string) (page, pageSize int) {
	page = AtoiDefault(rawPage, DefaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = AtoiDefault(rawSize, DefaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// Offset is the row offset of page.
func Offset(page, pageSize int) int {
	if page < 1 {
		return 0
	}
	return (page - 1) * pageSize
}
