package categories

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Category groups products for browsing and reporting.
type Category struct {
	ID        int64     `json:"id"`
	Name      string    `json:"category_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var titleCaser = cases.Title(language.English)

// NormalizeName trims and title-cases a category name so "led bulbs" and
// "LED BULBS " collapse to one row.
func NormalizeName(name string) string {
	return titleCaser.String(strings.ToLower(strings.TrimSpace(name)))
}
