package catalog

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const AllCategories = "all"

// Browse is the grid filter state. Picking a category clears the search text
// and searching resets the category, so at most one of them is active.
type Browse struct {
	Category string `json:"category"`
	Query    string `json:"query"`
}

func NewBrowse() Browse {
	return Browse{Category: AllCategories}
}

func (b Browse) WithCategory(category string) Browse {
	category = strings.TrimSpace(category)
	if category == "" {
		category = AllCategories
	}
	return Browse{Category: category}
}

func (b Browse) WithQuery(query string) Browse {
	return Browse{Category: AllCategories, Query: query}
}

func (b Browse) Apply(products []Product) []Product {
	return filter(products, func(p Product) bool {
		if b.Query != "" && !matches(p, b.Query) {
			return false
		}
		return b.Category == "" || b.Category == AllCategories || p.Category == b.Category
	})
}

func matches(p Product, query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(p.Name), q) ||
		strings.Contains(strings.ToLower(p.Description), q) ||
		strings.Contains(strings.ToLower(p.Category), q)
}

type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// knownCategories is the fixed navigation order; they are listed even when
// empty.
var knownCategories = []Category{
	{ID: "dining-tables", Name: "Dining Tables"},
	{ID: "dining-chairs", Name: "Dining Chairs"},
	{ID: "beds", Name: "Beds"},
	{ID: "chest-drawers", Name: "Chest Drawers"},
	{ID: "coffee-tables", Name: "Coffee Tables"},
	{ID: "cabinets", Name: "Cabinets"},
	{ID: "bedside-tables", Name: "Bedside Tables"},
	{ID: "sofas", Name: "Sofas"},
	{ID: "decorations", Name: "Decorations"},
}

// countCategories puts "all" first, then the known categories, then any
// other category in order of first appearance.
func countCategories(products []Product) []Category {
	counts := make(map[string]int, len(knownCategories))
	var extra []string
	for _, p := range products {
		if _, seen := counts[p.Category]; !seen && !isKnown(p.Category) {
			extra = append(extra, p.Category)
		}
		counts[p.Category]++
	}

	out := make([]Category, 0, 1+len(knownCategories)+len(extra))
	out = append(out, Category{ID: AllCategories, Name: "All", Count: len(products)})
	for _, c := range knownCategories {
		c.Count = counts[c.ID]
		out = append(out, c)
	}
	for _, id := range extra {
		out = append(out, Category{ID: id, Name: displayName(id), Count: counts[id]})
	}
	return out
}

func isKnown(id string) bool {
	for _, c := range knownCategories {
		if c.ID == id {
			return true
		}
	}
	return false
}

// displayName turns "dining-tables" into "Dining Tables". A Caser keeps
// state, so each call gets its own.
func displayName(slug string) string {
	return cases.Title(language.Und).String(strings.ReplaceAll(slug, "-", " "))
}
