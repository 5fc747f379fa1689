package domain

import (
	"slices"
	"strings"
)

// Categories returns the distinct category values found in quotes.
// Values are distinct by exact string and sorted case-insensitively;
// values that fold to the same string keep a byte-wise order.
func Categories(quotes []Quote) []string {
	seen := make(map[string]struct{}, len(quotes))
	out := make([]string, 0, len(quotes))

	for _, q := range quotes {
		if _, ok := seen[q.Category]; ok {
			continue
		}
		seen[q.Category] = struct{}{}
		out = append(out, q.Category)
	}

	slices.SortFunc(out, func(a, b string) int {
		if c := strings.Compare(strings.ToLower(a), strings.ToLower(b)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})

	return out
}

// CategoryOptions returns the selectable filter values: the AllCategories
// sentinel followed by Categories(quotes).
func CategoryOptions(quotes []Quote) []string {
	return append([]string{AllCategories}, Categories(quotes)...)
}

// FilterByCategory selects the quotes matching category.
// AllCategories selects everything; any other value matches case-insensitively.
func FilterByCategory(quotes []Quote, category string) []Quote {
	if category == AllCategories {
		return slices.Clone(quotes)
	}

	var out []Quote
	for _, q := range quotes {
		if strings.EqualFold(q.Category, category) {
			out = append(out, q)
		}
	}

	return out
}
