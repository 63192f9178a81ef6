package store

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// lower folds s with Unicode-aware lower casing so "CÀ CHUA" and "cà chua"
// compare equal. A Caser is stateful, so each call gets its own.
func lower(s string) string {
	return cases.Lower(language.Und).String(s)
}

// MatchesQuery reports whether the lower-cased query is a substring of the
// product's lower-cased name or description. An empty query matches.
func MatchesQuery(p Product, query string) bool {
	q := lower(query)
	return strings.Contains(lower(p.Name), q) || strings.Contains(lower(p.Description), q)
}

func FilterByQuery(products []Product, query string) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if MatchesQuery(p, query) {
			out = append(out, p)
		}
	}
	return out
}
