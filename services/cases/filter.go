package cases

import (
	"strings"

	"courtwise/models"
)

// Filter returns the cases matching every set field of f, in input order.
// The query matches case-insensitively against title, citation, court,
// summary, judges and tags; every whitespace separated term must match.
func Filter(all []models.Case, f models.CaseFilter) []models.Case {
	terms := strings.Fields(strings.ToLower(f.Query))
	court := strings.ToLower(strings.TrimSpace(f.Court))
	tag := strings.ToLower(strings.TrimSpace(f.Tag))

	out := make([]models.Case, 0, len(all))
	for _, c := range all {
		if court != "" && !strings.Contains(strings.ToLower(c.Court), court) {
			continue
		}
		if f.Year != 0 && c.Year != f.Year {
			continue
		}
		if tag != "" && !hasTag(c.Tags, tag) {
			continue
		}
		if len(terms) > 0 && !matchesAll(searchText(c), terms) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func searchText(c models.Case) string {
	parts := []string{c.Title, c.Citation, c.Court, c.Summary}
	parts = append(parts, c.Judges...)
	parts = append(parts, c.Tags...)
	return strings.ToLower(strings.Join(parts, " "))
}

func matchesAll(text string, terms []string) bool {
	for _, t := range terms {
		if !strings.Contains(text, t) {
			return false
		}
	}
	return true
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if strings.ToLower(t) == want {
			return true
		}
	}
	return false
}
