package analysis

import (
	"strings"

	"taskpulse/internal/domain"
)

// NeedsCategory reports whether t has no meaningful category yet.
func NeedsCategory(t domain.Task) bool {
	return placeholderCategories[NormalizeCategory(t.Category)]
}

// Categorize returns the first dictionary category matching title.
func Categorize(title string) (string, bool) {
	title = strings.ToLower(title)
	for _, rule := range categoryRules {
		if rule.Pattern.MatchString(title) {
			return rule.Category, true
		}
	}
	return "", false
}

// CategorizeBatch suggests categories for tasks that lack one. Tasks that
// already carry a category are skipped; the input is never modified.
func CategorizeBatch(tasks []domain.Task) domain.CategorizeResult {
	res := domain.CategorizeResult{Assignments: []domain.CategoryAssignment{}}
	for _, t := range tasks {
		if !NeedsCategory(t) {
			continue
		}
		a := domain.CategoryAssignment{TaskID: t.ID, Category: UncategorizedLabel}
		if c, ok := Categorize(t.Title); ok {
			a.Category = c
			a.Matched = true
			res.Categorized++
		} else {
			res.Unmatched++
		}
		res.Assignments = append(res.Assignments, a)
	}
	return res
}
