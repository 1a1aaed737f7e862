// Package analysis holds the task intelligence heuristics. Every function is
// pure: inputs are passed in, the clock is an explicit argument, and nothing
// here touches storage or the network.
package analysis

import (
	"math"
	"sort"
	"strings"
	"time"

	"taskpulse/internal/domain"
)

// Features are the per-task signals shared by the scorers.
type Features struct {
	AgeDays            float64
	WordCount          int
	TitleLength        int
	Category           string
	HasReminder        bool
	HoursUntilReminder float64
	Overdue            bool
	DueWithin24h       bool
	Keywords           []string
	Complexity         float64
	LocalHour          int
}

// ExtractFeatures derives Features from t as of now. Times are read in now's
// location.
func ExtractFeatures(t domain.Task, now time.Time) Features {
	f := Features{
		WordCount:   len(strings.Fields(t.Title)),
		TitleLength: len([]rune(strings.TrimSpace(t.Title))),
		Category:    NormalizeCategory(t.Category),
		Keywords:    NormalizeKeywords(t.Keywords),
		LocalHour:   now.Hour(),
	}
	if !t.CreatedAt.IsZero() {
		age := now.Sub(t.CreatedAt).Hours() / 24
		if age > 0 {
			f.AgeDays = age
		}
	}
	f.Complexity = math.Min(float64(f.TitleLength)/ComplexityTitleLength, 1)
	if t.ReminderTime != nil {
		f.HasReminder = true
		f.HoursUntilReminder = t.ReminderTime.Sub(now).Hours()
		f.Overdue = t.ReminderTime.Before(now)
		f.DueWithin24h = !f.Overdue && f.HoursUntilReminder <= DueSoonHours
	}
	return f
}

// NormalizeCategory lower-cases and trims a category.
func NormalizeCategory(c string) string {
	return strings.ToLower(strings.TrimSpace(c))
}

// NormalizeKeywords returns a sorted, de-duplicated, lower-cased keyword set.
func NormalizeKeywords(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, k := range in {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func words(s string) []string {
	return wordPattern.FindAllString(strings.ToLower(s), -1)
}
