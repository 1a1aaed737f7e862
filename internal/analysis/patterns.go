package analysis

import (
	"sort"
	"strings"
	"time"

	"taskpulse/internal/domain"
)

// AnalyzePatterns tallies categories, creation hours in loc, and titles that
// appear more than once.
func AnalyzePatterns(tasks []domain.Task, loc *time.Location) domain.PatternSummary {
	if loc == nil {
		loc = time.UTC
	}
	res := domain.PatternSummary{
		CategoryCounts:  map[string]int{},
		PeakHours:       []domain.HourCount{},
		RecurringTitles: []string{},
	}

	var hours [24]int
	titleCount := map[string]int{}
	var titleOrder []string
	for _, t := range tasks {
		c := NormalizeCategory(t.Category)
		if c == "" {
			c = UncategorizedLabel
		}
		res.CategoryCounts[c]++
		if !t.CreatedAt.IsZero() {
			hours[t.CreatedAt.In(loc).Hour()]++
		}
		title := strings.ToLower(strings.TrimSpace(t.Title))
		if len(title) <= MinRecurringTitleLen {
			continue
		}
		if titleCount[title] == 0 {
			titleOrder = append(titleOrder, title)
		}
		titleCount[title]++
	}

	for h, n := range hours {
		if n > 0 {
			res.PeakHours = append(res.PeakHours, domain.HourCount{Hour: h, Count: n})
		}
	}
	// hours are appended ascending, so a stable sort keeps the earlier hour on ties
	sort.SliceStable(res.PeakHours, func(i, j int) bool { return res.PeakHours[i].Count > res.PeakHours[j].Count })
	if len(res.PeakHours) > PeakHourCount {
		res.PeakHours = res.PeakHours[:PeakHourCount]
	}

	for _, title := range titleOrder {
		if titleCount[title] > 1 {
			res.RecurringTitles = append(res.RecurringTitles, title)
		}
	}
	return res
}
