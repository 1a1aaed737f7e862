package analysis

import (
	"fmt"
	"sort"
	"time"

	"taskpulse/internal/domain"
)

const dateLayout = "2006-01-02"

// ForecastLoad projects per-day load over the 14 days starting today in now's
// location. Completed tasks are ignored.
func ForecastLoad(tasks []domain.Task, now time.Time) domain.LoadForecast {
	loc := now.Location()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	days := make([]time.Time, ForecastDays)
	byDate := make(map[string]*domain.LoadForecastEntry, ForecastDays)
	entries := make([]*domain.LoadForecastEntry, ForecastDays)
	for i := range days {
		days[i] = today.AddDate(0, 0, i)
		e := &domain.LoadForecastEntry{
			Date:           days[i].Format(dateLayout),
			ClusterDensity: map[string]int{},
		}
		entries[i] = e
		byDate[e.Date] = e
	}

	warnings := []domain.ForecastWarning{}
	for _, t := range tasks {
		if t.Completed {
			continue
		}
		category := NormalizeCategory(t.Category)
		if category == "" {
			category = UncategorizedLabel
		}
		if t.ReminderTime != nil {
			if e, ok := byDate[t.ReminderTime.In(loc).Format(dateLayout)]; ok {
				e.TaskCount++
				e.DeadlineCount++
				e.ClusterDensity[category]++
			}
		}
		if !t.RecurrencePattern.Active() {
			continue
		}
		match, warn := occurrenceRule(t, loc)
		if warn != "" {
			warnings = append(warnings, domain.ForecastWarning{
				TaskID:  t.ID,
				Pattern: string(t.RecurrencePattern),
				Message: warn,
			})
			continue
		}
		for i, d := range days {
			if t.RecurrenceEndDate != nil && d.After(endOfDay(t.RecurrenceEndDate.In(loc))) {
				break
			}
			if !match(d) {
				continue
			}
			entries[i].TaskCount++
			entries[i].RecurrenceCount++
			entries[i].ClusterDensity[category]++
		}
	}

	out := domain.LoadForecast{
		Days:     make([]domain.LoadForecastEntry, 0, ForecastDays),
		Warnings: warnings,
	}
	for _, e := range entries {
		e.ExpectedLoadScore = LoadScore(e.TaskCount, e.DeadlineCount, e.RecurrenceCount, len(e.ClusterDensity))
		if e.ExpectedLoadScore >= StormThreshold {
			e.RecommendedFocus = densestCategory(e.ClusterDensity)
		}
		out.Days = append(out.Days, *e)
	}
	sort.SliceStable(out.Days, func(i, j int) bool {
		if out.Days[i].ExpectedLoadScore != out.Days[j].ExpectedLoadScore {
			return out.Days[i].ExpectedLoadScore > out.Days[j].ExpectedLoadScore
		}
		return out.Days[i].Date < out.Days[j].Date
	})
	return out
}

// LoadScore combines the per-day counters. Each term is capped, then the sum.
func LoadScore(taskCount, deadlineCount, recurrenceCount, uniqueCategories int) int {
	score := min(taskCount*TaskCountWeight, TaskCountCap) +
		min(deadlineCount*DeadlineWeight, DeadlineCap) +
		min(recurrenceCount*RecurrenceWeight, RecurrenceCap) +
		min(max(uniqueCategories-ClusterFreeCategories, 0)*ClusterWeight, ClusterCap)
	return min(score, LoadCap)
}

// occurrenceRule returns the day matcher for t's recurrence, or a warning
// when the pattern cannot be scheduled.
func occurrenceRule(t domain.Task, loc *time.Location) (func(time.Time) bool, string) {
	anchor := t.CreatedAt
	if t.ReminderTime != nil {
		anchor = *t.ReminderTime
	}
	anchor = anchor.In(loc)

	switch t.RecurrencePattern {
	case domain.RecurrenceDaily:
		return func(time.Time) bool { return true }, ""
	case domain.RecurrenceWeekly:
		weekday := anchor.Weekday()
		if t.RecurrenceDay != nil {
			if *t.RecurrenceDay > 6 {
				return nil, fmt.Sprintf("weekly recurrence_day %d is not a weekday (0-6)", *t.RecurrenceDay)
			}
			weekday = time.Weekday(*t.RecurrenceDay)
		}
		return func(d time.Time) bool { return d.Weekday() == weekday }, ""
	case domain.RecurrenceMonthly:
		day := anchor.Day()
		if t.RecurrenceDay != nil {
			if *t.RecurrenceDay < 1 {
				return nil, fmt.Sprintf("monthly recurrence_day %d is not a day of month (1-31)", *t.RecurrenceDay)
			}
			day = *t.RecurrenceDay
		}
		return func(d time.Time) bool { return d.Day() == day }, ""
	}
	return nil, fmt.Sprintf("unrecognized recurrence pattern %q; task not scheduled", t.RecurrencePattern)
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}

// densestCategory returns the category with the highest count, alphabetical
// on ties.
func densestCategory(density map[string]int) string {
	best, bestN := "", -1
	for c, n := range density {
		if n > bestN || (n == bestN && c < best) {
			best, bestN = c, n
		}
	}
	return best
}
