package analysis_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskpulse/internal/analysis"
	"taskpulse/internal/domain"
)

func TestForecastLoadEmpty(t *testing.T) {
	got := analysis.ForecastLoad(nil, now)
	require.Len(t, got.Days, 14)
	for _, d := range got.Days {
		assert.Zero(t, d.ExpectedLoadScore)
		assert.NotNil(t, d.ClusterDensity)
		assert.Empty(t, d.ClusterDensity)
		assert.Empty(t, d.RecommendedFocus)
	}
	// equal scores fall back to date order
	assert.Equal(t, "2024-03-04", got.Days[0].Date)
	assert.Equal(t, "2024-03-17", got.Days[13].Date)
	assert.NotNil(t, got.Warnings)
}

func TestLoadScoreCap(t *testing.T) {
	assert.Equal(t, 100, analysis.LoadScore(20, 10, 10, 6))
	assert.Equal(t, 100, analysis.LoadScore(200, 100, 100, 60))
	assert.Equal(t, 0, analysis.LoadScore(0, 0, 0, 0))
	assert.Equal(t, 5+10+0+0, analysis.LoadScore(1, 1, 0, 3))
	assert.Equal(t, 40+30+20+5, analysis.LoadScore(8, 3, 4, 4))
}

func TestForecastLoadDeadlinesAndRecurrence(t *testing.T) {
	tomorrow := time.Date(2024, 3, 5, 15, 0, 0, 0, time.UTC)
	tasks := []domain.Task{
		{ID: "d1", Title: "Submit taxes", Category: "home", CreatedAt: now, ReminderTime: &tomorrow},
		{ID: "d2", Title: "Dentist", CreatedAt: now, ReminderTime: ptr(now.AddDate(0, 0, 20))},
		{ID: "done", Title: "Old", CreatedAt: now, ReminderTime: &tomorrow, Completed: true},
		{ID: "daily", Title: "Stretch", Category: "gym", CreatedAt: now, RecurrencePattern: domain.RecurrenceDaily,
			RecurrenceEndDate: ptr(time.Date(2024, 3, 6, 8, 0, 0, 0, time.UTC))},
		{ID: "weekly", Title: "Team sync", Category: "work", CreatedAt: now, RecurrencePattern: domain.RecurrenceWeekly,
			RecurrenceDay: ptr(int(time.Wednesday))},
		{ID: "monthly", Title: "Pay rent", Category: "home", CreatedAt: now, RecurrencePattern: domain.RecurrenceMonthly,
			RecurrenceDay: ptr(10)},
	}
	got := analysis.ForecastLoad(tasks, now)
	require.Len(t, got.Days, 14)
	assert.Empty(t, got.Warnings)

	day := func(date string) domain.LoadForecastEntry {
		e, ok := got.Day(date)
		require.True(t, ok, date)
		return e
	}

	mar5 := day("2024-03-05")
	assert.Equal(t, 2, mar5.TaskCount)
	assert.Equal(t, 1, mar5.DeadlineCount)
	assert.Equal(t, 1, mar5.RecurrenceCount)
	assert.Equal(t, map[string]int{"home": 1, "gym": 1}, mar5.ClusterDensity)
	assert.Equal(t, 10+10+5, mar5.ExpectedLoadScore)

	mar6 := day("2024-03-06")
	assert.Equal(t, 2, mar6.RecurrenceCount) // daily ends today plus weekly Wednesday
	assert.Zero(t, day("2024-03-07").RecurrenceCount)
	assert.Equal(t, 1, day("2024-03-13").RecurrenceCount)
	assert.Equal(t, map[string]int{"home": 1}, day("2024-03-10").ClusterDensity)

	// ordering is by score, highest first
	for i := 1; i < len(got.Days); i++ {
		assert.GreaterOrEqual(t, got.Days[i-1].ExpectedLoadScore, got.Days[i].ExpectedLoadScore)
	}
}

func TestForecastLoadStormRecommendsDensestCategory(t *testing.T) {
	due := time.Date(2024, 3, 8, 9, 0, 0, 0, time.UTC)
	var tasks []domain.Task
	for i, c := range []string{"work", "work", "work", "home", "home", "gym", "projects", ""} {
		tasks = append(tasks, domain.Task{
			ID: fmt.Sprintf("t%d", i), Title: "x", Category: c, CreatedAt: now, ReminderTime: &due,
		})
	}
	got := analysis.ForecastLoad(tasks, now)
	assert.Equal(t, "2024-03-08", got.Days[0].Date)
	// 8 tasks: 40 + 30 + 0 + (5 categories - 3) * 5
	assert.Equal(t, 80, got.Days[0].ExpectedLoadScore)
	assert.Equal(t, "work", got.Days[0].RecommendedFocus)
	assert.Equal(t, 1, got.Days[0].ClusterDensity["uncategorized"])
}

func TestForecastLoadWarnsOnUnknownRecurrence(t *testing.T) {
	tasks := []domain.Task{
		{ID: "q", Title: "Quarterly review", CreatedAt: now, RecurrencePattern: "quarterly"},
		{ID: "w", Title: "Bad weekday", CreatedAt: now, RecurrencePattern: domain.RecurrenceWeekly, RecurrenceDay: ptr(9)},
	}
	got := analysis.ForecastLoad(tasks, now)
	require.Len(t, got.Warnings, 2)
	assert.Equal(t, "q", got.Warnings[0].TaskID)
	assert.Equal(t, "quarterly", got.Warnings[0].Pattern)
	assert.Equal(t, "w", got.Warnings[1].TaskID)
	for _, d := range got.Days {
		assert.Zero(t, d.TaskCount)
	}
}
