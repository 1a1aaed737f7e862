package analysis_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"taskpulse/internal/analysis"
	"taskpulse/internal/domain"
)

func at(hour int) time.Time {
	return time.Date(2024, 3, 1, hour, 15, 0, 0, time.UTC)
}

func TestAnalyzePatternsRecurringTitleReportedOnce(t *testing.T) {
	tasks := []domain.Task{
		{ID: "1", Title: "Email the landlord", CreatedAt: at(9)},
		{ID: "2", Title: "  email THE landlord ", CreatedAt: at(9)},
		{ID: "3", Title: "Email the landlord", CreatedAt: at(14)},
		{ID: "4", Title: "Gym", CreatedAt: at(14)},
		{ID: "5", Title: "gym", CreatedAt: at(20)},
	}
	got := analysis.AnalyzePatterns(tasks, time.UTC)
	assert.Equal(t, []string{"email the landlord"}, got.RecurringTitles)
}

func TestAnalyzePatternsCountsAndPeakHours(t *testing.T) {
	tasks := []domain.Task{
		{ID: "1", Title: "a", Category: "Work", CreatedAt: at(9)},
		{ID: "2", Title: "b", Category: "work", CreatedAt: at(9)},
		{ID: "3", Title: "c", CreatedAt: at(21)},
		{ID: "4", Title: "d", Category: "home", CreatedAt: at(7)},
		{ID: "5", Title: "e", Category: "home", CreatedAt: at(21)},
		{ID: "6", Title: "f", Category: "gym", CreatedAt: at(6)},
	}
	got := analysis.AnalyzePatterns(tasks, time.UTC)
	assert.Equal(t, map[string]int{"work": 2, "home": 2, "gym": 1, "uncategorized": 1}, got.CategoryCounts)
	assert.Equal(t, []domain.HourCount{{Hour: 9, Count: 2}, {Hour: 21, Count: 2}, {Hour: 6, Count: 1}}, got.PeakHours)
	assert.Empty(t, got.RecurringTitles)
}

func TestAnalyzePatternsEmpty(t *testing.T) {
	got := analysis.AnalyzePatterns(nil, nil)
	assert.NotNil(t, got.CategoryCounts)
	assert.NotNil(t, got.PeakHours)
	assert.NotNil(t, got.RecurringTitles)
	assert.Empty(t, got.PeakHours)
}
