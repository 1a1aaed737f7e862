package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Recurrence is the repeat rule of a task. Unknown values are preserved so
// the forecaster can report them.
type Recurrence string

const (
	RecurrenceNone    Recurrence = "none"
	RecurrenceDaily   Recurrence = "daily"
	RecurrenceWeekly  Recurrence = "weekly"
	RecurrenceMonthly Recurrence = "monthly"
)

// Known reports whether r is one of the supported patterns (empty counts as none).
func (r Recurrence) Known() bool {
	switch r {
	case "", RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		return true
	}
	return false
}

// Active reports whether r asks for repeated occurrences.
func (r Recurrence) Active() bool {
	return r != "" && r != RecurrenceNone
}

type Task struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	Category          string     `json:"category,omitempty"`
	CreatedAt         time.Time  `json:"created_at" format:"date-time"`
	Completed         bool       `json:"completed"`
	CompletedAt       *time.Time `json:"completed_at,omitempty" format:"date-time"`
	ReminderTime      *time.Time `json:"reminder_time,omitempty" format:"date-time"`
	RecurrencePattern Recurrence `json:"recurrence_pattern,omitempty"`
	RecurrenceDay     *int       `json:"recurrence_day,omitempty"`
	RecurrenceEndDate *time.Time `json:"recurrence_end_date,omitempty" format:"date-time"`
	IsTiny            bool       `json:"is_tiny"`
	Keywords          []string   `json:"keywords,omitempty"`
	HasPersonName     bool       `json:"has_person_name"`
}

// Validate checks the fields every analyzer relies on.
func (t Task) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.New("task id is required")
	}
	if t.CreatedAt.IsZero() {
		return fmt.Errorf("task %s: created_at is required", t.ID)
	}
	if t.RecurrenceDay != nil && (*t.RecurrenceDay < 0 || *t.RecurrenceDay > 31) {
		return fmt.Errorf("task %s: recurrence_day %d out of range", t.ID, *t.RecurrenceDay)
	}
	return nil
}

type JournalEntry struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at" format:"date-time"`
	Mood      string    `json:"mood,omitempty"`
}

func (j JournalEntry) Validate() error {
	if strings.TrimSpace(j.ID) == "" {
		return errors.New("journal entry id is required")
	}
	if j.CreatedAt.IsZero() {
		return fmt.Errorf("journal entry %s: created_at is required", j.ID)
	}
	return nil
}

// Persona is an immutable per-request snapshot of the user's preferences.
type Persona struct {
	PreferenceDomains map[string]float64 `json:"preference_domains,omitempty"`
	AvoidanceProfile  map[string]float64 `json:"avoidance_profile,omitempty"`
	Ambition          float64            `json:"ambition"`
	Momentum          float64            `json:"momentum"`
}

func (p Persona) Validate() error {
	if err := unitRange("ambition", p.Ambition); err != nil {
		return err
	}
	if err := unitRange("momentum", p.Momentum); err != nil {
		return err
	}
	for k, w := range p.PreferenceDomains {
		if err := unitRange("preference_domains."+k, w); err != nil {
			return err
		}
	}
	for k, w := range p.AvoidanceProfile {
		if err := unitRange("avoidance_profile."+k, w); err != nil {
			return err
		}
	}
	return nil
}

func unitRange(name string, v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("persona %s must be within [0,1], got %g", name, v)
	}
	return nil
}

type Bucket string

const (
	BucketMust   Bucket = "must"
	BucketShould Bucket = "should"
	BucketCould  Bucket = "could"
)

type PriorityResult struct {
	TaskID  string   `json:"task_id"`
	Score   float64  `json:"score"`
	Bucket  Bucket   `json:"bucket" enum:"must,should,could"`
	Reasons []string `json:"reasons"`
}

// FocusSelection is the outcome of picking today's one task.
type FocusSelection struct {
	Selected bool            `json:"selected"`
	Task     *PriorityResult `json:"task,omitempty"`
	Reason   string          `json:"reason"`
}

type Relationship string

const (
	RelBlocker      Relationship = "blocker"
	RelPrerequisite Relationship = "prerequisite"
	RelRelated      Relationship = "related"
	RelCluster      Relationship = "cluster"
)

// Rank orders relationships for presentation, strongest first.
func (r Relationship) Rank() int {
	switch r {
	case RelBlocker:
		return 0
	case RelPrerequisite:
		return 1
	case RelRelated:
		return 2
	case RelCluster:
		return 3
	}
	return 4
}

type UnlockedTask struct {
	TaskID       string       `json:"task_id"`
	Relationship Relationship `json:"relationship" enum:"blocker,prerequisite,related,cluster"`
	Confidence   float64      `json:"confidence"`
	Reason       string       `json:"reason,omitempty"`
}

type DominoResult struct {
	FocusTaskID   string         `json:"focus_task_id"`
	UnlockedTasks []UnlockedTask `json:"unlocked_tasks"`
	Reasoning     []string       `json:"reasoning"`
	UnlocksCount  int            `json:"unlocks_count"`
}

type LoadForecastEntry struct {
	Date              string         `json:"date"`
	ExpectedLoadScore int            `json:"expected_load_score"`
	TaskCount         int            `json:"task_count"`
	DeadlineCount     int            `json:"deadline_count"`
	RecurrenceCount   int            `json:"recurrence_count"`
	ClusterDensity    map[string]int `json:"cluster_density"`
	RecommendedFocus  string         `json:"recommended_focus,omitempty"`
}

type ForecastWarning struct {
	TaskID  string `json:"task_id"`
	Pattern string `json:"pattern"`
	Message string `json:"message"`
}

// LoadForecast holds the 14-day window ordered by score, highest first.
type LoadForecast struct {
	Days     []LoadForecastEntry `json:"days"`
	Warnings []ForecastWarning   `json:"warnings"`
}

// Day returns the entry for date (YYYY-MM-DD).
func (f LoadForecast) Day(date string) (LoadForecastEntry, bool) {
	for _, d := range f.Days {
		if d.Date == date {
			return d, true
		}
	}
	return LoadForecastEntry{}, false
}

type Risk string

const (
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

type BurnoutAssessment struct {
	Risk    Risk     `json:"risk" enum:"low,medium,high"`
	Score   int      `json:"score"`
	Factors []string `json:"factors"`
}

type HourCount struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

type PatternSummary struct {
	CategoryCounts  map[string]int `json:"category_counts"`
	PeakHours       []HourCount    `json:"peak_hours"`
	RecurringTitles []string       `json:"recurring_titles"`
}

type Sentiment struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`
	Neutral  int `json:"neutral"`
}

type JournalInsight struct {
	Sentiment  Sentiment      `json:"sentiment"`
	Themes     []string       `json:"themes"`
	MoodCounts map[string]int `json:"mood_counts"`
	Message    string         `json:"message,omitempty"`
}

type CategoryAssignment struct {
	TaskID   string `json:"task_id"`
	Category string `json:"category"`
	Matched  bool   `json:"matched"`
}

type CategorizeResult struct {
	Assignments []CategoryAssignment `json:"assignments"`
	Categorized int                  `json:"categorized"`
	Unmatched   int                  `json:"unmatched"`
}

// AnalysisRun is a derived result the caller chose to persist.
type AnalysisRun struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	CreatedAt  string `json:"created_at" format:"date-time"`
	ResultJSON string `json:"result_json"`
}
