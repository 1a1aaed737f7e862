package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"taskpulse/internal/domain"
)

// PriorityContext carries everything a single score depends on besides the task.
type PriorityContext struct {
	Now          time.Time
	Persona      *domain.Persona
	UnlocksCount int
}

// PriorityOptions configures scoring over a collection.
type PriorityOptions struct {
	Now     time.Time
	Persona *domain.Persona
	// Unlocks holds precomputed domino counts by task id.
	Unlocks map[string]int
	// ComputeUnlocks runs the domino analyzer against the collection for
	// tasks missing from Unlocks.
	ComputeUnlocks bool
	DominoPool     int
}

// ScorePriority scores one task. Every contributing signal leaves a reason.
func ScorePriority(t domain.Task, pc PriorityContext) domain.PriorityResult {
	f := ExtractFeatures(t, pc.Now)
	var score float64
	reasons := make([]string, 0, 8)
	add := func(points float64, format string, args ...any) {
		score += points
		reasons = append(reasons, fmt.Sprintf("%s (%s)", fmt.Sprintf(format, args...), signed(points)))
	}

	switch {
	case f.Overdue:
		add(OverdueBoost, "reminder overdue")
	case f.DueWithin24h:
		add(DueSoonBoost, "reminder due within 24h")
	case f.HasReminder:
		add(ReminderBoost, "has a reminder")
	}
	if urgentCategories[f.Category] {
		add(UrgentCategoryBoost, "category %q", f.Category)
	}
	if p := pc.Persona; p != nil {
		if w := lookupWeight(p.PreferenceDomains, f.Category); w > 0 {
			add(w*PreferenceWeight, "matches preferred domain %q", f.Category)
		}
		if w := lookupWeight(p.AvoidanceProfile, f.Category); w > 0 {
			add(-w*AvoidancePenalty, "in avoided domain %q", f.Category)
		}
		if align := (1 - math.Abs(p.Ambition-f.Complexity)) * AmbitionWeight; align > 0 {
			add(align, "fits ambition level")
		}
		if p.Momentum > MomentumThreshold {
			add(p.Momentum*MomentumWeight, "riding momentum")
		}
	}
	if f.WordCount <= ManageableWords {
		add(ManageableBoost, "manageable title")
	} else {
		add(UnmanageableBoost, "long title")
	}
	if pc.UnlocksCount > 0 {
		add(math.Min(float64(pc.UnlocksCount)*UnlockWeight, UnlockCap), "unlocks %d other tasks", pc.UnlocksCount)
	}
	if f.AgeDays > StaleAgeDays {
		add(StaleBoost, "open for %d days", int(f.AgeDays))
	}
	if t.IsTiny {
		add(-TinyPenalty, "tiny task")
	}
	if f.Category == "work" && f.LocalHour >= WorkHourStart && f.LocalHour < WorkHourEnd {
		add(WorkHoursBoost, "work task during work hours")
	}
	if t.Completed {
		add(-CompletedPenalty, "already completed")
		score = math.Min(score, 0)
	}

	score = round2(score)
	return domain.PriorityResult{
		TaskID:  t.ID,
		Score:   score,
		Bucket:  BucketFor(score),
		Reasons: reasons,
	}
}

// BucketFor maps a score to its tier.
func BucketFor(score float64) domain.Bucket {
	switch {
	case score >= MustThreshold:
		return domain.BucketMust
	case score >= ShouldThreshold:
		return domain.BucketShould
	default:
		return domain.BucketCould
	}
}

// ComputePriorities scores every task and orders the results by score,
// highest first. Equal scores keep input order.
func ComputePriorities(tasks []domain.Task, opts PriorityOptions) []domain.PriorityResult {
	out := make([]domain.PriorityResult, 0, len(tasks))
	for _, t := range tasks {
		unlocks, ok := opts.Unlocks[t.ID]
		if !ok && opts.ComputeUnlocks && !t.Completed {
			unlocks = AnalyzeDomino(t, tasks, DominoOptions{PoolSize: opts.DominoPool}).UnlocksCount
		}
		out = append(out, ScorePriority(t, PriorityContext{
			Now:          opts.Now,
			Persona:      opts.Persona,
			UnlocksCount: unlocks,
		}))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// SelectFocus picks today's one task: the highest score that clears the
// focus gate, earliest on ties.
func SelectFocus(results []domain.PriorityResult) domain.FocusSelection {
	var best *domain.PriorityResult
	for i := range results {
		r := results[i]
		if r.Score < FocusThreshold {
			continue
		}
		if best == nil || r.Score > best.Score {
			best = &r
		}
	}
	if best == nil {
		return domain.FocusSelection{Reason: "No suitable task"}
	}
	return domain.FocusSelection{
		Selected: true,
		Task:     best,
		Reason:   fmt.Sprintf("highest priority (%s)", signed(best.Score)),
	}
}

func lookupWeight(m map[string]float64, category string) float64 {
	if category == "" || len(m) == 0 {
		return 0
	}
	if w, ok := m[category]; ok {
		return w
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.EqualFold(strings.TrimSpace(k), category) {
			return m[k]
		}
	}
	return 0
}

func signed(v float64) string {
	if v >= 0 {
		return fmt.Sprintf("+%g", round2(v))
	}
	return fmt.Sprintf("%g", round2(v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
