package analysis

import (
	"strings"
	"time"

	"taskpulse/internal/domain"
)

// DetectBurnout estimates burnout risk. Completion rate, task volume and
// journal sentiment look at the trailing week; overdue and inbox counts cover
// the whole open backlog.
func DetectBurnout(tasks []domain.Task, entries []domain.JournalEntry, now time.Time) domain.BurnoutAssessment {
	since := now.AddDate(0, 0, -BurnoutWindowDays)

	var recent, recentDone, overdue, backlog int
	for _, t := range tasks {
		if inWindow(t.CreatedAt, since, now) {
			recent++
			if t.Completed {
				recentDone++
			}
		}
		if t.Completed {
			continue
		}
		if t.ReminderTime != nil && t.ReminderTime.Before(now) {
			overdue++
		}
		if placeholderCategories[NormalizeCategory(t.Category)] {
			backlog++
		}
	}

	var recentEntries, negative int
	for _, e := range entries {
		if !inWindow(e.CreatedAt, since, now) {
			continue
		}
		recentEntries++
		if negativeWords.MatchString(strings.ToLower(e.Content)) {
			negative++
		}
	}

	res := domain.BurnoutAssessment{Factors: []string{}}
	fire := func(points int, label string) {
		res.Score += points
		res.Factors = append(res.Factors, label)
	}
	if recent > 0 && float64(recentDone)/float64(recent) < LowCompletionRate {
		fire(LowCompletionPoints, FactorLowCompletion)
	}
	if overdue > OverdueLimit {
		fire(OverduePoints, FactorManyOverdue)
	}
	if backlog > BacklogLimit {
		fire(BacklogPoints, FactorInboxBacklog)
	}
	if recentEntries > 0 && float64(negative)/float64(recentEntries) > NegativeJournalShare {
		fire(NegativeJournalPoints, FactorNegativeJournal)
	}
	if recent > HighLoadTasks && recentEntries < LowReflectionEntries {
		fire(HighLoadPoints, FactorHighLoad)
	}

	switch {
	case res.Score >= HighRiskScore:
		res.Risk = domain.RiskHigh
	case res.Score >= MediumRiskScore:
		res.Risk = domain.RiskMedium
	default:
		res.Risk = domain.RiskLow
	}
	return res
}

func inWindow(ts, since, now time.Time) bool {
	return !ts.Before(since) && !ts.After(now)
}
