package analysis

import (
	"fmt"
	"sort"
	"strings"

	"taskpulse/internal/domain"
)

type DominoOptions struct {
	// PoolSize bounds how many candidates are examined. Zero means
	// DefaultDominoPool.
	PoolSize int
}

// AnalyzeDomino classifies how finishing focus affects each candidate.
// Relationships are directional: a blocker or prerequisite means focus must
// be done before the candidate.
func AnalyzeDomino(focus domain.Task, candidates []domain.Task, opts DominoOptions) domain.DominoResult {
	res := domain.DominoResult{
		FocusTaskID:   focus.ID,
		UnlockedTasks: []domain.UnlockedTask{},
		Reasoning:     []string{},
	}
	pool := candidatePool(focus, candidates, opts.PoolSize)
	if len(pool) == 0 {
		res.Reasoning = append(res.Reasoning, "No other open tasks")
		return res
	}

	fp := newTitleProfile(focus)
	seen := make(map[string]bool, len(pool))
	for _, c := range pool {
		if seen[c.ID] {
			continue
		}
		u, ok := classify(fp, newTitleProfile(c))
		if !ok {
			continue
		}
		seen[c.ID] = true
		res.UnlockedTasks = append(res.UnlockedTasks, u)
	}
	sort.SliceStable(res.UnlockedTasks, func(i, j int) bool {
		return res.UnlockedTasks[i].Relationship.Rank() < res.UnlockedTasks[j].Relationship.Rank()
	})

	for _, u := range res.UnlockedTasks {
		if u.Relationship == domain.RelBlocker || u.Relationship == domain.RelPrerequisite {
			res.UnlocksCount++
		}
		res.Reasoning = append(res.Reasoning, fmt.Sprintf("%s: %s", u.TaskID, u.Reason))
	}
	if len(res.UnlockedTasks) == 0 {
		res.Reasoning = append(res.Reasoning, "No dependent tasks found")
	}
	return res
}

// candidatePool returns the most recent open tasks other than focus.
func candidatePool(focus domain.Task, candidates []domain.Task, size int) []domain.Task {
	if size <= 0 {
		size = DefaultDominoPool
	}
	pool := make([]domain.Task, 0, len(candidates))
	for _, c := range candidates {
		if c.Completed || c.ID == focus.ID {
			continue
		}
		pool = append(pool, c)
	}
	sort.SliceStable(pool, func(i, j int) bool { return pool[i].CreatedAt.After(pool[j].CreatedAt) })
	if len(pool) > size {
		pool = pool[:size]
	}
	return pool
}

type titleProfile struct {
	task     domain.Task
	title    string
	words    []string
	keywords []string
	category string
}

func newTitleProfile(t domain.Task) titleProfile {
	title := strings.ToLower(t.Title)
	return titleProfile{
		task:     t,
		title:    title,
		words:    words(title),
		keywords: NormalizeKeywords(t.Keywords),
		category: NormalizeCategory(t.Category),
	}
}

func classify(focus, cand titleProfile) (domain.UnlockedTask, bool) {
	u := domain.UnlockedTask{TaskID: cand.task.ID}

	if blockingLanguage.MatchString(cand.title) {
		if kw, ok := sharedFocusKeyword(focus, cand); ok {
			u.Relationship = domain.RelBlocker
			u.Confidence = BlockerConfidence
			u.Reason = fmt.Sprintf("waits on focus task (mentions %q)", kw)
			return u, true
		}
	}
	if fv, cv, noun, ok := prerequisiteMatch(focus, cand); ok {
		u.Relationship = domain.RelPrerequisite
		u.Confidence = PrerequisiteConfidence
		u.Reason = fmt.Sprintf("%s before %s (%s)", fv, cv, noun)
		return u, true
	}
	if sim := jaccard(focus.keywords, cand.keywords); sim > JaccardThreshold {
		u.Relationship = domain.RelRelated
		u.Confidence = round2(sim)
		u.Reason = fmt.Sprintf("shares keywords (similarity %.2f)", sim)
		return u, true
	}
	if focus.category != "" && focus.category == cand.category {
		u.Relationship = domain.RelRelated
		u.Confidence = SameCategoryConfidence
		u.Reason = fmt.Sprintf("same category %q", focus.category)
		return u, true
	}
	return u, false
}

func sharedFocusKeyword(focus, cand titleProfile) (string, bool) {
	for _, w := range focus.words {
		if len(w) <= MinKeywordLength || dominoStopwords[w] {
			continue
		}
		if strings.Contains(cand.title, w) {
			return w, true
		}
	}
	return "", false
}

func prerequisiteMatch(focus, cand titleProfile) (string, string, string, bool) {
	fVerbs := extractVerbs(focus.words, prerequisiteVerbs)
	if len(fVerbs) == 0 {
		return "", "", "", false
	}
	cVerbs := extractVerbs(cand.words, candidateVerbs)
	if len(cVerbs) == 0 {
		return "", "", "", false
	}
	fNouns := extractNouns(focus.words)
	cNouns := extractNouns(cand.words)
	for _, fv := range fVerbs {
		for _, target := range verbPairs[fv] {
			for _, cv := range cVerbs {
				if cv != target {
					continue
				}
				if noun, ok := nounOverlap(fNouns, cNouns); ok {
					return fv, cv, noun, true
				}
			}
		}
	}
	return "", "", "", false
}

func extractVerbs(ws []string, dict map[string]bool) []string {
	var out []string
	seen := map[string]bool{}
	for _, w := range ws {
		if v, ok := stemVerb(w, dict); ok && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func extractNouns(ws []string) []string {
	var out []string
	for _, w := range ws {
		if len(w) <= MinKeywordLength || dominoStopwords[w] {
			continue
		}
		if _, ok := stemVerb(w, candidateVerbs); ok {
			continue
		}
		out = append(out, w)
	}
	return out
}

func nounOverlap(a, b []string) (string, bool) {
	for _, x := range a {
		for _, y := range b {
			if x == y || strings.Contains(x, y) || strings.Contains(y, x) {
				return x, true
			}
		}
	}
	return "", false
}

// stemVerb strips common inflections until the word is found in dict.
func stemVerb(w string, dict map[string]bool) (string, bool) {
	if dict[w] {
		return w, true
	}
	for _, cut := range []struct{ suffix, repl string }{
		{"s", ""}, {"es", ""}, {"ed", ""}, {"d", ""}, {"ned", ""},
		{"ing", ""}, {"ing", "e"}, {"ning", ""},
	} {
		if len(w) > len(cut.suffix)+2 && strings.HasSuffix(w, cut.suffix) {
			if base := strings.TrimSuffix(w, cut.suffix) + cut.repl; dict[base] {
				return base, true
			}
		}
	}
	return "", false
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(a))
	for _, x := range a {
		set[x] = true
	}
	inter := 0
	union := len(set)
	for _, y := range b {
		if set[y] {
			inter++
			continue
		}
		union++
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
