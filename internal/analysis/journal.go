package analysis

import (
	"sort"
	"strings"

	"taskpulse/internal/domain"
)

// AnalyzeJournal classifies each entry's sentiment and extracts the most
// frequent themes.
func AnalyzeJournal(entries []domain.JournalEntry) domain.JournalInsight {
	res := domain.JournalInsight{
		Themes:     []string{},
		MoodCounts: map[string]int{},
	}
	if len(entries) == 0 {
		res.Message = "No journal entries to analyze"
		return res
	}

	freq := map[string]int{}
	for _, e := range entries {
		text := strings.ToLower(e.Content)
		switch ClassifySentiment(text) {
		case sentimentPositive:
			res.Sentiment.Positive++
		case sentimentNegative:
			res.Sentiment.Negative++
		default:
			res.Sentiment.Neutral++
		}
		if mood := strings.ToLower(strings.TrimSpace(e.Mood)); mood != "" {
			res.MoodCounts[mood]++
		}
		for _, w := range words(text) {
			w = strings.Trim(w, "'-")
			if len(w) > MinThemeWordLen && !themeStopwords[w] {
				freq[w]++
			}
		}
	}

	themes := make([]string, 0, len(freq))
	for w := range freq {
		themes = append(themes, w)
	}
	sort.Slice(themes, func(i, j int) bool {
		if freq[themes[i]] != freq[themes[j]] {
			return freq[themes[i]] > freq[themes[j]]
		}
		return themes[i] < themes[j]
	})
	if len(themes) > ThemeCount {
		themes = themes[:ThemeCount]
	}
	res.Themes = themes
	return res
}

const (
	sentimentNeutral  = "neutral"
	sentimentPositive = "positive"
	sentimentNegative = "negative"
)

// ClassifySentiment compares positive and negative word matches. A tie is
// neutral.
func ClassifySentiment(text string) string {
	text = strings.ToLower(text)
	pos := len(positiveWords.FindAllStringIndex(text, -1))
	neg := len(negativeWords.FindAllStringIndex(text, -1))
	switch {
	case pos > neg:
		return sentimentPositive
	case neg > pos:
		return sentimentNegative
	}
	return sentimentNeutral
}
