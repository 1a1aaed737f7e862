package dispatch

import (
	"encoding/json"
	"time"

	"taskpulse/internal/analysis"
)

func handlePatterns(d *Dispatcher, raw json.RawMessage, _ time.Time) (any, error) {
	var p PatternsPayload
	if err := decode(KindAnalyzePatterns, raw, &p); err != nil {
		return nil, err
	}
	if err := validateTasks(KindAnalyzePatterns, "tasks", p.Tasks); err != nil {
		return nil, err
	}
	return analysis.AnalyzePatterns(p.Tasks, d.loc), nil
}

func handleInsights(_ *Dispatcher, raw json.RawMessage, _ time.Time) (any, error) {
	var p InsightsPayload
	if err := decode(KindGenerateInsights, raw, &p); err != nil {
		return nil, err
	}
	if err := validateEntries(KindGenerateInsights, p.Entries); err != nil {
		return nil, err
	}
	return analysis.AnalyzeJournal(p.Entries), nil
}

func handleCategorize(_ *Dispatcher, raw json.RawMessage, _ time.Time) (any, error) {
	var p CategorizePayload
	if err := decode(KindCategorizeBatch, raw, &p); err != nil {
		return nil, err
	}
	if err := validateTasks(KindCategorizeBatch, "tasks", p.Tasks); err != nil {
		return nil, err
	}
	return analysis.CategorizeBatch(p.Tasks), nil
}

func handlePriorities(d *Dispatcher, raw json.RawMessage, now time.Time) (any, error) {
	var p PrioritiesPayload
	if err := decode(KindComputePriorities, raw, &p); err != nil {
		return nil, err
	}
	if err := validateTasks(KindComputePriorities, "tasks", p.Tasks); err != nil {
		return nil, err
	}
	if p.Persona != nil {
		if err := p.Persona.Validate(); err != nil {
			return nil, invalidInput(KindComputePriorities, "%v", err)
		}
	}
	for id, n := range p.Unlocks {
		if n < 0 {
			return nil, invalidInput(KindComputePriorities, "unlocks[%s] must not be negative", id)
		}
	}
	return analysis.ComputePriorities(p.Tasks, analysis.PriorityOptions{
		Now:            now,
		Persona:        p.Persona,
		Unlocks:        p.Unlocks,
		ComputeUnlocks: p.ComputeUnlocks,
		DominoPool:     d.dominoPool,
	}), nil
}

func handleBurnout(_ *Dispatcher, raw json.RawMessage, now time.Time) (any, error) {
	var p BurnoutPayload
	if err := decode(KindDetectBurnout, raw, &p); err != nil {
		return nil, err
	}
	if err := validateTasks(KindDetectBurnout, "tasks", p.Tasks); err != nil {
		return nil, err
	}
	if err := validateEntries(KindDetectBurnout, p.Entries); err != nil {
		return nil, err
	}
	return analysis.DetectBurnout(p.Tasks, p.Entries, now), nil
}

func handleDomino(d *Dispatcher, raw json.RawMessage, _ time.Time) (any, error) {
	var p DominoPayload
	if err := decode(KindDominoEffect, raw, &p); err != nil {
		return nil, err
	}
	if p.FocusTask == nil {
		return nil, invalidInput(KindDominoEffect, "focus_task is required")
	}
	if err := p.FocusTask.Validate(); err != nil {
		return nil, invalidInput(KindDominoEffect, "focus_task: %v", err)
	}
	if err := validateTasks(KindDominoEffect, "candidates", p.Candidates); err != nil {
		return nil, err
	}
	return analysis.AnalyzeDomino(*p.FocusTask, p.Candidates, analysis.DominoOptions{PoolSize: d.dominoPool}), nil
}

func handleForecast(_ *Dispatcher, raw json.RawMessage, now time.Time) (any, error) {
	var p ForecastPayload
	if err := decode(KindForecastLoad, raw, &p); err != nil {
		return nil, err
	}
	if err := validateTasks(KindForecastLoad, "tasks", p.Tasks); err != nil {
		return nil, err
	}
	return analysis.ForecastLoad(p.Tasks, now), nil
}
