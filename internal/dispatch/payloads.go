package dispatch

import (
	"bytes"
	"encoding/json"

	"taskpulse/internal/domain"
)

type PatternsPayload struct {
	Tasks []domain.Task `json:"tasks"`
}

type InsightsPayload struct {
	Entries []domain.JournalEntry `json:"entries"`
}

type CategorizePayload struct {
	Tasks []domain.Task `json:"tasks"`
}

type PrioritiesPayload struct {
	Tasks          []domain.Task   `json:"tasks"`
	Persona        *domain.Persona `json:"persona,omitempty"`
	Unlocks        map[string]int  `json:"unlocks,omitempty"`
	ComputeUnlocks bool            `json:"compute_unlocks,omitempty"`
}

type BurnoutPayload struct {
	Tasks   []domain.Task         `json:"tasks"`
	Entries []domain.JournalEntry `json:"entries"`
}

type DominoPayload struct {
	FocusTask  *domain.Task  `json:"focus_task"`
	Candidates []domain.Task `json:"candidates"`
}

type ForecastPayload struct {
	Tasks []domain.Task `json:"tasks"`
}

// NewRequest marshals payload into a request for kind.
func NewRequest(kind Kind, payload any) (Request, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Request{}, err
	}
	return Request{Kind: kind, Payload: raw}, nil
}

func decode(kind Kind, raw json.RawMessage, dst any) error {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return invalidInput(kind, "payload is required")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return invalidInput(kind, "decode payload: %v", err)
	}
	return nil
}

func validateTasks(kind Kind, field string, tasks []domain.Task) error {
	seen := make(map[string]bool, len(tasks))
	for i, t := range tasks {
		if err := t.Validate(); err != nil {
			return invalidInput(kind, "%s[%d]: %v", field, i, err)
		}
		if seen[t.ID] {
			return invalidInput(kind, "%s[%d]: duplicate task id %s", field, i, t.ID)
		}
		seen[t.ID] = true
	}
	return nil
}

func validateEntries(kind Kind, entries []domain.JournalEntry) error {
	for i, e := range entries {
		if err := e.Validate(); err != nil {
			return invalidInput(kind, "entries[%d]: %v", i, err)
		}
	}
	return nil
}
