package server

import (
	"time"

	"taskpulse/internal/dispatch"
	"taskpulse/internal/domain"
)

// Request payloads

type AnalyzeRequest struct {
	Kind    string     `json:"kind" example:"compute_priorities"`
	Payload any        `json:"payload,omitempty"`
	Now     *time.Time `json:"now,omitempty" format:"date-time"`
}

type BatchRequest struct {
	Requests []AnalyzeRequest `json:"requests" maxItems:"100"`
}

type CreateTaskRequest struct {
	ID                *string    `json:"id,omitempty"`
	Title             string     `json:"title"`
	Category          string     `json:"category,omitempty"`
	ReminderTime      *time.Time `json:"reminder_time,omitempty" format:"date-time"`
	Recurrence        string     `json:"recurrence_pattern,omitempty" enum:"none,daily,weekly,monthly"`
	RecurrenceDay     *int       `json:"recurrence_day,omitempty"`
	RecurrenceEndDate *time.Time `json:"recurrence_end_date,omitempty" format:"date-time"`
	IsTiny            bool       `json:"is_tiny,omitempty"`
	Keywords          []string   `json:"keywords,omitempty"`
	HasPersonName     bool       `json:"has_person_name,omitempty"`
}

type UpdateTaskRequest struct {
	Title         *string    `json:"title,omitempty"`
	Category      *string    `json:"category,omitempty"`
	ReminderTime  *time.Time `json:"reminder_time,omitempty" format:"date-time"`
	ClearReminder bool       `json:"clear_reminder,omitempty"`
	IsTiny        *bool      `json:"is_tiny,omitempty"`
}

type CreateJournalRequest struct {
	Content string `json:"content"`
	Mood    string `json:"mood,omitempty"`
}

type PersonaRequest struct {
	PreferenceDomains map[string]float64 `json:"preference_domains,omitempty"`
	AvoidanceProfile  map[string]float64 `json:"avoidance_profile,omitempty"`
	Ambition          float64            `json:"ambition" minimum:"0" maximum:"1"`
	Momentum          float64            `json:"momentum" minimum:"0" maximum:"1"`
}

// Response payloads

type AnalyzeResponse struct {
	Kind   dispatch.Kind `json:"kind"`
	Result any           `json:"result"`
}

type BatchResponse struct {
	Responses []dispatch.Response `json:"responses"`
}

type paginatedTasks struct {
	Items      []domain.Task `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

type journalList struct {
	Items []domain.JournalEntry `json:"items"`
}

type runList struct {
	Items []domain.AnalysisRun `json:"items"`
}

func (r AnalyzeRequest) toDispatch() (dispatch.Request, error) {
	req, err := dispatch.NewRequest(dispatch.Kind(r.Kind), r.Payload)
	if err != nil {
		return dispatch.Request{}, err
	}
	req.Now = r.Now
	return req, nil
}

func (r PersonaRequest) toDomain() domain.Persona {
	return domain.Persona{
		PreferenceDomains: r.PreferenceDomains,
		AvoidanceProfile:  r.AvoidanceProfile,
		Ambition:          r.Ambition,
		Momentum:          r.Momentum,
	}
}
