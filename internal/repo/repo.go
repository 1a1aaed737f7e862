package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskpulse/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// CursorTime renders t the way ListTasks cursors compare it.
func CursorTime(t time.Time) string {
	return formatTime(t)
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableIntPtr(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

const taskColumns = `id,title,category,created_at,completed,completed_at,reminder_time,recurrence_pattern,recurrence_day,recurrence_end_date,is_tiny,keywords_json,has_person_name`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (domain.Task, error) {
	var (
		t                                domain.Task
		category, pattern                sql.NullString
		completedAt, reminder, endDate   sql.NullString
		createdAt, keywordsJSON          string
		recurrenceDay                    sql.NullInt64
		completed, isTiny, hasPersonName int
	)
	if err := row.Scan(&t.ID, &t.Title, &category, &createdAt, &completed, &completedAt, &reminder, &pattern, &recurrenceDay, &endDate, &isTiny, &keywordsJSON, &hasPersonName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return t, ErrNotFound
		}
		return t, err
	}
	var err error
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return t, err
	}
	if t.CompletedAt, err = parseNullTime(completedAt); err != nil {
		return t, err
	}
	if t.ReminderTime, err = parseNullTime(reminder); err != nil {
		return t, err
	}
	if t.RecurrenceEndDate, err = parseNullTime(endDate); err != nil {
		return t, err
	}
	t.Category = category.String
	t.RecurrencePattern = domain.Recurrence(pattern.String)
	if recurrenceDay.Valid {
		d := int(recurrenceDay.Int64)
		t.RecurrenceDay = &d
	}
	t.Completed = completed != 0
	t.IsTiny = isTiny != 0
	t.HasPersonName = hasPersonName != 0
	if err := json.Unmarshal([]byte(keywordsJSON), &t.Keywords); err != nil {
		return t, fmt.Errorf("task %s keywords: %w", t.ID, err)
	}
	return t, nil
}

func taskArgs(t domain.Task) ([]any, error) {
	keywords := t.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	kw, err := json.Marshal(keywords)
	if err != nil {
		return nil, err
	}
	return []any{
		t.Title, nullable(t.Category), formatTime(t.CreatedAt), boolInt(t.Completed), nullableTime(t.CompletedAt),
		nullableTime(t.ReminderTime), nullable(string(t.RecurrencePattern)), nullableIntPtr(t.RecurrenceDay),
		nullableTime(t.RecurrenceEndDate), boolInt(t.IsTiny), string(kw), boolInt(t.HasPersonName),
	}, nil
}

func (r Repo) InsertTask(ctx context.Context, tx *sql.Tx, t domain.Task, updatedAt time.Time) error {
	args, err := taskArgs(t)
	if err != nil {
		return err
	}
	args = append([]any{t.ID}, args...)
	args = append(args, formatTime(updatedAt))
	_, err = tx.ExecContext(ctx, `INSERT INTO tasks(`+taskColumns+`,updated_at) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`, args...)
	return err
}

func (r Repo) UpdateTask(ctx context.Context, tx *sql.Tx, t domain.Task, updatedAt time.Time) error {
	args, err := taskArgs(t)
	if err != nil {
		return err
	}
	args = append(args, formatTime(updatedAt), t.ID)
	res, err := tx.ExecContext(ctx, `UPDATE tasks SET title=?,category=?,created_at=?,completed=?,completed_at=?,reminder_time=?,recurrence_pattern=?,recurrence_day=?,recurrence_end_date=?,is_tiny=?,keywords_json=?,has_person_name=?,updated_at=? WHERE id=?`, args...)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteTask(ctx context.Context, tx *sql.Tx, id string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetTask(ctx context.Context, id string) (domain.Task, error) {
	return getTask(ctx, r.DB, id)
}

func (r Repo) GetTaskTx(ctx context.Context, tx *sql.Tx, id string) (domain.Task, error) {
	return getTask(ctx, tx, id)
}

func getTask(ctx context.Context, q queryer, id string) (domain.Task, error) {
	return scanTask(q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id))
}

type TaskFilters struct {
	// Completed filters by completion state when set.
	Completed       *bool
	Category        string
	CreatedSince    *time.Time
	Limit           int
	CursorCreatedAt string
	CursorID        string
}

// ListTasks returns tasks newest first.
func (r Repo) ListTasks(ctx context.Context, f TaskFilters) ([]domain.Task, error) {
	var clauses []string
	var args []any
	if f.Completed != nil {
		clauses = append(clauses, "completed=?")
		args = append(args, boolInt(*f.Completed))
	}
	if f.Category != "" {
		clauses = append(clauses, "LOWER(COALESCE(category,''))=?")
		args = append(args, strings.ToLower(f.Category))
	}
	if f.CreatedSince != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, formatTime(*f.CreatedSince))
	}
	if f.CursorCreatedAt != "" && f.CursorID != "" {
		clauses = append(clauses, "(created_at < ? OR (created_at = ? AND id < ?))")
		args = append(args, f.CursorCreatedAt, f.CursorCreatedAt, f.CursorID)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + taskColumns + ` FROM tasks ` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

// CountTasks returns open and completed task totals.
func (r Repo) CountTasks(ctx context.Context) (open, completed int, err error) {
	err = r.DB.QueryRowContext(ctx, `SELECT COALESCE(SUM(CASE WHEN completed=0 THEN 1 ELSE 0 END),0), COALESCE(SUM(completed),0) FROM tasks`).Scan(&open, &completed)
	return open, completed, err
}
