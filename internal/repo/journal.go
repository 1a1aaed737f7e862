package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"taskpulse/internal/domain"
)

func (r Repo) InsertJournalEntry(ctx context.Context, tx *sql.Tx, e domain.JournalEntry) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO journal_entries(id,content,mood,created_at) VALUES (?,?,?,?)`,
		e.ID, e.Content, nullable(e.Mood), formatTime(e.CreatedAt))
	return err
}

func (r Repo) GetJournalEntry(ctx context.Context, id string) (domain.JournalEntry, error) {
	return scanJournalEntry(r.DB.QueryRowContext(ctx, `SELECT id,content,mood,created_at FROM journal_entries WHERE id=?`, id))
}

// ListJournalEntries returns entries created at or after since (when set), newest first.
func (r Repo) ListJournalEntries(ctx context.Context, since *time.Time, limit int) ([]domain.JournalEntry, error) {
	query := `SELECT id,content,mood,created_at FROM journal_entries`
	var args []any
	if since != nil {
		query += ` WHERE created_at >= ?`
		args = append(args, formatTime(*since))
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.JournalEntry{}
	for rows.Next() {
		e, err := scanJournalEntry(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func scanJournalEntry(row rowScanner) (domain.JournalEntry, error) {
	var e domain.JournalEntry
	var mood sql.NullString
	var createdAt string
	if err := row.Scan(&e.ID, &e.Content, &mood, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return e, ErrNotFound
		}
		return e, err
	}
	e.Mood = mood.String
	var err error
	e.CreatedAt, err = parseTime(createdAt)
	return e, err
}
