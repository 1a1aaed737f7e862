package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"taskpulse/internal/domain"
)

// GetPersona returns the stored persona snapshot or ErrNotFound.
func (r Repo) GetPersona(ctx context.Context) (domain.Persona, error) {
	var raw string
	err := r.DB.QueryRowContext(ctx, `SELECT persona_json FROM personas WHERE id=1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Persona{}, ErrNotFound
	}
	if err != nil {
		return domain.Persona{}, err
	}
	var p domain.Persona
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return domain.Persona{}, fmt.Errorf("decode persona: %w", err)
	}
	return p, nil
}

func (r Repo) UpsertPersona(ctx context.Context, tx *sql.Tx, p domain.Persona, updatedAt time.Time) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO personas(id,persona_json,updated_at) VALUES (1,?,?)
		ON CONFLICT(id) DO UPDATE SET persona_json=excluded.persona_json, updated_at=excluded.updated_at`,
		string(data), formatTime(updatedAt))
	return err
}
