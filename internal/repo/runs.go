package repo

import (
	"context"
	"database/sql"
	"errors"

	"taskpulse/internal/domain"
)

func (r Repo) GetRun(ctx context.Context, id string) (domain.AnalysisRun, error) {
	var run domain.AnalysisRun
	err := r.DB.QueryRowContext(ctx, `SELECT id,kind,created_at,result_json FROM analysis_runs WHERE id=?`, id).
		Scan(&run.ID, &run.Kind, &run.CreatedAt, &run.ResultJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return run, ErrNotFound
	}
	return run, err
}

// ListRuns returns persisted analysis runs newest first, optionally by kind.
func (r Repo) ListRuns(ctx context.Context, kind string, limit int) ([]domain.AnalysisRun, error) {
	query := `SELECT id,kind,created_at,result_json FROM analysis_runs`
	var args []any
	if kind != "" {
		query += ` WHERE kind=?`
		args = append(args, kind)
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
	res := []domain.AnalysisRun{}
	for rows.Next() {
		var run domain.AnalysisRun
		if err := rows.Scan(&run.ID, &run.Kind, &run.CreatedAt, &run.ResultJSON); err != nil {
			return nil, err
		}
		res = append(res, run)
	}
	return res, rows.Err()
}
