// Package events appends analysis runs the caller asked to keep. Nothing is
// written unless a caller explicitly saves a result.
package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"taskpulse/internal/analysis"
	"taskpulse/internal/domain"
)

type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

// Append stores one run inside tx and returns it.
func (w Writer) Append(ctx context.Context, tx *sql.Tx, kind string, request, result any) (domain.AnalysisRun, error) {
	if w.Now == nil {
		w.Now = time.Now
	}
	reqData, err := json.Marshal(request)
	if err != nil {
		return domain.AnalysisRun{}, fmt.Errorf("marshal run request: %w", err)
	}
	resData, err := json.Marshal(result)
	if err != nil {
		return domain.AnalysisRun{}, fmt.Errorf("marshal run result: %w", err)
	}
	run := domain.AnalysisRun{
		ID:         uuid.NewString(),
		Kind:       kind,
		CreatedAt:  w.Now().UTC().Format(time.RFC3339),
		ResultJSON: string(resData),
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO analysis_runs(id,kind,created_at,lexicon_version,request_json,result_json) VALUES (?,?,?,?,?,?)`,
		run.ID, run.Kind, run.CreatedAt, analysis.LexiconVersion, string(reqData), run.ResultJSON)
	if err != nil {
		return domain.AnalysisRun{}, fmt.Errorf("insert analysis run: %w", err)
	}
	return run, nil
}
