package repository

import (
	"database/sql"
	"encoding/json"

	"github.com/fleetops-dev/duty-roster/backend/internal/domain"
)

func (r *Repository) CreateMatchRun(run *domain.MatchRun) error {
	ctx, cancel := r.queryCtx()
	defer cancel()

	options, err := json.Marshal(run.Options)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO match_runs (status, options, created_by)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	if err := r.dbpool.QueryRowContext(ctx, query, run.Status, options, run.CreatedBy).Scan(&run.ID, &run.CreatedAt); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetMatchRunByID(id int64) (*domain.MatchRun, error) {
	ctx, cancel := r.queryCtx()
	defer cancel()

	query := `
		SELECT status, options, result, error_reason, created_by, created_at, finished_at
		FROM match_runs WHERE id = $1
	`

	run := &domain.MatchRun{
		ID: id,
	}
	var options []byte
	var result []byte
	var errorReason sql.NullString
	var finishedAt sql.NullTime

	dst := []any{&run.Status, &options, &result, &errorReason, &run.CreatedBy, &run.CreatedAt, &finishedAt}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(options, &run.Options); err != nil {
		return nil, err
	}
	if result != nil {
		run.Result = &domain.MatchResult{}
		if err := json.Unmarshal(result, run.Result); err != nil {
			return nil, err
		}
	}
	run.ErrorReason = errorReason.String
	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.Time
	}

	return run, nil
}

// GetAllMatchRuns 返回的列表不带完整结果，结果可能很大，
// 需要时按 id 单独取
func (r *Repository) GetAllMatchRuns() ([]*domain.MatchRun, error) {
	ctx, cancel := r.queryCtx()
	defer cancel()

	query := `
		SELECT id, status, options, error_reason, created_by, created_at, finished_at
		FROM match_runs
		ORDER BY id DESC
	`

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]*domain.MatchRun, 0)
	for rows.Next() {
		run := &domain.MatchRun{}
		var options []byte
		var errorReason sql.NullString
		var finishedAt sql.NullTime

		dst := []any{&run.ID, &run.Status, &options, &errorReason, &run.CreatedBy, &run.CreatedAt, &finishedAt}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		if err := json.Unmarshal(options, &run.Options); err != nil {
			return nil, err
		}
		run.ErrorReason = errorReason.String
		if finishedAt.Valid {
			run.FinishedAt = &finishedAt.Time
		}

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}

func (r *Repository) MarkMatchRunRunning(id int64) error {
	ctx, cancel := r.queryCtx()
	defer cancel()

	query := `
		UPDATE match_runs SET status = $1 WHERE id = $2 AND status = $3
	`
	if _, err := r.dbpool.ExecContext(ctx, query, domain.MatchRunStatusRunning, id, domain.MatchRunStatusPending); err != nil {
		return err
	}

	return nil
}

func (r *Repository) FinishMatchRun(id int64, result *domain.MatchResult) error {
	ctx, cancel := r.queryCtx()
	defer cancel()

	encoded, err := json.Marshal(result)
	if err != nil {
		return err
	}

	query := `
		UPDATE match_runs
		SET status = $1, result = $2, finished_at = NOW()
		WHERE id = $3
	`
	if _, err := r.dbpool.ExecContext(ctx, query, domain.MatchRunStatusSucceeded, encoded, id); err != nil {
		return err
	}

	return nil
}

func (r *Repository) FailMatchRun(id int64, reason string) error {
	ctx, cancel := r.queryCtx()
	defer cancel()

	query := `
		UPDATE match_runs
		SET status = $1, error_reason = $2, finished_at = NOW()
		WHERE id = $3
	`
	if _, err := r.dbpool.ExecContext(ctx, query, domain.MatchRunStatusFailed, reason, id); err != nil {
		return err
	}

	return nil
}
