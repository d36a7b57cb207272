package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/shaiso/LocalAutomator/internal/domain"
)

// RunRepo — история run в PostgreSQL.
type RunRepo struct {
	db DB
}

// NewRunRepo создаёт новый RunRepo.
func NewRunRepo(db DB) *RunRepo {
	return &RunRepo{db: db}
}

// RunFilter — параметры фильтрации runs.
type RunFilter struct {
	FlowName string
	Status   domain.RunStatus
	Limit    int
	Offset   int
}

// limit возвращает ограничение выборки (default: 50).
func (f RunFilter) limit() int {
	if f.Limit <= 0 {
		return 50
	}
	return f.Limit
}

// Create создаёт запись run.
func (r *RunRepo) Create(ctx context.Context, run *domain.Run) error {
	varsJSON, err := json.Marshal(run.Vars)
	if err != nil {
		return fmt.Errorf("marshal vars: %w", err)
	}

	query := `
		INSERT INTO runs (id, flow_name, flow_path, status, trigger, vars, started_at, log_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.db.Exec(ctx, query,
		run.ID,
		run.FlowName,
		nullString(run.FlowPath),
		string(run.Status),
		run.Trigger,
		varsJSON,
		run.StartedAt,
		nullString(run.LogPath),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Finish сохраняет итоговый статус run.
func (r *RunRepo) Finish(ctx context.Context, run *domain.Run) error {
	query := `
		UPDATE runs
		SET status = $2, finished_at = $3, error = $4
		WHERE id = $1
	`
	result, err := r.db.Exec(ctx, query,
		run.ID,
		string(run.Status),
		run.FinishedAt,
		nullString(run.Error),
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveStep сохраняет запись шага.
func (r *RunRepo) SaveStep(ctx context.Context, runID uuid.UUID, rec domain.StepRecord) error {
	resultJSON, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("marshal step result: %w", err)
	}

	status := domain.StepStatusPending
	if rec.Result != nil {
		status = rec.Result.Status
	}

	query := `
		INSERT INTO run_steps (run_id, idx, step_id, type, name, status, result, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (run_id, idx) DO UPDATE
		SET status = EXCLUDED.status, result = EXCLUDED.result, duration_ms = EXCLUDED.duration_ms
	`
	_, err = r.db.Exec(ctx, query,
		runID,
		rec.Index,
		rec.StepID,
		rec.Type,
		rec.Name,
		string(status),
		resultJSON,
		rec.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert step: %w", err)
	}
	return nil
}

// GetByID возвращает run вместе с шагами.
func (r *RunRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	query := `
		SELECT id, flow_name, flow_path, status, trigger, vars, started_at,
		       finished_at, log_path, error
		FROM runs
		WHERE id = $1
	`
	run, err := scanRun(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	steps, err := r.listSteps(ctx, id)
	if err != nil {
		return nil, err
	}
	run.Steps = steps
	return run, nil
}

// List возвращает runs без шагов, новые первыми.
func (r *RunRepo) List(ctx context.Context, filter RunFilter) ([]domain.Run, error) {
	query := `
		SELECT id, flow_name, flow_path, status, trigger, vars, started_at,
		       finished_at, log_path, error
		FROM runs
		WHERE ($1::text IS NULL OR flow_name = $1)
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY started_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.db.Query(ctx, query,
		nullString(filter.FlowName),
		nullString(string(filter.Status)),
		filter.limit(),
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// listSteps возвращает шаги run по порядку.
func (r *RunRepo) listSteps(ctx context.Context, runID uuid.UUID) ([]domain.StepRecord, error) {
	query := `
		SELECT idx, step_id, type, name, result, duration_ms
		FROM run_steps
		WHERE run_id = $1
		ORDER BY idx
	`
	rows, err := r.db.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	defer rows.Close()

	var steps []domain.StepRecord
	for rows.Next() {
		var rec domain.StepRecord
		var resultJSON []byte
		var durationMs int64

		if err := rows.Scan(&rec.Index, &rec.StepID, &rec.Type, &rec.Name, &resultJSON, &durationMs); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		if err := json.Unmarshal(resultJSON, &rec.Result); err != nil {
			return nil, fmt.Errorf("unmarshal step result: %w", err)
		}
		rec.Duration = time.Duration(durationMs) * time.Millisecond
		steps = append(steps, rec)
	}
	return steps, rows.Err()
}

// scanRun сканирует одну строку в Run.
// pgx.Rows реализует pgx.Row, поэтому функция подходит и для списков.
func scanRun(row pgx.Row) (*domain.Run, error) {
	var run domain.Run
	var status string
	var varsJSON []byte
	var flowPath, logPath, runError *string

	err := row.Scan(
		&run.ID,
		&run.FlowName,
		&flowPath,
		&status,
		&run.Trigger,
		&varsJSON,
		&run.StartedAt,
		&run.FinishedAt,
		&logPath,
		&runError,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}

	run.Status = domain.RunStatus(status)
	if varsJSON != nil {
		if err := json.Unmarshal(varsJSON, &run.Vars); err != nil {
			return nil, fmt.Errorf("unmarshal vars: %w", err)
		}
	}
	if flowPath != nil {
		run.FlowPath = *flowPath
	}
	if logPath != nil {
		run.LogPath = *logPath
	}
	if runError != nil {
		run.Error = *runError
	}

	return &run, nil
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
