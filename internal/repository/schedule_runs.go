package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/sysu-ecnc-dev/activity-scheduler/backend/internal/domain"
)

const scheduleRunColumns = `
	id, name, parameters, status, best_fitness, generations, message,
	created_by, created_at, started_at, finished_at, version
`

func scanScheduleRun(row interface{ Scan(dest ...any) error }) (*domain.ScheduleRun, error) {
	run := &domain.ScheduleRun{}

	var (
		parameters  []byte
		bestFitness sql.NullFloat64
		startedAt   sql.NullTime
		finishedAt  sql.NullTime
	)

	dst := []any{
		&run.ID, &run.Name, &parameters, &run.Status, &bestFitness, &run.Generations, &run.Message,
		&run.CreatedBy, &run.CreatedAt, &startedAt, &finishedAt, &run.Version,
	}
	if err := row.Scan(dst...); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(parameters, &run.Parameters); err != nil {
		return nil, err
	}
	if bestFitness.Valid {
		run.BestFitness = &bestFitness.Float64
	}
	if startedAt.Valid {
		run.StartedAt = &startedAt.Time
	}
	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.Time
	}

	return run, nil
}

func (r *Repository) CreateScheduleRun(run *domain.ScheduleRun) error {
	parameters, err := json.Marshal(run.Parameters)
	if err != nil {
		return err
	}

	ctx, cancel := r.queryContext()
	defer cancel()

	query := `
		INSERT INTO schedule_runs (name, parameters, created_by)
		VALUES ($1, $2, $3)
		RETURNING id, status, generations, message, created_at, version
	`

	args := []any{run.Name, parameters, run.CreatedBy}
	dst := []any{&run.ID, &run.Status, &run.Generations, &run.Message, &run.CreatedAt, &run.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(dst...); err != nil {
		return err
	}

	return nil
}

// GetScheduleRunByID 同时查询排课结果与每一代的统计数据
func (r *Repository) GetScheduleRunByID(id int64) (*domain.ScheduleRun, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	query := `SELECT ` + scheduleRunColumns + ` FROM schedule_runs WHERE id = $1`
	run, err := scanScheduleRun(r.dbpool.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}

	query = `
		SELECT activity, room, time_slot, facilitator
		FROM schedule_run_assignments
		WHERE schedule_run_id = $1
		ORDER BY position
	`
	rows, err := r.dbpool.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	run.Entries = make([]domain.ScheduleEntry, 0)
	for rows.Next() {
		var entry domain.ScheduleEntry
		if err := rows.Scan(&entry.Activity, &entry.Room, &entry.TimeSlot, &entry.Facilitator); err != nil {
			return nil, err
		}
		run.Entries = append(run.Entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	query = `
		SELECT generation, best_fitness, average_fitness, mutation_rate
		FROM schedule_run_generations
		WHERE schedule_run_id = $1
		ORDER BY generation
	`
	historyRows, err := r.dbpool.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer historyRows.Close()

	run.History = make([]domain.GenerationRecord, 0)
	for historyRows.Next() {
		var record domain.GenerationRecord
		dst := []any{&record.Generation, &record.BestFitness, &record.AverageFitness, &record.MutationRate}
		if err := historyRows.Scan(dst...); err != nil {
			return nil, err
		}
		run.History = append(run.History, record)
	}
	if err := historyRows.Err(); err != nil {
		return nil, err
	}

	return run, nil
}

// GetAllScheduleRuns 只返回运行记录本身，不包括排课结果
func (r *Repository) GetAllScheduleRuns() ([]*domain.ScheduleRun, error) {
	return r.listScheduleRuns(`SELECT ` + scheduleRunColumns + ` FROM schedule_runs ORDER BY id DESC`)
}

func (r *Repository) GetScheduleRunsByCreator(userID int64) ([]*domain.ScheduleRun, error) {
	return r.listScheduleRuns(`SELECT `+scheduleRunColumns+` FROM schedule_runs WHERE created_by = $1 ORDER BY id DESC`, userID)
}

func (r *Repository) listScheduleRuns(query string, args ...any) ([]*domain.ScheduleRun, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]*domain.ScheduleRun, 0)
	for rows.Next() {
		run, err := scanScheduleRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}

// MarkScheduleRunRunning 只有处于 pending 状态的运行才能开始，否则返回 sql.ErrNoRows
func (r *Repository) MarkScheduleRunRunning(id int64) (*domain.ScheduleRun, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	query := `
		UPDATE schedule_runs
		SET status = 'running', started_at = NOW(), version = version + 1
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + scheduleRunColumns

	return scanScheduleRun(r.dbpool.QueryRowContext(ctx, query, id))
}

// CancelPendingScheduleRun 取消一个还没有被 worker 领取的运行，返回是否真的取消了
func (r *Repository) CancelPendingScheduleRun(id int64) (bool, error) {
	ctx, cancel := r.queryContext()
	defer cancel()

	query := `
		UPDATE schedule_runs
		SET status = 'cancelled', finished_at = NOW(), version = version + 1
		WHERE id = $1 AND status = 'pending'
	`

	res, err := r.dbpool.ExecContext(ctx, query, id)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return affected > 0, nil
}

// CompleteScheduleRun 在一个事务中写入运行结果、排课结果以及每一代的统计数据
func (r *Repository) CompleteScheduleRun(run *domain.ScheduleRun) error {
	ctx, cancel := r.transactionContext()
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		UPDATE schedule_runs
		SET status = $1, best_fitness = $2, generations = $3, message = $4, finished_at = NOW(), version = version + 1
		WHERE id = $5 AND version = $6
		RETURNING finished_at, version
	`

	var finishedAt time.Time
	args := []any{run.Status, run.BestFitness, run.Generations, run.Message, run.ID, run.Version}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&finishedAt, &run.Version); err != nil {
		return err
	}
	run.FinishedAt = &finishedAt

	// 重新写入之前先把旧的结果删除
	if _, err := tx.ExecContext(ctx, `DELETE FROM schedule_run_assignments WHERE schedule_run_id = $1`, run.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM schedule_run_generations WHERE schedule_run_id = $1`, run.ID); err != nil {
		return err
	}

	for i, entry := range run.Entries {
		query := `
			INSERT INTO schedule_run_assignments (schedule_run_id, position, activity, room, time_slot, facilitator)
			VALUES ($1, $2, $3, $4, $5, $6)
		`

		if _, err := tx.ExecContext(ctx, query, run.ID, i, entry.Activity, entry.Room, entry.TimeSlot, entry.Facilitator); err != nil {
			return err
		}
	}

	for _, record := range run.History {
		query := `
			INSERT INTO schedule_run_generations (schedule_run_id, generation, best_fitness, average_fitness, mutation_rate)
			VALUES ($1, $2, $3, $4, $5)
		`

		args := []any{run.ID, record.Generation, record.BestFitness, record.AverageFitness, record.MutationRate}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

func (r *Repository) FailScheduleRun(id int64, message string) error {
	ctx, cancel := r.queryContext()
	defer cancel()

	query := `
		UPDATE schedule_runs
		SET status = 'failed', message = $1, finished_at = NOW(), version = version + 1
		WHERE id = $2
	`

	if _, err := r.dbpool.ExecContext(ctx, query, message, id); err != nil {
		return err
	}

	return nil
}

func (r *Repository) DeleteScheduleRun(id int64) error {
	ctx, cancel := r.queryContext()
	defer cancel()

	if _, err := r.dbpool.ExecContext(ctx, `DELETE FROM schedule_runs WHERE id = $1`, id); err != nil {
		return err
	}

	return nil
}
