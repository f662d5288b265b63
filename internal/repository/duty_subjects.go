package repository

import (
	"database/sql"
	"time"

	"github.com/fleetops-dev/duty-roster/backend/internal/domain"
)

// 两种来源的任务统一落在 duty_subjects 表里：
// 旧 block 的行带 conflict_key，新发车记录的行该列为 NULL。
// 区分来源的逻辑到入库为止，读出来的都是统一的 DutySubject

func (r *Repository) GetSubjectsInRange(from time.Time, to time.Time) ([]domain.DutySubject, error) {
	ctx, cancel := r.queryCtx()
	defer cancel()

	query := `
		SELECT id, start_time, end_time, duration_hours, duty_class, pattern_group, cycle_id, conflict_key
		FROM duty_subjects
		WHERE start_time >= $1 AND start_time < $2
		ORDER BY start_time, id
	`

	rows, err := r.dbpool.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	subjects := make([]domain.DutySubject, 0)
	for rows.Next() {
		var subject domain.DutySubject
		var conflictKey sql.NullString

		dst := []any{
			&subject.ID,
			&subject.StartTime,
			&subject.EndTime,
			&subject.DurationHours,
			&subject.DutyClass,
			&subject.PatternGroup,
			&subject.CycleID,
			&conflictKey,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		subject.ConflictKey = conflictKey.String
		subjects = append(subjects, subject)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return subjects, nil
}

func (r *Repository) GetSubjectByID(id string) (*domain.DutySubject, error) {
	ctx, cancel := r.queryCtx()
	defer cancel()

	query := `
		SELECT start_time, end_time, duration_hours, duty_class, pattern_group, cycle_id, conflict_key
		FROM duty_subjects WHERE id = $1
	`

	subject := &domain.DutySubject{
		ID: id,
	}
	var conflictKey sql.NullString

	dst := []any{
		&subject.StartTime,
		&subject.EndTime,
		&subject.DurationHours,
		&subject.DutyClass,
		&subject.PatternGroup,
		&subject.CycleID,
		&conflictKey,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	subject.ConflictKey = conflictKey.String
	return subject, nil
}

// UpsertSubject 按 id 覆盖写入。旧系统的导入会反复推送同一批 block，
// 重复推送时以最新的时间信息为准
func (r *Repository) UpsertSubject(subject *domain.DutySubject) error {
	ctx, cancel := r.queryCtx()
	defer cancel()

	query := `
		INSERT INTO duty_subjects (id, start_time, end_time, duration_hours, duty_class, pattern_group, cycle_id, conflict_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE
		SET
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			duration_hours = EXCLUDED.duration_hours,
			duty_class = EXCLUDED.duty_class,
			pattern_group = EXCLUDED.pattern_group,
			cycle_id = EXCLUDED.cycle_id,
			conflict_key = EXCLUDED.conflict_key
	`

	var conflictKey sql.NullString
	if subject.ConflictKey != "" {
		conflictKey = sql.NullString{String: subject.ConflictKey, Valid: true}
	}

	args := []any{
		subject.ID,
		subject.StartTime,
		subject.EndTime,
		subject.DurationHours,
		subject.DutyClass,
		subject.PatternGroup,
		subject.CycleID,
		conflictKey,
	}
	if _, err := r.dbpool.ExecContext(ctx, query, args...); err != nil {
		return err
	}

	return nil
}

func (r *Repository) DeleteSubject(id string) error {
	ctx, cancel := r.queryCtx()
	defer cancel()

	query := `
		DELETE FROM duty_subjects WHERE id = $1
	`
	if _, err := r.dbpool.ExecContext(ctx, query, id); err != nil {
		return err
	}

	return nil
}
