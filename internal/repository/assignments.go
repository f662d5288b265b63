package repository

import (
	"github.com/fleetops-dev/duty-roster/backend/internal/domain"
)

const assignmentColumns = `
	id, driver_id, subject_id, subject_start, subject_end, duration_hours,
	duty_class, is_active, validation_status, assigned_at, archived_at
`

func scanAssignment(scanner interface{ Scan(...any) error }) (*domain.Assignment, error) {
	a := &domain.Assignment{}
	dst := []any{
		&a.ID,
		&a.DriverID,
		&a.SubjectID,
		&a.SubjectStart,
		&a.SubjectEnd,
		&a.DurationHours,
		&a.DutyClass,
		&a.IsActive,
		&a.ValidationStatus,
		&a.AssignedAt,
		&a.ArchivedAt,
	}
	if err := scanner.Scan(dst...); err != nil {
		return nil, err
	}
	return a, nil
}

// GetAllAssignments 返回包括已归档在内的全部分配记录。
// 滚动窗口的小时账目依赖完整历史，调用方不要自行过滤归档行
func (r *Repository) GetAllAssignments() ([]*domain.Assignment, error) {
	ctx, cancel := r.queryCtx()
	defer cancel()

	query := `
		SELECT ` + assignmentColumns + `
		FROM assignments
		ORDER BY subject_start, id
	`

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assignments := make([]*domain.Assignment, 0)
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return assignments, nil
}

func (r *Repository) GetActiveAssignments() ([]*domain.Assignment, error) {
	ctx, cancel := r.queryCtx()
	defer cancel()

	query := `
		SELECT ` + assignmentColumns + `
		FROM assignments
		WHERE is_active = TRUE
		ORDER BY subject_start, id
	`

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assignments := make([]*domain.Assignment, 0)
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return assignments, nil
}

func (r *Repository) GetAssignmentsByDriver(driverID int64) ([]*domain.Assignment, error) {
	ctx, cancel := r.queryCtx()
	defer cancel()

	query := `
		SELECT ` + assignmentColumns + `
		FROM assignments
		WHERE driver_id = $1
		ORDER BY subject_start, id
	`

	rows, err := r.dbpool.QueryContext(ctx, query, driverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assignments := make([]*domain.Assignment, 0)
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return assignments, nil
}

// ReplaceActiveAssignment 在同一个事务里先归档任务当前的有效分配，
// 再插入新的有效分配。两步要么都发生要么都不发生，
// 任何时刻一个任务都不会出现两条有效分配
func (r *Repository) ReplaceActiveAssignment(a *domain.Assignment) error {
	ctx, cancel := r.txCtx()
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		UPDATE assignments
		SET is_active = FALSE, archived_at = NOW()
		WHERE subject_id = $1 AND is_active = TRUE
	`
	if _, err := tx.ExecContext(ctx, query, a.SubjectID); err != nil {
		return err
	}

	query = `
		INSERT INTO assignments
			(driver_id, subject_id, subject_start, subject_end, duration_hours, duty_class, is_active, validation_status, assigned_at)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7, $8)
		RETURNING id
	`
	args := []any{
		a.DriverID,
		a.SubjectID,
		a.SubjectStart,
		a.SubjectEnd,
		a.DurationHours,
		a.DutyClass,
		a.ValidationStatus,
		a.AssignedAt,
	}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&a.ID); err != nil {
		return err
	}
	a.IsActive = true

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

// ArchiveAssignment 单独撤销一条有效分配，不产生替代记录
func (r *Repository) ArchiveAssignment(id int64) error {
	ctx, cancel := r.queryCtx()
	defer cancel()

	query := `
		UPDATE assignments
		SET is_active = FALSE, archived_at = NOW()
		WHERE id = $1 AND is_active = TRUE
	`
	if _, err := r.dbpool.ExecContext(ctx, query, id); err != nil {
		return err
	}

	return nil
}
