package repository

import (
	"time"

	"github.com/fleetops-dev/duty-roster/backend/internal/domain"
)

func (r *Repository) GetAllDrivers() ([]*domain.Driver, error) {
	ctx, cancel := r.queryCtx()
	defer cancel()

	query := `
		SELECT
			d.id,
			d.name,
			d.contract_class,
			d.is_active,
			d.load_eligible,
			d.wants_more_work,
			d.created_at,
			d.version,
			ddo.day
		FROM drivers d
		LEFT JOIN driver_days_off ddo ON d.id = ddo.driver_id
		ORDER BY d.id, ddo.day
	`

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	driversMap := make(map[int64]*domain.Driver)
	order := make([]int64, 0)

	for rows.Next() {
		var row struct {
			ID            int64
			Name          string
			ContractClass string
			IsActive      bool
			LoadEligible  bool
			WantsMoreWork bool
			CreatedAt     time.Time
			Version       int32

			Day *int32
		}

		dst := []any{
			&row.ID,
			&row.Name,
			&row.ContractClass,
			&row.IsActive,
			&row.LoadEligible,
			&row.WantsMoreWork,
			&row.CreatedAt,
			&row.Version,
			&row.Day,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		driver, exists := driversMap[row.ID]
		if !exists {
			driver = &domain.Driver{
				ID:            row.ID,
				Name:          row.Name,
				ContractClass: domain.ContractClass(row.ContractClass),
				DaysOff:       make([]time.Weekday, 0),
				IsActive:      row.IsActive,
				LoadEligible:  row.LoadEligible,
				WantsMoreWork: row.WantsMoreWork,
				CreatedAt:     row.CreatedAt,
				Version:       row.Version,
			}
			driversMap[row.ID] = driver
			order = append(order, row.ID)
		}

		// day 为空表示该司机没有配置固定休息日
		if row.Day == nil {
			continue
		}
		driver.DaysOff = append(driver.DaysOff, time.Weekday(*row.Day))
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	drivers := make([]*domain.Driver, 0, len(order))
	for _, id := range order {
		drivers = append(drivers, driversMap[id])
	}

	return drivers, nil
}

func (r *Repository) GetDriverByID(id int64) (*domain.Driver, error) {
	ctx, cancel := r.queryCtx()
	defer cancel()

	query := `
		SELECT name, contract_class, is_active, load_eligible, wants_more_work, created_at, version
		FROM drivers WHERE id = $1
	`

	driver := &domain.Driver{
		ID:      id,
		DaysOff: make([]time.Weekday, 0),
	}

	dst := []any{&driver.Name, &driver.ContractClass, &driver.IsActive, &driver.LoadEligible, &driver.WantsMoreWork, &driver.CreatedAt, &driver.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	query = `
		SELECT day FROM driver_days_off WHERE driver_id = $1 ORDER BY day
	`
	rows, err := r.dbpool.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var day int32
		if err := rows.Scan(&day); err != nil {
			return nil, err
		}
		driver.DaysOff = append(driver.DaysOff, time.Weekday(day))
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return driver, nil
}

func (r *Repository) CreateDriver(driver *domain.Driver) error {
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
		INSERT INTO drivers (name, contract_class, is_active, load_eligible, wants_more_work)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, version
	`
	args := []any{driver.Name, driver.ContractClass, driver.IsActive, driver.LoadEligible, driver.WantsMoreWork}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&driver.ID, &driver.CreatedAt, &driver.Version); err != nil {
		return err
	}

	for _, day := range driver.DaysOff {
		query = `
			INSERT INTO driver_days_off (driver_id, day)
			VALUES ($1, $2)
		`
		if _, err := tx.ExecContext(ctx, query, driver.ID, int32(day)); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

func (r *Repository) UpdateDriver(driver *domain.Driver) error {
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
		UPDATE drivers
		SET
			name = $1,
			contract_class = $2,
			is_active = $3,
			load_eligible = $4,
			wants_more_work = $5,
			version = version + 1
		WHERE id = $6 AND version = $7
		RETURNING created_at, version
	`
	args := []any{driver.Name, driver.ContractClass, driver.IsActive, driver.LoadEligible, driver.WantsMoreWork, driver.ID, driver.Version}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&driver.CreatedAt, &driver.Version); err != nil {
		return err
	}

	// 休息日全量重写，不做差量比较
	query = `
		DELETE FROM driver_days_off WHERE driver_id = $1
	`
	if _, err := tx.ExecContext(ctx, query, driver.ID); err != nil {
		return err
	}

	for _, day := range driver.DaysOff {
		query = `
			INSERT INTO driver_days_off (driver_id, day)
			VALUES ($1, $2)
		`
		if _, err := tx.ExecContext(ctx, query, driver.ID, int32(day)); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

func (r *Repository) DeleteDriver(id int64) error {
	ctx, cancel := r.queryCtx()
	defer cancel()

	query := `
		DELETE FROM drivers WHERE id = $1
	`
	if _, err := r.dbpool.ExecContext(ctx, query, id); err != nil {
		return err
	}

	return nil
}
