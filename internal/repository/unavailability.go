package repository

import (
	"time"

	"github.com/fleetops-dev/duty-roster/backend/internal/domain"
)

// GetAllUnavailableDates 把已批准的请假日期按司机聚合成预筛需要的形态
func (r *Repository) GetAllUnavailableDates() (map[int64]map[string]bool, error) {
	ctx, cancel := r.queryCtx()
	defer cancel()

	query := `
		SELECT driver_id, date FROM driver_unavailability
	`

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[int64]map[string]bool)
	for rows.Next() {
		var driverID int64
		var date time.Time
		if err := rows.Scan(&driverID, &date); err != nil {
			return nil, err
		}

		if result[driverID] == nil {
			result[driverID] = make(map[string]bool)
		}
		result[driverID][date.Format("2006-01-02")] = true
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *Repository) GetUnavailabilityByDriver(driverID int64) ([]domain.Unavailability, error) {
	ctx, cancel := r.queryCtx()
	defer cancel()

	query := `
		SELECT id, date, reason, created_at
		FROM driver_unavailability
		WHERE driver_id = $1
		ORDER BY date
	`

	rows, err := r.dbpool.QueryContext(ctx, query, driverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Unavailability, 0)
	for rows.Next() {
		item := domain.Unavailability{DriverID: driverID}
		if err := rows.Scan(&item.ID, &item.Date, &item.Reason, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

func (r *Repository) CreateUnavailability(item *domain.Unavailability) error {
	ctx, cancel := r.queryCtx()
	defer cancel()

	query := `
		INSERT INTO driver_unavailability (driver_id, date, reason)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	if err := r.dbpool.QueryRowContext(ctx, query, item.DriverID, item.Date, item.Reason).Scan(&item.ID, &item.CreatedAt); err != nil {
		return err
	}

	return nil
}

func (r *Repository) DeleteUnavailability(id int64) error {
	ctx, cancel := r.queryCtx()
	defer cancel()

	query := `
		DELETE FROM driver_unavailability WHERE id = $1
	`
	if _, err := r.dbpool.ExecContext(ctx, query, id); err != nil {
		return err
	}

	return nil
}
