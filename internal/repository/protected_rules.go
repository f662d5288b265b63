package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/fleetops-dev/duty-roster/backend/internal/domain"
)

// 规则的列表型子句放在两张子表里：
// protected_rule_days 存星期子句（kind 为 blocked 或 allowed），
// protected_rule_values 存班别和发车时刻子句（kind 为 class 或 start_time）

func (r *Repository) GetAllProtectedRules() ([]*domain.ProtectedDriverRule, error) {
	ctx, cancel := r.queryCtx()
	defer cancel()

	query := `
		SELECT
			pr.id,
			pr.driver_id,
			pr.description,
			pr.effective_from,
			pr.effective_to,
			pr.latest_start_time,
			pr.created_at,
			pr.version,
			prd.kind,
			prd.day,
			prv.kind,
			prv.value
		FROM protected_rules pr
		LEFT JOIN protected_rule_days prd ON pr.id = prd.rule_id
		LEFT JOIN protected_rule_values prv ON pr.id = prv.rule_id
		ORDER BY pr.id, prd.day, prv.value
	`

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rulesMap := make(map[int64]*domain.ProtectedDriverRule)
	seenDays := make(map[int64]map[string]bool)
	seenValues := make(map[int64]map[string]bool)
	order := make([]int64, 0)

	for rows.Next() {
		var row struct {
			ID              int64
			DriverID        int64
			Description     string
			EffectiveFrom   time.Time
			EffectiveTo     sql.NullTime
			LatestStartTime sql.NullString
			CreatedAt       time.Time
			Version         int32

			DayKind   sql.NullString
			Day       sql.NullInt32
			ValueKind sql.NullString
			Value     sql.NullString
		}

		dst := []any{
			&row.ID,
			&row.DriverID,
			&row.Description,
			&row.EffectiveFrom,
			&row.EffectiveTo,
			&row.LatestStartTime,
			&row.CreatedAt,
			&row.Version,
			&row.DayKind,
			&row.Day,
			&row.ValueKind,
			&row.Value,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		rule, exists := rulesMap[row.ID]
		if !exists {
			rule = &domain.ProtectedDriverRule{
				ID:                row.ID,
				DriverID:          row.DriverID,
				Description:       row.Description,
				EffectiveFrom:     row.EffectiveFrom,
				EffectiveTo:       row.EffectiveTo.Time,
				BlockedDays:       make([]time.Weekday, 0),
				AllowedDays:       make([]time.Weekday, 0),
				AllowedClasses:    make([]domain.DutyClass, 0),
				AllowedStartTimes: make([]string, 0),
				LatestStartTime:   row.LatestStartTime.String,
				CreatedAt:         row.CreatedAt,
				Version:           row.Version,
			}
			rulesMap[row.ID] = rule
			seenDays[row.ID] = make(map[string]bool)
			seenValues[row.ID] = make(map[string]bool)
			order = append(order, row.ID)
		}

		// 两张子表做笛卡尔积后同一条子句会重复出现，去重后再解析
		if row.DayKind.Valid && row.Day.Valid {
			key := row.DayKind.String + ":" + string(rune('0'+row.Day.Int32))
			if !seenDays[row.ID][key] {
				seenDays[row.ID][key] = true
				switch row.DayKind.String {
				case "blocked":
					rule.BlockedDays = append(rule.BlockedDays, time.Weekday(row.Day.Int32))
				case "allowed":
					rule.AllowedDays = append(rule.AllowedDays, time.Weekday(row.Day.Int32))
				}
			}
		}

		if row.ValueKind.Valid && row.Value.Valid {
			key := row.ValueKind.String + ":" + row.Value.String
			if !seenValues[row.ID][key] {
				seenValues[row.ID][key] = true
				switch row.ValueKind.String {
				case "class":
					rule.AllowedClasses = append(rule.AllowedClasses, domain.DutyClass(row.Value.String))
				case "start_time":
					rule.AllowedStartTimes = append(rule.AllowedStartTimes, row.Value.String)
				}
			}
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	rules := make([]*domain.ProtectedDriverRule, 0, len(order))
	for _, id := range order {
		rules = append(rules, rulesMap[id])
	}

	return rules, nil
}

func (r *Repository) CreateProtectedRule(rule *domain.ProtectedDriverRule) error {
	ctx, cancel := r.txCtx()
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var effectiveTo sql.NullTime
	if !rule.EffectiveTo.IsZero() {
		effectiveTo = sql.NullTime{Time: rule.EffectiveTo, Valid: true}
	}
	var latestStartTime sql.NullString
	if rule.LatestStartTime != "" {
		latestStartTime = sql.NullString{String: rule.LatestStartTime, Valid: true}
	}

	query := `
		INSERT INTO protected_rules (driver_id, description, effective_from, effective_to, latest_start_time)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, version
	`
	args := []any{rule.DriverID, rule.Description, rule.EffectiveFrom, effectiveTo, latestStartTime}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&rule.ID, &rule.CreatedAt, &rule.Version); err != nil {
		return err
	}

	if err := insertRuleClauses(ctx, tx, rule); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

func (r *Repository) UpdateProtectedRule(rule *domain.ProtectedDriverRule) error {
	ctx, cancel := r.txCtx()
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var effectiveTo sql.NullTime
	if !rule.EffectiveTo.IsZero() {
		effectiveTo = sql.NullTime{Time: rule.EffectiveTo, Valid: true}
	}
	var latestStartTime sql.NullString
	if rule.LatestStartTime != "" {
		latestStartTime = sql.NullString{String: rule.LatestStartTime, Valid: true}
	}

	query := `
		UPDATE protected_rules
		SET
			description = $1,
			effective_from = $2,
			effective_to = $3,
			latest_start_time = $4,
			version = version + 1
		WHERE id = $5 AND version = $6
		RETURNING created_at, version
	`
	args := []any{rule.Description, rule.EffectiveFrom, effectiveTo, latestStartTime, rule.ID, rule.Version}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&rule.CreatedAt, &rule.Version); err != nil {
		return err
	}

	// 子句全量重写
	query = `
		DELETE FROM protected_rule_days WHERE rule_id = $1
	`
	if _, err := tx.ExecContext(ctx, query, rule.ID); err != nil {
		return err
	}
	query = `
		DELETE FROM protected_rule_values WHERE rule_id = $1
	`
	if _, err := tx.ExecContext(ctx, query, rule.ID); err != nil {
		return err
	}

	if err := insertRuleClauses(ctx, tx, rule); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

func (r *Repository) DeleteProtectedRule(id int64) error {
	ctx, cancel := r.queryCtx()
	defer cancel()

	query := `
		DELETE FROM protected_rules WHERE id = $1
	`
	if _, err := r.dbpool.ExecContext(ctx, query, id); err != nil {
		return err
	}

	return nil
}

func insertRuleClauses(ctx context.Context, tx *sql.Tx, rule *domain.ProtectedDriverRule) error {
	dayQuery := `
		INSERT INTO protected_rule_days (rule_id, kind, day)
		VALUES ($1, $2, $3)
	`
	for _, day := range rule.BlockedDays {
		if _, err := tx.ExecContext(ctx, dayQuery, rule.ID, "blocked", int32(day)); err != nil {
			return err
		}
	}
	for _, day := range rule.AllowedDays {
		if _, err := tx.ExecContext(ctx, dayQuery, rule.ID, "allowed", int32(day)); err != nil {
			return err
		}
	}

	valueQuery := `
		INSERT INTO protected_rule_values (rule_id, kind, value)
		VALUES ($1, $2, $3)
	`
	for _, class := range rule.AllowedClasses {
		if _, err := tx.ExecContext(ctx, valueQuery, rule.ID, "class", string(class)); err != nil {
			return err
		}
	}
	for _, clock := range rule.AllowedStartTimes {
		if _, err := tx.ExecContext(ctx, valueQuery, rule.ID, "start_time", clock); err != nil {
			return err
		}
	}

	return nil
}
