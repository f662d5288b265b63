package repository

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fleetops-dev/duty-roster/backend/internal/config"
	"github.com/fleetops-dev/duty-roster/backend/internal/domain"
	"github.com/stretchr/testify/require"
)

func newMockRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{}
	cfg.Database.QueryTimeout = 5
	cfg.Database.TransactionTimeout = 10

	return NewRepository(cfg, db), mock
}

func TestReplaceActiveAssignment(t *testing.T) {
	start := time.Date(2026, 3, 9, 6, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC)
	assignedAt := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	newAssignment := func() *domain.Assignment {
		return &domain.Assignment{
			DriverID:         3,
			SubjectID:        "block:ext-9",
			SubjectStart:     start,
			SubjectEnd:       end,
			DurationHours:    8,
			DutyClass:        domain.DutyClassA,
			ValidationStatus: string(domain.ValidationStatusValid),
			AssignedAt:       assignedAt,
		}
	}

	t.Run("同一事务里先归档再插入", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		a := newAssignment()

		mock.ExpectBegin()
		// 归档只针对同一个任务的有效行，保证任意时刻每个任务至多一条有效分配
		mock.ExpectExec(regexp.QuoteMeta("UPDATE assignments") + `\s+` +
			regexp.QuoteMeta("SET is_active = FALSE, archived_at = NOW()") + `\s+` +
			regexp.QuoteMeta("WHERE subject_id = $1 AND is_active = TRUE")).
			WithArgs("block:ext-9").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO assignments")).
			WithArgs(int64(3), "block:ext-9", start, end, 8.0, string(domain.DutyClassA), string(domain.ValidationStatusValid), assignedAt).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
		mock.ExpectCommit()

		require.NoError(t, repo.ReplaceActiveAssignment(a))
		require.Equal(t, int64(42), a.ID)
		require.True(t, a.IsActive)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("插入失败时整个事务回滚", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		a := newAssignment()

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("UPDATE assignments")).
			WithArgs("block:ext-9").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO assignments")).
			WillReturnError(errors.New("connection reset"))
		mock.ExpectRollback()

		require.Error(t, repo.ReplaceActiveAssignment(a))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("归档失败时不执行插入", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		a := newAssignment()

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("UPDATE assignments")).
			WithArgs("block:ext-9").
			WillReturnError(errors.New("connection reset"))
		mock.ExpectRollback()

		require.Error(t, repo.ReplaceActiveAssignment(a))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
