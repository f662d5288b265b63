package main

import (
	"testing"
	"time"

	"github.com/fleetops-dev/duty-roster/backend/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestNewAssignment(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.Local)
	subject := &domain.DutySubject{
		ID:            "occ:op-1:7:20260309",
		StartTime:     time.Date(2026, 3, 9, 6, 0, 0, 0, time.Local),
		EndTime:       time.Date(2026, 3, 9, 14, 0, 0, 0, time.Local),
		DurationHours: 8,
		DutyClass:     domain.DutyClassA,
	}

	t.Run("带上任务快照和分配时间", func(t *testing.T) {
		a := newAssignment(subject, domain.AssignedSubject{SubjectID: subject.ID, DriverID: 3, Score: 0.9}, now)

		require.Equal(t, int64(3), a.DriverID)
		require.Equal(t, subject.ID, a.SubjectID)
		require.Equal(t, subject.StartTime, a.SubjectStart)
		require.Equal(t, subject.EndTime, a.SubjectEnd)
		require.Equal(t, subject.DurationHours, a.DurationHours)
		require.Equal(t, subject.DutyClass, a.DutyClass)
		require.True(t, a.IsActive)
		require.Equal(t, string(domain.ValidationStatusValid), a.ValidationStatus)
		// 分配时间必须取运行时钟，零值会原样写进数据库
		require.False(t, a.AssignedAt.IsZero())
		require.Equal(t, now, a.AssignedAt)
	})

	t.Run("带警告的结果记为警告状态", func(t *testing.T) {
		a := newAssignment(subject, domain.AssignedSubject{
			SubjectID: subject.ID,
			DriverID:  3,
			Warnings:  []string{"休息时间不足 11 小时"},
		}, now)

		require.Equal(t, string(domain.ValidationStatusWarning), a.ValidationStatus)
	})
}
