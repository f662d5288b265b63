package compliance

import (
	"testing"
	"time"

	"github.com/fleetops-dev/duty-roster/backend/internal/domain"
	"github.com/stretchr/testify/require"
)

func mkAssignment(driverID int64, subjectID string, start time.Time, hours float64) *domain.Assignment {
	return &domain.Assignment{
		DriverID:      driverID,
		SubjectID:     subjectID,
		SubjectStart:  start,
		SubjectEnd:    start.Add(time.Duration(hours * float64(time.Hour))),
		DurationHours: hours,
		DutyClass:     domain.DutyClassA,
		IsActive:      true,
	}
}

func TestAccumulateHours(t *testing.T) {
	base := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	t.Run("完全落在窗口内的分配按全长累计", func(t *testing.T) {
		assignments := []*domain.Assignment{
			mkAssignment(1, "s1", base.Add(2*time.Hour), 5),
			mkAssignment(1, "s2", base.Add(10*time.Hour), 3),
		}

		hours := AccumulateHours(1, base, base.Add(24*time.Hour), assignments)
		require.Equal(t, 8.0, hours)
	})

	t.Run("部分落在窗口内的分配只累计重叠部分", func(t *testing.T) {
		// 任务从窗口开始前 3 小时开始，总长 8 小时，只有 5 小时落在窗口内
		assignments := []*domain.Assignment{
			mkAssignment(1, "s1", base.Add(-3*time.Hour), 8),
		}

		hours := AccumulateHours(1, base, base.Add(24*time.Hour), assignments)
		require.Equal(t, 5.0, hours)

		// 尾部越过窗口结束的情况
		assignments = []*domain.Assignment{
			mkAssignment(1, "s2", base.Add(22*time.Hour), 6),
		}
		hours = AccumulateHours(1, base, base.Add(24*time.Hour), assignments)
		require.Equal(t, 2.0, hours)
	})

	t.Run("完全在窗口外的分配不计入", func(t *testing.T) {
		assignments := []*domain.Assignment{
			mkAssignment(1, "s1", base.Add(-10*time.Hour), 5),
			mkAssignment(1, "s2", base.Add(30*time.Hour), 5),
		}

		hours := AccumulateHours(1, base, base.Add(24*time.Hour), assignments)
		require.Equal(t, 0.0, hours)
	})

	t.Run("其他司机的分配不计入", func(t *testing.T) {
		assignments := []*domain.Assignment{
			mkAssignment(1, "s1", base.Add(2*time.Hour), 5),
			mkAssignment(2, "s2", base.Add(2*time.Hour), 5),
		}

		hours := AccumulateHours(1, base, base.Add(24*time.Hour), assignments)
		require.Equal(t, 5.0, hours)
	})

	t.Run("纯函数：相同输入重复调用结果一致", func(t *testing.T) {
		assignments := []*domain.Assignment{
			mkAssignment(1, "s1", base.Add(-3*time.Hour), 8),
			mkAssignment(1, "s2", base.Add(5*time.Hour), 4.25),
		}

		first := AccumulateHours(1, base, base.Add(24*time.Hour), assignments)
		second := AccumulateHours(1, base, base.Add(24*time.Hour), assignments)
		require.Equal(t, first, second)
	})

	t.Run("结果保留 4 位小数", func(t *testing.T) {
		// 10 分 1 秒 = 0.16694444... 小时
		assignments := []*domain.Assignment{
			{
				DriverID:     1,
				SubjectID:    "s1",
				SubjectStart: base,
				SubjectEnd:   base.Add(10*time.Minute + time.Second),
				IsActive:     true,
			},
		}

		hours := AccumulateHours(1, base, base.Add(24*time.Hour), assignments)
		require.Equal(t, 0.1669, hours)
	})
}
