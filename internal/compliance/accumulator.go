package compliance

import (
	"time"

	"github.com/fleetops-dev/duty-roster/backend/internal/domain"
)

// AccumulateHours 计算某个司机在窗口 [windowStart, windowEnd) 内的累计值勤时长。
// 对于只有一部分落在窗口内的分配，只累计落在窗口内的那一段，而不是整个任务的时长。
// 纯函数，没有副作用。
// 结果统一保留 4 位小数，避免浮点误差让恰好卡在上限的任务产生假的违规
func AccumulateHours(driverID int64, windowStart, windowEnd time.Time, assignments []*domain.Assignment) float64 {
	total := 0.0

	for _, a := range assignments {
		if a.DriverID != driverID {
			continue
		}

		start := a.SubjectStart
		if start.Before(windowStart) {
			start = windowStart
		}
		end := a.SubjectEnd
		if end.After(windowEnd) {
			end = windowEnd
		}

		if overlap := end.Sub(start); overlap > 0 {
			total += overlap.Hours()
		}
	}

	return domain.NormalizeHours(total)
}
