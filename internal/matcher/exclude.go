package matcher

import (
	"time"

	"github.com/fleetops-dev/duty-roster/backend/internal/domain"
)

// excludeDrivers 在匹配开始前剔除历史太少、不足以信任其模式分的司机。
// 被剔除的司机必须带着原因码出现在输出里，调度员要能看出
// 某个司机为什么从来不出现在建议名单中，而不是让他凭空消失
func (m *Matcher) excludeDrivers(
	drivers []*domain.Driver,
	history []*domain.Assignment,
	confidence map[int64]float64,
	now time.Time,
) ([]*domain.Driver, []domain.ExcludedDriver) {
	windowStart := now.AddDate(0, 0, -7*m.cfg.Matching.HistoryWindowWeeks)

	totalCount := make(map[int64]int)
	windowCount := make(map[int64]int)
	for _, a := range history {
		totalCount[a.DriverID]++
		if !a.SubjectStart.Before(windowStart) && a.SubjectStart.Before(now) {
			windowCount[a.DriverID]++
		}
	}

	kept := make([]*domain.Driver, 0, len(drivers))
	excluded := []domain.ExcludedDriver{}

	for _, driver := range drivers {
		switch {
		case totalCount[driver.ID] == 0:
			excluded = append(excluded, domain.ExcludedDriver{
				DriverID:   driver.ID,
				ReasonCode: domain.ExclusionNewDriver,
			})
		case windowCount[driver.ID] < m.cfg.Matching.MinHistoryAssignments:
			excluded = append(excluded, domain.ExcludedDriver{
				DriverID:   driver.ID,
				ReasonCode: domain.ExclusionInsufficientHistory,
			})
		case confidence[driver.ID] < m.cfg.Matching.MinPatternConfidence:
			excluded = append(excluded, domain.ExcludedDriver{
				DriverID:   driver.ID,
				ReasonCode: domain.ExclusionLowConfidence,
			})
		default:
			kept = append(kept, driver)
		}
	}

	return kept, excluded
}
