package matcher

import (
	"sort"

	"github.com/fleetops-dev/duty-roster/backend/internal/domain"
)

// Snapshot 是预筛需要的全部只读输入。预筛是同步、无 IO 的廉价检查，
// 刻意放过昂贵的滚动窗口和休息检查（那些在主循环里并发执行），
// 所以它给出的是候选集的上估计：实际可用的司机会比这里少一到两成
type Snapshot struct {
	// BusyDates 和 RunState 共享同一份 map，主循环提交后预筛自动看到
	BusyDates map[int64]map[string]bool
	// UnavailableDates 是已批准的请假日期
	UnavailableDates map[int64]map[string]bool
	// PatternConfidence 是预测服务给出的每个司机的模式置信度
	PatternConfidence map[int64]float64
	// TimeSlotLock 是历史发车时间的锁定：当某个司机的历史发车时间
	// 以足够高的置信度集中在同一个时刻时，值为该时刻（15:04 格式）
	TimeSlotLock map[int64]string

	MinPatternConfidence float64
}

// IsFastEligible 按固定顺序执行廉价检查，任何一项不通过立即返回 false：
// 时间锁定 > 当日已占用 > 已批准请假 > 配置的休息日 > 班别不匹配 > 置信度过低
func IsFastEligible(driver *domain.Driver, subject *domain.DutySubject, snap *Snapshot) bool {
	if lock, ok := snap.TimeSlotLock[driver.ID]; ok {
		if subject.StartTime.Format("15:04") != lock {
			return false
		}
	}

	dates := subject.SpannedDates()

	if busy := snap.BusyDates[driver.ID]; busy != nil {
		for _, d := range dates {
			if busy[d] {
				return false
			}
		}
	}

	if unavailable := snap.UnavailableDates[driver.ID]; unavailable != nil {
		for _, d := range dates {
			if unavailable[d] {
				return false
			}
		}
	}

	if driver.HasDayOff(subject.StartTime.Weekday()) {
		return false
	}

	if !driver.ContractClass.CanTakeClass(subject.DutyClass) {
		return false
	}

	if snap.PatternConfidence[driver.ID] < snap.MinPatternConfidence {
		return false
	}

	return true
}

// WorklistItem 是工作清单里的一项：任务加上预筛算出的候选数
type WorklistItem struct {
	Subject       domain.DutySubject
	EligibleCount int
}

// BuildWorklist 对每个任务统计预筛可用的司机数量，并按
// 候选数升序排序（最难填的排最前），候选数相同按发车时间，
// 再相同按任务 id，保证全序、保证每次运行顺序一致。
//
// 先分配容易（候选多）的任务会把困难任务仅有的几个司机抢走；
// 最难优先能保证只有一个候选的任务一定能拿到那个司机
func BuildWorklist(subjects []domain.DutySubject, drivers []*domain.Driver, snap *Snapshot) []WorklistItem {
	items := make([]WorklistItem, 0, len(subjects))

	for _, subject := range subjects {
		count := 0
		for _, driver := range drivers {
			if IsFastEligible(driver, &subject, snap) {
				count++
			}
		}
		items = append(items, WorklistItem{Subject: subject, EligibleCount: count})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].EligibleCount != items[j].EligibleCount {
			return items[i].EligibleCount < items[j].EligibleCount
		}
		if !items[i].Subject.StartTime.Equal(items[j].Subject.StartTime) {
			return items[i].Subject.StartTime.Before(items[j].Subject.StartTime)
		}
		return items[i].Subject.ID < items[j].Subject.ID
	})

	return items
}
