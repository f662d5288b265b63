package matcher

import (
	"fmt"

	"github.com/fleetops-dev/duty-roster/backend/internal/domain"
)

// OwnershipKey 是归属分查询表的键，和预测服务的批量返回保持一致
func OwnershipKey(driverID int64, slotKey string) string {
	return fmt.Sprintf("%d|%s", driverID, slotKey)
}

// buildDayAffinity 从历史分配里统计每个司机在每个星期几的出勤占比，
// 作为没有直接预测分时的退路
func buildDayAffinity(history []*domain.Assignment) map[int64][7]float64 {
	counts := make(map[int64]*[7]int)
	totals := make(map[int64]int)

	for _, a := range history {
		if counts[a.DriverID] == nil {
			counts[a.DriverID] = &[7]int{}
		}
		counts[a.DriverID][int(a.SubjectStart.Weekday())]++
		totals[a.DriverID]++
	}

	affinity := make(map[int64][7]float64, len(counts))
	for driverID, c := range counts {
		var f [7]float64
		for i := range c {
			f[i] = float64(c[i]) / float64(totals[driverID])
		}
		affinity[driverID] = f
	}

	return affinity
}

// scoreCandidate 给通过完整校验的候选司机打分。
//
// base = 归属分*predictability + 星期亲和分*(1-predictability)。
// 没有归属分时按 0 处理，绝不能默认成中间值：没有历史
// 不等于五五开。预测服务整批失败时退化为只用星期亲和分。
//
// 在 base 之上叠加三种加成：公平性（本次运行分得越少加成越高）、
// 低于“最少天数”滑块的补足加成、已批准多排班申请的优先加成。
// 置信度低的司机三种加成统一减半，防止他们光靠加成
// 压过有稳定模式的老司机。最终得分收敛到 [0,1]
func (m *Matcher) scoreCandidate(
	driver *domain.Driver,
	subject *domain.DutySubject,
	st *RunState,
	in *Input,
	affinity map[int64][7]float64,
	degraded bool,
) (float64, []string) {
	reasons := []string{}

	dayScore := affinity[driver.ID][int(subject.StartTime.Weekday())]

	var base float64
	if degraded {
		base = dayScore
		reasons = append(reasons, "预测服务不可用，使用星期亲和分")
	} else {
		ownership, ok := in.OwnershipScores[OwnershipKey(driver.ID, subject.SlotKey())]
		if !ok {
			ownership = 0
		}
		w := in.Options.Predictability
		base = ownership*w + dayScore*(1-w)
		if ok {
			reasons = append(reasons, fmt.Sprintf("历史归属分 %.2f", ownership))
		}
	}

	bonus := 0.0

	// 公平性加成：本次运行分得越少加成越高
	fairness := m.cfg.Matching.FairnessBonus / float64(1+st.AssignedCount[driver.ID])
	bonus += fairness

	if st.DaysAssigned(driver.ID) < in.Options.MinDaysFloor {
		bonus += m.cfg.Matching.BelowFloorBonus
		reasons = append(reasons, fmt.Sprintf("尚未达到每周最少 %d 天", in.Options.MinDaysFloor))
	}

	if driver.WantsMoreWork {
		bonus += m.cfg.Matching.PriorityBonus
		reasons = append(reasons, "已批准多排班申请")
	}

	if in.PatternConfidence[driver.ID] < m.cfg.Matching.LowConfidenceCutoff {
		bonus *= 0.5
		reasons = append(reasons, "模式置信度偏低，加成减半")
	}

	score := base + bonus
	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}

	return score, reasons
}
