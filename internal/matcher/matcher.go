package matcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fleetops-dev/duty-roster/backend/internal/compliance"
	"github.com/fleetops-dev/duty-roster/backend/internal/config"
	"github.com/fleetops-dev/duty-roster/backend/internal/domain"
)

// Matcher 是确定性的贪心分配器：按最难优先的顺序逐个处理任务，
// 对每个任务并发地做完整合规校验，给幸存的候选打分后提交最优者。
// 相同的输入（司机、任务、历史、预测分）必须产生完全相同的输出
type Matcher struct {
	validator *compliance.Validator
	cfg       *config.Config
}

func New(validator *compliance.Validator, cfg *config.Config) *Matcher {
	return &Matcher{
		validator: validator,
		cfg:       cfg,
	}
}

type Input struct {
	Drivers  []*domain.Driver
	Subjects []domain.DutySubject
	// PriorAssignments 要包含已归档的行，滚动窗口的账目依赖完整历史
	PriorAssignments []*domain.Assignment
	ProtectedRules   []*domain.ProtectedDriverRule
	// OwnershipScores 的键为 OwnershipKey(driverID, slotKey)。
	// 为 nil 表示预测服务的批量调用整体失败，打分退化为星期亲和分
	OwnershipScores   map[string]float64
	PatternConfidence map[int64]float64
	UnavailableDates  map[int64]map[string]bool
	Now               time.Time
	Options           domain.MatchOptions
}

func (m *Matcher) Match(ctx context.Context, in *Input) (*domain.MatchResult, error) {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	// 不在岗或不允许承接的司机直接不进入候选
	activeDrivers := make([]*domain.Driver, 0, len(in.Drivers))
	for _, d := range in.Drivers {
		if d.IsActive && d.LoadEligible {
			activeDrivers = append(activeDrivers, d)
		}
	}

	drivers, excluded := m.excludeDrivers(activeDrivers, in.PriorAssignments, in.PatternConfidence, now)

	st := NewRunState(in.PriorAssignments)
	snap := &Snapshot{
		// 和运行状态共享同一份忙碌日期表，提交之后预筛立即能看到
		BusyDates:            st.BusyDates,
		UnavailableDates:     in.UnavailableDates,
		PatternConfidence:    in.PatternConfidence,
		TimeSlotLock:         computeSlotLocks(in.PriorAssignments, m.cfg.Matching.SlotLockConfidence),
		MinPatternConfidence: m.cfg.Matching.MinPatternConfidence,
	}

	affinity := buildDayAffinity(in.PriorAssignments)
	degraded := in.OwnershipScores == nil

	worklist := BuildWorklist(in.Subjects, drivers, snap)

	result := &domain.MatchResult{
		Assigned:        []domain.AssignedSubject{},
		Unassigned:      []domain.UnassignedSubject{},
		ExcludedDrivers: excluded,
	}

	for _, item := range worklist {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		subject := item.Subject

		// 预筛阶段就没有任何候选的任务不值得做完整校验
		if item.EligibleCount == 0 {
			result.Unassigned = append(result.Unassigned, domain.UnassignedSubject{
				SubjectID: subject.ID,
				Reason:    domain.ReasonNoEligibleDriver,
			})
			continue
		}

		// 重新推导当前可用的候选：司机可能因为本次运行中
		// 前面已提交的任务而变得忙碌，不能只看运行前的快照
		eligible := make([]*domain.Driver, 0, item.EligibleCount)
		for _, driver := range drivers {
			if IsFastEligible(driver, &subject, snap) {
				eligible = append(eligible, driver)
			}
		}

		if len(eligible) == 0 {
			result.Unassigned = append(result.Unassigned, domain.UnassignedSubject{
				SubjectID: subject.ID,
				Reason:    domain.ReasonNoEligibleDriver,
				Details:   []string{"候选司机都被本次运行中更早提交的任务占用"},
			})
			continue
		}

		// 对每个候选并发执行完整校验。校验只读共享状态，
		// 结果按下标收集，处理顺序和候选顺序一致，保证确定性
		verdicts := make([]*compliance.Verdict, len(eligible))
		var wg sync.WaitGroup
		for i, driver := range eligible {
			wg.Add(1)
			go func(i int, driver *domain.Driver) {
				defer wg.Done()
				verdicts[i] = m.validator.ValidateAssignment(
					driver, &subject, st.History, in.ProtectedRules, st.Active, subject.ConflictKey)
			}(i, driver)
		}
		wg.Wait()

		type candidate struct {
			driver  *domain.Driver
			verdict *compliance.Verdict
			score   float64
			reasons []string
		}

		survivors := []candidate{}
		failDetails := []string{}
		for i, driver := range eligible {
			v := verdicts[i]
			if !v.CanAssign {
				for _, msg := range v.Result.Messages {
					failDetails = append(failDetails, fmt.Sprintf("司机 %d：%s", driver.ID, msg))
				}
				continue
			}
			survivors = append(survivors, candidate{driver: driver, verdict: v})
		}

		if len(survivors) == 0 {
			result.Unassigned = append(result.Unassigned, domain.UnassignedSubject{
				SubjectID: subject.ID,
				Reason:    domain.ReasonAllFailedValidation,
				Details: append(
					[]string{fmt.Sprintf("预筛候选 %d 个，全部未通过完整校验", len(eligible))},
					failDetails...),
			})
			continue
		}

		scored := survivors[:0]
		for _, c := range survivors {
			c.score, c.reasons = m.scoreCandidate(c.driver, &subject, st, in, affinity, degraded)
			if c.score < in.Options.MinScore {
				continue
			}
			scored = append(scored, c)
		}

		if len(scored) == 0 {
			result.Unassigned = append(result.Unassigned, domain.UnassignedSubject{
				SubjectID: subject.ID,
				Reason:    domain.ReasonAllBelowMinScore,
				Details:   []string{fmt.Sprintf("候选得分均低于下限 %.2f", in.Options.MinScore)},
			})
			continue
		}

		// 得分相同取候选顺序靠前的（即传入司机列表里的原始顺序），
		// 严格大于的比较保证并列时结果稳定
		best := scored[0]
		for _, c := range scored[1:] {
			if c.score > best.score {
				best = c
			}
		}

		st.Commit(best.driver, &subject, best.verdict.Result.Status, now)

		assigned := domain.AssignedSubject{
			SubjectID: subject.ID,
			DriverID:  best.driver.ID,
			Score:     best.score,
			Reasons:   best.reasons,
		}
		if best.verdict.Result.Status == domain.ValidationStatusWarning {
			assigned.Warnings = best.verdict.Result.Messages
			result.Stats.WarningCount++
		}
		result.Assigned = append(result.Assigned, assigned)
	}

	result.Stats.TotalSubjects = len(in.Subjects)
	result.Stats.TotalDrivers = len(in.Drivers)
	result.Stats.AssignedCount = len(result.Assigned)
	result.Stats.UnassignedCount = len(result.Unassigned)
	result.Stats.ExcludedDrivers = len(excluded)
	result.Stats.PredictionDegraded = degraded

	return result, nil
}

// computeSlotLocks 找出历史发车时间高度集中的司机：
// 当某个时刻的占比达到锁定阈值时，预筛只放行发车时间完全一致的任务
func computeSlotLocks(history []*domain.Assignment, lockConfidence float64) map[int64]string {
	counts := make(map[int64]map[string]int)
	totals := make(map[int64]int)

	for _, a := range history {
		clock := a.SubjectStart.Format("15:04")
		if counts[a.DriverID] == nil {
			counts[a.DriverID] = make(map[string]int)
		}
		counts[a.DriverID][clock]++
		totals[a.DriverID]++
	}

	locks := make(map[int64]string)
	for driverID, clocks := range counts {
		best := ""
		bestCount := 0
		for clock, n := range clocks {
			// 并列时取较早的时刻，保证 map 遍历顺序不影响结果
			if n > bestCount || (n == bestCount && (best == "" || clock < best)) {
				best = clock
				bestCount = n
			}
		}

		if totals[driverID] > 0 && float64(bestCount)/float64(totals[driverID]) >= lockConfidence {
			locks[driverID] = best
		}
	}

	return locks
}
