package matcher

import (
	"context"
	"testing"
	"time"

	"github.com/fleetops-dev/duty-roster/backend/internal/compliance"
	"github.com/fleetops-dev/duty-roster/backend/internal/config"
	"github.com/fleetops-dev/duty-roster/backend/internal/domain"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Compliance.DutyClassRules = "A:24:14,B:48:38"
	cfg.Compliance.MinRestHours = 10
	cfg.Compliance.RestWarnMargin = 1
	cfg.Compliance.DutyWarnRatio = 0.9
	cfg.Matching.MinHistoryAssignments = 1
	cfg.Matching.HistoryWindowWeeks = 8
	cfg.Matching.MinPatternConfidence = 0.1
	cfg.Matching.LowConfidenceCutoff = 0.5
	cfg.Matching.SlotLockConfidence = 0.7
	cfg.Matching.FairnessBonus = 0.1
	cfg.Matching.BelowFloorBonus = 0.1
	cfg.Matching.PriorityBonus = 0.05
	return cfg
}

func testMatcher(t *testing.T, cfg *config.Config) *Matcher {
	t.Helper()
	v, err := compliance.NewValidator(cfg)
	require.NoError(t, err)
	return New(v, cfg)
}

func mkSubject(id string, start time.Time, hours float64, class domain.DutyClass) *domain.DutySubject {
	return &domain.DutySubject{
		ID:            id,
		StartTime:     start,
		EndTime:       start.Add(time.Duration(hours * float64(time.Hour))),
		DurationHours: domain.NormalizeHours(hours),
		DutyClass:     class,
		PatternGroup:  domain.PatternGroupSunWed,
	}
}

func mkDriver(id int64, name string, class domain.ContractClass) *domain.Driver {
	return &domain.Driver{
		ID:            id,
		Name:          name,
		ContractClass: class,
		IsActive:      true,
		LoadEligible:  true,
	}
}

// historyFor 生成远在待排任务之前的历史分配：
// 数量足以通过排除检查，又不会触碰休息和滚动窗口的账目。
// 发车时刻刻意打散，避免历史集中到一个时刻后触发时间锁定
func historyFor(driverID int64, now time.Time, n int) []*domain.Assignment {
	history := make([]*domain.Assignment, 0, n)
	for i := 0; i < n; i++ {
		start := now.AddDate(0, 0, -7*(i%6+1)).Add(time.Duration(6+i%3) * time.Hour)
		history = append(history, &domain.Assignment{
			DriverID:      driverID,
			SubjectID:     "hist:" + string(rune('a'+i)),
			SubjectStart:  start,
			SubjectEnd:    start.Add(8 * time.Hour),
			DurationHours: 8,
			DutyClass:     domain.DutyClassA,
			IsActive:      true,
		})
	}
	return history
}

func TestMatch_HardestFirstPreventsStarvation(t *testing.T) {
	m := testMatcher(t, testConfig())
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	// 司机 1 两种班别都能接，司机 2 只能接 A 类。
	// B 类任务只有司机 1 这一个候选；同一天的 A 类任务两人都能接。
	// 如果先处理容易的 A 类任务，司机 1 的归属分更高会被它抢走，
	// B 类任务就没人接了；最难优先保证 B 类任务先拿到司机 1
	d1 := mkDriver(1, "孙磊", domain.ContractClassBoth)
	d2 := mkDriver(2, "周杰", domain.ContractClassA)

	day := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)
	hard := mkSubject("s-hard", day.Add(8*time.Hour), 6, domain.DutyClassB)
	easy := mkSubject("s-easy", day.Add(9*time.Hour), 6, domain.DutyClassA)

	history := append(historyFor(1, now, 2), historyFor(2, now, 2)...)

	in := &Input{
		Drivers:          []*domain.Driver{d1, d2},
		Subjects:         []domain.DutySubject{*easy, *hard},
		PriorAssignments: history,
		OwnershipScores: map[string]float64{
			OwnershipKey(1, easy.SlotKey()): 0.9,
			OwnershipKey(2, easy.SlotKey()): 0.2,
			OwnershipKey(1, hard.SlotKey()): 0.9,
		},
		PatternConfidence: map[int64]float64{1: 0.9, 2: 0.9},
		Now:               now,
		Options:           domain.MatchOptions{Predictability: 0.7, MinDaysFloor: 3},
	}

	result, err := m.Match(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, result.Assigned, 2)
	require.Empty(t, result.Unassigned)

	byID := map[string]int64{}
	for _, a := range result.Assigned {
		byID[a.SubjectID] = a.DriverID
	}
	require.Equal(t, int64(1), byID["s-hard"])
	require.Equal(t, int64(2), byID["s-easy"])
}

func TestMatch_Deterministic(t *testing.T) {
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	day := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)

	build := func() *Input {
		drivers := []*domain.Driver{
			mkDriver(1, "吴超", domain.ContractClassA),
			mkDriver(2, "郑华", domain.ContractClassA),
			mkDriver(3, "王平", domain.ContractClassBoth),
			mkDriver(4, "冯辉", domain.ContractClassB),
		}

		subjects := []domain.DutySubject{
			*mkSubject("s1", day.Add(6*time.Hour), 6, domain.DutyClassA),
			*mkSubject("s2", day.Add(7*time.Hour), 5, domain.DutyClassA),
			*mkSubject("s3", day.Add(20*time.Hour), 8, domain.DutyClassB),
			*mkSubject("s4", day.Add(30*time.Hour), 6, domain.DutyClassA),
		}

		history := []*domain.Assignment{}
		for _, d := range drivers {
			history = append(history, historyFor(d.ID, now, 3)...)
		}

		return &Input{
			Drivers:          drivers,
			Subjects:         subjects,
			PriorAssignments: history,
			OwnershipScores: map[string]float64{
				OwnershipKey(1, subjects[0].SlotKey()): 0.8,
				OwnershipKey(2, subjects[0].SlotKey()): 0.8, // 故意和司机 1 并列
				OwnershipKey(3, subjects[2].SlotKey()): 0.6,
			},
			PatternConfidence: map[int64]float64{1: 0.9, 2: 0.9, 3: 0.7, 4: 0.6},
			Now:               now,
			Options:           domain.MatchOptions{Predictability: 0.7, MinDaysFloor: 3},
		}
	}

	m := testMatcher(t, testConfig())
	first, err := m.Match(context.Background(), build())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := m.Match(context.Background(), build())
		require.NoError(t, err)
		require.Equal(t, first, again)
	}

	// 司机 1 和司机 2 对 s1 的归属分相同，得分并列时
	// 取传入司机列表中靠前的那个
	for _, a := range first.Assigned {
		if a.SubjectID == "s1" {
			require.Equal(t, int64(1), a.DriverID)
		}
	}
}

func TestMatch_OverlappingSubjectsSameDriver(t *testing.T) {
	m := testMatcher(t, testConfig())
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	day := time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC)

	d1 := mkDriver(1, "褚鹏", domain.ContractClassA)

	// 同一天两个重叠的任务只有同一个司机能接：
	// 处理顺序靠前的那个提交后，第二个必须因当日占用而落空
	s1 := mkSubject("s1", day.Add(6*time.Hour), 6, domain.DutyClassA)
	s2 := mkSubject("s2", day.Add(8*time.Hour), 6, domain.DutyClassA)

	in := &Input{
		Drivers:           []*domain.Driver{d1},
		Subjects:          []domain.DutySubject{*s1, *s2},
		PriorAssignments:  historyFor(1, now, 2),
		OwnershipScores:   map[string]float64{},
		PatternConfidence: map[int64]float64{1: 0.9},
		Now:               now,
		Options:           domain.MatchOptions{Predictability: 0.7, MinDaysFloor: 3},
	}

	result, err := m.Match(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, result.Assigned, 1)
	require.Len(t, result.Unassigned, 1)
	// 候选数相同，发车时间早的先处理
	require.Equal(t, "s1", result.Assigned[0].SubjectID)
	require.Equal(t, "s2", result.Unassigned[0].SubjectID)
	require.Equal(t, domain.ReasonNoEligibleDriver, result.Unassigned[0].Reason)
}

func TestMatch_ExcludedDrivers(t *testing.T) {
	cfg := testConfig()
	cfg.Matching.MinHistoryAssignments = 8
	m := testMatcher(t, cfg)

	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	fresh := mkDriver(1, "新司机", domain.ContractClassA)
	sparse := mkDriver(2, "历史不足", domain.ContractClassA)
	noisy := mkDriver(3, "置信度低", domain.ContractClassA)
	veteran := mkDriver(4, "老司机", domain.ContractClassA)

	history := append(historyFor(2, now, 2), historyFor(3, now, 10)...)
	history = append(history, historyFor(4, now, 10)...)

	in := &Input{
		Drivers:           []*domain.Driver{fresh, sparse, noisy, veteran},
		Subjects:          []domain.DutySubject{},
		PriorAssignments:  history,
		OwnershipScores:   map[string]float64{},
		PatternConfidence: map[int64]float64{2: 0.8, 3: 0.05, 4: 0.8},
		Now:               now,
		Options:           domain.MatchOptions{Predictability: 0.7},
	}

	result, err := m.Match(context.Background(), in)
	require.NoError(t, err)

	reasons := map[int64]domain.ExclusionReason{}
	for _, e := range result.ExcludedDrivers {
		reasons[e.DriverID] = e.ReasonCode
	}
	require.Equal(t, domain.ExclusionNewDriver, reasons[1])
	require.Equal(t, domain.ExclusionInsufficientHistory, reasons[2])
	require.Equal(t, domain.ExclusionLowConfidence, reasons[3])
	require.NotContains(t, reasons, int64(4))
}

func TestMatch_AllFailedValidation(t *testing.T) {
	m := testMatcher(t, testConfig())
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	d1 := mkDriver(1, "卫国", domain.ContractClassA)

	// 司机有一条 03-11 晚结束的分配，03-12 凌晨的任务休息不足 10 小时。
	// 预筛不看休息时间，所以司机能进入候选，但完整校验一定失败——
	// 这正是需要和“从一开始就没有候选”区分开的场景
	prevStart := time.Date(2025, 3, 11, 14, 0, 0, 0, time.UTC)
	prior := append(historyFor(1, now, 2), &domain.Assignment{
		DriverID:      1,
		SubjectID:     "prev",
		SubjectStart:  prevStart,
		SubjectEnd:    prevStart.Add(8 * time.Hour), // 22:00 结束
		DurationHours: 8,
		DutyClass:     domain.DutyClassA,
		IsActive:      true,
	})

	subject := mkSubject("s1", time.Date(2025, 3, 12, 4, 0, 0, 0, time.UTC), 6, domain.DutyClassA)

	in := &Input{
		Drivers:           []*domain.Driver{d1},
		Subjects:          []domain.DutySubject{*subject},
		PriorAssignments:  prior,
		OwnershipScores:   map[string]float64{},
		PatternConfidence: map[int64]float64{1: 0.9},
		Now:               now,
		Options:           domain.MatchOptions{Predictability: 0.7},
	}

	result, err := m.Match(context.Background(), in)
	require.NoError(t, err)
	require.Empty(t, result.Assigned)
	require.Len(t, result.Unassigned, 1)
	require.Equal(t, domain.ReasonAllFailedValidation, result.Unassigned[0].Reason)
	require.NotEmpty(t, result.Unassigned[0].Details)
}

func TestMatch_PredictionDegraded(t *testing.T) {
	m := testMatcher(t, testConfig())
	now := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	d1 := mkDriver(1, "蒋涛", domain.ContractClassA)
	subject := mkSubject("s1", time.Date(2025, 3, 12, 6, 0, 0, 0, time.UTC), 6, domain.DutyClassA)

	in := &Input{
		Drivers:           []*domain.Driver{d1},
		Subjects:          []domain.DutySubject{*subject},
		PriorAssignments:  historyFor(1, now, 4),
		OwnershipScores:   nil, // 预测服务整批失败
		PatternConfidence: map[int64]float64{1: 0.9},
		Now:               now,
		Options:           domain.MatchOptions{Predictability: 0.7, MinDaysFloor: 3},
	}

	result, err := m.Match(context.Background(), in)
	require.NoError(t, err)
	require.True(t, result.Stats.PredictionDegraded)
	// 退化之后仍然可以用星期亲和分完成分配
	require.Len(t, result.Assigned, 1)
}

func TestScoreCandidate(t *testing.T) {
	m := testMatcher(t, testConfig())
	subject := mkSubject("s1", time.Date(2025, 3, 12, 6, 0, 0, 0, time.UTC), 6, domain.DutyClassA)

	t.Run("缺失的归属分按 0 处理而不是中间值", func(t *testing.T) {
		d := mkDriver(1, "沈勇", domain.ContractClassA)
		in := &Input{
			OwnershipScores:   map[string]float64{},
			PatternConfidence: map[int64]float64{1: 0.9},
			Options:           domain.MatchOptions{Predictability: 1.0},
		}
		st := NewRunState(nil)

		// predictability 为 1 时 base 完全来自归属分；
		// 没有历史记录的组合必须得 0 加成，而不是 0.5
		score, _ := m.scoreCandidate(d, subject, st, in, map[int64][7]float64{}, false)
		require.Less(t, score, 0.3)
	})

	t.Run("低置信度司机的加成减半", func(t *testing.T) {
		low := mkDriver(1, "韩飞", domain.ContractClassA)
		high := mkDriver(2, "杨玲", domain.ContractClassA)
		low.WantsMoreWork = true
		high.WantsMoreWork = true

		in := &Input{
			OwnershipScores:   map[string]float64{},
			PatternConfidence: map[int64]float64{1: 0.2, 2: 0.9},
			Options:           domain.MatchOptions{Predictability: 0.7, MinDaysFloor: 3},
		}
		st := NewRunState(nil)

		lowScore, lowReasons := m.scoreCandidate(low, subject, st, in, map[int64][7]float64{}, false)
		highScore, _ := m.scoreCandidate(high, subject, st, in, map[int64][7]float64{}, false)

		require.Less(t, lowScore, highScore)
		require.Contains(t, lowReasons, "模式置信度偏低，加成减半")
	})

	t.Run("本次运行分得越多公平性加成越低", func(t *testing.T) {
		d := mkDriver(1, "秦欣", domain.ContractClassA)
		in := &Input{
			OwnershipScores:   map[string]float64{},
			PatternConfidence: map[int64]float64{1: 0.9},
			Options:           domain.MatchOptions{Predictability: 0.7},
		}

		idle := NewRunState(nil)
		busy := NewRunState(nil)
		busy.AssignedCount[1] = 3

		idleScore, _ := m.scoreCandidate(d, subject, idle, in, map[int64][7]float64{}, false)
		busyScore, _ := m.scoreCandidate(d, subject, busy, in, map[int64][7]float64{}, false)
		require.Greater(t, idleScore, busyScore)
	})
}
