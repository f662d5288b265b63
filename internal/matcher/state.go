package matcher

import (
	"time"

	"github.com/fleetops-dev/duty-roster/backend/internal/domain"
)

// RunState 是匹配主循环中显式传递的可变累加器。
// 外层循环是严格串行的：每提交一个任务都会影响后续任务的候选集，
// 所以忙碌日期、计数和运行内历史都集中在这里更新，不放在全局状态里
type RunState struct {
	// BusyDates 记录每个司机已经被占用的日历日（2006-01-02）
	BusyDates map[int64]map[string]bool
	// AssignedCount 是本次运行中每个司机已经分到的任务数
	AssignedCount map[int64]int
	// History 包含运行前的全部历史加上本次运行已提交的分配，
	// 后续任务的完整校验要基于它，时长账目才能覆盖整批任务
	History []*domain.Assignment
	// Active 是当前所有有效分配（含本次运行提交的），冲突检查用
	Active []*domain.Assignment
}

func NewRunState(prior []*domain.Assignment) *RunState {
	st := &RunState{
		BusyDates:     make(map[int64]map[string]bool),
		AssignedCount: make(map[int64]int),
		History:       make([]*domain.Assignment, 0, len(prior)),
		Active:        []*domain.Assignment{},
	}

	for _, a := range prior {
		st.History = append(st.History, a)
		if !a.IsActive {
			continue
		}
		st.Active = append(st.Active, a)
		st.markBusy(a.DriverID, spannedDates(a.SubjectStart, a.SubjectEnd))
	}

	return st
}

func (st *RunState) markBusy(driverID int64, dates []string) {
	if st.BusyDates[driverID] == nil {
		st.BusyDates[driverID] = make(map[string]bool)
	}
	for _, d := range dates {
		st.BusyDates[driverID][d] = true
	}
}

// IsBusyOn 判断司机在给定日历日集合中是否已有占用
func (st *RunState) IsBusyOn(driverID int64, dates []string) bool {
	busy := st.BusyDates[driverID]
	if busy == nil {
		return false
	}
	for _, d := range dates {
		if busy[d] {
			return true
		}
	}
	return false
}

// Commit 把胜出的候选落到运行状态里：占用任务覆盖的日历日、
// 累加司机计数，并把新分配追加进历史，供后续任务的校验使用
func (st *RunState) Commit(driver *domain.Driver, subject *domain.DutySubject, status domain.ValidationStatus, now time.Time) *domain.Assignment {
	a := &domain.Assignment{
		DriverID:         driver.ID,
		SubjectID:        subject.ID,
		SubjectStart:     subject.StartTime,
		SubjectEnd:       subject.EndTime,
		DurationHours:    subject.DurationHours,
		DutyClass:        subject.DutyClass,
		IsActive:         true,
		ValidationStatus: string(status),
		AssignedAt:       now,
	}

	st.markBusy(driver.ID, subject.SpannedDates())
	st.AssignedCount[driver.ID]++
	st.History = append(st.History, a)
	st.Active = append(st.Active, a)

	return a
}

// DaysAssigned 返回本次运行里司机已被占用的天数，
// “每周至少排几天”的加成判断用
func (st *RunState) DaysAssigned(driverID int64) int {
	return st.AssignedCount[driverID]
}

func spannedDates(start, end time.Time) []string {
	dates := []string{}
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	for day.Before(end) {
		dates = append(dates, day.Format("2006-01-02"))
		day = day.AddDate(0, 0, 1)
	}
	return dates
}
