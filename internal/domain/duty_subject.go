package domain

import (
	"fmt"
	"math"
	"time"
)

type DutyClass string

const (
	DutyClassA DutyClass = "A"
	DutyClassB DutyClass = "B"
)

type PatternGroup string

const (
	PatternGroupSunWed PatternGroup = "sunWed"
	PatternGroupWedSat PatternGroup = "wedSat"
	PatternGroupMixed  PatternGroup = "mixed"
)

// DutySubject 是进入匹配核心的唯一任务形态。
// 数据库中存在两种来源（旧的按外部易变 id 标识的 block，
// 和新的模板 + 发车记录），都要在进入核心前转换成这个结构，
// 核心内部不允许区分来源。
type DutySubject struct {
	ID        string    `json:"id"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	// DurationHours 统一保留 4 位小数，避免浮点误差导致
	// 恰好卡在时长上限的任务被误判
	DurationHours float64      `json:"durationHours"`
	DutyClass     DutyClass    `json:"dutyClass"`
	PatternGroup  PatternGroup `json:"patternGroup"`
	CycleID       string       `json:"cycleID"`
	// ConflictKey 仅对旧 block 来源的任务非空，
	// 校验时需要用它检查是否已有别的有效分配占用了同一个班段
	ConflictKey string `json:"conflictKey,omitempty"`
}

// NormalizeHours 保留 4 位小数
func NormalizeHours(hours float64) float64 {
	return math.Round(hours*1e4) / 1e4
}

// SpannedDates 返回任务覆盖的所有日历日（格式 2006-01-02）。
// 结束时间恰好是零点时不算跨入新的一天。
func (s *DutySubject) SpannedDates() []string {
	dates := []string{}
	day := time.Date(s.StartTime.Year(), s.StartTime.Month(), s.StartTime.Day(), 0, 0, 0, 0, s.StartTime.Location())
	for day.Before(s.EndTime) {
		dates = append(dates, day.Format("2006-01-02"))
		day = day.AddDate(0, 0, 1)
	}
	return dates
}

// SlotKey 生成给预测服务使用的班段标识，
// 格式与模式分析侧的编码保持一致
func (s *DutySubject) SlotKey() string {
	return fmt.Sprintf("%s|%d|%s", s.PatternGroup, int(s.StartTime.Weekday()), s.StartTime.Format("15:04"))
}

// LegacyBlock 是旧系统按外部 id 标识的班段
type LegacyBlock struct {
	ExternalID   string       `json:"externalID"`
	StartTime    time.Time    `json:"startTime"`
	EndTime      time.Time    `json:"endTime"`
	DutyClass    DutyClass    `json:"dutyClass"`
	PatternGroup PatternGroup `json:"patternGroup"`
	CycleID      string       `json:"cycleID"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// DutyOccurrence 是新系统中模板的一次具体发车，
// 用稳定的运营合同 id 标识
type DutyOccurrence struct {
	OperatorID   string       `json:"operatorID"`
	TemplateID   int64        `json:"templateID"`
	StartTime    time.Time    `json:"startTime"`
	EndTime      time.Time    `json:"endTime"`
	DutyClass    DutyClass    `json:"dutyClass"`
	PatternGroup PatternGroup `json:"patternGroup"`
	CycleID      string       `json:"cycleID"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// SubjectFromLegacyBlock 将旧 block 转换成统一的 DutySubject。
// 旧 block 的分配通道是共享的可变槽位，所以要带上 ConflictKey
func SubjectFromLegacyBlock(b *LegacyBlock) DutySubject {
	return DutySubject{
		ID:            "block:" + b.ExternalID,
		StartTime:     b.StartTime,
		EndTime:       b.EndTime,
		DurationHours: NormalizeHours(b.EndTime.Sub(b.StartTime).Hours()),
		DutyClass:     b.DutyClass,
		PatternGroup:  b.PatternGroup,
		CycleID:       b.CycleID,
		ConflictKey:   b.ExternalID,
	}
}

// SubjectFromOccurrence 将模板发车转换成统一的 DutySubject。
// 发车记录本身就是稳定寻址的，不需要 ConflictKey。
// id 里带上发车日期，同一个合同和模板在不同日期的发车互不覆盖
func SubjectFromOccurrence(o *DutyOccurrence) DutySubject {
	return DutySubject{
		ID:            fmt.Sprintf("occ:%s:%d:%s", o.OperatorID, o.TemplateID, o.StartTime.Format("20060102")),
		StartTime:     o.StartTime,
		EndTime:       o.EndTime,
		DurationHours: NormalizeHours(o.EndTime.Sub(o.StartTime).Hours()),
		DutyClass:     o.DutyClass,
		PatternGroup:  o.PatternGroup,
		CycleID:       o.CycleID,
	}
}
