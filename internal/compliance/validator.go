package compliance

import (
	"fmt"
	"slices"
	"time"

	"github.com/fleetops-dev/duty-roster/backend/internal/config"
	"github.com/fleetops-dev/duty-roster/backend/internal/domain"
)

var weekdayNames = []string{"周日", "周一", "周二", "周三", "周四", "周五", "周六"}

// Validator 按固定顺序执行四项合规检查：
// 冲突检查 > 保护规则检查 > 休息时间检查 > 滚动窗口时长检查。
// 前两项检查失败会直接终止，后两项的 warning 需要合并保留
type Validator struct {
	classRules     map[domain.DutyClass]DutyClassRule
	minRestHours   float64
	restWarnMargin float64
	dutyWarnRatio  float64
}

func NewValidator(cfg *config.Config) (*Validator, error) {
	classRules, err := ParseClassRules(cfg.Compliance.DutyClassRules)
	if err != nil {
		return nil, err
	}

	return &Validator{
		classRules:     classRules,
		minRestHours:   cfg.Compliance.MinRestHours,
		restWarnMargin: cfg.Compliance.RestWarnMargin,
		dutyWarnRatio:  cfg.Compliance.DutyWarnRatio,
	}, nil
}

// Verdict 是一次分配尝试的校验结论。
// 规则被违反时不会返回 Go error，调用方把 CanAssign 为 false
// 理解成“这个司机接不了这个任务”，而不是致命错误
type Verdict struct {
	CanAssign      bool                    `json:"canAssign"`
	Result         domain.ValidationResult `json:"result"`
	RuleViolations []string                `json:"ruleViolations,omitempty"`
	Conflicts      []*domain.Assignment    `json:"conflicts,omitempty"`
}

func violationVerdict(messages []string, metrics domain.ValidationMetrics) *Verdict {
	return &Verdict{
		CanAssign: false,
		Result: domain.ValidationResult{
			Status:   domain.ValidationStatusViolation,
			Messages: messages,
			Metrics:  metrics,
		},
	}
}

// ValidateAssignment 校验“把 subject 分配给 driver”是否合规。
//
// history 是这个司机的全部历史分配（包括已归档的行，滚动窗口的
// 计算需要它们）；activeAssignments 是系统中所有有效分配，只在
// 冲突检查时使用；conflictKey 仅对旧 block 来源的任务非空，
// 稳定 id 的任务通过发车记录寻址，不存在共享槽位，跳过冲突检查
func (v *Validator) ValidateAssignment(
	driver *domain.Driver,
	subject *domain.DutySubject,
	history []*domain.Assignment,
	protectedRules []*domain.ProtectedDriverRule,
	activeAssignments []*domain.Assignment,
	conflictKey string,
) *Verdict {
	// 第一步：冲突检查
	if conflictKey != "" {
		conflicts := []*domain.Assignment{}
		for _, a := range activeAssignments {
			if a.IsActive && a.SubjectID == subject.ID {
				conflicts = append(conflicts, a)
			}
		}

		if len(conflicts) > 0 {
			verdict := violationVerdict(
				[]string{fmt.Sprintf("班段 %s 已存在有效分配", subject.ID)},
				domain.ValidationMetrics{},
			)
			verdict.Conflicts = conflicts
			return verdict
		}
	}

	// 第二步：保护规则检查。
	// 这一步内部不允许短路，要把所有被违反的子句都收集出来，
	// 方便调度员一次看清所有问题
	ruleViolations := []string{}
	for _, rule := range protectedRules {
		if rule.DriverID != driver.ID || !rule.AppliesAt(subject.StartTime) {
			continue
		}
		ruleViolations = append(ruleViolations, v.checkRuleClauses(rule, subject)...)
	}

	if len(ruleViolations) > 0 {
		verdict := violationVerdict(ruleViolations, domain.ValidationMetrics{})
		verdict.RuleViolations = ruleViolations
		return verdict
	}

	// 第三步：休息时间检查
	restStatus, restMessages, restHours := v.checkRestPeriod(driver, subject, history)

	metrics := domain.ValidationMetrics{RestHours: restHours}

	if restStatus == domain.ValidationStatusViolation {
		return violationVerdict(restMessages, metrics)
	}

	// 第四步：滚动窗口时长检查
	dutyStatus, dutyMessages, accumulated, cap := v.checkRollingWindow(driver, subject, history)

	metrics.AccumulatedHours = accumulated
	metrics.LimitHours = cap

	if dutyStatus == domain.ValidationStatusViolation {
		return violationVerdict(append(restMessages, dutyMessages...), metrics)
	}

	// 合并结论：休息时间的 warning 不能被后面的 valid 覆盖掉
	status := domain.ValidationStatusValid
	if restStatus == domain.ValidationStatusWarning || dutyStatus == domain.ValidationStatusWarning {
		status = domain.ValidationStatusWarning
	}

	return &Verdict{
		CanAssign: true,
		Result: domain.ValidationResult{
			Status:   status,
			Messages: append(restMessages, dutyMessages...),
			Metrics:  metrics,
		},
	}
}

func (v *Validator) checkRuleClauses(rule *domain.ProtectedDriverRule, subject *domain.DutySubject) []string {
	violations := []string{}
	day := subject.StartTime.Weekday()
	startClock := subject.StartTime.Format("15:04")

	if len(rule.BlockedDays) > 0 && slices.Contains(rule.BlockedDays, day) {
		violations = append(violations, fmt.Sprintf("保护规则 %d：%s 不允许排班", rule.ID, weekdayNames[day]))
	}
	if len(rule.AllowedDays) > 0 && !slices.Contains(rule.AllowedDays, day) {
		violations = append(violations, fmt.Sprintf("保护规则 %d：只允许在指定的星期排班，%s 不在其中", rule.ID, weekdayNames[day]))
	}
	if len(rule.AllowedClasses) > 0 && !slices.Contains(rule.AllowedClasses, subject.DutyClass) {
		violations = append(violations, fmt.Sprintf("保护规则 %d：不允许承接 %s 类班段", rule.ID, subject.DutyClass))
	}
	if len(rule.AllowedStartTimes) > 0 && !slices.Contains(rule.AllowedStartTimes, startClock) {
		violations = append(violations, fmt.Sprintf("保护规则 %d：发车时间 %s 不在允许的时段内", rule.ID, startClock))
	}
	// HH:MM 格式按字典序比较就是按时间比较
	if rule.LatestStartTime != "" && startClock > rule.LatestStartTime {
		violations = append(violations, fmt.Sprintf("保护规则 %d：发车时间 %s 晚于最晚允许的 %s", rule.ID, startClock, rule.LatestStartTime))
	}

	return violations
}

func (v *Validator) checkRestPeriod(driver *domain.Driver, subject *domain.DutySubject, history []*domain.Assignment) (domain.ValidationStatus, []string, float64) {
	// 找这个司机最近一条在本任务发车前结束的其他分配
	var latestEnd time.Time
	found := false

	for _, a := range history {
		if a.DriverID != driver.ID || a.SubjectID == subject.ID {
			continue
		}
		if a.SubjectEnd.After(subject.StartTime) {
			continue
		}
		if !found || a.SubjectEnd.After(latestEnd) {
			latestEnd = a.SubjectEnd
			found = true
		}
	}

	if !found {
		// 没有更早的分配，视作休息充分
		return domain.ValidationStatusValid, nil, 0
	}

	restHours := domain.NormalizeHours(subject.StartTime.Sub(latestEnd).Hours())

	switch {
	case restHours < v.minRestHours:
		msg := fmt.Sprintf("休息时间不足：距离上一班结束只有 %.1f 小时，法定最少 %.1f 小时", restHours, v.minRestHours)
		return domain.ValidationStatusViolation, []string{msg}, restHours
	case restHours < v.minRestHours+v.restWarnMargin:
		msg := fmt.Sprintf("休息时间偏紧：距离上一班结束 %.1f 小时，接近法定下限 %.1f 小时", restHours, v.minRestHours)
		return domain.ValidationStatusWarning, []string{msg}, restHours
	default:
		return domain.ValidationStatusValid, nil, restHours
	}
}

func (v *Validator) checkRollingWindow(driver *domain.Driver, subject *domain.DutySubject, history []*domain.Assignment) (domain.ValidationStatus, []string, float64, float64) {
	rule, ok := v.classRules[subject.DutyClass]
	if !ok {
		return domain.ValidationStatusViolation,
			[]string{fmt.Sprintf("不支持的班别 %s", subject.DutyClass)}, 0, 0
	}

	windowStart := subject.StartTime.Add(-time.Duration(rule.WindowHours * float64(time.Hour)))

	// 本任务自身如果已出现在历史中（重新校验一次既有分配的场景）要剔除，
	// 不能把自己的时长算两遍
	windowHistory := make([]*domain.Assignment, 0, len(history))
	for _, a := range history {
		if a.SubjectID != subject.ID {
			windowHistory = append(windowHistory, a)
		}
	}

	accumulated := AccumulateHours(driver.ID, windowStart, subject.StartTime, windowHistory)
	total := domain.NormalizeHours(accumulated + subject.DurationHours)

	switch {
	case total > rule.CapHours:
		msg := fmt.Sprintf("%s 类班段在 %.0f 小时窗口内的累计时长 %.1f 小时超过上限 %.1f 小时",
			subject.DutyClass, rule.WindowHours, total, rule.CapHours)
		return domain.ValidationStatusViolation, []string{msg}, total, rule.CapHours
	// 预警区间是 [上限*预警比例, 上限)，恰好到达上限不算预警
	case total >= rule.CapHours*v.dutyWarnRatio && total < rule.CapHours:
		msg := fmt.Sprintf("%s 类班段在 %.0f 小时窗口内的累计时长 %.1f 小时已接近上限 %.1f 小时",
			subject.DutyClass, rule.WindowHours, total, rule.CapHours)
		return domain.ValidationStatusWarning, []string{msg}, total, rule.CapHours
	default:
		return domain.ValidationStatusValid, nil, total, rule.CapHours
	}
}

