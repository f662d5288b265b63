package compliance

import (
	"testing"
	"time"

	"github.com/fleetops-dev/duty-roster/backend/internal/config"
	"github.com/fleetops-dev/duty-roster/backend/internal/domain"
	"github.com/stretchr/testify/require"
)

func testValidator(t *testing.T) *Validator {
	t.Helper()

	cfg := &config.Config{}
	cfg.Compliance.DutyClassRules = "A:24:14,B:48:38"
	cfg.Compliance.MinRestHours = 10
	cfg.Compliance.RestWarnMargin = 1
	cfg.Compliance.DutyWarnRatio = 0.9

	v, err := NewValidator(cfg)
	require.NoError(t, err)
	return v
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

func TestValidateAssignment_Conflict(t *testing.T) {
	v := testValidator(t)
	driver := &domain.Driver{ID: 1, Name: "王伟", ContractClass: domain.ContractClassA}
	start := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	subject := mkSubject("block:abc", start, 6, domain.DutyClassA)

	occupied := mkAssignment(2, "block:abc", start, 6)

	t.Run("旧 block 已被占用时直接违规", func(t *testing.T) {
		verdict := v.ValidateAssignment(driver, subject, nil, nil, []*domain.Assignment{occupied}, "abc")
		require.False(t, verdict.CanAssign)
		require.Equal(t, domain.ValidationStatusViolation, verdict.Result.Status)
		require.Len(t, verdict.Conflicts, 1)
	})

	t.Run("稳定 id 的任务跳过冲突检查", func(t *testing.T) {
		stable := mkSubject("occ:op1:7", start, 6, domain.DutyClassA)
		conflicting := mkAssignment(2, "occ:op1:7", start, 6)

		verdict := v.ValidateAssignment(driver, stable, nil, nil, []*domain.Assignment{conflicting}, "")
		require.True(t, verdict.CanAssign)
	})

	t.Run("已归档的分配不构成冲突", func(t *testing.T) {
		archived := mkAssignment(2, "block:abc", start, 6)
		archived.IsActive = false

		verdict := v.ValidateAssignment(driver, subject, nil, nil, []*domain.Assignment{archived}, "abc")
		require.True(t, verdict.CanAssign)
	})
}

func TestValidateAssignment_ProtectedRules(t *testing.T) {
	v := testValidator(t)
	driver := &domain.Driver{ID: 1, Name: "李强", ContractClass: domain.ContractClassA}
	// 2025-03-10 是周一
	start := time.Date(2025, 3, 10, 22, 30, 0, 0, time.UTC)
	subject := mkSubject("occ:op1:1", start, 6, domain.DutyClassA)

	rule := &domain.ProtectedDriverRule{
		ID:              11,
		DriverID:        1,
		EffectiveFrom:   start.AddDate(0, -1, 0),
		EffectiveTo:     start.AddDate(0, 1, 0),
		BlockedDays:     []time.Weekday{time.Monday},
		AllowedClasses:  []domain.DutyClass{domain.DutyClassB},
		LatestStartTime: "20:00",
	}

	t.Run("所有被违反的子句都要收集，不允许步内短路", func(t *testing.T) {
		verdict := v.ValidateAssignment(driver, subject, nil, []*domain.ProtectedDriverRule{rule}, nil, "")
		require.False(t, verdict.CanAssign)
		require.Equal(t, domain.ValidationStatusViolation, verdict.Result.Status)
		// 周一被屏蔽 + 班别不允许 + 超过最晚发车时间，三条都要在
		require.Len(t, verdict.RuleViolations, 3)
	})

	t.Run("生效期外的规则不参与校验", func(t *testing.T) {
		expired := *rule
		expired.EffectiveTo = start.AddDate(0, 0, -1)

		verdict := v.ValidateAssignment(driver, subject, nil, []*domain.ProtectedDriverRule{&expired}, nil, "")
		require.True(t, verdict.CanAssign)
	})

	t.Run("别的司机的规则不参与校验", func(t *testing.T) {
		other := *rule
		other.DriverID = 99

		verdict := v.ValidateAssignment(driver, subject, nil, []*domain.ProtectedDriverRule{&other}, nil, "")
		require.True(t, verdict.CanAssign)
	})
}

func TestValidateAssignment_RestPeriod(t *testing.T) {
	v := testValidator(t)
	driver := &domain.Driver{ID: 1, Name: "张敏", ContractClass: domain.ContractClassA}
	start := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	subject := mkSubject("occ:op1:2", start, 6, domain.DutyClassA)

	tests := []struct {
		name       string
		restHours  float64
		wantAssign bool
		wantStatus domain.ValidationStatus
	}{
		{"休息不足 10 小时违规", 8, false, domain.ValidationStatusViolation},
		{"刚过下限 1 小时内预警", 10.5, true, domain.ValidationStatusWarning},
		{"休息充分通过", 12, true, domain.ValidationStatusValid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prevEnd := start.Add(-time.Duration(tt.restHours * float64(time.Hour)))
			prev := mkAssignment(1, "old", prevEnd.Add(-4*time.Hour), 4)

			verdict := v.ValidateAssignment(driver, subject, []*domain.Assignment{prev}, nil, nil, "")
			require.Equal(t, tt.wantAssign, verdict.CanAssign)
			require.Equal(t, tt.wantStatus, verdict.Result.Status)
			if tt.wantStatus != domain.ValidationStatusValid {
				require.InDelta(t, tt.restHours, verdict.Result.Metrics.RestHours, 1e-9)
				require.NotEmpty(t, verdict.Result.Messages)
			}
		})
	}

	t.Run("没有更早的分配视作休息充分", func(t *testing.T) {
		verdict := v.ValidateAssignment(driver, subject, nil, nil, nil, "")
		require.True(t, verdict.CanAssign)
		require.Equal(t, domain.ValidationStatusValid, verdict.Result.Status)
	})

	t.Run("休息违规时指标中要带上实际休息时长", func(t *testing.T) {
		prev := mkAssignment(1, "old", start.Add(-13*time.Hour), 4) // 9 小时休息

		verdict := v.ValidateAssignment(driver, subject, []*domain.Assignment{prev}, nil, nil, "")
		require.False(t, verdict.CanAssign)
		require.Less(t, verdict.Result.Metrics.RestHours, 10.0)
	})
}

func TestValidateAssignment_RollingWindow(t *testing.T) {
	v := testValidator(t)
	driver := &domain.Driver{ID: 1, Name: "刘洋", ContractClass: domain.ContractClassA}
	start := time.Date(2025, 3, 10, 20, 0, 0, 0, time.UTC)

	t.Run("窗口内累计超过上限违规", func(t *testing.T) {
		subject := mkSubject("occ:op1:3", start, 6, domain.DutyClassA)
		// 窗口内已有 9 小时，加上 6 小时共 15 > 14
		prev := mkAssignment(1, "old", start.Add(-20*time.Hour), 9)

		verdict := v.ValidateAssignment(driver, subject, []*domain.Assignment{prev}, nil, nil, "")
		require.False(t, verdict.CanAssign)
		require.Equal(t, domain.ValidationStatusViolation, verdict.Result.Status)
		require.Equal(t, 14.0, verdict.Result.Metrics.LimitHours)
		require.Equal(t, 15.0, verdict.Result.Metrics.AccumulatedHours)
	})

	t.Run("到达预警区间但未超限时预警", func(t *testing.T) {
		subject := mkSubject("occ:op1:4", start, 6, domain.DutyClassA)
		// 7 + 6 = 13，落在 [12.6, 14) 预警区间
		prev := mkAssignment(1, "old", start.Add(-20*time.Hour), 7)

		verdict := v.ValidateAssignment(driver, subject, []*domain.Assignment{prev}, nil, nil, "")
		require.True(t, verdict.CanAssign)
		require.Equal(t, domain.ValidationStatusWarning, verdict.Result.Status)
	})

	t.Run("恰好用满上限是通过而不是预警", func(t *testing.T) {
		subject := mkSubject("occ:op1:5", start, 6, domain.DutyClassA)
		// 8 + 6 = 14.0，余量正好为零
		prev := mkAssignment(1, "old", start.Add(-20*time.Hour), 8)

		verdict := v.ValidateAssignment(driver, subject, []*domain.Assignment{prev}, nil, nil, "")
		require.True(t, verdict.CanAssign)
		require.Equal(t, domain.ValidationStatusValid, verdict.Result.Status)
	})

	t.Run("只有部分落在窗口内的历史分配只算重叠部分", func(t *testing.T) {
		subject := mkSubject("occ:op1:6", start, 6, domain.DutyClassA)
		// 任务在窗口开始前 4 小时开始，总长 12 小时，窗口内只有 8 小时；
		// 8 + 6 = 14，不超限
		prev := mkAssignment(1, "old", start.Add(-28*time.Hour), 12)

		verdict := v.ValidateAssignment(driver, subject, []*domain.Assignment{prev}, nil, nil, "")
		require.True(t, verdict.CanAssign)
	})

	t.Run("B 类班段使用自己的窗口和上限", func(t *testing.T) {
		subject := mkSubject("occ:op1:7", start, 10, domain.DutyClassB)
		// 48 小时窗口内 30 + 10 = 40 > 38
		prev := mkAssignment(1, "old", start.Add(-40*time.Hour), 30)

		verdict := v.ValidateAssignment(driver, subject, []*domain.Assignment{prev}, nil, nil, "")
		require.False(t, verdict.CanAssign)
	})

	t.Run("未配置的班别直接违规", func(t *testing.T) {
		subject := mkSubject("occ:op1:8", start, 6, domain.DutyClass("X"))

		verdict := v.ValidateAssignment(driver, subject, nil, nil, nil, "")
		require.False(t, verdict.CanAssign)
		require.Contains(t, verdict.Result.Messages[0], "不支持的班别")
	})
}

func TestValidateAssignment_WarningMerge(t *testing.T) {
	v := testValidator(t)
	driver := &domain.Driver{ID: 1, Name: "陈静", ContractClass: domain.ContractClassA}
	start := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	subject := mkSubject("occ:op1:9", start, 3, domain.DutyClassA)

	// 上一班只有 1 小时，在 10.5 小时前结束：触发休息预警，
	// 但窗口内累计只有 1 + 3 = 4 小时，时长检查完全正常
	prev := mkAssignment(1, "old", start.Add(-(11*time.Hour + 30*time.Minute)), 1)

	verdict := v.ValidateAssignment(driver, subject, []*domain.Assignment{prev}, nil, nil, "")
	require.True(t, verdict.CanAssign)
	// 休息预警不能被后面的时长检查通过所覆盖
	require.Equal(t, domain.ValidationStatusWarning, verdict.Result.Status)
	require.NotEmpty(t, verdict.Result.Messages)
}

func TestParseClassRules(t *testing.T) {
	t.Run("默认配置可以解析", func(t *testing.T) {
		rules, err := ParseClassRules("A:24:14,B:48:38")
		require.NoError(t, err)
		require.Equal(t, DutyClassRule{WindowHours: 24, CapHours: 14}, rules[domain.DutyClassA])
		require.Equal(t, DutyClassRule{WindowHours: 48, CapHours: 38}, rules[domain.DutyClassB])
	})

	t.Run("格式错误要报错", func(t *testing.T) {
		_, err := ParseClassRules("A:24")
		require.Error(t, err)

		_, err = ParseClassRules("A:x:14")
		require.Error(t, err)

		_, err = ParseClassRules("")
		require.Error(t, err)
	})
}
