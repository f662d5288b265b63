package domain

import "time"

// ProtectedDriverRule 是针对单个司机的保护性约束，
// 只在生效时间范围内参与校验。
// 所有子句都是可选的，留空的子句不参与校验；
// 任何一条被违反的子句都会导致整个分配尝试失败。
type ProtectedDriverRule struct {
	ID             int64          `json:"id"`
	DriverID       int64          `json:"driverID"`
	Description    string         `json:"description"`
	EffectiveFrom  time.Time      `json:"effectiveFrom"`
	EffectiveTo    time.Time      `json:"effectiveTo"`
	BlockedDays    []time.Weekday `json:"blockedDays"`
	AllowedDays    []time.Weekday `json:"allowedDays"`
	AllowedClasses []DutyClass    `json:"allowedClasses"`
	// AllowedStartTimes 以 15:04 格式表示
	AllowedStartTimes []string `json:"allowedStartTimes"`
	// LatestStartTime 为空表示不限制最晚发车时间
	LatestStartTime string    `json:"latestStartTime"`
	CreatedAt       time.Time `json:"createdAt"`
	Version         int32     `json:"-"`
}

// AppliesAt 判断规则在某个时间点是否生效
func (r *ProtectedDriverRule) AppliesAt(t time.Time) bool {
	if t.Before(r.EffectiveFrom) {
		return false
	}
	if !r.EffectiveTo.IsZero() && t.After(r.EffectiveTo) {
		return false
	}
	return true
}
