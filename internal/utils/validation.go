package utils

import (
	"errors"
	"fmt"
	"slices"

	"github.com/fleetops-dev/duty-roster/backend/internal/domain"
)

// ValidateProtectedRule 检查规则子句之间是否自洽。
// 格式层面的校验（日期、时刻格式）由 handler 的 validator 完成，
// 这里只做跨字段的语义检查
func ValidateProtectedRule(rule *domain.ProtectedDriverRule) error {
	if !rule.EffectiveTo.IsZero() && rule.EffectiveTo.Before(rule.EffectiveFrom) {
		return errors.New("规则的失效日期不能早于生效日期")
	}

	// 同一个星期几既被禁止又被允许的规则没有意义，
	// 校验时 blocked 优先会让 allowed 永远不可满足
	for _, day := range rule.BlockedDays {
		if slices.Contains(rule.AllowedDays, day) {
			return fmt.Errorf("星期 %d 同时出现在禁止和允许列表中", int(day))
		}
	}

	if rule.LatestStartTime != "" {
		for _, clock := range rule.AllowedStartTimes {
			if clock > rule.LatestStartTime {
				return fmt.Errorf("允许的发车时刻 %s 晚于最晚发车时刻 %s", clock, rule.LatestStartTime)
			}
		}
	}

	return nil
}
