package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fleetops-dev/duty-roster/backend/internal/domain"
)

func TestValidateProtectedRule(t *testing.T) {
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("合法规则", func(t *testing.T) {
		rule := &domain.ProtectedDriverRule{
			EffectiveFrom:     from,
			EffectiveTo:       from.AddDate(0, 3, 0),
			BlockedDays:       []time.Weekday{time.Monday},
			AllowedStartTimes: []string{"06:00", "08:30"},
			LatestStartTime:   "14:00",
		}
		require.NoError(t, ValidateProtectedRule(rule))
	})

	t.Run("失效日期早于生效日期", func(t *testing.T) {
		rule := &domain.ProtectedDriverRule{
			EffectiveFrom: from,
			EffectiveTo:   from.AddDate(0, 0, -1),
		}
		require.Error(t, ValidateProtectedRule(rule))
	})

	t.Run("没有失效日期的长期规则", func(t *testing.T) {
		rule := &domain.ProtectedDriverRule{EffectiveFrom: from}
		require.NoError(t, ValidateProtectedRule(rule))
	})

	t.Run("同一天既禁止又允许", func(t *testing.T) {
		rule := &domain.ProtectedDriverRule{
			EffectiveFrom: from,
			BlockedDays:   []time.Weekday{time.Tuesday},
			AllowedDays:   []time.Weekday{time.Tuesday, time.Friday},
		}
		require.Error(t, ValidateProtectedRule(rule))
	})

	t.Run("允许时刻晚于最晚发车时刻", func(t *testing.T) {
		rule := &domain.ProtectedDriverRule{
			EffectiveFrom:     from,
			AllowedStartTimes: []string{"16:00"},
			LatestStartTime:   "14:00",
		}
		require.Error(t, ValidateProtectedRule(rule))
	})
}
