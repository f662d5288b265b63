package compliance

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fleetops-dev/duty-roster/backend/internal/domain"
)

// DutyClassRule 描述一种班别的滚动窗口时长限制：
// 在发车时间之前 WindowHours 小时内，累计值勤时长不能超过 CapHours
type DutyClassRule struct {
	WindowHours float64
	CapHours    float64
}

// ParseClassRules 解析配置中的班别规则，格式为 班别:窗口小时:上限小时，
// 多条之间用逗号分隔，例如 A:24:14,B:48:38。
// 班别和窗口的对应关系是配置而不是写死的规则
func ParseClassRules(s string) (map[domain.DutyClass]DutyClassRule, error) {
	rules := make(map[domain.DutyClass]DutyClassRule)

	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("班别规则 %q 的格式错误，应为 班别:窗口小时:上限小时", entry)
		}

		window, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("班别规则 %q 的窗口小时无法解析", entry)
		}
		cap, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return nil, fmt.Errorf("班别规则 %q 的上限小时无法解析", entry)
		}
		if window <= 0 || cap <= 0 {
			return nil, fmt.Errorf("班别规则 %q 的窗口和上限必须为正数", entry)
		}

		rules[domain.DutyClass(parts[0])] = DutyClassRule{
			WindowHours: window,
			CapHours:    cap,
		}
	}

	if len(rules) == 0 {
		return nil, fmt.Errorf("班别规则 %q 中没有任何有效条目", s)
	}

	return rules, nil
}
