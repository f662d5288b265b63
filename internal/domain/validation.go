package domain

type ValidationStatus string

const (
	ValidationStatusValid     ValidationStatus = "valid"
	ValidationStatusWarning   ValidationStatus = "warning"
	ValidationStatusViolation ValidationStatus = "violation"
)

type ValidationMetrics struct {
	AccumulatedHours float64 `json:"accumulatedHours"`
	LimitHours       float64 `json:"limitHours"`
	RestHours        float64 `json:"restHours"`
}

// ValidationResult 是合规校验的结论。
// violation 一定意味着不可分配；warning 不阻止分配，但必须展示给调度员
type ValidationResult struct {
	Status   ValidationStatus  `json:"status"`
	Messages []string          `json:"messages"`
	Metrics  ValidationMetrics `json:"metrics"`
}
