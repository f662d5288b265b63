package domain

import "time"

type UnassignedReason string

const (
	// ReasonNoEligibleDriver 表示预筛阶段就没有任何候选司机
	ReasonNoEligibleDriver UnassignedReason = "no_eligible_driver"
	// ReasonAllFailedValidation 表示预筛有候选，但全部没有通过完整合规校验。
	// 区分这两种原因可以帮助调度员判断缺口是法规导致的还是数据录入导致的
	ReasonAllFailedValidation UnassignedReason = "all_failed_validation"
	// ReasonAllBelowMinScore 表示有司机通过了校验，但得分都低于下限
	ReasonAllBelowMinScore UnassignedReason = "all_below_min_score"
)

type ExclusionReason string

const (
	ExclusionNewDriver           ExclusionReason = "new_driver"
	ExclusionInsufficientHistory ExclusionReason = "insufficient_history"
	ExclusionLowConfidence       ExclusionReason = "low_confidence"
)

type AssignedSubject struct {
	SubjectID string   `json:"subjectID"`
	DriverID  int64    `json:"driverID"`
	Score     float64  `json:"score"`
	Reasons   []string `json:"reasons"`
	Warnings  []string `json:"warnings,omitempty"`
}

type UnassignedSubject struct {
	SubjectID string           `json:"subjectID"`
	Reason    UnassignedReason `json:"reason"`
	Details   []string         `json:"details,omitempty"`
}

type ExcludedDriver struct {
	DriverID   int64           `json:"driverID"`
	ReasonCode ExclusionReason `json:"reasonCode"`
}

type MatchStats struct {
	TotalSubjects      int  `json:"totalSubjects"`
	TotalDrivers       int  `json:"totalDrivers"`
	AssignedCount      int  `json:"assignedCount"`
	UnassignedCount    int  `json:"unassignedCount"`
	ExcludedDrivers    int  `json:"excludedDrivers"`
	WarningCount       int  `json:"warningCount"`
	PredictionDegraded bool `json:"predictionDegraded"`
}

type MatchResult struct {
	Assigned        []AssignedSubject   `json:"assigned"`
	Unassigned      []UnassignedSubject `json:"unassigned"`
	ExcludedDrivers []ExcludedDriver    `json:"excludedDrivers"`
	Stats           MatchStats          `json:"stats"`
}

// MatchOptions 是一次匹配运行的可调参数，由调度员在发起时指定
type MatchOptions struct {
	// Predictability 是归属分和星期亲和分之间的权重
	Predictability float64 `json:"predictability"`
	// MinDaysFloor 是“每周至少要排几天”的滑块（3/4/5）
	MinDaysFloor int `json:"minDaysFloor"`
	// MinScore 是候选司机得分的下限，低于下限直接丢弃
	MinScore float64 `json:"minScore"`
}

type MatchRunStatus string

const (
	MatchRunStatusPending   MatchRunStatus = "pending"
	MatchRunStatusRunning   MatchRunStatus = "running"
	MatchRunStatusSucceeded MatchRunStatus = "succeeded"
	MatchRunStatusFailed    MatchRunStatus = "failed"
)

type MatchRun struct {
	ID          int64          `json:"id"`
	Status      MatchRunStatus `json:"status"`
	Options     MatchOptions   `json:"options"`
	Result      *MatchResult   `json:"result,omitempty"`
	ErrorReason string         `json:"errorReason,omitempty"`
	CreatedBy   int64          `json:"createdBy"`
	CreatedAt   time.Time      `json:"createdAt"`
	FinishedAt  *time.Time     `json:"finishedAt,omitempty"`
}

// MatchTaskMessage 是 API 发布到匹配队列的任务消息
type MatchTaskMessage struct {
	RunID   int64        `json:"runID"`
	Options MatchOptions `json:"options"`
}
