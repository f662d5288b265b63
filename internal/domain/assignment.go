package domain

import "time"

type Assignment struct {
	ID        int64  `json:"id"`
	DriverID  int64  `json:"driverID"`
	SubjectID string `json:"subjectID"`
	// 下面这几个字段是创建分配时从任务上拷贝下来的快照，
	// 这样滚动窗口的时长计算不需要再去关联任务表
	SubjectStart  time.Time `json:"subjectStart"`
	SubjectEnd    time.Time `json:"subjectEnd"`
	DurationHours float64   `json:"durationHours"`
	DutyClass     DutyClass `json:"dutyClass"`

	IsActive         bool       `json:"isActive"`
	ValidationStatus string     `json:"validationStatus"`
	AssignedAt       time.Time  `json:"assignedAt"`
	ArchivedAt       *time.Time `json:"archivedAt,omitempty"`
}
