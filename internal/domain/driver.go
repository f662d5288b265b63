package domain

import (
	"slices"
	"time"
)

type ContractClass string

const (
	ContractClassA    ContractClass = "A"
	ContractClassB    ContractClass = "B"
	ContractClassBoth ContractClass = "both"
)

// CanTakeClass 判断司机的合同班别是否允许承接某个班别的任务
func (c ContractClass) CanTakeClass(class DutyClass) bool {
	switch c {
	case ContractClassBoth:
		return true
	case ContractClassA:
		return class == DutyClassA
	case ContractClassB:
		return class == DutyClassB
	default:
		return false
	}
}

type Driver struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	// ContractClass 从历史分配记录中推断得出，每次匹配前作为输入传入，
	// 匹配过程中不允许修改
	ContractClass ContractClass  `json:"contractClass"`
	DaysOff       []time.Weekday `json:"daysOff"`
	IsActive      bool           `json:"isActive"`
	LoadEligible  bool           `json:"loadEligible"`
	// WantsMoreWork 表示司机提交并已获批准的“希望多排班”申请
	WantsMoreWork bool      `json:"wantsMoreWork"`
	CreatedAt     time.Time `json:"createdAt"`
	Version       int32     `json:"-"`
}

func (d *Driver) HasDayOff(day time.Weekday) bool {
	return slices.Contains(d.DaysOff, day)
}
