package domain

import (
	"time"
)

type Role string

const (
	RoleDispatcher Role = "调度员"
	RoleAdmin      Role = "管理员"
)

// User 是系统的操作人员账号（调度员和管理员），不是司机。
// 司机本身不登录系统
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"fullName"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	Version      int32     `json:"-"`
}
