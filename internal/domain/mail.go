package domain

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

type CreateUserMailData struct {
	FullName string `json:"fullName"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type ChangeEmailMailData struct {
	FullName   string `json:"fullName"`
	OTP        string `json:"otp"`
	Expiration int    `json:"expiration"`
}

type ResetPasswordMailData struct {
	FullName   string `json:"fullName"`
	OTP        string `json:"otp"`
	Expiration int    `json:"expiration"`
}

// MatchReportMailData 是匹配运行结束后发给调度员的汇总邮件内容
type MatchReportMailData struct {
	FullName        string `json:"fullName"`
	RunID           int64  `json:"runID"`
	AssignedCount   int    `json:"assignedCount"`
	UnassignedCount int    `json:"unassignedCount"`
	WarningCount    int    `json:"warningCount"`
	Failed          bool   `json:"failed"`
	ErrorReason     string `json:"errorReason,omitempty"`
}
