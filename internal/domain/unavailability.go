package domain

import "time"

// Unavailability 是一条已批准的司机请假记录，按天生效
type Unavailability struct {
	ID        int64     `json:"id"`
	DriverID  int64     `json:"driverID"`
	Date      time.Time `json:"date"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"createdAt"`
}
