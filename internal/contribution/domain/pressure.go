package domain

import "time"

type PressureStatus string

const (
	PressureSafe       PressureStatus = "SAFE"
	PressureAtRisk     PressureStatus = "AT_RISK"
	PressureOverloaded PressureStatus = "OVERLOADED"
)

// PressureScore is a live workload reading for one group member. It is never
// adjusted or finalized.
type PressureScore struct {
	UserID              int64          `json:"userId"`
	GroupID             int64          `json:"groupId"`
	Username            string         `json:"username"`
	FullName            string         `json:"fullName"`
	TaskCount           int            `json:"taskCount"`
	PressureScore       float64        `json:"pressureScore"`
	Threshold           float64        `json:"threshold"`
	ThresholdPercentage float64        `json:"thresholdPercentage"`
	Status              PressureStatus `json:"status"`
}

// PressureSnapshot is one row of pressure history recorded by the scheduler.
type PressureSnapshot struct {
	ProjectID           int64
	GroupID             int64
	UserID              int64
	PressureScore       float64
	ThresholdPercentage float64
	Status              PressureStatus
	RecordedAt          time.Time
}
