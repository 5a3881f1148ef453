package domain

import "time"

// Per-line weights of the code contribution signal.
const (
	AdditionWeight = 1.0
	DeletionWeight = 1.25
)

// RawSignals are the un-normalized inputs gathered for one student in one project.
type RawSignals struct {
	UserID            int64   `json:"userId"`
	TaskCompletionRaw float64 `json:"taskCompletionRaw"` // sum of difficulty of completed tasks
	PeerReviewRaw     float64 `json:"peerReviewRaw"`     // mean received rating, 0 if none
	Additions         int64   `json:"additions"`
	Deletions         int64   `json:"deletions"`
	LateTaskCount     int     `json:"lateTaskCount"`
}

// CodeRaw is the weighted line count used as the code contribution signal.
func (r RawSignals) CodeRaw() float64 {
	return float64(r.Additions)*AdditionWeight + float64(r.Deletions)*DeletionWeight
}

// ActiveTask is a not-yet-completed task counted towards workload pressure.
type ActiveTask struct {
	TaskID     int64      `json:"taskId"`
	AssigneeID int64      `json:"assigneeId"`
	Difficulty int        `json:"difficulty"`
	Deadline   *time.Time `json:"deadline,omitempty"`
}
