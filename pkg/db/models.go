package db

import "time"

// TaskRow is one persisted task.
type TaskRow struct {
	ID          string     `json:"id"`
	Kind        string     `json:"kind"`
	Status      string     `json:"status"`
	Error       string     `json:"error,omitempty"`
	PolicyCode  string     `json:"policyCode,omitempty"`
	SubmittedAt time.Time  `json:"submittedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Task statuses.
const (
	StatusPending  = "PENDING"
	StatusDone     = "DONE"
	StatusFailed   = "FAILED"
	StatusCanceled = "CANCELED"
)

// SignalRow is one persisted signal of a strategy run.
type SignalRow struct {
	TaskID     string  `json:"taskId"`
	Seq        int     `json:"seq"`
	Time       int64   `json:"time"`
	Action     string  `json:"action"`
	Price      float64 `json:"price"`
	Size       float64 `json:"size"`
	Reason     string  `json:"reason,omitempty"`
	OrderID    string  `json:"orderId,omitempty"`
	OrderType  string  `json:"orderType,omitempty"`
	LimitPrice float64 `json:"limitPrice,omitempty"`
}

// EpisodeRow is one persisted training progress record.
type EpisodeRow struct {
	TaskID      string  `json:"taskId"`
	Episode     int     `json:"episode"`
	TotalReward float64 `json:"totalReward"`
	Epsilon     float64 `json:"epsilon"`
	WinRate     float64 `json:"winRate"`
}
