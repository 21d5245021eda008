package rag

import "time"

const (
	TaskStatusPending = "pending"
	TaskStatusRunning = "running"
	TaskStatusDone    = "done"
	TaskStatusFailed  = "failed"

	TaskTypeFullCycle = "full_cycle"
)

// TerminalTaskStatuses never change once reached.
var TerminalTaskStatuses = []string{TaskStatusDone, TaskStatusFailed}

func IsTerminalTask(status string) bool {
	return status == TaskStatusDone || status == TaskStatusFailed
}

// Task tracks one run of the cycle pipeline.
type Task struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	RagID      uint      `gorm:"not null;index;column:rag_id" json:"rag_id"`
	CycleID    *uint     `gorm:"index;column:cycle_id" json:"cycle_id,omitempty"`
	Type       string    `gorm:"not null;column:type" json:"type"`
	Status     string    `gorm:"not null;index;column:status" json:"status"`
	WorkflowID string    `gorm:"column:workflow_id" json:"workflow_id,omitempty"`
	Error      string    `gorm:"column:error" json:"error,omitempty"`
	CreatedAt  time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Task) TableName() string { return "tasks" }
