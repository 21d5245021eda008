package rag

import (
	"time"

	"gorm.io/datatypes"
)

const (
	CycleStatusPending  = "pending"
	CycleStatusRunning  = "running"
	CycleStatusReview   = "review"
	CycleStatusMerged   = "merged"
	CycleStatusFailed   = "failed"
	CycleStatusArchived = "archived"
)

// cycleTransitions lists the allowed predecessors of every cycle status.
var cycleTransitions = map[string][]string{
	CycleStatusRunning:  {CycleStatusPending},
	CycleStatusReview:   {CycleStatusRunning},
	CycleStatusMerged:   {CycleStatusReview},
	CycleStatusFailed:   {CycleStatusPending, CycleStatusRunning},
	CycleStatusArchived: {CycleStatusReview},
}

// CyclePredecessors returns the statuses a cycle may move to next from.
func CyclePredecessors(next string) []string {
	return append([]string(nil), cycleTransitions[next]...)
}

// CanTransitionCycle reports whether from -> to is a legal cycle move.
func CanTransitionCycle(from, to string) bool {
	for _, p := range cycleTransitions[to] {
		if p == from {
			return true
		}
	}
	return false
}

// UploadCycle is one ingestion of a document into a RAG instance. CycleN is
// dense per RAG and never reused.
type UploadCycle struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	RagID     uint           `gorm:"not null;uniqueIndex:idx_cycle_rag_n;column:rag_id" json:"rag_id"`
	CycleN    int            `gorm:"not null;uniqueIndex:idx_cycle_rag_n;column:cycle_n" json:"cycle_n"`
	Status    string         `gorm:"not null;index;column:status" json:"status"`
	Report    datatypes.JSON `gorm:"column:report" json:"report,omitempty"`
	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	MergedAt  *time.Time     `gorm:"column:merged_at" json:"merged_at,omitempty"`

	// DecisionToken is held by the approve or reject call currently working
	// on a cycle in review; DecisionAt is when it was taken.
	DecisionToken string     `gorm:"column:decision_token;size:64" json:"-"`
	DecisionAt    *time.Time `gorm:"column:decision_at" json:"-"`
}

func (UploadCycle) TableName() string { return "upload_cycles" }
