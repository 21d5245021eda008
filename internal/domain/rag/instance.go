package rag

import "time"

// Instance is one user knowledge base backed by a production dataset.
type Instance struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	OwnerID       uint      `gorm:"not null;index;column:owner_id" json:"owner_id"`
	Name          string    `gorm:"not null;column:name" json:"name"`
	Description   string    `gorm:"column:description" json:"description"`
	FusekiDataset string    `gorm:"column:fuseki_dataset" json:"fuseki_dataset"`
	CycleCount    int       `gorm:"not null;default:0;column:cycle_count" json:"cycle_count"`
	CreatedAt     time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (Instance) TableName() string { return "rag_instances" }

const (
	RoleViewer = "viewer"
	RoleEditor = "editor"
)

// Member grants a non-owner read access to a RAG instance.
type Member struct {
	RagID     uint      `gorm:"primaryKey;column:rag_id" json:"rag_id"`
	UserID    uint      `gorm:"primaryKey;column:user_id" json:"user_id"`
	Role      string    `gorm:"not null;column:role" json:"role"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (Member) TableName() string { return "rag_members" }
