package models

import "time"

// DecisionRecord is the persisted form of an emitted workflow decision.
// The structured payload is stored as JSON; decisions are append-only and
// never mutated after their gameweek finishes.
type DecisionRecord struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	DecisionID          string    `gorm:"uniqueIndex" json:"decision_id"`
	Gameweek            int       `gorm:"not null;index" json:"gameweek"`
	CaptainID           uint      `json:"captain_id"`
	ViceID              uint      `json:"vice_id"`
	ChipUsed            string    `json:"chip_used,omitempty"`
	ExpectedTotalPoints float64   `json:"expected_total_points"`
	Payload             string    `gorm:"type:text" json:"payload"` // JSON Decision
	CreatedAt           time.Time `json:"created_at"`
}

func (DecisionRecord) TableName() string {
	return "decisions"
}

// WorkflowLock is the cooperative per-gameweek run lock.
type WorkflowLock struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Gameweek  int       `gorm:"not null;uniqueIndex" json:"gameweek"`
	RunID     string    `gorm:"not null" json:"run_id"`
	LockedAt  time.Time `json:"locked_at"`
	Released  bool      `gorm:"default:false" json:"released"`
}

func (WorkflowLock) TableName() string {
	return "workflow_locks"
}
