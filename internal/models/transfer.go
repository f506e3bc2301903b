package models

import "time"

type Transfer struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Gameweek      int       `gorm:"not null;index" json:"gameweek"`
	PlayerOutID   uint      `gorm:"not null" json:"player_out_id"`
	PlayerInID    uint      `gorm:"not null" json:"player_in_id"`
	HitCost       int       `gorm:"default:0" json:"hit_cost"` // points
	IsFree        bool      `gorm:"default:true" json:"is_free"`
	Reasoning     string    `json:"reasoning"`
	PredictedGain float64   `json:"predicted_gain"`
	ActualGain    *float64  `json:"actual_gain,omitempty"` // backfilled after the GW resolves
	CreatedAt     time.Time `json:"created_at"`
}

func (Transfer) TableName() string {
	return "transfers"
}

// ChipType enumerates the one-shot season chips.
type ChipType string

const (
	ChipWildcard      ChipType = "wildcard"
	ChipBenchBoost    ChipType = "bench_boost"
	ChipTripleCaptain ChipType = "triple_captain"
	ChipFreeHit       ChipType = "free_hit"
)

// AllChips lists every chip type.
var AllChips = []ChipType{ChipWildcard, ChipBenchBoost, ChipTripleCaptain, ChipFreeHit}

type ChipUsage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Chip      ChipType  `gorm:"not null;index" json:"chip"`
	Gameweek  int       `gorm:"not null" json:"gameweek"`
	Half      int       `gorm:"not null" json:"half"` // 1 or 2
	CreatedAt time.Time `json:"created_at"`
}

func (ChipUsage) TableName() string {
	return "chip_usages"
}
