package models

import (
	"time"
)

// Position is a player's registered position.
type Position string

const (
	Goalkeeper Position = "GK"
	Defender   Position = "DEF"
	Midfielder Position = "MID"
	Forward    Position = "FWD"
)

// Positions lists all positions in squad-slot order.
var Positions = []Position{Goalkeeper, Defender, Midfielder, Forward}

// PositionFromElementType maps the upstream element_type (1..4) to a Position.
func PositionFromElementType(et int) Position {
	switch et {
	case 1:
		return Goalkeeper
	case 2:
		return Defender
	case 3:
		return Midfielder
	default:
		return Forward
	}
}

// AvailabilityStatus is the upstream authority's view of a player.
type AvailabilityStatus string

const (
	StatusAvailable   AvailabilityStatus = "available"
	StatusDoubtful    AvailabilityStatus = "doubtful"
	StatusInjured     AvailabilityStatus = "injured"
	StatusSuspended   AvailabilityStatus = "suspended"
	StatusUnavailable AvailabilityStatus = "unavailable"
)

// StatusFromCode maps the upstream single-letter status code.
func StatusFromCode(code string) AvailabilityStatus {
	switch code {
	case "a":
		return StatusAvailable
	case "d":
		return StatusDoubtful
	case "i":
		return StatusInjured
	case "s":
		return StatusSuspended
	default:
		return StatusUnavailable
	}
}

type Player struct {
	ID              uint     `gorm:"primaryKey" json:"id"` // season element id
	Code            int      `gorm:"uniqueIndex" json:"code"`
	WebName         string   `gorm:"not null;index" json:"web_name"`
	FirstName       string   `json:"first_name"`
	LastName        string   `json:"last_name"`
	Position        Position `gorm:"not null;index" json:"position"`
	ClubID          uint     `gorm:"not null;index" json:"club_id"`
	NowCost         int      `gorm:"not null" json:"now_cost"` // tenths
	Status          AvailabilityStatus `gorm:"not null;default:available" json:"status"`
	ChanceOfPlaying *int     `json:"chance_of_playing,omitempty"`
	Form            float64  `json:"form"`
	PointsPerGame   float64  `json:"points_per_game"`
	TotalPoints     int      `json:"total_points"`
	Minutes         int      `json:"minutes"`
	SelectedBy      float64  `json:"selected_by"` // ownership percent
	Influence       float64  `json:"influence"`
	Creativity      float64  `json:"creativity"`
	Threat          float64  `json:"threat"`
	ICTIndex        float64  `json:"ict_index"`
	ExpectedGoals   float64  `json:"expected_goals"`
	ExpectedAssists float64  `json:"expected_assists"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Player) TableName() string {
	return "players"
}

// FullName joins first and last name, falling back to the web name.
func (p *Player) FullName() string {
	if p.FirstName == "" && p.LastName == "" {
		return p.WebName
	}
	if p.FirstName == "" {
		return p.LastName
	}
	return p.FirstName + " " + p.LastName
}

// IsOut reports whether the upstream has ruled the player out entirely.
func (p *Player) IsOut() bool {
	return p.Status == StatusUnavailable || p.Status == StatusSuspended
}

type Club struct {
	ID                  uint   `gorm:"primaryKey" json:"id"`
	Name                string `gorm:"not null" json:"name"`
	ShortName           string `gorm:"not null;index" json:"short_name"`
	StrengthOverallHome int    `json:"strength_overall_home"`
	StrengthOverallAway int    `json:"strength_overall_away"`
	StrengthAttackHome  int    `json:"strength_attack_home"`
	StrengthAttackAway  int    `json:"strength_attack_away"`
	StrengthDefenceHome int    `json:"strength_defence_home"`
	StrengthDefenceAway int    `json:"strength_defence_away"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func (Club) TableName() string {
	return "clubs"
}

// PriceBracket buckets a price in tenths into the calibration brackets.
func PriceBracket(nowCost int) string {
	switch {
	case nowCost >= 100:
		return "premium"
	case nowCost >= 60:
		return "mid"
	default:
		return "budget"
	}
}
