package models

import "time"

type Fixture struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Gameweek       int       `gorm:"index" json:"gameweek"` // 0 when unscheduled
	HomeClubID     uint      `gorm:"not null;index" json:"home_club_id"`
	AwayClubID     uint      `gorm:"not null;index" json:"away_club_id"`
	KickoffTime    time.Time `json:"kickoff_time"`
	HomeDifficulty int       `json:"home_difficulty"` // 1..5, 1 easiest
	AwayDifficulty int       `json:"away_difficulty"`
	Finished       bool      `gorm:"default:false" json:"finished"`
	HomeScore      *int      `json:"home_score,omitempty"`
	AwayScore      *int      `json:"away_score,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (Fixture) TableName() string {
	return "fixtures"
}

// DifficultyFor returns the fixture difficulty faced by the given club.
func (f *Fixture) DifficultyFor(clubID uint) int {
	if f.HomeClubID == clubID {
		return f.HomeDifficulty
	}
	return f.AwayDifficulty
}

// OpponentOf returns the opposing club and whether clubID plays at home.
func (f *Fixture) OpponentOf(clubID uint) (uint, bool) {
	if f.HomeClubID == clubID {
		return f.AwayClubID, true
	}
	return f.HomeClubID, false
}

// Involves reports whether the club plays in this fixture.
func (f *Fixture) Involves(clubID uint) bool {
	return f.HomeClubID == clubID || f.AwayClubID == clubID
}

type Gameweek struct {
	ID        int       `gorm:"primaryKey" json:"id"` // 1..38
	Deadline  time.Time `gorm:"not null" json:"deadline"`
	IsCurrent bool      `gorm:"default:false" json:"is_current"`
	IsNext    bool      `gorm:"default:false" json:"is_next"`
	Finished  bool      `gorm:"default:false" json:"finished"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Gameweek) TableName() string {
	return "gameweeks"
}
