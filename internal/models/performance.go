package models

import "time"

// PlayerPerformance is one player's final line for one gameweek.
type PlayerPerformance struct {
	ID             uint `gorm:"primaryKey" json:"id"`
	PlayerID       uint `gorm:"not null;uniqueIndex:idx_player_gw" json:"player_id"`
	Gameweek       int  `gorm:"not null;uniqueIndex:idx_player_gw" json:"gameweek"`
	OpponentClubID uint `json:"opponent_club_id"`
	WasHome        bool `json:"was_home"`

	Minutes          int  `json:"minutes"`
	Goals            int  `json:"goals"`
	Assists          int  `json:"assists"`
	CleanSheet       bool `json:"clean_sheet"`
	GoalsConceded    int  `json:"goals_conceded"`
	OwnGoals         int  `json:"own_goals"`
	PenaltiesSaved   int  `json:"penalties_saved"`
	PenaltiesMissed  int  `json:"penalties_missed"`
	YellowCards      int  `json:"yellow_cards"`
	RedCards         int  `json:"red_cards"`
	Saves            int  `json:"saves"`
	Bonus            int  `json:"bonus"`
	BPS              int  `json:"bps"`

	Influence  float64 `json:"influence"`
	Creativity float64 `json:"creativity"`
	Threat     float64 `json:"threat"`

	ExpectedGoals   float64 `json:"expected_goals"`
	ExpectedAssists float64 `json:"expected_assists"`

	// Defensive action counts behind the defensive-contribution rule.
	Tackles                       int `json:"tackles"`
	Interceptions                 int `json:"interceptions"`
	ClearancesBlocksInterceptions int `json:"clearances_blocks_interceptions"`
	Recoveries                    int `json:"recoveries"`

	TotalPoints int       `json:"total_points"`
	CreatedAt   time.Time `json:"created_at"`
}

func (PlayerPerformance) TableName() string {
	return "player_performances"
}

// Started reports whether the player reached the clean-sheet minute threshold.
func (p *PlayerPerformance) Started() bool {
	return p.Minutes >= 60
}

// ExpectedGoalInvolvements is xG + xA for the match.
func (p *PlayerPerformance) ExpectedGoalInvolvements() float64 {
	return p.ExpectedGoals + p.ExpectedAssists
}
