package rules

import (
	"github.com/gafferbot/gaffer/internal/models"
)

// 2025/26 scoring constants.
const (
	AssistPoints         = 3
	PenaltySavePoints    = 5
	PenaltyMissPoints    = -2
	OwnGoalPoints        = -2
	YellowCardPoints     = -1
	RedCardPoints        = -3
	GoalsConcededPer     = 2 // -1 per 2 conceded (GK/DEF)
	SavesPer             = 3 // +1 per 3 saves (GK)
	DefConDefThreshold   = 10 // tackles + interceptions + CBI
	DefConMidThreshold   = 12 // the same three + recoveries
	DefConPoints         = 2
)

var goalPoints = map[models.Position]int{
	models.Goalkeeper: 10,
	models.Defender:   6,
	models.Midfielder: 5,
	models.Forward:    4,
}

var cleanSheetPoints = map[models.Position]int{
	models.Goalkeeper: 4,
	models.Defender:   4,
	models.Midfielder: 1,
	models.Forward:    0,
}

// ScoreBreakdown itemises a player's points for one gameweek.
type ScoreBreakdown struct {
	Minutes               int `json:"minutes"`
	Goals                 int `json:"goals"`
	Assists               int `json:"assists"`
	CleanSheet            int `json:"clean_sheet"`
	GoalsConceded         int `json:"goals_conceded"`
	Saves                 int `json:"saves"`
	PenaltiesSaved        int `json:"penalties_saved"`
	PenaltiesMissed       int `json:"penalties_missed"`
	OwnGoals              int `json:"own_goals"`
	Cards                 int `json:"cards"`
	Bonus                 int `json:"bonus"`
	DefensiveContribution int `json:"defensive_contribution"`
}

// Total sums every component.
func (b ScoreBreakdown) Total() int {
	return b.Minutes + b.Goals + b.Assists + b.CleanSheet + b.GoalsConceded +
		b.Saves + b.PenaltiesSaved + b.PenaltiesMissed + b.OwnGoals +
		b.Cards + b.Bonus + b.DefensiveContribution
}

// ScorePerformance computes the closed-form score for a finished gameweek line.
func ScorePerformance(pos models.Position, perf *models.PlayerPerformance) ScoreBreakdown {
	var b ScoreBreakdown

	switch {
	case perf.Minutes <= 0:
		return b
	case perf.Minutes >= 60:
		b.Minutes = 2
	case pos == models.Goalkeeper || pos == models.Defender:
		b.Minutes = 1
	}

	b.Goals = perf.Goals * goalPoints[pos]
	b.Assists = perf.Assists * AssistPoints

	if perf.CleanSheet && perf.Minutes >= 60 {
		b.CleanSheet = cleanSheetPoints[pos]
	}

	if pos == models.Goalkeeper || pos == models.Defender {
		b.GoalsConceded = -(perf.GoalsConceded / GoalsConcededPer)
	}
	if pos == models.Goalkeeper {
		b.Saves = perf.Saves / SavesPer
	}

	b.PenaltiesSaved = perf.PenaltiesSaved * PenaltySavePoints
	b.PenaltiesMissed = perf.PenaltiesMissed * PenaltyMissPoints
	b.OwnGoals = perf.OwnGoals * OwnGoalPoints
	b.Cards = perf.YellowCards*YellowCardPoints + perf.RedCards*RedCardPoints
	b.Bonus = perf.Bonus
	b.DefensiveContribution = defensiveContribution(pos, perf)

	return b
}

func defensiveContribution(pos models.Position, perf *models.PlayerPerformance) int {
	actions := perf.Tackles + perf.Interceptions + perf.ClearancesBlocksInterceptions
	switch pos {
	case models.Defender:
		if actions >= DefConDefThreshold {
			return DefConPoints
		}
	case models.Midfielder:
		if actions+perf.Recoveries >= DefConMidThreshold {
			return DefConPoints
		}
	}
	return 0
}
