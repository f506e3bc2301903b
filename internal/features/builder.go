package features

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/gafferbot/gaffer/internal/models"
)

// Documented defaults substituted for missing inputs.
const (
	DefaultDifficulty = 3
	// Strength ratings are ordinal; they are normalised against this scale
	// and an unknown opponent gets the mid-table value below.
	strengthScale   = 1400.0
	defaultStrength = 1100.0
)

// Input carries everything the builder needs for one player and gameweek.
type Input struct {
	Player   *models.Player
	Opponent *models.Club     // nil when no fixture is known
	Fixture  *models.Fixture  // nil when no fixture is known
	History  []models.PlayerPerformance // ascending by gameweek
	Gameweek int
}

// Build produces the fixed feature vector and the form sequence for a player.
func Build(in Input) (*PlayerFeatures, error) {
	if in.Player == nil {
		return nil, fmt.Errorf("feature build requires a player")
	}

	recent := lastAppearances(in.History, RollingWindow)

	vec := make([]float64, 0, VectorSize)

	// Static attributes.
	p := in.Player
	vec = append(vec,
		float64(p.NowCost)/10.0,
		p.SelectedBy/100.0,
		p.Form,
		p.PointsPerGame,
		p.Influence,
		p.Creativity,
		p.Threat,
		p.ICTIndex,
	)

	// Rolling averages over the last appearances.
	vec = append(vec,
		avgInt(recent, func(pf *models.PlayerPerformance) int { return pf.TotalPoints }),
		avgInt(recent, func(pf *models.PlayerPerformance) int { return pf.Minutes }),
		avgInt(recent, func(pf *models.PlayerPerformance) int { return pf.Goals }),
		avgInt(recent, func(pf *models.PlayerPerformance) int { return pf.Assists }),
		avgInt(recent, func(pf *models.PlayerPerformance) int { return pf.Bonus }),
		avgInt(recent, func(pf *models.PlayerPerformance) int { return pf.BPS }),
		avgBool(recent, func(pf *models.PlayerPerformance) bool { return pf.CleanSheet }),
		avgInt(recent, func(pf *models.PlayerPerformance) int { return pf.Saves }),
		avgFloat(recent, func(pf *models.PlayerPerformance) float64 { return pf.Influence }),
		avgFloat(recent, func(pf *models.PlayerPerformance) float64 { return pf.Creativity }),
		avgFloat(recent, func(pf *models.PlayerPerformance) float64 { return pf.Threat }),
		avgFloat(recent, func(pf *models.PlayerPerformance) float64 { return pf.ExpectedGoals }),
		avgFloat(recent, func(pf *models.PlayerPerformance) float64 { return pf.ExpectedAssists }),
		avgFloat(recent, func(pf *models.PlayerPerformance) float64 { return pf.ExpectedGoalInvolvements() }),
	)

	// Trend and overperformance.
	avgGoals := avgInt(recent, func(pf *models.PlayerPerformance) int { return pf.Goals })
	avgAssists := avgInt(recent, func(pf *models.PlayerPerformance) int { return pf.Assists })
	avgXG := avgFloat(recent, func(pf *models.PlayerPerformance) float64 { return pf.ExpectedGoals })
	avgXA := avgFloat(recent, func(pf *models.PlayerPerformance) float64 { return pf.ExpectedAssists })
	vec = append(vec,
		pointsTrend(recent),
		avgGoals-avgXG,
		avgAssists-avgXA,
	)

	// Season rates.
	games := 0
	seasonMinutes := 0
	seasonGoals := 0
	seasonAssists := 0
	seasonCleanSheets := 0
	seasonPoints := 0
	for i := range in.History {
		pf := &in.History[i]
		if pf.Minutes > 0 {
			games++
		}
		seasonMinutes += pf.Minutes
		seasonGoals += pf.Goals
		seasonAssists += pf.Assists
		seasonPoints += pf.TotalPoints
		if pf.CleanSheet {
			seasonCleanSheets++
		}
	}
	perGame := func(total int) float64 {
		if games == 0 {
			return 0
		}
		return float64(total) / float64(games)
	}
	vec = append(vec,
		float64(games),
		perGame(seasonPoints),
		perGame(seasonMinutes),
		perGame(seasonGoals),
		perGame(seasonAssists),
		perGame(seasonCleanSheets),
	)

	// Fixture context.
	overall, attack, defence := defaultStrength, defaultStrength, defaultStrength
	difficulty := float64(DefaultDifficulty)
	isHome := 0.0
	if in.Fixture != nil {
		difficulty = float64(in.Fixture.DifficultyFor(p.ClubID))
		if _, home := in.Fixture.OpponentOf(p.ClubID); home {
			isHome = 1.0
		}
	}
	if in.Opponent != nil {
		// Strength at the venue the opponent plays: when the player is at
		// home the opponent is away.
		if isHome == 1.0 {
			overall = float64(in.Opponent.StrengthOverallAway)
			attack = float64(in.Opponent.StrengthAttackAway)
			defence = float64(in.Opponent.StrengthDefenceAway)
		} else {
			overall = float64(in.Opponent.StrengthOverallHome)
			attack = float64(in.Opponent.StrengthAttackHome)
			defence = float64(in.Opponent.StrengthDefenceHome)
		}
	}
	vec = append(vec,
		overall/strengthScale,
		attack/strengthScale,
		defence/strengthScale,
		difficulty,
		isHome,
	)

	// Defensive-contribution potential.
	avgTackles := avgInt(recent, func(pf *models.PlayerPerformance) int { return pf.Tackles })
	avgCBI := avgInt(recent, func(pf *models.PlayerPerformance) int { return pf.ClearancesBlocksInterceptions })
	avgRecoveries := avgInt(recent, func(pf *models.PlayerPerformance) int { return pf.Recoveries })
	vec = append(vec,
		avgTackles,
		avgCBI,
		avgRecoveries,
		avgTackles+avgCBI+0.5*avgRecoveries,
	)

	// Derived.
	avgMinutes := avgInt(recent, func(pf *models.PlayerPerformance) int { return pf.Minutes })
	reliability := avgMinutes / 90.0
	if reliability > 1 {
		reliability = 1
	}
	if reliability < 0 {
		reliability = 0
	}
	vec = append(vec,
		reliability,
		4.0*avgGoals+3.0*avgAssists,
	)

	if len(vec) != VectorSize {
		return nil, fmt.Errorf("feature vector has %d values, contract says %d", len(vec), VectorSize)
	}

	return &PlayerFeatures{
		PlayerID:       p.ID,
		Gameweek:       in.Gameweek,
		FeatureVersion: FeatureVersion,
		Vector:         vec,
		Sequence:       buildSequence(in.History),
	}, nil
}

// buildSequence returns the last SequenceLength per-gameweek rows, oldest
// first, zero-padded on the left when history is shorter.
func buildSequence(history []models.PlayerPerformance) [][]float64 {
	rows := make([][]float64, SequenceLength)
	pad := SequenceLength - len(history)
	for i := 0; i < SequenceLength; i++ {
		if i < pad {
			rows[i] = make([]float64, len(SequenceRowNames))
			continue
		}
		pf := &history[len(history)-SequenceLength+i]
		home := 0.0
		if pf.WasHome {
			home = 1.0
		}
		rows[i] = []float64{
			float64(pf.Minutes),
			float64(pf.TotalPoints),
			float64(pf.Goals),
			float64(pf.Assists),
			float64(pf.Bonus),
			float64(pf.BPS),
			pf.Influence,
			pf.Creativity,
			pf.Threat,
			pf.ExpectedGoals,
			pf.ExpectedAssists,
			home,
		}
	}
	return rows
}

// pointsTrend is the least-squares slope of points across the recent
// appearances, zero when there are fewer than two.
func pointsTrend(recent []models.PlayerPerformance) float64 {
	if len(recent) < 2 {
		return 0
	}
	xs := make([]float64, len(recent))
	ys := make([]float64, len(recent))
	for i := range recent {
		xs[i] = float64(i)
		ys[i] = float64(recent[i].TotalPoints)
	}
	_, slope := stat.LinearRegression(xs, ys, nil, false)
	return slope
}

// lastAppearances returns up to n most recent rows where the player featured,
// preserving chronological order.
func lastAppearances(history []models.PlayerPerformance, n int) []models.PlayerPerformance {
	appearances := make([]models.PlayerPerformance, 0, len(history))
	for _, pf := range history {
		if pf.Minutes > 0 {
			appearances = append(appearances, pf)
		}
	}
	if len(appearances) > n {
		appearances = appearances[len(appearances)-n:]
	}
	return appearances
}

func avgInt(perfs []models.PlayerPerformance, f func(*models.PlayerPerformance) int) float64 {
	if len(perfs) == 0 {
		return 0
	}
	sum := 0
	for i := range perfs {
		sum += f(&perfs[i])
	}
	return float64(sum) / float64(len(perfs))
}

func avgFloat(perfs []models.PlayerPerformance, f func(*models.PlayerPerformance) float64) float64 {
	if len(perfs) == 0 {
		return 0
	}
	sum := 0.0
	for i := range perfs {
		sum += f(&perfs[i])
	}
	return sum / float64(len(perfs))
}

func avgBool(perfs []models.PlayerPerformance, f func(*models.PlayerPerformance) bool) float64 {
	if len(perfs) == 0 {
		return 0
	}
	sum := 0.0
	for i := range perfs {
		if f(&perfs[i]) {
			sum++
		}
	}
	return sum / float64(len(perfs))
}
