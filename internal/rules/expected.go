package rules

import (
	"github.com/gafferbot/gaffer/internal/models"
)

// difficultyMultipliers scale attacking output by fixture difficulty (1..5).
var difficultyMultipliers = map[int]float64{
	1: 1.30,
	2: 1.15,
	3: 1.00,
	4: 0.85,
	5: 0.70,
}

// DifficultyMultiplier returns the attacking multiplier for a difficulty
// rating, defaulting to neutral for out-of-range input.
func DifficultyMultiplier(difficulty int) float64 {
	if m, ok := difficultyMultipliers[difficulty]; ok {
		return m
	}
	return 1.0
}

// RateProfile is a player's per-90 output used by the fallback estimator.
type RateProfile struct {
	GoalsPer90      float64
	AssistsPer90    float64
	SavesPer90      float64
	CleanSheetRate  float64 // share of starts kept clean
	DefActionsPer90 float64 // tackles + interceptions + CBI
	RecoveriesPer90 float64
}

// ExpectedPointsFallback estimates expected points from per-90 rates, a
// minutes probability and fixture difficulty. The trained predictor is the
// normal supplier of expected points; this closed form covers players with
// no model coverage.
func ExpectedPointsFallback(pos models.Position, rates RateProfile, minutesProb float64, difficulty int) float64 {
	if minutesProb <= 0 {
		return 0
	}
	if minutesProb > 1 {
		minutesProb = 1
	}

	mult := DifficultyMultiplier(difficulty)

	// Appearance points assume a ≥60-minute outing when the player features.
	xp := minutesProb * 2.0

	xp += minutesProb * rates.GoalsPer90 * float64(goalPoints[pos]) * mult
	xp += minutesProb * rates.AssistsPer90 * float64(AssistPoints) * mult

	if pos == models.Goalkeeper || pos == models.Defender {
		// Clean-sheet odds improve against weaker opposition; invert the
		// attacking multiplier so difficulty 1 helps the defence.
		defMult := 2.0 - mult
		xp += minutesProb * rates.CleanSheetRate * float64(cleanSheetPoints[pos]) * defMult
	}
	if pos == models.Goalkeeper {
		xp += minutesProb * (rates.SavesPer90 / float64(SavesPer))
	}

	xp += minutesProb * defConProbability(pos, rates) * float64(DefConPoints)

	if xp < 0 {
		return 0
	}
	return xp
}

// defConProbability is a step function over per-90 defensive averages.
func defConProbability(pos models.Position, rates RateProfile) float64 {
	var actions float64
	var threshold float64
	switch pos {
	case models.Defender:
		actions = rates.DefActionsPer90
		threshold = DefConDefThreshold
	case models.Midfielder:
		actions = rates.DefActionsPer90 + rates.RecoveriesPer90
		threshold = DefConMidThreshold
	default:
		return 0
	}

	switch {
	case actions >= threshold:
		return 0.70
	case actions >= 0.8*threshold:
		return 0.40
	case actions >= 0.6*threshold:
		return 0.15
	default:
		return 0
	}
}
