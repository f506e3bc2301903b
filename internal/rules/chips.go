package rules

import (
	"fmt"

	"github.com/gafferbot/gaffer/internal/models"
)

// ChipHalf returns which chip half (1 or 2) a gameweek belongs to.
func ChipHalf(gameweek, firstHalfEndGW int) int {
	if gameweek <= firstHalfEndGW {
		return 1
	}
	return 2
}

// ChipError explains why a chip cannot be played.
type ChipError struct {
	Chip     models.ChipType
	Gameweek int
	Reason   string
}

func (e *ChipError) Error() string {
	return fmt.Sprintf("%s unavailable in gameweek %d: %s", e.Chip, e.Gameweek, e.Reason)
}

// CanUseChip reports whether the chip is playable in the gameweek: one use
// per half, half-1 chips do not carry into half 2, and wildcard/free-hit
// never share a gameweek.
func CanUseChip(chip models.ChipType, gameweek int, history []models.ChipUsage, firstHalfEndGW, finalGW int) error {
	if gameweek < 1 || gameweek > finalGW {
		return &ChipError{Chip: chip, Gameweek: gameweek, Reason: "gameweek out of range"}
	}

	half := ChipHalf(gameweek, firstHalfEndGW)
	for _, used := range history {
		if used.Chip == chip && used.Half == half {
			return &ChipError{Chip: chip, Gameweek: gameweek, Reason: "already used this half"}
		}
	}

	// Wildcard and free hit are mutually exclusive within a gameweek.
	var conflicting models.ChipType
	switch chip {
	case models.ChipWildcard:
		conflicting = models.ChipFreeHit
	case models.ChipFreeHit:
		conflicting = models.ChipWildcard
	}
	if conflicting != "" {
		for _, used := range history {
			if used.Chip == conflicting && used.Gameweek == gameweek {
				return &ChipError{Chip: chip, Gameweek: gameweek, Reason: "cannot combine with " + string(conflicting)}
			}
		}
	}

	return nil
}
