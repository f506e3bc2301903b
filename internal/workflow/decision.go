package workflow

import (
	"github.com/gafferbot/gaffer/internal/models"
)

// Decision is the value one workflow run emits: the confirmed draft with
// captaincy, the transfers that produced it, an optional chip, and the
// rationale tokens explaining each move.
type Decision struct {
	DecisionID          string            `json:"decision_id"`
	Gameweek            int               `json:"gameweek"`
	Draft               *models.Squad     `json:"draft"`
	CaptainID           uint              `json:"captain_id"`
	ViceID              uint              `json:"vice_id"`
	Transfers           []models.Transfer `json:"transfers"`
	ChipUsed            models.ChipType   `json:"chip_used,omitempty"`
	ExpectedTotalPoints float64           `json:"expected_total_points"`
	RationaleTokens     []string          `json:"rationale_tokens"`
}
