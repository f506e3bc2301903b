package rules

import (
	"fmt"

	"github.com/gafferbot/gaffer/internal/models"
)

// Violation identifies which squad invariant a validation failed on.
type Violation string

const (
	ViolationSquadSize     Violation = "SQUAD_SIZE"
	ViolationPositionCount Violation = "POSITION_COUNT"
	ViolationStartingXI    Violation = "STARTING_XI"
	ViolationClubCap       Violation = "CLUB_CAP"
	ViolationBudget        Violation = "BUDGET"
	ViolationCaptaincy     Violation = "CAPTAINCY"
	ViolationTransfer      Violation = "TRANSFER"
)

// ValidationError is a discriminated rules failure. No free-form-only errors:
// callers can switch on Violation.
type ValidationError struct {
	Violation Violation
	Detail    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Violation, e.Detail)
}

func violation(v Violation, format string, args ...interface{}) error {
	return &ValidationError{Violation: v, Detail: fmt.Sprintf(format, args...)}
}

// Squad composition limits.
const (
	SquadSize   = 15
	StartingXI  = 11
	SquadGK     = 2
	MinSquadDEF = 3
	MaxSquadDEF = 5
	MinSquadMID = 2
	MaxSquadMID = 5
	MinSquadFWD = 1
	MaxSquadFWD = 3
	MinStartDEF = 3
	MinStartFWD = 1
)

// ValidateSquad checks every squad invariant: size, position distribution,
// starting-XI composition, club cap, budget, captaincy.
func ValidateSquad(s *models.Squad, budget, maxClubPlayers int) error {
	if len(s.Picks) != SquadSize {
		return violation(ViolationSquadSize, "squad has %d players, want %d", len(s.Picks), SquadSize)
	}

	counts := s.PositionCounts()
	if counts[models.Goalkeeper] != SquadGK {
		return violation(ViolationPositionCount, "squad has %d goalkeepers, want %d", counts[models.Goalkeeper], SquadGK)
	}
	if c := counts[models.Defender]; c < MinSquadDEF || c > MaxSquadDEF {
		return violation(ViolationPositionCount, "squad has %d defenders, want %d-%d", c, MinSquadDEF, MaxSquadDEF)
	}
	if c := counts[models.Midfielder]; c < MinSquadMID || c > MaxSquadMID {
		return violation(ViolationPositionCount, "squad has %d midfielders, want %d-%d", c, MinSquadMID, MaxSquadMID)
	}
	if c := counts[models.Forward]; c < MinSquadFWD || c > MaxSquadFWD {
		return violation(ViolationPositionCount, "squad has %d forwards, want %d-%d", c, MinSquadFWD, MaxSquadFWD)
	}

	starters := s.Starters()
	if len(starters) != StartingXI {
		return violation(ViolationStartingXI, "starting XI has %d players, want %d", len(starters), StartingXI)
	}
	startCounts := s.StarterPositionCounts()
	if startCounts[models.Goalkeeper] != 1 {
		return violation(ViolationStartingXI, "starting XI has %d goalkeepers, want 1", startCounts[models.Goalkeeper])
	}
	if startCounts[models.Defender] < MinStartDEF {
		return violation(ViolationStartingXI, "starting XI has %d defenders, want at least %d", startCounts[models.Defender], MinStartDEF)
	}
	if startCounts[models.Forward] < MinStartFWD {
		return violation(ViolationStartingXI, "starting XI has %d forwards, want at least %d", startCounts[models.Forward], MinStartFWD)
	}

	for clubID, count := range s.ClubCounts() {
		if count > maxClubPlayers {
			return violation(ViolationClubCap, "club %d has %d players, cap is %d", clubID, count, maxClubPlayers)
		}
	}

	if cost := s.TotalCost(); cost > budget {
		return violation(ViolationBudget, "squad costs %d, budget is %d", cost, budget)
	}

	return validateCaptaincy(s)
}

func validateCaptaincy(s *models.Squad) error {
	var captain, vice *models.Pick
	for i := range s.Picks {
		p := &s.Picks[i]
		if p.IsCaptain {
			if captain != nil {
				return violation(ViolationCaptaincy, "more than one captain")
			}
			captain = p
		}
		if p.IsVice {
			if vice != nil {
				return violation(ViolationCaptaincy, "more than one vice-captain")
			}
			vice = p
		}
	}
	if captain == nil {
		return violation(ViolationCaptaincy, "no captain set")
	}
	if vice == nil {
		return violation(ViolationCaptaincy, "no vice-captain set")
	}
	if captain.Player != nil && vice.Player != nil && captain.Player.ID == vice.Player.ID {
		return violation(ViolationCaptaincy, "captain and vice-captain are the same player")
	}
	if captain.Slot > StartingXI {
		return violation(ViolationCaptaincy, "captain is not in the starting XI")
	}
	if vice.Slot > StartingXI {
		return violation(ViolationCaptaincy, "vice-captain is not in the starting XI")
	}
	return nil
}

// ValidateTransfer checks a single proposed swap against the current squad.
// The outgoing player's selling price funds the incoming one.
func ValidateTransfer(current *models.Squad, out, in *models.Player, bank, budget, maxClubPlayers int) error {
	if !current.HasPlayer(out.ID) {
		return violation(ViolationTransfer, "player %d is not in the squad", out.ID)
	}
	if current.HasPlayer(in.ID) {
		return violation(ViolationTransfer, "player %d is already in the squad", in.ID)
	}

	var outPick *models.Pick
	for i := range current.Picks {
		if current.Picks[i].Player != nil && current.Picks[i].Player.ID == out.ID {
			outPick = &current.Picks[i]
			break
		}
	}

	if bank+outPick.SellingPrice < in.NowCost {
		return violation(ViolationBudget, "need %d for incoming player, have %d (bank %d + selling %d)",
			in.NowCost, bank+outPick.SellingPrice, bank, outPick.SellingPrice)
	}

	// Simulate the swap for the structural checks.
	next := current.Clone()
	for i := range next.Picks {
		if next.Picks[i].Player != nil && next.Picks[i].Player.ID == out.ID {
			next.Picks[i].Player = in
			next.Picks[i].PurchasePrice = in.NowCost
			next.Picks[i].SellingPrice = in.NowCost
		}
	}

	if out.Position != in.Position {
		counts := next.PositionCounts()
		if counts[models.Goalkeeper] != SquadGK {
			return violation(ViolationPositionCount, "transfer leaves %d goalkeepers", counts[models.Goalkeeper])
		}
		if c := counts[models.Defender]; c < MinSquadDEF || c > MaxSquadDEF {
			return violation(ViolationPositionCount, "transfer leaves %d defenders", c)
		}
		if c := counts[models.Midfielder]; c < MinSquadMID || c > MaxSquadMID {
			return violation(ViolationPositionCount, "transfer leaves %d midfielders", c)
		}
		if c := counts[models.Forward]; c < MinSquadFWD || c > MaxSquadFWD {
			return violation(ViolationPositionCount, "transfer leaves %d forwards", c)
		}
	}

	for clubID, count := range next.ClubCounts() {
		if count > maxClubPlayers {
			return violation(ViolationClubCap, "transfer leaves club %d with %d players, cap is %d", clubID, count, maxClubPlayers)
		}
	}

	return nil
}
