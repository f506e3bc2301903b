package models

import "time"

// SquadType distinguishes the held squad, an unconfirmed draft and archived
// per-gameweek history rows.
type SquadType string

const (
	SquadCurrent SquadType = "current"
	SquadDraft   SquadType = "draft"
	SquadHistory SquadType = "history"
)

// SquadPick is one persisted slot of a 15-player squad.
type SquadPick struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	SquadType     SquadType `gorm:"not null;index:idx_squad_gw" json:"squad_type"`
	Gameweek      int       `gorm:"not null;index:idx_squad_gw" json:"gameweek"`
	PlayerID      uint      `gorm:"not null" json:"player_id"`
	Slot          int       `gorm:"not null" json:"slot"` // 1..11 starters, 12..15 bench order
	PurchasePrice int       `gorm:"not null" json:"purchase_price"`
	SellingPrice  int       `gorm:"not null" json:"selling_price"`
	IsCaptain     bool      `gorm:"default:false" json:"is_captain"`
	IsVice        bool      `gorm:"default:false" json:"is_vice"`
	Multiplier    int       `gorm:"default:1" json:"multiplier"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (SquadPick) TableName() string {
	return "squad_picks"
}

// Pick is the in-memory form of a squad slot, joined with its player.
type Pick struct {
	Player        *Player `json:"player"`
	Slot          int     `json:"slot"`
	PurchasePrice int     `json:"purchase_price"`
	SellingPrice  int     `json:"selling_price"`
	IsCaptain     bool    `json:"is_captain"`
	IsVice        bool    `json:"is_vice"`
	Multiplier    int     `json:"multiplier"`
}

// Squad is a full 15-player selection for a gameweek.
type Squad struct {
	Gameweek int    `json:"gameweek"`
	Picks    []Pick `json:"picks"`
}

// Starters returns slots 1..11.
func (s *Squad) Starters() []Pick {
	starters := make([]Pick, 0, 11)
	for _, p := range s.Picks {
		if p.Slot >= 1 && p.Slot <= 11 {
			starters = append(starters, p)
		}
	}
	return starters
}

// Bench returns slots 12..15 in substitution priority order.
func (s *Squad) Bench() []Pick {
	bench := make([]Pick, 0, 4)
	for slot := 12; slot <= 15; slot++ {
		for _, p := range s.Picks {
			if p.Slot == slot {
				bench = append(bench, p)
			}
		}
	}
	return bench
}

// Captain returns the captain pick, or nil when unset.
func (s *Squad) Captain() *Pick {
	for i := range s.Picks {
		if s.Picks[i].IsCaptain {
			return &s.Picks[i]
		}
	}
	return nil
}

// Vice returns the vice-captain pick, or nil when unset.
func (s *Squad) Vice() *Pick {
	for i := range s.Picks {
		if s.Picks[i].IsVice {
			return &s.Picks[i]
		}
	}
	return nil
}

// HasPlayer reports whether the player is in the squad.
func (s *Squad) HasPlayer(playerID uint) bool {
	for _, p := range s.Picks {
		if p.Player != nil && p.Player.ID == playerID {
			return true
		}
	}
	return false
}

// PositionCounts counts squad players by position.
func (s *Squad) PositionCounts() map[Position]int {
	counts := make(map[Position]int, 4)
	for _, p := range s.Picks {
		if p.Player != nil {
			counts[p.Player.Position]++
		}
	}
	return counts
}

// StarterPositionCounts counts starting-XI players by position.
func (s *Squad) StarterPositionCounts() map[Position]int {
	counts := make(map[Position]int, 4)
	for _, p := range s.Starters() {
		if p.Player != nil {
			counts[p.Player.Position]++
		}
	}
	return counts
}

// ClubCounts counts squad players by club.
func (s *Squad) ClubCounts() map[uint]int {
	counts := make(map[uint]int)
	for _, p := range s.Picks {
		if p.Player != nil {
			counts[p.Player.ClubID]++
		}
	}
	return counts
}

// TotalCost sums current prices across the squad.
func (s *Squad) TotalCost() int {
	total := 0
	for _, p := range s.Picks {
		if p.Player != nil {
			total += p.Player.NowCost
		}
	}
	return total
}

// TotalSellingValue sums selling prices across the squad.
func (s *Squad) TotalSellingValue() int {
	total := 0
	for _, p := range s.Picks {
		total += p.SellingPrice
	}
	return total
}

// Clone returns a deep copy with fresh pick slices (players are shared).
func (s *Squad) Clone() *Squad {
	clone := &Squad{Gameweek: s.Gameweek, Picks: make([]Pick, len(s.Picks))}
	copy(clone.Picks, s.Picks)
	return clone
}

// TeamState is the singleton row tracking bank and free transfers.
type TeamState struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Bank          int       `gorm:"not null" json:"bank"` // tenths
	FreeTransfers int       `gorm:"not null" json:"free_transfers"`
	UpdatedAtGW   int       `json:"updated_at_gw"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (TeamState) TableName() string {
	return "team_state"
}
