package planner

import (
	"sort"

	"github.com/gafferbot/gaffer/internal/models"
)

// Target is one desired transfer in the planning pool.
type Target struct {
	PlayerOutID  uint            `json:"player_out_id"`
	PlayerInID   uint            `json:"player_in_id"`
	Position     models.Position `json:"position"`
	Priority     int             `json:"priority"` // lower is more important
	ExpectedGain float64         `json:"expected_gain"`
	// LatestByGW forces the transfer no later than this gameweek.
	LatestByGW *int `json:"latest_by_gw,omitempty"`
}

// PlannedTransfer is a target placed on a concrete gameweek.
type PlannedTransfer struct {
	Target  Target `json:"target"`
	HitCost int    `json:"hit_cost"`
}

// GameweekBundle groups the transfers planned for one gameweek.
type GameweekBundle struct {
	Gameweek     int               `json:"gameweek"`
	Transfers    []PlannedTransfer `json:"transfers"`
	FreeUsed     int               `json:"free_used"`
	FreeBanked   int               `json:"free_banked"`
	HitCost      int               `json:"hit_cost"`
	ExpectedGain float64           `json:"expected_gain"`
}

// Sequence is the horizon-wide transfer plan.
type Sequence struct {
	Bundles      []GameweekBundle `json:"bundles"`
	TotalHitCost int              `json:"total_hit_cost"`
	TotalGain    float64          `json:"total_gain"`
	NetGain      float64          `json:"net_gain"`
	Unplaced     []Target         `json:"unplaced,omitempty"`
}

// SequenceTransfers walks the horizon gameweek by gameweek: urgent targets
// are forced (on hits when free transfers run out), remaining free
// transfers go to the top-priority targets, and anything left banks up to
// the cap.
func (p *Planner) SequenceTransfers(targets []Target, startGW, startingFT int) Sequence {
	pending := make([]Target, len(targets))
	copy(pending, targets)
	sort.SliceStable(pending, func(i, j int) bool {
		if pending[i].Priority != pending[j].Priority {
			return pending[i].Priority < pending[j].Priority
		}
		return pending[i].ExpectedGain > pending[j].ExpectedGain
	})

	seq := Sequence{}
	ft := startingFT

	endGW := startGW + p.cfg.HorizonGameweeks - 1
	for gw := startGW; gw <= endGW; gw++ {
		if gw > startGW {
			ft++
			if ft > p.cfg.MaxBankedTransfers {
				ft = p.cfg.MaxBankedTransfers
			}
		}

		bundle := GameweekBundle{Gameweek: gw}

		// Urgent first: anything that must land by this gameweek.
		remaining := pending[:0]
		for _, t := range pending {
			if t.LatestByGW != nil && *t.LatestByGW <= gw {
				hit := 0
				if ft > 0 {
					ft--
					bundle.FreeUsed++
				} else {
					hit = p.cfg.HitPointCost
				}
				bundle.Transfers = append(bundle.Transfers, PlannedTransfer{Target: t, HitCost: hit})
				bundle.HitCost += hit
				bundle.ExpectedGain += t.ExpectedGain
			} else {
				remaining = append(remaining, t)
			}
		}
		pending = remaining

		// Spend what free transfers are left on the best of the rest.
		for ft > 0 && len(pending) > 0 {
			t := pending[0]
			pending = pending[1:]
			ft--
			bundle.FreeUsed++
			bundle.Transfers = append(bundle.Transfers, PlannedTransfer{Target: t})
			bundle.ExpectedGain += t.ExpectedGain
		}

		bundle.FreeBanked = ft
		seq.Bundles = append(seq.Bundles, bundle)
		seq.TotalHitCost += bundle.HitCost
		seq.TotalGain += bundle.ExpectedGain
	}

	seq.NetGain = seq.TotalGain - float64(seq.TotalHitCost)
	seq.Unplaced = pending
	return seq
}
