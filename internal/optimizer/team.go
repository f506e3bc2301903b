package optimizer

import (
	"fmt"
	"sort"

	"github.com/gafferbot/gaffer/internal/models"
)

// formation is an outfield shape; the goalkeeper slot is implicit.
type formation struct {
	def, mid, fwd int
}

// formations lists legal shapes in tie-break preference order: fewer
// forwards first, then more midfielders.
var formations = func() []formation {
	var out []formation
	for fwd := 1; fwd <= 3; fwd++ {
		for mid := 5; mid >= 2; mid-- {
			def := 10 - fwd - mid
			if def >= 3 && def <= 5 {
				out = append(out, formation{def: def, mid: mid, fwd: fwd})
			}
		}
	}
	return out
}()

// pickTeam slots the draft: best legal formation by summed projection, bench
// in substitution order with the backup keeper pinned to slot 12, then
// captain and vice.
func (o *Optimizer) pickTeam(in Inputs, draft *models.Squad, rec *Recommendation) error {
	byPos := make(map[models.Position][]models.Pick, 4)
	for _, pick := range draft.Picks {
		byPos[pick.Player.Position] = append(byPos[pick.Player.Position], pick)
	}
	for pos := range byPos {
		picks := byPos[pos]
		sort.SliceStable(picks, func(i, j int) bool {
			return in.Projections[picks[i].Player.ID].NextGW > in.Projections[picks[j].Player.ID].NextGW
		})
	}

	if len(byPos[models.Goalkeeper]) != 2 {
		return fmt.Errorf("draft has %d goalkeepers", len(byPos[models.Goalkeeper]))
	}

	sum := func(picks []models.Pick, n int) float64 {
		total := 0.0
		for _, p := range picks[:n] {
			total += in.Projections[p.Player.ID].NextGW
		}
		return total
	}

	var best formation
	bestTotal := -1.0
	gkProj := in.Projections[byPos[models.Goalkeeper][0].Player.ID].NextGW
	for _, f := range formations {
		if f.def > len(byPos[models.Defender]) ||
			f.mid > len(byPos[models.Midfielder]) ||
			f.fwd > len(byPos[models.Forward]) {
			continue
		}
		total := gkProj +
			sum(byPos[models.Defender], f.def) +
			sum(byPos[models.Midfielder], f.mid) +
			sum(byPos[models.Forward], f.fwd)
		if total > bestTotal {
			bestTotal = total
			best = f
		}
	}
	if bestTotal < 0 {
		return fmt.Errorf("no legal formation for squad shape %v", draft.PositionCounts())
	}

	var starters, bench []models.Pick
	starters = append(starters, byPos[models.Goalkeeper][0])
	starters = append(starters, byPos[models.Defender][:best.def]...)
	starters = append(starters, byPos[models.Midfielder][:best.mid]...)
	starters = append(starters, byPos[models.Forward][:best.fwd]...)

	bench = append(bench, byPos[models.Defender][best.def:]...)
	bench = append(bench, byPos[models.Midfielder][best.mid:]...)
	bench = append(bench, byPos[models.Forward][best.fwd:]...)
	sort.SliceStable(bench, func(i, j int) bool {
		return in.Projections[bench[i].Player.ID].NextGW > in.Projections[bench[j].Player.ID].NextGW
	})

	captainIdx, viceIdx := chooseCaptaincy(in, starters)

	draft.Picks = draft.Picks[:0]
	for i, pick := range starters {
		pick.Slot = i + 1
		pick.IsCaptain = i == captainIdx
		pick.IsVice = i == viceIdx
		pick.Multiplier = 1
		if pick.IsCaptain {
			pick.Multiplier = 2
			if in.TripleCaptain {
				pick.Multiplier = 3
			}
		}
		draft.Picks = append(draft.Picks, pick)
	}
	// Slot 12 is always the backup keeper.
	backupGK := byPos[models.Goalkeeper][1]
	backupGK.Slot = 12
	backupGK.IsCaptain, backupGK.IsVice = false, false
	backupGK.Multiplier = 1
	draft.Picks = append(draft.Picks, backupGK)
	for i, pick := range bench {
		pick.Slot = 13 + i
		pick.IsCaptain, pick.IsVice = false, false
		pick.Multiplier = 1
		draft.Picks = append(draft.Picks, pick)
	}

	captain := starters[captainIdx]
	rec.CaptainID = captain.Player.ID
	rec.ViceID = starters[viceIdx].Player.ID
	rec.ExpectedPoints = bestTotal +
		in.Projections[captain.Player.ID].NextGW*float64(draft.Picks[captainIdx].Multiplier-1) -
		float64(rec.HitCost)
	return nil
}

// chooseCaptaincy returns starter indexes: captain is the top projection,
// vice the next best from a different club where one exists.
func chooseCaptaincy(in Inputs, starters []models.Pick) (int, int) {
	order := make([]int, len(starters))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return in.Projections[starters[order[a]].Player.ID].NextGW >
			in.Projections[starters[order[b]].Player.ID].NextGW
	})

	captain := order[0]
	vice := order[1]
	for _, idx := range order[1:] {
		if starters[idx].Player.ClubID != starters[captain].Player.ClubID {
			vice = idx
			break
		}
	}
	return captain, vice
}
