package optimizer

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/gafferbot/gaffer/internal/models"
	"github.com/gafferbot/gaffer/internal/rules"
	"github.com/gafferbot/gaffer/pkg/config"
	"github.com/gafferbot/gaffer/pkg/logger"
)

// hitWithSignalFloor is the horizon gain that justifies a hit when the
// outgoing player carries a HIGH or CRITICAL signal.
const hitWithSignalFloor = 5.0

// wildcardUrgentCount is how many urgent squad players trigger a wildcard
// recommendation instead of piecemeal transfers.
const wildcardUrgentCount = 3

// Projection is the adjusted expectation the optimiser ranks on: the target
// gameweek alone and the summed planning horizon.
type Projection struct {
	NextGW  float64
	Horizon float64
}

// Inputs is everything one optimisation run needs. Projections must cover
// every squad member; a gap refuses the run.
type Inputs struct {
	Gameweek      int
	Squad         *models.Squad
	Bank          int // tenths
	FreeTransfers int

	Pool        []*models.Player
	Projections map[uint]Projection
	Signals     map[uint][]*models.IntelligenceSignal

	// Thresholds holds learned per-position gain thresholds; missing
	// positions fall back to the configured default.
	Thresholds map[models.Position]float64

	WildcardAvailable bool
	WildcardActive    bool
	FreeHitActive     bool
	TripleCaptain     bool
}

// Recommendation is the optimiser's output: a slotted, validated draft with
// captaincy, plus the transfer (if any) that produced it.
type Recommendation struct {
	Draft               *models.Squad
	Transfers           []models.Transfer
	BankAfter           int
	HitCost             int
	RolledTransfer      bool
	WildcardRecommended bool
	UrgentPlayers       []uint
	ExpectedPoints      float64
	CaptainID           uint
	ViceID              uint
}

// SquadCrisisError is returned when the whole squad is flagged urgent and
// no wildcard can rescue it.
type SquadCrisisError struct {
	Urgent int
}

func (e *SquadCrisisError) Error() string {
	return fmt.Sprintf("%d of 15 squad players flagged urgent and no wildcard available", e.Urgent)
}

type Optimizer struct {
	cfg *config.Config
	log *logrus.Entry
}

func New(cfg *config.Config) *Optimizer {
	return &Optimizer{cfg: cfg, log: logger.WithComponent("optimizer")}
}

// Optimise produces the next-gameweek draft: weakest-link transfer search,
// formation selection, bench ordering and captaincy, re-validated against
// the rules before returning.
func (o *Optimizer) Optimise(in Inputs) (*Recommendation, error) {
	if err := o.checkCoverage(in); err != nil {
		return nil, err
	}

	rec := &Recommendation{BankAfter: in.Bank}
	rec.UrgentPlayers = o.urgentSquadPlayers(in)

	if len(rec.UrgentPlayers) >= wildcardUrgentCount {
		if in.WildcardAvailable {
			rec.WildcardRecommended = true
			o.log.WithFields(logrus.Fields{
				"gameweek": in.Gameweek,
				"urgent":   len(rec.UrgentPlayers),
			}).Warn("Wildcard recommended instead of piecemeal transfers")
		} else if len(rec.UrgentPlayers) == rules.SquadSize {
			return nil, &SquadCrisisError{Urgent: len(rec.UrgentPlayers)}
		}
	}

	draft := in.Squad.Clone()
	draft.Gameweek = in.Gameweek

	if !rec.WildcardRecommended {
		o.applyBestTransfer(in, draft, rec)
	}

	if err := o.pickTeam(in, draft, rec); err != nil {
		return nil, err
	}

	// The optimiser must never emit an invalid draft; a failure here is a
	// bug, not a runtime condition.
	budget := draft.TotalCost() + rec.BankAfter
	if err := rules.ValidateSquad(draft, budget, o.cfg.MaxClubPlayers); err != nil {
		return nil, fmt.Errorf("optimiser produced an invalid draft: %w", err)
	}

	rec.Draft = draft
	return rec, nil
}

// checkCoverage refuses the run when any squad member lacks a projection:
// the bench cannot be ordered safely on guesses.
func (o *Optimizer) checkCoverage(in Inputs) error {
	for _, pick := range in.Squad.Picks {
		if pick.Player == nil {
			return fmt.Errorf("squad slot %d has no player", pick.Slot)
		}
		if _, ok := in.Projections[pick.Player.ID]; !ok {
			return fmt.Errorf("no projection for squad player %d (%s)", pick.Player.ID, pick.Player.WebName)
		}
	}
	return nil
}

// urgentSquadPlayers flags squad members the upstream has ruled out, whose
// chance of playing is below the floor, or who carry an urgent signal.
func (o *Optimizer) urgentSquadPlayers(in Inputs) []uint {
	var urgent []uint
	for _, pick := range in.Squad.Picks {
		p := pick.Player
		flagged := p.IsOut() ||
			(p.ChanceOfPlaying != nil && *p.ChanceOfPlaying < o.cfg.MinChanceOfPlaying)
		if !flagged {
			for _, sig := range in.Signals[p.ID] {
				if sig.Urgent() {
					flagged = true
					break
				}
			}
		}
		if flagged {
			urgent = append(urgent, p.ID)
		}
	}
	return urgent
}

type transferPlan struct {
	outPick     models.Pick
	in          *models.Player
	gain        float64
	horizonGain float64
}

// applyBestTransfer runs the weakest-link search and mutates the draft when
// a transfer clears the acceptance policy; otherwise the FT is rolled.
func (o *Optimizer) applyBestTransfer(in Inputs, draft *models.Squad, rec *Recommendation) {
	plan := o.findTransfer(in, draft)
	if plan == nil {
		rec.RolledTransfer = in.FreeTransfers < o.cfg.MaxBankedTransfers
		return
	}

	chipActive := in.WildcardActive || in.FreeHitActive
	isFree := chipActive || in.FreeTransfers >= 1
	accepted := false
	hitCost := 0

	switch {
	case isFree:
		accepted = plan.gain >= o.threshold(in, plan.outPick.Player.Position)
	case plan.horizonGain >= o.cfg.HitThresholdStrong:
		accepted = true
		hitCost = o.cfg.HitPointCost
	case plan.horizonGain >= hitWithSignalFloor && o.hasUrgentSignal(in, plan.outPick.Player.ID):
		accepted = true
		hitCost = o.cfg.HitPointCost
	}

	if !accepted {
		rec.RolledTransfer = in.FreeTransfers < o.cfg.MaxBankedTransfers
		o.log.WithFields(logrus.Fields{
			"out":  plan.outPick.Player.WebName,
			"in":   plan.in.WebName,
			"gain": plan.gain,
		}).Info("Best transfer below threshold, banking the free transfer")
		return
	}

	for i := range draft.Picks {
		if draft.Picks[i].Player.ID == plan.outPick.Player.ID {
			draft.Picks[i].Player = plan.in
			draft.Picks[i].PurchasePrice = plan.in.NowCost
			draft.Picks[i].SellingPrice = plan.in.NowCost
			break
		}
	}
	rec.BankAfter = in.Bank + plan.outPick.SellingPrice - plan.in.NowCost
	rec.HitCost = hitCost
	rec.Transfers = append(rec.Transfers, models.Transfer{
		Gameweek:      in.Gameweek,
		PlayerOutID:   plan.outPick.Player.ID,
		PlayerInID:    plan.in.ID,
		HitCost:       hitCost,
		IsFree:        hitCost == 0,
		PredictedGain: plan.gain,
		Reasoning: fmt.Sprintf("%s (%.1f xP) -> %s (%.1f xP)",
			plan.outPick.Player.WebName, in.Projections[plan.outPick.Player.ID].NextGW,
			plan.in.WebName, in.Projections[plan.in.ID].NextGW),
	})
}

// findTransfer ranks the squad weakest-first (urgent players ahead of
// merely weak ones) and returns the first candidate with a viable
// replacement.
func (o *Optimizer) findTransfer(in Inputs, draft *models.Squad) *transferPlan {
	urgent := make(map[uint]bool)
	for _, id := range o.urgentSquadPlayers(in) {
		urgent[id] = true
	}

	candidates := make([]models.Pick, len(draft.Picks))
	copy(candidates, draft.Picks)
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i].Player.ID, candidates[j].Player.ID
		if urgent[a] != urgent[b] {
			return urgent[a]
		}
		return in.Projections[a].NextGW < in.Projections[b].NextGW
	})

	for _, out := range candidates {
		if repl := o.bestReplacement(in, draft, out); repl != nil {
			outProj := in.Projections[out.Player.ID]
			inProj := in.Projections[repl.ID]
			return &transferPlan{
				outPick:     out,
				in:          repl,
				gain:        inProj.NextGW - outProj.NextGW,
				horizonGain: inProj.Horizon - outProj.Horizon,
			}
		}
	}
	return nil
}

// bestReplacement searches the pool for the highest-projected same-position
// player within the price envelope who can actually play.
func (o *Optimizer) bestReplacement(in Inputs, draft *models.Squad, out models.Pick) *models.Player {
	maxPrice := out.SellingPrice + o.cfg.ReplacementHeadroom

	var best *models.Player
	bestProj := in.Projections[out.Player.ID].NextGW
	for _, p := range in.Pool {
		if p.Position != out.Player.Position || p.NowCost > maxPrice {
			continue
		}
		if draft.HasPlayer(p.ID) || p.IsOut() {
			continue
		}
		if p.ChanceOfPlaying != nil && *p.ChanceOfPlaying < o.cfg.MinChanceOfPlaying {
			continue
		}
		proj, ok := in.Projections[p.ID]
		if !ok || proj.NextGW <= bestProj {
			continue
		}
		if rules.ValidateTransfer(draft, out.Player, p, in.Bank, draft.TotalCost()+in.Bank, o.cfg.MaxClubPlayers) != nil {
			continue
		}
		best = p
		bestProj = proj.NextGW
	}
	return best
}

func (o *Optimizer) threshold(in Inputs, pos models.Position) float64 {
	if t, ok := in.Thresholds[pos]; ok {
		return t
	}
	return o.cfg.TransferGainThresholdDefault
}

func (o *Optimizer) hasUrgentSignal(in Inputs, playerID uint) bool {
	for _, sig := range in.Signals[playerID] {
		if sig.Urgent() {
			return true
		}
	}
	return false
}
