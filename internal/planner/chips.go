package planner

import (
	"fmt"

	"github.com/gafferbot/gaffer/internal/models"
	"github.com/gafferbot/gaffer/internal/rules"
)

// ChipAdvice is one chip's timing recommendation for the current half.
type ChipAdvice struct {
	Chip      models.ChipType `json:"chip"`
	Available bool            `json:"available"`
	// Window is the gameweek span the chip should be played inside.
	WindowStart int     `json:"window_start"`
	WindowEnd   int     `json:"window_end"`
	TargetGW    *int    `json:"target_gw,omitempty"`
	Urgency     Urgency `json:"urgency"`
	Rationale   string  `json:"rationale"`
}

// RecommendChips proposes timing for every chip still available in the
// current half: wildcard in the mid-season window or ahead of a double,
// bench boost on the biggest double, triple captain on a double (or an
// exceptional single), free hit on a blank.
func (p *Planner) RecommendChips(currentGW int, history []models.ChipUsage, fixtures []models.Fixture) []ChipAdvice {
	halfEnd := p.cfg.FirstHalfEndGW
	if rules.ChipHalf(currentGW, p.cfg.FirstHalfEndGW) == 2 {
		halfEnd = p.cfg.FinalGameweek
	}

	doubles := doubleGameweeks(fixtures, currentGW, halfEnd)
	blanks := blankGameweeks(fixtures, currentGW, halfEnd)

	advices := make([]ChipAdvice, 0, len(models.AllChips))
	for _, chip := range models.AllChips {
		advice := ChipAdvice{
			Chip:        chip,
			Available:   rules.CanUseChip(chip, currentGW, history, p.cfg.FirstHalfEndGW, p.cfg.FinalGameweek) == nil,
			WindowStart: currentGW,
			WindowEnd:   halfEnd,
			Urgency:     UrgencyLow,
		}
		if advice.Available {
			switch chip {
			case models.ChipWildcard:
				p.adviseWildcard(&advice, currentGW, halfEnd, doubles)
			case models.ChipBenchBoost:
				p.adviseOnDouble(&advice, doubles, "double gameweek with the most clubs playing twice")
			case models.ChipTripleCaptain:
				p.adviseOnDouble(&advice, doubles, "double gameweek for a premium captain")
				if advice.TargetGW == nil {
					advice.Rationale = "no double gameweek in the half; hold for an exceptional single fixture"
				}
			case models.ChipFreeHit:
				p.adviseFreeHit(&advice, halfEnd, blanks)
			}
			if advice.TargetGW != nil && *advice.TargetGW-currentGW <= 1 {
				advice.Urgency = UrgencyHigh
			} else if halfEnd-currentGW <= 2 {
				// Use it or lose it at the half boundary.
				advice.Urgency = UrgencyHigh
				advice.Rationale = fmt.Sprintf("half ends at gameweek %d; unused chips do not carry over", halfEnd)
			}
		}
		advices = append(advices, advice)
	}
	return advices
}

func (p *Planner) adviseWildcard(advice *ChipAdvice, currentGW, halfEnd int, doubles []doubleGW) {
	if rules.ChipHalf(currentGW, p.cfg.FirstHalfEndGW) == 1 {
		start, end := 10, 15
		if start < currentGW {
			start = currentGW
		}
		if end > halfEnd {
			end = halfEnd
		}
		if start <= end {
			advice.WindowStart, advice.WindowEnd = start, end
			advice.Rationale = "mid-season restructure window"
			return
		}
		advice.Rationale = "mid-season window passed; play before the half ends"
		return
	}
	// Second half: rebuild the squad just before the biggest double.
	if len(doubles) > 0 {
		target := doubles[0].gameweek - 1
		if target < currentGW {
			target = currentGW
		}
		advice.TargetGW = &target
		advice.Rationale = fmt.Sprintf("restructure ahead of the gameweek %d double", doubles[0].gameweek)
		return
	}
	advice.Rationale = "no double gameweek visible yet; hold"
}

func (p *Planner) adviseOnDouble(advice *ChipAdvice, doubles []doubleGW, rationale string) {
	if len(doubles) == 0 {
		return
	}
	best := doubles[0]
	for _, d := range doubles[1:] {
		if d.clubsTwice > best.clubsTwice {
			best = d
		}
	}
	gw := best.gameweek
	advice.TargetGW = &gw
	advice.Urgency = UrgencyMedium
	advice.Rationale = rationale
}

func (p *Planner) adviseFreeHit(advice *ChipAdvice, halfEnd int, blanks []int) {
	if len(blanks) > 0 {
		gw := blanks[0]
		advice.TargetGW = &gw
		advice.Urgency = UrgencyMedium
		advice.Rationale = fmt.Sprintf("navigate the gameweek %d blank", gw)
		return
	}
	hold := halfEnd - 2
	if hold > advice.WindowStart {
		advice.WindowEnd = halfEnd
		advice.WindowStart = hold
	}
	advice.Rationale = "no blank gameweek visible; hold until late in the half"
}

type doubleGW struct {
	gameweek   int
	clubsTwice int
}

// doubleGameweeks finds gameweeks in (fromGW, toGW] where clubs play twice,
// ascending by gameweek.
func doubleGameweeks(fixtures []models.Fixture, fromGW, toGW int) []doubleGW {
	counts := clubFixtureCounts(fixtures, fromGW, toGW)
	var doubles []doubleGW
	for gw := fromGW; gw <= toGW; gw++ {
		twice := 0
		for _, n := range counts[gw] {
			if n >= 2 {
				twice++
			}
		}
		if twice > 0 {
			doubles = append(doubles, doubleGW{gameweek: gw, clubsTwice: twice})
		}
	}
	return doubles
}

// blankGameweeks finds gameweeks where at least one club has no fixture.
func blankGameweeks(fixtures []models.Fixture, fromGW, toGW int) []int {
	counts := clubFixtureCounts(fixtures, fromGW, toGW)

	allClubs := make(map[uint]bool)
	for _, perClub := range counts {
		for clubID := range perClub {
			allClubs[clubID] = true
		}
	}

	var blanks []int
	for gw := fromGW; gw <= toGW; gw++ {
		if len(counts[gw]) > 0 && len(counts[gw]) < len(allClubs) {
			blanks = append(blanks, gw)
		}
	}
	return blanks
}

func clubFixtureCounts(fixtures []models.Fixture, fromGW, toGW int) map[int]map[uint]int {
	counts := make(map[int]map[uint]int)
	for i := range fixtures {
		f := &fixtures[i]
		if f.Gameweek < fromGW || f.Gameweek > toGW {
			continue
		}
		if counts[f.Gameweek] == nil {
			counts[f.Gameweek] = make(map[uint]int)
		}
		counts[f.Gameweek][f.HomeClubID]++
		counts[f.Gameweek][f.AwayClubID]++
	}
	return counts
}
