package planner

import (
	"sort"

	"github.com/gafferbot/gaffer/internal/models"
)

// Outlook classification bands over average effective difficulty.
const (
	targetDifficulty = 2.5
	avoidDifficulty  = 3.5
	swingDelta       = 1.0
)

// strengthScale normalises the upstream ordinal strength ratings.
const strengthScale = 1400.0

// OutlookClass buckets a club's upcoming run.
type OutlookClass string

const (
	OutlookTarget OutlookClass = "target"
	OutlookAvoid  OutlookClass = "avoid"
	OutlookHold   OutlookClass = "hold"
)

// SwingClass flags a difficulty swing inside the horizon.
type SwingClass string

const (
	SwingNone         SwingClass = "none"
	SwingFavourable   SwingClass = "favourable"
	SwingUnfavourable SwingClass = "unfavourable"
)

// FixtureOutlook is one club's horizon summary.
type FixtureOutlook struct {
	ClubID            uint         `json:"club_id"`
	Fixtures          int          `json:"fixtures"`
	AverageDifficulty float64      `json:"average_difficulty"`
	Class             OutlookClass `json:"class"`
	Swing             SwingClass   `json:"swing"`
	SwingDelta        float64      `json:"swing_delta"`
}

// AnalyseFixtures summarises every club's run from fromGW across the
// horizon. Per-fixture difficulty is blended with the opponent's normalised
// strength at the venue they play, then averaged; thirds of the run are
// compared for swings.
func (p *Planner) AnalyseFixtures(clubs []models.Club, fixtures []models.Fixture, fromGW int) []FixtureOutlook {
	toGW := fromGW + p.cfg.HorizonGameweeks - 1

	clubByID := make(map[uint]*models.Club, len(clubs))
	for i := range clubs {
		clubByID[clubs[i].ID] = &clubs[i]
	}

	perClub := make(map[uint][]float64)
	for i := range fixtures {
		f := &fixtures[i]
		if f.Gameweek < fromGW || f.Gameweek > toGW || f.Finished {
			continue
		}
		perClub[f.HomeClubID] = append(perClub[f.HomeClubID], effectiveDifficulty(f, f.HomeClubID, clubByID))
		perClub[f.AwayClubID] = append(perClub[f.AwayClubID], effectiveDifficulty(f, f.AwayClubID, clubByID))
	}

	outlooks := make([]FixtureOutlook, 0, len(perClub))
	for i := range clubs {
		clubID := clubs[i].ID
		diffs := perClub[clubID]
		if len(diffs) == 0 {
			continue
		}
		avg := mean(diffs)
		o := FixtureOutlook{
			ClubID:            clubID,
			Fixtures:          len(diffs),
			AverageDifficulty: avg,
			Class:             classify(avg),
			Swing:             SwingNone,
		}
		if first, last, ok := thirds(diffs); ok {
			delta := last - first
			o.SwingDelta = delta
			if delta >= swingDelta {
				o.Swing = SwingUnfavourable // easy start, hard finish
			} else if delta <= -swingDelta {
				o.Swing = SwingFavourable
			}
		}
		outlooks = append(outlooks, o)
	}

	sort.Slice(outlooks, func(i, j int) bool {
		if outlooks[i].AverageDifficulty != outlooks[j].AverageDifficulty {
			return outlooks[i].AverageDifficulty < outlooks[j].AverageDifficulty
		}
		return outlooks[i].ClubID < outlooks[j].ClubID
	})
	return outlooks
}

// effectiveDifficulty blends the authority's 1..5 rating with the
// opponent's normalised overall strength at their venue, rescaled to the
// same band.
func effectiveDifficulty(f *models.Fixture, clubID uint, clubs map[uint]*models.Club) float64 {
	difficulty := float64(f.DifficultyFor(clubID))

	oppID, home := f.OpponentOf(clubID)
	opp, ok := clubs[oppID]
	if !ok {
		return difficulty
	}
	strength := float64(opp.StrengthOverallHome)
	if home {
		// The player's club is at home, so the opponent plays away.
		strength = float64(opp.StrengthOverallAway)
	}
	strengthBand := 1 + 4*strength/strengthScale
	return 0.7*difficulty + 0.3*strengthBand
}

func classify(avg float64) OutlookClass {
	switch {
	case avg <= targetDifficulty:
		return OutlookTarget
	case avg >= avoidDifficulty:
		return OutlookAvoid
	default:
		return OutlookHold
	}
}

// thirds returns the first and last third averages of a difficulty run;
// runs shorter than three fixtures have no meaningful thirds.
func thirds(diffs []float64) (float64, float64, bool) {
	if len(diffs) < 3 {
		return 0, 0, false
	}
	n := len(diffs) / 3
	return mean(diffs[:n]), mean(diffs[len(diffs)-n:]), true
}

func mean(vals []float64) float64 {
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
