package planner

import (
	"github.com/sirupsen/logrus"

	"github.com/gafferbot/gaffer/pkg/config"
	"github.com/gafferbot/gaffer/pkg/logger"
)

// Planner reasons across the configured horizon: fixture runs, transfer
// sequencing, chip timing and squad value. It never mutates state; the
// workflow folds its advice into the emitted decision.
type Planner struct {
	cfg *config.Config
	log *logrus.Entry
}

func New(cfg *config.Config) *Planner {
	return &Planner{cfg: cfg, log: logger.WithComponent("planner")}
}

// HitVerdict classifies whether a points hit is worth its cost.
type HitVerdict string

const (
	HitTake  HitVerdict = "take"
	HitWait  HitVerdict = "wait_for_ft"
	HitSkip  HitVerdict = "skip"
)

// WorthHit bands a horizon gain: clearly above the marginal threshold is
// worth taking now, just above it is worth waiting a week for a free
// transfer, anything less is noise.
func (p *Planner) WorthHit(gainOverHorizon float64) HitVerdict {
	switch {
	case gainOverHorizon >= p.cfg.HitThresholdMarginal+1:
		return HitTake
	case gainOverHorizon >= p.cfg.HitThresholdMarginal:
		return HitWait
	default:
		return HitSkip
	}
}

// Urgency grades how soon a recommendation must be acted on.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)
