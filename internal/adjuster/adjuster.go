package adjuster

import (
	"encoding/json"
	"fmt"

	"github.com/gafferbot/gaffer/internal/models"
	"github.com/gafferbot/gaffer/pkg/config"
)

// Factor is one applied adjustment, kept for the audit trail.
type Factor struct {
	Name   string  `json:"name"`
	Detail string  `json:"detail,omitempty"`
	// Multiplier factors carry Value as the multiplier; additive factors
	// (calibration, floors) carry the delta applied.
	Value float64 `json:"value"`
}

// Adjustment is the outcome for one player: the final expected points and
// every factor that produced them, in application order.
type Adjustment struct {
	PlayerID uint     `json:"player_id"`
	Base     float64  `json:"base"`
	Final    float64  `json:"final"`
	Factors  []Factor `json:"factors,omitempty"`
}

// AuditJSON renders the factor list for the prediction row.
func (a *Adjustment) AuditJSON() string {
	if len(a.Factors) == 0 {
		return ""
	}
	data, err := json.Marshal(a.Factors)
	if err != nil {
		return ""
	}
	return string(data)
}

// Calibration exposes the learned bias corrections the adjuster subtracts.
type Calibration interface {
	// PositionCorrection returns (correction, sampleSize); zero sample means
	// no entry.
	PositionCorrection(pos models.Position) (float64, int)
	BracketCorrection(bracket string) (float64, int)
}

// Adjuster merges upstream availability, classified intelligence and
// learned calibration into the expectation the optimiser consumes.
type Adjuster struct {
	minSamplesPosition int
	minSamplesBracket  int
	premiumPriceFloor  int
	premiumFormFloor   float64
}

func New(cfg *config.Config) *Adjuster {
	return &Adjuster{
		minSamplesPosition: cfg.CalibrationMinSamplesPosition,
		minSamplesBracket:  cfg.CalibrationMinSamplesBracket,
		premiumPriceFloor:  cfg.PremiumPriceFloor,
		premiumFormFloor:   cfg.PremiumFormFloor,
	}
}

// Adjust applies the adjustment chain in priority order: authoritative
// upstream availability, classified signals, sentiment, calibration, the
// premium floor, and the non-negativity clamp. Signals must already be
// filtered to this player.
func (a *Adjuster) Adjust(player *models.Player, base float64, signals []*models.IntelligenceSignal, calib Calibration) Adjustment {
	adj := Adjustment{PlayerID: player.ID, Base: base, Final: base}

	a.applyAvailability(player, &adj)
	a.applySignals(player, signals, &adj)
	a.applyCalibration(player, calib, &adj)
	a.applyPremiumFloor(player, &adj)

	if adj.Final < 0 {
		adj.apply("non_negative_clamp", "", -adj.Final)
	}
	return adj
}

func (adj *Adjustment) apply(name, detail string, delta float64) {
	adj.Final += delta
	adj.Factors = append(adj.Factors, Factor{Name: name, Detail: detail, Value: delta})
}

func (adj *Adjustment) multiply(name, detail string, mult float64) {
	if mult == 1 {
		return
	}
	adj.Final *= mult
	adj.Factors = append(adj.Factors, Factor{Name: name, Detail: detail, Value: mult})
}

// applyAvailability enforces the upstream authority's view.
func (a *Adjuster) applyAvailability(p *models.Player, adj *Adjustment) {
	switch p.Status {
	case models.StatusUnavailable, models.StatusSuspended:
		adj.multiply("upstream_status", string(p.Status), 0)
	case models.StatusInjured:
		adj.multiply("chance_of_playing", copDetail(p.ChanceOfPlaying), chanceOfPlayingMultiplier(p.ChanceOfPlaying))
	case models.StatusDoubtful:
		if p.ChanceOfPlaying != nil {
			adj.multiply("chance_of_playing", copDetail(p.ChanceOfPlaying), chanceOfPlayingMultiplier(p.ChanceOfPlaying))
		}
	}
}

// chanceOfPlayingMultiplier is the step function over the upstream
// chance-of-playing percent. A nil percent on an injured player means the
// upstream has given no estimate; treat it as the 50% band.
func chanceOfPlayingMultiplier(cop *int) float64 {
	if cop == nil {
		return 0.60
	}
	switch {
	case *cop == 0:
		return 0.10
	case *cop <= 25:
		return 0.30
	case *cop <= 50:
		return 0.60
	case *cop <= 75:
		return 0.80
	default:
		return 1.00
	}
}

func copDetail(cop *int) string {
	if cop == nil {
		return "unreported"
	}
	return fmt.Sprintf("%d%%", *cop)
}

// applySignals weighs actionable classified intelligence against the
// upstream. When the upstream has already ruled the player out the signals
// add nothing.
func (a *Adjuster) applySignals(p *models.Player, signals []*models.IntelligenceSignal, adj *Adjustment) {
	if p.IsOut() {
		return
	}
	for _, sig := range signals {
		if !sig.Actionable {
			continue
		}
		switch sig.ImpliedStatus {
		case models.ImpliedInjured:
			if p.Status != models.StatusInjured {
				adj.multiply("signal_injury", sig.Source, 1-0.30*sig.Confidence)
			}
		case models.ImpliedDoubtful:
			adj.multiply("signal_doubt", sig.Source, 1-0.20*sig.Confidence)
		case models.ImpliedSuspended:
			// Upstream says otherwise; suspensions appear there within
			// minutes, so an uncorroborated signal is ignored.
		default:
			if p.Status != models.StatusAvailable {
				continue
			}
			switch sig.Sentiment {
			case models.SentimentPositive:
				adj.multiply("sentiment_positive", sig.Source, 1+0.20*sig.Confidence)
			case models.SentimentNegative:
				adj.multiply("sentiment_negative", sig.Source, 1-0.15*sig.Confidence)
			}
		}
	}
}

// applyCalibration subtracts learned systematic bias once the cell has
// enough samples to be trusted.
func (a *Adjuster) applyCalibration(p *models.Player, calib Calibration, adj *Adjustment) {
	if calib == nil {
		return
	}
	if corr, n := calib.PositionCorrection(p.Position); n >= a.minSamplesPosition && corr != 0 {
		adj.apply("calibration_position", string(p.Position), corr)
	}
	bracket := models.PriceBracket(p.NowCost)
	if corr, n := calib.BracketCorrection(bracket); n >= a.minSamplesBracket && corr != 0 {
		adj.apply("calibration_bracket", bracket, corr)
	}
}

// applyPremiumFloor stops a pathological underprediction from benching an
// in-form premium asset. It never resurrects a player the upstream has
// ruled out.
func (a *Adjuster) applyPremiumFloor(p *models.Player, adj *Adjustment) {
	if p.IsOut() {
		return
	}
	if p.NowCost < a.premiumPriceFloor || p.Form < a.premiumFormFloor {
		return
	}
	floor := 0.6 * p.Form
	if adj.Final < floor {
		adj.apply("premium_floor", fmt.Sprintf("form %.1f", p.Form), floor-adj.Final)
	}
}
