package learning

import (
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/gafferbot/gaffer/internal/models"
	"github.com/gafferbot/gaffer/pkg/config"
	"github.com/gafferbot/gaffer/pkg/logger"
)

// Learner runs after a gameweek resolves: it measures the prediction error,
// refreshes calibration cells, adapts transfer thresholds and records the
// captaincy outcome. It only produces values; persistence is the caller's.
type Learner struct {
	cfg *config.Config
	log *logrus.Entry
}

func New(cfg *config.Config) *Learner {
	return &Learner{cfg: cfg, log: logger.WithComponent("learning")}
}

// ReviewRow joins one prediction with its resolved outcome.
type ReviewRow struct {
	PlayerID  uint
	Position  models.Position
	NowCost   int // tenths
	Predicted float64
	Actual    int
}

// Metrics summarise prediction error for one cell. Bias is the mean of
// (predicted - actual): positive means the model overpredicts.
type Metrics struct {
	Samples int     `json:"samples"`
	RMSE    float64 `json:"rmse"`
	MAE     float64 `json:"mae"`
	Bias    float64 `json:"bias"`
}

// Review is the post-gameweek error report.
type Review struct {
	Gameweek     int                        `json:"gameweek"`
	ModelVersion string                     `json:"model_version"`
	Overall      Metrics                    `json:"overall"`
	ByPosition   map[models.Position]Metrics `json:"by_position"`
	ByBracket    map[string]Metrics          `json:"by_bracket"`
}

// Review computes overall, per-position and per-price-bracket error for the
// resolved gameweek.
func (l *Learner) Review(gameweek int, modelVersion string, rows []ReviewRow) *Review {
	review := &Review{
		Gameweek:     gameweek,
		ModelVersion: modelVersion,
		Overall:      metricsFor(rows),
		ByPosition:   make(map[models.Position]Metrics),
		ByBracket:    make(map[string]Metrics),
	}

	byPos := make(map[models.Position][]ReviewRow)
	byBracket := make(map[string][]ReviewRow)
	for _, row := range rows {
		byPos[row.Position] = append(byPos[row.Position], row)
		bracket := models.PriceBracket(row.NowCost)
		byBracket[bracket] = append(byBracket[bracket], row)
	}
	for pos, cell := range byPos {
		review.ByPosition[pos] = metricsFor(cell)
	}
	for bracket, cell := range byBracket {
		review.ByBracket[bracket] = metricsFor(cell)
	}

	l.log.WithFields(logrus.Fields{
		"gameweek": gameweek,
		"samples":  review.Overall.Samples,
		"rmse":     review.Overall.RMSE,
		"bias":     review.Overall.Bias,
	}).Info("Reviewed gameweek predictions")
	return review
}

func metricsFor(rows []ReviewRow) Metrics {
	if len(rows) == 0 {
		return Metrics{}
	}
	errs := make([]float64, len(rows))
	sumSq, sumAbs := 0.0, 0.0
	for i, row := range rows {
		e := row.Predicted - float64(row.Actual)
		errs[i] = e
		sumSq += e * e
		sumAbs += math.Abs(e)
	}
	n := float64(len(rows))
	return Metrics{
		Samples: len(rows),
		RMSE:    math.Sqrt(sumSq / n),
		MAE:     sumAbs / n,
		Bias:    stat.Mean(errs, nil),
	}
}

// CalibrationEntries turns a review into the additive corrections the
// adjuster applies next cycle. Only cells above their sample gate are
// emitted; correction is the negated bias so adding it cancels the
// systematic error.
func (l *Learner) CalibrationEntries(review *Review, now time.Time) []models.CalibrationEntry {
	var entries []models.CalibrationEntry
	for _, pos := range models.Positions {
		m, ok := review.ByPosition[pos]
		if !ok || m.Samples < l.cfg.CalibrationMinSamplesPosition {
			continue
		}
		entries = append(entries, models.CalibrationEntry{
			Scope:          models.ScopePosition,
			Key:            string(pos),
			ModelVersion:   review.ModelVersion,
			Correction:     -m.Bias,
			SampleSize:     m.Samples,
			SourceGameweek: review.Gameweek,
			UpdatedAt:      now,
		})
	}
	for _, bracket := range []string{"premium", "mid", "budget"} {
		m, ok := review.ByBracket[bracket]
		if !ok || m.Samples < l.cfg.CalibrationMinSamplesBracket {
			continue
		}
		entries = append(entries, models.CalibrationEntry{
			Scope:          models.ScopeBracket,
			Key:            bracket,
			ModelVersion:   review.ModelVersion,
			Correction:     -m.Bias,
			SampleSize:     m.Samples,
			SourceGameweek: review.Gameweek,
			UpdatedAt:      now,
		})
	}
	return entries
}

// Thresholds the adaptation moves between.
const (
	thresholdStep  = 0.25
	thresholdFloor = 1.0
	thresholdCap   = 4.0
	lowerTriggerAt = 1.5  // transfers outperform predictions
	raiseTriggerAt = -1.0 // transfers underdeliver
)

// TransferOutcome pairs a completed transfer's expectation with what it
// actually returned.
type TransferOutcome struct {
	Position     models.Position
	ExpectedGain float64
	ActualGain   float64
}

// AdaptThresholds nudges the per-position transfer gain thresholds:
// positions whose transfers consistently beat expectations get a lower bar,
// positions that underdeliver a higher one.
func (l *Learner) AdaptThresholds(current map[models.Position]float64, outcomes []TransferOutcome, gameweek int, now time.Time) []models.PositionThreshold {
	byPos := make(map[models.Position][]float64)
	for _, o := range outcomes {
		byPos[o.Position] = append(byPos[o.Position], o.ActualGain-o.ExpectedGain)
	}

	var updated []models.PositionThreshold
	for pos, deltas := range byPos {
		if len(deltas) < l.cfg.ThresholdLearningMinSamples {
			continue
		}
		threshold, ok := current[pos]
		if !ok {
			threshold = l.cfg.TransferGainThresholdDefault
		}

		meanDelta := stat.Mean(deltas, nil)
		next := threshold
		switch {
		case meanDelta >= lowerTriggerAt:
			next = math.Max(thresholdFloor, threshold-thresholdStep)
		case meanDelta <= raiseTriggerAt:
			next = math.Min(thresholdCap, threshold+thresholdStep)
		}
		if next == threshold {
			continue
		}

		l.log.WithFields(logrus.Fields{
			"position":   pos,
			"mean_delta": meanDelta,
			"threshold":  next,
		}).Info("Adapted transfer threshold")
		updated = append(updated, models.PositionThreshold{
			Position:       pos,
			Threshold:      next,
			SampleSize:     len(deltas),
			SourceGameweek: gameweek,
			UpdatedAt:      now,
		})
	}
	return updated
}

// ReviewCaptaincy compares the chosen captain's return against the best
// the starting XI offered.
func (l *Learner) ReviewCaptaincy(gameweek int, squad *models.Squad, actuals map[uint]int, now time.Time) *models.CaptainReview {
	captain := squad.Captain()
	if captain == nil || captain.Player == nil {
		return nil
	}

	bestID := captain.Player.ID
	bestPoints := actuals[bestID]
	for _, pick := range squad.Starters() {
		if pick.Player == nil {
			continue
		}
		if pts := actuals[pick.Player.ID]; pts > bestPoints {
			bestPoints = pts
			bestID = pick.Player.ID
		}
	}

	return &models.CaptainReview{
		Gameweek:      gameweek,
		CaptainID:     captain.Player.ID,
		CaptainPoints: actuals[captain.Player.ID],
		BestPlayerID:  bestID,
		BestPoints:    bestPoints,
		PointsLeft:    bestPoints - actuals[captain.Player.ID],
		CreatedAt:     now,
	}
}

// TransferActualGain is the resolved value of a transfer for its first
// gameweek: incoming player's points minus outgoing player's.
func TransferActualGain(inPoints, outPoints int) float64 {
	return float64(inPoints - outPoints)
}
