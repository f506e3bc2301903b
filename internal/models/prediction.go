package models

import "time"

// Prediction is one model's expected points for a (player, gameweek).
// Rows are immutable once written except for the actual-outcome backfill.
type Prediction struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	PlayerID        uint      `gorm:"not null;uniqueIndex:idx_pred_unique" json:"player_id"`
	Gameweek        int       `gorm:"not null;uniqueIndex:idx_pred_unique" json:"gameweek"`
	ModelVersion    string    `gorm:"not null;uniqueIndex:idx_pred_unique" json:"model_version"`
	ExpectedPoints  float64   `gorm:"not null" json:"expected_points"`
	AdjustedPoints  *float64  `json:"adjusted_points,omitempty"`
	AdjustmentAudit string    `json:"adjustment_audit,omitempty"` // JSON list of applied factors
	Confidence      float64   `json:"confidence"`
	ProducedAt      time.Time `json:"produced_at"`

	// Backfilled after the gameweek resolves.
	ActualPoints    *int     `json:"actual_points,omitempty"`
	PredictionError *float64 `json:"prediction_error,omitempty"`
}

func (Prediction) TableName() string {
	return "predictions"
}

// Final returns the adjusted points when present, else the raw expectation.
func (p *Prediction) Final() float64 {
	if p.AdjustedPoints != nil {
		return *p.AdjustedPoints
	}
	return p.ExpectedPoints
}

// CalibrationScope distinguishes position cells from price-bracket cells.
type CalibrationScope string

const (
	ScopePosition CalibrationScope = "position"
	ScopeBracket  CalibrationScope = "bracket"
)

// CalibrationEntry is an additive bias correction learned post-gameweek.
// Correction is set to -mean_error so the adjuster subtracts it directly.
type CalibrationEntry struct {
	ID             uint             `gorm:"primaryKey" json:"id"`
	Scope          CalibrationScope `gorm:"not null;uniqueIndex:idx_calib_cell" json:"scope"`
	Key            string           `gorm:"not null;uniqueIndex:idx_calib_cell" json:"key"` // "MID", "premium", ...
	ModelVersion   string           `gorm:"not null;uniqueIndex:idx_calib_cell" json:"model_version"`
	Correction     float64          `json:"correction"`
	SampleSize     int              `json:"sample_size"`
	SourceGameweek int              `json:"source_gameweek"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

func (CalibrationEntry) TableName() string {
	return "calibration_entries"
}

// PositionThreshold is the learned per-position transfer gain threshold.
type PositionThreshold struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Position       Position  `gorm:"not null;uniqueIndex" json:"position"`
	Threshold      float64   `gorm:"not null" json:"threshold"`
	SampleSize     int       `json:"sample_size"`
	SourceGameweek int       `json:"source_gameweek"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (PositionThreshold) TableName() string {
	return "position_thresholds"
}

// CaptainReview records points left on the table by a captain choice.
type CaptainReview struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Gameweek       int       `gorm:"not null;uniqueIndex" json:"gameweek"`
	CaptainID      uint      `json:"captain_id"`
	CaptainPoints  int       `json:"captain_points"`
	BestPlayerID   uint      `json:"best_player_id"`
	BestPoints     int       `json:"best_points"`
	PointsLeft     int       `json:"points_left"`
	CreatedAt      time.Time `json:"created_at"`
}

func (CaptainReview) TableName() string {
	return "captain_reviews"
}
