package predictor

import (
	"github.com/gafferbot/gaffer/internal/features"
	"github.com/gafferbot/gaffer/internal/models"
)

// Result is one model's view of a player's next gameweek.
type Result struct {
	ExpectedPoints float64 `json:"expected_points"`
	Confidence     float64 `json:"confidence"` // 0..1
}

// Predictor turns a feature vector into expected points. Implementations
// must be deterministic: the same vector and version always produce the
// same result.
type Predictor interface {
	Predict(pf *features.PlayerFeatures, pos models.Position) (Result, error)
	Version() string
}
