package features

// FeatureVersion identifies the feature contract. The ordered name list
// below is part of the predictor model contract: any change here requires a
// new predictor model version.
const FeatureVersion = "fv3"

// RollingWindow is the number of recent appearances behind the rolling block.
const RollingWindow = 5

// SequenceLength is the number of per-gameweek rows in the form sequence.
const SequenceLength = 6

// FeatureNames is the canonical feature order.
var FeatureNames = []string{
	// Static attributes
	"price",
	"ownership",
	"form",
	"points_per_game",
	"influence",
	"creativity",
	"threat",
	"ict_index",

	// Rolling averages over the last 5 appearances
	"avg_points",
	"avg_minutes",
	"avg_goals",
	"avg_assists",
	"avg_bonus",
	"avg_bps",
	"avg_clean_sheets",
	"avg_saves",
	"avg_influence",
	"avg_creativity",
	"avg_threat",
	"avg_xg",
	"avg_xa",
	"avg_xgi",

	// Trend and overperformance
	"points_trend",
	"goals_minus_xg",
	"assists_minus_xa",

	// Season rates
	"season_games",
	"season_ppg",
	"season_minutes_per_game",
	"season_goals_per_game",
	"season_assists_per_game",
	"season_clean_sheets_per_game",

	// Fixture context
	"opp_strength_overall",
	"opp_strength_attack",
	"opp_strength_defence",
	"fixture_difficulty",
	"is_home",

	// Defensive-contribution potential
	"avg_tackles",
	"avg_cbi",
	"avg_recoveries",
	"dc_score",

	// Derived
	"minutes_reliability",
	"attacking_threat",
}

// VectorSize is the fixed feature-vector length.
var VectorSize = len(FeatureNames)

// SequenceRowNames is the per-gameweek row layout of the form sequence.
var SequenceRowNames = []string{
	"minutes",
	"points",
	"goals",
	"assists",
	"bonus",
	"bps",
	"influence",
	"creativity",
	"threat",
	"xg",
	"xa",
	"was_home",
}

// PlayerFeatures bundles both artefacts the builder produces for a player.
type PlayerFeatures struct {
	PlayerID       uint        `json:"player_id"`
	Gameweek       int         `json:"gameweek"`
	FeatureVersion string      `json:"feature_version"`
	Vector         []float64   `json:"vector"`
	Sequence       [][]float64 `json:"sequence"`
}
