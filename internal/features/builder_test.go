package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gafferbot/gaffer/internal/models"
)

func perf(gw, minutes, points, goals int) models.PlayerPerformance {
	return models.PlayerPerformance{
		Gameweek:    gw,
		Minutes:     minutes,
		TotalPoints: points,
		Goals:       goals,
		WasHome:     gw%2 == 0,
	}
}

func testPlayer() *models.Player {
	return &models.Player{
		ID:       42,
		WebName:  "Haaland",
		Position: models.Forward,
		ClubID:   7,
		NowCost:  151,
		Form:     7.2,
	}
}

func TestBuild_VectorMatchesContract(t *testing.T) {
	history := []models.PlayerPerformance{
		perf(1, 90, 9, 1),
		perf(2, 90, 2, 0),
		perf(3, 78, 13, 2),
		perf(4, 90, 6, 1),
		perf(5, 90, 8, 1),
	}

	pf, err := Build(Input{
		Player:   testPlayer(),
		History:  history,
		Gameweek: 6,
	})
	require.NoError(t, err)

	assert.Len(t, pf.Vector, VectorSize)
	assert.Equal(t, FeatureVersion, pf.FeatureVersion)
	assert.Len(t, pf.Sequence, SequenceLength)
	for _, row := range pf.Sequence {
		assert.Len(t, row, len(SequenceRowNames))
	}
}

func TestBuild_DefaultsWithoutFixture(t *testing.T) {
	pf, err := Build(Input{Player: testPlayer(), Gameweek: 6})
	require.NoError(t, err)

	idx := featureIndex(t, "fixture_difficulty")
	assert.Equal(t, float64(DefaultDifficulty), pf.Vector[idx])

	home := featureIndex(t, "is_home")
	assert.Zero(t, pf.Vector[home])
}

func TestBuild_FixtureContext(t *testing.T) {
	opponent := &models.Club{
		ID:                  3,
		StrengthOverallHome: 1300,
		StrengthOverallAway: 1200,
		StrengthAttackHome:  1350,
		StrengthAttackAway:  1250,
		StrengthDefenceHome: 1280,
		StrengthDefenceAway: 1180,
	}
	fixture := &models.Fixture{
		Gameweek:       6,
		HomeClubID:     7, // player's club at home
		AwayClubID:     3,
		HomeDifficulty: 2,
		AwayDifficulty: 4,
	}

	pf, err := Build(Input{
		Player:   testPlayer(),
		Opponent: opponent,
		Fixture:  fixture,
		Gameweek: 6,
	})
	require.NoError(t, err)

	assert.Equal(t, 1.0, pf.Vector[featureIndex(t, "is_home")])
	assert.Equal(t, 2.0, pf.Vector[featureIndex(t, "fixture_difficulty")])
	// Opponent plays away, so away strengths apply.
	assert.InDelta(t, 1200.0/1400.0, pf.Vector[featureIndex(t, "opp_strength_overall")], 1e-9)
}

func TestBuild_SequencePadding(t *testing.T) {
	history := []models.PlayerPerformance{
		perf(1, 90, 5, 0),
		perf(2, 90, 7, 1),
	}

	pf, err := Build(Input{Player: testPlayer(), History: history, Gameweek: 3})
	require.NoError(t, err)

	// Four zero rows on the left, then the two real appearances.
	for i := 0; i < SequenceLength-2; i++ {
		for _, v := range pf.Sequence[i] {
			assert.Zero(t, v)
		}
	}
	assert.Equal(t, 5.0, pf.Sequence[SequenceLength-2][1])
	assert.Equal(t, 7.0, pf.Sequence[SequenceLength-1][1])
}

func TestBuild_TrendAndOverperformance(t *testing.T) {
	// Steadily rising returns give a positive slope.
	history := []models.PlayerPerformance{
		perf(1, 90, 2, 0),
		perf(2, 90, 4, 0),
		perf(3, 90, 6, 1),
		perf(4, 90, 8, 1),
		perf(5, 90, 10, 2),
	}
	pf, err := Build(Input{Player: testPlayer(), History: history, Gameweek: 6})
	require.NoError(t, err)

	assert.InDelta(t, 2.0, pf.Vector[featureIndex(t, "points_trend")], 1e-9)

	// 0.8 goals per game against zero xG: pure overperformance.
	assert.InDelta(t, 0.8, pf.Vector[featureIndex(t, "goals_minus_xg")], 1e-9)
}

func TestBuild_BlanksExcludedFromRollingWindow(t *testing.T) {
	// A zero-minute blank must not dilute the rolling averages.
	history := []models.PlayerPerformance{
		perf(1, 90, 6, 1),
		perf(2, 0, 0, 0),
		perf(3, 90, 6, 1),
	}
	pf, err := Build(Input{Player: testPlayer(), History: history, Gameweek: 4})
	require.NoError(t, err)

	assert.InDelta(t, 6.0, pf.Vector[featureIndex(t, "avg_points")], 1e-9)
	assert.InDelta(t, 90.0, pf.Vector[featureIndex(t, "avg_minutes")], 1e-9)
}

func featureIndex(t *testing.T, name string) int {
	t.Helper()
	for i, n := range FeatureNames {
		if n == name {
			return i
		}
	}
	t.Fatalf("unknown feature %q", name)
	return -1
}
