package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gafferbot/gaffer/internal/models"
	"github.com/gafferbot/gaffer/pkg/config"
)

func testConfig() *config.Config {
	return &config.Config{
		HorizonGameweeks:     4,
		MaxBankedTransfers:   5,
		HitPointCost:         4,
		HitThresholdStrong:   8.0,
		HitThresholdMarginal: 4.0,
		FirstHalfEndGW:       19,
		FinalGameweek:        38,
	}
}

func fixture(gw int, home, away uint, homeDiff, awayDiff int) models.Fixture {
	return models.Fixture{
		Gameweek:       gw,
		HomeClubID:     home,
		AwayClubID:     away,
		HomeDifficulty: homeDiff,
		AwayDifficulty: awayDiff,
	}
}

func TestWorthHit_Bands(t *testing.T) {
	p := New(testConfig())

	assert.Equal(t, HitTake, p.WorthHit(9.0))
	assert.Equal(t, HitTake, p.WorthHit(5.0))
	assert.Equal(t, HitWait, p.WorthHit(4.5))
	assert.Equal(t, HitWait, p.WorthHit(4.0))
	assert.Equal(t, HitSkip, p.WorthHit(3.9))
	assert.Equal(t, HitSkip, p.WorthHit(0))
}

func TestAnalyseFixtures_Classification(t *testing.T) {
	p := New(testConfig())

	clubs := []models.Club{
		{ID: 1, StrengthOverallHome: 1100, StrengthOverallAway: 1050},
		{ID: 2, StrengthOverallHome: 1350, StrengthOverallAway: 1300},
		{ID: 3, StrengthOverallHome: 1000, StrengthOverallAway: 950},
	}
	// Club 1 has an easy run, club 2 faces hard fixtures.
	fixtures := []models.Fixture{
		fixture(10, 1, 3, 1, 4),
		fixture(11, 3, 1, 4, 1),
		fixture(10, 2, 3, 5, 5),
		fixture(11, 3, 2, 5, 5),
	}

	outlooks := p.AnalyseFixtures(clubs, fixtures, 10)
	byClub := make(map[uint]FixtureOutlook)
	for _, o := range outlooks {
		byClub[o.ClubID] = o
	}

	require.Contains(t, byClub, uint(1))
	require.Contains(t, byClub, uint(2))
	assert.Equal(t, OutlookTarget, byClub[1].Class)
	assert.Equal(t, OutlookAvoid, byClub[2].Class)
	assert.Equal(t, 2, byClub[1].Fixtures)

	// Easiest run sorts first.
	assert.Equal(t, uint(1), outlooks[0].ClubID)
}

func TestAnalyseFixtures_Swing(t *testing.T) {
	cfg := testConfig()
	cfg.HorizonGameweeks = 6
	p := New(cfg)

	clubs := []models.Club{
		{ID: 1, StrengthOverallHome: 1100, StrengthOverallAway: 1100},
		{ID: 2, StrengthOverallHome: 1100, StrengthOverallAway: 1100},
	}
	// Club 1: easy opening, brutal finish.
	var fixtures []models.Fixture
	for gw := 10; gw <= 12; gw++ {
		fixtures = append(fixtures, fixture(gw, 1, 2, 1, 3))
	}
	for gw := 13; gw <= 15; gw++ {
		fixtures = append(fixtures, fixture(gw, 1, 2, 5, 3))
	}

	outlooks := p.AnalyseFixtures(clubs, fixtures, 10)
	byClub := make(map[uint]FixtureOutlook)
	for _, o := range outlooks {
		byClub[o.ClubID] = o
	}
	assert.Equal(t, SwingUnfavourable, byClub[1].Swing)
	assert.Equal(t, SwingNone, byClub[2].Swing)
}

func TestSequenceTransfers_FreeTransfersFirst(t *testing.T) {
	p := New(testConfig())

	targets := []Target{
		{PlayerOutID: 1, PlayerInID: 10, Priority: 1, ExpectedGain: 3.0},
		{PlayerOutID: 2, PlayerInID: 20, Priority: 2, ExpectedGain: 2.0},
	}
	seq := p.SequenceTransfers(targets, 10, 1)

	require.Len(t, seq.Bundles, 4)
	// GW10: one FT available, spent on the top priority.
	require.Len(t, seq.Bundles[0].Transfers, 1)
	assert.Equal(t, uint(10), seq.Bundles[0].Transfers[0].Target.PlayerInID)
	assert.Zero(t, seq.Bundles[0].HitCost)
	// GW11: a new FT covers the second target.
	require.Len(t, seq.Bundles[1].Transfers, 1)
	assert.Equal(t, uint(20), seq.Bundles[1].Transfers[0].Target.PlayerInID)

	assert.Zero(t, seq.TotalHitCost)
	assert.InDelta(t, 5.0, seq.TotalGain, 1e-9)
	assert.InDelta(t, 5.0, seq.NetGain, 1e-9)
	assert.Empty(t, seq.Unplaced)
}

func TestSequenceTransfers_UrgentForcesHit(t *testing.T) {
	p := New(testConfig())

	deadline := 10
	targets := []Target{
		{PlayerOutID: 1, PlayerInID: 10, Priority: 1, ExpectedGain: 3.0},
		{PlayerOutID: 2, PlayerInID: 20, Priority: 2, ExpectedGain: 6.0, LatestByGW: &deadline},
	}
	// Only one FT at GW10: the urgent target takes it, the other waits.
	seq := p.SequenceTransfers(targets, 10, 1)

	first := seq.Bundles[0]
	require.Len(t, first.Transfers, 1)
	assert.Equal(t, uint(20), first.Transfers[0].Target.PlayerInID)
	assert.Zero(t, first.HitCost)

	// With no FT at all the urgent transfer goes through on a hit.
	seq = p.SequenceTransfers(targets, 10, 0)
	first = seq.Bundles[0]
	require.Len(t, first.Transfers, 1)
	assert.Equal(t, uint(20), first.Transfers[0].Target.PlayerInID)
	assert.Equal(t, 4, first.HitCost)
	assert.InDelta(t, seq.TotalGain-4, seq.NetGain, 1e-9)
}

func TestSequenceTransfers_BankingRespectsCap(t *testing.T) {
	p := New(testConfig())

	seq := p.SequenceTransfers(nil, 10, 4)
	require.Len(t, seq.Bundles, 4)
	assert.Equal(t, 4, seq.Bundles[0].FreeBanked)
	assert.Equal(t, 5, seq.Bundles[1].FreeBanked)
	// Capped at the configured maximum.
	assert.Equal(t, 5, seq.Bundles[3].FreeBanked)
}

func TestRecommendChips_WildcardWindowFirstHalf(t *testing.T) {
	p := New(testConfig())

	advices := p.RecommendChips(10, nil, nil)
	byChip := make(map[models.ChipType]ChipAdvice)
	for _, a := range advices {
		byChip[a.Chip] = a
	}

	wc := byChip[models.ChipWildcard]
	assert.True(t, wc.Available)
	assert.Equal(t, 10, wc.WindowStart)
	assert.Equal(t, 15, wc.WindowEnd)
	assert.Equal(t, UrgencyLow, wc.Urgency)
}

func TestRecommendChips_UsedChipUnavailable(t *testing.T) {
	p := New(testConfig())

	history := []models.ChipUsage{{Chip: models.ChipWildcard, Gameweek: 8, Half: 1}}
	advices := p.RecommendChips(12, history, nil)
	for _, a := range advices {
		if a.Chip == models.ChipWildcard {
			assert.False(t, a.Available)
		} else {
			assert.True(t, a.Available)
		}
	}
}

func TestRecommendChips_BenchBoostTargetsBiggestDouble(t *testing.T) {
	p := New(testConfig())

	// GW25: two clubs double. GW27: four clubs double.
	fixtures := []models.Fixture{
		fixture(25, 1, 2, 3, 3),
		fixture(25, 2, 1, 3, 3),
		fixture(27, 1, 2, 3, 3),
		fixture(27, 2, 1, 3, 3),
		fixture(27, 3, 4, 3, 3),
		fixture(27, 4, 3, 3, 3),
	}
	advices := p.RecommendChips(22, nil, fixtures)
	for _, a := range advices {
		if a.Chip == models.ChipBenchBoost {
			require.NotNil(t, a.TargetGW)
			assert.Equal(t, 27, *a.TargetGW)
			assert.Equal(t, UrgencyMedium, a.Urgency)
		}
	}
}

func TestRecommendChips_FreeHitTargetsBlank(t *testing.T) {
	p := New(testConfig())

	// GW30 has fixtures for clubs 1/2 only while 3/4 exist in other weeks.
	fixtures := []models.Fixture{
		fixture(29, 1, 2, 3, 3),
		fixture(29, 3, 4, 3, 3),
		fixture(30, 1, 2, 3, 3),
	}
	advices := p.RecommendChips(28, nil, fixtures)
	for _, a := range advices {
		if a.Chip == models.ChipFreeHit {
			require.NotNil(t, a.TargetGW)
			assert.Equal(t, 30, *a.TargetGW)
		}
	}
}

func TestRecommendChips_HalfBoundaryUrgency(t *testing.T) {
	p := New(testConfig())

	advices := p.RecommendChips(18, nil, nil)
	for _, a := range advices {
		if a.Available {
			assert.Equal(t, UrgencyHigh, a.Urgency, a.Chip)
		}
	}
}

type fakePriceModel struct {
	trends map[uint]float64
}

func (f *fakePriceModel) Trend(id uint) (float64, bool) {
	t, ok := f.trends[id]
	return t, ok
}

func TestValueReport(t *testing.T) {
	p := New(testConfig())

	squad := &models.Squad{Picks: []models.Pick{
		{Player: &models.Player{ID: 1, NowCost: 65}, PurchasePrice: 60},
		{Player: &models.Player{ID: 2, NowCost: 55}, PurchasePrice: 60},
		{Player: &models.Player{ID: 3, NowCost: 70}, PurchasePrice: 70},
	}}
	prices := &fakePriceModel{trends: map[uint]float64{1: 0.8, 2: -0.7}}

	insights := p.ValueReport(squad, prices)
	require.Len(t, insights, 3)

	// Sorted by unrealised profit: player 1 (+2), player 3 (0), player 2 (-5).
	assert.Equal(t, uint(1), insights[0].PlayerID)
	assert.Equal(t, 62, insights[0].SellingPrice)
	assert.Equal(t, 2, insights[0].UnrealisedProfit)
	assert.True(t, insights[0].LikelyRise)

	assert.Equal(t, uint(2), insights[2].PlayerID)
	assert.Equal(t, 55, insights[2].SellingPrice)
	assert.Equal(t, -5, insights[2].UnrealisedProfit)
	assert.True(t, insights[2].LikelyFall)

	// No model coverage: no movement flags.
	assert.False(t, insights[1].LikelyRise)
	assert.False(t, insights[1].LikelyFall)
}
