package workflow

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/gafferbot/gaffer/internal/features"
	"github.com/gafferbot/gaffer/internal/models"
	"github.com/gafferbot/gaffer/internal/predictor"
	"github.com/gafferbot/gaffer/internal/repository"
	"github.com/gafferbot/gaffer/internal/services"
	"github.com/gafferbot/gaffer/pkg/config"
)

func testConfig() *config.Config {
	return &config.Config{
		LeagueAPITimeout:              time.Second,
		IntelSourceTimeout:            time.Second,
		IntelligenceTTLDays:           30,
		TranscriptTTLDays:             7,
		MinActionableConfidence:       0.6,
		MinPlayerMatchScore:           70,
		InitialBudget:                 1000,
		MaxClubPlayers:                3,
		MaxBankedTransfers:            5,
		HitPointCost:                  4,
		FirstHalfEndGW:                19,
		FinalGameweek:                 38,
		HorizonGameweeks:              4,
		TransferGainThresholdDefault:  2.0,
		HitThresholdStrong:            8.0,
		HitThresholdMarginal:          4.0,
		ReplacementHeadroom:           10,
		MinChanceOfPlaying:            75,
		PremiumPriceFloor:             120,
		PremiumFormFloor:              5.0,
		CalibrationMinSamplesPosition: 20,
		CalibrationMinSamplesBracket:  30,
		ThresholdLearningMinSamples:   5,
		PredictorWorkers:              2,
		WorkflowDeadline:              time.Minute,
	}
}

type stubLeague struct {
	boot     *services.Bootstrap
	fixtures []models.Fixture
	live     map[uint]int
	bootErr  error
}

func (s *stubLeague) Bootstrap(ctx context.Context) (*services.Bootstrap, error) {
	if s.bootErr != nil {
		return nil, s.bootErr
	}
	return s.boot, nil
}

func (s *stubLeague) PlayerHistory(ctx context.Context, playerID uint) ([]models.PlayerPerformance, error) {
	return nil, nil
}

func (s *stubLeague) Fixtures(ctx context.Context) ([]models.Fixture, error) {
	return s.fixtures, nil
}

func (s *stubLeague) LiveGameweek(ctx context.Context, gameweek int) (map[uint]int, error) {
	return s.live, nil
}

type stubPredictor struct {
	points  map[uint]float64
	failFor map[uint]bool
}

func (s *stubPredictor) Predict(pf *features.PlayerFeatures, pos models.Position) (predictor.Result, error) {
	if s.failFor[pf.PlayerID] {
		return predictor.Result{}, errors.New("no artifact")
	}
	pts, ok := s.points[pf.PlayerID]
	if !ok {
		pts = 3.0
	}
	return predictor.Result{ExpectedPoints: pts, Confidence: 0.8}, nil
}

func (s *stubPredictor) Version() string { return "stub-1" }

// fixturePlayers builds a legal 15-player squad (2 GK, 5 DEF, 5 MID, 3 FWD,
// one club each) plus one pool midfielder.
func fixturePlayers() []models.Player {
	positions := map[uint]models.Position{
		1: models.Midfielder, 2: models.Goalkeeper, 3: models.Goalkeeper,
		4: models.Defender, 5: models.Defender, 6: models.Defender,
		7: models.Defender, 8: models.Defender,
		9: models.Midfielder, 10: models.Midfielder, 11: models.Midfielder, 12: models.Midfielder,
		13: models.Forward, 14: models.Forward, 15: models.Forward,
	}
	var players []models.Player
	for id := uint(1); id <= 15; id++ {
		players = append(players, models.Player{
			ID: id, Code: int(id) + 5000, WebName: fmt.Sprintf("Squad%d", id),
			Position: positions[id], ClubID: id, NowCost: 70,
			Status: models.StatusAvailable,
		})
	}
	players = append(players, models.Player{
		ID: 99, Code: 5999, WebName: "PoolStar",
		Position: models.Midfielder, ClubID: 16, NowCost: 68,
		Status: models.StatusAvailable,
	})
	return players
}

func fixtureClubs() []models.Club {
	var clubs []models.Club
	for id := uint(1); id <= 16; id++ {
		clubs = append(clubs, models.Club{
			ID: id, Name: fmt.Sprintf("Club %d", id), ShortName: fmt.Sprintf("C%d", id),
			StrengthOverallHome: 1100, StrengthOverallAway: 1100,
		})
	}
	return clubs
}

func testWorkflow(t *testing.T, pred predictor.Predictor) (*Workflow, repository.Repository, *stubLeague) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	repo := repository.NewGormRepository(db)
	require.NoError(t, repo.Migrate())

	league := &stubLeague{
		boot: &services.Bootstrap{
			Players: fixturePlayers(),
			Clubs:   fixtureClubs(),
			Gameweeks: []models.Gameweek{
				{ID: 9, IsCurrent: true, Finished: true},
				{ID: 10, IsNext: true},
			},
		},
	}

	clock := FixedClock{Instant: time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)}
	w := New(testConfig(), repo, league, nil, pred, clock)

	// Seed the held squad and team state.
	ctx := context.Background()
	require.NoError(t, repo.UpsertClubs(ctx, league.boot.Clubs))
	require.NoError(t, repo.UpsertPlayers(ctx, league.boot.Players))
	squad := &models.Squad{Gameweek: 9}
	for slot := 1; slot <= 15; slot++ {
		squad.Picks = append(squad.Picks, models.Pick{
			Player:        &models.Player{ID: uint(slot)},
			Slot:          slot,
			PurchasePrice: 70,
			SellingPrice:  70,
			IsCaptain:     slot == 9,
			IsVice:        slot == 10,
			Multiplier:    1,
		})
	}
	require.NoError(t, repo.SaveCurrentSquad(ctx, squad))
	require.NoError(t, repo.SaveTeamState(ctx, &models.TeamState{Bank: 5, FreeTransfers: 1}))
	return w, repo, league
}

func TestRun_EmitsDecisionWithTransfer(t *testing.T) {
	pred := &stubPredictor{points: map[uint]float64{1: 1.8, 99: 4.5}}
	w, repo, _ := testWorkflow(t, pred)
	ctx := context.Background()

	decision, err := w.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 10, decision.Gameweek)
	require.Len(t, decision.Transfers, 1)
	assert.Equal(t, uint(1), decision.Transfers[0].PlayerOutID)
	assert.Equal(t, uint(99), decision.Transfers[0].PlayerInID)
	assert.Zero(t, decision.Transfers[0].HitCost)
	assert.NotZero(t, decision.CaptainID)
	assert.NotEqual(t, decision.CaptainID, decision.ViceID)
	assert.NotEmpty(t, decision.RationaleTokens)

	// The draft was promoted: the held squad now contains the replacement.
	current, err := repo.CurrentSquad(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, current.Gameweek)
	assert.True(t, current.HasPlayer(99))
	assert.False(t, current.HasPlayer(1))

	// Selling 70 and buying 68 grows the bank.
	state, err := repo.TeamState(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, state.Bank)

	// Decision and transfer rows persisted.
	record, err := repo.LatestDecision(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, record.Gameweek)
	assert.Equal(t, decision.DecisionID, record.DecisionID)

	transfers, err := repo.TransfersForGameweek(ctx, 10)
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	assert.Equal(t, 10, transfers[0].Gameweek)

	// Predictions stored for the whole pool.
	predictions, err := repo.PredictionsForGameweek(ctx, 10, "stub-1")
	require.NoError(t, err)
	assert.Len(t, predictions, 16)
}

func TestRun_NoTransferNeededBanksFT(t *testing.T) {
	// Every squad player projects 3.0 and the pool star is barely better:
	// the gain never clears the threshold.
	pred := &stubPredictor{points: map[uint]float64{99: 3.5}}
	w, repo, _ := testWorkflow(t, pred)

	decision, err := w.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, decision.Transfers)
	assert.Contains(t, decision.RationaleTokens, "ft_rolled")

	current, err := repo.CurrentSquad(context.Background())
	require.NoError(t, err)
	assert.False(t, current.HasPlayer(99))
}

func TestRun_PredictionGapRefusesDecision(t *testing.T) {
	pred := &stubPredictor{failFor: map[uint]bool{7: true}}
	w, repo, _ := testWorkflow(t, pred)

	_, err := w.Run(context.Background())
	var wfErr *Error
	require.ErrorAs(t, err, &wfErr)
	assert.Equal(t, KindPredictionGap, wfErr.Kind)

	// No decision was persisted.
	_, err = repo.LatestDecision(context.Background())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRun_LockConflict(t *testing.T) {
	pred := &stubPredictor{}
	w, repo, _ := testWorkflow(t, pred)
	ctx := context.Background()

	acquired, err := repo.AcquireLock(ctx, 10, "other-run")
	require.NoError(t, err)
	require.True(t, acquired)

	_, err = w.Run(ctx)
	var wfErr *Error
	require.ErrorAs(t, err, &wfErr)
	assert.Equal(t, KindRepositoryConflict, wfErr.Kind)
}

func TestRun_UpstreamUnavailable(t *testing.T) {
	pred := &stubPredictor{}
	w, _, league := testWorkflow(t, pred)
	league.bootErr = errors.New("connection refused")

	_, err := w.Run(context.Background())
	var wfErr *Error
	require.ErrorAs(t, err, &wfErr)
	assert.Equal(t, KindUpstreamUnavailable, wfErr.Kind)
}

func TestLearn_BackfillsAndReviews(t *testing.T) {
	pred := &stubPredictor{}
	w, repo, league := testWorkflow(t, pred)
	ctx := context.Background()

	// Predictions for the resolved gameweek.
	adjusted := 4.0
	var rows []models.Prediction
	for id := uint(1); id <= 15; id++ {
		adj := adjusted
		rows = append(rows, models.Prediction{
			PlayerID: id, Gameweek: 9, ModelVersion: "stub-1",
			ExpectedPoints: 4.0, AdjustedPoints: &adj, ProducedAt: time.Now(),
		})
	}
	require.NoError(t, repo.UpsertPredictions(ctx, rows))

	league.live = map[uint]int{}
	for id := uint(1); id <= 15; id++ {
		league.live[id] = 3
	}
	league.live[10] = 12 // the vice outscored the captain

	require.NoError(t, w.Learn(ctx, 9))

	predictions, err := repo.PredictionsForGameweek(ctx, 9, "stub-1")
	require.NoError(t, err)
	require.NotEmpty(t, predictions)
	require.NotNil(t, predictions[0].ActualPoints)
	assert.Equal(t, 3, *predictions[0].ActualPoints)

	// Captaincy survived the review pass untouched.
	squad, err := repo.CurrentSquad(ctx)
	require.NoError(t, err)
	require.NotNil(t, squad.Captain())
	assert.Equal(t, uint(9), squad.Captain().Player.ID)
}

func TestRun_WildcardRecommendationDoesNotConsumeChip(t *testing.T) {
	pred := &stubPredictor{}
	w, repo, league := testWorkflow(t, pred)
	ctx := context.Background()

	// Three flagged squad players trigger the wildcard recommendation.
	cop := 10
	for i := range league.boot.Players {
		p := &league.boot.Players[i]
		if p.ID == 4 || p.ID == 5 || p.ID == 6 {
			p.Status = models.StatusInjured
			p.ChanceOfPlaying = &cop
		}
	}

	decision, err := w.Run(ctx)
	require.NoError(t, err)

	assert.Contains(t, decision.RationaleTokens, "wildcard squad_rebuild")
	assert.Empty(t, decision.ChipUsed)
	assert.Empty(t, decision.Transfers)

	// The chip stays unplayed: no usage row, nothing on the record.
	history, err := repo.ChipHistory(ctx)
	require.NoError(t, err)
	assert.Empty(t, history)

	record, err := repo.LatestDecision(ctx)
	require.NoError(t, err)
	assert.Empty(t, record.ChipUsed)

	// The squad was promoted unchanged; the flagged players are still held.
	current, err := repo.CurrentSquad(ctx)
	require.NoError(t, err)
	for _, id := range []uint{4, 5, 6} {
		assert.True(t, current.HasPlayer(id))
	}
}

func TestRun_IsRepeatableAfterLockRelease(t *testing.T) {
	pred := &stubPredictor{points: map[uint]float64{1: 1.8, 99: 4.5}}
	w, _, _ := testWorkflow(t, pred)
	ctx := context.Background()

	first, err := w.Run(ctx)
	require.NoError(t, err)

	// A second run for the same gameweek reuses the released lock and emits
	// a decision with the same deterministic ID.
	second, err := w.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.DecisionID, second.DecisionID)
	assert.Equal(t, first.Gameweek, second.Gameweek)
}
