package repository

import (
	"context"
	"time"

	"github.com/gafferbot/gaffer/internal/models"
)

// PlayerFilter narrows ListPlayers. Nil fields are ignored.
type PlayerFilter struct {
	Position *models.Position
	MaxCost  *int // tenths
	Statuses []models.AvailabilityStatus
}

// Repository is the single owner of persistence. Components borrow values
// for the duration of an operation; all writes are transactional and
// read-your-own-writes within one invocation.
type Repository interface {
	// Players and clubs.
	UpsertPlayers(ctx context.Context, players []models.Player) error
	GetPlayer(ctx context.Context, id uint) (*models.Player, error)
	ListPlayers(ctx context.Context, filter PlayerFilter) ([]models.Player, error)
	UpsertClubs(ctx context.Context, clubs []models.Club) error
	ListClubs(ctx context.Context) ([]models.Club, error)
	UpsertPerformances(ctx context.Context, perfs []models.PlayerPerformance) error
	// PlayerHistory returns the last K gameweek rows, ascending by gameweek.
	PlayerHistory(ctx context.Context, playerID uint, lastK int) ([]models.PlayerPerformance, error)
	PerformancesForGameweek(ctx context.Context, gameweek int) ([]models.PlayerPerformance, error)

	// Fixtures and gameweeks.
	UpsertFixtures(ctx context.Context, fixtures []models.Fixture) error
	FixturesBetween(ctx context.Context, fromGW, toGW int) ([]models.Fixture, error)
	UpcomingFixturesForClub(ctx context.Context, clubID uint, fromGW, toGW int) ([]models.Fixture, error)
	UpsertGameweeks(ctx context.Context, gameweeks []models.Gameweek) error
	CurrentGameweek(ctx context.Context) (*models.Gameweek, error)
	NextGameweek(ctx context.Context) (*models.Gameweek, error)

	// Squad and drafts. Draft promotion archives the outgoing current squad
	// and installs the draft in one transaction.
	CurrentSquad(ctx context.Context) (*models.Squad, error)
	SaveCurrentSquad(ctx context.Context, squad *models.Squad) error
	CreateDraftFromCurrent(ctx context.Context, targetGW int) (*models.Squad, error)
	SaveDraft(ctx context.Context, draft *models.Squad) error
	DraftSquad(ctx context.Context, gameweek int) (*models.Squad, error)
	PromoteDraft(ctx context.Context, gameweek int) error
	TeamState(ctx context.Context) (*models.TeamState, error)
	SaveTeamState(ctx context.Context, state *models.TeamState) error

	// Transfers and chips.
	RecordTransfers(ctx context.Context, transfers []models.Transfer) error
	TransfersForGameweek(ctx context.Context, gameweek int) ([]models.Transfer, error)
	// TransfersMadeByGameweek powers free-transfer accounting.
	TransfersMadeByGameweek(ctx context.Context) (map[int]int, error)
	BackfillTransferGains(ctx context.Context, gameweek int, actuals map[uint]int) error
	TransfersWithActuals(ctx context.Context) ([]models.Transfer, error)
	RecordChipUsage(ctx context.Context, usage models.ChipUsage) error
	ChipHistory(ctx context.Context) ([]models.ChipUsage, error)

	// Predictions.
	UpsertPredictions(ctx context.Context, predictions []models.Prediction) error
	PredictionsForGameweek(ctx context.Context, gameweek int, modelVersion string) ([]models.Prediction, error)
	BackfillPredictionActuals(ctx context.Context, gameweek int, actuals map[uint]int) error

	// Intelligence.
	AppendSignals(ctx context.Context, signals []*models.IntelligenceSignal) error
	SignalsSince(ctx context.Context, cutoff time.Time) ([]models.IntelligenceSignal, error)
	SignalsForPlayer(ctx context.Context, playerID uint, cutoff time.Time) ([]models.IntelligenceSignal, error)
	PurgeExpiredSignals(ctx context.Context, now time.Time) (int64, error)

	// Calibration, thresholds and captaincy reviews.
	SaveCalibration(ctx context.Context, entries []models.CalibrationEntry) error
	CalibrationTable(ctx context.Context, modelVersion string) (*CalibrationTable, error)
	SaveThresholds(ctx context.Context, thresholds []models.PositionThreshold) error
	PositionThresholds(ctx context.Context) (map[models.Position]float64, error)
	SaveCaptainReview(ctx context.Context, review *models.CaptainReview) error

	// Decisions and the per-gameweek run lock.
	SaveDecision(ctx context.Context, record *models.DecisionRecord) error
	LatestDecision(ctx context.Context) (*models.DecisionRecord, error)
	DecisionForGameweek(ctx context.Context, gameweek int) (*models.DecisionRecord, error)
	AcquireLock(ctx context.Context, gameweek int, runID string) (bool, error)
	ReleaseLock(ctx context.Context, gameweek int, runID string) error
}

// CalibrationTable is the read-only view of corrections for one model
// version. It satisfies the adjuster's Calibration dependency.
type CalibrationTable struct {
	positions map[models.Position]models.CalibrationEntry
	brackets  map[string]models.CalibrationEntry
}

func NewCalibrationTable(entries []models.CalibrationEntry) *CalibrationTable {
	t := &CalibrationTable{
		positions: make(map[models.Position]models.CalibrationEntry),
		brackets:  make(map[string]models.CalibrationEntry),
	}
	for _, e := range entries {
		switch e.Scope {
		case models.ScopePosition:
			t.positions[models.Position(e.Key)] = e
		case models.ScopeBracket:
			t.brackets[e.Key] = e
		}
	}
	return t
}

func (t *CalibrationTable) PositionCorrection(pos models.Position) (float64, int) {
	e, ok := t.positions[pos]
	if !ok {
		return 0, 0
	}
	return e.Correction, e.SampleSize
}

func (t *CalibrationTable) BracketCorrection(bracket string) (float64, int) {
	e, ok := t.brackets[bracket]
	if !ok {
		return 0, 0
	}
	return e.Correction, e.SampleSize
}
