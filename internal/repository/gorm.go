package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gafferbot/gaffer/internal/models"
)

// ErrNotFound is returned when a required aggregate does not exist.
var ErrNotFound = errors.New("not found")

// GormRepository is the production Repository on GORM (postgres or sqlite).
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// Migrate creates or updates every table the repository owns.
func (r *GormRepository) Migrate() error {
	return r.db.AutoMigrate(
		&models.Player{},
		&models.Club{},
		&models.Fixture{},
		&models.Gameweek{},
		&models.PlayerPerformance{},
		&models.SquadPick{},
		&models.TeamState{},
		&models.Transfer{},
		&models.ChipUsage{},
		&models.IntelligenceSignal{},
		&models.Prediction{},
		&models.CalibrationEntry{},
		&models.PositionThreshold{},
		&models.CaptainReview{},
		&models.DecisionRecord{},
		&models.WorkflowLock{},
	)
}

func (r *GormRepository) UpsertPlayers(ctx context.Context, players []models.Player) error {
	if len(players) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&players).Error
}

func (r *GormRepository) GetPlayer(ctx context.Context, id uint) (*models.Player, error) {
	var player models.Player
	err := r.db.WithContext(ctx).First(&player, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("player %d: %w", id, ErrNotFound)
	}
	return &player, err
}

func (r *GormRepository) ListPlayers(ctx context.Context, filter PlayerFilter) ([]models.Player, error) {
	q := r.db.WithContext(ctx).Model(&models.Player{})
	if filter.Position != nil {
		q = q.Where("position = ?", *filter.Position)
	}
	if filter.MaxCost != nil {
		q = q.Where("now_cost <= ?", *filter.MaxCost)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN ?", filter.Statuses)
	}
	var players []models.Player
	return players, q.Order("id").Find(&players).Error
}

func (r *GormRepository) UpsertClubs(ctx context.Context, clubs []models.Club) error {
	if len(clubs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&clubs).Error
}

func (r *GormRepository) ListClubs(ctx context.Context) ([]models.Club, error) {
	var clubs []models.Club
	return clubs, r.db.WithContext(ctx).Order("id").Find(&clubs).Error
}

func (r *GormRepository) UpsertPerformances(ctx context.Context, perfs []models.PlayerPerformance) error {
	if len(perfs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "player_id"}, {Name: "gameweek"}},
		UpdateAll: true,
	}).Create(&perfs).Error
}

func (r *GormRepository) PlayerHistory(ctx context.Context, playerID uint, lastK int) ([]models.PlayerPerformance, error) {
	var perfs []models.PlayerPerformance
	err := r.db.WithContext(ctx).
		Where("player_id = ?", playerID).
		Order("gameweek DESC").
		Limit(lastK).
		Find(&perfs).Error
	if err != nil {
		return nil, err
	}
	sort.Slice(perfs, func(i, j int) bool { return perfs[i].Gameweek < perfs[j].Gameweek })
	return perfs, nil
}

func (r *GormRepository) PerformancesForGameweek(ctx context.Context, gameweek int) ([]models.PlayerPerformance, error) {
	var perfs []models.PlayerPerformance
	return perfs, r.db.WithContext(ctx).Where("gameweek = ?", gameweek).Find(&perfs).Error
}

func (r *GormRepository) UpsertFixtures(ctx context.Context, fixtures []models.Fixture) error {
	if len(fixtures) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&fixtures).Error
}

func (r *GormRepository) FixturesBetween(ctx context.Context, fromGW, toGW int) ([]models.Fixture, error) {
	var fixtures []models.Fixture
	return fixtures, r.db.WithContext(ctx).
		Where("gameweek BETWEEN ? AND ?", fromGW, toGW).
		Order("gameweek, id").
		Find(&fixtures).Error
}

func (r *GormRepository) UpcomingFixturesForClub(ctx context.Context, clubID uint, fromGW, toGW int) ([]models.Fixture, error) {
	var fixtures []models.Fixture
	return fixtures, r.db.WithContext(ctx).
		Where("gameweek BETWEEN ? AND ?", fromGW, toGW).
		Where("home_club_id = ? OR away_club_id = ?", clubID, clubID).
		Order("gameweek, id").
		Find(&fixtures).Error
}

// UpsertGameweeks replaces the status flags wholesale; the upstream is the
// only authority on is_current/is_next/finished.
func (r *GormRepository) UpsertGameweeks(ctx context.Context, gameweeks []models.Gameweek) error {
	if len(gameweeks) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).Create(&gameweeks).Error
	})
}

func (r *GormRepository) CurrentGameweek(ctx context.Context) (*models.Gameweek, error) {
	var gw models.Gameweek
	err := r.db.WithContext(ctx).Where("is_current = ?", true).First(&gw).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("current gameweek: %w", ErrNotFound)
	}
	return &gw, err
}

func (r *GormRepository) NextGameweek(ctx context.Context) (*models.Gameweek, error) {
	var gw models.Gameweek
	err := r.db.WithContext(ctx).Where("is_next = ?", true).First(&gw).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("next gameweek: %w", ErrNotFound)
	}
	return &gw, err
}

// loadSquad reads picks of one type (and gameweek, unless current) joined
// with their players.
func (r *GormRepository) loadSquad(ctx context.Context, squadType models.SquadType, gameweek int) (*models.Squad, error) {
	q := r.db.WithContext(ctx).Where("squad_type = ?", squadType)
	if squadType != models.SquadCurrent {
		q = q.Where("gameweek = ?", gameweek)
	}
	var rows []models.SquadPick
	if err := q.Order("slot").Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s squad: %w", squadType, ErrNotFound)
	}

	ids := make([]uint, len(rows))
	for i, row := range rows {
		ids[i] = row.PlayerID
	}
	var players []models.Player
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&players).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]*models.Player, len(players))
	for i := range players {
		byID[players[i].ID] = &players[i]
	}

	squad := &models.Squad{Gameweek: rows[0].Gameweek}
	for _, row := range rows {
		player, ok := byID[row.PlayerID]
		if !ok {
			return nil, fmt.Errorf("squad references missing player %d", row.PlayerID)
		}
		squad.Picks = append(squad.Picks, models.Pick{
			Player:        player,
			Slot:          row.Slot,
			PurchasePrice: row.PurchasePrice,
			SellingPrice:  row.SellingPrice,
			IsCaptain:     row.IsCaptain,
			IsVice:        row.IsVice,
			Multiplier:    row.Multiplier,
		})
	}
	return squad, nil
}

func squadRows(squad *models.Squad, squadType models.SquadType) []models.SquadPick {
	rows := make([]models.SquadPick, 0, len(squad.Picks))
	for _, pick := range squad.Picks {
		rows = append(rows, models.SquadPick{
			SquadType:     squadType,
			Gameweek:      squad.Gameweek,
			PlayerID:      pick.Player.ID,
			Slot:          pick.Slot,
			PurchasePrice: pick.PurchasePrice,
			SellingPrice:  pick.SellingPrice,
			IsCaptain:     pick.IsCaptain,
			IsVice:        pick.IsVice,
			Multiplier:    pick.Multiplier,
		})
	}
	return rows
}

func (r *GormRepository) CurrentSquad(ctx context.Context) (*models.Squad, error) {
	return r.loadSquad(ctx, models.SquadCurrent, 0)
}

// SaveCurrentSquad replaces the held squad wholesale; used for the initial
// import only. Day-to-day changes go through draft promotion.
func (r *GormRepository) SaveCurrentSquad(ctx context.Context, squad *models.Squad) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("squad_type = ?", models.SquadCurrent).Delete(&models.SquadPick{}).Error; err != nil {
			return err
		}
		rows := squadRows(squad, models.SquadCurrent)
		return tx.Create(&rows).Error
	})
}

func (r *GormRepository) CreateDraftFromCurrent(ctx context.Context, targetGW int) (*models.Squad, error) {
	current, err := r.CurrentSquad(ctx)
	if err != nil {
		return nil, err
	}
	draft := current.Clone()
	draft.Gameweek = targetGW
	if err := r.SaveDraft(ctx, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

func (r *GormRepository) SaveDraft(ctx context.Context, draft *models.Squad) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("squad_type = ? AND gameweek = ?", models.SquadDraft, draft.Gameweek).
			Delete(&models.SquadPick{}).Error; err != nil {
			return err
		}
		rows := squadRows(draft, models.SquadDraft)
		return tx.Create(&rows).Error
	})
}

func (r *GormRepository) DraftSquad(ctx context.Context, gameweek int) (*models.Squad, error) {
	return r.loadSquad(ctx, models.SquadDraft, gameweek)
}

// PromoteDraft archives the outgoing current squad to per-gameweek history
// and installs the draft as current, all in one transaction. No partially
// written squad is ever observable.
func (r *GormRepository) PromoteDraft(ctx context.Context, gameweek int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var draft []models.SquadPick
		if err := tx.Where("squad_type = ? AND gameweek = ?", models.SquadDraft, gameweek).
			Order("slot").Find(&draft).Error; err != nil {
			return err
		}
		if len(draft) == 0 {
			return fmt.Errorf("draft for gameweek %d: %w", gameweek, ErrNotFound)
		}

		// Archive the current squad under the gameweek it served.
		if err := tx.Model(&models.SquadPick{}).
			Where("squad_type = ?", models.SquadCurrent).
			Update("squad_type", models.SquadHistory).Error; err != nil {
			return err
		}
		return tx.Model(&models.SquadPick{}).
			Where("squad_type = ? AND gameweek = ?", models.SquadDraft, gameweek).
			Update("squad_type", models.SquadCurrent).Error
	})
}

func (r *GormRepository) TeamState(ctx context.Context) (*models.TeamState, error) {
	var state models.TeamState
	err := r.db.WithContext(ctx).First(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("team state: %w", ErrNotFound)
	}
	return &state, err
}

func (r *GormRepository) SaveTeamState(ctx context.Context, state *models.TeamState) error {
	state.ID = 1
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(state).Error
}

func (r *GormRepository) RecordTransfers(ctx context.Context, transfers []models.Transfer) error {
	if len(transfers) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&transfers).Error
}

func (r *GormRepository) TransfersForGameweek(ctx context.Context, gameweek int) ([]models.Transfer, error) {
	var transfers []models.Transfer
	return transfers, r.db.WithContext(ctx).Where("gameweek = ?", gameweek).Order("id").Find(&transfers).Error
}

func (r *GormRepository) TransfersMadeByGameweek(ctx context.Context) (map[int]int, error) {
	type gwCount struct {
		Gameweek int
		N        int
	}
	var counts []gwCount
	err := r.db.WithContext(ctx).Model(&models.Transfer{}).
		Select("gameweek, count(*) as n").
		Group("gameweek").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	made := make(map[int]int, len(counts))
	for _, c := range counts {
		made[c.Gameweek] = c.N
	}
	return made, nil
}

// BackfillTransferGains resolves actual_gain for the gameweek's transfers
// from the actual points map.
func (r *GormRepository) BackfillTransferGains(ctx context.Context, gameweek int, actuals map[uint]int) error {
	transfers, err := r.TransfersForGameweek(ctx, gameweek)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, tr := range transfers {
			if tr.ActualGain != nil {
				continue
			}
			gain := float64(actuals[tr.PlayerInID] - actuals[tr.PlayerOutID])
			if err := tx.Model(&models.Transfer{}).
				Where("id = ?", tr.ID).
				Update("actual_gain", gain).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *GormRepository) TransfersWithActuals(ctx context.Context) ([]models.Transfer, error) {
	var transfers []models.Transfer
	return transfers, r.db.WithContext(ctx).
		Where("actual_gain IS NOT NULL").
		Order("gameweek, id").
		Find(&transfers).Error
}

func (r *GormRepository) RecordChipUsage(ctx context.Context, usage models.ChipUsage) error {
	return r.db.WithContext(ctx).Create(&usage).Error
}

func (r *GormRepository) ChipHistory(ctx context.Context) ([]models.ChipUsage, error) {
	var history []models.ChipUsage
	return history, r.db.WithContext(ctx).Order("gameweek").Find(&history).Error
}

func (r *GormRepository) UpsertPredictions(ctx context.Context, predictions []models.Prediction) error {
	if len(predictions) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "player_id"}, {Name: "gameweek"}, {Name: "model_version"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"expected_points", "adjusted_points", "adjustment_audit", "confidence", "produced_at",
		}),
	}).Create(&predictions).Error
}

func (r *GormRepository) PredictionsForGameweek(ctx context.Context, gameweek int, modelVersion string) ([]models.Prediction, error) {
	var predictions []models.Prediction
	return predictions, r.db.WithContext(ctx).
		Where("gameweek = ? AND model_version = ?", gameweek, modelVersion).
		Order("player_id").
		Find(&predictions).Error
}

func (r *GormRepository) BackfillPredictionActuals(ctx context.Context, gameweek int, actuals map[uint]int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var predictions []models.Prediction
		if err := tx.Where("gameweek = ?", gameweek).Find(&predictions).Error; err != nil {
			return err
		}
		for _, pred := range predictions {
			actual, ok := actuals[pred.PlayerID]
			if !ok || pred.ActualPoints != nil {
				continue
			}
			final := pred.Final()
			if err := tx.Model(&models.Prediction{}).Where("id = ?", pred.ID).Updates(map[string]interface{}{
				"actual_points":    actual,
				"prediction_error": final - float64(actual),
			}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// AppendSignals inserts classified signals, silently skipping ones already
// stored (re-polling a source must not duplicate rows).
func (r *GormRepository) AppendSignals(ctx context.Context, signals []*models.IntelligenceSignal) error {
	if len(signals) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "signal_id"}},
		DoNothing: true,
	}).Create(&signals).Error
}

func (r *GormRepository) SignalsSince(ctx context.Context, cutoff time.Time) ([]models.IntelligenceSignal, error) {
	var signals []models.IntelligenceSignal
	return signals, r.db.WithContext(ctx).
		Where("timestamp > ?", cutoff).
		Order("timestamp, source, player_name").
		Find(&signals).Error
}

func (r *GormRepository) SignalsForPlayer(ctx context.Context, playerID uint, cutoff time.Time) ([]models.IntelligenceSignal, error) {
	var signals []models.IntelligenceSignal
	return signals, r.db.WithContext(ctx).
		Where("player_id = ? AND timestamp > ?", playerID, cutoff).
		Order("timestamp, source, player_name").
		Find(&signals).Error
}

func (r *GormRepository) PurgeExpiredSignals(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&models.IntelligenceSignal{})
	return res.RowsAffected, res.Error
}

func (r *GormRepository) SaveCalibration(ctx context.Context, entries []models.CalibrationEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "scope"}, {Name: "key"}, {Name: "model_version"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"correction", "sample_size", "source_gameweek", "updated_at",
		}),
	}).Create(&entries).Error
}

func (r *GormRepository) CalibrationTable(ctx context.Context, modelVersion string) (*CalibrationTable, error) {
	var entries []models.CalibrationEntry
	err := r.db.WithContext(ctx).Where("model_version = ?", modelVersion).Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return NewCalibrationTable(entries), nil
}

func (r *GormRepository) SaveThresholds(ctx context.Context, thresholds []models.PositionThreshold) error {
	if len(thresholds) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "position"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"threshold", "sample_size", "source_gameweek", "updated_at",
		}),
	}).Create(&thresholds).Error
}

func (r *GormRepository) PositionThresholds(ctx context.Context) (map[models.Position]float64, error) {
	var rows []models.PositionThreshold
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	thresholds := make(map[models.Position]float64, len(rows))
	for _, row := range rows {
		thresholds[row.Position] = row.Threshold
	}
	return thresholds, nil
}

func (r *GormRepository) SaveCaptainReview(ctx context.Context, review *models.CaptainReview) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "gameweek"}},
		UpdateAll: true,
	}).Create(review).Error
}

func (r *GormRepository) SaveDecision(ctx context.Context, record *models.DecisionRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *GormRepository) LatestDecision(ctx context.Context) (*models.DecisionRecord, error) {
	var record models.DecisionRecord
	err := r.db.WithContext(ctx).Order("gameweek DESC, id DESC").First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("decision: %w", ErrNotFound)
	}
	return &record, err
}

func (r *GormRepository) DecisionForGameweek(ctx context.Context, gameweek int) (*models.DecisionRecord, error) {
	var record models.DecisionRecord
	err := r.db.WithContext(ctx).Where("gameweek = ?", gameweek).Order("id DESC").First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("decision for gameweek %d: %w", gameweek, ErrNotFound)
	}
	return &record, err
}

// AcquireLock takes the cooperative per-gameweek run lock. It returns false
// when another unreleased run holds it.
func (r *GormRepository) AcquireLock(ctx context.Context, gameweek int, runID string) (bool, error) {
	acquired := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lock models.WorkflowLock
		err := tx.Where("gameweek = ?", gameweek).First(&lock).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			acquired = true
			return tx.Create(&models.WorkflowLock{
				Gameweek: gameweek,
				RunID:    runID,
				LockedAt: time.Now().UTC(),
			}).Error
		case err != nil:
			return err
		case lock.Released:
			acquired = true
			return tx.Model(&lock).Updates(map[string]interface{}{
				"run_id":    runID,
				"locked_at": time.Now().UTC(),
				"released":  false,
			}).Error
		}
		return nil
	})
	return acquired, err
}

func (r *GormRepository) ReleaseLock(ctx context.Context, gameweek int, runID string) error {
	return r.db.WithContext(ctx).Model(&models.WorkflowLock{}).
		Where("gameweek = ? AND run_id = ?", gameweek, runID).
		Update("released", true).Error
}
