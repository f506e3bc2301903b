package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/gafferbot/gaffer/internal/adjuster"
	"github.com/gafferbot/gaffer/internal/features"
	"github.com/gafferbot/gaffer/internal/intel"
	"github.com/gafferbot/gaffer/internal/learning"
	"github.com/gafferbot/gaffer/internal/models"
	"github.com/gafferbot/gaffer/internal/optimizer"
	"github.com/gafferbot/gaffer/internal/planner"
	"github.com/gafferbot/gaffer/internal/predictor"
	"github.com/gafferbot/gaffer/internal/repository"
	"github.com/gafferbot/gaffer/internal/rules"
	"github.com/gafferbot/gaffer/internal/services"
	"github.com/gafferbot/gaffer/pkg/config"
	"github.com/gafferbot/gaffer/pkg/logger"
)

// LeagueDataSource is the upstream league authority.
type LeagueDataSource interface {
	Bootstrap(ctx context.Context) (*services.Bootstrap, error)
	PlayerHistory(ctx context.Context, playerID uint) ([]models.PlayerPerformance, error)
	Fixtures(ctx context.Context) ([]models.Fixture, error)
	LiveGameweek(ctx context.Context, gameweek int) (map[uint]int, error)
}

// Workflow drives the gameweek pipeline: refresh, intel sweep, predict,
// adjust, optimise, plan, emit. Stages are synchronous; fan-out happens
// inside a stage and is joined before the next one starts.
type Workflow struct {
	cfg     *config.Config
	repo    repository.Repository
	league  LeagueDataSource
	sources []intel.IntelligenceSource
	pred    predictor.Predictor
	clock   Clock

	adjuster  *adjuster.Adjuster
	optimizer *optimizer.Optimizer
	planner   *planner.Planner
	learner   *learning.Learner

	log *logrus.Entry
}

func New(cfg *config.Config, repo repository.Repository, league LeagueDataSource,
	sources []intel.IntelligenceSource, pred predictor.Predictor, clock Clock) *Workflow {
	if clock == nil {
		clock = SystemClock()
	}
	return &Workflow{
		cfg:       cfg,
		repo:      repo,
		league:    league,
		sources:   sources,
		pred:      pred,
		clock:     clock,
		adjuster:  adjuster.New(cfg),
		optimizer: optimizer.New(cfg),
		planner:   planner.New(cfg),
		learner:   learning.New(cfg),
		log:       logger.WithComponent("workflow"),
	}
}

// RefreshData pulls the league snapshot and fixture list into the repository.
func (w *Workflow) RefreshData(ctx context.Context) error {
	boot, err := w.league.Bootstrap(ctx)
	if err != nil {
		return newError(KindUpstreamUnavailable, "refresh", err)
	}
	if err := w.repo.UpsertClubs(ctx, boot.Clubs); err != nil {
		return err
	}
	if err := w.repo.UpsertPlayers(ctx, boot.Players); err != nil {
		return err
	}
	if err := w.repo.UpsertGameweeks(ctx, boot.Gameweeks); err != nil {
		return err
	}

	fixtures, err := w.league.Fixtures(ctx)
	if err != nil {
		return newError(KindUpstreamUnavailable, "refresh", err)
	}
	return w.repo.UpsertFixtures(ctx, fixtures)
}

// IntelSweep polls every intelligence source concurrently, merges the raw
// signals deterministically, classifies them and appends the results. A
// failed source degrades the sweep, never aborts it.
func (w *Workflow) IntelSweep(ctx context.Context) (int, error) {
	if len(w.sources) == 0 {
		return 0, nil
	}

	since := w.clock.Now().AddDate(0, 0, -w.cfg.IntelligenceTTLDays)

	type pollResult struct {
		source string
		raws   []models.RawSignal
		err    error
	}
	results := make(chan pollResult, len(w.sources))

	var wg sync.WaitGroup
	for _, source := range w.sources {
		wg.Add(1)
		go func(src intel.IntelligenceSource) {
			defer wg.Done()
			pollCtx, cancel := context.WithTimeout(ctx, w.cfg.IntelSourceTimeout)
			defer cancel()
			raws, err := src.Poll(pollCtx, since)
			results <- pollResult{source: src.Name(), raws: raws, err: err}
		}(source)
	}
	wg.Wait()
	close(results)

	var raws []models.RawSignal
	for res := range results {
		if res.err != nil {
			degraded := newError(KindSourceDegraded, "intel", res.err, "source", res.source)
			w.log.WithError(degraded).Warn("Intelligence source degraded, continuing without it")
			continue
		}
		raws = append(raws, res.raws...)
	}
	if len(raws) == 0 {
		return 0, nil
	}

	players, err := w.repo.ListPlayers(ctx, repository.PlayerFilter{})
	if err != nil {
		return 0, err
	}
	classifier := intel.NewClassifier(intel.NewNameIndex(players), intel.Gates{
		SignalTTLDays:     w.cfg.IntelligenceTTLDays,
		TranscriptTTLDays: w.cfg.TranscriptTTLDays,
		MinConfidence:     w.cfg.MinActionableConfidence,
		MinMatchScore:     w.cfg.MinPlayerMatchScore,
	})

	signals := classifier.ClassifyAll(raws)
	intel.SortSignals(signals)
	for _, s := range signals {
		if s.PlayerID == nil {
			w.log.WithFields(logrus.Fields{
				"player_name": s.PlayerName,
				"match_score": s.MatchScore,
			}).Debug("Dropping unmatched signal")
		}
	}

	if err := w.repo.AppendSignals(ctx, signals); err != nil {
		return 0, err
	}
	return len(signals), nil
}

// Run executes the full pre-deadline pipeline for the next gameweek and
// emits a confirmed decision.
func (w *Workflow) Run(ctx context.Context) (*Decision, error) {
	ctx, cancel := context.WithTimeout(ctx, w.cfg.WorkflowDeadline)
	defer cancel()

	if err := w.RefreshData(ctx); err != nil {
		return nil, err
	}

	target, err := w.repo.NextGameweek(ctx)
	if err != nil {
		return nil, newError(KindUpstreamUnavailable, "workflow", err)
	}
	gw := target.ID
	log := logger.WithGameweek(gw)

	runID := uuid.New().String()
	acquired, err := w.repo.AcquireLock(ctx, gw, runID)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, newError(KindRepositoryConflict, "workflow", nil, "gameweek", gw)
	}
	defer func() {
		if err := w.repo.ReleaseLock(context.Background(), gw, runID); err != nil {
			log.WithError(err).Error("Failed to release gameweek lock")
		}
	}()

	if _, err := w.IntelSweep(ctx); err != nil {
		log.WithError(err).Warn("Intel sweep failed, continuing with stored signals")
	}

	squad, err := w.repo.CurrentSquad(ctx)
	if err != nil {
		return nil, err
	}
	pool, err := w.repo.ListPlayers(ctx, repository.PlayerFilter{})
	if err != nil {
		return nil, err
	}
	clubs, err := w.repo.ListClubs(ctx)
	if err != nil {
		return nil, err
	}
	fixtures, err := w.repo.FixturesBetween(ctx, gw, gw+w.cfg.HorizonGameweeks-1)
	if err != nil {
		return nil, err
	}
	signalsByPlayer, err := w.signalsByPlayer(ctx)
	if err != nil {
		return nil, err
	}
	calib, err := w.repo.CalibrationTable(ctx, w.pred.Version())
	if err != nil {
		return nil, err
	}

	projections, predictions := w.project(ctx, gw, pool, clubs, fixtures, signalsByPlayer, calib)
	if err := w.repo.UpsertPredictions(ctx, predictions); err != nil {
		return nil, err
	}

	for _, pick := range squad.Picks {
		if _, ok := projections[pick.Player.ID]; !ok {
			return nil, newError(KindPredictionGap, "predictor", nil,
				"player_id", pick.Player.ID, "player", pick.Player.WebName)
		}
	}

	state, err := w.repo.TeamState(ctx)
	if err != nil {
		return nil, err
	}
	transfersMade, err := w.repo.TransfersMadeByGameweek(ctx)
	if err != nil {
		return nil, err
	}
	freeTransfers := rules.FreeTransfers(transfersMade, gw, w.cfg.MaxBankedTransfers, w.cfg.FTTopups)

	thresholds, err := w.repo.PositionThresholds(ctx)
	if err != nil {
		return nil, err
	}
	chipHistory, err := w.repo.ChipHistory(ctx)
	if err != nil {
		return nil, err
	}
	wildcardAvailable := rules.CanUseChip(models.ChipWildcard, gw, chipHistory,
		w.cfg.FirstHalfEndGW, w.cfg.FinalGameweek) == nil

	poolPtrs := make([]*models.Player, 0, len(pool))
	for i := range pool {
		poolPtrs = append(poolPtrs, &pool[i])
	}

	rec, err := w.optimizer.Optimise(optimizer.Inputs{
		Gameweek:          gw,
		Squad:             squad,
		Bank:              state.Bank,
		FreeTransfers:     freeTransfers,
		Pool:              poolPtrs,
		Projections:       projections,
		Signals:           signalsByPlayer,
		Thresholds:        thresholds,
		WildcardAvailable: wildcardAvailable,
	})
	if err != nil {
		if _, ok := err.(*optimizer.SquadCrisisError); ok {
			return nil, err
		}
		return nil, newError(KindValidationFailure, "optimizer", err, "gameweek", gw)
	}

	decision := w.buildDecision(gw, rec, clubs, fixtures, chipHistory)
	if err := w.persistDecision(ctx, gw, rec, decision, freeTransfers, chipHistory); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"transfers": len(decision.Transfers),
		"captain":   decision.CaptainID,
		"chip":      decision.ChipUsed,
		"expected":  decision.ExpectedTotalPoints,
	}).Info("Decision emitted")
	return decision, nil
}

// signalsByPlayer loads live signals grouped by resolved player.
func (w *Workflow) signalsByPlayer(ctx context.Context) (map[uint][]*models.IntelligenceSignal, error) {
	cutoff := w.clock.Now().AddDate(0, 0, -w.cfg.IntelligenceTTLDays)
	signals, err := w.repo.SignalsSince(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	byPlayer := make(map[uint][]*models.IntelligenceSignal)
	for i := range signals {
		s := &signals[i]
		if s.PlayerID != nil && s.ExpiresAt.After(w.clock.Now()) {
			byPlayer[*s.PlayerID] = append(byPlayer[*s.PlayerID], s)
		}
	}
	return byPlayer, nil
}

// project fans player predictions out over a worker pool and joins the
// adjusted projections. Predictions are memoised per (player, gameweek,
// model version) so a player is never scored twice in one run.
func (w *Workflow) project(ctx context.Context, gw int, pool []models.Player,
	clubs []models.Club, fixtures []models.Fixture,
	signals map[uint][]*models.IntelligenceSignal, calib adjuster.Calibration,
) (map[uint]optimizer.Projection, []models.Prediction) {

	clubByID := make(map[uint]*models.Club, len(clubs))
	for i := range clubs {
		clubByID[clubs[i].ID] = &clubs[i]
	}
	fixturesByClub := make(map[uint][]models.Fixture)
	for _, f := range fixtures {
		fixturesByClub[f.HomeClubID] = append(fixturesByClub[f.HomeClubID], f)
		fixturesByClub[f.AwayClubID] = append(fixturesByClub[f.AwayClubID], f)
	}

	var (
		mu          sync.Mutex
		memo        = make(map[string]predictor.Result)
		projections = make(map[uint]optimizer.Projection, len(pool))
		predictions = make([]models.Prediction, 0, len(pool))
	)

	workers := w.cfg.PredictorWorkers
	if workers < 1 {
		workers = 1
	}
	jobs := make(chan models.Player)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for player := range jobs {
				w.projectOne(ctx, gw, player, clubByID, fixturesByClub, signals, calib,
					&mu, memo, projections, &predictions)
			}
		}()
	}
	for _, player := range pool {
		jobs <- player
	}
	close(jobs)
	wg.Wait()

	sort.Slice(predictions, func(i, j int) bool { return predictions[i].PlayerID < predictions[j].PlayerID })
	return projections, predictions
}

func (w *Workflow) projectOne(ctx context.Context, gw int, player models.Player,
	clubByID map[uint]*models.Club, fixturesByClub map[uint][]models.Fixture,
	signals map[uint][]*models.IntelligenceSignal, calib adjuster.Calibration,
	mu *sync.Mutex, memo map[string]predictor.Result,
	projections map[uint]optimizer.Projection, predictions *[]models.Prediction,
) {
	history, err := w.repo.PlayerHistory(ctx, player.ID, 2*features.RollingWindow)
	if err != nil {
		w.log.WithError(err).WithField("player_id", player.ID).Warn("History load failed, skipping player")
		return
	}

	var nextFixture *models.Fixture
	var opponent *models.Club
	clubFixtures := fixturesByClub[player.ClubID]
	for i := range clubFixtures {
		if clubFixtures[i].Gameweek == gw {
			nextFixture = &clubFixtures[i]
			oppID, _ := nextFixture.OpponentOf(player.ClubID)
			opponent = clubByID[oppID]
			break
		}
	}

	pf, err := features.Build(features.Input{
		Player:   &player,
		Opponent: opponent,
		Fixture:  nextFixture,
		History:  history,
		Gameweek: gw,
	})
	if err != nil {
		w.log.WithError(err).WithField("player_id", player.ID).Debug("Feature build failed, skipping player")
		return
	}

	memoKey := fmt.Sprintf("%d:%d:%s", player.ID, gw, w.pred.Version())
	mu.Lock()
	result, seen := memo[memoKey]
	mu.Unlock()
	if !seen {
		result, err = w.pred.Predict(pf, player.Position)
		if err != nil {
			w.log.WithError(err).WithField("player_id", player.ID).Debug("Prediction failed, skipping player")
			return
		}
		mu.Lock()
		memo[memoKey] = result
		mu.Unlock()
	}

	adjustment := w.adjuster.Adjust(&player, result.ExpectedPoints, signals[player.ID], calib)

	nextDifficulty := 3
	if nextFixture != nil {
		nextDifficulty = nextFixture.DifficultyFor(player.ClubID)
	}
	// Deflate the adjusted expectation to a difficulty-neutral base, then
	// rescale it per fixture across the horizon.
	neutral := adjustment.Final / rules.DifficultyMultiplier(nextDifficulty)
	horizon := 0.0
	for _, f := range clubFixtures {
		horizon += neutral * rules.DifficultyMultiplier(f.DifficultyFor(player.ClubID))
	}
	if len(clubFixtures) == 0 {
		horizon = adjustment.Final
	}

	adjusted := adjustment.Final
	row := models.Prediction{
		PlayerID:        player.ID,
		Gameweek:        gw,
		ModelVersion:    w.pred.Version(),
		ExpectedPoints:  result.ExpectedPoints,
		AdjustedPoints:  &adjusted,
		AdjustmentAudit: adjustment.AuditJSON(),
		Confidence:      result.Confidence,
		ProducedAt:      w.clock.Now(),
	}

	mu.Lock()
	projections[player.ID] = optimizer.Projection{NextGW: adjustment.Final, Horizon: horizon}
	*predictions = append(*predictions, row)
	mu.Unlock()
}

// buildDecision assembles the emitted decision and its rationale tokens.
func (w *Workflow) buildDecision(gw int, rec *optimizer.Recommendation,
	clubs []models.Club, fixtures []models.Fixture, chipHistory []models.ChipUsage) *Decision {

	decision := &Decision{
		DecisionID:          uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("decision|%d|%s", gw, w.pred.Version()))).String(),
		Gameweek:            gw,
		Draft:               rec.Draft,
		CaptainID:           rec.CaptainID,
		ViceID:              rec.ViceID,
		Transfers:           rec.Transfers,
		ExpectedTotalPoints: rec.ExpectedPoints,
	}

	for _, tr := range rec.Transfers {
		decision.RationaleTokens = append(decision.RationaleTokens,
			fmt.Sprintf("transfer out=%d in=%d gain=%.1f hit=%d", tr.PlayerOutID, tr.PlayerInID, tr.PredictedGain, tr.HitCost))
	}
	if rec.RolledTransfer {
		decision.RationaleTokens = append(decision.RationaleTokens, "ft_rolled")
	}
	for _, id := range rec.UrgentPlayers {
		decision.RationaleTokens = append(decision.RationaleTokens, fmt.Sprintf("urgent player=%d", id))
	}
	// A wildcard recommendation is advice, not a play: the chip is only
	// consumed once a rebuilt squad is actually committed under it.
	if rec.WildcardRecommended {
		decision.RationaleTokens = append(decision.RationaleTokens, "wildcard squad_rebuild")
	}

	for _, advice := range w.planner.RecommendChips(gw, chipHistory, fixtures) {
		if advice.Available && advice.Urgency == planner.UrgencyHigh {
			decision.RationaleTokens = append(decision.RationaleTokens,
				fmt.Sprintf("chip_window %s closes_gw=%d", advice.Chip, advice.WindowEnd))
		}
	}

	outlooks := w.planner.AnalyseFixtures(clubs, fixtures, gw)
	for _, o := range outlooks {
		if o.Class == planner.OutlookTarget {
			decision.RationaleTokens = append(decision.RationaleTokens,
				fmt.Sprintf("target_club %d avg_difficulty=%.2f", o.ClubID, o.AverageDifficulty))
		}
	}

	return decision
}

// persistDecision commits the draft, transfers, chip usage, team state and
// decision record.
func (w *Workflow) persistDecision(ctx context.Context, gw int,
	rec *optimizer.Recommendation, decision *Decision, freeTransfers int,
	chipHistory []models.ChipUsage) error {

	if err := w.repo.SaveDraft(ctx, rec.Draft); err != nil {
		return err
	}
	if err := w.repo.PromoteDraft(ctx, gw); err != nil {
		return err
	}

	transfers := make([]models.Transfer, len(rec.Transfers))
	copy(transfers, rec.Transfers)
	for i := range transfers {
		transfers[i].Gameweek = gw
	}
	if err := w.repo.RecordTransfers(ctx, transfers); err != nil {
		return err
	}

	if decision.ChipUsed != "" {
		if err := rules.CanUseChip(decision.ChipUsed, gw, chipHistory, w.cfg.FirstHalfEndGW, w.cfg.FinalGameweek); err != nil {
			return newError(KindChipUnavailable, "workflow", err, "chip", string(decision.ChipUsed))
		}
		usage := models.ChipUsage{
			Chip:      decision.ChipUsed,
			Gameweek:  gw,
			Half:      rules.ChipHalf(gw, w.cfg.FirstHalfEndGW),
			CreatedAt: w.clock.Now(),
		}
		if err := w.repo.RecordChipUsage(ctx, usage); err != nil {
			return err
		}
	}

	remaining := freeTransfers - len(transfers)
	if remaining < 0 {
		remaining = 0
	}
	if decision.ChipUsed == models.ChipWildcard {
		remaining = freeTransfers
	}
	if err := w.repo.SaveTeamState(ctx, &models.TeamState{
		Bank:          rec.BankAfter,
		FreeTransfers: remaining,
		UpdatedAtGW:   gw,
		UpdatedAt:     w.clock.Now(),
	}); err != nil {
		return err
	}

	payload, err := json.Marshal(decision)
	if err != nil {
		return err
	}
	return w.repo.SaveDecision(ctx, &models.DecisionRecord{
		DecisionID:          decision.DecisionID,
		Gameweek:            gw,
		CaptainID:           decision.CaptainID,
		ViceID:              decision.ViceID,
		ChipUsed:            string(decision.ChipUsed),
		ExpectedTotalPoints: decision.ExpectedTotalPoints,
		Payload:             string(payload),
		CreatedAt:           w.clock.Now(),
	})
}
