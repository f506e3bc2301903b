package workflow

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/gafferbot/gaffer/internal/learning"
	"github.com/gafferbot/gaffer/internal/models"
	"github.com/gafferbot/gaffer/internal/repository"
	"github.com/gafferbot/gaffer/pkg/logger"
)

// Learn runs the post-gameweek review once a gameweek resolves: it backfills
// actual points into predictions and transfers, refreshes calibration,
// adapts transfer thresholds and records the captaincy outcome.
func (w *Workflow) Learn(ctx context.Context, gameweek int) error {
	log := logger.WithGameweek(gameweek)

	actuals, err := w.league.LiveGameweek(ctx, gameweek)
	if err != nil {
		return newError(KindUpstreamUnavailable, "learning", err, "gameweek", gameweek)
	}

	if err := w.repo.BackfillPredictionActuals(ctx, gameweek, actuals); err != nil {
		return err
	}
	if err := w.repo.BackfillTransferGains(ctx, gameweek, actuals); err != nil {
		return err
	}

	players, err := w.repo.ListPlayers(ctx, repository.PlayerFilter{})
	if err != nil {
		return err
	}
	playerByID := make(map[uint]*models.Player, len(players))
	for i := range players {
		playerByID[players[i].ID] = &players[i]
	}

	predictions, err := w.repo.PredictionsForGameweek(ctx, gameweek, w.pred.Version())
	if err != nil {
		return err
	}
	var rows []learning.ReviewRow
	for i := range predictions {
		pred := &predictions[i]
		player, ok := playerByID[pred.PlayerID]
		if !ok || pred.ActualPoints == nil {
			continue
		}
		rows = append(rows, learning.ReviewRow{
			PlayerID:  pred.PlayerID,
			Position:  player.Position,
			NowCost:   player.NowCost,
			Predicted: pred.Final(),
			Actual:    *pred.ActualPoints,
		})
	}
	if len(rows) == 0 {
		log.Warn("No resolved predictions to review")
		return nil
	}

	review := w.learner.Review(gameweek, w.pred.Version(), rows)
	entries := w.learner.CalibrationEntries(review, w.clock.Now())
	if err := w.repo.SaveCalibration(ctx, entries); err != nil {
		return err
	}

	if err := w.adaptThresholds(ctx, gameweek, playerByID); err != nil {
		return err
	}

	squad, err := w.repo.CurrentSquad(ctx)
	if err != nil {
		return err
	}
	if captainReview := w.learner.ReviewCaptaincy(gameweek, squad, actuals, w.clock.Now()); captainReview != nil {
		if err := w.repo.SaveCaptainReview(ctx, captainReview); err != nil {
			return err
		}
		log.WithFields(logrus.Fields{
			"captain":     captainReview.CaptainID,
			"points_left": captainReview.PointsLeft,
		}).Info("Reviewed captaincy")
	}

	purged, err := w.repo.PurgeExpiredSignals(ctx, w.clock.Now())
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"calibration_cells": len(entries),
		"signals_purged":    purged,
	}).Info("Post-gameweek learning finished")
	return nil
}

func (w *Workflow) adaptThresholds(ctx context.Context, gameweek int, playerByID map[uint]*models.Player) error {
	resolved, err := w.repo.TransfersWithActuals(ctx)
	if err != nil {
		return err
	}
	var outcomes []learning.TransferOutcome
	for _, tr := range resolved {
		player, ok := playerByID[tr.PlayerInID]
		if !ok {
			continue
		}
		outcomes = append(outcomes, learning.TransferOutcome{
			Position:     player.Position,
			ExpectedGain: tr.PredictedGain,
			ActualGain:   *tr.ActualGain,
		})
	}
	if len(outcomes) == 0 {
		return nil
	}

	current, err := w.repo.PositionThresholds(ctx)
	if err != nil {
		return err
	}
	updated := w.learner.AdaptThresholds(current, outcomes, gameweek, w.clock.Now())
	return w.repo.SaveThresholds(ctx, updated)
}

// PurgeSignals drops expired intelligence rows; run as a maintenance job.
func (w *Workflow) PurgeSignals(ctx context.Context) error {
	purged, err := w.repo.PurgeExpiredSignals(ctx, w.clock.Now())
	if err != nil {
		return err
	}
	if purged > 0 {
		w.log.WithField("purged", purged).Info("Purged expired signals")
	}
	return nil
}
