package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gafferbot/gaffer/internal/repository"
	"github.com/gafferbot/gaffer/internal/services"
	"github.com/gafferbot/gaffer/pkg/config"
	"github.com/gafferbot/gaffer/pkg/utils"
)

// LiveSource is the slice of the league client the API needs.
type LiveSource interface {
	LiveGameweek(ctx context.Context, gameweek int) (map[uint]int, error)
}

// Handler serves the read-only decision and squad API.
type Handler struct {
	cfg          *config.Config
	repo         repository.Repository
	live         LiveSource
	cache        *services.CacheService
	modelVersion string
}

func NewHandler(cfg *config.Config, repo repository.Repository, live LiveSource,
	cache *services.CacheService, modelVersion string) *Handler {
	return &Handler{
		cfg:          cfg,
		repo:         repo,
		live:         live,
		cache:        cache,
		modelVersion: modelVersion,
	}
}

// GetCurrentSquad returns the held 15-player squad.
func (h *Handler) GetCurrentSquad(c *gin.Context) {
	squad, err := h.repo.CurrentSquad(c.Request.Context())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.SendNotFound(c, "no squad held")
			return
		}
		utils.SendInternalError(c, "failed to load squad")
		return
	}
	utils.SendSuccess(c, squad)
}

// GetLatestDecision returns the most recent emitted decision.
func (h *Handler) GetLatestDecision(c *gin.Context) {
	record, err := h.repo.LatestDecision(c.Request.Context())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.SendNotFound(c, "no decision emitted yet")
			return
		}
		utils.SendInternalError(c, "failed to load decision")
		return
	}
	utils.SendSuccess(c, json.RawMessage(record.Payload))
}

// GetDecision returns the decision for one gameweek.
func (h *Handler) GetDecision(c *gin.Context) {
	gameweek, err := strconv.Atoi(c.Param("gameweek"))
	if err != nil || gameweek < 1 || gameweek > h.cfg.FinalGameweek {
		utils.SendValidationError(c, "invalid gameweek", c.Param("gameweek"))
		return
	}

	record, err := h.repo.DecisionForGameweek(c.Request.Context(), gameweek)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.SendNotFound(c, "no decision for gameweek")
			return
		}
		utils.SendInternalError(c, "failed to load decision")
		return
	}
	utils.SendSuccess(c, json.RawMessage(record.Payload))
}

// GetPlayer returns one player by ID.
func (h *Handler) GetPlayer(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		utils.SendValidationError(c, "invalid player id", c.Param("id"))
		return
	}

	player, err := h.repo.GetPlayer(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.SendNotFound(c, "player not found")
			return
		}
		utils.SendInternalError(c, "failed to load player")
		return
	}
	utils.SendSuccess(c, player)
}

// GetPredictions returns the stored predictions for one gameweek.
func (h *Handler) GetPredictions(c *gin.Context) {
	gameweek, err := strconv.Atoi(c.Param("gameweek"))
	if err != nil || gameweek < 1 || gameweek > h.cfg.FinalGameweek {
		utils.SendValidationError(c, "invalid gameweek", c.Param("gameweek"))
		return
	}

	modelVersion := c.DefaultQuery("model", h.modelVersion)
	predictions, err := h.repo.PredictionsForGameweek(c.Request.Context(), gameweek, modelVersion)
	if err != nil {
		utils.SendInternalError(c, "failed to load predictions")
		return
	}
	utils.SendSuccess(c, predictions)
}

// GetLiveSnapshot proxies the live per-player points for an in-progress
// gameweek, cached for a minute to spare the upstream.
func (h *Handler) GetLiveSnapshot(c *gin.Context) {
	gameweek, err := strconv.Atoi(c.Param("gameweek"))
	if err != nil || gameweek < 1 || gameweek > h.cfg.FinalGameweek {
		utils.SendValidationError(c, "invalid gameweek", c.Param("gameweek"))
		return
	}

	ctx := c.Request.Context()
	key := services.LiveCacheKey(gameweek)

	var points map[uint]int
	if err := h.cache.Get(ctx, key, &points); err == nil {
		utils.SendSuccess(c, points)
		return
	}

	points, err = h.live.LiveGameweek(ctx, gameweek)
	if err != nil {
		utils.SendServiceUnavailable(c, "live data unavailable")
		return
	}
	if err := h.cache.Set(ctx, key, points, time.Minute); err == nil {
		c.Header("X-Cache", "MISS")
	}
	utils.SendSuccess(c, points)
}

// GetFixtures returns fixtures for a gameweek range.
func (h *Handler) GetFixtures(c *gin.Context) {
	from, err := strconv.Atoi(c.DefaultQuery("from", "1"))
	if err != nil {
		utils.SendValidationError(c, "invalid from gameweek", c.Query("from"))
		return
	}
	to, err := strconv.Atoi(c.DefaultQuery("to", strconv.Itoa(h.cfg.FinalGameweek)))
	if err != nil {
		utils.SendValidationError(c, "invalid to gameweek", c.Query("to"))
		return
	}
	if from > to {
		utils.SendValidationError(c, "from after to", "")
		return
	}

	fixtures, err := h.repo.FixturesBetween(c.Request.Context(), from, to)
	if err != nil {
		utils.SendInternalError(c, "failed to load fixtures")
		return
	}
	utils.SendSuccess(c, fixtures)
}

// GetSignals returns recent actionable intelligence for a player.
func (h *Handler) GetSignals(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		utils.SendValidationError(c, "invalid player id", c.Param("id"))
		return
	}

	cutoff := time.Now().AddDate(0, 0, -h.cfg.IntelligenceTTLDays)
	signals, err := h.repo.SignalsForPlayer(c.Request.Context(), uint(id), cutoff)
	if err != nil {
		utils.SendInternalError(c, "failed to load signals")
		return
	}
	utils.SendSuccess(c, signals)
}

// Health reports process liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "gaffer",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}
