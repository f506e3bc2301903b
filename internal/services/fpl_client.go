package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/gafferbot/gaffer/internal/models"
	"github.com/gafferbot/gaffer/pkg/config"
	"github.com/gafferbot/gaffer/pkg/logger"
	"github.com/gafferbot/gaffer/pkg/utils"
)

// Bootstrap is the full league snapshot from the upstream bootstrap endpoint.
type Bootstrap struct {
	Players   []models.Player
	Clubs     []models.Club
	Gameweeks []models.Gameweek
}

// FPLClient fetches league data from the official fantasy API. All calls go
// through a shared rate limiter and a circuit breaker; transient failures
// are retried with backoff before the breaker counts them.
type FPLClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	retries    int
	log        *logrus.Entry
}

func NewFPLClient(cfg *config.Config) *FPLClient {
	log := logger.WithComponent("fpl_client")

	settings := gobreaker.Settings{
		Name:    "fpl-api",
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.WithFields(logrus.Fields{
				"service": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Info("Circuit breaker state changed")
		},
	}

	return &FPLClient{
		baseURL:    cfg.LeagueAPIBaseURL,
		httpClient: &http.Client{Timeout: cfg.LeagueAPITimeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.LeagueAPIRateLimit), 1),
		breaker:    gobreaker.NewCircuitBreaker(settings),
		retries:    cfg.FetchRetries,
		log:        log,
	}
}

// Upstream DTOs. Numeric stats arrive as strings from the API.

type bootstrapResponse struct {
	Events   []eventDTO   `json:"events"`
	Teams    []teamDTO    `json:"teams"`
	Elements []elementDTO `json:"elements"`
}

type eventDTO struct {
	ID           int       `json:"id"`
	DeadlineTime time.Time `json:"deadline_time"`
	IsCurrent    bool      `json:"is_current"`
	IsNext       bool      `json:"is_next"`
	Finished     bool      `json:"finished"`
}

type teamDTO struct {
	ID                  uint   `json:"id"`
	Name                string `json:"name"`
	ShortName           string `json:"short_name"`
	StrengthOverallHome int    `json:"strength_overall_home"`
	StrengthOverallAway int    `json:"strength_overall_away"`
	StrengthAttackHome  int    `json:"strength_attack_home"`
	StrengthAttackAway  int    `json:"strength_attack_away"`
	StrengthDefenceHome int    `json:"strength_defence_home"`
	StrengthDefenceAway int    `json:"strength_defence_away"`
}

type elementDTO struct {
	ID                       uint   `json:"id"`
	Code                     int    `json:"code"`
	WebName                  string `json:"web_name"`
	FirstName                string `json:"first_name"`
	SecondName               string `json:"second_name"`
	ElementType              int    `json:"element_type"`
	Team                     uint   `json:"team"`
	NowCost                  int    `json:"now_cost"`
	Status                   string `json:"status"`
	ChanceOfPlayingNextRound *int   `json:"chance_of_playing_next_round"`
	Form                     string `json:"form"`
	PointsPerGame            string `json:"points_per_game"`
	TotalPoints              int    `json:"total_points"`
	Minutes                  int    `json:"minutes"`
	SelectedByPercent        string `json:"selected_by_percent"`
	Influence                string `json:"influence"`
	Creativity               string `json:"creativity"`
	Threat                   string `json:"threat"`
	ICTIndex                 string `json:"ict_index"`
	ExpectedGoals            string `json:"expected_goals"`
	ExpectedAssists          string `json:"expected_assists"`
}

type fixtureDTO struct {
	ID               uint       `json:"id"`
	Event            *int       `json:"event"`
	TeamH            uint       `json:"team_h"`
	TeamA            uint       `json:"team_a"`
	KickoffTime      *time.Time `json:"kickoff_time"`
	TeamHDifficulty  int        `json:"team_h_difficulty"`
	TeamADifficulty  int        `json:"team_a_difficulty"`
	Finished         bool       `json:"finished"`
	TeamHScore       *int       `json:"team_h_score"`
	TeamAScore       *int       `json:"team_a_score"`
}

type elementSummaryResponse struct {
	History []historyDTO `json:"history"`
}

type historyDTO struct {
	Element                       uint   `json:"element"`
	Round                         int    `json:"round"`
	OpponentTeam                  uint   `json:"opponent_team"`
	WasHome                       bool   `json:"was_home"`
	Minutes                       int    `json:"minutes"`
	GoalsScored                   int    `json:"goals_scored"`
	Assists                       int    `json:"assists"`
	CleanSheets                   int    `json:"clean_sheets"`
	GoalsConceded                 int    `json:"goals_conceded"`
	OwnGoals                      int    `json:"own_goals"`
	PenaltiesSaved                int    `json:"penalties_saved"`
	PenaltiesMissed               int    `json:"penalties_missed"`
	YellowCards                   int    `json:"yellow_cards"`
	RedCards                      int    `json:"red_cards"`
	Saves                         int    `json:"saves"`
	Bonus                         int    `json:"bonus"`
	BPS                           int    `json:"bps"`
	Influence                     string `json:"influence"`
	Creativity                    string `json:"creativity"`
	Threat                        string `json:"threat"`
	ExpectedGoals                 string `json:"expected_goals"`
	ExpectedAssists               string `json:"expected_assists"`
	Tackles                       int    `json:"tackles"`
	Recoveries                    int    `json:"recoveries"`
	ClearancesBlocksInterceptions int    `json:"clearances_blocks_interceptions"`
	TotalPoints                   int    `json:"total_points"`
}

type liveResponse struct {
	Elements []liveElementDTO `json:"elements"`
}

type liveElementDTO struct {
	ID    uint `json:"id"`
	Stats struct {
		Minutes     int `json:"minutes"`
		GoalsScored int `json:"goals_scored"`
		Assists     int `json:"assists"`
		Bonus       int `json:"bonus"`
		TotalPoints int `json:"total_points"`
	} `json:"stats"`
}

// Bootstrap fetches the players, clubs and gameweek calendar in one call.
func (c *FPLClient) Bootstrap(ctx context.Context) (*Bootstrap, error) {
	var resp bootstrapResponse
	if err := c.getJSON(ctx, "/bootstrap-static/", &resp); err != nil {
		return nil, err
	}

	boot := &Bootstrap{}
	for _, t := range resp.Teams {
		boot.Clubs = append(boot.Clubs, models.Club{
			ID:                  t.ID,
			Name:                t.Name,
			ShortName:           t.ShortName,
			StrengthOverallHome: t.StrengthOverallHome,
			StrengthOverallAway: t.StrengthOverallAway,
			StrengthAttackHome:  t.StrengthAttackHome,
			StrengthAttackAway:  t.StrengthAttackAway,
			StrengthDefenceHome: t.StrengthDefenceHome,
			StrengthDefenceAway: t.StrengthDefenceAway,
		})
	}
	for _, e := range resp.Events {
		boot.Gameweeks = append(boot.Gameweeks, models.Gameweek{
			ID:        e.ID,
			Deadline:  e.DeadlineTime,
			IsCurrent: e.IsCurrent,
			IsNext:    e.IsNext,
			Finished:  e.Finished,
		})
	}
	for _, e := range resp.Elements {
		boot.Players = append(boot.Players, models.Player{
			ID:              e.ID,
			Code:            e.Code,
			WebName:         e.WebName,
			FirstName:       e.FirstName,
			LastName:        e.SecondName,
			Position:        models.PositionFromElementType(e.ElementType),
			ClubID:          e.Team,
			NowCost:         e.NowCost,
			Status:          models.StatusFromCode(e.Status),
			ChanceOfPlaying: e.ChanceOfPlayingNextRound,
			Form:            parseFloat(e.Form),
			PointsPerGame:   parseFloat(e.PointsPerGame),
			TotalPoints:     e.TotalPoints,
			Minutes:         e.Minutes,
			SelectedBy:      parseFloat(e.SelectedByPercent),
			Influence:       parseFloat(e.Influence),
			Creativity:      parseFloat(e.Creativity),
			Threat:          parseFloat(e.Threat),
			ICTIndex:        parseFloat(e.ICTIndex),
			ExpectedGoals:   parseFloat(e.ExpectedGoals),
			ExpectedAssists: parseFloat(e.ExpectedAssists),
		})
	}

	c.log.WithFields(logrus.Fields{
		"players":   len(boot.Players),
		"clubs":     len(boot.Clubs),
		"gameweeks": len(boot.Gameweeks),
	}).Info("Fetched bootstrap data")
	return boot, nil
}

// PlayerHistory fetches a player's finished gameweek rows for this season.
func (c *FPLClient) PlayerHistory(ctx context.Context, playerID uint) ([]models.PlayerPerformance, error) {
	var resp elementSummaryResponse
	path := fmt.Sprintf("/element-summary/%d/", playerID)
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}

	perfs := make([]models.PlayerPerformance, 0, len(resp.History))
	for _, h := range resp.History {
		perfs = append(perfs, models.PlayerPerformance{
			PlayerID:                      h.Element,
			Gameweek:                      h.Round,
			OpponentClubID:                h.OpponentTeam,
			WasHome:                       h.WasHome,
			Minutes:                       h.Minutes,
			Goals:                         h.GoalsScored,
			Assists:                       h.Assists,
			CleanSheet:                    h.CleanSheets > 0,
			GoalsConceded:                 h.GoalsConceded,
			OwnGoals:                      h.OwnGoals,
			PenaltiesSaved:                h.PenaltiesSaved,
			PenaltiesMissed:               h.PenaltiesMissed,
			YellowCards:                   h.YellowCards,
			RedCards:                      h.RedCards,
			Saves:                         h.Saves,
			Bonus:                         h.Bonus,
			BPS:                           h.BPS,
			Influence:                     parseFloat(h.Influence),
			Creativity:                    parseFloat(h.Creativity),
			Threat:                        parseFloat(h.Threat),
			ExpectedGoals:                 parseFloat(h.ExpectedGoals),
			ExpectedAssists:               parseFloat(h.ExpectedAssists),
			Tackles:                       h.Tackles,
			Recoveries:                    h.Recoveries,
			ClearancesBlocksInterceptions: h.ClearancesBlocksInterceptions,
			TotalPoints:                   h.TotalPoints,
		})
	}
	return perfs, nil
}

// Fixtures fetches the full season fixture list.
func (c *FPLClient) Fixtures(ctx context.Context) ([]models.Fixture, error) {
	var resp []fixtureDTO
	if err := c.getJSON(ctx, "/fixtures/", &resp); err != nil {
		return nil, err
	}

	fixtures := make([]models.Fixture, 0, len(resp))
	for _, f := range resp {
		fixture := models.Fixture{
			ID:             f.ID,
			HomeClubID:     f.TeamH,
			AwayClubID:     f.TeamA,
			HomeDifficulty: f.TeamHDifficulty,
			AwayDifficulty: f.TeamADifficulty,
			Finished:       f.Finished,
			HomeScore:      f.TeamHScore,
			AwayScore:      f.TeamAScore,
		}
		if f.Event != nil {
			fixture.Gameweek = *f.Event
		}
		if f.KickoffTime != nil {
			fixture.KickoffTime = *f.KickoffTime
		}
		fixtures = append(fixtures, fixture)
	}
	return fixtures, nil
}

// LiveGameweek fetches resolved points per player for a gameweek.
func (c *FPLClient) LiveGameweek(ctx context.Context, gameweek int) (map[uint]int, error) {
	var resp liveResponse
	path := fmt.Sprintf("/event/%d/live/", gameweek)
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, err
	}

	points := make(map[uint]int, len(resp.Elements))
	for _, e := range resp.Elements {
		points[e.ID] = e.Stats.TotalPoints
	}
	return points, nil
}

func (c *FPLClient) getJSON(ctx context.Context, path string, dest interface{}) error {
	body, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetchWithRetry(ctx, path)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return utils.NewAppError(utils.ErrCodeUpstream, "league API circuit open", path)
		}
		return err
	}

	if err := json.Unmarshal(body.([]byte), dest); err != nil {
		return utils.NewAppError(utils.ErrCodeUpstream, "league API returned malformed payload", err.Error())
	}
	return nil
}

func (c *FPLClient) fetchWithRetry(ctx context.Context, path string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		body, err := c.fetch(ctx, path)
		if err == nil {
			return body, nil
		}
		lastErr = err
		c.log.WithFields(logrus.Fields{
			"path":    path,
			"attempt": attempt + 1,
		}).WithError(err).Warn("League API fetch failed")
	}
	return nil, lastErr
}

func (c *FPLClient) fetch(ctx context.Context, path string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeUpstream, "league API unreachable", err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, utils.NewAppError(utils.ErrCodeUpstream,
			fmt.Sprintf("league API returned %d", resp.StatusCode), path)
	}
	return io.ReadAll(resp.Body)
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
