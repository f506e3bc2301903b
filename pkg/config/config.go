package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// FTTopup describes a scheduled free-transfer top-up (e.g. the AFCON boost):
// after trigger gameweek, from the effective gameweek every manager holds at
// least topup_to free transfers.
type FTTopup struct {
	TriggerAfterGW  int  `mapstructure:"trigger_after_gw" json:"trigger_after_gw"`
	EffectiveFromGW int  `mapstructure:"effective_from_gw" json:"effective_from_gw"`
	TopupTo         int  `mapstructure:"topup_to" json:"topup_to"`
	CarryOver       bool `mapstructure:"carry_over" json:"carry_over"`
}

type Config struct {
	// Server
	Port string `mapstructure:"PORT"`
	Env  string `mapstructure:"ENV"`

	// Database
	DatabaseURL    string `mapstructure:"DATABASE_URL"`
	DatabaseDriver string `mapstructure:"DATABASE_DRIVER"` // "postgres" or "sqlite"

	// Redis
	RedisURL string `mapstructure:"REDIS_URL"`

	// Upstream league API
	LeagueAPIBaseURL   string        `mapstructure:"LEAGUE_API_BASE_URL"`
	LeagueAPITimeout   time.Duration `mapstructure:"LEAGUE_API_TIMEOUT"`
	LeagueAPIRateLimit int           `mapstructure:"LEAGUE_API_RATE_LIMIT"` // requests per second
	FetchRetries       int           `mapstructure:"FETCH_RETRIES"`

	// Intelligence
	IntelSourceTimeout       time.Duration `mapstructure:"INTEL_SOURCE_TIMEOUT"`
	IntelligenceTTLDays      int           `mapstructure:"INTELLIGENCE_TTL_DAYS"`
	TranscriptTTLDays        int           `mapstructure:"TRANSCRIPT_TTL_DAYS"`
	MinActionableConfidence  float64       `mapstructure:"MIN_ACTIONABLE_CONFIDENCE"`
	MinPlayerMatchScore      int           `mapstructure:"MIN_PLAYER_MATCH_SCORE"`
	IntelSignalsFile         string        `mapstructure:"INTEL_SIGNALS_FILE"`

	// League rules
	InitialBudget      int `mapstructure:"INITIAL_BUDGET"` // tenths of a million
	MaxClubPlayers     int `mapstructure:"MAX_CLUB_PLAYERS"`
	MaxBankedTransfers int `mapstructure:"MAX_BANKED_TRANSFERS"`
	HitPointCost       int `mapstructure:"HIT_POINT_COST"`

	// Chip windows: first half 1..FirstHalfEndGW, second half starts after
	FirstHalfEndGW int `mapstructure:"FIRST_HALF_END_GW"`
	FinalGameweek  int `mapstructure:"FINAL_GAMEWEEK"`

	// Free-transfer top-ups (comma-separated "trigger:effective:topup:carry")
	FTTopups []FTTopup `mapstructure:"-"`

	// Planning
	HorizonGameweeks             int     `mapstructure:"HORIZON_GAMEWEEKS"`
	TransferGainThresholdDefault float64 `mapstructure:"TRANSFER_GAIN_THRESHOLD_DEFAULT"`
	HitThresholdStrong           float64 `mapstructure:"HIT_THRESHOLD_STRONG"`
	HitThresholdMarginal         float64 `mapstructure:"HIT_THRESHOLD_MARGINAL"`
	ReplacementHeadroom          int     `mapstructure:"REPLACEMENT_HEADROOM"` // tenths
	MinChanceOfPlaying           int     `mapstructure:"MIN_CHANCE_OF_PLAYING"`

	// Prediction adjustment
	PremiumPriceFloor int     `mapstructure:"PREMIUM_PRICE_FLOOR"` // tenths
	PremiumFormFloor  float64 `mapstructure:"PREMIUM_FORM_FLOOR"`

	// Calibration / learning
	CalibrationMinSamplesPosition int `mapstructure:"CALIBRATION_MIN_SAMPLES_POSITION"`
	CalibrationMinSamplesBracket  int `mapstructure:"CALIBRATION_MIN_SAMPLES_BRACKET"`
	ThresholdLearningMinSamples   int `mapstructure:"THRESHOLD_LEARNING_MIN_SAMPLES"`

	// Predictor
	ModelDir         string `mapstructure:"MODEL_DIR"`
	PredictorWorkers int    `mapstructure:"PREDICTOR_WORKERS"`

	// Workflow
	WorkflowDeadline time.Duration `mapstructure:"WORKFLOW_DEADLINE"`

	// Feature flags
	EnableScheduler bool `mapstructure:"ENABLE_SCHEDULER"`
	EnableWebsocket bool `mapstructure:"ENABLE_WEBSOCKET"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("DATABASE_URL", "gaffer.db")
	viper.SetDefault("DATABASE_DRIVER", "sqlite")
	viper.SetDefault("REDIS_URL", "redis://localhost:6379/0")

	viper.SetDefault("LEAGUE_API_BASE_URL", "https://fantasy.premierleague.com/api")
	viper.SetDefault("LEAGUE_API_TIMEOUT", "15s")
	viper.SetDefault("LEAGUE_API_RATE_LIMIT", 2)
	viper.SetDefault("FETCH_RETRIES", 3)

	viper.SetDefault("INTEL_SOURCE_TIMEOUT", "30s")
	viper.SetDefault("INTELLIGENCE_TTL_DAYS", 30)
	viper.SetDefault("TRANSCRIPT_TTL_DAYS", 7)
	viper.SetDefault("MIN_ACTIONABLE_CONFIDENCE", 0.6)
	viper.SetDefault("MIN_PLAYER_MATCH_SCORE", 70)
	viper.SetDefault("INTEL_SIGNALS_FILE", "")

	viper.SetDefault("INITIAL_BUDGET", 1000)
	viper.SetDefault("MAX_CLUB_PLAYERS", 3)
	viper.SetDefault("MAX_BANKED_TRANSFERS", 5)
	viper.SetDefault("HIT_POINT_COST", 4)
	viper.SetDefault("FIRST_HALF_END_GW", 19)
	viper.SetDefault("FINAL_GAMEWEEK", 38)
	viper.SetDefault("FT_TOPUPS", "")

	viper.SetDefault("HORIZON_GAMEWEEKS", 4)
	viper.SetDefault("TRANSFER_GAIN_THRESHOLD_DEFAULT", 2.0)
	viper.SetDefault("HIT_THRESHOLD_STRONG", 8.0)
	viper.SetDefault("HIT_THRESHOLD_MARGINAL", 4.0)
	viper.SetDefault("REPLACEMENT_HEADROOM", 10)
	viper.SetDefault("MIN_CHANCE_OF_PLAYING", 75)

	viper.SetDefault("PREMIUM_PRICE_FLOOR", 120)
	viper.SetDefault("PREMIUM_FORM_FLOOR", 5.0)

	viper.SetDefault("CALIBRATION_MIN_SAMPLES_POSITION", 20)
	viper.SetDefault("CALIBRATION_MIN_SAMPLES_BRACKET", 30)
	viper.SetDefault("THRESHOLD_LEARNING_MIN_SAMPLES", 5)

	viper.SetDefault("MODEL_DIR", "models")
	viper.SetDefault("PREDICTOR_WORKERS", 4)
	viper.SetDefault("WORKFLOW_DEADLINE", "10m")

	viper.SetDefault("ENABLE_SCHEDULER", true)
	viper.SetDefault("ENABLE_WEBSOCKET", true)

	// Read from environment
	viper.AutomaticEnv()

	// Read config file if exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Parse FT top-ups from comma-separated "trigger:effective:topup:carry" entries
	if topupStr := viper.GetString("FT_TOPUPS"); topupStr != "" {
		topups, err := parseFTTopups(topupStr)
		if err != nil {
			return nil, fmt.Errorf("invalid FT_TOPUPS: %w", err)
		}
		config.FTTopups = topups
	}

	return &config, nil
}

func parseFTTopups(s string) ([]FTTopup, error) {
	var topups []FTTopup
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 4 {
			return nil, fmt.Errorf("expected trigger:effective:topup:carry, got %q", entry)
		}
		trigger, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, err
		}
		effective, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, err
		}
		topup, err := strconv.Atoi(parts[2])
		if err != nil {
			return nil, err
		}
		carry, err := strconv.ParseBool(parts[3])
		if err != nil {
			return nil, err
		}
		topups = append(topups, FTTopup{
			TriggerAfterGW:  trigger,
			EffectiveFromGW: effective,
			TopupTo:         topup,
			CarryOver:       carry,
		})
	}
	return topups, nil
}

// SecondHalfStartGW returns the first gameweek of the second chip half.
func (c *Config) SecondHalfStartGW() int {
	return c.FirstHalfEndGW + 1
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
