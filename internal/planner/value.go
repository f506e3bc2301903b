package planner

import (
	"sort"

	"github.com/gafferbot/gaffer/internal/models"
	"github.com/gafferbot/gaffer/internal/rules"
)

// PriceModel is an optional external rise/fall predictor. Trend returns a
// signed probability-like score (positive = likely rise) and whether the
// model covers the player.
type PriceModel interface {
	Trend(playerID uint) (float64, bool)
}

// priceTrendFloor is the trend magnitude below which a prediction is noise.
const priceTrendFloor = 0.5

// ValueInsight is one pick's worth-tracking summary.
type ValueInsight struct {
	PlayerID         uint    `json:"player_id"`
	PurchasePrice    int     `json:"purchase_price"`
	NowCost          int     `json:"now_cost"`
	SellingPrice     int     `json:"selling_price"`
	UnrealisedProfit int     `json:"unrealised_profit"` // tenths, selling - purchase
	PriceTrend       float64 `json:"price_trend,omitempty"`
	LikelyRise       bool    `json:"likely_rise,omitempty"`
	LikelyFall       bool    `json:"likely_fall,omitempty"`
}

// ValueReport tracks each pick's unrealised profit using the selling-price
// rule, flagging likely movers when an external price model is wired in.
// Sorted by unrealised profit descending.
func (p *Planner) ValueReport(squad *models.Squad, prices PriceModel) []ValueInsight {
	insights := make([]ValueInsight, 0, len(squad.Picks))
	for _, pick := range squad.Picks {
		if pick.Player == nil {
			continue
		}
		selling := rules.SellingPrice(pick.PurchasePrice, pick.Player.NowCost)
		insight := ValueInsight{
			PlayerID:         pick.Player.ID,
			PurchasePrice:    pick.PurchasePrice,
			NowCost:          pick.Player.NowCost,
			SellingPrice:     selling,
			UnrealisedProfit: selling - pick.PurchasePrice,
		}
		if prices != nil {
			if trend, ok := prices.Trend(pick.Player.ID); ok {
				insight.PriceTrend = trend
				insight.LikelyRise = trend >= priceTrendFloor
				insight.LikelyFall = trend <= -priceTrendFloor
			}
		}
		insights = append(insights, insight)
	}

	sort.SliceStable(insights, func(i, j int) bool {
		return insights[i].UnrealisedProfit > insights[j].UnrealisedProfit
	})
	return insights
}
