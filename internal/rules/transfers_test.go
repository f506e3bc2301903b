package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gafferbot/gaffer/internal/models"
	"github.com/gafferbot/gaffer/pkg/config"
)

func TestSellingPrice(t *testing.T) {
	// Half the profit is kept on a rise, integer-divided.
	assert.Equal(t, 61, SellingPrice(60, 63))
	assert.Equal(t, 62, SellingPrice(60, 65))
	// Falls sell at the current price.
	assert.Equal(t, 55, SellingPrice(60, 55))
	// No movement round-trips.
	assert.Equal(t, 60, SellingPrice(60, 60))
	assert.Equal(t, 63, SellingPrice(60, 66))
}

func TestTransferCost(t *testing.T) {
	assert.Equal(t, 0, TransferCost(1, 1, false, false, 4))
	assert.Equal(t, 0, TransferCost(2, 3, false, false, 4))
	assert.Equal(t, 4, TransferCost(2, 1, false, false, 4))
	assert.Equal(t, 12, TransferCost(3, 0, false, false, 4))
	assert.Equal(t, 0, TransferCost(10, 0, true, false, 4))
	assert.Equal(t, 0, TransferCost(10, 0, false, true, 4))
}

func TestFreeTransfers_Accumulation(t *testing.T) {
	// No transfers made: one FT per week, capped at 5.
	assert.Equal(t, 1, FreeTransfers(nil, 1, 5, nil))
	assert.Equal(t, 2, FreeTransfers(nil, 2, 5, nil))
	assert.Equal(t, 5, FreeTransfers(nil, 6, 5, nil))
	assert.Equal(t, 5, FreeTransfers(nil, 20, 5, nil))

	// Spending transfers drains the balance.
	made := map[int]int{1: 1, 2: 1, 3: 1}
	assert.Equal(t, 1, FreeTransfers(made, 4, 5, nil))

	// Hits never push the balance negative.
	heavy := map[int]int{1: 4}
	assert.Equal(t, 1, FreeTransfers(heavy, 2, 5, nil))
}

func TestFreeTransfers_Topup(t *testing.T) {
	topups := []config.FTTopup{{
		TriggerAfterGW:  15,
		EffectiveFromGW: 16,
		TopupTo:         5,
		CarryOver:       true,
	}}

	// One transfer per week through GW14, then a roll in GW15: the manager
	// arrives at GW16 holding 2 without the boost.
	made := make(map[int]int)
	for gw := 1; gw <= 14; gw++ {
		made[gw] = 1
	}
	assert.Equal(t, 2, FreeTransfers(made, 16, 5, nil))
	assert.Equal(t, 5, FreeTransfers(made, 16, 5, topups))

	// The top-up never lowers an already higher balance.
	assert.Equal(t, 5, FreeTransfers(nil, 16, 5, topups))
}

func TestCanUseChip_HalfWindows(t *testing.T) {
	history := []models.ChipUsage{
		{Chip: models.ChipWildcard, Gameweek: 12, Half: 1},
	}

	// Used in half 1: blocked for the rest of the half, free again in half 2.
	assert.Error(t, CanUseChip(models.ChipWildcard, 18, history, 19, 38))
	assert.NoError(t, CanUseChip(models.ChipWildcard, 22, history, 19, 38))

	// Unused half-1 chips do not carry over; the half-2 use is still one.
	assert.NoError(t, CanUseChip(models.ChipBenchBoost, 20, nil, 19, 38))

	// Boundary: GW19 is half 1, GW20 is half 2.
	assert.Error(t, CanUseChip(models.ChipWildcard, 19, history, 19, 38))
	assert.NoError(t, CanUseChip(models.ChipWildcard, 20, history, 19, 38))
}

func TestCanUseChip_WildcardFreeHitExclusion(t *testing.T) {
	history := []models.ChipUsage{
		{Chip: models.ChipFreeHit, Gameweek: 25, Half: 2},
	}
	assert.Error(t, CanUseChip(models.ChipWildcard, 25, history, 19, 38))
	assert.NoError(t, CanUseChip(models.ChipWildcard, 26, history, 19, 38))
}

func TestCanUseChip_OutOfRange(t *testing.T) {
	assert.Error(t, CanUseChip(models.ChipWildcard, 0, nil, 19, 38))
	assert.Error(t, CanUseChip(models.ChipWildcard, 39, nil, 19, 38))
}
