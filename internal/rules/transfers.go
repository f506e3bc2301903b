package rules

import (
	"github.com/gafferbot/gaffer/pkg/config"
)

// SellingPrice returns what the manager receives for a player bought at
// purchase and now priced at current: half the profit on a rise (integer
// division), the current price on a fall.
func SellingPrice(purchase, current int) int {
	if current <= purchase {
		return current
	}
	return purchase + (current-purchase)/2
}

// TransferCost returns the points hit for n transfers with the given free
// allowance. Wildcard and free hit make every transfer free.
func TransferCost(n, freeAvailable int, isWildcard, isFreeHit bool, hitPointCost int) int {
	if isWildcard || isFreeHit {
		return 0
	}
	extra := n - freeAvailable
	if extra <= 0 {
		return 0
	}
	return extra * hitPointCost
}

// FreeTransfers computes the free-transfer balance entering targetGW.
// Managers start gameweek 1 with one FT; each later gameweek adds one,
// carried up to cap. transfersMade counts FT-consuming transfers per
// gameweek (chip gameweeks must not be counted by the caller). Configured
// top-ups raise the balance to at least topup_to from their effective
// gameweek.
func FreeTransfers(transfersMade map[int]int, targetGW, cap int, topups []config.FTTopup) int {
	if targetGW < 1 {
		return 0
	}

	ft := 1
	for gw := 1; gw <= targetGW; gw++ {
		if gw > 1 {
			ft++
			if ft > cap {
				ft = cap
			}
		}
		for _, t := range topups {
			if gw == t.EffectiveFromGW && ft < t.TopupTo {
				ft = t.TopupTo
			}
		}
		if gw < targetGW {
			ft -= transfersMade[gw]
			if ft < 0 {
				ft = 0
			}
		}
	}
	return ft
}
