package intel

import (
	"strings"

	"github.com/gafferbot/gaffer/internal/models"
)

// NameIndex resolves free-text player names to season ids. It is built once
// per sweep from the refreshed player table and then read-only.
type NameIndex struct {
	exact   map[string]uint
	entries []nameEntry
}

type nameEntry struct {
	name     string
	playerID uint
}

// NewNameIndex registers every player's web name, full name and surname.
func NewNameIndex(players []models.Player) *NameIndex {
	idx := &NameIndex{exact: make(map[string]uint, len(players)*3)}
	for i := range players {
		p := &players[i]
		idx.add(p.WebName, p.ID)
		idx.add(p.FullName(), p.ID)
		idx.add(p.LastName, p.ID)
	}
	return idx
}

func (idx *NameIndex) add(name string, id uint) {
	folded := strings.ToLower(strings.TrimSpace(name))
	if folded == "" {
		return
	}
	if _, seen := idx.exact[folded]; !seen {
		idx.exact[folded] = id
		idx.entries = append(idx.entries, nameEntry{name: folded, playerID: id})
	}
}

// Resolve returns the best-matching player and a 0..100 match score. Exact
// case-folded hits score 100; otherwise the best token-sorted fuzzy match is
// returned when it reaches the floor, else (nil, best score seen).
func (idx *NameIndex) Resolve(name string, minScore int) (*uint, int) {
	folded := strings.ToLower(strings.TrimSpace(name))
	if folded == "" {
		return nil, 0
	}
	if id, ok := idx.exact[folded]; ok {
		return &id, 100
	}

	bestScore := 0
	var bestID uint
	for _, e := range idx.entries {
		if score := tokenSortRatio(folded, e.name); score > bestScore {
			bestScore = score
			bestID = e.playerID
		}
	}
	if bestScore >= minScore {
		id := bestID
		return &id, bestScore
	}
	return nil, bestScore
}
