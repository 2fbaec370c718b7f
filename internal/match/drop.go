package match

import "github.com/roach88/dropfarm/internal/model"

// Drop scoring weights.
const (
	DropNameWeight      = 40.0
	DropSubstringWeight = 15.0
	DropGameWeight      = 20.0
	DropImageWeight     = 40.0
	DropCampaignWeight  = 30.0
)

// Acceptance floors. Inventory records carry fewer identifiers, and merging
// the wrong reward is worse than keeping two records apart, so the floor is
// higher there.
const (
	DropThreshold          = 40.0
	InventoryDropThreshold = 70.0
)

// DropScore returns the fuzzy similarity of two drops.
func DropScore(a, b model.Drop) float64 {
	score := 0.0

	na, nb := Normalize(a.Name), Normalize(b.Name)
	switch {
	case na != "" && na == nb:
		score += DropNameWeight
	case contains(na, nb):
		score += DropSubstringWeight
	}

	if contains(Normalize(a.GameName), Normalize(b.GameName)) {
		score += DropGameWeight
	}
	if a.ImageURL != "" && a.ImageURL == b.ImageURL {
		score += DropImageWeight
	}
	if a.CampaignID != "" && a.CampaignID == b.CampaignID {
		score += DropCampaignWeight
	}
	return score
}

// MatchDrop returns the candidate that is the same logical drop as target.
func MatchDrop(target model.Drop, candidates []model.Drop) (model.Drop, bool) {
	key := target.Key()
	for _, c := range candidates {
		if c.Key() == key {
			return c, true
		}
	}

	best := -1
	bestScore := 0.0
	for i, c := range candidates {
		floor := DropThreshold
		if target.Source == model.SourceInventory || c.Source == model.SourceInventory {
			floor = InventoryDropThreshold
		}
		s := DropScore(target, c)
		if s >= floor && s > bestScore {
			best, bestScore = i, s
		}
	}
	if best < 0 {
		return model.Drop{}, false
	}
	return candidates[best], true
}
