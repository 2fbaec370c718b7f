package match

import (
	"strings"

	"github.com/roach88/dropfarm/internal/model"
)

// Game scoring weights and acceptance floor.
const (
	GameTokenWeight    = 40.0
	GameContainsWeight = 40.0
	GameSlugWeight     = 35.0
	GameThreshold      = 35.0
)

// GameScore returns the fuzzy similarity of two campaigns.
func GameScore(a, b model.Campaign) float64 {
	score := Jaccard(Tokens(a.Name), Tokens(b.Name)) * GameTokenWeight
	if contains(Normalize(a.Name), Normalize(b.Name)) {
		score += GameContainsWeight
	}
	if sa, sb := Slug(a.CategorySlug), Slug(b.CategorySlug); sa != "" && sa == sb {
		score += GameSlugWeight
	}
	return score
}

// ExactGame reports whether two campaigns share an identifier. Campaigns of
// one game that carry different campaign ids are distinct.
func ExactGame(a, b model.Campaign) bool {
	if a.CampaignID != "" && a.CampaignID == b.CampaignID {
		return true
	}
	if a.Key() == b.Key() {
		return true
	}
	return a.ID != "" && a.ID == b.ID && !conflicting(a.CampaignID, b.CampaignID)
}

// conflicting reports whether two campaign ids are both set and differ.
func conflicting(a, b string) bool {
	return a != "" && b != "" && a != b
}

// MatchGame returns the candidate that best matches target. An exact
// identifier match wins immediately; otherwise the highest score at or
// above GameThreshold wins, first candidate on ties. Candidates whose
// campaign id conflicts with target's never match.
func MatchGame(target model.Campaign, candidates []model.Campaign) (model.Campaign, bool) {
	for _, c := range candidates {
		if ExactGame(target, c) {
			return c, true
		}
	}

	best := -1
	bestScore := 0.0
	for i, c := range candidates {
		if conflicting(target.CampaignID, c.CampaignID) {
			continue
		}
		s := GameScore(target, c)
		if s >= GameThreshold && s > bestScore {
			best, bestScore = i, s
		}
	}
	if best < 0 {
		return model.Campaign{}, false
	}
	return candidates[best], true
}

// Relation describes how a drop was tied to a campaign.
type Relation int

const (
	// Unrelated means the drop belongs to another campaign.
	Unrelated Relation = iota
	// Relaxed means only the game names matched by score.
	Relaxed
	// Strict means an identifier or category slug matched.
	Strict
)

// DropMatchesGame reports how a drop relates to the selected campaign.
// A drop tagged with another campaign's id is unrelated even when it shares
// the game.
func DropMatchesGame(d model.Drop, game model.Campaign) Relation {
	if conflicting(d.CampaignID, game.CampaignID) {
		return Unrelated
	}
	if d.GameID != "" && d.GameID == game.ID {
		return Strict
	}
	if d.CampaignID != "" && d.CampaignID == game.CampaignID {
		return Strict
	}
	if sa, sb := Slug(d.CategorySlug), Slug(game.CategorySlug); sa != "" && sa == sb {
		return Strict
	}
	if strings.TrimSpace(d.GameName) == "" {
		return Unrelated
	}
	if GameScore(model.Campaign{Name: d.GameName}, model.Campaign{Name: game.Name}) >= GameThreshold {
		return Relaxed
	}
	return Unrelated
}
